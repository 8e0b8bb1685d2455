package pipeline

import "errors"

var (
	// ErrQueryTooShort 查询词过短，跳过该策略（非致命）
	ErrQueryTooShort = errors.New("query too short")
	// ErrNoMatchFound 所有策略和所有提供商都已穷尽，
	// 是用户可见的"未找到歌词"状态而不是异常
	ErrNoMatchFound = errors.New("no lyrics found")
)
