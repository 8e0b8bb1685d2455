package provider

import "errors"

// 提供商错误分类。单个提供商的失败不应中止整个解析流程，
// 流水线据此决定跳过还是重试
var (
	// ErrNotFound 提供商没有该查询的结果
	ErrNotFound = errors.New("provider: no results")
	// ErrUnavailable 网络或HTTP层失败
	ErrUnavailable = errors.New("provider: unavailable")
	// ErrAuthExpired 提供商令牌失效（已重试过一次）
	ErrAuthExpired = errors.New("provider: auth token expired")
	// ErrParseFailure 响应格式损坏，无法解析
	ErrParseFailure = errors.New("provider: malformed response")
)
