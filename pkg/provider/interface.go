package provider

import (
	"context"
)

// Candidate 提供商搜索返回的候选曲目
type Candidate struct {
	ID         string // 提供商内部的曲目标识
	TrackName  string
	ArtistName string
	Duration   float64 // 秒，未知为0
	HasSynced  bool    // 搜索结果已知带同步歌词
}

// Result 提供商返回的歌词
type Result struct {
	SyncedText     string // 原始LRC文本（可能为空）
	PlainText      string // 无时间信息的纯文本歌词（可能为空）
	TranslatedText string // 翻译歌词的LRC文本（目前仅网易云提供）
	ProviderName   string
}

// HasSynced 是否带同步歌词
func (r *Result) HasSynced() bool {
	return r.SyncedText != ""
}

// LyricsAPI 歌词提供商通用接口
type LyricsAPI interface {
	// Search 按自由文本搜索候选曲目，结果按相关度排序
	Search(ctx context.Context, query string) ([]Candidate, error)

	// FetchLyrics 根据候选ID获取歌词
	FetchLyrics(ctx context.Context, id string) (*Result, error)

	// GetProviderName 获取歌词提供商名称
	GetProviderName() string
}
