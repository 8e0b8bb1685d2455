package title

import (
	"regexp"
	"strings"
)

// minQueryLen 短于该长度的查询词直接跳过
const minQueryLen = 2

// SearchStrategy 一条候选搜索策略，按优先级顺序生成，
// 流水线依次尝试并在第一个命中的策略处停止
type SearchStrategy struct {
	Name       string
	Query      string
	SongHint   string
	ArtistHint string
	Enabled    bool
}

var (
	bracketRe = regexp.MustCompile(`[(\[【][^)\]】]*[)\]】]`)
	quoteRe   = regexp.MustCompile(`["'“”‘’「」]`)
)

// aggressiveStopWords 激进过滤时去掉的停用词（比视频标记更宽）
var aggressiveStopWords = map[string]struct{}{
	"official": {}, "video": {}, "audio": {}, "lyrics": {}, "lyric": {},
	"mv": {}, "hd": {}, "4k": {}, "live": {}, "remastered": {}, "remaster": {},
	"full": {}, "version": {}, "cover": {}, "music": {}, "visualizer": {},
	"performance": {}, "session": {}, "explicit": {}, "clean": {},
}

// GenerateStrategies 根据解析结果生成有序的搜索策略列表。
// 高置信度的解析结果排在前面，原始标题兜底
func GenerateStrategies(rawTitle, channel string, parsed ParsedTitle) []SearchStrategy {
	cleaned := CleanTitle(rawTitle)

	candidates := []SearchStrategy{
		{
			Name:       "parsed-song-artist",
			Query:      joinQuery(parsed.Song, parsed.Artist),
			SongHint:   parsed.Song,
			ArtistHint: parsed.Artist,
			Enabled:    parsed.Confidence > 0.6,
		},
		{
			Name:       "cleaned-title-channel",
			Query:      joinQuery(cleaned, channel),
			SongHint:   cleaned,
			ArtistHint: channel,
			Enabled:    channel != "",
		},
		{
			Name:       "raw-title-channel",
			Query:      joinQuery(rawTitle, channel),
			SongHint:   rawTitle,
			ArtistHint: channel,
			Enabled:    channel != "",
		},
		{
			Name:     "parsed-song",
			Query:    parsed.Song,
			SongHint: parsed.Song,
			Enabled:  parsed.Confidence > 0.7,
		},
		{
			Name:     "cleaned-title",
			Query:    cleaned,
			SongHint: cleaned,
			Enabled:  true,
		},
		{
			Name:     "filtered-title",
			Query:    aggressiveFilter(rawTitle),
			SongHint: aggressiveFilter(rawTitle),
			Enabled:  true,
		},
		{
			Name:     "raw-title",
			Query:    rawTitle,
			SongHint: rawTitle,
			Enabled:  true,
		},
	}

	seen := make(map[string]struct{})
	var result []SearchStrategy
	for _, s := range candidates {
		s.Query = strings.TrimSpace(s.Query)
		if !s.Enabled || len([]rune(s.Query)) < minQueryLen {
			continue
		}
		// 重复的查询词只保留优先级最高的一条
		key := strings.ToLower(s.Query)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, s)
	}
	return result
}

// aggressiveFilter 激进过滤：去掉所有括号内容、引号和更大的停用词表
func aggressiveFilter(raw string) string {
	filtered := bracketRe.ReplaceAllString(raw, " ")
	filtered = quoteRe.ReplaceAllString(filtered, "")

	var kept []string
	for _, field := range strings.Fields(filtered) {
		if _, ok := aggressiveStopWords[strings.ToLower(strings.Trim(field, ".,!?-"))]; ok {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

func joinQuery(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
