package title

import (
	"regexp"
	"strings"
)

// ParsedTitle 标题解析结果
type ParsedTitle struct {
	Song       string
	Artist     string
	Confidence float64 // [0,1]
}

var (
	// markerRe 匹配括号内的视频标记，如 (Official Video)、[MV]、【歌词版】
	markerRe = regexp.MustCompile(`(?i)[(\[【][^)\]】]*(official|video|audio|lyrics?|lyric video|mv|hd|4k|visualizer|live|remaster(ed)?|color coded|字幕|歌词|官方)[^)\]】]*[)\]】]`)
	featRe   = regexp.MustCompile(`(?i)[(\[]\s*(?:feat\.?|featuring|ft\.?)\s+([^)\]]+)[)\]]`)
)

// fillerWords 出现在歌名开头的常见填充词，含这些词的短前缀不视为歌手名
var fillerWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "my": {}, "your": {}, "our": {},
	"this": {}, "that": {}, "some": {}, "all": {},
}

// ParseTitle 从原始视频标题中启发式提取歌名和歌手。
// 按优先级逐条匹配，第一条命中即返回：
//  1. " - " 分隔且恰好两段：与频道名相似的一段为歌手；
//     否则短且无填充词的第一段为歌手；否则第一段为歌名
//  2. feat./ft. 括号：括号前为歌名
//  3. " | " 分隔：第一段为歌名
//  4. 整个标题为歌名，频道名为歌手
func ParseTitle(raw, channel string) ParsedTitle {
	cleaned := CleanTitle(raw)

	if parts := strings.Split(cleaned, " - "); len(parts) == 2 {
		first := strings.TrimSpace(parts[0])
		second := strings.TrimSpace(parts[1])

		if channel != "" {
			if similarity(first, channel) > 0.7 {
				return ParsedTitle{Song: second, Artist: first, Confidence: 0.9}
			}
			if similarity(second, channel) > 0.7 {
				return ParsedTitle{Song: first, Artist: second, Confidence: 0.9}
			}
		}

		if isLikelyArtist(first) {
			return ParsedTitle{Song: second, Artist: first, Confidence: 0.8}
		}
		return ParsedTitle{Song: first, Artist: second, Confidence: 0.75}
	}

	if m := featRe.FindStringSubmatchIndex(cleaned); m != nil {
		song := strings.TrimSpace(cleaned[:m[0]])
		artist := strings.TrimSpace(cleaned[m[2]:m[3]])
		if channel != "" {
			artist = channel
		}
		return ParsedTitle{Song: song, Artist: artist, Confidence: 0.7}
	}

	if parts := strings.Split(cleaned, " | "); len(parts) >= 2 {
		artist := strings.TrimSpace(parts[1])
		if channel != "" {
			artist = channel
		}
		return ParsedTitle{Song: strings.TrimSpace(parts[0]), Artist: artist, Confidence: 0.6}
	}

	if channel != "" {
		return ParsedTitle{Song: cleaned, Artist: channel, Confidence: 0.8}
	}
	return ParsedTitle{Song: cleaned, Confidence: 0.4}
}

// CleanTitle 去除标题中括号内的视频标记（official/video/lyrics/mv等）
func CleanTitle(raw string) string {
	cleaned := markerRe.ReplaceAllString(raw, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// isLikelyArtist 判断短且不含填充词的片段是否像歌手名
func isLikelyArtist(s string) bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 || len(fields) > 3 {
		return false
	}
	for _, f := range fields {
		if _, ok := fillerWords[f]; ok {
			return false
		}
	}
	return true
}

// similarity 计算两个字符串的字符集合Jaccard相似度（交集/并集）。
// 任一为空返回0，归一化后相等返回1
func similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	setA := make(map[rune]struct{})
	for _, r := range a {
		setA[r] = struct{}{}
	}
	setB := make(map[rune]struct{})
	for _, r := range b {
		setB[r] = struct{}{}
	}

	intersection := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
