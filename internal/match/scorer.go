package match

import (
	"strings"
)

// Candidate 一个可评分的候选搜索结果
type Candidate struct {
	TrackName  string
	ArtistName string
	HasSynced  bool // 是否带有同步歌词
}

const (
	artistWeight = 0.6
	trackWeight  = 0.4
	exactBonus   = 0.2
	syncedBonus  = 0.1
	// minScore 最高分不超过该阈值时，退回提供商返回的第一个结果
	// （提供商本身按相关度排序，第一个是合理的默认值）
	minScore = 0.3
)

// Score 计算单个候选与目标歌曲信息的加权相似度
func Score(c Candidate, song, artist string) float64 {
	score := artistWeight*similarity(artist, c.ArtistName) + trackWeight*similarity(song, c.TrackName)
	if artist != "" && strings.EqualFold(strings.TrimSpace(artist), strings.TrimSpace(c.ArtistName)) {
		score += exactBonus
	}
	if c.HasSynced {
		score += syncedBonus
	}
	return score
}

// Best 从候选列表中选出与目标最匹配的一个，返回其下标。
// 并列时取靠前的（稳定）；最高分过低时取第一个；空列表返回-1
func Best(candidates []Candidate, song, artist string) int {
	if len(candidates) == 0 {
		return -1
	}

	bestIdx := 0
	bestScore := Score(candidates[0], song, artist)
	for i := 1; i < len(candidates); i++ {
		if s := Score(candidates[i], song, artist); s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}

	if bestScore <= minScore {
		return 0
	}
	return bestIdx
}

// similarity 字符集合Jaccard相似度，与标题解析使用同一定义
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
