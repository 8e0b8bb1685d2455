package lrc

// Line 歌词行结构
type Line struct {
	Time        float64          `json:"time"`                  // 行开始时间（秒）
	EndTime     float64          `json:"endTime"`               // 行结束时间（秒），未知时由下一行推导
	Text        string           `json:"text"`                  // 歌词文本
	Translation string           `json:"translation,omitempty"` // 翻译文本（可选，由翻译增强附加）
	Words       []WordTiming     `json:"words,omitempty"`       // 逐词时间（可选）
	Syllables   []SyllableTiming `json:"syllables,omitempty"`   // 逐音节时间（可选，卡拉OK渐进填充）
}

// WordTiming 逐词时间结构
type WordTiming struct {
	Word string  `json:"word"`
	Time float64 `json:"time"` // 词开始时间（秒）
	// Approximate 标记该时间是估算值（按固定语速推算），
	// 而不是来自增强LRC的真实逐词时间
	Approximate bool `json:"approximate,omitempty"`
}

// SyllableTiming 逐音节时间结构，比逐词时间更严格：
// 每个音节的EndTime不得超过下一个音节的Time
type SyllableTiming struct {
	Syllable string  `json:"syllable"`
	Time     float64 `json:"time"`
	EndTime  float64 `json:"endTime"`
}

// HasWordTiming 判断该行是否带有真实（非估算）的逐词时间
func (l *Line) HasWordTiming() bool {
	for _, w := range l.Words {
		if !w.Approximate {
			return true
		}
	}
	return false
}
