package lrc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// richsyncLine Musixmatch richsync格式的一行：
// ts/te为行的起止时间（秒），l为行内片段及其相对偏移，x为整行文本
type richsyncLine struct {
	Ts float64 `json:"ts"`
	Te float64 `json:"te"`
	L  []struct {
		C string  `json:"c"`
		O float64 `json:"o"`
	} `json:"l"`
	X string `json:"x"`
}

// ParseRichsync 解析richsync JSON为歌词行，附带逐词和逐音节时间。
// 音节的结束时间取下一个音节的开始（最后一个取行结束），
// 保证EndTime不超过下一个音节的开始时间
func ParseRichsync(raw string) ([]Line, error) {
	var richLines []richsyncLine
	if err := json.Unmarshal([]byte(raw), &richLines); err != nil {
		return nil, fmt.Errorf("failed to parse richsync body: %w", err)
	}

	result := make([]Line, 0, len(richLines))
	for _, rl := range richLines {
		text := rl.X
		if text == "" {
			var sb strings.Builder
			for _, seg := range rl.L {
				sb.WriteString(seg.C)
			}
			text = sb.String()
		}
		text = strings.TrimSpace(text)
		if text == "" {
			// 纯间奏行丢弃
			continue
		}

		line := Line{Time: rl.Ts, EndTime: rl.Te, Text: text}

		for _, seg := range rl.L {
			c := strings.TrimSpace(seg.C)
			if c == "" {
				continue
			}
			start := rl.Ts + seg.O
			line.Words = append(line.Words, WordTiming{Word: c, Time: start})
			line.Syllables = append(line.Syllables, SyllableTiming{Syllable: c, Time: start})
		}
		// 回填音节结束时间
		for i := range line.Syllables {
			if i+1 < len(line.Syllables) {
				line.Syllables[i].EndTime = line.Syllables[i+1].Time
			} else {
				line.Syllables[i].EndTime = rl.Te
			}
		}

		result = append(result, line)
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	fillEndTimes(result)
	return result, nil
}

// ParseAuto 自动识别同步歌词格式：
// richsync的JSON数组以 [{ 开头，其余按LRC处理
func ParseAuto(raw string) []Line {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[{") {
		if lines, err := ParseRichsync(trimmed); err == nil {
			return lines
		}
	}
	return Parse(raw)
}
