package lrc

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// wordsPerSecond 估算逐词时间时使用的语速
	wordsPerSecond = 2.5
	// lastLineDuration 最后一行歌词的默认持续时间（秒）
	lastLineDuration = 5.0
)

var (
	lineRe = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{1,3}))?\](.*)`)
	wordRe = regexp.MustCompile(`<(\d{2}):(\d{2})(?:\.(\d{1,3}))?>`)
)

// Parse 解析LRC文本为有序歌词行。
// 支持标准格式 [mm:ss.xx] 和增强格式的逐词时间 <mm:ss.xx>word。
// 无法解析时间戳的行（元数据、空行）直接丢弃，不视为错误。
func Parse(raw string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(raw))
	var result []Line

	for scanner.Scan() {
		line := scanner.Text()
		matches := lineRe.FindAllStringSubmatch(line, -1)
		for _, match := range matches {
			timestamp := parseTimestamp(match[1], match[2], match[3])
			text := strings.TrimSpace(match[4])

			parsed := Line{Time: timestamp, Text: text}
			if wordRe.MatchString(text) {
				parsed.Words = parseWordTimings(text, timestamp)
				parsed.Text = stripWordTags(text)
			} else if text != "" {
				parsed.Words = estimateWordTimings(text, timestamp)
			}
			result = append(result, parsed)
		}
	}

	sort.SliceStable(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	fillEndTimes(result)
	return result
}

// parseTimestamp 计算时间戳（秒）。
// 根据小数部分的位数正确换算毫秒，如 .1 表示 100ms，.49 表示 490ms
func parseTimestamp(minStr, secStr, fracStr string) float64 {
	min, _ := strconv.Atoi(minStr)
	sec, _ := strconv.Atoi(secStr)
	ms := 0
	if fracStr != "" {
		ms, _ = strconv.Atoi(fracStr)
		switch len(fracStr) {
		case 1:
			ms *= 100
		case 2:
			ms *= 10
		}
	}
	return float64(min*60+sec) + float64(ms)/1000
}

// parseWordTimings 解析增强LRC的逐词时间。
// 每个 <mm:ss.xx> 标记后的文本（直到下一个标记或行尾）为一个词；
// 第一个标记之前的文本归属于行的开始时间
func parseWordTimings(text string, lineTime float64) []WordTiming {
	tags := wordRe.FindAllStringSubmatchIndex(text, -1)
	var words []WordTiming
	if lead := strings.TrimSpace(text[:tags[0][0]]); lead != "" {
		words = append(words, WordTiming{Word: lead, Time: lineTime})
	}
	for i, tag := range tags {
		sub := wordRe.FindStringSubmatch(text[tag[0]:tag[1]])
		timestamp := parseTimestamp(sub[1], sub[2], sub[3])

		end := len(text)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}
		word := strings.TrimSpace(text[tag[1]:end])
		if word == "" {
			continue
		}
		words = append(words, WordTiming{Word: word, Time: timestamp})
	}
	return words
}

// estimateWordTimings 为没有逐词时间的行按固定语速估算。
// 估算结果带Approximate标记，下游据此区分真实与估算的逐词高亮
func estimateWordTimings(text string, start float64) []WordTiming {
	fields := strings.Fields(text)
	words := make([]WordTiming, 0, len(fields))
	for i, field := range fields {
		words = append(words, WordTiming{
			Word:        field,
			Time:        start + float64(i)/wordsPerSecond,
			Approximate: true,
		})
	}
	return words
}

func stripWordTags(text string) string {
	stripped := wordRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// fillEndTimes 推导缺失的行结束时间：
// 取下一行的开始时间，最后一行使用固定的默认持续时间
func fillEndTimes(lines []Line) {
	for i := range lines {
		if lines[i].EndTime > 0 {
			continue
		}
		if i+1 < len(lines) {
			lines[i].EndTime = lines[i+1].Time
		} else {
			lines[i].EndTime = lines[i].Time + lastLineDuration
		}
	}
}

// MergeTranslation 将翻译歌词按时间戳合并到原文歌词中。
// 网易云的tlyric与原文使用相同的时间戳，允许20ms以内的误差
func MergeTranslation(lines []Line, translated []Line) {
	const epsilon = 0.02
	j := 0
	for i := range lines {
		for j < len(translated) && translated[j].Time < lines[i].Time-epsilon {
			j++
		}
		if j < len(translated) && translated[j].Time <= lines[i].Time+epsilon {
			lines[i].Translation = translated[j].Text
		}
	}
}
