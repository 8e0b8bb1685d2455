package sync

import (
	"lyricsync/internal/lrc"

	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "synchronizer").Logger()

// seekThreshold 两次tick之间时间跳变超过该值（秒）视为seek
const seekThreshold = 2.0

// Event 同步事件，仅在行（或词）下标变化时发出
type Event struct {
	CurrentIndex     int       // 当前行下标，-1表示尚未到第一行
	CurrentWordIndex int       // 当前词下标，-1表示无词信息或未到第一个词
	Previous         *lrc.Line // 上一行（没有则为nil）
	Next             *lrc.Line // 下一行（没有则为nil）
	Discontinuity    bool      // seek等非连续跳变，消费方可跳过过渡动画
}

// Synchronizer 播放同步器：把连续推进的播放时钟映射为
// 离散的"当前行/当前词"事件。由外部每帧驱动Tick，内部不含定时器
type Synchronizer struct {
	lines []lrc.Line
	times []float64 // 行开始时间，与lines等长，升序
	delay float64   // 用户可配置的延迟偏移（秒，可为负）

	lastIndex      int
	lastWordIndex  int
	lastTime       float64
	forceRecompute bool
	started        bool
}

// New 创建同步器。lines必须已按时间升序排列（lrc.Parse的输出满足）
func New(lines []lrc.Line, delay float64) *Synchronizer {
	times := make([]float64, len(lines))
	for i, l := range lines {
		times[i] = l.Time
	}
	return &Synchronizer{
		lines:         lines,
		times:         times,
		delay:         delay,
		lastIndex:     -1,
		lastWordIndex: -1,
	}
}

// SetDelay 调整延迟偏移，下一次Tick立即生效并强制重新计算
func (s *Synchronizer) SetDelay(delay float64) {
	s.delay = delay
	s.forceRecompute = true
}

// Delay 返回当前延迟偏移
func (s *Synchronizer) Delay() float64 {
	return s.delay
}

// Seek 显式seek信号：绕过增量查找缓存，下一个事件标记为非连续
func (s *Synchronizer) Seek() {
	s.forceRecompute = true
}

// Tick 输入当前播放时间，若行或词下标变化则返回事件，否则返回nil。
// 对相同时间的重复调用不会重复发出事件
func (s *Synchronizer) Tick(currentTime float64) *Event {
	if len(s.lines) == 0 {
		return nil
	}

	adjusted := currentTime + s.delay

	discontinuity := s.forceRecompute
	if s.started && !discontinuity {
		if diff := currentTime - s.lastTime; diff < 0 || diff > seekThreshold {
			// 时间回退或大幅跳变，按seek处理
			discontinuity = true
		}
	}

	var index int
	if discontinuity || !s.started {
		index = searchIndex(s.times, adjusted)
	} else {
		index = s.extendIndex(adjusted)
	}

	wordIndex := s.wordIndexAt(index, adjusted)

	wasStarted := s.started
	s.lastTime = currentTime
	s.started = true
	s.forceRecompute = false

	// 首个tick总是发出事件，之后只在下标变化或非连续跳变时发出
	if wasStarted && index == s.lastIndex && wordIndex == s.lastWordIndex && !discontinuity {
		return nil
	}

	lineChanged := index != s.lastIndex
	s.lastIndex = index
	s.lastWordIndex = wordIndex

	if lineChanged {
		logger.Debug().
			Int("index", index).
			Float64("time", currentTime).
			Msg("Active line changed")
	}

	ev := &Event{
		CurrentIndex:     index,
		CurrentWordIndex: wordIndex,
		Discontinuity:    discontinuity,
	}
	if index > 0 {
		ev.Previous = &s.lines[index-1]
	}
	if index+1 < len(s.lines) {
		ev.Next = &s.lines[index+1]
	}
	return ev
}

// Lines 返回同步器持有的歌词行
func (s *Synchronizer) Lines() []lrc.Line {
	return s.lines
}

// extendIndex 基于上一次的下标线性前后扩展。
// 连续tick几乎总是落在相邻行，线性扩展比每次二分更快
func (s *Synchronizer) extendIndex(t float64) int {
	idx := s.lastIndex

	// 向前扩展
	for idx+1 < len(s.times) && s.times[idx+1] <= t {
		idx++
	}
	// 向后回退
	for idx >= 0 && s.times[idx] > t {
		idx--
	}
	return idx
}

// wordIndexAt 在当前行的词数组内定位当前词
func (s *Synchronizer) wordIndexAt(lineIndex int, t float64) int {
	if lineIndex < 0 || lineIndex >= len(s.lines) {
		return -1
	}
	words := s.lines[lineIndex].Words
	result := -1
	left, right := 0, len(words)-1
	for left <= right {
		mid := (left + right) / 2
		if words[mid].Time <= t {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

// searchIndex 二分查找满足 times[i] <= t 的最大下标，没有则返回-1
func searchIndex(times []float64, t float64) int {
	left, right := 0, len(times)-1
	result := -1
	for left <= right {
		mid := (left + right) / 2
		if times[mid] <= t {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}
