package title

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"lyricsync/pkg/ai"
)

// aiConfidence AI成功提取时赋予的置信度
const aiConfidence = 0.85

// songInfo AI返回的歌曲信息
type songInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	IsSong bool   `json:"is_song"`
}

func formatQuerySong(title string) string {
	return fmt.Sprintf(`请精确地按照以下JSON格式提取歌曲信息: {"is_song": true, "title": "歌曲标题", "artist": "演唱者"}。  输入是一个媒体标题，如果标题中包含歌曲信息，请返回符合格式的JSON；否则，返回{"is_song": false}。 请注意，"title" 和 "artist" 必须准确，否则将被视为错误，切记不要任何markdown格式。 媒体标题是：%s`, title)
}

// AIExtractor 低置信度标题的AI兜底解析器
type AIExtractor struct {
	client     ai.AiInterface
	maxRetries int
}

// NewAIExtractor 创建AI标题解析器
func NewAIExtractor(client ai.AiInterface) *AIExtractor {
	return &AIExtractor{client: client, maxRetries: 3}
}

// Extract 让AI从原始标题提取歌曲信息。
// 失败或AI判定不是歌曲时ok为false，调用方退回启发式结果
func (e *AIExtractor) Extract(rawTitle string) (ParsedTitle, bool) {
	var raw string
	var err error
	for i := 0; i < e.maxRetries; i++ {
		raw, err = e.client.HandleText(formatQuerySong(rawTitle))
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max_retries", e.maxRetries).Msg("AI title extraction failed")
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return ParsedTitle{}, false
	}

	var info songInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &info); err != nil {
		log.Warn().Err(err).Str("response", raw).Msg("Failed to parse AI response")
		return ParsedTitle{}, false
	}
	if !info.IsSong || info.Title == "" {
		return ParsedTitle{}, false
	}

	log.Info().Str("title", info.Title).Str("artist", info.Artist).Msg("AI extracted song info")
	return ParsedTitle{Song: info.Title, Artist: info.Artist, Confidence: aiConfidence}, true
}
