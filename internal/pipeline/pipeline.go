package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricsync/internal/lrc"
	"lyricsync/internal/lyricscache"
	"lyricsync/internal/match"
	"lyricsync/internal/title"
	"lyricsync/pkg/provider"
	"lyricsync/pkg/translate"
)

var logger = log.With().Str("component", "pipeline").Logger()

// aiFallbackConfidence 启发式解析置信度低于该值时尝试AI兜底
const aiFallbackConfidence = 0.5

// Request 一次解析请求：来自视频宿主的标题、频道名和视频ID
type Request struct {
	Title    string
	Channel  string
	VideoID  string
	Duration float64 // 秒，未知为0
}

// Update 解析过程中推送给展示层的更新。
// 快速结果先到，更丰富的结果（升级、翻译）随后；通道关闭表示解析结束
type Update struct {
	Generation   uint64
	VideoID      string
	Lines        []lrc.Line
	PlainText    string // 无同步信息时的纯文本歌词
	ProviderName string
	FromCache    bool
	Upgraded     bool // 后台升级替换了之前展示的歌词
	Translated   bool // 附加了翻译
	Err          error
}

// Pipeline 歌词解析流水线：缓存检查 → 快速提供商 → 后台升级。
// 同一流水线上新视频的解析会使旧视频的在途解析立即失效
type Pipeline struct {
	providers  []provider.LyricsAPI // [0]为快速主提供商，其余按优先级为备选
	cache      *lyricscache.Cache
	extractor  *title.AIExtractor
	translator translate.Translator

	generation atomic.Uint64
}

// Option 流水线构造选项
type Option func(*Pipeline)

// WithAIExtractor 启用低置信度标题的AI兜底解析
func WithAIExtractor(e *title.AIExtractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithTranslator 启用歌词行翻译增强
func WithTranslator(t translate.Translator) Option {
	return func(p *Pipeline) { p.translator = t }
}

// New 创建流水线。providers不能为空，第一个为快速主提供商
func New(providers []provider.LyricsAPI, cache *lyricscache.Cache, opts ...Option) *Pipeline {
	p := &Pipeline{
		providers: providers,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(p)
	}

	names := make([]string, len(providers))
	for i, pr := range providers {
		names[i] = pr.GetProviderName()
	}
	logger.Info().Strs("providers", names).Msg("Resolution pipeline initialized")
	return p
}

// Resolve 开始解析一个新视频。之前未完成的解析立即失效。
// 返回的通道由调用方消费直到关闭
func (p *Pipeline) Resolve(ctx context.Context, req Request) <-chan Update {
	gen := p.generation.Add(1)
	ch := make(chan Update, 8)
	go p.run(ctx, gen, req, ch)
	return ch
}

// Generation 当前解析代号，旧代号的结果已失效
func (p *Pipeline) Generation() uint64 {
	return p.generation.Load()
}

func (p *Pipeline) stale(gen uint64) bool {
	return gen != p.generation.Load()
}

func (p *Pipeline) run(ctx context.Context, gen uint64, req Request, ch chan<- Update) {
	defer close(ch)

	runLogger := logger.With().
		Str("session", uuid.New().String()[:8]).
		Str("video_id", req.VideoID).
		Uint64("generation", gen).
		Logger()

	parsed := title.ParseTitle(req.Title, req.Channel)
	runLogger.Info().
		Str("title", req.Title).
		Str("song", parsed.Song).
		Str("artist", parsed.Artist).
		Float64("confidence", parsed.Confidence).
		Msg("Parsed video title")

	if parsed.Confidence < aiFallbackConfidence && p.extractor != nil {
		if aiParsed, ok := p.extractor.Extract(req.Title); ok {
			parsed = aiParsed
		}
	}

	strategies := title.GenerateStrategies(req.Title, req.Channel, parsed)
	if len(strategies) == 0 {
		// 所有候选查询词都太短，没有可用的搜索策略
		p.emit(ch, gen, Update{VideoID: req.VideoID, Err: ErrQueryTooShort})
		return
	}

	// 缓存命中即终态，跳过网络
	for _, s := range strategies {
		entry, ok := p.cache.Get(s.Query)
		if !ok {
			continue
		}
		runLogger.Info().Str("strategy", s.Name).Str("provider", entry.ProviderName).Msg("Cache HIT")
		lines := lrc.ParseAuto(entry.SyncedText)
		if !p.emit(ch, gen, Update{
			VideoID:      req.VideoID,
			Lines:        lines,
			ProviderName: entry.ProviderName,
			FromCache:    true,
		}) {
			return
		}
		p.augmentTranslation(ctx, gen, req, lines, entry.ProviderName, ch, runLogger)
		return
	}
	runLogger.Info().Msg("Cache MISS, querying providers")

	// 快速主提供商：第一个有结果的策略即展示，不等待更丰富的提供商
	fast := p.providers[0]
	fastResult, fastStrategy := p.lookup(ctx, gen, fast, strategies, runLogger)
	if p.stale(gen) || ctx.Err() != nil {
		return
	}

	var displayed []lrc.Line
	var displayedProvider string

	if fastResult != nil {
		displayed = buildLines(fastResult)
		displayedProvider = fastResult.ProviderName
		p.storeResult(fastStrategy, fastResult, parsed)
		if !p.emit(ch, gen, Update{
			VideoID:      req.VideoID,
			Lines:        displayed,
			PlainText:    plainFallback(fastResult, displayed),
			ProviderName: fastResult.ProviderName,
		}) {
			return
		}
	}

	// 快速结果精度不足时尝试备选提供商。
	// 快速提供商完全没有结果时这一步是同步的（用户在等待）
	if needUpgrade(displayed) {
		for _, secondary := range p.providers[1:] {
			result, strategy := p.lookup(ctx, gen, secondary, strategies, runLogger)
			if p.stale(gen) || ctx.Err() != nil {
				return
			}
			if result == nil {
				continue
			}
			lines := buildLines(result)
			if displayed != nil && !richer(displayed, lines) {
				continue
			}

			// 展示与缓存一并替换。快速结果可能缓存在优先级更高的
			// 策略键下，必须一并覆盖，否则下次解析会先命中弱结果
			p.storeResult(strategy, result, parsed)
			if fastResult != nil && lyricscache.NormalizeKey(fastStrategy.Query) != lyricscache.NormalizeKey(strategy.Query) {
				p.storeResult(fastStrategy, result, parsed)
			}
			displayed = lines
			displayedProvider = result.ProviderName
			if !p.emit(ch, gen, Update{
				VideoID:      req.VideoID,
				Lines:        lines,
				PlainText:    plainFallback(result, lines),
				ProviderName: result.ProviderName,
				Upgraded:     fastResult != nil,
			}) {
				return
			}
			if !needUpgrade(displayed) {
				break
			}
		}
	}

	if displayed == nil && fastResult == nil {
		runLogger.Warn().Msg("All strategies and providers exhausted")
		p.emit(ch, gen, Update{VideoID: req.VideoID, Err: ErrNoMatchFound})
		return
	}

	p.augmentTranslation(ctx, gen, req, displayed, displayedProvider, ch, runLogger)
}

// lookup 用每条策略依次调用提供商，返回第一个可用结果。
// 单次调用的失败只是跳过该提供商/策略组合，绝不中止流水线
func (p *Pipeline) lookup(ctx context.Context, gen uint64, api provider.LyricsAPI, strategies []title.SearchStrategy, runLogger zerolog.Logger) (*provider.Result, title.SearchStrategy) {
	for _, s := range strategies {
		if p.stale(gen) || ctx.Err() != nil {
			return nil, title.SearchStrategy{}
		}

		candidates, err := api.Search(ctx, s.Query)
		if err != nil {
			runLogger.Warn().
				Str("provider", api.GetProviderName()).
				Str("strategy", s.Name).
				Err(err).
				Msg("Provider search failed")
			if errors.Is(err, provider.ErrAuthExpired) {
				// 令牌刷新重试后仍失败，跳过整个提供商
				return nil, title.SearchStrategy{}
			}
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		best := match.Best(toScorable(candidates), s.SongHint, s.ArtistHint)
		chosen := candidates[best]

		result, err := api.FetchLyrics(ctx, chosen.ID)
		if err != nil {
			runLogger.Warn().
				Str("provider", api.GetProviderName()).
				Str("track_id", chosen.ID).
				Err(err).
				Msg("Provider fetch failed")
			continue
		}

		runLogger.Info().
			Str("provider", api.GetProviderName()).
			Str("strategy", s.Name).
			Str("track", chosen.TrackName).
			Str("artist", chosen.ArtistName).
			Bool("synced", result.HasSynced()).
			Msg("Got lyrics")
		return result, s
	}
	return nil, title.SearchStrategy{}
}

// storeResult 缓存带同步信息的结果；纯文本结果不缓存
func (p *Pipeline) storeResult(strategy title.SearchStrategy, result *provider.Result, parsed title.ParsedTitle) {
	if result.SyncedText == "" {
		return
	}
	p.cache.Set(strategy.Query, lyricscache.Entry{
		SyncedText:   result.SyncedText,
		ProviderName: result.ProviderName,
		TrackName:    parsed.Song,
		ArtistName:   parsed.Artist,
	})
}

// augmentTranslation 终态之后为缺少翻译的行附加翻译。
// 任何失败都只是留下原行，不影响已展示的歌词
func (p *Pipeline) augmentTranslation(ctx context.Context, gen uint64, req Request, lines []lrc.Line, providerName string, ch chan<- Update, runLogger zerolog.Logger) {
	if p.translator == nil || len(lines) == 0 {
		return
	}

	translatedAny := false
	for i := range lines {
		if p.stale(gen) || ctx.Err() != nil {
			return
		}
		if lines[i].Translation != "" || lines[i].Text == "" {
			continue
		}
		translated, err := p.translator.TranslateText(lines[i].Text)
		if err != nil {
			runLogger.Warn().Err(err).Msg("Translation failed, leaving lines untouched")
			return
		}
		lines[i].Translation = translated
		translatedAny = true
	}
	if !translatedAny {
		return
	}

	p.emit(ch, gen, Update{
		VideoID:      req.VideoID,
		Lines:        lines,
		ProviderName: providerName,
		Translated:   true,
	})
}

// emit 推送更新；该代已失效时丢弃并返回false
func (p *Pipeline) emit(ch chan<- Update, gen uint64, u Update) bool {
	if p.stale(gen) {
		return false
	}
	u.Generation = gen
	ch <- u
	return true
}

// needUpgrade 判断当前展示的歌词是否还需要更精确的版本：
// 没有同步行，或没有真实逐词时间时，值得尝试更丰富的提供商
func needUpgrade(lines []lrc.Line) bool {
	if len(lines) == 0 {
		return true
	}
	for i := range lines {
		if lines[i].HasWordTiming() {
			return false
		}
	}
	return true
}

// richer 升级结果必须严格优于当前展示的结果
func richer(current, candidate []lrc.Line) bool {
	if len(candidate) == 0 {
		return false
	}
	if len(current) == 0 {
		return true
	}
	return !needUpgrade(candidate) && needUpgrade(current)
}

// buildLines 把提供商结果解析为歌词行，合并翻译LRC（如果有）
func buildLines(result *provider.Result) []lrc.Line {
	if result.SyncedText == "" {
		return nil
	}
	lines := lrc.ParseAuto(result.SyncedText)
	if result.TranslatedText != "" {
		lrc.MergeTranslation(lines, lrc.Parse(result.TranslatedText))
	}
	return lines
}

// plainFallback 同步解析失败或没有同步歌词时退回纯文本
func plainFallback(result *provider.Result, lines []lrc.Line) string {
	if len(lines) == 0 {
		return result.PlainText
	}
	return ""
}

func toScorable(candidates []provider.Candidate) []match.Candidate {
	scorable := make([]match.Candidate, len(candidates))
	for i, c := range candidates {
		scorable[i] = match.Candidate{
			TrackName:  c.TrackName,
			ArtistName: c.ArtistName,
			HasSynced:  c.HasSynced,
		}
	}
	return scorable
}
