package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricsync/internal/config"
	"lyricsync/internal/ipc"
	"lyricsync/internal/lrc"
	"lyricsync/internal/lyricscache"
	"lyricsync/internal/pipeline"
	"lyricsync/internal/player"
	playsync "lyricsync/internal/sync"
	"lyricsync/internal/title"
)

// statusEvent 解析状态广播
type statusEvent struct {
	Type    string `json:"type"` // "status"
	VideoID string `json:"video_id"`
	State   string `json:"state"` // resolving / not_found / error
	Message string `json:"message,omitempty"`
}

// lyricsEvent 歌词内容广播，升级和翻译结果会再次推送
type lyricsEvent struct {
	Type       string     `json:"type"` // "lyrics"
	VideoID    string     `json:"video_id"`
	Provider   string     `json:"provider"`
	FromCache  bool       `json:"from_cache"`
	Upgraded   bool       `json:"upgraded"`
	Translated bool       `json:"translated"`
	Lines      []lrc.Line `json:"lines,omitempty"`
	PlainText  string     `json:"plain_text,omitempty"`
}

// syncEvent 播放同步广播，仅在当前行/词变化时发出
type syncEvent struct {
	Type             string `json:"type"` // "sync"
	VideoID          string `json:"video_id"`
	CurrentIndex     int    `json:"current_index"`
	CurrentWordIndex int    `json:"current_word_index"`
	Text             string `json:"text"`
	Translation      string `json:"translation,omitempty"`
	Discontinuity    bool   `json:"discontinuity,omitempty"`
}

type App struct {
	cfg       *config.Config
	ipcServer *ipc.Server
	pipeline  *pipeline.Pipeline
	cache     *lyricscache.Cache

	mutex         sync.Mutex
	currentVideo  string
	sessionCancel context.CancelFunc
	synchronizer  *playsync.Synchronizer
	delay         float64
}

func New(cfg *config.Config) *App {
	// 设置 zerolog 的全局配置
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cache := buildCache(cfg)

	opts := []pipeline.Option{}
	if aiClient := buildAIClient(cfg); aiClient != nil {
		opts = append(opts, pipeline.WithAIExtractor(title.NewAIExtractor(aiClient)))
	}
	if translator := buildTranslator(cfg); translator != nil {
		opts = append(opts, pipeline.WithTranslator(translator))
	}

	a := &App{
		cfg:      cfg,
		pipeline: pipeline.New(buildProviders(), cache, opts...),
		cache:    cache,
		delay:    cfg.Sync.Delay,
	}
	a.ipcServer = ipc.NewServer(cfg.App.SocketPath, a)
	return a
}

func (a *App) Run() {
	if err := os.MkdirAll(a.cfg.App.CacheDir, 0755); err != nil {
		log.Fatal().Err(err).Str("cache_dir", a.cfg.App.CacheDir).Msg("Failed to create cache directory")
	}
	log.Info().Str("cache_dir", a.cfg.App.CacheDir).Msg("Lyrics cache directory")

	if err := a.ipcServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start IPC server")
	}
	defer a.ipcServer.Close()

	stopPlayer := make(chan struct{})
	if a.cfg.App.CheckInterval > 0 {
		go a.playerLoop(stopPlayer)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	close(stopPlayer)

	a.mutex.Lock()
	if a.sessionCancel != nil {
		a.sessionCancel()
	}
	a.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.cache.Close(ctx)
}

// playerLoop 本地播放器轮询：用playerctl做曲目检测和进度tick，
// 让没有外部宿主的场景也能驱动同步
func (a *App) playerLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", a.cfg.App.CheckInterval).Msg("Starting player check loop...")
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		track, err := player.NowPlaying()
		if err != nil {
			continue
		}

		a.HandleCommand(ipc.Command{
			Cmd:     "track",
			Title:   track.Title,
			Channel: track.Artist,
			VideoID: track.ID(),
		})
		if pos, err := player.Position(); err == nil {
			a.HandleCommand(ipc.Command{Cmd: "tick", Position: pos})
		}
	}
}

// HandleCommand 实现ipc.Handler，所有客户端指令的入口
func (a *App) HandleCommand(cmd ipc.Command) {
	switch cmd.Cmd {
	case "track":
		a.onTrack(cmd)
	case "tick":
		a.onTick(cmd.Position, false)
	case "seek":
		a.onSeek(cmd.Position)
	case "delay":
		a.onDelay(cmd.Delay)
	default:
		log.Warn().Str("cmd", cmd.Cmd).Msg("Unknown command")
	}
}

func (a *App) onTrack(cmd ipc.Command) {
	a.mutex.Lock()
	if cmd.VideoID == a.currentVideo {
		a.mutex.Unlock()
		return
	}
	log.Info().Msg("-----------------------------------------------------")
	log.Info().Str("video_id", cmd.VideoID).Str("title", cmd.Title).Msg("New track detected")
	a.currentVideo = cmd.VideoID
	a.synchronizer = nil

	// 切换曲目立即取消上一个会话，在途的解析结果作废
	if a.sessionCancel != nil {
		a.sessionCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.sessionCancel = cancel
	a.mutex.Unlock()

	a.ipcServer.Broadcast(statusEvent{Type: "status", VideoID: cmd.VideoID, State: "resolving"})

	updates := a.pipeline.Resolve(ctx, pipeline.Request{
		Title:    cmd.Title,
		Channel:  cmd.Channel,
		VideoID:  cmd.VideoID,
		Duration: cmd.Duration,
	})
	go a.consumeUpdates(cmd.VideoID, updates)
}

// consumeUpdates 消费一次解析的更新流直到结束。
// 每条有歌词的更新都重建同步器并广播给客户端
func (a *App) consumeUpdates(videoID string, updates <-chan pipeline.Update) {
	for u := range updates {
		if u.Err != nil {
			log.Warn().Err(u.Err).Str("video_id", videoID).Msg("Resolution failed")
			a.ipcServer.Broadcast(statusEvent{
				Type:    "status",
				VideoID: videoID,
				State:   "not_found",
				Message: u.Err.Error(),
			})
			continue
		}

		a.mutex.Lock()
		if videoID != a.currentVideo {
			a.mutex.Unlock()
			return
		}
		if len(u.Lines) > 0 {
			a.synchronizer = playsync.New(u.Lines, a.delay)
		}
		a.mutex.Unlock()

		a.ipcServer.Broadcast(lyricsEvent{
			Type:       "lyrics",
			VideoID:    videoID,
			Provider:   u.ProviderName,
			FromCache:  u.FromCache,
			Upgraded:   u.Upgraded,
			Translated: u.Translated,
			Lines:      u.Lines,
			PlainText:  u.PlainText,
		})
	}
}

// onTick 驱动同步器一步。Tick会修改同步器内部状态，而tick既来自
// 本地播放器轮询goroutine也来自各IPC连接，必须全程持锁串行化
func (a *App) onTick(position float64, discontinuity bool) {
	a.mutex.Lock()
	s := a.synchronizer
	if s == nil {
		a.mutex.Unlock()
		return
	}
	if discontinuity {
		s.Seek()
	}

	ev := s.Tick(position)
	if ev == nil {
		a.mutex.Unlock()
		return
	}

	out := syncEvent{
		Type:             "sync",
		VideoID:          a.currentVideo,
		CurrentIndex:     ev.CurrentIndex,
		CurrentWordIndex: ev.CurrentWordIndex,
		Discontinuity:    ev.Discontinuity,
	}
	if ev.CurrentIndex >= 0 {
		lines := s.Lines()
		out.Text = lines[ev.CurrentIndex].Text
		out.Translation = lines[ev.CurrentIndex].Translation
	}
	a.mutex.Unlock()

	a.ipcServer.Broadcast(out)
}

func (a *App) onSeek(position float64) {
	a.onTick(position, true)
}

func (a *App) onDelay(delay float64) {
	a.mutex.Lock()
	a.delay = delay
	if a.synchronizer != nil {
		a.synchronizer.SetDelay(delay)
	}
	a.mutex.Unlock()
	log.Info().Float64("delay", delay).Msg("Sync delay updated")
}
