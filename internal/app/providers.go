package app

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"lyricsync/internal/config"
	"lyricsync/internal/lyricscache"
	"lyricsync/pkg/ai"
	"lyricsync/pkg/ai/gemini"
	"lyricsync/pkg/ai/openai"
	"lyricsync/pkg/lrclib"
	"lyricsync/pkg/musixmatch"
	"lyricsync/pkg/netease"
	"lyricsync/pkg/provider"
	"lyricsync/pkg/redis"
	"lyricsync/pkg/translate"
)

// buildProviders 按优先级组装歌词提供商。
// lrclib最快作为主提供商，musixmatch歌词最丰富，netease兜底
func buildProviders() []provider.LyricsAPI {
	return []provider.LyricsAPI{
		lrclib.NewClient(),
		musixmatch.NewClient(),
		netease.NewClient(),
	}
}

// buildCache 创建歌词缓存：Redis可用时用Redis持久化，
// 否则降级为缓存目录下的本地文件
func buildCache(cfg *config.Config) *lyricscache.Cache {
	var store lyricscache.Store

	redisClient, err := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err == nil {
		store = lyricscache.NewRedisStore(redisClient)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis cache store")
	} else {
		log.Warn().Err(err).Msg("Redis unavailable, falling back to file cache store")
		fileStore, ferr := lyricscache.NewFileStore(filepath.Join(cfg.App.CacheDir, "lyrics_cache.json"))
		if ferr != nil {
			log.Warn().Err(ferr).Msg("File cache store unavailable, cache is memory-only")
		} else {
			store = fileStore
		}
	}

	return lyricscache.New(context.Background(),
		lyricscache.WithTTL(cfg.Cache.TTL),
		lyricscache.WithMaxSize(cfg.Cache.MaxSize),
		lyricscache.WithDebounce(cfg.Cache.Debounce),
		lyricscache.WithStore(store),
	)
}

// buildAIClient 按配置创建AI客户端，未配置时返回nil
func buildAIClient(cfg *config.Config) ai.AiInterface {
	if cfg.AI.APIKey == "" {
		return nil
	}

	switch cfg.AI.ModuleName {
	case "gemini":
		return gemini.NewGemini(cfg.AI.APIKey, "gemini-2.0-flash")
	case "openai":
		return openai.NewOpenAi(cfg.AI.APIKey, "gpt-4o-mini", cfg.AI.BaseURL)
	default:
		log.Warn().Str("module", cfg.AI.ModuleName).Msg("Unknown AI module, title extraction disabled")
		return nil
	}
}

// buildTranslator 按配置创建腾讯云翻译客户端，未配置时返回nil
func buildTranslator(cfg *config.Config) translate.Translator {
	if cfg.Translate.SecretID == "" || cfg.Translate.SecretKey == "" {
		return nil
	}
	client, err := translate.NewClient(cfg.Translate.SecretID, cfg.Translate.SecretKey)
	if err != nil {
		log.Warn().Err(err).Msg("Translator unavailable")
		return nil
	}
	return client
}
