package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSocketPath    = "/tmp/lyricsync.sock"
	DefaultCheckInterval = 1 * time.Second
	DefaultCacheTTL      = 30 * 24 * time.Hour
	DefaultCacheMaxSize  = 500
	DefaultCacheDebounce = 2 * time.Second
)

func getDefaultCacheDir() string {
	// 优先使用 XDG_CACHE_HOME 环境变量
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyricsync")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// 如果获取不到用户主目录，回退到当前目录
		return "lyricsync_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyricsync")
}

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		CheckInterval string `toml:"check_interval"`
		CacheDir      string `toml:"cache_dir"`
	} `toml:"app"`

	Cache struct {
		TTL      string `toml:"ttl"`
		MaxSize  int    `toml:"max_size"`
		Debounce string `toml:"debounce"`
	} `toml:"cache"`

	AI struct {
		ModuleName string `toml:"module_name"`
		APIKey     string `toml:"api_key"`
		BaseURL    string `toml:"base_url"` // for OpenAI
	} `toml:"ai"`

	Translate struct {
		SecretID  string `toml:"secret_id"`
		SecretKey string `toml:"secret_key"`
	} `toml:"translate"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Sync struct {
		Delay float64 `toml:"delay"`
	} `toml:"sync"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	CacheDir      string
}

// CacheConfig 歌词缓存配置
type CacheConfig struct {
	TTL      time.Duration
	MaxSize  int
	Debounce time.Duration
}

// AIConfig AI配置
type AIConfig struct {
	ModuleName string
	APIKey     string
	BaseURL    string
}

// TranslateConfig 腾讯云翻译配置
type TranslateConfig struct {
	SecretID  string
	SecretKey string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SyncConfig 播放同步配置
type SyncConfig struct {
	Delay float64 // 秒，可为负
}

// Config 主配置结构
type Config struct {
	App       AppConfig
	Cache     CacheConfig
	AI        AIConfig
	Translate TranslateConfig
	Redis     RedisConfig
	Sync      SyncConfig
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyricsync", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml" // 回退到当前目录
	}

	return filepath.Join(homeDir, ".config", "lyricsync", "config.toml")
}

// loadTomlConfig 加载TOML配置文件
func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

func Load() *Config {
	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	// 设置默认值
	config := &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			CacheDir:      getDefaultCacheDir(),
		},
		Cache: CacheConfig{
			TTL:      DefaultCacheTTL,
			MaxSize:  DefaultCacheMaxSize,
			Debounce: DefaultCacheDebounce,
		},
		AI: AIConfig{
			ModuleName: "gemini",
			APIKey:     "",
			BaseURL:    "",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		Sync: SyncConfig{
			Delay: 0,
		},
	}

	// 从TOML配置中覆盖App设置
	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}

	if tomlConfig.App.CheckInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.CheckInterval); err == nil {
			config.App.CheckInterval = duration
		} else {
			log.Printf("WARN: Invalid check_interval format '%s', using default", tomlConfig.App.CheckInterval)
		}
	}

	if tomlConfig.App.CacheDir != "" {
		config.App.CacheDir = tomlConfig.App.CacheDir
	}

	// 从TOML配置中覆盖缓存设置
	if tomlConfig.Cache.TTL != "" {
		if duration, err := time.ParseDuration(tomlConfig.Cache.TTL); err == nil {
			config.Cache.TTL = duration
		} else {
			log.Printf("WARN: Invalid cache ttl format '%s', using default", tomlConfig.Cache.TTL)
		}
	}

	if tomlConfig.Cache.MaxSize > 0 {
		config.Cache.MaxSize = tomlConfig.Cache.MaxSize
	}

	if tomlConfig.Cache.Debounce != "" {
		if duration, err := time.ParseDuration(tomlConfig.Cache.Debounce); err == nil {
			config.Cache.Debounce = duration
		} else {
			log.Printf("WARN: Invalid cache debounce format '%s', using default", tomlConfig.Cache.Debounce)
		}
	}

	// 从TOML配置中覆盖AI设置
	if tomlConfig.AI.ModuleName != "" {
		config.AI.ModuleName = tomlConfig.AI.ModuleName
	}

	if tomlConfig.AI.BaseURL != "" {
		config.AI.BaseURL = tomlConfig.AI.BaseURL
	}

	if tomlConfig.AI.APIKey != "" {
		config.AI.APIKey = tomlConfig.AI.APIKey
	}

	// 从TOML配置中覆盖翻译设置
	if tomlConfig.Translate.SecretID != "" {
		config.Translate.SecretID = tomlConfig.Translate.SecretID
	}

	if tomlConfig.Translate.SecretKey != "" {
		config.Translate.SecretKey = tomlConfig.Translate.SecretKey
	}

	// 从TOML配置中覆盖Redis设置
	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}

	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}

	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}

	if tomlConfig.Sync.Delay != 0 {
		config.Sync.Delay = tomlConfig.Sync.Delay
	}

	if config.AI.APIKey == "" {
		log.Println("INFO: No AI API key configured, title extraction will use heuristics only")
	}

	return config
}
