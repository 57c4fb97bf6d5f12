package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Bot      BotConfig      `mapstructure:"bot"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains the health-check HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	Dir            string        `mapstructure:"dir"`
	MaxFileSize    int64         `mapstructure:"max_file_size"` // bytes
	Timeout        time.Duration `mapstructure:"timeout"`       // wall clock per request
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
}

// EngineConfig contains extraction-engine configuration
type EngineConfig struct {
	CookieFile    string `mapstructure:"cookie_file"`
	MaxHeight     int    `mapstructure:"max_height"`    // maximum video resolution
	AudioFormat   string `mapstructure:"audio_format"`  // target audio container
	AudioBitrate  string `mapstructure:"audio_bitrate"` // e.g. 192K
	WriteMetadata bool   `mapstructure:"write_metadata"`
}

// BotConfig contains Telegram bot configuration
type BotConfig struct {
	Token          string        `mapstructure:"token"`
	AdminID        int64         `mapstructure:"admin_id"`
	LogChannelID   int64         `mapstructure:"log_channel_id"`
	FreeDailyQuota int           `mapstructure:"free_daily_quota"`
	MessageEvery   time.Duration `mapstructure:"message_every"` // per-user rate limit
}

// StoreConfig contains the user store configuration
type StoreConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Download: DownloadConfig{
			Dir:            "downloads",
			MaxFileSize:    49 * 1024 * 1024, // Telegram bot upload ceiling
			Timeout:        5 * time.Minute,
			WorkerPoolSize: 2,
		},
		Engine: EngineConfig{
			CookieFile:    "cookies.txt",
			MaxHeight:     1080,
			AudioFormat:   "m4a",
			AudioBitrate:  "192K",
			WriteMetadata: false,
		},
		Bot: BotConfig{
			FreeDailyQuota: 10,
			MessageEvery:   3 * time.Second,
		},
		Store: StoreConfig{
			DatabasePath: "data/users.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
