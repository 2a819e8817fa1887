package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		Database: DatabaseConfig{
			Path: "data/dermalens.db",
		},
		Redis: RedisConfig{
			Prefix: "dermalens:",
			TTL:    Duration(5 * time.Minute),
		},
		Model: ModelConfig{
			Provider:    "gemini",
			ModelName:   "gemini-2.0-flash",
			Temperature: 0.4,
			MaxTokens:   2048,
			MaxAttempts: 3,
			BaseDelay:   Duration(time.Second),
		},
		Upload: UploadConfig{
			Dir:            "data/uploads",
			MaxFileSize:    10 * 1024 * 1024, // 10MB
			MaxPixels:      16777216,         // 16M pixels
			MaxWidth:       4096,
			MaxHeight:      4096,
			AllowedFormats: []string{"jpeg", "jpg", "png", "webp", "gif"},
			EnableDeepScan: true,
		},
	}
}
