package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "1s"/"500ms" 字符串写法的时长，裸数字按毫秒解释
type Duration time.Duration

// Std 转换为标准库时长
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("非法的时长 %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := node.Decode(&n); err != nil {
		return fmt.Errorf("非法的时长节点: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Millisecond)
	return nil
}

type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Upload   UploadConfig   `yaml:"upload" mapstructure:"upload"`
	Web      WebConfig      `yaml:"web" mapstructure:"web"`
}

type ServerConfig struct {
	IP   string `yaml:"ip" mapstructure:"ip"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
}

type WebConfig struct {
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// RedisConfig 可选的分析记录读缓存，addr 为空时禁用
type RedisConfig struct {
	Addr     string   `yaml:"addr" mapstructure:"addr"`
	Username string   `yaml:"username,omitempty" mapstructure:"username"`
	Password string   `yaml:"password,omitempty" mapstructure:"password"`
	DB       int      `yaml:"db,omitempty" mapstructure:"db"`
	Prefix   string   `yaml:"prefix,omitempty" mapstructure:"prefix"`
	TTL      Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ModelConfig 生成式模型调用配置
type ModelConfig struct {
	Provider    string   `yaml:"provider" mapstructure:"provider"` // openai / gemini
	ModelName   string   `yaml:"model_name" mapstructure:"model_name"`
	BaseURL     string   `yaml:"url" mapstructure:"url"`
	APIKey      string   `yaml:"api_key" mapstructure:"api_key"`
	Temperature float64  `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int      `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay" mapstructure:"base_delay"`
}

type UploadConfig struct {
	Dir            string   `yaml:"dir" mapstructure:"dir"`
	MaxFileSize    int64    `yaml:"max_file_size" mapstructure:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels" mapstructure:"max_pixels"`
	MaxWidth       int      `yaml:"max_width" mapstructure:"max_width"`
	MaxHeight      int      `yaml:"max_height" mapstructure:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats" mapstructure:"allowed_formats"`
	EnableDeepScan bool     `yaml:"enable_deep_scan" mapstructure:"enable_deep_scan"`
}
