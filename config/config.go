package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Upload UploadConfig `mapstructure:"upload"`
	Keying KeyingConfig `mapstructure:"keying"`
	Batch  BatchConfig  `mapstructure:"batch"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// KeyingConfig 去背默认参数，请求未指定时使用
type KeyingConfig struct {
	Mode          string        `mapstructure:"mode"`
	TargetColor   string        `mapstructure:"target_color"`
	Tolerance     float64       `mapstructure:"tolerance"`
	ErodeStrength int           `mapstructure:"erode_strength"`
	MaxSide       int           `mapstructure:"max_side"`
	// KeepAlpha 输入已带透明通道时原样保留，不再去背
	KeepAlpha     bool          `mapstructure:"keep_alpha"`
	Trim          bool          `mapstructure:"trim"`
	Premultiply   bool          `mapstructure:"premultiply"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
}

type BatchConfig struct {
	InputDir  string `mapstructure:"input_dir"`
	OutputDir string `mapstructure:"output_dir"`
	// Schedule cron 表达式，为空时只执行一次
	Schedule string `mapstructure:"schedule"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 加载失败时返回默认配置
func New(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.allowed_types", d.Upload.AllowedTypes)

	v.SetDefault("keying.mode", d.Keying.Mode)
	v.SetDefault("keying.target_color", d.Keying.TargetColor)
	v.SetDefault("keying.tolerance", d.Keying.Tolerance)
	v.SetDefault("keying.erode_strength", d.Keying.ErodeStrength)
	v.SetDefault("keying.max_side", d.Keying.MaxSide)
	v.SetDefault("keying.keep_alpha", d.Keying.KeepAlpha)
	v.SetDefault("keying.trim", d.Keying.Trim)
	v.SetDefault("keying.premultiply", d.Keying.Premultiply)
	v.SetDefault("keying.max_concurrent", d.Keying.MaxConcurrent)
	v.SetDefault("keying.queue_timeout", d.Keying.QueueTimeout)

	v.SetDefault("batch.input_dir", d.Batch.InputDir)
	v.SetDefault("batch.output_dir", d.Batch.OutputDir)
	v.SetDefault("batch.schedule", d.Batch.Schedule)
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg", "image/webp", "image/bmp", "image/gif"},
		},
		Keying: KeyingConfig{
			Mode:          "flood",
			TargetColor:   "#00FF00",
			Tolerance:     30,
			ErodeStrength: 1,
			MaxSide:       0,
			MaxConcurrent: 4,
			QueueTimeout:  30 * time.Second,
		},
		Batch: BatchConfig{
			InputDir:  "./input",
			OutputDir: "./output",
		},
	}
}
