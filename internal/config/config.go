package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"riffscope/internal/riff"
)

const (
	// 缓存文件常量
	CacheMagic          = "RIDX"
	CacheVersion        = 1
	CacheHeaderSize     = 32
	DefaultCacheDirName = ".riff_cache"

	// 上传检查的最大字节数
	DefaultMaxUploadBytes = 64 << 20 // 64MB

	// movi 默认最大嵌套层数
	DefaultMaxDepth = riff.DefaultMaxDepth
)

// MediaExtensions 目录扫描时识别的文件扩展名
var MediaExtensions = []string{".avi", ".amv", ".divx", ".on2"}

// Config 服务配置
type Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	LibraryPath string `yaml:"library_path"`
	CacheDir    string `yaml:"cache_dir"`

	// Parse 解析选项
	Parse ParseConfig `yaml:"parse"`

	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	Debug          bool  `yaml:"debug"`
}

// ParseConfig 解析严格程度
type ParseConfig struct {
	StrictListTypes bool `yaml:"strict_list_types"`
	StrictFileSize  bool `yaml:"strict_file_size"`
	MaxDepth        int  `yaml:"max_depth"`
}

// Default 返回默认配置
func Default() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		MaxUploadBytes: DefaultMaxUploadBytes,
		Parse: ParseConfig{
			MaxDepth: DefaultMaxDepth,
		},
	}
}

// Load 读取 YAML 配置文件，未出现的字段保留默认值
// path 为空时直接返回默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查字段是否合法
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive: %d", c.MaxUploadBytes))
	}
	if c.Parse.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("parse.max_depth must not be negative: %d", c.Parse.MaxDepth))
	}
	return errors.Join(errs...)
}
