package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ctxwin/internal/compaction"
	ctxmgr "ctxwin/internal/context"
	"ctxwin/internal/fragment"
	"ctxwin/pkg/logger"
)

// Config 是应用配置的根结构体
type Config struct {
	Context   ContextConfig   `mapstructure:"context" yaml:"context"`
	Fragments FragmentsConfig `mapstructure:"fragments" yaml:"fragments"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ContextConfig 上下文窗口与压缩配置
type ContextConfig struct {
	MaxTokens                  int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	ToolOutputReserveRatio     float64 `mapstructure:"tool_output_reserve_ratio" yaml:"tool_output_reserve_ratio"`
	CompressionThreshold       float64 `mapstructure:"compression_threshold" yaml:"compression_threshold"`
	DefaultCompressionStrategy string  `mapstructure:"default_compression_strategy" yaml:"default_compression_strategy"`
	KeepRecentMessages         int     `mapstructure:"keep_recent_messages" yaml:"keep_recent_messages"`
	TokensPerChar              float64 `mapstructure:"tokens_per_char" yaml:"tokens_per_char"`
	TargetCompressionRatio     float64 `mapstructure:"target_compression_ratio" yaml:"target_compression_ratio"` // 压缩目标占 max_tokens 的比例
}

// FragmentsConfig 文件片段提取配置
type FragmentsConfig struct {
	MaxFragments        int `mapstructure:"max_fragments" yaml:"max_fragments"`
	MaxLinesPerFragment int `mapstructure:"max_lines_per_fragment" yaml:"max_lines_per_fragment"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// Logger 转换为 logger 包的配置
func (c LogConfig) Logger() logger.LogConfig {
	return logger.LogConfig{Level: c.Level, Format: c.Format, File: c.File}
}

// ManagerConfig 转换为上下文管理器配置
func (c *Config) ManagerConfig() ctxmgr.Config {
	strategy, err := compaction.ParseStrategy(c.Context.DefaultCompressionStrategy)
	if err != nil {
		strategy = compaction.StrategySmart
	}
	return ctxmgr.Config{
		MaxTokens:                  c.Context.MaxTokens,
		ToolOutputReserveRatio:     c.Context.ToolOutputReserveRatio,
		CompressionThreshold:       c.Context.CompressionThreshold,
		DefaultCompressionStrategy: strategy,
		KeepRecentMessages:         c.Context.KeepRecentMessages,
		TokensPerChar:              c.Context.TokensPerChar,
		TargetCompressionRatio:     c.Context.TargetCompressionRatio,
		Fragments: fragment.Options{
			MaxFragments:        c.Fragments.MaxFragments,
			MaxLinesPerFragment: c.Fragments.MaxLinesPerFragment,
		},
	}
}

// Validate 校验配置取值范围，所有问题合并为一个 ErrInvalidConfig
func (c *Config) Validate() error {
	var problems []string

	if c.Context.MaxTokens <= 0 {
		problems = append(problems, "context.max_tokens must be positive")
	}
	ratios := []struct {
		key   string
		value float64
	}{
		{"context.tool_output_reserve_ratio", c.Context.ToolOutputReserveRatio},
		{"context.compression_threshold", c.Context.CompressionThreshold},
		{"context.target_compression_ratio", c.Context.TargetCompressionRatio},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0,1], got %g", r.key, r.value))
		}
	}
	if _, err := compaction.ParseStrategy(c.Context.DefaultCompressionStrategy); err != nil {
		problems = append(problems, fmt.Sprintf("context.default_compression_strategy: %v", err))
	}
	if c.Context.KeepRecentMessages < 0 {
		problems = append(problems, "context.keep_recent_messages must not be negative")
	}
	if c.Context.TokensPerChar <= 0 {
		problems = append(problems, "context.tokens_per_char must be positive")
	}
	if c.Fragments.MaxFragments <= 0 {
		problems = append(problems, "fragments.max_fragments must be positive")
	}
	if c.Fragments.MaxLinesPerFragment <= 0 {
		problems = append(problems, "fragments.max_lines_per_fragment must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

var (
	configPath string
	mu         sync.RWMutex
)

// Load 加载配置文件
// 优先级: ENV > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	SetDefaults()

	viper.SetEnvPrefix("CTXWIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		expandedPath, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		configPath = expandedPath

		viper.SetConfigFile(expandedPath)
		if err := viper.ReadInConfig(); err != nil {
			// 配置文件不存在时使用默认值
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", expandedPath, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Get 获取配置项的生效值，未知键返回 nil
func Get(key string) any {
	mu.RLock()
	defer mu.RUnlock()
	return viper.Get(key)
}

// Keys 返回所有已知配置键（按字母排序）
func Keys() []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}

// Set 设置配置值并校验，已加载配置文件时持久化
// 校验失败时恢复原值
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()

	key = strings.ToLower(key)
	if !slices.Contains(viper.AllKeys(), key) {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, key)
	}

	prev := viper.Get(key)
	viper.Set(key, value)

	var cfg Config
	err := viper.Unmarshal(&cfg)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		viper.Set(key, prev)
		return err
	}

	if configPath != "" {
		return save()
	}
	return nil
}

// Save 保存配置到文件
func Save() error {
	mu.Lock()
	defer mu.Unlock()
	return save()
}

// save 内部保存函数，调用者需要持有锁
func save() error {
	if configPath == "" {
		return errors.New("config path not set")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0600)
}

// SaveTo 保存配置到指定路径
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Reset 重置配置（主要用于测试）
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	configPath = ""
	viper.Reset()
}
