package config

import (
	"github.com/spf13/viper"
)

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	// Context 配置
	viper.SetDefault("context.max_tokens", 200000)
	viper.SetDefault("context.tool_output_reserve_ratio", 0.2)
	viper.SetDefault("context.compression_threshold", 0.8)
	viper.SetDefault("context.default_compression_strategy", "smart")
	viper.SetDefault("context.keep_recent_messages", 10)
	viper.SetDefault("context.tokens_per_char", 0.25)
	viper.SetDefault("context.target_compression_ratio", 0.5)

	// Fragments 配置
	viper.SetDefault("fragments.max_fragments", 3)
	viper.SetDefault("fragments.max_lines_per_fragment", 50)

	// Log 配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")
}
