package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ctxwin/internal/config"
	"ctxwin/pkg/logger"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	Output     string
}

// contextKey CLI 上下文键
type contextKey struct{}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	var flags GlobalFlags

	rootCmd := &cobra.Command{
		Use:   "ctxwin",
		Short: "ctxwin - context window management for LLM conversations",
		Long: `ctxwin measures, compresses and summarizes LLM conversation histories
so that they fit a model's context window, and extracts the parts of
source files that are relevant to a query.

Histories are read from .json, .jsonl or .yaml files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 跳过 version 和 help 命令的初始化
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}

			format, err := parseOutputFormat(flags.Output)
			if err != nil {
				return err
			}

			configPath := flags.ConfigPath
			if configPath == "" {
				configPath, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logCfg := cfg.Log.Logger()
			if flags.Verbose {
				logCfg.Level = "debug"
			}
			if flags.Quiet {
				logCfg.Level = "error"
			}
			if err := logger.Init(logCfg, cmd.ErrOrStderr()); err != nil {
				return err
			}

			cliCtx := NewCLIContext(cfg, configPath, format, flags.Verbose, flags.Quiet)
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				return cliCtx.Close()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "config file path (default ~/.ctxwin/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "quiet mode")
	rootCmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", string(OutputAuto), "output format: auto, text, json, yaml")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewCountCmd())
	rootCmd.AddCommand(NewStateCmd())
	rootCmd.AddCommand(NewScoreCmd())
	rootCmd.AddCommand(NewSummarizeCmd())
	rootCmd.AddCommand(NewCompressCmd())
	rootCmd.AddCommand(NewFragmentsCmd())
	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}

// GetCLIContext 从命令上下文获取 CLI 上下文
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cliCtx, ok := ctx.Value(contextKey{}).(*CLIContext)
	if !ok {
		return nil
	}
	return cliCtx
}

// mustCLIContext returns the CLI context or an error when the root pre-run did not run.
func mustCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cliCtx := GetCLIContext(cmd)
	if cliCtx == nil {
		return nil, fmt.Errorf("CLI context not initialized")
	}
	return cliCtx, nil
}
