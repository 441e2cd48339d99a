package cli

import (
	"sync"

	"github.com/rs/zerolog"

	"ctxwin/internal/config"
	ctxmgr "ctxwin/internal/context"
	"ctxwin/pkg/logger"
)

// CLIContext CLI 上下文
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Output     OutputFormat
	Verbose    bool
	Quiet      bool

	managerOnce sync.Once
	manager     *ctxmgr.Manager
}

// NewCLIContext 创建 CLI 上下文
func NewCLIContext(cfg *config.Config, configPath string, output OutputFormat, verbose, quiet bool) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Output:     output,
		Verbose:    verbose,
		Quiet:      quiet,
	}
}

// Manager 获取上下文管理器（懒加载）
func (c *CLIContext) Manager() *ctxmgr.Manager {
	c.managerOnce.Do(func() {
		c.manager = ctxmgr.NewManager(c.Config.ManagerConfig(), ctxmgr.WithLogger(logger.For("context")))
	})
	return c.manager
}

// Log 获取 Logger
func (c *CLIContext) Log() zerolog.Logger {
	return logger.For("cli")
}

// Close 关闭资源
func (c *CLIContext) Close() error {
	return logger.Close()
}
