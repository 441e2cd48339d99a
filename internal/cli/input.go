package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctxwin/internal/history"
	"ctxwin/internal/message"
)

// promptFlags are shared by commands that account for a system prompt.
type promptFlags struct {
	system     string
	systemFile string
}

func (p *promptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.system, "system", "", "system prompt text")
	cmd.Flags().StringVar(&p.systemFile, "system-file", "", "read the system prompt from a file")
	cmd.MarkFlagsMutuallyExclusive("system", "system-file")
}

// prompt returns the system prompt from --system or --system-file.
func (p *promptFlags) prompt() (string, error) {
	if p.systemFile == "" {
		return p.system, nil
	}
	data, err := os.ReadFile(p.systemFile)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	return string(data), nil
}

func loadHistory(path string) ([]message.Message, error) {
	msgs, err := history.Load(path)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
