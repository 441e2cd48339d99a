package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewCountCmd 创建 count 命令
func NewCountCmd() *cobra.Command {
	var pf promptFlags

	cmd := &cobra.Command{
		Use:   "count <history>",
		Short: "Estimate the tokens used by a history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			msgs, err := loadHistory(args[0])
			if err != nil {
				return err
			}
			prompt, err := pf.prompt()
			if err != nil {
				return err
			}

			count := cliCtx.Manager().CountTokens(msgs, prompt)
			return render(cmd.OutOrStdout(), cliCtx.Output, count, func(w io.Writer) error {
				fmt.Fprintf(w, "Messages:       %d (%d messages)\n", count.Messages, len(msgs))
				fmt.Fprintf(w, "System prompt:  %d\n", count.SystemPrompt)
				fmt.Fprintf(w, "Total:          %d\n", count.Total)
				fmt.Fprintf(w, "Tool reserve:   %d\n", count.ToolOutputReserve)
				fmt.Fprintf(w, "Available:      %d\n", count.Available)
				return nil
			})
		},
	}

	pf.register(cmd)
	return cmd
}
