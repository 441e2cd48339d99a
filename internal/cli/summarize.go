package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewSummarizeCmd 创建 summarize 命令
func NewSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <history>",
		Short: "Produce an extractive summary of a history",
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

			summary := cliCtx.Manager().GenerateSummary(msgs)
			return render(cmd.OutOrStdout(), cliCtx.Output, summary, func(w io.Writer) error {
				fmt.Fprintf(w, "%d messages, %d tokens -> %d tokens\n\n", summary.MessageCount, summary.OriginalTokens, summary.SummaryTokens)
				if summary.Content == "" {
					fmt.Fprintln(w, "(nothing to summarize)")
					return nil
				}
				fmt.Fprintln(w, summary.Content)
				return nil
			})
		},
	}
}
