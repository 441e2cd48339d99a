package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewStateCmd 创建 state 命令
func NewStateCmd() *cobra.Command {
	var pf promptFlags

	cmd := &cobra.Command{
		Use:   "state <history>",
		Short: "Show how full the context window is",
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

			state := cliCtx.Manager().GetContextWindowState(msgs, prompt)
			return render(cmd.OutOrStdout(), cliCtx.Output, state, func(w io.Writer) error {
				fmt.Fprintf(w, "Used:       %d / %d tokens (%.1f%%)\n", state.UsedTokens, state.MaxTokens, state.UsagePercent)
				fmt.Fprintf(w, "Reserve:    %d tokens for tool output\n", state.ToolOutputReserve)
				if state.NeedsCompression {
					fmt.Fprintln(w, "Status:     near limit, compression needed")
				} else {
					fmt.Fprintln(w, "Status:     ok")
				}
				return nil
			})
		},
	}

	pf.register(cmd)
	return cmd
}
