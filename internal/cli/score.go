package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ctxwin/internal/compaction"
	"ctxwin/internal/message"
)

// scoreRow is the printed form of a scored message.
type scoreRow struct {
	ID         string                `json:"id"`
	Role       message.Role          `json:"role"`
	Score      int                   `json:"score"`
	Importance compaction.Importance `json:"importance"`
	Tokens     int                   `json:"tokens"`
}

// NewScoreCmd 创建 score 命令
func NewScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <history>",
		Short: "Score every message of a history by importance",
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

			scored := cliCtx.Manager().ScoreMessages(msgs)
			rows := make([]scoreRow, len(scored))
			for i, s := range scored {
				rows[i] = scoreRow{
					ID:         s.Message.ID,
					Role:       s.Message.Role,
					Score:      s.Score,
					Importance: s.Importance,
					Tokens:     s.EstimatedTokens,
				}
			}

			return render(cmd.OutOrStdout(), cliCtx.Output, rows, func(w io.Writer) error {
				fmt.Fprintf(w, "%-5s %-38s %-10s %-6s %-9s %s\n", "#", "ID", "Role", "Score", "Tier", "Tokens")
				for i, r := range rows {
					fmt.Fprintf(w, "%-5d %-38s %-10s %-6d %-9s %d\n", i, r.ID, r.Role, r.Score, r.Importance, r.Tokens)
				}
				return nil
			})
		},
	}
}
