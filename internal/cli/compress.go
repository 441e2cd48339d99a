package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ctxwin/internal/compaction"
	"ctxwin/internal/history"
)

// NewCompressCmd 创建 compress 命令
func NewCompressCmd() *cobra.Command {
	var (
		pf         promptFlags
		strategy   string
		target     int
		keepRecent int
		noSystem   bool
		noSummary  bool
		auto       bool
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "compress <history>",
		Short: "Compress a history to fit a token budget",
		Long: `Compress a history with one of the strategies remove_old, summarize,
truncate or smart. Unset options fall back to the configured defaults.

With --auto the history is only compressed when the context window has
reached the configured compression threshold.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			msgs, err := loadHistory(args[0])
			if err != nil {
				return err
			}
			mgr := cliCtx.Manager()

			var result *compaction.Result
			if auto {
				prompt, err := pf.prompt()
				if err != nil {
					return err
				}
				managed := mgr.AutoManageContext(msgs, prompt)
				result = managed.Result
				if result == nil {
					log := cliCtx.Log()
					log.Info().Msg("below compression threshold, history unchanged")
					result = &compaction.Result{
						Messages:         managed.Messages,
						OriginalTokens:   mgr.Estimator().EstimateMessages(msgs),
						CompressedTokens: mgr.Estimator().EstimateMessages(msgs),
					}
				}
			} else {
				opts := mgr.DefaultOptions()
				if cmd.Flags().Changed("strategy") {
					s, err := compaction.ParseStrategy(strategy)
					if err != nil {
						return err
					}
					opts.Strategy = s
				}
				if cmd.Flags().Changed("target") {
					opts.TargetTokens = target
				}
				if cmd.Flags().Changed("keep-recent") {
					opts.KeepRecentMessages = keepRecent
				}
				opts.KeepSystemMessages = !noSystem
				opts.GenerateSummary = !noSummary

				r := mgr.CompressMessages(msgs, opts)
				result = &r
			}

			if outPath != "" {
				if err := history.Save(outPath, result.Messages); err != nil {
					return fmt.Errorf("write compressed history: %w", err)
				}
			}

			return render(cmd.OutOrStdout(), cliCtx.Output, result, func(w io.Writer) error {
				if result.Strategy != "" {
					fmt.Fprintf(w, "Strategy:   %s\n", result.Strategy)
				}
				fmt.Fprintf(w, "Messages:   %d -> %d (%d removed)\n", len(msgs), len(result.Messages), result.RemovedCount)
				fmt.Fprintf(w, "Tokens:     %d -> %d (%d saved, ratio %.2f)\n",
					result.OriginalTokens, result.CompressedTokens, result.SavedTokens, result.Ratio())
				if result.Summary != nil {
					fmt.Fprintf(w, "Summary of %d messages:\n%s\n", result.Summary.MessageCount, result.Summary.Content)
				}
				if outPath != "" {
					fmt.Fprintf(w, "Written to  %s\n", outPath)
				}
				return nil
			})
		},
	}

	pf.register(cmd)
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "compression strategy: remove_old, summarize, truncate, smart")
	cmd.Flags().IntVarP(&target, "target", "t", 0, "target token budget")
	cmd.Flags().IntVarP(&keepRecent, "keep-recent", "k", 0, "number of recent messages always kept")
	cmd.Flags().BoolVar(&noSystem, "no-system", false, "do not pin system messages")
	cmd.Flags().BoolVar(&noSummary, "no-summary", false, "drop old messages without summarizing them")
	cmd.Flags().BoolVar(&auto, "auto", false, "compress only when the configured threshold is reached")
	cmd.Flags().StringVar(&outPath, "out", "", "write the compressed history to this file (.json, .jsonl, .yaml)")
	cmd.MarkFlagsMutuallyExclusive("auto", "strategy")
	cmd.MarkFlagsMutuallyExclusive("auto", "target")

	return cmd
}
