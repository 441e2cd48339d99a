package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ctxwin/internal/fragment"
	"ctxwin/internal/watch"
)

// NewFragmentsCmd 创建 fragments 命令
func NewFragmentsCmd() *cobra.Command {
	var (
		query    string
		maxFrags int
		maxLines int
		watching bool
	)

	cmd := &cobra.Command{
		Use:   "fragments <file>",
		Short: "Extract the parts of a file relevant to a query",
		Long: `Rank the lines of a file against the keywords of a query, widen the
best matches to enclosing declarations and print up to --max fragments.

With --watch the extraction is repeated whenever the file changes, until
interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			opts := fragment.Options{MaxFragments: maxFrags, MaxLinesPerFragment: maxLines}

			extract := func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				frags := cliCtx.Manager().ExtractFragmentsWith(string(data), path, query, opts)
				if frags == nil {
					frags = []fragment.Fragment{}
				}
				return render(cmd.OutOrStdout(), cliCtx.Output, frags, func(w io.Writer) error {
					if len(frags) == 0 {
						fmt.Fprintln(w, "(empty file)")
						return nil
					}
					_, err := fmt.Fprintln(w, fragment.Format(frags))
					return err
				})
			}

			if err := extract(); err != nil {
				return err
			}
			if !watching {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchFile(ctx, cliCtx, path, extract)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "Q", "", "query whose keywords select the fragments")
	cmd.Flags().IntVarP(&maxFrags, "max", "n", 0, "maximum number of fragments (default from config)")
	cmd.Flags().IntVarP(&maxLines, "lines", "l", 0, "lines per fragment window (default from config)")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "re-extract whenever the file changes")

	return cmd
}

// watchFile runs extract after every change to path until ctx is done.
func watchFile(ctx context.Context, cliCtx *CLIContext, path string, extract func() error) error {
	log := cliCtx.Log()
	changes := make(chan struct{}, 1)

	w, err := watch.Files([]string{path}, func([]string) {
		select {
		case changes <- struct{}{}:
		default:
		}
	}, watch.WithLogger(log))
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	log.Info().Str("file", path).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := extract(); err != nil {
				log.Warn().Err(err).Msg("extraction failed")
			}
		}
	}
}
