package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ctxwin/internal/config"
)

// NewConfigCmd 创建 config 命令组
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Create, inspect and change the ctxwin configuration file",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}

			path := cliCtx.ConfigPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.SaveTo(cliCtx.Config, path); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			log := cliCtx.Log()
			log.Info().Str("path", path).Msg("config written")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}

			value := config.Get(args[0])
			if value == nil {
				return fmt.Errorf("key not found: %s", args[0])
			}
			return render(cmd.OutOrStdout(), cliCtx.Output, value, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, value)
				return err
			})
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value and save it",
		Long: `Set a configuration value and save it to the config file. The value is
parsed as a YAML scalar, so numbers and booleans keep their type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := mustCLIContext(cmd); err != nil {
				return err
			}

			key := args[0]
			var value any
			if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil || value == nil {
				value = args[1]
			}

			if err := config.Set(key, value); err != nil {
				return fmt.Errorf("set config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}

			keys := config.Keys()
			values := make(map[string]any, len(keys))
			for _, k := range keys {
				values[k] = config.Get(k)
			}
			return render(cmd.OutOrStdout(), cliCtx.Output, values, func(w io.Writer) error {
				for _, k := range keys {
					fmt.Fprintf(w, "%s = %v\n", k, values[k])
				}
				return nil
			})
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustCLIContext(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cliCtx.ConfigPath)
			return nil
		},
	}
}
