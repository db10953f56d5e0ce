package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/lazyarray/internal/config"
	"github.com/born-ml/lazyarray/internal/lazy"
	"github.com/born-ml/lazyarray/internal/script"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lazyarray",
		Short:         "Deferred array expressions with aliasing views",
		Long:          "Run array scenarios against the deferred evaluation engine and print what it does.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "engine configuration file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine events to stderr")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios and print their transcripts",
		Long: `Run each scenario file in order against a fresh context.

Exit codes:
  0 - every scenario ran and every check held
  1 - a check step failed
  2 - any other error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			for _, path := range args {
				s, err := script.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				logger, err := opts.logger(cfg, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				ctx, err := lazy.FromConfig(cfg, lazy.WithLogger(logger))
				if err != nil {
					return err
				}
				if err := script.NewRunner(ctx, cmd.OutOrStdout()).Run(s); err != nil {
					return fmt.Errorf("%s: %w", s.Name, err)
				}
			}
			return nil
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Parse scenarios without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				s, err := script.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ok (%d arrays, %d steps)\n", path, s.Name, len(s.Arrays), len(s.Steps))
			}
			return nil
		},
	}
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lazyarray %s\n", version)
		},
	}
}

// load returns the configuration named by --config, or the defaults.
func (o *rootOptions) load() (*config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// logger writes engine events to w. --verbose forces debug level;
// otherwise the configured level applies.
func (o *rootOptions) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelDebug
	if !o.verbose {
		var err error
		if level, err = cfg.LogLevel(); err != nil {
			return nil, err
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
