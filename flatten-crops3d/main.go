package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crops3d/pkg/config"
	"crops3d/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags struct {
		config string
		source string
		target string
	}

	cmd := &cobra.Command{
		Use:           "flatten-crops3d",
		Short:         "Flatten the Crops3D category tree into one directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(flags.config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				cfg.Flatten.Source = flags.source
			}
			if cmd.Flags().Changed("target") {
				cfg.Flatten.Target = flags.target
			}
			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return run(cmd, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.source, "source", "Crops3D/Crops3D", "Source directory containing crop subdirectories")
	cmd.Flags().StringVar(&flags.target, "target", ".", "Target directory for flattened files")
	return cmd
}
