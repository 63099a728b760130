package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"crops3d/pkg/builder"
	"crops3d/pkg/config"
	"crops3d/pkg/dataset"
	"crops3d/pkg/logging"
	"crops3d/pkg/report"
)

type commandContext struct {
	configFlag string
	storeFlag  string
}

func (c *commandContext) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
	if err != nil {
		return nil, nil, err
	}
	if c.storeFlag != "" {
		if cfg.Dataset.StorePath, err = config.ExpandPath(c.storeFlag); err != nil {
			return nil, nil, err
		}
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (c *commandContext) withStore(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, fn func(*dataset.Store) error) error {
	store, err := dataset.Open(cmd.Context(), cfg.Dataset.StorePath, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var (
		writeConfig string
		dir         string
		name        string
	)

	cmd := &cobra.Command{
		Use:           "crops3d-dataset",
		Short:         "Build a labeled 3D dataset from a flat directory of point clouds",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeConfig != "" {
				path, err := config.ExpandPath(writeConfig)
				if err != nil {
					return err
				}
				if err := config.CreateSample(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
				return nil
			}

			cfg, logger, err := ctx.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dir") {
				cfg.Dataset.Dir = dir
			}
			if cmd.Flags().Changed("name") {
				cfg.Dataset.Name = name
			}
			return runBuild(cmd, cfg, logger)
		},
	}

	cmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVar(&ctx.storeFlag, "store", "", "Dataset store path (overrides config and "+config.StoreEnv+")")
	cmd.Flags().StringVar(&writeConfig, "write-config", "", "Write a sample configuration file to this path and exit")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory holding the flattened point clouds")
	cmd.Flags().StringVar(&name, "name", "crops3d", "Dataset name")

	cmd.AddCommand(newInfoCommand(ctx))
	cmd.AddCommand(newProbeCommand())
	return cmd
}

func runBuild(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	dc := cfg.Dataset
	opts := builder.Options{
		Dir:             dc.Dir,
		Name:            dc.Name,
		Extension:       dc.Extension,
		SceneExtension:  dc.SceneExtension,
		LabelField:      dc.LabelField,
		ComputeMetadata: dc.ComputeMetadata,
		Overwrite:       dc.Overwrite,
	}

	store := &lazyStore{open: func() (*dataset.Store, error) {
		return dataset.Open(cmd.Context(), dc.StorePath, logger.With("component", "store"))
	}}
	defer store.Close()

	res, err := builder.Run(cmd.Context(), store, opts, out, logger)
	if err != nil {
		return err
	}
	if res.Found == 0 {
		return nil
	}
	fmt.Fprintln(out, labelTable(res.LabelCounts))
	fmt.Fprintf(out, "Dataset '%s' created successfully with %d samples!\n", dc.Name, res.Samples)
	return nil
}

// lazyStore opens the store on first use, so a run with nothing to build
// neither locks nor creates it.
type lazyStore struct {
	open  func() (*dataset.Store, error)
	store *dataset.Store
}

func (l *lazyStore) Create(ctx context.Context, name string, opts dataset.CreateOptions) (*dataset.Dataset, error) {
	if l.store == nil {
		store, err := l.open()
		if err != nil {
			return nil, err
		}
		l.store = store
	}
	return l.store.Create(ctx, name, opts)
}

func (l *lazyStore) Close() error {
	return l.store.Close()
}

func labelTable(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return report.Table([]string{"Label", "Samples"}, rows, []report.Align{report.AlignLeft, report.AlignRight})
}
