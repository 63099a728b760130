package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crops3d/pkg/dataset"
	"crops3d/pkg/report"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info [dataset]",
		Short: "List stored datasets, or show the label counts of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.load(cmd)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, cfg, logger, func(store *dataset.Store) error {
				if len(args) == 0 {
					return listDatasets(cmd, store)
				}
				return describeDataset(cmd, store, args[0], cfg.Dataset.LabelField)
			})
		},
	}
}

func listDatasets(cmd *cobra.Command, store *dataset.Store) error {
	out := cmd.OutOrStdout()
	infos, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintf(out, "No datasets in %s\n", store.Path())
		return nil
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			strconv.Itoa(info.Samples),
			yesNo(info.Persistent),
			info.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(out, report.Table(
		[]string{"Dataset", "Samples", "Persistent", "Updated"},
		rows,
		[]report.Align{report.AlignLeft, report.AlignRight, report.AlignLeft, report.AlignLeft},
	))
	return nil
}

func describeDataset(cmd *cobra.Command, store *dataset.Store, name, field string) error {
	out := cmd.OutOrStdout()
	ds, err := store.Load(cmd.Context(), name)
	if err != nil {
		return err
	}
	n, err := ds.Len(cmd.Context())
	if err != nil {
		return err
	}
	counts, err := ds.CountValues(cmd.Context(), field)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Dataset '%s': %d samples\n", name, n)
	fmt.Fprintln(out, labelTable(counts))
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
