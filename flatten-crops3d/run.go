package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"crops3d/pkg/config"
	"crops3d/pkg/flatten"
)

func run(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	fc := cfg.Flatten

	_, err := flatten.Run(cmd.Context(), flatten.Options{
		Source:        fc.Source,
		Target:        fc.Target,
		Extension:     fc.Extension,
		Expected:      fc.Expected,
		ProgressFirst: fc.ProgressFirst,
		ProgressEvery: fc.ProgressEvery,
	}, out, logger)

	switch {
	case errors.Is(err, flatten.ErrSourceNotFound):
		fmt.Fprintf(out, "Error: Source directory '%s' not found!\n", fc.Source)
		fmt.Fprintln(out, "Make sure you've extracted the Crops3D.zip file first.")
		fmt.Fprintf(out, "\n%s\n", flatten.ExpectedLayout)
		return err
	case errors.Is(err, flatten.ErrNoCategories):
		fmt.Fprintf(out, "No subdirectories found in %s\n", fc.Source)
		return err
	case err != nil:
		return err
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Run: crops3d-dataset")
	fmt.Fprintln(out, "2. Open the dataset in a 3D viewer")
	return nil
}
