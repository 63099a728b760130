package flatten

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"crops3d/pkg/report"
)

const (
	rule           = "=================================================="
	maxListedSkips = 10
)

// ExpectedLayout describes the source tree the flattener expects.
const ExpectedLayout = `Expected directory structure:
  Crops3D/
  └── Crops3D/
      ├── Cabbage/
      ├── Cotton/
      ├── Maize/
      └── ...`

func kind(ext string) string {
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}

func printDiscovery(out io.Writer, sum *Summary, ext string) {
	fmt.Fprintf(out, "Found %d crop directories:\n", len(sum.Categories))
	for _, category := range sum.Categories {
		fmt.Fprintf(out, "  - %s: %d %s files\n", category, sum.PerCategory[category], kind(ext))
	}
	fmt.Fprintln(out, "\nStarting to flatten directory structure...")
	fmt.Fprintln(out, rule)
}

func printSummary(out io.Writer, sum *Summary, opts Options) {
	fmt.Fprintf(out, "\n%s\n", rule)
	fmt.Fprintln(out, "Flattening complete!")
	fmt.Fprintf(out, "Total files processed: %d\n", sum.Considered)
	fmt.Fprintf(out, "Files copied: %d\n", sum.Copied)
	fmt.Fprintf(out, "Files skipped (already exist): %d\n", len(sum.Skipped))

	if len(sum.Skipped) > 0 && len(sum.Skipped) <= maxListedSkips {
		fmt.Fprintln(out, "\nSkipped files:")
		for _, name := range sum.Skipped {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}

	fmt.Fprintf(out, "\nTotal %s files in %s: %d\n", kind(opts.Extension), opts.Target, sum.TargetTotal)
	fmt.Fprintln(out, "\nFinal file count per crop type:")
	for _, category := range sum.Categories {
		if n := sum.FinalCounts[category]; n > 0 {
			fmt.Fprintf(out, "  %-12s : %4d files\n", category, n)
		}
	}

	if len(sum.Verification) == 0 {
		return
	}
	fmt.Fprintln(out, "\nVerification against expected counts:")
	rows := make([][]string, 0, len(sum.Verification))
	for _, c := range sum.Verification {
		status := "ok"
		if !c.Match() {
			status = "MISMATCH"
		}
		rows = append(rows, []string{c.Category, strconv.Itoa(c.Expected), strconv.Itoa(c.Actual), status})
	}
	fmt.Fprintln(out, report.Table(
		[]string{"Crop", "Expected", "Actual", "Status"},
		rows,
		[]report.Align{report.AlignLeft, report.AlignRight, report.AlignRight, report.AlignLeft},
	))
	if sum.AllMatch() {
		fmt.Fprintln(out, "\nAll crop counts match expected values!")
	}
}
