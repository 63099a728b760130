// Package flatten copies a two-level category/file tree into one directory,
// prefixing every file with its category name.
package flatten

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"crops3d/pkg/crops"
	"crops3d/pkg/fileutil"
	"crops3d/pkg/logging"
)

var (
	ErrSourceNotFound = errors.New("source directory not found")
	ErrNoCategories   = errors.New("no category directories found")
)

// Options configures a flatten run.
type Options struct {
	Source    string
	Target    string
	Extension string
	// Expected per-category counts checked after the copy. Informational only.
	Expected map[string]int
	// A copy line is printed for the first ProgressFirst copies and then for
	// every ProgressEvery-th one.
	ProgressFirst int
	ProgressEvery int
}

// Check is the verification outcome for one expected category.
type Check struct {
	Category string
	Expected int
	Actual   int
}

// Match reports whether the target holds exactly the expected count.
func (c Check) Match() bool { return c.Expected == c.Actual }

// Summary describes a finished run.
type Summary struct {
	Categories []string
	// PerCategory is the number of matching files found in each source category.
	PerCategory map[string]int
	Considered  int
	Copied      int
	Skipped     []string
	// TargetTotal counts every matching file in the target, flattened or not.
	TargetTotal  int
	FinalCounts  map[string]int
	Verification []Check
}

// AllMatch reports whether every verification check matched.
func (s *Summary) AllMatch() bool {
	for _, c := range s.Verification {
		if !c.Match() {
			return false
		}
	}
	return true
}

// Run flattens opts.Source into opts.Target and writes status lines to out.
// Files already present in the target are skipped, so an interrupted run can
// simply be repeated.
func Run(ctx context.Context, opts Options, out io.Writer, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("component", "flatten")
	if opts.Extension == "" {
		opts.Extension = crops.PointCloudExt
	}

	info, err := os.Stat(opts.Source)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, opts.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(opts.Target, 0o755); err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}

	categories, err := listCategories(opts.Source)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCategories, opts.Source)
	}

	sum := &Summary{Categories: categories, PerCategory: make(map[string]int, len(categories))}
	files := make(map[string][]string, len(categories))
	for _, category := range categories {
		names, err := crops.ListFiles(filepath.Join(opts.Source, category), opts.Extension)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", category, err)
		}
		files[category] = names
		sum.PerCategory[category] = len(names)
	}
	printDiscovery(out, sum, opts.Extension)

	for _, category := range categories {
		names := files[category]
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(out, "\nProcessing %s: %d files\n", category, len(names))
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := sum.copyOne(opts, category, name, out, logger); err != nil {
				return nil, err
			}
		}
	}

	finalCounts, total, err := recount(opts.Target, opts.Extension, categories)
	if err != nil {
		return nil, err
	}
	sum.FinalCounts = finalCounts
	sum.TargetTotal = total
	sum.Verification = verify(opts.Expected, finalCounts)

	printSummary(out, sum, opts)
	logger.Info("flatten finished",
		"considered", sum.Considered,
		"copied", sum.Copied,
		"skipped", len(sum.Skipped),
		"target_total", sum.TargetTotal,
	)
	return sum, nil
}

func (s *Summary) copyOne(opts Options, category, name string, out io.Writer, logger *slog.Logger) error {
	flat := crops.FlatName(category, name)
	dst := filepath.Join(opts.Target, flat)
	s.Considered++

	exists, err := fileutil.Exists(dst)
	if err != nil {
		return fmt.Errorf("check %s: %w", flat, err)
	}
	if !exists {
		err = fileutil.CopyPreserve(filepath.Join(opts.Source, category, name), dst)
		if err == nil {
			s.Copied++
			if s.Copied <= opts.ProgressFirst || (opts.ProgressEvery > 0 && s.Copied%opts.ProgressEvery == 0) {
				fmt.Fprintf(out, "  Copied: %s -> %s\n", name, flat)
			}
			logger.Debug("copied", "src", name, "dst", flat)
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("copy %s: %w", flat, err)
		}
	}
	s.Skipped = append(s.Skipped, flat)
	fmt.Fprintf(out, "  Skipping %s (already exists)\n", flat)
	return nil
}

func listCategories(source string) ([]string, error) {
	categories, err := crops.ListDirs(source)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return categories, nil
}

func recount(target, ext string, categories []string) (map[string]int, int, error) {
	names, err := crops.ListFiles(target, ext)
	if err != nil {
		return nil, 0, fmt.Errorf("recount target: %w", err)
	}
	counts, err := crops.CountByCategory(target, ext, categories)
	if err != nil {
		return nil, 0, fmt.Errorf("recount target: %w", err)
	}
	return counts, len(names), nil
}

// verify orders checks by descending expected count, then name.
func verify(expected map[string]int, actual map[string]int) []Check {
	checks := make([]Check, 0, len(expected))
	for category, n := range expected {
		checks = append(checks, Check{Category: category, Expected: n, Actual: actual[category]})
	}
	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Expected != checks[j].Expected {
			return checks[i].Expected > checks[j].Expected
		}
		return checks[i].Category < checks[j].Category
	})
	return checks
}
