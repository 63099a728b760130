// Package builder turns a flat directory of point clouds into a labeled
// dataset: one scene file and one sample per point cloud.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"crops3d/pkg/crops"
	"crops3d/pkg/dataset"
	"crops3d/pkg/logging"
	"crops3d/pkg/pointcloud"
	"crops3d/pkg/report"
	"crops3d/pkg/scene"
)

// Store creates datasets.
type Store interface {
	Create(ctx context.Context, name string, opts dataset.CreateOptions) (*dataset.Dataset, error)
}

// Options configures a build.
type Options struct {
	Dir            string
	Name           string
	Extension      string
	SceneExtension string
	LabelField     string
	// ComputeMetadata probes every point cloud for size, point count and bounds.
	ComputeMetadata bool
	// Overwrite replaces an existing dataset of the same name.
	Overwrite bool
}

func (o *Options) setDefaults() {
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Extension == "" {
		o.Extension = crops.PointCloudExt
	}
	if o.SceneExtension == "" {
		o.SceneExtension = crops.SceneExt
	}
	if o.LabelField == "" {
		o.LabelField = "crop_type"
	}
}

// Result describes a finished build.
type Result struct {
	Found       int
	Samples     int
	ScenePaths  []string
	LabelCounts map[string]int
}

// Run builds the dataset opts.Name from the point clouds in opts.Dir. With no
// point clouds it returns after reporting the zero count, leaving the store
// untouched.
func Run(ctx context.Context, store Store, opts Options, out io.Writer, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("component", "builder")
	opts.setDefaults()

	kind := strings.ToUpper(strings.TrimPrefix(opts.Extension, "."))
	files, err := crops.ListFiles(opts.Dir, opts.Extension)
	if err != nil {
		return nil, fmt.Errorf("list point clouds: %w", err)
	}
	fmt.Fprintf(out, "Found %d %s files\n", len(files), kind)
	if len(files) == 0 {
		fmt.Fprintf(out, "No %s files found in the specified directory!\n", kind)
		return &Result{}, nil
	}

	fmt.Fprintf(out, "Creating dataset: %s\n", opts.Name)
	ds, err := store.Create(ctx, opts.Name, dataset.CreateOptions{Persistent: true, Overwrite: opts.Overwrite})
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}

	res := &Result{Found: len(files), ScenePaths: make([]string, 0, len(files))}
	samples := make([]*dataset.Sample, 0, len(files))

	fmt.Fprintf(out, "Processing %s files and creating %s scenes...\n", kind,
		strings.ToUpper(strings.TrimPrefix(opts.SceneExtension, ".")))
	bar := report.NewProgress(out, "Processing", len(files))
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			bar.Done()
			return nil, err
		}
		smp, scenePath, err := buildSample(opts, name)
		if err != nil {
			bar.Done()
			return nil, err
		}
		samples = append(samples, smp)
		res.ScenePaths = append(res.ScenePaths, scenePath)
		bar.Step(fmt.Sprintf("Processed: %s -> %s", name, filepath.Base(scenePath)))
		logger.Debug("scene written", "source", name, "scene", scenePath, "label", smp.Label(opts.LabelField))
	}
	bar.Done()

	fmt.Fprintf(out, "\nAdding %d samples to dataset...\n", len(samples))
	ds.AddSamples(samples...)
	if err := ds.Save(ctx); err != nil {
		return nil, fmt.Errorf("save dataset: %w", err)
	}

	if res.Samples, err = ds.Len(ctx); err != nil {
		return nil, err
	}
	if res.LabelCounts, err = ds.CountValues(ctx, opts.LabelField); err != nil {
		return nil, err
	}
	logger.Info("dataset built", "dataset", opts.Name, "samples", res.Samples, "labels", len(res.LabelCounts))
	return res, nil
}

func buildSample(opts Options, name string) (*dataset.Sample, string, error) {
	src := filepath.Join(opts.Dir, name)
	scenePath := filepath.Join(opts.Dir, crops.SceneName(name, opts.Extension, opts.SceneExtension))

	sc, err := scene.ForPointCloud(src, scenePath, scene.UpNegY)
	if err != nil {
		return nil, "", fmt.Errorf("build scene for %s: %w", name, err)
	}
	if err := sc.Write(scenePath); err != nil {
		return nil, "", fmt.Errorf("%s: %w", name, err)
	}

	smp := dataset.NewSample(scenePath)
	if err := smp.Set(opts.LabelField, dataset.Classification{Label: crops.Label(name, opts.Extension)}); err != nil {
		return nil, "", err
	}
	if opts.ComputeMetadata {
		info, err := pointcloud.Probe(src, true)
		if err != nil {
			return nil, "", fmt.Errorf("probe %s: %w", name, err)
		}
		smp.Metadata = metadataFrom(info)
	}
	return smp, scenePath, nil
}

func metadataFrom(info *pointcloud.Info) *dataset.Metadata {
	meta := &dataset.Metadata{
		SizeBytes: info.SizeBytes,
		MimeType:  info.MimeType,
		NumPoints: info.Points,
	}
	if b := info.Bounds; b != nil && !b.Empty() {
		meta.Min = &[3]float32{b.Min.X, b.Min.Y, b.Min.Z}
		meta.Max = &[3]float32{b.Max.X, b.Max.Y, b.Max.Z}
	}
	return meta
}
