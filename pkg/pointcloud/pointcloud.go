package pointcloud

import (
	"errors"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportPointCloudFileType = errors.New("unsupport pointCloud fileType")
)

const (
	FormatPLY = "ply"
	FormatPCD = "pcd"
)

type Point struct {
	X, Y, Z float32
}

// Bounds is the axis-aligned box around a set of points.
type Bounds struct {
	Min, Max Point
	empty    bool
}

func NewBounds() *Bounds {
	inf := float32(math.Inf(1))
	return &Bounds{
		Min:   Point{inf, inf, inf},
		Max:   Point{-inf, -inf, -inf},
		empty: true,
	}
}

func (b *Bounds) Add(p Point) {
	b.empty = false
	b.Min.X = min(b.Min.X, p.X)
	b.Min.Y = min(b.Min.Y, p.Y)
	b.Min.Z = min(b.Min.Z, p.Z)
	b.Max.X = max(b.Max.X, p.X)
	b.Max.Y = max(b.Max.Y, p.Y)
	b.Max.Z = max(b.Max.Z, p.Z)
}

func (b *Bounds) Empty() bool {
	return b.empty
}

// Center is the midpoint of the box, the offset a viewer subtracts when it
// centers the geometry.
func (b *Bounds) Center() Point {
	if b.empty {
		return Point{}
	}
	return Point{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Info describes a point-cloud file without holding its points.
type Info struct {
	Format    string
	Encoding  string
	Points    int
	Fields    []string
	SizeBytes int64
	MimeType  string
	Bounds    *Bounds
}

// Probe reads the header of a .ply or .pcd file. With withBounds set the
// whole file is decoded to compute the bounding box as well.
func Probe(path string, withBounds bool) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var info *Info
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ply":
		info, err = probePly(f, withBounds)
	case ".pcd":
		info, err = probePcd(f, withBounds)
	default:
		return nil, ErrUnsupportPointCloudFileType
	}
	if err != nil {
		return nil, err
	}
	info.SizeBytes = st.Size()
	info.MimeType = mimeType(path)
	return info, nil
}

func mimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
