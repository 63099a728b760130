package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path (and its parents) with the given content.
func WriteFile(t testing.TB, path string, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTree lays out a category tree under root: tree maps a category
// directory to the file names it contains. Every file gets a tiny ASCII PLY
// body so it can be probed.
func WriteTree(t testing.TB, root string, tree map[string][]string) {
	t.Helper()

	for category, files := range tree {
		dir := filepath.Join(root, category)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		for _, name := range files {
			WritePLY(t, filepath.Join(dir, name), [][3]float32{{0, 0, 0}, {1, 2, 3}})
		}
	}
}

// WritePLY writes an ASCII PLY point cloud holding pts.
func WritePLY(t testing.TB, path string, pts [][3]float32) {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("ply\nformat ascii 1.0\ncomment test fixture\n")
	fmt.Fprintf(&buf, "element vertex %d\n", len(pts))
	buf.WriteString("property float x\nproperty float y\nproperty float z\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	buf.WriteString("end_header\n")
	for _, p := range pts {
		fmt.Fprintf(&buf, "%g %g %g 255 128 0\n", p[0], p[1], p[2])
	}
	WriteFile(t, path, buf.String())
}

// WriteBinaryPLY writes a binary little-endian PLY mesh: a face element
// precedes the vertices so readers must skip list properties.
func WriteBinaryPLY(t testing.TB, path string, pts [][3]float32) {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	buf.WriteString("element face 1\nproperty list uchar int vertex_indices\n")
	fmt.Fprintf(&buf, "element vertex %d\n", len(pts))
	buf.WriteString("property float x\nproperty float y\nproperty float z\nproperty double intensity\n")
	buf.WriteString("end_header\n")
	buf.WriteByte(3)
	for _, idx := range []int32{0, 1, 2} {
		_ = binary.Write(&buf, binary.LittleEndian, idx)
	}
	for _, p := range pts {
		_ = binary.Write(&buf, binary.LittleEndian, p)
		_ = binary.Write(&buf, binary.LittleEndian, float64(0.5))
	}
	WriteFile(t, path, buf.String())
}

// WritePCD writes a binary PCD point cloud holding pts.
func WritePCD(t testing.TB, path string, pts [][3]float32) {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("# .PCD v0.7 - Point Cloud Data file format\n")
	buf.WriteString("VERSION 0.7\nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\n")
	fmt.Fprintf(&buf, "WIDTH %d\nHEIGHT 1\n", len(pts))
	buf.WriteString("VIEWPOINT 0 0 0 1 0 0 0\n")
	fmt.Fprintf(&buf, "POINTS %d\nDATA binary\n", len(pts))
	for _, p := range pts {
		_ = binary.Write(&buf, binary.LittleEndian, p)
	}
	WriteFile(t, path, buf.String())
}

// ListDir returns the names in dir, sorted.
func ListDir(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
