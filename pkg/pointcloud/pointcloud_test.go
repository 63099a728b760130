package pointcloud

import (
	"bufio"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"crops3d/pkg/testsupport"
)

var cloud = [][3]float32{{-1, 2, 0.5}, {3, -4, 1.5}, {0, 0, -2}}

func TestProbePly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Maize-1.ply")
	testsupport.WritePLY(t, path, cloud)

	info, err := Probe(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if info.Format != FormatPLY || info.Encoding != PlyASCII {
		t.Fatalf("unexpected format %s/%s", info.Format, info.Encoding)
	}
	if info.Points != 3 {
		t.Fatalf("points = %d, want 3", info.Points)
	}
	if strings.Join(info.Fields, ",") != "x,y,z,red,green,blue" {
		t.Fatalf("unexpected fields %v", info.Fields)
	}
	if info.Bounds != nil {
		t.Fatal("bounds computed without being asked for")
	}
	if info.SizeBytes == 0 {
		t.Fatal("size not recorded")
	}
}

func TestProbePlyBounds(t *testing.T) {
	for name, write := range map[string]func(testing.TB, string, [][3]float32){
		"ascii":  testsupport.WritePLY,
		"binary": testsupport.WriteBinaryPLY,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "Rice-10.ply")
			write(t, path, cloud)

			info, err := Probe(path, true)
			if err != nil {
				t.Fatal(err)
			}
			if info.Points != 3 {
				t.Fatalf("points = %d, want 3", info.Points)
			}
			want := Bounds{Min: Point{-1, -4, -2}, Max: Point{3, 2, 1.5}}
			if info.Bounds.Min != want.Min || info.Bounds.Max != want.Max {
				t.Fatalf("bounds = %+v, want %+v", *info.Bounds, want)
			}
			if c := info.Bounds.Center(); c != (Point{1, -1, -0.25}) {
				t.Fatalf("center = %+v", c)
			}
		})
	}
}

func TestProbePcd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cotton-1.pcd")
	testsupport.WritePCD(t, path, cloud)

	info, err := Probe(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if info.Format != FormatPCD || info.Encoding != "binary" || info.Points != 3 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Bounds.Min != (Point{-1, -4, -2}) || info.Bounds.Max != (Point{3, 2, 1.5}) {
		t.Fatalf("unexpected bounds %+v", *info.Bounds)
	}
}

func TestProbeRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.bin")
	testsupport.WriteFile(t, path, "xx")

	if _, err := Probe(path, false); !errors.Is(err, ErrUnsupportPointCloudFileType) {
		t.Fatalf("expected ErrUnsupportPointCloudFileType, got %v", err)
	}
}

func TestDecodePlyHeaderErrors(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"not ply":      {"obj\n", ErrInvalidPlyFormat},
		"no format":    {"ply\nelement vertex 1\nproperty float x\nend_header\n", ErrInvalidPlyFormat},
		"bad format":   {"ply\nformat binary_middle_endian 1.0\nend_header\n", ErrUnsupportPlyFormat},
		"bad type":     {"ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n", ErrUnsupportPlyFieldType},
		"no end":       {"ply\nformat ascii 1.0\nelement vertex 1\n", ErrInvalidPlyFormat},
		"orphan field": {"ply\nformat ascii 1.0\nproperty float x\nend_header\n", ErrInvalidPlyFormat},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePlyHeader(bufio.NewReader(strings.NewReader(tc.body)))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoadVerticesTruncated(t *testing.T) {
	body := "ply\nformat binary_little_endian 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n\x00\x00"
	r := bufio.NewReader(strings.NewReader(body))
	h, err := DecodePlyHeader(r)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.LoadVertices(r, func(Point) {}); err == nil {
		t.Fatal("expected error on truncated body")
	}
}

func TestDecodePcdHeader(t *testing.T) {
	body := "# comment\nVERSION .7\nFIELDS x y z rgb\nSIZE 4 4 4 4\nTYPE F F F I\nCOUNT 1 1 1 1\nWIDTH 4\nHEIGHT 2\nVIEWPOINT 0 0 0 1 0 0 0\nDATA ascii\n"
	h, err := DecodePcdHeader(bufio.NewReader(strings.NewReader(body)))
	if err != nil {
		t.Fatal(err)
	}
	if h.Points != 8 || h.Data != "ascii" || len(h.Fields) != 4 {
		t.Fatalf("unexpected header %+v", h)
	}

	blank := "VERSION 0.7\n   \n\t\nFIELDS x y z\nWIDTH 1\nHEIGHT 1\nDATA ascii\n"
	h, err = DecodePcdHeader(bufio.NewReader(strings.NewReader(blank)))
	if err != nil {
		t.Fatalf("whitespace-only header lines: %v", err)
	}
	if h.Points != 1 {
		t.Fatalf("points = %d, want 1", h.Points)
	}

	_, err = DecodePcdHeader(bufio.NewReader(strings.NewReader("VERSION 0.5\nDATA ascii\n")))
	if !errors.Is(err, ErrUnsupportPcdVersion) {
		t.Fatalf("expected ErrUnsupportPcdVersion, got %v", err)
	}
}

func TestPcdInfoSkipsWhitespaceHeaderLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Tomato-1.pcd")
	testsupport.WriteFile(t, path, "# .PCD v0.7\nVERSION 0.7\n   \nFIELDS x y z\nSIZE 4 4 4\nTYPE F F F\nCOUNT 1 1 1\nWIDTH 1\nHEIGHT 1\nPOINTS 1\nDATA ascii\n1 2 3\n")

	info, err := Probe(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if info.Points != 1 || info.Encoding != "ascii" {
		t.Fatalf("unexpected info %+v", info)
	}
}
