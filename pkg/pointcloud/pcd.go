package pointcloud

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seqsense/pcgol/pc"
)

var (
	ErrUnsupportPcdVersion  = errors.New("unsupport pcd version")
	ErrUnsupportPcdDataType = errors.New("unsupport pcd data type")
	ErrInvalidPcdFormat     = errors.New("invalid pcd format")
)

type PcdHeader struct {
	Version string
	Fields  []string
	Width   int
	Height  int
	Points  int
	Data    string
}

// DecodePcdHeader reads the PCD header lines up to and including DATA.
func DecodePcdHeader(r *bufio.Reader) (h *PcdHeader, err error) {
	var headers = map[string][]string{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrInvalidPcdFormat
			}
			return nil, err
		}
		hs := strings.Fields(line)
		if len(hs) == 0 || strings.HasPrefix(hs[0], "#") {
			continue
		}
		headers[hs[0]] = hs[1:]
		if hs[0] == "DATA" {
			break
		}
	}

	version := headers["VERSION"]
	if len(version) != 1 || (version[0] != "0.7" && version[0] != ".7") {
		return nil, ErrUnsupportPcdVersion
	}
	if len(headers["DATA"]) != 1 {
		return nil, ErrInvalidPcdFormat
	}
	h = &PcdHeader{
		Version: version[0],
		Fields:  headers["FIELDS"],
		Data:    strings.ToLower(headers["DATA"][0]),
	}
	switch h.Data {
	case "ascii", "binary", "binary_compressed":
	default:
		return nil, ErrUnsupportPcdDataType
	}
	if h.Width, err = getIntHeader(headers, "WIDTH"); err != nil {
		return
	}
	if h.Height, err = getIntHeader(headers, "HEIGHT"); err != nil {
		return
	}
	if _, ok := headers["POINTS"]; ok {
		if h.Points, err = getIntHeader(headers, "POINTS"); err != nil {
			return
		}
	} else {
		h.Points = h.Width * h.Height
	}
	return h, nil
}

func getIntHeader(headers map[string][]string, field string) (int, error) {
	vals := headers[field]
	if len(vals) != 1 {
		return 0, ErrInvalidPcdFormat
	}
	v, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0, fmt.Errorf("invalid int field %s", field)
	}
	return v, nil
}

// probePcd parses the header itself and hands the whole file to pcgol when
// the points have to be walked.
func probePcd(r io.Reader, withBounds bool) (*Info, error) {
	var raw bytes.Buffer
	src := r
	if withBounds {
		src = io.TeeReader(r, &raw)
	}
	h, err := DecodePcdHeader(bufio.NewReader(src))
	if err != nil {
		return nil, err
	}
	info := &Info{Format: FormatPCD, Encoding: h.Data, Points: h.Points, Fields: h.Fields}
	if !withBounds {
		return info, nil
	}

	if _, err := io.Copy(&raw, r); err != nil {
		return nil, err
	}
	pp, err := pc.Unmarshal(&raw)
	if err != nil {
		return nil, err
	}
	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	info.Bounds = NewBounds()
	for ; it.IsValid(); it.Incr() {
		v := it.Vec3()
		info.Bounds.Add(Point{X: v[0], Y: v[1], Z: v[2]})
	}
	return info, nil
}
