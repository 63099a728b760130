package pointcloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidPlyFormat      = errors.New("invalid ply format")
	ErrUnsupportPlyFormat    = errors.New("unsupport ply format")
	ErrUnsupportPlyFieldType = errors.New("unsupport ply field type")
)

const (
	PlyASCII        = "ascii"
	PlyBinaryLE     = "binary_little_endian"
	PlyBinaryBE     = "binary_big_endian"
	plyVertex       = "vertex"
	plyHeaderMagic  = "ply"
	plyEndOfHeaders = "end_header"
)

type PlyProperty struct {
	Name string
	Type string
	// List properties carry a count of CountType followed by that many Type values.
	List      bool
	CountType string
}

type PlyElement struct {
	Name       string
	Count      int
	Properties []PlyProperty
}

type PlyHeader struct {
	Format   string
	Comments []string
	Elements []PlyElement
}

// Vertex returns the vertex element, or nil when the file has none.
func (h *PlyHeader) Vertex() *PlyElement {
	for i := range h.Elements {
		if h.Elements[i].Name == plyVertex {
			return &h.Elements[i]
		}
	}
	return nil
}

// DecodePlyHeader reads a PLY header up to and including "end_header".
func DecodePlyHeader(r *bufio.Reader) (h *PlyHeader, err error) {
	magic, err := readPlyLine(r)
	if err != nil {
		return
	}
	if magic != plyHeaderMagic {
		return nil, ErrInvalidPlyFormat
	}

	h = &PlyHeader{}
	for {
		line, err := readPlyLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrInvalidPlyFormat
			}
			return nil, err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case plyEndOfHeaders:
			if h.Format == "" {
				return nil, ErrInvalidPlyFormat
			}
			return h, nil
		case "format":
			if len(fields) != 3 {
				return nil, ErrInvalidPlyFormat
			}
			switch fields[1] {
			case PlyASCII, PlyBinaryLE, PlyBinaryBE:
				h.Format = fields[1]
			default:
				return nil, ErrUnsupportPlyFormat
			}
		case "comment", "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case "element":
			if len(fields) != 3 {
				return nil, ErrInvalidPlyFormat
			}
			n, err := strconv.Atoi(fields[2])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid element count %q", fields[2])
			}
			h.Elements = append(h.Elements, PlyElement{Name: fields[1], Count: n})
		case "property":
			if len(h.Elements) == 0 {
				return nil, ErrInvalidPlyFormat
			}
			prop, err := parsePlyProperty(fields[1:])
			if err != nil {
				return nil, err
			}
			el := &h.Elements[len(h.Elements)-1]
			el.Properties = append(el.Properties, prop)
		default:
			return nil, ErrInvalidPlyFormat
		}
	}
}

func parsePlyProperty(fields []string) (PlyProperty, error) {
	if len(fields) == 4 && fields[0] == "list" {
		if plyTypeSize(fields[1]) == 0 || plyTypeSize(fields[2]) == 0 {
			return PlyProperty{}, ErrUnsupportPlyFieldType
		}
		return PlyProperty{Name: fields[3], Type: fields[2], List: true, CountType: fields[1]}, nil
	}
	if len(fields) != 2 {
		return PlyProperty{}, ErrInvalidPlyFormat
	}
	if plyTypeSize(fields[0]) == 0 {
		return PlyProperty{}, ErrUnsupportPlyFieldType
	}
	return PlyProperty{Name: fields[1], Type: fields[0]}, nil
}

func plyTypeSize(t string) int {
	switch t {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "float", "int32", "uint32", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

func readPlyLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func probePly(r io.Reader, withBounds bool) (*Info, error) {
	bio := bufio.NewReader(r)
	h, err := DecodePlyHeader(bio)
	if err != nil {
		return nil, err
	}
	vertex := h.Vertex()
	if vertex == nil {
		return nil, ErrInvalidPlyFormat
	}
	info := &Info{Format: FormatPLY, Encoding: h.Format, Points: vertex.Count}
	for _, p := range vertex.Properties {
		info.Fields = append(info.Fields, p.Name)
	}
	if withBounds {
		info.Bounds = NewBounds()
		if err := h.LoadVertices(bio, info.Bounds.Add); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// LoadVertices reads the body that follows the header and calls fn with the
// x, y, z of every vertex. Elements declared before the vertex element are
// read and discarded.
func (h *PlyHeader) LoadVertices(r *bufio.Reader, fn func(Point)) error {
	var dec plyValueReader
	switch h.Format {
	case PlyASCII:
		dec = &plyASCIIReader{r: r}
	case PlyBinaryLE:
		dec = &plyBinaryReader{r: r, order: binary.LittleEndian}
	case PlyBinaryBE:
		dec = &plyBinaryReader{r: r, order: binary.BigEndian}
	default:
		return ErrUnsupportPlyFormat
	}

	for _, el := range h.Elements {
		isVertex := el.Name == plyVertex
		xi, yi, zi := -1, -1, -1
		if isVertex {
			for i, p := range el.Properties {
				switch p.Name {
				case "x":
					xi = i
				case "y":
					yi = i
				case "z":
					zi = i
				}
			}
			if !(xi >= 0 && yi >= 0 && zi >= 0) {
				return ErrInvalidPlyFormat
			}
		}
		values := make([]float64, len(el.Properties))
		for n := 0; n < el.Count; n++ {
			if err := dec.startRecord(); err != nil {
				return err
			}
			for i, p := range el.Properties {
				v, err := dec.readProperty(p)
				if err != nil {
					if errors.Is(err, io.EOF) {
						return io.ErrUnexpectedEOF
					}
					return err
				}
				values[i] = v
			}
			if isVertex {
				fn(Point{X: float32(values[xi]), Y: float32(values[yi]), Z: float32(values[zi])})
			}
		}
		if isVertex {
			return nil
		}
	}
	return nil
}

type plyValueReader interface {
	startRecord() error
	// readProperty returns the value of a scalar property; list properties
	// are consumed and yield their length.
	readProperty(p PlyProperty) (float64, error)
}

type plyASCIIReader struct {
	r      *bufio.Reader
	tokens []string
}

func (a *plyASCIIReader) startRecord() error {
	for {
		line, err := readPlyLine(a.r)
		if err != nil {
			return err
		}
		a.tokens = strings.Fields(line)
		if len(a.tokens) > 0 {
			return nil
		}
	}
}

func (a *plyASCIIReader) next() (float64, error) {
	if len(a.tokens) == 0 {
		return 0, ErrInvalidPlyFormat
	}
	tok := a.tokens[0]
	a.tokens = a.tokens[1:]
	return strconv.ParseFloat(tok, 64)
}

func (a *plyASCIIReader) readProperty(p PlyProperty) (float64, error) {
	if !p.List {
		return a.next()
	}
	n, err := a.next()
	if err != nil {
		return 0, err
	}
	for i := 0; i < int(n); i++ {
		if _, err := a.next(); err != nil {
			return 0, err
		}
	}
	return n, nil
}

type plyBinaryReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *plyBinaryReader) startRecord() error { return nil }

func (b *plyBinaryReader) scalar(t string) (float64, error) {
	size := plyTypeSize(t)
	bs := b.buf[:size]
	if _, err := io.ReadFull(b.r, bs); err != nil {
		return 0, err
	}
	switch t {
	case "char", "int8":
		return float64(int8(bs[0])), nil
	case "uchar", "uint8":
		return float64(bs[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(bs))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(bs)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(bs))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(bs)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(bs))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(bs)), nil
	}
	return 0, ErrUnsupportPlyFieldType
}

func (b *plyBinaryReader) readProperty(p PlyProperty) (float64, error) {
	if !p.List {
		return b.scalar(p.Type)
	}
	n, err := b.scalar(p.CountType)
	if err != nil {
		return 0, err
	}
	skip := int(n) * plyTypeSize(p.Type)
	if _, err := b.r.Discard(skip); err != nil {
		return 0, err
	}
	return n, nil
}
