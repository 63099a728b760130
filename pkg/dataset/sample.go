package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Media types recorded on samples.
const (
	MediaType3D         = "3d"
	MediaTypePointCloud = "point-cloud"
	MediaTypeUnknown    = "unknown"
)

var reservedFields = map[string]bool{
	"id":         true,
	"filepath":   true,
	"media_type": true,
	"metadata":   true,
}

// Classification is a single label attached to a sample field.
type Classification struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Metadata describes the media behind a sample.
type Metadata struct {
	SizeBytes int64       `json:"size_bytes"`
	MimeType  string      `json:"mime_type"`
	NumPoints int         `json:"num_points,omitempty"`
	Min       *[3]float32 `json:"min_bound,omitempty"`
	Max       *[3]float32 `json:"max_bound,omitempty"`
}

// Sample is one dataset record: a media file plus labeled fields.
type Sample struct {
	ID        string
	Filepath  string
	MediaType string
	Fields    map[string]Classification
	Metadata  *Metadata
}

// NewSample returns a sample for the file at path. The media type is derived
// from the extension.
func NewSample(path string) *Sample {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Sample{
		Filepath:  abs,
		MediaType: mediaTypeFor(abs),
		Fields:    map[string]Classification{},
	}
}

// Set stores c under field.
func (s *Sample) Set(field string, c Classification) error {
	if field == "" {
		return fmt.Errorf("set field: empty field name")
	}
	if reservedFields[field] {
		return fmt.Errorf("set field: %q is reserved", field)
	}
	if s.Fields == nil {
		s.Fields = map[string]Classification{}
	}
	s.Fields[field] = c
	return nil
}

// Label returns the label stored under field, or "" when unset.
func (s *Sample) Label(field string) string {
	return s.Fields[field].Label
}

func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fo3d":
		return MediaType3D
	case ".pcd":
		return MediaTypePointCloud
	}
	return MediaTypeUnknown
}
