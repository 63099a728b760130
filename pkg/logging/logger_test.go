package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	require.NoError(t, err)

	logger.With("component", "flatten").Info("copied file", "name", "Maize-1.ply", "err", errors.New("disk full"))
	logger.Debug("hidden")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, " INFO flatten: copied file")
	assert.Contains(t, line, "name=Maize-1.ply")
	assert.Contains(t, line, `err="disk full"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Debug("probe", "points", 42)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "probe", rec["msg"])
	assert.EqualValues(t, 42, rec["points"])
	assert.Contains(t, rec, "ts")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}
