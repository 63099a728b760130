package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTableRendersHeadersAndRows(t *testing.T) {
	out := Table([]string{"Crop", "Count"}, [][]string{{"Maize", "225"}, {"Rice"}}, []Align{AlignLeft, AlignRight})

	assert.Contains(t, out, "Crop")
	assert.Contains(t, out, "Maize")
	assert.Contains(t, out, "225")
	assert.Contains(t, out, "Rice")
	assert.Equal(t, "", Table(nil, nil, nil))
}

func TestProgressFallsBackToLines(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))

	p := NewProgress(&buf, "Processing", 2)
	p.Step("Processed: a.ply -> a.fo3d")
	p.Step("Processed: b.ply -> b.fo3d")
	p.Done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Processed: a.ply -> a.fo3d", "Processed: b.ply -> b.fo3d"}, lines)
}

func TestTableKeepsHeaderCase(t *testing.T) {
	out := Table([]string{"Crop", "Files"}, [][]string{{"Maize", "1"}}, nil)

	assert.Contains(t, out, "Crop")
	assert.Contains(t, out, "Files")
	assert.NotContains(t, out, "CROP")
	assert.NotContains(t, out, "FILES")
}

func TestBarProgressDoneStopsRenderer(t *testing.T) {
	var buf bytes.Buffer
	p := newBarProgress(&buf, "Processing", 3)
	p.Step("")

	done := make(chan struct{})
	go func() {
		p.Done()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Done did not return")
	}
	assert.False(t, p.pw.IsRenderInProgress())

	select {
	case <-p.finished:
	default:
		t.Fatal("renderer still running after Done")
	}
}
