package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Progress reports per-item progress of a fixed-size job.
type Progress interface {
	// Step records one finished item with a short description of it.
	Step(msg string)
	// Done flushes the display.
	Done()
}

// NewProgress returns a bar on terminals and a line-per-step printer otherwise.
func NewProgress(w io.Writer, title string, total int) Progress {
	if !IsTerminal(w) {
		return &lineProgress{w: w}
	}

	return newBarProgress(w, title, total)
}

func newBarProgress(w io.Writer, title string, total int) *barProgress {
	pw := progress.NewWriter()
	pw.SetOutputWriter(w)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(100 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	tracker := &progress.Tracker{Message: title, Total: int64(total), Units: progress.UnitsDefault}
	pw.AppendTracker(tracker)

	p := &barProgress{pw: pw, tracker: tracker, finished: make(chan struct{})}
	go func() {
		defer close(p.finished)
		pw.Render()
	}()
	return p
}

type lineProgress struct {
	w io.Writer
}

func (p *lineProgress) Step(msg string) {
	fmt.Fprintln(p.w, msg)
}

func (p *lineProgress) Done() {}

type barProgress struct {
	pw       progress.Writer
	tracker  *progress.Tracker
	finished chan struct{}
}

func (p *barProgress) Step(string) {
	p.tracker.Increment(1)
}

// Done returns once the renderer has drawn the final state and exited. Stop
// is a no-op until Render has set up, so it is repeated until that happens.
func (p *barProgress) Done() {
	p.tracker.MarkAsDone()
	for {
		p.pw.Stop()
		select {
		case <-p.finished:
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}
