package ingest

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress receives one call per directory entry. It never affects the data
// written by a run.
type Progress interface {
	Start(total int)
	Advance(name string)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int)      {}
func (nopProgress) Advance(string) {}
func (nopProgress) Finish()        {}

// NopProgress returns a Progress that does nothing.
func NopProgress() Progress { return nopProgress{} }

// Bar renders a single-line progress bar, redrawn in place.
type Bar struct {
	w     io.Writer
	model progress.Model
	total int
	done  int
}

// NewBar creates a bar writing to w, normally a terminal.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:     w,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Start implements Progress.
func (b *Bar) Start(total int) {
	b.total = total
	b.done = 0
	b.render()
}

// Advance implements Progress.
func (b *Bar) Advance(string) {
	b.done++
	b.render()
}

// Finish implements Progress.
func (b *Bar) Finish() {
	fmt.Fprintln(b.w)
}

// Percent returns the completed fraction in [0, 1].
func (b *Bar) Percent() float64 {
	if b.total <= 0 {
		return 1
	}
	return float64(b.done) / float64(b.total)
}

func (b *Bar) render() {
	fmt.Fprintf(b.w, "\r%s %d/%d", b.model.ViewAs(b.Percent()), b.done, b.total)
}
