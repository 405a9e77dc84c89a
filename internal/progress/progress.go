// Package progress wires the engine's optional, orthogonal progress events
// to a terminal progress bar. Internal packages depend only on
// engine.Reporter / iocodec.Progress; this package is the one place that
// imports a display library, kept out of the engine itself per the
// plumbing-vs-core split.
package progress

import (
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// Bar wraps a cheggaaa/pb bar behind the engine.Reporter contract.
type Bar struct {
	mu   sync.Mutex
	bar  *pb.ProgressBar
	done int
}

// NewTableReporter returns a Bar tracking per-table anonymize completion.
func NewTableReporter(totalTables int) *Bar {
	bar := pb.New(totalTables)
	bar.SetTemplateString(`{{ green "anonymize" }} {{counters . }} {{ bar . }} {{percent . }}`)
	bar.Start()
	return &Bar{bar: bar}
}

func (b *Bar) TableStarted(string) {}

func (b *Bar) TableFinished(table string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done++
	b.bar.SetCurrent(int64(b.done))
	if b.done >= int(b.bar.Total()) {
		b.bar.Finish()
	}
}

func (b *Bar) SeedRowInserted(n, total int) {}

// NewStreamReporter returns a byte-count bar suitable for iocodec.Progress,
// sized from a dump-size estimate when known (falling back to an
// indeterminate spinner otherwise).
func NewStreamReporter(label string, total int64, known bool) (*pb.ProgressBar, func(written int64)) {
	var bar *pb.ProgressBar
	if known {
		bar = pb.Full.Start64(total)
	} else {
		bar = pb.New64(0)
		bar.SetTemplateString(`{{ green "` + label + `" }} {{counters . }} {{speed . }}`)
		bar.Start()
	}
	return bar, func(written int64) { bar.SetCurrent(written) }
}
