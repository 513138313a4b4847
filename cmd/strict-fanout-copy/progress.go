package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"

	"github.com/yuya-takeyama/strict-fanout-copy/pkg/progress"
)

const progressInterval = 200 * time.Millisecond

// progressPrinter renders phase progress. On a terminal the line is redrawn
// in place, otherwise every printed update gets its own line.
type progressPrinter struct {
	w        io.Writer
	tty      bool
	disabled bool
	interval time.Duration
}

func newProgressPrinter(f *os.File, quiet bool) *progressPrinter {
	return &progressPrinter{
		w:        f,
		tty:      isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
		disabled: quiet,
		interval: progressInterval,
	}
}

// Follow prints updates from rx until the phase ends or ctx is done. The
// final value is always printed, once.
func (p *progressPrinter) Follow(ctx context.Context, phase string, rx *progress.Receiver) {
	throttle := &rate.Sometimes{Interval: p.interval}
	var last progress.Progress
	printed := false

	for {
		v, err := rx.Changed(ctx)
		if err != nil {
			final := rx.Borrow()
			// A terminal still needs the closing newline
			if p.tty || !printed || final != last {
				p.print(phase, final, true)
			}
			return
		}
		throttle.Do(func() {
			p.print(phase, v, false)
			last = v
			printed = true
		})
	}
}

func (p *progressPrinter) print(phase string, v progress.Progress, final bool) {
	if p.disabled {
		return
	}

	line := fmt.Sprintf("%s: %d/%d files (%.0f%%)", phase, v.Completed, v.Total, v.Fraction()*100)
	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}

	fmt.Fprintf(p.w, "\r%s", line)
	if final {
		fmt.Fprintln(p.w)
	}
}
