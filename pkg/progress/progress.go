// Package progress provides a single-writer, latest-value-wins channel for
// reporting how many files of a phase have been processed.
//
// The Sender belongs to the goroutine driving a copy or verify phase. Any
// number of Receivers can observe it. Receivers see snapshots and may miss
// intermediate values, but a Receiver never sees a value older than one it
// has already seen, and the final value is always visible after Close.
package progress

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrTotalFixed is returned when Begin is called again with another total.
	ErrTotalFixed = errors.New("progress total already fixed")
	// ErrClosed is returned by Receiver.Changed once the sender is closed and
	// every published value has been observed.
	ErrClosed = errors.New("progress channel closed")
)

// Progress is a snapshot of a phase.
type Progress struct {
	Total     int
	Completed int
}

// Done reports whether every file has been processed.
func (p Progress) Done() bool {
	return p.Completed >= p.Total
}

// Fraction returns Completed/Total, or 0 when Total is 0.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) / float64(p.Total)
}

type state struct {
	mu      sync.Mutex
	value   Progress
	begun   bool
	version uint64
	closed  bool
	changed chan struct{}
}

// publish stores v and wakes every waiting receiver. Callers hold mu.
func (st *state) publish(v Progress) {
	st.value = v
	st.version++
	close(st.changed)
	st.changed = make(chan struct{})
}

// Sender is the write side of the channel.
type Sender struct {
	st *state
}

// New returns a Sender holding the zero Progress.
func New() *Sender {
	return &Sender{st: &state{changed: make(chan struct{})}}
}

// Begin publishes {total, 0}. The total can only be set once per phase.
func (s *Sender) Begin(total int) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if s.st.closed {
		return ErrClosed
	}
	if s.st.begun {
		if s.st.value.Total != total {
			return ErrTotalFixed
		}
		return nil
	}
	if total < 0 {
		total = 0
	}
	s.st.begun = true
	s.st.publish(Progress{Total: total})
	return nil
}

// Advance publishes Completed+1. It is a no-op once Completed reaches Total.
func (s *Sender) Advance() {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if s.st.closed || s.st.value.Completed >= s.st.value.Total {
		return
	}
	next := s.st.value
	next.Completed++
	s.st.publish(next)
}

// Close marks the phase finished. Waiting receivers are woken.
func (s *Sender) Close() {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if s.st.closed {
		return
	}
	s.st.closed = true
	close(s.st.changed)
}

// Subscribe returns a new Receiver. The current value counts as unseen.
func (s *Sender) Subscribe() *Receiver {
	return &Receiver{st: s.st}
}

// Receiver is a read-only view of a Sender.
type Receiver struct {
	st   *state
	seen uint64
}

// Borrow returns the latest value without marking it as seen.
func (r *Receiver) Borrow() Progress {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.value
}

// Closed reports whether the sender has finished.
func (r *Receiver) Closed() bool {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.closed
}

// Clone returns an independent receiver that has seen what r has seen.
func (r *Receiver) Clone() *Receiver {
	return &Receiver{st: r.st, seen: r.seen}
}

// Changed blocks until a value this receiver has not seen is available and
// returns it. It returns ErrClosed once the sender is closed and the latest
// value was already seen, or ctx.Err() if ctx ends first.
func (r *Receiver) Changed(ctx context.Context) (Progress, error) {
	for {
		r.st.mu.Lock()
		if r.st.version > r.seen {
			r.seen = r.st.version
			v := r.st.value
			r.st.mu.Unlock()
			return v, nil
		}
		if r.st.closed {
			v := r.st.value
			r.st.mu.Unlock()
			return v, ErrClosed
		}
		wait := r.st.changed
		r.st.mu.Unlock()

		select {
		case <-ctx.Done():
			return r.Borrow(), ctx.Err()
		case <-wait:
		}
	}
}
