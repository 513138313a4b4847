// Package fanout copies one source file to many destinations, reading the
// source once.
//
// Two equally sized buffers alternate between a read role and a write role.
// While every destination writes the chunk held by the write buffer, the next
// chunk is read into the other one. Both sides are joined before the roles
// swap, so a buffer is never refilled while a write from it is in flight.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/bufpool"
)

var (
	ErrOpenSource        = errors.New("open source file")
	ErrCreateDestination = errors.New("create destination file")
	ErrSameFile          = errors.New("destination is the source file")
	ErrRead              = errors.New("read source file")
	ErrWrite             = errors.New("write destination file")
	ErrFlush             = errors.New("flush destination file")
)

// Pipeline copies files with a fixed chunk size.
type Pipeline struct {
	pool *bufpool.Pool
	sync bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunkSize overrides the 1MB chunk size.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.pool = bufpool.New(size)
		}
	}
}

// WithoutSync skips fsync of destinations after the last chunk. Data is still
// handed to the OS before the copy returns.
func WithoutSync() Option {
	return func(p *Pipeline) {
		p.sync = false
	}
}

var sharedPool = bufpool.New(bufpool.ChunkSize)

// New creates a pipeline. Pipelines are safe for concurrent use.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		pool: sharedPool,
		sync: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChunkSize returns the size of a single read.
func (p *Pipeline) ChunkSize() int {
	return p.pool.BufSize()
}

// CopyFile copies src to every path in dsts and returns the number of bytes
// copied, which equals the size of src on success.
//
// Destinations are created or truncated up front, so an empty source still
// produces empty destinations. The first error from the source or any
// destination aborts the copy. Writes already started for the same chunk run
// to completion, and partially written destinations are left in place. On
// error the returned count is the number of bytes that reached every
// destination.
func (p *Pipeline) CopyFile(ctx context.Context, src string, dsts []string) (int64, error) {
	source, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOpenSource, err)
	}
	defer source.Close()

	srcInfo, err := source.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOpenSource, err)
	}

	dests := make([]*os.File, 0, len(dsts))
	closed := false
	defer func() {
		if !closed {
			for _, f := range dests {
				f.Close()
			}
		}
	}()

	for _, path := range dsts {
		if info, err := os.Stat(path); err == nil && os.SameFile(srcInfo, info) {
			return 0, fmt.Errorf("%w: %s", ErrSameFile, path)
		}
		f, err := os.Create(path)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCreateDestination, err)
		}
		dests = append(dests, f)
	}

	writers := make([]io.Writer, len(dests))
	for i, f := range dests {
		writers[i] = f
	}

	written, err := p.copyChunks(ctx, source, writers)
	if err != nil {
		return written, err
	}

	closed = true
	if err := p.finish(dests); err != nil {
		return written, err
	}

	return written, nil
}

// copyChunks reads source once and writes every chunk to all writers. On
// error the returned count is the number of bytes that reached every writer.
func (p *Pipeline) copyChunks(ctx context.Context, source io.Reader, writers []io.Writer) (int64, error) {
	filled := p.pool.Get()
	spare := p.pool.Get()
	defer func() {
		p.pool.Put(filled)
		p.pool.Put(spare)
	}()

	n, err := readChunk(source, filled)
	if err != nil {
		return 0, err
	}

	var written int64
	for n > 0 {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		chunk := filled[:n]
		var next int
		var readErr error
		var g errgroup.Group

		g.Go(func() error {
			next, readErr = readChunk(source, spare)
			return nil
		})
		for _, w := range writers {
			g.Go(func() error {
				if _, err := w.Write(chunk); err != nil {
					return fmt.Errorf("%w: %w", ErrWrite, err)
				}
				return nil
			})
		}

		// Barrier: the read buffer and every writer are released together
		if err := g.Wait(); err != nil {
			return written, err
		}

		written += int64(n)
		if readErr != nil {
			return written, readErr
		}
		filled, spare = spare, filled
		n = next
	}

	return written, nil
}

// finish flushes every destination concurrently and closes them.
func (p *Pipeline) finish(dests []*os.File) error {
	var g errgroup.Group
	for _, f := range dests {
		g.Go(func() error {
			if p.sync {
				if err := f.Sync(); err != nil && !errors.Is(err, errors.ErrUnsupported) {
					f.Close()
					return fmt.Errorf("%w: %w", ErrFlush, err)
				}
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("%w: %w", ErrFlush, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// readChunk fills buf as far as the source allows. A return of 0 bytes with a
// nil error means end of file.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return n, nil
}

var defaultPipeline = New()

// CopyFile copies src to dsts with the default pipeline.
func CopyFile(ctx context.Context, src string, dsts []string) (int64, error) {
	return defaultPipeline.CopyFile(ctx, src, dsts)
}
