package bufpool

import (
	"sync"
)

// ChunkSize is the size of the buffers used by the copy pipeline.
const ChunkSize = 1024 * 1024 // 1MB

// Pool provides fixed-size byte buffers.
// Buffers are reused across files to keep peak memory flat.
type Pool struct {
	pool    sync.Pool
	bufSize int
}

// New creates a pool whose buffers are exactly bufSize bytes.
func New(bufSize int) *Pool {
	if bufSize <= 0 {
		panic("bufSize must be positive")
	}
	p := &Pool{bufSize: bufSize}
	p.pool.New = func() any {
		buf := make([]byte, bufSize)
		return &buf
	}
	return p
}

// Get returns a buffer of exactly BufSize bytes.
func (p *Pool) Get() []byte {
	buf := *p.pool.Get().(*[]byte)
	if cap(buf) < p.bufSize {
		return make([]byte, p.bufSize)
	}
	return buf[:p.bufSize]
}

// Put returns a buffer to the pool. The caller must not touch it afterwards.
// Buffers smaller than BufSize are dropped.
func (p *Pool) Put(buf []byte) {
	if cap(buf) < p.bufSize {
		return
	}
	buf = buf[:p.bufSize]
	p.pool.Put(&buf)
}

// BufSize returns the size of buffers in this pool.
func (p *Pool) BufSize() int {
	return p.bufSize
}
