package frame

import (
	"errors"
	"sync"
)

// MaxBufferSize bounds a single payload region, 1GiB.
const MaxBufferSize = 1 << 30

var ErrAllocationFailed = errors.New("unable to allocate frame buffer")

type Origin int

const (
	Application Origin = iota
	Transport
)

func (o Origin) String() string {
	if o == Transport {
		return "transport"
	}
	return "application"
}

var (
	liveMu sync.Mutex
	live   int
)

// LiveBuffers reports how many buffers have been allocated and not yet freed.
func LiveBuffers() int {
	liveMu.Lock()
	defer liveMu.Unlock()
	return live
}

// Buffer is a fixed size memory region a device driver writes frames into.
type Buffer struct {
	index  int
	origin Origin
	mu     sync.Mutex
	data   []byte
	freed  bool
}

func NewBuffer(size int, origin Origin) (*Buffer, error) {
	if size <= 0 || size > MaxBufferSize {
		return nil, ErrAllocationFailed
	}
	b := &Buffer{origin: origin, data: make([]byte, size)}
	liveMu.Lock()
	live++
	liveMu.Unlock()
	return b, nil
}

func (b *Buffer) Index() int { return b.index }

func (b *Buffer) SetIndex(i int) { b.index = i }

func (b *Buffer) Origin() Origin { return b.origin }

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Bytes returns nil once the buffer has been freed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

func (b *Buffer) Freed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}

// Free drops the payload region, calling it more than once is a no-op.
func (b *Buffer) Free() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.freed {
		return
	}
	b.freed = true
	b.data = nil
	liveMu.Lock()
	live--
	liveMu.Unlock()
}
