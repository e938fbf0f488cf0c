package capture

import (
	"sync"
	"time"

	"github.com/tauraamui/framegrab/pkg/frame"
)

const DefaultQueueCapacity = 5

// Queue is the bounded hand-off between a device's frame handler and
// the consumer. Push blocks while the queue is full and Pop blocks
// while it is empty, frames come out in the order they went in.
type Queue struct {
	items     chan frame.Frame
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		items: make(chan frame.Frame, capacity),
		done:  make(chan struct{}),
	}
}

// Push never drops a frame, it either enqueues it or fails with
// ErrDeviceStopped once the queue has been closed.
func (q *Queue) Push(f frame.Frame) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrDeviceStopped
	}

	select {
	case <-q.done:
		return ErrDeviceStopped
	default:
	}

	select {
	case q.items <- f:
		return nil
	case <-q.done:
		return ErrDeviceStopped
	}
}

// Pop returns ErrEndOfStream once the queue is closed and drained.
func (q *Queue) Pop() (frame.Frame, error) {
	f, ok := <-q.items
	if !ok {
		return nil, ErrEndOfStream
	}
	return f, nil
}

func (q *Queue) PopTimeout(timeout time.Duration) (frame.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f, ok := <-q.items:
		if !ok {
			return nil, ErrEndOfStream
		}
		return f, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Next makes a queue usable as a consumer source.
func (q *Queue) Next() (frame.Frame, error) {
	return q.Pop()
}

// Close unblocks pending pushes and is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		defer q.mu.Unlock()
		q.closed = true
		close(q.items)
	})
}

func (q *Queue) IsClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Cap() int { return cap(q.items) }

// drain hands every frame still buffered to fn without blocking.
func (q *Queue) drain(fn func(frame.Frame)) int {
	n := 0
	for {
		select {
		case f, ok := <-q.items:
			if !ok {
				return n
			}
			fn(f)
			n++
		default:
			return n
		}
	}
}
