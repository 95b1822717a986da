package general

import "sync"

// BoundedBuffer keeps the most recent capacity elements in insertion order.
type BoundedBuffer[T any] struct {
	buffer     []T
	bufferSize int
	mutex      sync.RWMutex
}

func NewBoundedBuffer[T any](bufferSize int) *BoundedBuffer[T] {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &BoundedBuffer[T]{
		buffer:     make([]T, 0, bufferSize),
		bufferSize: bufferSize,
	}
}

func (bb *BoundedBuffer[T]) AddElement(element T) {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()
	if len(bb.buffer) >= bb.bufferSize {
		bb.buffer = bb.buffer[1:]
	}
	bb.buffer = append(bb.buffer, element)
}

// GetAllElements returns a copy, oldest first.
func (bb *BoundedBuffer[T]) GetAllElements() []T {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	out := make([]T, len(bb.buffer))
	copy(out, bb.buffer)
	return out
}

func (bb *BoundedBuffer[T]) GetLatestElement() (T, bool) {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()

	var zeroValue T
	if len(bb.buffer) == 0 {
		return zeroValue, false
	}
	return bb.buffer[len(bb.buffer)-1], true
}

func (bb *BoundedBuffer[T]) GetSize() int {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	return len(bb.buffer)
}

func (bb *BoundedBuffer[T]) GetIsFull() bool {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	return len(bb.buffer) >= bb.bufferSize
}

func (bb *BoundedBuffer[T]) Reset() {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()
	bb.buffer = bb.buffer[:0]
}
