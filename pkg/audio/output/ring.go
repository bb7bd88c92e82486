// ABOUTME: Blocking byte ring buffer for callback-driven backends
// ABOUTME: Writers block while full, the device callback never blocks
package output

import "sync"

// RingBuffer is a bounded PCM byte queue between Write and a device callback
type RingBuffer struct {
	buffer   []byte
	readPos  int
	writePos int
	count    int // Number of bytes currently in buffer
	closed   bool

	mu      sync.Mutex
	notFull *sync.Cond
}

// NewRingBuffer creates a ring buffer with given capacity (in bytes)
func NewRingBuffer(capacity int) *RingBuffer {
	rb := &RingBuffer{
		buffer: make([]byte, capacity),
	}
	rb.notFull = sync.NewCond(&rb.mu)
	return rb
}

// Write copies p into the buffer, blocking while it is full.
// It returns ErrClosed if the buffer is closed before p is fully queued.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for written < len(p) {
		for rb.count == len(rb.buffer) && !rb.closed {
			rb.notFull.Wait()
		}
		if rb.closed {
			return written, ErrClosed
		}

		for written < len(p) && rb.count < len(rb.buffer) {
			end := rb.writePos + len(rb.buffer) - rb.count
			if end > len(rb.buffer) {
				end = len(rb.buffer)
			}
			n := copy(rb.buffer[rb.writePos:end], p[written:])
			rb.writePos = (rb.writePos + n) % len(rb.buffer)
			rb.count += n
			written += n
		}
	}
	return written, nil
}

// Read fills p with queued bytes without blocking. Only whole multiples of
// align are taken so frames are never split; the rest of p is zero-filled.
func (rb *RingBuffer) Read(p []byte, align int) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if align < 1 {
		align = 1
	}

	want := rb.count
	if want > len(p) {
		want = len(p)
	}
	want -= want % align

	read := 0
	for read < want {
		end := rb.readPos + (want - read)
		if end > len(rb.buffer) {
			end = len(rb.buffer)
		}
		n := copy(p[read:], rb.buffer[rb.readPos:end])
		rb.readPos = (rb.readPos + n) % len(rb.buffer)
		rb.count -= n
		read += n
	}

	// Zero-fill remaining if underrun
	clear(p[read:])

	if read > 0 {
		rb.notFull.Broadcast()
	}
	return read
}

// Close wakes blocked writers; later writes fail with ErrClosed
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	rb.closed = true
	rb.mu.Unlock()
	rb.notFull.Broadcast()
}
