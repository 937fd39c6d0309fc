package crsf

// RingSize is the parser's byte capacity.
const RingSize = 1024

// ring is a fixed-capacity byte FIFO. When a push would overflow, the oldest
// bytes are dropped; they cannot complete a frame the newest bytes belong to.
type ring struct {
	buf  [RingSize]byte
	head int
	size int
}

// push appends p and returns how many old bytes were overwritten.
func (r *ring) push(p []byte) int {
	dropped := 0
	if len(p) > RingSize {
		dropped += len(p) - RingSize
		p = p[len(p)-RingSize:]
	}
	if over := r.size + len(p) - RingSize; over > 0 {
		r.discard(over)
		dropped += over
	}
	for _, b := range p {
		r.buf[(r.head+r.size)%RingSize] = b
		r.size++
	}
	return dropped
}

func (r *ring) peek(i int) byte {
	return r.buf[(r.head+i)%RingSize]
}

func (r *ring) discard(n int) {
	if n > r.size {
		n = r.size
	}
	r.head = (r.head + n) % RingSize
	r.size -= n
}

// copyTo fills dst from the front of the buffer without consuming.
func (r *ring) copyTo(dst []byte) {
	for i := range dst {
		dst[i] = r.peek(i)
	}
}
