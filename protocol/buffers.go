package protocol

// Fifo is a circular byte buffer used to stage serial input ahead of
// the sentence/packet framers. One slot is sacrificed to distinguish
// full from empty.
type Fifo struct {
	buf   []byte
	read  int
	write int
	size  int
}

// NewFifo creates a Fifo with the given capacity.
func NewFifo(capacity int) *Fifo {
	return &Fifo{
		buf:  make([]byte, capacity+1),
		size: capacity + 1,
	}
}

// Write appends data, returning the number of bytes accepted. Excess
// bytes are dropped when the buffer fills.
func (f *Fifo) Write(data []byte) int {
	written := 0
	for _, b := range data {
		next := (f.write + 1) % f.size
		if next == f.read {
			break
		}
		f.buf[f.write] = b
		f.write = next
		written++
	}
	return written
}

// ReadByte pops the next byte. ok is false when the buffer is empty.
func (f *Fifo) ReadByte() (b byte, ok bool) {
	if f.read == f.write {
		return 0, false
	}
	b = f.buf[f.read]
	f.read = (f.read + 1) % f.size
	return b, true
}

// Read fills p with up to len(p) bytes and returns the count.
func (f *Fifo) Read(p []byte) int {
	n := 0
	for i := range p {
		b, ok := f.ReadByte()
		if !ok {
			break
		}
		p[i] = b
		n++
	}
	return n
}

// Available returns the number of buffered bytes.
func (f *Fifo) Available() int {
	if f.write >= f.read {
		return f.write - f.read
	}
	return f.size - f.read + f.write
}

// Free returns the remaining write capacity.
func (f *Fifo) Free() int {
	return f.size - f.Available() - 1
}

// Peek returns the next byte without consuming it.
func (f *Fifo) Peek() (b byte, ok bool) {
	if f.read == f.write {
		return 0, false
	}
	return f.buf[f.read], true
}

// Pop discards up to n bytes from the front.
func (f *Fifo) Pop(n int) {
	for i := 0; i < n && f.read != f.write; i++ {
		f.read = (f.read + 1) % f.size
	}
}

// Drain discards everything, leaving the buffer empty.
func (f *Fifo) Drain() {
	f.read = f.write
}

// IsEmpty reports whether no bytes are buffered.
func (f *Fifo) IsEmpty() bool {
	return f.read == f.write
}
