package echo

// MaxLen is the largest message content, in bytes, that is echoed back.
// The bound is inclusive.
const MaxLen = 20

// Buffer is a fixed-capacity, append-only accumulation buffer. It never holds
// more than MaxLen bytes; once full, further bytes only set the overflow flag.
type Buffer struct {
	data     [MaxLen]byte
	n        int
	overflow bool
}

// Append stores c if there is room, otherwise marks the buffer overflowed
// and drops c.
func (b *Buffer) Append(c byte) {
	if b.n < MaxLen {
		b.data[b.n] = c
		b.n++
		return
	}
	b.overflow = true
}

// Len returns the number of stored bytes.
func (b *Buffer) Len() int { return b.n }

// Overflowed reports whether at least one byte was dropped.
func (b *Buffer) Overflowed() bool { return b.overflow }

// Bytes returns the stored content. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data[:b.n:b.n] }
