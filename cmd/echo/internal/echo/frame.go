package echo

import (
	"bufio"
	"io"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
)

// TooLongResponse is the exact response sent for an overlong message.
var TooLongResponse = []byte("ERR too long\n")

func isTerminator(c byte) bool {
	return c == '\n' || c == '\r'
}

// Message is one framed request.
type Message struct {
	buf Buffer
	// Terminated is true when a '\n' or '\r' ended the message and false when
	// the stream ended first.
	Terminated bool
}

// Content returns the stored content bytes, without the terminator.
func (m *Message) Content() []byte { return m.buf.Bytes() }

// Len returns the number of stored content bytes.
func (m *Message) Len() int { return m.buf.Len() }

// Overflow reports whether the content exceeded MaxLen.
func (m *Message) Overflow() bool { return m.buf.Overflowed() }

// Response returns the bytes to write back for m, or nil when nothing must
// be written (the stream ended before any byte arrived).
func (m *Message) Response() []byte {
	switch {
	case m.Overflow():
		return TooLongResponse
	case m.Len() > 0 || m.Terminated:
		out := make([]byte, 0, m.Len()+1)
		out = append(out, m.Content()...)
		return append(out, '\n')
	default:
		return nil
	}
}

// ReadMessage consumes bytes from r up to and including the first terminator,
// or up to end of stream. Content beyond MaxLen is drained but not stored, so
// r is left positioned right after the message either way.
//
// Interrupted reads are retried. Any other read error is returned together
// with whatever was accumulated so far.
func ReadMessage(r io.ByteReader) (Message, error) {
	var m Message
	for {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return m, nil
			}
			if core.IsTransient(err) {
				continue
			}
			return m, err
		}
		if isTerminator(c) {
			m.Terminated = true
			return m, nil
		}
		m.buf.Append(c)
	}
}

// Reader frames messages from a byte stream. It buffers reads, so bytes past
// a terminator stay in the Reader for the next ReadMessage call.
type Reader struct {
	br *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

func (r *Reader) ReadMessage() (Message, error) {
	return ReadMessage(r.br)
}
