package echo

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferBound(t *testing.T) {
	var b Buffer
	for i := 0; i < MaxLen; i++ {
		b.Append('a' + byte(i))
	}
	assert.Equal(t, MaxLen, b.Len())
	assert.False(t, b.Overflowed(), "exactly MaxLen bytes is not an overflow")

	b.Append('!')
	b.Append('!')
	assert.Equal(t, MaxLen, b.Len())
	assert.True(t, b.Overflowed())
	assert.Equal(t, "abcdefghijklmnopqrst", string(b.Bytes()))
	assert.Equal(t, MaxLen, cap(b.Bytes()), "callers cannot append past the bound")
}

func TestReadMessage(t *testing.T) {
	twenty := strings.Repeat("x", MaxLen)
	twentyOne := strings.Repeat("y", MaxLen+1)

	tests := []struct {
		name       string
		input      string
		response   string
		silent     bool
		overflow   bool
		terminated bool
	}{
		{name: "newline terminated", input: "hello\n", response: "hello\n", terminated: true},
		{name: "carriage return terminated", input: "hello\r", response: "hello\n", terminated: true},
		{name: "empty line", input: "\n", response: "\n", terminated: true},
		{name: "immediate eof", input: "", silent: true},
		{name: "eof without terminator", input: "abc", response: "abc\n"},
		{name: "exactly max len", input: twenty + "\n", response: twenty + "\n", terminated: true},
		{name: "max len plus one", input: twentyOne + "\n", response: "ERR too long\n", overflow: true, terminated: true},
		{name: "overlong eof", input: twentyOne, response: "ERR too long\n", overflow: true},
		{name: "max len at eof", input: twenty, response: twenty + "\n"},
		{name: "stops at first terminator", input: "ab\ncd\n", response: "ab\n", terminated: true},
		{name: "binary content", input: "a\x00b\tc\n", response: "a\x00b\tc\n", terminated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ReadMessage(strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Equal(t, tt.overflow, msg.Overflow())
			assert.Equal(t, tt.terminated, msg.Terminated)
			if tt.silent {
				assert.Nil(t, msg.Response())
				return
			}
			assert.Equal(t, tt.response, string(msg.Response()))
		})
	}
}

func TestReadMessageHugeInputStaysBounded(t *testing.T) {
	input := strings.Repeat("z", 1<<20) + "\n"

	msg, err := ReadMessage(bufio.NewReader(strings.NewReader(input)))
	require.NoError(t, err)

	assert.True(t, msg.Overflow())
	assert.Equal(t, MaxLen, msg.Len())
	assert.Equal(t, MaxLen, cap(msg.Content()))
	assert.Equal(t, "ERR too long\n", string(msg.Response()))
}

func TestReaderDrainsOverlongMessage(t *testing.T) {
	r := NewReader(strings.NewReader(strings.Repeat("q", 30) + "\nnext\r\n"))

	first, err := r.ReadMessage()
	require.NoError(t, err)
	assert.True(t, first.Overflow())

	second, err := r.ReadMessage()
	require.NoError(t, err)
	assert.False(t, second.Overflow())
	assert.Equal(t, "next", string(second.Content()))

	// "\r\n" frames as two messages; the trailing "\n" is an empty one.
	third, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "\n", string(third.Response()))

	last, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Nil(t, last.Response())
}

// scriptedReader returns its steps one Read call at a time.
type scriptedReader struct {
	steps []step
}

type step struct {
	data string
	err  error
}

func (s *scriptedReader) Read(p []byte) (int, error) {
	if len(s.steps) == 0 {
		return 0, io.EOF
	}
	st := s.steps[0]
	s.steps = s.steps[1:]
	n := copy(p, st.data)
	return n, st.err
}

func TestReadMessageRetriesInterruptedReads(t *testing.T) {
	r := NewReader(&scriptedReader{steps: []step{
		{data: "he"},
		{err: syscall.EINTR},
		{err: syscall.EINTR},
		{data: "llo\n"},
	}})

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(msg.Response()))
}

func TestReadMessageReturnsHardErrors(t *testing.T) {
	boom := errors.New("connection torn down")
	r := NewReader(&scriptedReader{steps: []step{
		{data: "ab"},
		{err: boom},
	}})

	msg, err := r.ReadMessage()
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, msg.Len())
}
