//go:build unix

package core

import (
	"os/signal"

	"golang.org/x/sys/unix"
)

var (
	transientErrnos = []error{unix.EINTR}
	peerGoneErrnos  = []error{unix.EPIPE, unix.ECONNRESET}
)

// IgnoreBrokenPipe makes writes to a peer that closed its read side fail
// with EPIPE instead of delivering SIGPIPE. Call once before serving.
func IgnoreBrokenPipe() {
	signal.Ignore(unix.SIGPIPE)
}
