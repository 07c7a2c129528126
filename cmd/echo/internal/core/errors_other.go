//go:build !unix

package core

import "syscall"

var (
	transientErrnos = []error{syscall.EINTR}
	peerGoneErrnos  = []error{syscall.EPIPE, syscall.ECONNRESET}
)

// IgnoreBrokenPipe is a no-op where SIGPIPE does not exist.
func IgnoreBrokenPipe() {}
