//go:build linux || freebsd || netbsd || openbsd || dragonfly || solaris

package core

import "golang.org/x/sys/unix"

// newStreamSocket opens a TCP socket that is close-on-exec from creation.
func newStreamSocket(domain int) (int, error) {
	return unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}
