//go:build unix && !(linux || freebsd || netbsd || openbsd || dragonfly || solaris)

package core

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// newStreamSocket opens a TCP socket and marks it close-on-exec. No
// SOCK_CLOEXEC here, so ForkLock keeps a concurrent fork from inheriting it.
func newStreamSocket(domain int) (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}
