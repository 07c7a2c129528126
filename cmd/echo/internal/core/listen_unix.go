//go:build unix

package core

import (
	"fmt"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"
)

// Listen creates the passive echo endpoint bound to address:port with a
// listen queue of Backlog pending connections. address must be an IPv4 or
// IPv6 literal; port 0 picks an ephemeral port.
func Listen(address string, port uint16) (net.Listener, error) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return nil, fmt.Errorf("invalid bind address %q: %w", address, err)
	}
	ip = ip.Unmap()

	domain, sa, err := sockaddr(ip, port)
	if err != nil {
		return nil, err
	}

	fd, err := newStreamSocket(domain)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind %s: %w", netip.AddrPortFrom(ip, port), os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, Backlog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor, so the file is closed either way.
	f := os.NewFile(uintptr(fd), "xecho-listener")
	defer f.Close()

	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap listening socket: %w", err)
	}
	return ln, nil
}

func sockaddr(ip netip.Addr, port uint16) (int, unix.Sockaddr, error) {
	if ip.Is4() {
		return unix.AF_INET, &unix.SockaddrInet4{Port: int(port), Addr: ip.As4()}, nil
	}

	sa := &unix.SockaddrInet6{Port: int(port), Addr: ip.As16()}
	if zone := ip.Zone(); zone != "" {
		ifi, err := net.InterfaceByName(zone)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid bind address zone %q: %w", zone, err)
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return unix.AF_INET6, sa, nil
}
