//go:build !unix

package core

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Listen creates the passive echo endpoint bound to address:port. The
// pending-connection queue length is left to the platform.
func Listen(address string, port uint16) (net.Listener, error) {
	if _, err := netip.ParseAddr(address); err != nil {
		return nil, fmt.Errorf("invalid bind address %q: %w", address, err)
	}
	return net.Listen("tcp", net.JoinHostPort(address, strconv.Itoa(int(port))))
}
