package core_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/echo"
)

// orderedHandler records the peer port of each connection before serving it.
type orderedHandler struct {
	next core.ConnectionHandler

	mu    sync.Mutex
	ports []int
}

func (h *orderedHandler) HandleConnection(conn net.Conn) {
	_, port := core.PeerOf(conn)
	h.mu.Lock()
	h.ports = append(h.ports, port)
	h.mu.Unlock()
	h.next.HandleConnection(conn)
}

func (h *orderedHandler) served() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.ports...)
}

func startServer(t *testing.T, handler core.ConnectionHandler) (*core.Server, string, <-chan error) {
	t.Helper()
	ln, err := core.Listen("127.0.0.1", 0)
	require.NoError(t, err)

	srv := &core.Server{Listener: ln, ConnectionHandler: handler, Stats: &core.Stats{}}
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() { ln.Close() })
	return srv, ln.Addr().String(), done
}

func dial(t *testing.T, addr string) *net.TCPConn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err, "Failed to connect to server")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return conn.(*net.TCPConn)
}

func readAll(t *testing.T, conn net.Conn) string {
	t.Helper()
	out, err := io.ReadAll(conn)
	require.NoError(t, err, "Failed to read response")
	return string(out)
}

func TestListen(t *testing.T) {
	ln, err := core.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	assert.NotZero(t, addr.Port)
	assert.Equal(t, "127.0.0.1", addr.IP.String())

	t.Run("port in use", func(t *testing.T) {
		_, err := core.Listen("127.0.0.1", uint16(addr.Port))
		assert.Error(t, err)
	})

	t.Run("unparsable address", func(t *testing.T) {
		_, err := core.Listen("localhost", 0)
		assert.Error(t, err)
		_, err = core.Listen("256.1.1.1", 0)
		assert.Error(t, err)
	})
}

func TestServeOneResponsePerConnection(t *testing.T) {
	srv, addr, _ := startServer(t, &echo.Handler{})

	for i := 0; i < 5; i++ {
		conn := dial(t, addr)
		_, err := fmt.Fprintf(conn, "msg-%d\n", i)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("msg-%d\n", i), readAll(t, conn))
	}

	assert.Equal(t, int64(5), srv.Stats.Snapshot().Accepted)
}

func TestServeIsSequential(t *testing.T) {
	_, addr, _ := startServer(t, &echo.Handler{})

	// a holds the server: no terminator yet.
	a := dial(t, addr)
	_, err := io.WriteString(a, "slow")
	require.NoError(t, err)

	b := dial(t, addr)
	_, err = io.WriteString(b, "fast\n")
	require.NoError(t, err)

	require.NoError(t, b.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err = b.Read(make([]byte, 16))
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "b must wait behind a, got %v", err)

	_, err = io.WriteString(a, "\n")
	require.NoError(t, err)
	assert.Equal(t, "slow\n", readAll(t, a))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(5*time.Second)))
	assert.Equal(t, "fast\n", readAll(t, b))
}

func TestServeQueuedConnectionsInAcceptOrder(t *testing.T) {
	h := &orderedHandler{next: &echo.Handler{}}
	_, addr, _ := startServer(t, h)

	blocker := dial(t, addr)
	_, err := io.WriteString(blocker, "hold")
	require.NoError(t, err)

	// Dial one at a time so the kernel queue order is known.
	const queued = 8
	conns := make([]*net.TCPConn, queued)
	want := []int{blocker.LocalAddr().(*net.TCPAddr).Port}
	for i := range conns {
		conns[i] = dial(t, addr)
		_, err := io.WriteString(conns[i], "q"+strconv.Itoa(i)+"\n")
		require.NoError(t, err)
		want = append(want, conns[i].LocalAddr().(*net.TCPAddr).Port)
	}

	_, err = io.WriteString(blocker, "\n")
	require.NoError(t, err)
	assert.Equal(t, "hold\n", readAll(t, blocker))

	var g errgroup.Group
	for i, c := range conns {
		i, c := i, c
		g.Go(func() error {
			out, err := io.ReadAll(c)
			if err != nil {
				return err
			}
			if got, exp := string(out), "q"+strconv.Itoa(i)+"\n"; got != exp {
				return fmt.Errorf("conn %d: got %q, want %q", i, got, exp)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, want, h.served())
}

func TestServeReturnsWhenListenerClosed(t *testing.T) {
	srv, _, done := startServer(t, &echo.Handler{})

	require.NoError(t, srv.Listener.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after listener close")
	}
}

// flakyListener fails Accept a few times before delegating.
type flakyListener struct {
	net.Listener
	failures int
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("too many open files")
	}
	return l.Listener.Accept()
}

func TestServeSurvivesAcceptErrors(t *testing.T) {
	ln, err := core.Listen("127.0.0.1", 0)
	require.NoError(t, err)
	defer ln.Close()

	stats := &core.Stats{}
	srv := &core.Server{
		Listener:          &flakyListener{Listener: ln, failures: 3},
		ConnectionHandler: &echo.Handler{},
		Stats:             stats,
	}
	go srv.Serve()

	conn := dial(t, ln.Addr().String())
	_, err = io.WriteString(conn, "still here\n")
	require.NoError(t, err)
	assert.Equal(t, "still here\n", readAll(t, conn))
	assert.Equal(t, int64(3), stats.Snapshot().AcceptErrors)
}
