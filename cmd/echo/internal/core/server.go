package core

import (
	"errors"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

// Backlog is the number of pending connections the listening endpoint queues
// while a connection is being served.
const Backlog = 128

const maxAcceptDelay = time.Second

// Server is the sequential accept/serve loop.
// Connections are handed to ConnectionHandler one at a time, in accept order;
// the next Accept happens only after the handler returns.
type Server struct {
	Listener          net.Listener
	ConnectionHandler ConnectionHandler
	Stats             *Stats

	// AcceptErrorLogRate caps "Accept failed" log lines per second.
	// Zero means one line per second.
	AcceptErrorLogRate float64

	limiter    *rate.Limiter
	suppressed int
}

// Serve starts accepting connections. It returns only when the listener is
// closed; every other accept failure is logged and the loop continues.
func (s *Server) Serve() error {
	var delay time.Duration
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if IsTransient(err) {
				continue
			}
			s.Stats.AcceptFailed()
			s.logAcceptError(err)

			// Back off so a persistent failure (e.g. EMFILE) does not spin.
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			time.Sleep(delay)
			continue
		}
		delay = 0

		s.Stats.Accepted()
		host, port := PeerOf(conn)
		logger.Info("Client connected", "peer_addr", host, "peer_port", port)

		s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	// Delegate the entire lifecycle to the handler
	s.ConnectionHandler.HandleConnection(conn)
}

func (s *Server) logAcceptError(err error) {
	if s.limiter == nil {
		limit := s.AcceptErrorLogRate
		if limit <= 0 {
			limit = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	}
	if !s.limiter.Allow() {
		s.suppressed++
		return
	}
	logger.Error("Accept failed", "error", err, "suppressed", s.suppressed)
	s.suppressed = 0
}
