package core

import (
	"context"
	"net"
	"time"
)

// ConnectionHandler serves one accepted connection to completion.
// It takes full ownership of the connection and must close it before returning.
type ConnectionHandler interface {
	HandleConnection(conn net.Conn)
}

// Outcome describes how a connection's single read/response cycle ended.
type Outcome string

const (
	OutcomeEchoed     Outcome = "echoed"
	OutcomeOverflow   Outcome = "overflow"
	OutcomeEmpty      Outcome = "empty"
	OutcomeReadError  Outcome = "read_error"
	OutcomeWriteError Outcome = "write_error"
)

// Session is the record of one served connection.
type Session struct {
	PeerAddr   string
	PeerPort   int
	Outcome    Outcome
	ContentLen int
	Started    time.Time
	Duration   time.Duration
}

// SessionRecorder persists served sessions somewhere (a database, a test slice).
// Implementations must not retain the session beyond the call.
type SessionRecorder interface {
	Record(ctx context.Context, s Session) error
}

// PeerOf splits a connection's remote address into host and port.
// Addresses that are not TCP come back as their string form with port 0.
func PeerOf(conn net.Conn) (string, int) {
	addr := conn.RemoteAddr()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	if addr == nil {
		return "", 0
	}
	return addr.String(), 0
}
