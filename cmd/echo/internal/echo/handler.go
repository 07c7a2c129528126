package echo

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

const defaultRecordTimeout = 5 * time.Second

// Handler implements core.ConnectionHandler for the bounded echo protocol:
// read one message, write one response, close.
type Handler struct {
	// Recorder, if set, receives one Session per served connection.
	Recorder core.SessionRecorder
	Stats    *core.Stats

	RecordTimeout time.Duration
}

// HandleConnection implements core.ConnectionHandler.
// The connection is closed on every path before the session is recorded.
func (h *Handler) HandleConnection(conn net.Conn) {
	session := h.serve(conn)
	h.Stats.Observe(session.Outcome)

	if h.Recorder == nil {
		return
	}
	timeout := h.RecordTimeout
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Recorder.Record(ctx, session); err != nil {
		logger.Warn("Failed to record session", "peer_addr", session.PeerAddr, "error", err)
	}
}

func (h *Handler) serve(conn net.Conn) core.Session {
	defer conn.Close()

	host, port := core.PeerOf(conn)
	session := core.Session{PeerAddr: host, PeerPort: port, Started: time.Now()}
	log := logger.With("peer_addr", host, "peer_port", port)

	msg, err := NewReader(conn).ReadMessage()
	session.ContentLen = msg.Len()
	if err != nil {
		log.Error("Read failed", "error", err)
		session.Outcome = core.OutcomeReadError
	} else {
		session.Outcome = respond(conn, &msg, log)
	}

	session.Duration = time.Since(session.Started)
	return session
}

func respond(conn net.Conn, msg *Message, log *slog.Logger) core.Outcome {
	payload := msg.Response()
	if payload == nil {
		log.Info("Connection closed with no data")
		return core.OutcomeEmpty
	}

	if _, err := conn.Write(payload); err != nil {
		if core.IsPeerGone(err) {
			log.Debug("Peer went away before response", "error", err)
		} else {
			log.Error("Write failed", "error", err)
		}
		return core.OutcomeWriteError
	}

	if msg.Overflow() {
		log.Info("Overlong message rejected", "stored_bytes", msg.Len())
		return core.OutcomeOverflow
	}
	log.Info("Echoed message", "content", string(msg.Content()), "bytes", msg.Len())
	return core.OutcomeEchoed
}
