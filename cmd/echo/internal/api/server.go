package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/hasirciogluhq/xecho/cmd/echo/internal/core"
	"github.com/hasirciogluhq/xecho/cmd/echo/internal/logger"
)

// SessionLister exposes the most recent sessions, newest first.
type SessionLister interface {
	Recent(ctx context.Context, limit int) ([]core.Session, error)
}

const defaultSessionLimit = 50

type HealthServer struct {
	server   *http.Server
	ready    atomic.Bool
	stats    *core.Stats
	sessions SessionLister
}

// NewHealthServer builds the health server. sessions may be nil, in which
// case /sessions answers 404.
func NewHealthServer(addr string, stats *core.Stats, sessions SessionLister) *HealthServer {
	hs := &HealthServer{
		stats:    stats,
		sessions: sessions,
	}

	// Default to not ready until explicitly set
	hs.ready.Store(false)

	hs.server = &http.Server{
		Addr:    addr,
		Handler: hs.Routes(),
	}
	return hs
}

// Routes returns the HTTP handler serving all endpoints.
func (s *HealthServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/stats", s.handleStats)
	r.Get("/sessions", s.handleSessions)
	return r
}

func (s *HealthServer) Start() {
	go func() {
		logger.Info("Health server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()
}

func (s *HealthServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HealthServer) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}

func (s *HealthServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, r, http.StatusOK, s.stats.Snapshot())
}

type sessionView struct {
	Started    string `json:"started" yaml:"started"`
	PeerAddr   string `json:"peer_addr" yaml:"peer_addr"`
	PeerPort   int    `json:"peer_port" yaml:"peer_port"`
	Outcome    string `json:"outcome" yaml:"outcome"`
	ContentLen int    `json:"content_len" yaml:"content_len"`
	DurationUS int64  `json:"duration_us" yaml:"duration_us"`
}

func (s *HealthServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session journal disabled", http.StatusNotFound)
		return
	}

	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := s.sessions.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list sessions", "error", err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	views := make([]sessionView, 0, len(list))
	for _, ss := range list {
		views = append(views, sessionView{
			Started:    ss.Started.UTC().Format("2006-01-02T15:04:05.000000Z"),
			PeerAddr:   ss.PeerAddr,
			PeerPort:   ss.PeerPort,
			Outcome:    string(ss.Outcome),
			ContentLen: ss.ContentLen,
			DurationUS: ss.Duration.Microseconds(),
		})
	}
	writeResponse(w, r, http.StatusOK, views)
}

// wantYAML reports whether the client asked for YAML, via ?format=yaml or Accept.
func wantYAML(r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("format")), "yaml") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/x-yaml") || strings.Contains(accept, "text/yaml")
}

func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantYAML(r) {
		b, err := yaml.Marshal(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
		w.WriteHeader(status)
		w.Write(b)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
