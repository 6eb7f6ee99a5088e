// Package web exposes the HTTP surface: the webhook that feeds signals into
// the engine, a dashboard with an SSE equity stream, and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
	"go.uber.org/zap"
)

const (
	heartbeatInterval = 30 * time.Second

	// TokenHeader carries the shared webhook secret.
	TokenHeader = "X-Webhook-Token"
)

type signalHandler interface {
	HandleSignal(ctx context.Context, sig domain.Signal) domain.SignalResult
}

type snapshotReader interface {
	SnapshotsAfter(index uint64) ([]domain.EquitySnapshotRecord, error)
}

type snapshotFeed interface {
	Subscribe() chan domain.EquitySnapshot
	Unsubscribe(ch chan domain.EquitySnapshot)
}

// Server serves the webhook, the HTML dashboard and the SSE stream.
type Server struct {
	addr   string
	token  string
	engine signalHandler
	store  snapshotReader
	feed   snapshotFeed
	l      *zap.Logger
}

// NewServer creates a web server. token may be empty, in which case webhook
// authentication is disabled. store backs the stream's initial backlog and
// feed delivers live snapshots; either may be nil when snapshots are off.
func NewServer(addr, token string, engine signalHandler, store snapshotReader, feed snapshotFeed, l *zap.Logger) *Server {
	return &Server{addr: addr, token: token, engine: engine, store: store, feed: feed, l: l}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/snapshots/stream", s.handleSnapshotStream)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.token != "" && r.Header.Get(TokenHeader) != s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var sig domain.Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		s.l.Warn("failed to decode webhook payload", zap.Error(err))
		writeResult(w, http.StatusBadRequest, domain.SignalResult{
			Status:  domain.SignalStatusError,
			Message: "invalid payload",
		})
		return
	}
	if err := sig.Validate(); err != nil {
		writeResult(w, http.StatusBadRequest, domain.SignalResult{
			Status:  domain.SignalStatusError,
			Message: err.Error(),
		})
		return
	}

	result := s.engine.HandleSignal(r.Context(), sig)
	metrics.Signals.WithLabelValues(string(sig.Action), string(result.Status)).Inc()

	status := http.StatusOK
	if result.Status == domain.SignalStatusError {
		status = http.StatusBadGateway
	}
	writeResult(w, status, result)
}

func writeResult(w http.ResponseWriter, status int, result domain.SignalResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

func (s *Server) handleSnapshotStream(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.feed == nil {
		http.Error(w, "snapshot stream not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// subscribe before reading the backlog so nothing published in between
	// is missed; duplicates are filtered by timestamp below
	sub := s.feed.Subscribe()
	defer s.feed.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSnapshot := func(snap domain.EquitySnapshot) error {
		payload, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: equity\n")
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return nil
	}

	records, err := s.store.SnapshotsAfter(0)
	if err != nil {
		s.l.Error("snapshot stream initial load failed", zap.Error(err))
		http.Error(w, "failed to load snapshots", http.StatusInternalServerError)
		return
	}
	var lastSent time.Time
	for _, record := range records {
		if err := writeSnapshot(record.Snapshot); err != nil {
			s.l.Error("snapshot stream write failed", zap.Error(err))
			return
		}
		lastSent = record.Snapshot.Timestamp
	}

	// comment heartbeat so proxies keep the connection open
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snap, open := <-sub:
			if !open {
				return
			}
			if !snap.Timestamp.After(lastSent) {
				continue
			}
			if err := writeSnapshot(snap); err != nil {
				s.l.Error("snapshot stream write failed", zap.Error(err))
				return
			}
			lastSent = snap.Timestamp
		}
	}
}
