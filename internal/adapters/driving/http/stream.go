package httpx

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
)

const wsWriteTimeout = 10 * time.Second

// ndjsonSink writes each event as one JSON line and flushes it immediately.
type ndjsonSink struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	enc      *json.Encoder
	flusher  http.Flusher
	log      *slog.Logger
	broken   bool
	sawError bool
	observe  func(domain.Event)
}

func newNDJSONSink(w http.ResponseWriter, log *slog.Logger, observe func(domain.Event)) *ndjsonSink {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &ndjsonSink{w: w, enc: json.NewEncoder(w), flusher: flusher, log: log, observe: observe}
}

func (s *ndjsonSink) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Type == domain.EventError {
		s.sawError = true
	}
	if s.observe != nil {
		s.observe(ev)
	}
	if s.broken {
		return
	}
	if err := s.enc.Encode(ev); err != nil {
		s.log.Warn("ndjson write failed", "error", err)
		s.broken = true
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// emittedError reports whether an error event already went out.
func (s *ndjsonSink) emittedError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawError
}

// wsSink forwards events to a websocket connection. gorilla connections
// allow one concurrent writer.
type wsSink struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	log      *slog.Logger
	broken   bool
	sawError bool
	observe  func(domain.Event)
}

func newWSSink(conn *websocket.Conn, log *slog.Logger, observe func(domain.Event)) *wsSink {
	return &wsSink{conn: conn, log: log, observe: observe}
}

func (s *wsSink) Emit(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Type == domain.EventError {
		s.sawError = true
	}
	if s.observe != nil {
		s.observe(ev)
	}
	if s.broken {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteJSON(ev); err != nil {
		s.log.Warn("websocket send failed", "error", err)
		s.broken = true
	}
}

func (s *wsSink) emittedError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawError
}

// close sends a close frame and releases the connection.
func (s *wsSink) close(code int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.broken {
		deadline := time.Now().Add(wsWriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	}
	s.broken = true
	_ = s.conn.Close()
}
