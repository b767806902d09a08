// Package httpx exposes the provisioning service over HTTP: JSON endpoints,
// NDJSON and websocket progress streams, health and Prometheus metrics.
package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thomassicaud/teams-portal/internal/core/ports/driving"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

const (
	rateWindowDefault  = time.Minute
	healthCheckTimeout = 2 * time.Second
	defaultMaxUpload   = 4 << 20
	multipartOverhead  = 1 << 20
)

// Options configures a Router. Zero values select defaults.
type Options struct {
	Logger *slog.Logger
	// Limiter defaults to an in-memory limiter.
	Limiter RateLimiter
	// RateLimit is the number of requests per key and minute. Zero disables limiting.
	RateLimit int
	// AllowedOrigins lists origins allowed for CORS and websocket upgrades.
	// "*" allows any origin.
	AllowedOrigins []string
	// MaxUploadBytes bounds icon uploads.
	MaxUploadBytes int64
	// Registerer defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// RedisHealth reports the shared limiter's backend on /healthz. It
	// defaults to the limiter's Ping method when it has one.
	RedisHealth func(context.Context) error
}

// Router wires HTTP endpoints to the provisioning service.
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	svc         driving.ProvisioningService
	upgrader    websocket.Upgrader
	limiter     RateLimiter
	rateLimit   int
	origins     []string
	maxUpload   int64
	redisHealth func(context.Context) error

	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	provisionEvents    *prometheus.CounterVec
	provisionRuns      *prometheus.CounterVec
}

// NewRouter assembles routes with dependencies.
func NewRouter(svc driving.ProvisioningService, opts Options) *Router {
	r := &Router{
		mux:         http.NewServeMux(),
		logger:      opts.Logger,
		svc:         svc,
		limiter:     opts.Limiter,
		rateLimit:   opts.RateLimit,
		origins:     opts.AllowedOrigins,
		maxUpload:   opts.MaxUploadBytes,
		redisHealth: opts.RedisHealth,
		registerer:  opts.Registerer,
		gatherer:    opts.Gatherer,
	}
	if r.logger == nil {
		r.logger = logger.Slog()
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.redisHealth == nil {
		if p, ok := r.limiter.(interface{ Ping(context.Context) error }); ok {
			r.redisHealth = p.Ping
		}
	}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}
	if r.registerer == nil {
		r.registerer = prometheus.DefaultRegisterer
	}
	if r.gatherer == nil {
		r.gatherer = prometheus.DefaultGatherer
	}
	r.upgrader = websocket.Upgrader{CheckOrigin: r.checkOrigin}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	r.handle("/api/teams/create-stream", r.handleCreateStream)
	r.handle("/api/teams/finalize", r.handleFinalize)
	r.handle("/api/teams/folders", r.handleFolders)
	r.handle("/api/teams/upload-icon", r.handleUploadIcon)
	r.handle("/api/teams/test-icon", r.handleTestIcon)
	r.handle("/api/test-graph", r.handleTestGraph)
	r.handle("/api/users", r.handleUsers)
	r.handle("/ws/provision", r.handleProvisionWS)
}

func (r *Router) handle(route string, h http.HandlerFunc) {
	r.mux.HandleFunc(route, r.audit(route, r.cors(r.withRateLimit(route, h))))
}

func (r *Router) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if origin := req.Header.Get("Origin"); origin != "" && r.originAllowed(origin) {
			headers := w.Header()
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			headers.Add("Vary", "Origin")
		}
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, req)
	}
}

func (r *Router) checkOrigin(req *http.Request) bool {
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return r.originAllowed(origin)
}

func (r *Router) originAllowed(origin string) bool {
	for _, allowed := range r.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.redisHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.redisHealth(ctx); err != nil {
			status = "degraded"
			components["redis"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["redis"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(req *http.Request) string {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// accessToken prefers the Authorization header over a body field.
func accessToken(req *http.Request, fromBody string) string {
	if token := bearerToken(req); token != "" {
		return token
	}
	return strings.TrimSpace(fromBody)
}
