package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpx "github.com/thomassicaud/teams-portal/internal/adapters/driving/http"
	"github.com/thomassicaud/teams-portal/internal/config"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the provisioning HTTP API.

Clients send their own delegated token with each request. Progress streams
as NDJSON from /api/teams/create-stream or over the /ws/provision websocket.
With server.redis_addr set, rate limits are shared through Redis.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireService(); err != nil {
		return err
	}
	cfg := currentConfig()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	log := logger.Slog()
	var limiter httpx.RateLimiter
	if cfg.Server.RedisAddr != "" {
		rl, err := httpx.NewRedisRateLimiter(cfg.Server.RedisAddr, cfg.Server.RedisPassword, cfg.Server.RedisDB, log)
		if err != nil {
			logger.Warn("redis unavailable at %s, using in-memory rate limits: %v", cfg.Server.RedisAddr, err)
		} else {
			limiter = rl
		}
	}

	router := httpx.NewRouter(provisioningService, httpx.Options{
		Logger:         log,
		Limiter:        limiter,
		RateLimit:      cfg.Server.RateLimitPerMinute,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Icon.MaxBytes,
	})
	defer router.Close()

	if configLoader != nil {
		configLoader.Watch(func(next *config.Config) {
			if err := logger.SetLevel(next.Log.Level); err != nil {
				logger.Warn("config reload: %v", err)
				return
			}
			logger.Info("config reloaded, log level %s", next.Log.Level)
		}, func(err error) {
			logger.Warn("config reload failed: %v", err)
		})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return serve(ctx, ln, router, cfg.ShutdownTimeout())
}

// serve runs the server until ctx ends, then drains in-flight requests.
func serve(ctx context.Context, ln net.Listener, h http.Handler, drain time.Duration) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
