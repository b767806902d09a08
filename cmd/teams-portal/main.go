package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/thomassicaud/teams-portal/internal/adapters/driving/cli"
	"github.com/thomassicaud/teams-portal/internal/config"
	"github.com/thomassicaud/teams-portal/internal/connectors/microsoft"
	"github.com/thomassicaud/teams-portal/internal/core/services"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// bootstrap loads configuration and wires the Graph connector into the
// provisioning service.
func bootstrap(configFile string) (*cli.Services, error) {
	loader := config.NewLoader(configFile, ".env")
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger.Configure(os.Stderr, logger.Format(cfg.Log.Format), "teams-portal")
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}

	factory := microsoft.NewGatewayFactory(
		microsoft.WithFactoryBaseURL(cfg.Graph.BaseURL),
		microsoft.WithTimeout(cfg.GraphTimeout()),
		microsoft.WithRateLimit(microsoft.RateLimitConfig{
			RequestsPerSecond: cfg.Graph.RatePerSecond,
			BurstSize:         cfg.Graph.Burst,
		}),
	)

	return &cli.Services{
		Provisioning: services.NewProvisioner(factory, cfg.ServiceOptions()),
		Config:       cfg,
		Loader:       loader,
	}, nil
}
