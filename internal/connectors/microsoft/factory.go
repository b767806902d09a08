package microsoft

import (
	"net/http"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.GatewayFactory = (*GatewayFactory)(nil)

// GatewayFactory builds a fresh Client for each delegated token, sharing the
// HTTP transport and timeout settings.
type GatewayFactory struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  RateLimitConfig
}

// FactoryOption configures a GatewayFactory.
type FactoryOption func(*GatewayFactory)

// WithFactoryBaseURL sets the Graph base URL for every client.
func WithFactoryBaseURL(baseURL string) FactoryOption {
	return func(f *GatewayFactory) {
		if baseURL != "" {
			f.baseURL = baseURL
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FactoryOption {
	return func(f *GatewayFactory) {
		if d > 0 {
			f.httpClient = &http.Client{Timeout: d, Transport: f.httpClient.Transport}
		}
	}
}

// WithTransport sets the HTTP transport shared by every client.
func WithTransport(rt http.RoundTripper) FactoryOption {
	return func(f *GatewayFactory) {
		f.httpClient = &http.Client{Timeout: f.httpClient.Timeout, Transport: rt}
	}
}

// WithRateLimit sets the token bucket applied to each client.
func WithRateLimit(cfg RateLimitConfig) FactoryOption {
	return func(f *GatewayFactory) {
		f.rateLimit = cfg
	}
}

// NewGatewayFactory creates a factory with default settings.
func NewGatewayFactory(opts ...FactoryOption) *GatewayFactory {
	f := &GatewayFactory{
		baseURL:    graphBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		rateLimit:  DefaultRateLimits[ServiceTeams],
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForToken returns a client bound to accessToken with its own rate limiter.
func (f *GatewayFactory) ForToken(accessToken string) driven.TeamsGateway {
	return NewClient(accessToken,
		WithBaseURL(f.baseURL),
		WithHTTPClient(f.httpClient),
		WithRateLimiter(NewRateLimiterWithConfig(f.rateLimit)),
	)
}
