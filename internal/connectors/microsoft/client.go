package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

// Microsoft Graph API base URL.
const graphBaseURL = "https://graph.microsoft.com/v1.0"

// defaultTimeout bounds a single Graph request.
const defaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Verify interface compliance.
var _ driven.TeamsGateway = (*Client)(nil)

// Client performs authenticated Microsoft Graph calls with a delegated token.
// Every failure is classified into a *domain.Error at this boundary.
// A Client is bound to one token; build a new one per run.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	token       string
	rateLimiter *RateLimiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the Graph base URL (used by tests and national clouds).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimiter replaces the request rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		if rl != nil {
			c.rateLimiter = rl
		}
	}
}

// NewClient creates a Graph client bound to accessToken.
func NewClient(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		baseURL:     graphBaseURL,
		token:       accessToken,
		rateLimiter: NewRateLimiter(ServiceTeams),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// response is a fully read Graph response.
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// request describes a single Graph call.
type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

// jsonRequest builds a request with a JSON-encoded payload.
func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode request: %w", err)
	}
	req.body = bytes.NewReader(data)
	req.contentType = "application/json"
	return req, nil
}

// resolveURL accepts either a path relative to the base URL or an absolute
// URL (as returned in @odata.nextLink).
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return c.baseURL + path
}

// do executes a request. Non-2xx responses are returned as classified errors.
func (c *Client) do(ctx context.Context, r request) (*response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body := r.body
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.resolveURL(r.path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("microsoft: %s %s transport error: %v", r.method, r.path, err)
		return nil, ClassifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ClassifyTransport(ctx, fmt.Errorf("read response: %w", err))
	}

	logger.Debug("microsoft: %s %s status %d, body length %d", r.method, r.path, resp.StatusCode, len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		classified := Classify(resp.StatusCode, resp.Header, data)
		if IsRateLimited(resp.StatusCode) && classified.RetryAfter > 0 {
			c.rateLimiter.RecordRateLimitError(classified.RetryAfter)
		}
		return nil, classified
	}

	return &response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// getJSON performs a GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return err
	}
	return decode(resp.Body, out)
}

// sendJSON performs a request with a JSON payload and decodes the body into
// out when both are present.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload, out any) (*response, error) {
	r, err := jsonRequest(method, path, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	if out != nil && len(resp.Body) > 0 {
		if err := decode(resp.Body, out); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.Error{Kind: domain.KindUnknown, Message: "decode response", Err: err}
	}
	return nil
}

// listPage is a page of a Graph collection.
type listPage[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// listAll follows @odata.nextLink until the collection is exhausted.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var items []T
	next := path

	for next != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var page listPage[T]
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}

		items = append(items, page.Value...)
		next = page.NextLink
	}

	return items, nil
}
