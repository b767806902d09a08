package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "graph.timeout_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateGraph()...)
	errors = append(errors, c.validateProvisioning()...)
	errors = append(errors, c.validateIcon()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLog()...)

	return errors
}

// RequireAzure reports the settings needed for interactive sign-in.
func (c *Config) RequireAzure() error {
	var errs ValidationErrors
	if c.Azure.ClientID == "" {
		errs = append(errs, ValidationError{
			Field:   "azure.client_id",
			Value:   "",
			Message: "must be set (or export AZURE_CLIENT_ID)",
		})
	}
	if c.Azure.TenantID == "" {
		errs = append(errs, ValidationError{
			Field:   "azure.tenant_id",
			Value:   "",
			Message: "must be set (or export AZURE_TENANT_ID)",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateGraph() []ValidationError {
	var errors []ValidationError

	if u, err := url.Parse(c.Graph.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "graph.base_url",
			Value:   c.Graph.BaseURL,
			Message: "must be an absolute URL",
		})
	}
	if c.Graph.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "graph.timeout_seconds",
			Value:   c.Graph.TimeoutSeconds,
			Message: "must be positive",
		})
	}
	if c.Graph.RatePerSecond < 0 {
		errors = append(errors, ValidationError{
			Field:   "graph.rate_per_second",
			Value:   c.Graph.RatePerSecond,
			Message: "must be zero (unlimited) or positive",
		})
	}
	if c.Graph.Burst < 1 {
		errors = append(errors, ValidationError{
			Field:   "graph.burst",
			Value:   c.Graph.Burst,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateProvisioning() []ValidationError {
	var errors []ValidationError
	p := c.Provisioning

	if p.RetryAttempts < 1 || p.RetryAttempts > 10 {
		errors = append(errors, ValidationError{
			Field:   "provisioning.retry_attempts",
			Value:   p.RetryAttempts,
			Message: "must be between 1 and 10",
		})
	}
	if p.MaxPolls < 1 {
		errors = append(errors, ValidationError{
			Field:   "provisioning.max_polls",
			Value:   p.MaxPolls,
			Message: "must be at least 1",
		})
	}
	if p.ProgressEvery < 1 {
		errors = append(errors, ValidationError{
			Field:   "provisioning.progress_every",
			Value:   p.ProgressEvery,
			Message: "must be at least 1",
		})
	}

	nonNegative := []struct {
		field string
		value int
	}{
		{"provisioning.retry_base_delay_ms", p.RetryBaseDelayMs},
		{"provisioning.poll_interval_seconds", p.PollIntervalSeconds},
		{"provisioning.channel_pause_ms", p.ChannelPauseMs},
		{"provisioning.member_pause_ms", p.MemberPauseMs},
		{"provisioning.folder_pause_ms", p.FolderPauseMs},
		{"provisioning.not_found_wait_seconds", p.NotFoundWaitSeconds},
		{"provisioning.not_found_wait_network_seconds", p.NotFoundWaitNetworkSeconds},
	}
	for _, nn := range nonNegative {
		if nn.value < 0 {
			errors = append(errors, ValidationError{Field: nn.field, Value: nn.value, Message: "must not be negative"})
		}
	}

	return errors
}

func (c *Config) validateIcon() []ValidationError {
	var errors []ValidationError

	if c.Icon.MaxBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "icon.max_bytes",
			Value:   c.Icon.MaxBytes,
			Message: "must be positive",
		})
	}
	if c.Icon.Size < 48 || c.Icon.Size > 2048 {
		errors = append(errors, ValidationError{
			Field:   "icon.size",
			Value:   c.Icon.Size,
			Message: "must be between 48 and 2048",
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}
	if c.Server.RateLimitPerMinute < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.rate_limit_per_minute",
			Value:   c.Server.RateLimitPerMinute,
			Message: "must be zero (disabled) or positive",
		})
	}
	if c.Server.RedisDB < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.redis_db",
			Value:   c.Server.RedisDB,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateLog() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}
