// Package config loads teams-portal settings from a TOML file, a .env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/thomassicaud/teams-portal/internal/core/services"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "TEAMS_PORTAL"

// Config holds all configuration.
type Config struct {
	Azure        AzureConfig        `mapstructure:"azure" toml:"azure"`
	Graph        GraphConfig        `mapstructure:"graph" toml:"graph"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning" toml:"provisioning"`
	Icon         IconConfig         `mapstructure:"icon" toml:"icon"`
	Server       ServerConfig       `mapstructure:"server" toml:"server"`
	Log          LogConfig          `mapstructure:"log" toml:"log"`
}

// AzureConfig identifies the Entra ID application used for delegated sign-in.
type AzureConfig struct {
	ClientID      string   `mapstructure:"client_id" toml:"client_id"`
	TenantID      string   `mapstructure:"tenant_id" toml:"tenant_id"`
	ClientSecret  string   `mapstructure:"client_secret" toml:"client_secret,omitempty"`
	AuthorityHost string   `mapstructure:"authority_host" toml:"authority_host"`
	Scopes        []string `mapstructure:"scopes" toml:"scopes"`
}

// GraphConfig tunes the Microsoft Graph client.
type GraphConfig struct {
	BaseURL        string  `mapstructure:"base_url" toml:"base_url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" toml:"rate_per_second"`
	Burst          int     `mapstructure:"burst" toml:"burst"`
}

// ProvisioningConfig tunes retries, polling and pacing.
type ProvisioningConfig struct {
	RetryAttempts              int  `mapstructure:"retry_attempts" toml:"retry_attempts"`
	RetryBaseDelayMs           int  `mapstructure:"retry_base_delay_ms" toml:"retry_base_delay_ms"`
	PollIntervalSeconds        int  `mapstructure:"poll_interval_seconds" toml:"poll_interval_seconds"`
	MaxPolls                   int  `mapstructure:"max_polls" toml:"max_polls"`
	ProgressEvery              int  `mapstructure:"progress_every" toml:"progress_every"`
	ChannelPauseMs             int  `mapstructure:"channel_pause_ms" toml:"channel_pause_ms"`
	MemberPauseMs              int  `mapstructure:"member_pause_ms" toml:"member_pause_ms"`
	FolderPauseMs              int  `mapstructure:"folder_pause_ms" toml:"folder_pause_ms"`
	AllowPartialMatch          bool `mapstructure:"allow_partial_match" toml:"allow_partial_match"`
	NotFoundWaitSeconds        int  `mapstructure:"not_found_wait_seconds" toml:"not_found_wait_seconds"`
	NotFoundWaitNetworkSeconds int  `mapstructure:"not_found_wait_network_seconds" toml:"not_found_wait_network_seconds"`
}

// IconConfig bounds team picture uploads.
type IconConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" toml:"max_bytes"`
	Size     int   `mapstructure:"size" toml:"size"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr                   string   `mapstructure:"addr" toml:"addr"`
	RateLimitPerMinute     int      `mapstructure:"rate_limit_per_minute" toml:"rate_limit_per_minute"`
	RedisAddr              string   `mapstructure:"redis_addr" toml:"redis_addr"`
	RedisPassword          string   `mapstructure:"redis_password" toml:"redis_password,omitempty"`
	RedisDB                int      `mapstructure:"redis_db" toml:"redis_db"`
	AllowedOrigins         []string `mapstructure:"allowed_origins" toml:"allowed_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	opts := services.DefaultOptions()
	return &Config{
		Azure: AzureConfig{
			TenantID:      "organizations",
			AuthorityHost: "https://login.microsoftonline.com",
			Scopes: []string{
				"User.Read", "User.ReadBasic.All", "Group.ReadWrite.All", "Team.Create",
				"Channel.Create", "TeamMember.ReadWrite.All", "Files.ReadWrite.All",
				"Sites.ReadWrite.All", "offline_access",
			},
		},
		Graph: GraphConfig{
			BaseURL:        "https://graph.microsoft.com/v1.0",
			TimeoutSeconds: 30,
			RatePerSecond:  4,
			Burst:          4,
		},
		Provisioning: ProvisioningConfig{
			RetryAttempts:              opts.RetryAttempts,
			RetryBaseDelayMs:           int(opts.RetryBaseDelay / time.Millisecond),
			PollIntervalSeconds:        int(opts.PollInterval / time.Second),
			MaxPolls:                   opts.MaxPolls,
			ProgressEvery:              opts.ProgressEvery,
			ChannelPauseMs:             int(opts.ChannelPause / time.Millisecond),
			MemberPauseMs:              int(opts.MemberPause / time.Millisecond),
			FolderPauseMs:              int(opts.FolderPause / time.Millisecond),
			AllowPartialMatch:          opts.AllowPartialMatch,
			NotFoundWaitSeconds:        int(opts.NotFoundWait / time.Second),
			NotFoundWaitNetworkSeconds: int(opts.NotFoundWaitNetwork / time.Second),
		},
		Icon: IconConfig{
			MaxBytes: opts.IconMaxBytes,
			Size:     opts.IconSize,
		},
		Server: ServerConfig{
			Addr:                   ":8080",
			RateLimitPerMinute:     30,
			AllowedOrigins:         []string{"*"},
			ShutdownTimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("azure.client_id", d.Azure.ClientID)
	v.SetDefault("azure.tenant_id", d.Azure.TenantID)
	v.SetDefault("azure.client_secret", d.Azure.ClientSecret)
	v.SetDefault("azure.authority_host", d.Azure.AuthorityHost)
	v.SetDefault("azure.scopes", d.Azure.Scopes)

	v.SetDefault("graph.base_url", d.Graph.BaseURL)
	v.SetDefault("graph.timeout_seconds", d.Graph.TimeoutSeconds)
	v.SetDefault("graph.rate_per_second", d.Graph.RatePerSecond)
	v.SetDefault("graph.burst", d.Graph.Burst)

	v.SetDefault("provisioning.retry_attempts", d.Provisioning.RetryAttempts)
	v.SetDefault("provisioning.retry_base_delay_ms", d.Provisioning.RetryBaseDelayMs)
	v.SetDefault("provisioning.poll_interval_seconds", d.Provisioning.PollIntervalSeconds)
	v.SetDefault("provisioning.max_polls", d.Provisioning.MaxPolls)
	v.SetDefault("provisioning.progress_every", d.Provisioning.ProgressEvery)
	v.SetDefault("provisioning.channel_pause_ms", d.Provisioning.ChannelPauseMs)
	v.SetDefault("provisioning.member_pause_ms", d.Provisioning.MemberPauseMs)
	v.SetDefault("provisioning.folder_pause_ms", d.Provisioning.FolderPauseMs)
	v.SetDefault("provisioning.allow_partial_match", d.Provisioning.AllowPartialMatch)
	v.SetDefault("provisioning.not_found_wait_seconds", d.Provisioning.NotFoundWaitSeconds)
	v.SetDefault("provisioning.not_found_wait_network_seconds", d.Provisioning.NotFoundWaitNetworkSeconds)

	v.SetDefault("icon.max_bytes", d.Icon.MaxBytes)
	v.SetDefault("icon.size", d.Icon.Size)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.rate_limit_per_minute", d.Server.RateLimitPerMinute)
	v.SetDefault("server.redis_addr", d.Server.RedisAddr)
	v.SetDefault("server.redis_password", d.Server.RedisPassword)
	v.SetDefault("server.redis_db", d.Server.RedisDB)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout_seconds", d.Server.ShutdownTimeoutSeconds)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Loader reads configuration into a private viper instance.
type Loader struct {
	v       *viper.Viper
	envFile string
}

// NewLoader creates a loader. configFile may be empty to use the default
// location; envFile may be empty to use ".env" in the working directory.
func NewLoader(configFile, envFile string) *Loader {
	v := viper.New()
	SetDefaults(v)

	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The application registration is commonly exported without our prefix.
	_ = v.BindEnv("azure.client_id", EnvPrefix+"_AZURE_CLIENT_ID", "AZURE_CLIENT_ID")
	_ = v.BindEnv("azure.tenant_id", EnvPrefix+"_AZURE_TENANT_ID", "AZURE_TENANT_ID")
	_ = v.BindEnv("azure.client_secret", EnvPrefix+"_AZURE_CLIENT_SECRET", "AZURE_CLIENT_SECRET")

	if envFile == "" {
		envFile = ".env"
	}
	return &Loader{v: v, envFile: envFile}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the .env file and config file when present, applies the
// environment and validates the result. Missing files are not an error.
func (l *Loader) Load() (*Config, error) {
	if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", l.envFile, err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the config file on change and passes each valid result to
// onChange. Invalid edits are reported to onError and otherwise ignored.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}

// Dir returns the user's config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "teams-portal")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".teams-portal"
	}
	return filepath.Join(home, ".config", "teams-portal")
}

// File returns the default config file path.
func File() string {
	return filepath.Join(Dir(), "config.toml")
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// WriteFile writes cfg to path, creating parent directories. An existing
// file is only replaced when overwrite is set.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// GraphTimeout returns the per-request Graph timeout.
func (c *Config) GraphTimeout() time.Duration {
	return time.Duration(c.Graph.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the HTTP server drain timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ServiceOptions converts the provisioning and icon sections to service options.
func (c *Config) ServiceOptions() services.Options {
	p := c.Provisioning
	opts := services.DefaultOptions()
	opts.RetryAttempts = p.RetryAttempts
	opts.RetryBaseDelay = time.Duration(p.RetryBaseDelayMs) * time.Millisecond
	opts.PollInterval = time.Duration(p.PollIntervalSeconds) * time.Second
	opts.MaxPolls = p.MaxPolls
	opts.ProgressEvery = p.ProgressEvery
	opts.ChannelPause = time.Duration(p.ChannelPauseMs) * time.Millisecond
	opts.MemberPause = time.Duration(p.MemberPauseMs) * time.Millisecond
	opts.FolderPause = time.Duration(p.FolderPauseMs) * time.Millisecond
	opts.AllowPartialMatch = p.AllowPartialMatch
	opts.NotFoundWait = time.Duration(p.NotFoundWaitSeconds) * time.Second
	opts.NotFoundWaitNetwork = time.Duration(p.NotFoundWaitNetworkSeconds) * time.Second
	opts.IconMaxBytes = c.Icon.MaxBytes
	opts.IconSize = c.Icon.Size
	return opts
}
