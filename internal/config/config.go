// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Strategy selects how the Multi-Credential Manager distributes symbols
// across credentials.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round_robin"
	StrategyManual     Strategy = "manual"
)

// Credential is one (api_key, access_token) pair authorizing up to
// MaxConnections concurrent WebSocket sessions.
type Credential struct {
	ID          string `mapstructure:"id"`
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
}

// StreamConfig holds the tick-stream pooling, placement, and transport
// configuration.
type StreamConfig struct {
	BaseURL string `mapstructure:"base_url"`

	MaxConnections           int `mapstructure:"max_connections"`
	MaxSymbolsPerConnection  int `mapstructure:"max_symbols_per_connection"`
	ConnectionBufferSize     int `mapstructure:"connection_buffer_size"`
	ParserBufferSize         int `mapstructure:"parser_buffer_size"`
	RawBufferSize            int `mapstructure:"raw_buffer_size"`
	ControlQueueSize         int `mapstructure:"control_queue_size"`

	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	StopGrace             time.Duration `mapstructure:"stop_grace"`
	KeepaliveInterval     time.Duration `mapstructure:"keepalive_interval"`
	UnhealthyAfter        int           `mapstructure:"unhealthy_after"`
	ReconnectDelayInitial time.Duration `mapstructure:"reconnect_delay_initial"`
	ReconnectDelayMax     time.Duration `mapstructure:"reconnect_delay_max"`
	MaxReconnectAttempts  int           `mapstructure:"max_reconnect_attempts"`

	EnableDedicatedParser bool   `mapstructure:"enable_dedicated_parser"`
	DefaultMode           string `mapstructure:"default_mode"`
	RawOnly               bool   `mapstructure:"raw_only"`

	Credentials []Credential `mapstructure:"credentials"`
	Strategy    Strategy     `mapstructure:"strategy"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("TICKSTREAM")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "TICKSTREAM_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "TICKSTREAM_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "TICKSTREAM_LOG_LEVEL", "LOG_LEVEL")

	// Stream
	v.BindEnv("stream.base_url", "TICKSTREAM_BASE_URL")
	v.BindEnv("stream.max_connections", "TICKSTREAM_MAX_CONNECTIONS")
	v.BindEnv("stream.max_symbols_per_connection", "TICKSTREAM_MAX_SYMBOLS_PER_CONNECTION")
	v.BindEnv("stream.default_mode", "TICKSTREAM_DEFAULT_MODE")
	v.BindEnv("stream.raw_only", "TICKSTREAM_RAW_ONLY")
	v.BindEnv("stream.strategy", "TICKSTREAM_STRATEGY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "TICKSTREAM_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "TICKSTREAM_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "TICKSTREAM_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "tickstream")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Stream defaults
	v.SetDefault("stream.max_connections", 3)
	v.SetDefault("stream.max_symbols_per_connection", 3000)
	v.SetDefault("stream.connection_buffer_size", 10000)
	v.SetDefault("stream.parser_buffer_size", 20000)
	v.SetDefault("stream.raw_buffer_size", 10000)
	v.SetDefault("stream.control_queue_size", 1024)
	v.SetDefault("stream.connection_timeout", "30s")
	v.SetDefault("stream.stop_grace", "5s")
	v.SetDefault("stream.keepalive_interval", "5s")
	v.SetDefault("stream.unhealthy_after", 3)
	v.SetDefault("stream.reconnect_delay_initial", "1s")
	v.SetDefault("stream.reconnect_delay_max", "32s")
	v.SetDefault("stream.max_reconnect_attempts", 5)
	v.SetDefault("stream.enable_dedicated_parser", true)
	v.SetDefault("stream.default_mode", "ltp")
	v.SetDefault("stream.raw_only", false)
	v.SetDefault("stream.strategy", "round_robin")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "tickstream")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Stream.BaseURL == "" {
		return fmt.Errorf("stream.base_url is required")
	}
	if c.Stream.MaxConnections < 1 || c.Stream.MaxConnections > 3 {
		return fmt.Errorf("stream.max_connections must be between 1 and 3")
	}
	if c.Stream.MaxSymbolsPerConnection < 1 || c.Stream.MaxSymbolsPerConnection > 3000 {
		return fmt.Errorf("stream.max_symbols_per_connection must be between 1 and 3000")
	}
	switch c.Stream.DefaultMode {
	case "ltp", "quote", "full":
	default:
		return fmt.Errorf("stream.default_mode must be one of ltp, quote, full")
	}
	switch c.Stream.Strategy {
	case StrategyRoundRobin, StrategyManual:
	default:
		return fmt.Errorf("stream.strategy must be one of round_robin, manual")
	}
	if len(c.Stream.Credentials) == 0 {
		return fmt.Errorf("stream.credentials must have at least one entry")
	}
	seen := make(map[string]struct{}, len(c.Stream.Credentials))
	for _, cred := range c.Stream.Credentials {
		if cred.ID == "" {
			return fmt.Errorf("every stream.credentials entry requires an id")
		}
		if _, dup := seen[cred.ID]; dup {
			return fmt.Errorf("duplicate credential id %q", cred.ID)
		}
		seen[cred.ID] = struct{}{}
	}
	return nil
}
