package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FileConfig defines the structure loaded from the YAML configuration file.
// Only the downstream connection settings live in the file; everything else
// is environment-driven.
type FileConfig struct {
	Downstream struct {
		URL             string            `yaml:"url"`
		Headers         map[string]string `yaml:"headers,omitempty"`
		ProtocolVersion string            `yaml:"protocol_version,omitempty"`
	} `yaml:"downstream"`
}

// Config holds the final application configuration, merged from file and
// environment variables. Fields are loaded from environment variables with
// the prefix "MCPBRIDGE_", overriding file settings.
type Config struct {
	// Config File Path (loaded first from env). Empty means env-only.
	ConfigFilePath string `envconfig:"CONFIG_FILE"`

	// Downstream multiplexed MCP endpoint.
	DownstreamURL     string            `envconfig:"DOWNSTREAM_URL" default:"http://localhost:8000/mcp"`
	DownstreamHeaders map[string]string `envconfig:"DOWNSTREAM_HEADERS"` // e.g. "Authorization:Bearer xyz"
	ProtocolVersion   string            `envconfig:"PROTOCOL_VERSION"`   // empty: latest known version

	// HTTP surface for the testing page.
	ListenAddr         string        `envconfig:"LISTEN_ADDR" default:":8090"`
	ServerReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ServerIdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`

	// Call bounds. InvokeTimeout caps a single tools/call round trip;
	// HandshakeTimeout caps the initialize + initialized exchange.
	InvokeTimeout    time.Duration `envconfig:"INVOKE_TIMEOUT" default:"30s"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`

	OtelExporterOtlpEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the file
// path), then from the YAML file if one is specified, and finally processes
// environment variables again so they override file settings.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("mcpbridge", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process initial environment variables: %w", err)
	}

	if cfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
		}

		var fileCfg FileConfig
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)

		if fileCfg.Downstream.URL != "" {
			cfg.DownstreamURL = fileCfg.Downstream.URL
		}
		if len(fileCfg.Downstream.Headers) > 0 {
			cfg.DownstreamHeaders = fileCfg.Downstream.Headers
		}
		if fileCfg.Downstream.ProtocolVersion != "" {
			cfg.ProtocolVersion = fileCfg.Downstream.ProtocolVersion
		}

		// Process environment variables AGAIN to allow overrides over file settings.
		if err := envconfig.Process("mcpbridge", &cfg); err != nil {
			return nil, fmt.Errorf("failed to process overriding environment variables: %w", err)
		}
	}

	return &cfg, nil
}
