// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/artpar/routegen/domain/auth"
)

// Config is the root configuration structure.
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Auth    auth.Auth     `yaml:"auth"`
	Schema  SchemaConfig  `yaml:"schema"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Journal JournalConfig `yaml:"journal"`
	Inspect InspectConfig `yaml:"inspect"`
}

// ClientConfig configures the generated client's transport.
// Unset values fall back to the schema constants.
type ClientConfig struct {
	URL                string            `yaml:"url" validate:"omitempty,url"` // fills protocol, host, port and pathPrefix
	Protocol           string            `yaml:"protocol" validate:"omitempty,oneof=http https"`
	Host               string            `yaml:"host" validate:"omitempty,hostname_rfc1123|ip"`
	Port               int               `yaml:"port" validate:"gte=0,lte=65535"`
	PathPrefix         string            `yaml:"pathPrefix" validate:"omitempty,startswith=/"`
	Proxy              string            `yaml:"proxy"`
	Timeout            time.Duration     `yaml:"timeout" validate:"gte=0"`
	RejectUnauthorized *bool             `yaml:"rejectUnauthorized"`
	Headers            map[string]string `yaml:"headers"`
	RequestMedia       string            `yaml:"requestMedia"`
	UserAgent          string            `yaml:"userAgent"`
	Debug              bool              `yaml:"debug"`
	Version            string            `yaml:"version" validate:"required"`
}

// Insecure reports whether TLS certificate verification is disabled.
func (c ClientConfig) Insecure() bool {
	return c.RejectUnauthorized != nil && !*c.RejectUnauthorized
}

// SchemaConfig locates the route schema document.
type SchemaConfig struct {
	Path  string `yaml:"path" validate:"required"` // relative paths resolve against the config file
	Watch bool   `yaml:"watch"`                    // recompile when the file changes
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// JournalConfig configures the call journal.
type JournalConfig struct {
	Driver    string        `yaml:"driver" validate:"oneof=sqlite memory none"`
	Path      string        `yaml:"path" validate:"required_if=Driver sqlite"`
	Size      int           `yaml:"size" validate:"gte=0"`      // memory driver capacity
	Retention time.Duration `yaml:"retention" validate:"gte=0"` // 0 keeps everything
}

// InspectConfig configures the introspection server.
type InspectConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := applyURL(&cfg.Client); err != nil {
		return nil, fmt.Errorf("parse client.url: %w", err)
	}

	setDefaults(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies ROUTEGEN_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Client configuration
	if v := os.Getenv("ROUTEGEN_URL"); v != "" {
		cfg.Client.URL = v
	}
	if v := os.Getenv("ROUTEGEN_HOST"); v != "" {
		cfg.Client.Host = v
	}
	if v := os.Getenv("ROUTEGEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Client.Port = port
		}
	}
	if v := os.Getenv("ROUTEGEN_PROTOCOL"); v != "" {
		cfg.Client.Protocol = v
	}
	if v := os.Getenv("ROUTEGEN_PROXY"); v != "" {
		cfg.Client.Proxy = v
	}
	if v := os.Getenv("ROUTEGEN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
	if v := os.Getenv("ROUTEGEN_VERSION"); v != "" {
		cfg.Client.Version = v
	}
	if v := os.Getenv("ROUTEGEN_DEBUG"); v != "" {
		cfg.Client.Debug = parseBool(v)
	}

	// Auth configuration
	if v := os.Getenv("ROUTEGEN_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = auth.Type(v)
	}
	if v := os.Getenv("ROUTEGEN_AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("ROUTEGEN_AUTH_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("ROUTEGEN_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	// Schema configuration
	if v := os.Getenv("ROUTEGEN_SCHEMA_PATH"); v != "" {
		cfg.Schema.Path = v
	}

	// Journal configuration
	if v := os.Getenv("ROUTEGEN_JOURNAL_DRIVER"); v != "" {
		cfg.Journal.Driver = v
	}
	if v := os.Getenv("ROUTEGEN_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Logging configuration
	if v := os.Getenv("ROUTEGEN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ROUTEGEN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("ROUTEGEN_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	// Inspect configuration
	if v := os.Getenv("ROUTEGEN_INSPECT_LISTEN"); v != "" {
		cfg.Inspect.Listen = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// applyURL splits client.url into protocol, host, port and path prefix.
// Explicitly set fields win over the URL.
func applyURL(c *ClientConfig) error {
	if c.URL == "" {
		return nil
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return fmt.Errorf("%q must be an absolute URL", c.URL)
	}

	if c.Protocol == "" {
		c.Protocol = strings.ToLower(u.Scheme)
	}
	if c.Host == "" {
		c.Host = u.Hostname()
	}
	if c.Port == 0 && u.Port() != "" {
		c.Port, err = strconv.Atoi(u.Port())
		if err != nil {
			return fmt.Errorf("invalid port: %w", err)
		}
	}
	if c.PathPrefix == "" {
		c.PathPrefix = strings.TrimSuffix(u.Path, "/")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = "memory"
	}
	if cfg.Journal.Driver == "memory" && cfg.Journal.Size == 0 {
		cfg.Journal.Size = 1000
	}

	if cfg.Schema.Path == "" {
		cfg.Schema.Path = "routes.yaml"
	}
}

// resolvePaths makes file paths relative to the config file's directory.
func resolvePaths(cfg *Config, dir string) {
	if cfg.Schema.Path != "" && !filepath.IsAbs(cfg.Schema.Path) {
		cfg.Schema.Path = filepath.Join(dir, cfg.Schema.Path)
	}
	if cfg.Journal.Driver == "sqlite" && cfg.Journal.Path != "" && cfg.Journal.Path != ":memory:" &&
		!filepath.IsAbs(cfg.Journal.Path) {
		cfg.Journal.Path = filepath.Join(dir, cfg.Journal.Path)
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check", fieldPath(fe.Namespace()), fe.Tag())
		}
		return err
	}

	if err := cfg.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if cfg.Client.Proxy != "" && strings.ContainsAny(cfg.Client.Proxy, " \t") {
		return fmt.Errorf("client.proxy must not contain whitespace")
	}

	return nil
}

// fieldPath turns "Config.Client.Version" into "client.version".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}
