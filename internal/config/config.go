// Package config loads the gateway's startup configuration. The loaded
// Config is immutable for the process lifetime; request-handling code
// receives it (or values compiled from it) by parameter, never through
// globals.
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Backend modes. Mixed consults the route table; the other two pin every
// request to one backend.
const (
	ModeLegacy = "legacy"
	ModeNative = "native"
	ModeMixed  = "mixed"
)

// Deployment environments.
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
)

type Config struct {
	Server      ServerConfig    `koanf:"server"`
	Environment string          `koanf:"environment"`
	Backend     BackendConfig   `koanf:"backend"`
	Upstream    UpstreamConfig  `koanf:"upstream"`
	Override    OverrideConfig  `koanf:"override"`
	Debug       DebugConfig     `koanf:"debug"`
	Templates   TemplatesConfig `koanf:"templates"`
	Storage     StorageConfig   `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type BackendConfig struct {
	Mode      string        `koanf:"mode"`
	LegacyURL string        `koanf:"legacy_url"`
	NativeURL string        `koanf:"native_url"`
	Routes    []RouteConfig `koanf:"routes"`
}

// RouteConfig maps a path prefix to a backend in mixed mode.
type RouteConfig struct {
	Prefix  string `koanf:"prefix"`
	Backend string `koanf:"backend"`
}

type UpstreamConfig struct {
	Timeout string `koanf:"timeout"` // Duration string like "20s"
}

// TimeoutDuration parses the configured upstream timeout.
func (u UpstreamConfig) TimeoutDuration() (time.Duration, error) {
	if u.Timeout == "" {
		return 20 * time.Second, nil
	}
	d, err := time.ParseDuration(u.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid upstream.timeout %q: %w", u.Timeout, err)
	}
	return d, nil
}

// OverrideConfig enables the backend-override query parameter. The override
// is inert in production regardless of this flag.
type OverrideConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DebugConfig gates the read-only introspection endpoints.
type DebugConfig struct {
	Enabled bool `koanf:"enabled"`
}

type TemplatesConfig struct {
	Dir string `koanf:"dir"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// IsProduction reports whether this deployment is production. Unknown
// environment strings are treated as production so debug affordances
// fail closed.
func (c *Config) IsProduction() bool {
	switch c.Environment {
	case EnvStaging, EnvDevelopment:
		return false
	default:
		return true
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from the given YAML file (optional), layers
// GW_-prefixed environment variables on top, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Environment variables override file config. Double underscore maps
	// to nesting: GW_BACKEND__MODE -> backend.mode.
	if err := k.Load(env.Provider("GW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("environment") {
		k.Set("environment", EnvProduction)
	}
	if !k.Exists("backend.mode") {
		k.Set("backend.mode", ModeMixed)
	}
	if !k.Exists("upstream.timeout") {
		k.Set("upstream.timeout", "20s")
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "memory")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in backend URLs
	cfg.Backend.LegacyURL = substituteEnvVars(cfg.Backend.LegacyURL)
	cfg.Backend.NativeURL = substituteEnvVars(cfg.Backend.NativeURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case ModeLegacy, ModeNative, ModeMixed:
	default:
		return fmt.Errorf("backend.mode must be one of %s, %s, %s; got %q",
			ModeLegacy, ModeNative, ModeMixed, c.Backend.Mode)
	}

	needLegacy := c.Backend.Mode == ModeLegacy || c.Backend.Mode == ModeMixed
	needNative := c.Backend.Mode == ModeNative || c.Backend.Mode == ModeMixed
	if needLegacy {
		if err := checkURL("backend.legacy_url", c.Backend.LegacyURL); err != nil {
			return err
		}
	}
	if needNative {
		if err := checkURL("backend.native_url", c.Backend.NativeURL); err != nil {
			return err
		}
	}

	for i, r := range c.Backend.Routes {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("backend.routes[%d].prefix %q must start with /", i, r.Prefix)
		}
		if r.Backend != ModeLegacy && r.Backend != ModeNative {
			return fmt.Errorf("backend.routes[%d].backend must be %s or %s; got %q",
				i, ModeLegacy, ModeNative, r.Backend)
		}
	}

	if _, err := c.Upstream.TimeoutDuration(); err != nil {
		return err
	}

	if c.Debug.Enabled && c.IsProduction() {
		return fmt.Errorf("debug.enabled must not be set in a production deployment")
	}

	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required when storage.type is sqlite")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("storage.type must be sqlite, memory, or none; got %q", c.Storage.Type)
	}

	return nil
}

func checkURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", field, raw)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
