package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Mixed mode needs both URLs to validate; everything else is defaulted.
	t.Setenv("GW_BACKEND__LEGACY_URL", "https://legacy.example.com/exec")
	t.Setenv("GW_BACKEND__NATIVE_URL", "https://native.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Environment != EnvProduction {
		t.Errorf("default environment = %q, want production", cfg.Environment)
	}
	if cfg.Backend.Mode != ModeMixed {
		t.Errorf("default mode = %q, want mixed", cfg.Backend.Mode)
	}
	if !cfg.IsProduction() {
		t.Error("default config should be production")
	}
	if cfg.Debug.Enabled {
		t.Error("debug endpoints must default to disabled")
	}
	if cfg.Override.Enabled {
		t.Error("backend override must default to disabled")
	}
	d, err := cfg.Upstream.TimeoutDuration()
	if err != nil {
		t.Fatalf("TimeoutDuration() error = %v", err)
	}
	if d != 20*time.Second {
		t.Errorf("default timeout = %v, want 20s", d)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
environment: staging
backend:
  mode: mixed
  legacy_url: https://script.example.com/exec
  native_url: https://native.example.com
  routes:
    - prefix: /status
      backend: native
    - prefix: /api
      backend: legacy
upstream:
  timeout: 12s
override:
  enabled: true
debug:
  enabled: true
templates:
  dir: ./templates
storage:
  type: sqlite
  sqlite:
    path: ./data/defects.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.IsProduction() {
		t.Error("staging should not be production")
	}
	if len(cfg.Backend.Routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(cfg.Backend.Routes))
	}
	if cfg.Backend.Routes[0].Prefix != "/status" || cfg.Backend.Routes[0].Backend != "native" {
		t.Errorf("routes[0] = %+v", cfg.Backend.Routes[0])
	}
	d, _ := cfg.Upstream.TimeoutDuration()
	if d != 12*time.Second {
		t.Errorf("timeout = %v, want 12s", d)
	}
	if !cfg.Debug.Enabled || !cfg.Override.Enabled {
		t.Error("flags not loaded from file")
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "./data/defects.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
backend:
  mode: legacy
  legacy_url: https://script.example.com/exec
`)

	t.Setenv("GW_SERVER__PORT", "7070")
	t.Setenv("GW_BACKEND__MODE", "native")
	t.Setenv("GW_BACKEND__NATIVE_URL", "https://native.example.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Backend.Mode != ModeNative {
		t.Errorf("mode = %q, want env override native", cfg.Backend.Mode)
	}
}

func TestLoad_SubstitutesEnvVarsInURLs(t *testing.T) {
	t.Setenv("DEPLOYMENT_ID", "abc123")
	path := writeConfig(t, `
environment: development
backend:
  mode: legacy
  legacy_url: https://script.example.com/macros/s/${DEPLOYMENT_ID}/exec
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := "https://script.example.com/macros/s/abc123/exec"
	if cfg.Backend.LegacyURL != want {
		t.Errorf("legacy_url = %q, want %q", cfg.Backend.LegacyURL, want)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown mode",
			yaml: "backend:\n  mode: hybrid\n",
		},
		{
			name: "mixed mode without native url",
			yaml: "backend:\n  mode: mixed\n  legacy_url: https://l.example.com\n",
		},
		{
			name: "legacy mode without legacy url",
			yaml: "backend:\n  mode: legacy\n",
		},
		{
			name: "relative backend url",
			yaml: "backend:\n  mode: legacy\n  legacy_url: /exec\n",
		},
		{
			name: "route prefix without leading slash",
			yaml: "backend:\n  mode: mixed\n  legacy_url: https://l.example.com\n  native_url: https://n.example.com\n  routes:\n    - prefix: status\n      backend: native\n",
		},
		{
			name: "route with unknown backend",
			yaml: "backend:\n  mode: mixed\n  legacy_url: https://l.example.com\n  native_url: https://n.example.com\n  routes:\n    - prefix: /status\n      backend: cloud\n",
		},
		{
			name: "bad timeout",
			yaml: "backend:\n  mode: legacy\n  legacy_url: https://l.example.com\nupstream:\n  timeout: soon\n",
		},
		{
			name: "debug enabled in production",
			yaml: "environment: production\nbackend:\n  mode: legacy\n  legacy_url: https://l.example.com\ndebug:\n  enabled: true\n",
		},
		{
			name: "debug enabled with unknown environment fails closed",
			yaml: "environment: qa\nbackend:\n  mode: legacy\n  legacy_url: https://l.example.com\ndebug:\n  enabled: true\n",
		},
		{
			name: "sqlite storage without path",
			yaml: "backend:\n  mode: legacy\n  legacy_url: https://l.example.com\nstorage:\n  type: sqlite\n",
		},
		{
			name: "unknown storage type",
			yaml: "backend:\n  mode: legacy\n  legacy_url: https://l.example.com\nstorage:\n  type: postgres\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("Load() expected validation error, got nil")
			}
		})
	}
}

func TestValidate_DebugAllowedOutsideProduction(t *testing.T) {
	path := writeConfig(t, `
environment: staging
backend:
  mode: legacy
  legacy_url: https://l.example.com
debug:
  enabled: true
`)
	if _, err := Load(path); err != nil {
		t.Errorf("Load() error = %v, want debug allowed in staging", err)
	}
}
