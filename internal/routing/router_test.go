package routing

import (
	"net/url"
	"testing"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/config"
)

func testConfig(mode string, overrideEnabled bool, environment string) *config.Config {
	return &config.Config{
		Environment: environment,
		Backend: config.BackendConfig{
			Mode:      mode,
			LegacyURL: "https://legacy.example.com/exec",
			NativeURL: "https://native.example.com",
			Routes: []config.RouteConfig{
				{Prefix: "/status", Backend: "native"},
				{Prefix: "/api/events", Backend: "native"},
				{Prefix: "/api", Backend: "legacy"},
			},
		},
		Override: config.OverrideConfig{Enabled: overrideEnabled},
	}
}

func TestRouter_Decide_GlobalModes(t *testing.T) {
	paths := []string{"/", "/status", "/api/events", "/redirect", "/anything/else"}

	legacyRouter, err := New(testConfig(config.ModeLegacy, false, config.EnvProduction))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	nativeRouter, err := New(testConfig(config.ModeNative, false, config.EnvProduction))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, path := range paths {
		if d := legacyRouter.Decide(path, nil); d.Backend != BackendLegacy || d.Source != SourceModeLegacy {
			t.Errorf("legacy mode Decide(%q) = %+v, want legacy/mode_legacy", path, d)
		}
		if d := nativeRouter.Decide(path, nil); d.Backend != BackendNative || d.Source != SourceModeNative {
			t.Errorf("native mode Decide(%q) = %+v, want native/mode_native", path, d)
		}
	}
}

func TestRouter_Decide_Mixed(t *testing.T) {
	router, err := New(testConfig(config.ModeMixed, false, config.EnvProduction))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name        string
		path        string
		wantBackend Backend
		wantSource  Source
	}{
		{
			name:        "configured native prefix",
			path:        "/status",
			wantBackend: BackendNative,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "native prefix with subpath",
			path:        "/status/detail",
			wantBackend: BackendNative,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "longest prefix wins",
			path:        "/api/events/123",
			wantBackend: BackendNative,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "shorter legacy prefix",
			path:        "/api/sponsors",
			wantBackend: BackendLegacy,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "unmatched path defaults to legacy",
			path:        "/redirect",
			wantBackend: BackendLegacy,
			wantSource:  SourceMixedDefault,
		},
		{
			name:        "path is case-insensitive",
			path:        "/STATUS",
			wantBackend: BackendNative,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "trailing slash is stripped",
			path:        "/status/",
			wantBackend: BackendNative,
			wantSource:  SourceRouteTable,
		},
		{
			name:        "prefix must match on a segment boundary",
			path:        "/statusboard",
			wantBackend: BackendLegacy,
			wantSource:  SourceMixedDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := router.Decide(tt.path, nil)
			if d.Backend != tt.wantBackend {
				t.Errorf("Decide(%q) backend = %v, want %v", tt.path, d.Backend, tt.wantBackend)
			}
			if d.Source != tt.wantSource {
				t.Errorf("Decide(%q) source = %v, want %v", tt.path, d.Source, tt.wantSource)
			}
		})
	}
}

func TestRouter_Decide_Override(t *testing.T) {
	tests := []struct {
		name            string
		overrideEnabled bool
		environment     string
		query           url.Values
		wantBackend     Backend
		wantSource      Source
	}{
		{
			name:            "override honored in staging",
			overrideEnabled: true,
			environment:     config.EnvStaging,
			query:           url.Values{OverrideParam: {"native"}},
			wantBackend:     BackendNative,
			wantSource:      SourceOverride,
		},
		{
			name:            "override honored for legacy value",
			overrideEnabled: true,
			environment:     config.EnvDevelopment,
			query:           url.Values{OverrideParam: {"legacy"}},
			wantBackend:     BackendLegacy,
			wantSource:      SourceOverride,
		},
		{
			name:            "override is case-insensitive",
			overrideEnabled: true,
			environment:     config.EnvStaging,
			query:           url.Values{OverrideParam: {"NATIVE"}},
			wantBackend:     BackendNative,
			wantSource:      SourceOverride,
		},
		{
			name:            "override inert in production even when enabled",
			overrideEnabled: true,
			environment:     config.EnvProduction,
			query:           url.Values{OverrideParam: {"native"}},
			wantBackend:     BackendLegacy,
			wantSource:      SourceMixedDefault,
		},
		{
			name:            "override ignored when flag disabled",
			overrideEnabled: false,
			environment:     config.EnvStaging,
			query:           url.Values{OverrideParam: {"native"}},
			wantBackend:     BackendLegacy,
			wantSource:      SourceMixedDefault,
		},
		{
			name:            "unrecognized value falls through to routing",
			overrideEnabled: true,
			environment:     config.EnvStaging,
			query:           url.Values{OverrideParam: {"other"}},
			wantBackend:     BackendLegacy,
			wantSource:      SourceMixedDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, err := New(testConfig(config.ModeMixed, tt.overrideEnabled, tt.environment))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			d := router.Decide("/redirect", tt.query)
			if d.Backend != tt.wantBackend {
				t.Errorf("Decide() backend = %v, want %v", d.Backend, tt.wantBackend)
			}
			if d.Source != tt.wantSource {
				t.Errorf("Decide() source = %v, want %v", d.Source, tt.wantSource)
			}
		})
	}
}

func TestRouter_Decide_IsPure(t *testing.T) {
	router, err := New(testConfig(config.ModeMixed, false, config.EnvProduction))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first := router.Decide("/status", nil)
	for i := 0; i < 100; i++ {
		if d := router.Decide("/status", nil); d != first {
			t.Fatalf("Decide() not deterministic: %+v != %+v", d, first)
		}
	}
}

func TestCompileTable_Errors(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
	}{
		{
			name:   "missing leading slash",
			routes: []Route{{Prefix: "status", Backend: BackendNative}},
		},
		{
			name:   "unknown backend",
			routes: []Route{{Prefix: "/status", Backend: "cloud"}},
		},
		{
			name: "duplicate prefix after normalization",
			routes: []Route{
				{Prefix: "/status", Backend: BackendNative},
				{Prefix: "/Status/", Backend: BackendLegacy},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CompileTable(tt.routes); err == nil {
				t.Error("CompileTable() expected error, got nil")
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/Status", "/status"},
		{"/status/", "/status"},
		{"/", "/"},
		{"", "/"},
		{"/API/Events///", "/api/events"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
