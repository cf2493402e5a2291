package routing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/config"
)

// OverrideParam is the query parameter that forces a backend in
// non-production deployments with the override flag enabled.
const OverrideParam = "backend"

// Router turns (path, query) into a Decision. It holds only
// startup-compiled state and is safe for concurrent use.
type Router struct {
	mode          string
	table         *Table
	allowOverride bool
	production    bool
}

// New compiles a Router from configuration.
func New(cfg *config.Config) (*Router, error) {
	routes := make([]Route, 0, len(cfg.Backend.Routes))
	for _, r := range cfg.Backend.Routes {
		routes = append(routes, Route{Prefix: r.Prefix, Backend: Backend(r.Backend)})
	}
	table, err := CompileTable(routes)
	if err != nil {
		return nil, fmt.Errorf("compile route table: %w", err)
	}

	return &Router{
		mode:          cfg.Backend.Mode,
		table:         table,
		allowOverride: cfg.Override.Enabled,
		production:    cfg.IsProduction(),
	}, nil
}

// Mode returns the configured global backend mode.
func (r *Router) Mode() string { return r.mode }

// Table returns the compiled route table.
func (r *Router) Table() *Table { return r.table }

// Decide picks the backend for a request. Precedence: explicit override
// (non-production with the flag enabled), global mode, route table,
// legacy default.
func (r *Router) Decide(path string, query url.Values) Decision {
	if r.allowOverride && !r.production {
		switch strings.ToLower(query.Get(OverrideParam)) {
		case string(BackendLegacy):
			return Decision{Backend: BackendLegacy, Source: SourceOverride}
		case string(BackendNative):
			return Decision{Backend: BackendNative, Source: SourceOverride}
		}
		// Unrecognized values fall through to normal routing.
	}

	switch r.mode {
	case config.ModeLegacy:
		return Decision{Backend: BackendLegacy, Source: SourceModeLegacy}
	case config.ModeNative:
		return Decision{Backend: BackendNative, Source: SourceModeNative}
	}

	if backend, ok := r.table.Match(NormalizePath(path)); ok {
		return Decision{Backend: backend, Source: SourceRouteTable}
	}

	return Decision{Backend: BackendLegacy, Source: SourceMixedDefault}
}
