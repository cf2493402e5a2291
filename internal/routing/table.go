package routing

import (
	"fmt"
	"sort"
	"strings"
)

// Route is one compiled (prefix, backend) pair.
type Route struct {
	Prefix  string
	Backend Backend
}

// Table is the compiled route table: an ordered list of prefix rules,
// longest prefix first, built once at startup and immutable afterwards.
type Table struct {
	routes []Route
}

// CompileTable normalizes and orders the configured routes. Prefixes are
// lower-cased and stripped of trailing slashes so they compare against
// normalized request paths.
func CompileTable(routes []Route) (*Table, error) {
	compiled := make([]Route, 0, len(routes))
	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		prefix := NormalizePath(r.Prefix)
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route %d: prefix %q must start with /", i, r.Prefix)
		}
		if r.Backend != BackendLegacy && r.Backend != BackendNative {
			return nil, fmt.Errorf("route %d: unknown backend %q", i, r.Backend)
		}
		if seen[prefix] {
			return nil, fmt.Errorf("route %d: duplicate prefix %q", i, prefix)
		}
		seen[prefix] = true
		compiled = append(compiled, Route{Prefix: prefix, Backend: r.Backend})
	}

	// Longest prefix first so the first match is the most specific one.
	sort.SliceStable(compiled, func(i, j int) bool {
		return len(compiled[i].Prefix) > len(compiled[j].Prefix)
	})

	return &Table{routes: compiled}, nil
}

// Match returns the backend for the first (most specific) prefix that
// applies to the normalized path.
func (t *Table) Match(path string) (Backend, bool) {
	for _, r := range t.routes {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") || r.Prefix == "/" {
			return r.Backend, true
		}
	}
	return "", false
}

// Routes returns a copy of the compiled rules in match order, for the
// introspection surface and the CLI.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// NormalizePath lower-cases a path and strips the trailing slash (the
// root path stays "/").
func NormalizePath(p string) string {
	p = strings.ToLower(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}
