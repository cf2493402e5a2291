// Package routing decides, per request, which backend implementation
// serves it. Decisions are pure functions of the request path, query
// parameters, and startup configuration; nothing here performs I/O.
package routing

// Backend identifies one of the two interchangeable backend
// implementations reachable through the gateway.
type Backend string

const (
	// BackendLegacy is the script-hosted legacy service.
	BackendLegacy Backend = "legacy"

	// BackendNative is the native handler service.
	BackendNative Backend = "native"
)

// Source records why a routing decision was made. Diagnostic only; it
// never affects behavior once the backend is chosen.
type Source string

const (
	// SourceOverride means an explicit backend-override query parameter won.
	SourceOverride Source = "override"

	// SourceModeLegacy means the global mode pins everything to legacy.
	SourceModeLegacy Source = "mode_legacy"

	// SourceModeNative means the global mode pins everything to native.
	SourceModeNative Source = "mode_native"

	// SourceRouteTable means a route table prefix matched.
	SourceRouteTable Source = "route_table"

	// SourceMixedDefault means no prefix matched and mixed mode fell back.
	SourceMixedDefault Source = "mixed_default"
)

// Decision is the result of routing one request.
type Decision struct {
	Backend Backend
	Source  Source
}
