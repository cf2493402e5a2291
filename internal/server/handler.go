package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/corrid"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/envelope"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/normalize"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/routing"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/upstream"
)

// Transparency headers reported on every gateway response.
const (
	HeaderBackend          = "X-Gateway-Backend"
	HeaderRoutingSource    = "X-Gateway-Routing-Source"
	HeaderGatewayVersion   = "X-Gateway-Version"
	HeaderUpstreamStatus   = "X-Upstream-Status"
	HeaderUpstreamDuration = "X-Upstream-Duration-Ms"
)

// maxDetailBytes caps how much upstream body is kept in a defect record.
const maxDetailBytes = 2048

// Gateway is the request-serving hot path: route, invoke, classify, then
// either pass verified JSON through or render the error envelope.
type Gateway struct {
	router  *routing.Router
	invoker *upstream.Invoker
	defects storage.DefectStore
	logger  *slog.Logger
}

func NewGateway(router *routing.Router, invoker *upstream.Invoker, defects storage.DefectStore, logger *slog.Logger) *Gateway {
	if defects == nil {
		defects = &storage.NopStore{}
	}
	return &Gateway{
		router:  router,
		invoker: invoker,
		defects: defects,
		logger:  logger,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decision := g.router.Decide(r.URL.Path, r.URL.Query())
	AddLogField(ctx, "backend", string(decision.Backend))
	AddLogField(ctx, "routing_source", string(decision.Source))

	h := w.Header()
	h.Set(HeaderBackend, string(decision.Backend))
	h.Set(HeaderRoutingSource, string(decision.Source))
	h.Set(HeaderGatewayVersion, ServiceName+"/"+Version)

	outcome := g.invoker.Invoke(ctx, decision.Backend, r)
	if outcome.Completed() {
		h.Set(HeaderUpstreamStatus, strconv.Itoa(outcome.Status))
	}
	h.Set(HeaderUpstreamDuration, strconv.FormatInt(outcome.Elapsed.Milliseconds(), 10))

	c := normalize.Classify(outcome)
	if !c.Defect() {
		h.Set("Content-Type", "application/json")
		w.WriteHeader(c.Status)
		w.Write(c.Body)
		return
	}

	corrID := corrid.New(endpointHint(r.URL.Path))
	AddLogField(ctx, "corr_id", corrID)
	AddLogField(ctx, "classification", string(c.Kind))

	detail := defectDetail(outcome)
	g.logger.Error("upstream defect",
		slog.String("corr_id", corrID),
		slog.String("classification", string(c.Kind)),
		slog.String("backend", string(decision.Backend)),
		slog.String("routing_source", string(decision.Source)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("upstream_status", outcome.Status),
		slog.Int64("elapsed_ms", outcome.Elapsed.Milliseconds()),
		slog.String("detail", detail),
	)

	if err := g.defects.Record(ctx, &storage.DefectRecord{
		CorrID:         corrID,
		Classification: string(c.Kind),
		Backend:        string(decision.Backend),
		RoutingSource:  string(decision.Source),
		Method:         r.Method,
		Path:           r.URL.Path,
		UpstreamStatus: outcome.Status,
		ElapsedMs:      outcome.Elapsed.Milliseconds(),
		Detail:         detail,
	}); err != nil {
		// The client response must go out regardless.
		g.logger.Error("failed to record defect",
			slog.String("corr_id", corrID),
			slog.String("error", err.Error()),
		)
	}

	envelope.Write(w, c, corrID, Version)
}

// defectDetail extracts the server-side detail for a defect: the
// transport error when the call failed, otherwise a truncated body
// snippet. Never sent to clients.
func defectDetail(o upstream.Outcome) string {
	if o.Err != nil {
		return o.Err.Error()
	}
	body := o.Body
	if len(body) > maxDetailBytes {
		body = body[:maxDetailBytes]
	}
	return string(body)
}

// endpointHint derives the correlation id prefix from the first path
// segment.
func endpointHint(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
