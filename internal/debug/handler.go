package debug

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/routing"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage"
)

// Handler serves the introspection endpoints. Mounted only behind the
// debug.enabled flag.
type Handler struct {
	templates *Registry
	router    *routing.Router
	defects   storage.DefectStore
}

func NewHandler(templates *Registry, router *routing.Router, defects storage.DefectStore) *Handler {
	if defects == nil {
		defects = &storage.NopStore{}
	}
	return &Handler{
		templates: templates,
		router:    router,
		defects:   defects,
	}
}

// Routes returns the debug subrouter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/templates", h.handleTemplateNames)
	r.Get("/templates/manifest", h.handleManifest)
	r.Get("/templates/{name}", h.handleValidate)
	r.Get("/routes", h.handleRoutes)
	r.Get("/defects", h.handleDefects)
	r.Get("/defects/{corrId}", h.handleDefect)
	return r
}

func (h *Handler) handleTemplateNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": h.templates.Names(),
	})
}

func (h *Handler) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"manifest": h.templates.Manifest(),
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, ok := h.templates.Validate(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "unknown template: " + name,
		})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type routeView struct {
	Prefix  string `json:"prefix"`
	Backend string `json:"backend"`
}

func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.router.Table().Routes()
	views := make([]routeView, 0, len(routes))
	for _, rt := range routes {
		views = append(views, routeView{Prefix: rt.Prefix, Backend: string(rt.Backend)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":   h.router.Mode(),
		"routes": views,
	})
}

type defectView struct {
	CorrID         string `json:"corrId"`
	Classification string `json:"classification"`
	Backend        string `json:"backend"`
	RoutingSource  string `json:"routingSource"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
	ElapsedMs      int64  `json:"elapsedMs"`
	Detail         string `json:"detail,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

func toDefectView(rec *storage.DefectRecord) defectView {
	return defectView{
		CorrID:         rec.CorrID,
		Classification: rec.Classification,
		Backend:        rec.Backend,
		RoutingSource:  rec.RoutingSource,
		Method:         rec.Method,
		Path:           rec.Path,
		UpstreamStatus: rec.UpstreamStatus,
		ElapsedMs:      rec.ElapsedMs,
		Detail:         rec.Detail,
		CreatedAt:      rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) handleDefects(w http.ResponseWriter, r *http.Request) {
	recs, err := h.defects.ListRecent(r.Context(), 100)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "failed to list defects",
		})
		return
	}
	views := make([]defectView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toDefectView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"defects": views})
}

func (h *Handler) handleDefect(w http.ResponseWriter, r *http.Request) {
	corrID := chi.URLParam(r, "corrId")
	rec, err := h.defects.GetByCorrID(r.Context(), corrID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": "no defect record for " + corrID,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "failed to load defect record",
		})
		return
	}
	writeJSON(w, http.StatusOK, toDefectView(rec))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
