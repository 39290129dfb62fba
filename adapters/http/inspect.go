package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/routegen/core/openapi"
	"github.com/artpar/routegen/core/registry"
	"github.com/artpar/routegen/pkg/jsonapi"
	"github.com/artpar/routegen/ports"
)

// RegistrySource returns the currently compiled registry, nil before the first compile.
type RegistrySource interface {
	Registry() *registry.Registry
}

// InspectConfig holds the collaborators of the introspection server.
type InspectConfig struct {
	Source   RegistrySource
	Journal  ports.CallJournal  // optional, enables /calls
	Gatherer prometheus.Gatherer // optional, enables /metrics
	Version  string
	Logger   zerolog.Logger
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Endpoints int    `json:"endpoints"`
}

// NewInspectRouter creates the read-only introspection router.
func NewInspectRouter(cfg InspectConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(NewLoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &inspectHandler{cfg: cfg}

	r.Get("/healthz", h.health)
	r.Get("/namespaces", h.listNamespaces)
	r.Get("/namespaces/{namespace}", h.getNamespace)
	r.Get("/namespaces/{namespace}/{function}", h.getEndpoint)
	r.Get("/openapi.json", h.openAPI)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	))

	if cfg.Journal != nil {
		r.Get("/calls", h.recentCalls)
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

type inspectHandler struct {
	cfg InspectConfig
}

func (h *inspectHandler) registry(w http.ResponseWriter) *registry.Registry {
	reg := h.cfg.Source.Registry()
	if reg == nil {
		jsonapi.WriteError(w, jsonapi.ErrUnavailable("no schema compiled"))
	}
	return reg
}

func (h *inspectHandler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: h.cfg.Version}
	status := http.StatusOK
	if reg := h.cfg.Source.Registry(); reg != nil {
		resp.Endpoints = len(reg.Endpoints())
	} else {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (h *inspectHandler) listNamespaces(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}

	namespaces := reg.Namespaces()
	resources := make([]jsonapi.Resource, 0, len(namespaces))
	for _, ns := range namespaces {
		resources = append(resources, namespaceResource(ns))
	}
	jsonapi.WriteCollection(w, resources)
}

func (h *inspectHandler) getNamespace(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}

	name := chi.URLParam(r, "namespace")
	ns, ok := reg.Namespace(name)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("namespace", name))
		return
	}
	jsonapi.WriteResource(w, namespaceResource(ns))
}

func (h *inspectHandler) getEndpoint(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}

	ns, fn := chi.URLParam(r, "namespace"), chi.URLParam(r, "function")
	e, ok := reg.Endpoint(ns, fn)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("endpoint", ns+"."+fn))
		return
	}
	jsonapi.WriteResource(w, endpointResource(e))
}

func (h *inspectHandler) openAPI(w http.ResponseWriter, r *http.Request) {
	reg := h.registry(w)
	if reg == nil {
		return
	}

	data, err := openapi.NewGenerator(reg).Generate().ToJSON()
	if err != nil {
		jsonapi.WriteErrorFromGo(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

func (h *inspectHandler) recentCalls(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonapi.WriteError(w, jsonapi.ErrBadRequest("limit", "limit must be a positive integer"))
			return
		}
		limit = min(n, 500)
	}

	records, err := h.cfg.Journal.Recent(r.Context(), limit)
	if err != nil {
		h.cfg.Logger.Error().Err(err).Msg("failed to read call journal")
		jsonapi.WriteErrorFromGo(w, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(records))
	for _, rec := range records {
		resources = append(resources, jsonapi.NewResource("calls", rec.ID).
			Attr("endpoint", rec.Namespace+"."+rec.Function).
			Attr("method", rec.Method).
			Attr("url", rec.URL).
			Attr("status", rec.Status).
			Attr("outcome", string(rec.Outcome)).
			Attr("error", rec.Error).
			Attr("duration_ms", rec.Duration.Milliseconds()).
			Attr("created_at", rec.CreatedAt.UTC().Format(time.RFC3339Nano)).
			Build())
	}
	jsonapi.WriteCollection(w, resources)
}

func namespaceResource(ns *registry.Namespace) jsonapi.Resource {
	ids := make([]string, 0)
	for _, fn := range ns.Functions() {
		ids = append(ids, ns.Name+"."+fn)
	}
	return jsonapi.NewResource("namespaces", ns.Name).
		Attr("accessor", ns.Accessor).
		Attr("functions", ns.Functions()).
		HasMany("endpoints", "endpoints", ids).
		Link("/namespaces/" + ns.Name).
		Build()
}

func endpointResource(e *registry.Endpoint) jsonapi.Resource {
	route := e.Route
	return jsonapi.NewResource("endpoints", e.ID()).
		Attr("namespace", e.Namespace).
		Attr("function", e.Name).
		Attr("path", strings.Join(e.Path, "/")).
		Attr("method", strings.ToUpper(route.Method)).
		Attr("url", route.URL).
		Attr("params", route.Params).
		Attr("requestFormat", string(route.RequestFormat)).
		Attr("requestHeaders", route.RequestHeaders).
		Attr("responseHeaders", route.ResponseHeaders).
		Attr("hasFileBody", route.HasFileBody).
		Attr("timeout", route.Timeout).
		Attr("description", route.Description).
		Link("/namespaces/" + e.Namespace + "/" + e.Name).
		Build()
}

// NewLoggingMiddleware creates middleware that logs requests at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip health checks and metrics
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
