package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/routegen/adapters/memory"
	"github.com/artpar/routegen/adapters/metrics"
	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/registry"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/ports"
)

const inspectSchema = `
defines:
  constants:
    name: Example
    host: api.example.com
repos:
  get:
    url: /repos/:owner/:repo
    method: GET
    params:
      owner: { required: true }
      repo: { required: true }
  list:
    url: /user/repos
    method: GET
gists:
  create:
    url: /gists
    method: POST
    params:
      files: { type: json, required: true }
`

type staticSource struct {
	reg *registry.Registry
}

func (s staticSource) Registry() *registry.Registry { return s.reg }

func compileInspect(t *testing.T) *registry.Registry {
	t.Helper()
	s, err := schema.Parse([]byte(inspectSchema))
	if err != nil {
		t.Fatal(err)
	}
	caps, err := capability.FromSchema("1.0.0", s)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Compile(s, caps)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func newInspect(t *testing.T, reg *registry.Registry) (http.Handler, *memory.Journal) {
	t.Helper()
	journal := memory.NewJournal(10)
	promReg := prometheus.NewRegistry()
	metrics.New(promReg).Endpoints.Set(3)

	return NewInspectRouter(InspectConfig{
		Source:   staticSource{reg: reg},
		Journal:  journal,
		Gatherer: promReg,
		Version:  "test",
		Logger:   zerolog.Nop(),
	}), journal
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return doc
}

func TestInspect_Health(t *testing.T) {
	h, _ := newInspect(t, compileInspect(t))
	w := get(t, h, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	doc := decode(t, w)
	if doc["status"] != "ok" || doc["endpoints"] != float64(3) {
		t.Errorf("health = %v", doc)
	}

	h, _ = newInspect(t, nil)
	if w := get(t, h, "/healthz"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status without registry = %d, want 503", w.Code)
	}
}

func TestInspect_Namespaces(t *testing.T) {
	h, _ := newInspect(t, compileInspect(t))

	w := get(t, h, "/namespaces")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decode(t, w)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("namespaces = %d, want 2", len(data))
	}
	first := data[0].(map[string]any)
	if first["id"] != "gists" {
		t.Errorf("first namespace = %v, want gists (sorted)", first["id"])
	}

	w = get(t, h, "/namespaces/repos")
	res := decode(t, w)["data"].(map[string]any)
	attrs := res["attributes"].(map[string]any)
	if attrs["accessor"] != "getReposApi" {
		t.Errorf("accessor = %v", attrs["accessor"])
	}
	fns := attrs["functions"].([]any)
	if len(fns) != 2 || fns[0] != "get" || fns[1] != "list" {
		t.Errorf("functions = %v", fns)
	}

	if w := get(t, h, "/namespaces/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown namespace status = %d", w.Code)
	}
}

func TestInspect_Endpoint(t *testing.T) {
	h, _ := newInspect(t, compileInspect(t))

	w := get(t, h, "/namespaces/repos/get")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	res := decode(t, w)["data"].(map[string]any)
	if res["id"] != "repos.get" {
		t.Errorf("id = %v", res["id"])
	}
	attrs := res["attributes"].(map[string]any)
	if attrs["method"] != "GET" || attrs["url"] != "/repos/:owner/:repo" {
		t.Errorf("attributes = %v", attrs)
	}

	if w := get(t, h, "/namespaces/repos/delete"); w.Code != http.StatusNotFound {
		t.Errorf("unknown function status = %d", w.Code)
	}
}

func TestInspect_OpenAPI(t *testing.T) {
	h, _ := newInspect(t, compileInspect(t))

	w := get(t, h, "/openapi.json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	paths := decode(t, w)["paths"].(map[string]any)
	if _, ok := paths["/repos/{owner}/{repo}"]; !ok {
		t.Errorf("paths = %v", paths)
	}
}

func TestInspect_Calls(t *testing.T) {
	h, journal := newInspect(t, compileInspect(t))
	_ = journal.Record(context.Background(), ports.CallRecord{
		ID:        "call-1",
		Namespace: "repos",
		Function:  "get",
		Method:    "GET",
		URL:       "https://api.example.com/repos/a/b",
		Status:    200,
		Outcome:   ports.OutcomeSuccess,
		Duration:  15 * time.Millisecond,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	w := get(t, h, "/calls?limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := decode(t, w)["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("calls = %d, want 1", len(data))
	}
	attrs := data[0].(map[string]any)["attributes"].(map[string]any)
	if attrs["endpoint"] != "repos.get" || attrs["duration_ms"] != float64(15) {
		t.Errorf("attributes = %v", attrs)
	}

	if w := get(t, h, "/calls?limit=zero"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d", w.Code)
	}
}

func TestInspect_Metrics(t *testing.T) {
	h, _ := newInspect(t, compileInspect(t))

	w := get(t, h, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "routegen_endpoints 3") {
		t.Errorf("metrics output missing endpoints gauge:\n%s", w.Body.String())
	}
}

func TestInspect_NoRegistry(t *testing.T) {
	h, _ := newInspect(t, nil)
	if w := get(t, h, "/namespaces"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
