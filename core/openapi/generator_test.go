package openapi

import (
	"encoding/json"
	"testing"

	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/registry"
	"github.com/artpar/routegen/core/schema"
)

const testSchema = `
defines:
  constants:
    name: Example API
    description: Example service
    protocol: https
    host: api.example.com
    pathPrefix: /v3
  params:
    owner: { required: true, description: Account login }

repos:
  get:
    url: /repos/:owner/:repo
    method: GET
    params:
      $owner: null
      repo: { required: true, validation: "^[a-z-]+$" }
      per_page: { type: number }
  create-hook:
    url: /repos/:owner/:repo/hooks
    method: POST
    params:
      $owner: null
      repo: { required: true }
      name: { required: true }
      config: { type: json }
      active: { type: boolean }
    request-headers: [X-Custom]
  upload-asset:
    url: https://uploads.example.com/repos/:owner/assets
    method: POST
    hasFileBody: true
    params:
      $owner: null
      name: { required: true }
markdown:
  render-raw:
    url: /markdown/raw
    method: POST
    requestFormat: raw
    params:
      data: { required: true }
`

func compile(t *testing.T) *registry.Registry {
	t.Helper()
	s, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	caps, err := capability.FromSchema("3.0.0", s)
	if err != nil {
		t.Fatalf("FromSchema() error = %v", err)
	}
	reg, err := registry.Compile(s, caps)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return reg
}

func TestNewGenerator_Defaults(t *testing.T) {
	gen := NewGenerator(compile(t))

	if gen.info.Title != "Example API" {
		t.Errorf("Title = %q, want %q", gen.info.Title, "Example API")
	}
	if gen.info.Version != "3.0.0" {
		t.Errorf("Version = %q, want 3.0.0", gen.info.Version)
	}
	if len(gen.servers) != 1 || gen.servers[0].URL != "https://api.example.com" {
		t.Errorf("servers = %+v", gen.servers)
	}
}

func TestGenerate_Paths(t *testing.T) {
	spec := NewGenerator(compile(t)).Generate()

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("OpenAPI = %q", spec.OpenAPI)
	}

	item, ok := spec.Paths["/v3/repos/{owner}/{repo}"]
	if !ok || item.Get == nil {
		t.Fatalf("GET /v3/repos/{owner}/{repo} missing; paths = %v", keys(spec.Paths))
	}
	op := item.Get
	if op.OperationID != "repos.get" {
		t.Errorf("OperationID = %q", op.OperationID)
	}
	if len(op.Tags) != 1 || op.Tags[0] != "repos" {
		t.Errorf("Tags = %v", op.Tags)
	}

	params := map[string]Parameter{}
	for _, p := range op.Parameters {
		params[p.Name] = p
	}
	if p := params["owner"]; p.In != "path" || !p.Required || p.Description != "Account login" {
		t.Errorf("owner = %+v", p)
	}
	if p := params["repo"]; p.Schema == nil || p.Schema.Pattern != "^[a-z-]+$" {
		t.Errorf("repo = %+v", p)
	}
	if p := params["per_page"]; p.In != "query" || p.Required || p.Schema.Type != "integer" {
		t.Errorf("per_page = %+v", p)
	}
}

func TestGenerate_JSONBody(t *testing.T) {
	spec := NewGenerator(compile(t)).Generate()

	op := spec.Paths["/v3/repos/{owner}/{repo}/hooks"].Post
	if op == nil || op.RequestBody == nil {
		t.Fatal("POST hooks operation or body missing")
	}
	body := op.RequestBody.Content["application/json"].Schema
	if body == nil {
		t.Fatal("json body schema missing")
	}
	if _, ok := body.Properties["owner"]; ok {
		t.Error("path parameter listed in the body")
	}
	if body.Properties["config"].Type != "object" || body.Properties["active"].Type != "boolean" {
		t.Errorf("properties = %+v", body.Properties)
	}
	if len(body.Required) != 1 || body.Required[0] != "name" {
		t.Errorf("Required = %v, want [name]", body.Required)
	}

	var header bool
	for _, p := range op.Parameters {
		if p.In == "header" && p.Name == "x-custom" {
			header = true
		}
	}
	if !header {
		t.Error("allowed request header not documented")
	}
}

func TestGenerate_AbsoluteAndRaw(t *testing.T) {
	spec := NewGenerator(compile(t)).Generate()

	upload := spec.Paths["/repos/{owner}/assets"].Post
	if upload == nil {
		t.Fatalf("upload operation missing; paths = %v", keys(spec.Paths))
	}
	if len(upload.Servers) != 1 || upload.Servers[0].URL != "https://uploads.example.com" {
		t.Errorf("Servers = %+v", upload.Servers)
	}
	if _, ok := upload.RequestBody.Content["application/octet-stream"]; !ok {
		t.Error("file body not documented as octet-stream")
	}

	raw := spec.Paths["/v3/markdown/raw"].Post
	if raw == nil || raw.RequestBody == nil {
		t.Fatal("raw operation missing")
	}
	if _, ok := raw.RequestBody.Content["text/plain"]; !ok {
		t.Error("raw body not documented as text/plain")
	}
}

func TestGenerate_TagsSorted(t *testing.T) {
	spec := NewGenerator(compile(t)).Generate()
	if len(spec.Tags) != 2 || spec.Tags[0].Name != "markdown" || spec.Tags[1].Name != "repos" {
		t.Errorf("Tags = %+v", spec.Tags)
	}
}

func TestSpec_ToJSON(t *testing.T) {
	spec := NewGenerator(compile(t)).Generate()

	data, err := spec.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := doc["paths"].(map[string]any); !ok {
		t.Error("paths missing from document")
	}
}

func keys(m map[string]PathItem) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
