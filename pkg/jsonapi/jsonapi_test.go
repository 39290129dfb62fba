package jsonapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/routegen/domain/apierr"
)

func TestWriteDocument(t *testing.T) {
	t.Run("sets content type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteResource(w, NewResource("namespaces", "repos").Build())

		if w.Header().Get("Content-Type") != ContentType {
			t.Errorf("Content-Type = %v, want %v", w.Header().Get("Content-Type"), ContentType)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("writes valid JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteResource(w, NewResource("namespaces", "repos").Attr("accessor", "getReposApi").Build())

		var result struct {
			Data    Resource `json:"data"`
			JSONAPI JSONAPI  `json:"jsonapi"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if result.Data.Attributes["accessor"] != "getReposApi" {
			t.Errorf("accessor = %v", result.Data.Attributes["accessor"])
		}
		if result.JSONAPI.Version != Version {
			t.Errorf("jsonapi.version = %q", result.JSONAPI.Version)
		}
	})
}

func TestWriteCollection_Empty(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCollection(w, nil)

	var result map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	data, ok := result["data"].([]any)
	if !ok || len(data) != 0 {
		t.Errorf("data = %#v, want empty array", result["data"])
	}
	if meta := result["meta"].(map[string]any); meta["count"] != float64(0) {
		t.Errorf("meta.count = %v", meta["count"])
	}
}

func TestHasMany(t *testing.T) {
	r := NewResource("namespaces", "repos").HasMany("endpoints", "endpoints", []string{"repos.get", "repos.list"}).Build()
	rel := r.Relationships["endpoints"]
	if len(rel.Data) != 2 || rel.Data[1].ID != "repos.list" || rel.Data[0].Type != "endpoints" {
		t.Errorf("relationship = %+v", rel)
	}
}

func TestErrFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"bad request", apierr.BadRequest("Empty value for parameter '%s': %v", "owner", nil), 400, "BadRequest"},
		{"http error", apierr.HTTP(404, `{"message":"Not Found"}`), 404, "HttpError"},
		{"timeout", apierr.GatewayTimeout("/x", errors.New("deadline")), 504, "GatewayTimeout"},
		{"transport", apierr.Transport("/x", errors.New("refused")), 502, "TransportError"},
		{"schema", apierr.Schema("bad schema"), 422, "SchemaError"},
		{"plain", errors.New("boom"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ErrFromError(tt.err)
			if e.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", e.StatusCode(), tt.wantStatus)
			}
			if e.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", e.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrNotFound("namespace", "nope"))

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
	var doc Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].Detail != "The namespace 'nope' was not found" {
		t.Errorf("errors = %+v", doc.Errors)
	}

	w = httptest.NewRecorder()
	WriteError(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status without errors = %d, want 500", w.Code)
	}
}
