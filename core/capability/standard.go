package capability

import (
	"context"
	"encoding/json"
	"mime"
	"strings"

	"github.com/artpar/routegen/core/convention"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

// Standard is the default function implementation: it sends the call and
// decodes a JSON body into Response.Data.
func Standard(ctx context.Context, s Sender, msg call.Message, route schema.Route) (*call.Response, error) {
	resp, err := s.Send(ctx, msg, route)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.Body) == "" || !isJSONContent(resp.Header.Get("Content-Type")) {
		return resp, nil
	}

	var data any
	if err := json.Unmarshal([]byte(resp.Body), &data); err != nil {
		return resp, apierr.Internal("decode response body", err)
	}
	resp.Data = data
	return resp, nil
}

// isJSONContent treats a missing content type as JSON.
func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// StandardSection builds a section whose functions all use Standard.
func StandardSection(name string, functions ...string) *Section {
	sec := NewSection(name)
	for _, fn := range functions {
		sec.Handle(fn, Standard)
	}
	return sec
}

// FromSchema derives a capability set that implements every route of s with Standard.
func FromSchema(version string, s *schema.Schema) (*Set, error) {
	sections := make(map[string]*Section)
	var order []string

	err := s.Walk(func(path []string, _ *schema.Route) error {
		ns := convention.Namespace(path)
		sec, ok := sections[ns]
		if !ok {
			sec = NewSection(ns)
			sections[ns] = sec
			order = append(order, ns)
		}
		if fn := convention.FunctionName(path); fn != "" {
			sec.Handle(fn, Standard)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	set := NewSet(version)
	for _, ns := range order {
		if err := set.Register(sections[ns]); err != nil {
			return nil, err
		}
	}
	return set, nil
}
