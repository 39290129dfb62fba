// Package call provides the per-call value types that flow through the pipeline:
// the caller's Message and the classified Response.
package call

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cast"
)

// Reserved message keys.
const (
	KeyHeaders  = "headers"  // map of caller header overrides
	KeyData     = "data"     // raw payload for raw-format routes
	KeyFilePath = "filePath" // file streamed as the body of file routes
	KeyFileName = "name"     // file name used for content-type lookup
)

// Message holds the raw, then validated, parameter values of one call.
// Validation writes coerced values back into the same map.
type Message map[string]any

// Headers returns the caller supplied header overrides.
func (m Message) Headers() map[string]string {
	raw, ok := m[KeyHeaders]
	if !ok || raw == nil {
		return nil
	}

	headers, err := cast.ToStringMapStringE(raw)
	if err != nil {
		return nil
	}
	return headers
}

// Data returns the raw payload carried verbatim by raw-format routes.
func (m Message) Data() string {
	switch v := m[KeyData].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return cast.ToString(v)
	}
}

// FilePath returns the path of the file to upload.
func (m Message) FilePath() string {
	return cast.ToString(m[KeyFilePath])
}

// FileName returns the upload file name.
func (m Message) FileName() string {
	return cast.ToString(m[KeyFileName])
}

// Response is a successful, classified HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   string

	// Data is the decoded JSON body, filled by the standard implementation.
	Data any

	// Meta holds the allowed response headers keyed by lower-cased name.
	Meta map[string]string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || r.Body == "" {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal([]byte(r.Body), v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
