// Package request turns validated call parameters into a wire representation:
// the final URL plus a query list, JSON body or raw payload depending on the format.
// Assembly is pure; values that cannot be encoded are dropped with a Warning.
package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/call"
)

// Content types sent for each body format.
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeForm = "application/x-www-form-urlencoded; charset=utf-8"
	ContentTypeRaw  = "text/plain; charset=utf-8"
)

var (
	placeholder    = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)
	combinedSplit  = regexp.MustCompile(`\s*\+\s*`)
	componentFixer = strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	)
)

// Options carry the schema-wide settings that affect assembly.
type Options struct {
	PathPrefix    string
	DefaultFormat schema.Format // json when empty
}

// Pair is one encoded name=value entry of a query or form body.
type Pair struct {
	Name  string
	Value string
}

// Field is one entry of a JSON body, kept in declaration order.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Warning reports a parameter dropped because it could not be encoded.
type Warning struct {
	Param string
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("parameter %q dropped: %v", w.Param, w.Err)
}

// Assembled is the wire representation of one call.
type Assembled struct {
	Method string
	URL    string // path (or absolute URL) with path parameters substituted
	Format schema.Format
	Pairs  []Pair  // query and form formats
	Fields []Field // json format
	Raw    string  // raw format
}

// Assemble builds the wire representation of msg for route.
func Assemble(msg call.Message, route schema.Route, opts Options) (*Assembled, []Warning) {
	a := &Assembled{
		Method: strings.ToUpper(route.Method),
		Format: EffectiveFormat(route, opts.DefaultFormat),
	}

	u := route.URL
	if opts.PathPrefix != "" && !isAbsolute(u) && !strings.HasPrefix(u, opts.PathPrefix) {
		u = opts.PathPrefix + u
	}
	pathParams := PathParams(u)

	var warnings []Warning
	for _, p := range route.Params {
		value, ok := msg[p.Name]
		if !ok || value == nil {
			continue
		}

		if pathParams[p.Name] {
			encoded, err := encodeValue(value, false)
			if err != nil {
				warnings = append(warnings, Warning{Param: p.Name, Err: err})
				continue
			}
			u = substitute(u, p.Name, encoded)
			continue
		}

		switch a.Format {
		case schema.FormatJSON:
			data, err := json.Marshal(value)
			if err != nil {
				warnings = append(warnings, Warning{Param: p.Name, Err: err})
				continue
			}
			a.Fields = append(a.Fields, Field{Name: p.Name, Value: data})
		case schema.FormatRaw:
			// the payload comes from the message data, not from parameters
		default:
			encoded, err := encodeValue(value, p.Rule.Combined)
			if err != nil {
				warnings = append(warnings, Warning{Param: p.Name, Err: err})
				continue
			}
			a.Pairs = append(a.Pairs, Pair{Name: p.Name, Value: encoded})
		}
	}

	if a.Format == schema.FormatRaw {
		a.Raw = msg.Data()
	}
	a.URL = u
	return a, warnings
}

// EffectiveFormat returns the format used for route: query for bodyless methods and
// file uploads, otherwise the declared format, then the default, then json.
func EffectiveFormat(route schema.Route, fallback schema.Format) schema.Format {
	if !route.HasBody() || route.HasFileBody {
		return schema.FormatQuery
	}
	if route.RequestFormat != schema.FormatNone {
		return route.RequestFormat
	}
	if fallback != schema.FormatNone {
		return fallback
	}
	return schema.FormatJSON
}

// PathParams returns the :name placeholders of a URL template.
func PathParams(template string) map[string]bool {
	names := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		names[m[1]] = true
	}
	return names
}

// Query returns the &-joined pairs.
func (a *Assembled) Query() string {
	parts := make([]string, len(a.Pairs))
	for i, p := range a.Pairs {
		parts[i] = p.Name + "=" + p.Value
	}
	return strings.Join(parts, "&")
}

// HasBody reports whether the assembled call sends a body.
func (a *Assembled) HasBody() bool {
	return a.Format != schema.FormatQuery
}

// Path returns the URL with the query list appended for query-format calls.
func (a *Assembled) Path() string {
	if a.Format != schema.FormatQuery || len(a.Pairs) == 0 {
		return a.URL
	}
	return a.URL + "?" + a.Query()
}

// Body returns the encoded body and its content type. Query-format calls have none.
func (a *Assembled) Body() ([]byte, string) {
	switch a.Format {
	case schema.FormatJSON:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, f := range a.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(f.Name)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(f.Value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), ContentTypeJSON
	case schema.FormatForm:
		return []byte(a.Query()), ContentTypeForm
	case schema.FormatRaw:
		return []byte(a.Raw), ContentTypeRaw
	default:
		return nil, ""
	}
}

// EncodeComponent percent-encodes s leaving A-Z a-z 0-9 - _ . ! ~ * ' ( ) intact.
func EncodeComponent(s string) string {
	return componentFixer.Replace(url.QueryEscape(s))
}

// encodeValue renders a value for a URL. Structured values are JSON-encoded first;
// combined values are split on "+" and each term encoded separately.
func encodeValue(value any, combined bool) (string, error) {
	switch v := value.(type) {
	case map[string]any, []any, map[string]string, []string:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return EncodeComponent(string(data)), nil
	case time.Time:
		return EncodeComponent(v.UTC().Format(time.RFC3339Nano)), nil
	}

	s, err := cast.ToStringE(value)
	if err != nil {
		data, jerr := json.Marshal(value)
		if jerr != nil {
			return "", jerr
		}
		s = string(data)
	}

	if !combined {
		return EncodeComponent(s), nil
	}
	terms := combinedSplit.Split(s, -1)
	for i, term := range terms {
		terms[i] = EncodeComponent(term)
	}
	return strings.Join(terms, "+"), nil
}

// substitute replaces the :name placeholder, leaving longer names alone.
func substitute(template, name, value string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if m[1:] == name {
			return value
		}
		return m
	})
}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
