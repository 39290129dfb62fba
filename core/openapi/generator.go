// Package openapi generates OpenAPI 3.0 documents from a compiled route registry.
// Each endpoint becomes one operation tagged with its namespace.
package openapi

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/artpar/routegen/core/registry"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/request"
)

// Spec represents an OpenAPI 3.0 specification.
type Spec struct {
	OpenAPI    string              `json:"openapi"`
	Info       Info                `json:"info"`
	Servers    []Server            `json:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths"`
	Components Components          `json:"components"`
	Tags       []Tag               `json:"tags,omitempty"`
}

// Info provides API metadata.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Server represents a server URL.
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem contains operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Head   *Operation `json:"head,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an API operation.
type Operation struct {
	Tags        []string              `json:"tags,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Description string                `json:"description,omitempty"`
	OperationID string                `json:"operationId,omitempty"`
	Servers     []Server              `json:"servers,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   map[string]Response   `json:"responses"`
	Security    []SecurityRequirement `json:"security,omitempty"`
}

// Parameter represents an API parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path, query, header
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content"`
}

// Response represents an API response.
type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Schema represents a JSON Schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Pattern     string             `json:"pattern,omitempty"`
}

// Components contains reusable definitions.
type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

// SecurityScheme defines an authentication method.
type SecurityScheme struct {
	Type        string `json:"type"`
	Scheme      string `json:"scheme,omitempty"`
	Description string `json:"description,omitempty"`
	Name        string `json:"name,omitempty"`
	In          string `json:"in,omitempty"`
}

// SecurityRequirement specifies required security schemes.
type SecurityRequirement map[string][]string

// Tag provides metadata for a group of operations.
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

var placeholder = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// Generator generates OpenAPI documents from a registry.
type Generator struct {
	reg     *registry.Registry
	info    Info
	servers []Server
}

// NewGenerator creates a generator. Info defaults to the schema constants.
func NewGenerator(reg *registry.Registry) *Generator {
	c := reg.Defines().Constants
	title := c.Name
	if title == "" {
		title = "API"
	}
	g := &Generator{
		reg: reg,
		info: Info{
			Title:       title,
			Description: c.Description,
			Version:     reg.Version(),
		},
	}
	if c.Host != "" {
		g.AddServer(serverURL(c), "Schema default")
	}
	return g
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{
		URL:         url,
		Description: description,
	})
}

// Generate creates the OpenAPI specification.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			SecuritySchemes: map[string]SecurityScheme{
				"basic": {
					Type:        "http",
					Scheme:      "basic",
					Description: "Username and password",
				},
				"token": {
					Type:        "apiKey",
					In:          "header",
					Name:        "Authorization",
					Description: "Personal token sent as 'token <value>'",
				},
				"oauth": {
					Type:        "apiKey",
					In:          "query",
					Name:        "access_token",
					Description: "OAuth access token",
				},
			},
		},
	}

	for _, ns := range g.reg.Namespaces() {
		spec.Tags = append(spec.Tags, Tag{Name: ns.Name, Description: "Accessor " + ns.Accessor})
		for _, e := range ns.Endpoints() {
			g.addEndpoint(spec, e)
		}
	}
	return spec
}

func (g *Generator) addEndpoint(spec *Spec, e *registry.Endpoint) {
	r := e.Route
	path, server := splitURL(r.URL)
	if prefix := g.reg.Defines().Constants.PathPrefix; prefix != "" && server == "" && !strings.HasPrefix(path, prefix) {
		path = prefix + path
	}
	if r.Host != "" && server == "" {
		server = serverURL(schema.Constants{Protocol: g.reg.Defines().Constants.Protocol, Host: r.Host})
	}

	pathParams := request.PathParams(path)
	openAPIPath := placeholder.ReplaceAllString(path, "{$1}")

	op := &Operation{
		Tags:        []string{e.Namespace},
		Summary:     e.ID(),
		Description: r.Description,
		OperationID: e.ID(),
		Responses: map[string]Response{
			"200": {Description: "Successful response"},
			"400": {Description: "Parameter validation failed"},
			"504": {Description: "Gateway timeout"},
		},
		Security: []SecurityRequirement{{"basic": {}}, {"token": {}}, {"oauth": {}}},
	}
	if server != "" {
		op.Servers = []Server{{URL: server}}
	}

	format := request.EffectiveFormat(r, g.reg.Defines().Constants.RequestFormat)
	body := &Schema{Type: "object", Properties: make(map[string]*Schema)}

	for _, p := range r.Params {
		s := paramSchema(p.Rule)
		switch {
		case pathParams[p.Name]:
			op.Parameters = append(op.Parameters, Parameter{
				Name: p.Name, In: "path", Required: true, Description: p.Rule.Description, Schema: s,
			})
		case format == schema.FormatQuery:
			op.Parameters = append(op.Parameters, Parameter{
				Name: p.Name, In: "query", Required: p.Rule.Required, Description: p.Rule.Description, Schema: s,
			})
		case format == schema.FormatRaw:
			// the payload is the message data
		default:
			s.Description = p.Rule.Description
			body.Properties[p.Name] = s
			if p.Rule.Required {
				body.Required = append(body.Required, p.Name)
			}
		}
	}

	for _, h := range r.RequestHeaders {
		op.Parameters = append(op.Parameters, Parameter{Name: h, In: "header", Schema: &Schema{Type: "string"}})
	}

	switch {
	case r.HasFileBody:
		op.RequestBody = &RequestBody{
			Description: "File contents",
			Required:    true,
			Content:     map[string]MediaType{"application/octet-stream": {Schema: &Schema{Type: "string", Format: "binary"}}},
		}
	case format == schema.FormatRaw:
		op.RequestBody = &RequestBody{
			Content: map[string]MediaType{"text/plain": {Schema: &Schema{Type: "string"}}},
		}
	case format == schema.FormatJSON:
		op.RequestBody = &RequestBody{Content: map[string]MediaType{"application/json": {Schema: body}}}
	case format == schema.FormatForm:
		op.RequestBody = &RequestBody{Content: map[string]MediaType{"application/x-www-form-urlencoded": {Schema: body}}}
	}

	item := spec.Paths[openAPIPath]
	setOperation(&item, r.Method, op)
	spec.Paths[openAPIPath] = item
}

// setOperation assigns op to the method slot, keeping the first operation
// when two routes share a path and method.
func setOperation(item *PathItem, method string, op *Operation) {
	var slot **Operation
	switch strings.ToUpper(method) {
	case "GET":
		slot = &item.Get
	case "HEAD":
		slot = &item.Head
	case "POST":
		slot = &item.Post
	case "PUT":
		slot = &item.Put
	case "PATCH":
		slot = &item.Patch
	case "DELETE":
		slot = &item.Delete
	default:
		return
	}
	if *slot == nil {
		*slot = op
	}
}

func paramSchema(rule schema.ParamRule) *Schema {
	s := &Schema{Type: "string"}
	switch rule.Type {
	case schema.TypeNumber:
		s.Type = "integer"
	case schema.TypeFloat:
		s.Type = "number"
	case schema.TypeBoolean:
		s.Type = "boolean"
	case schema.TypeDate:
		s.Format = "date-time"
	case schema.TypeJSON:
		s.Type = "object"
	}
	if s.Type == "string" {
		s.Pattern = rule.Validation
	}
	return s
}

// splitURL separates an absolute route URL into its path and server.
func splitURL(raw string) (path, server string) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return raw, ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	return u.Path, u.Scheme + "://" + u.Host
}

func serverURL(c schema.Constants) string {
	protocol := c.Protocol
	if protocol == "" {
		protocol = "https"
	}
	host := c.Host
	if c.Port != 0 {
		host += ":" + strconv.Itoa(c.Port)
	}
	return protocol + "://" + host
}

// ToJSON converts the spec to JSON.
func (spec *Spec) ToJSON() ([]byte, error) {
	return json.MarshalIndent(spec, "", "  ")
}

// ToJSONCompact converts the spec to compact JSON.
func (spec *Spec) ToJSONCompact() ([]byte, error) {
	return json.Marshal(spec)
}
