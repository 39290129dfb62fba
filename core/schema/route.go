package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParamType is the declared coercion type of a parameter.
type ParamType string

const (
	TypeNone    ParamType = ""
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"  // integer
	TypeFloat   ParamType = "float"   // floating point
	TypeJSON    ParamType = "json"    // JSON document
	TypeDate    ParamType = "date"    // date/time
	TypeBoolean ParamType = "boolean" // passed through untouched
)

// IsValid reports whether t is a known parameter type.
func (t ParamType) IsValid() bool {
	switch t {
	case TypeNone, TypeString, TypeNumber, TypeFloat, TypeJSON, TypeDate, TypeBoolean:
		return true
	default:
		return false
	}
}

// Format is the body/query encoding strategy of a route.
type Format string

const (
	FormatNone  Format = ""
	FormatJSON  Format = "json"
	FormatForm  Format = "form"
	FormatQuery Format = "query"
	FormatRaw   Format = "raw"
)

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	switch f {
	case FormatNone, FormatJSON, FormatForm, FormatQuery, FormatRaw:
		return true
	default:
		return false
	}
}

// ParamRule is the validation and coercion contract of one parameter.
type ParamRule struct {
	Required    bool      `yaml:"required" json:"required"`
	AllowEmpty  bool      `yaml:"allow-empty" json:"allow-empty,omitempty"`
	Type        ParamType `yaml:"type" json:"type,omitempty"`
	Validation  string    `yaml:"validation" json:"validation,omitempty"`
	Combined    bool      `yaml:"combined" json:"combined,omitempty"`
	Description string    `yaml:"description" json:"description,omitempty"`
}

// UnmarshalYAML decodes a rule, normalizing the type name to lower case.
func (r *ParamRule) UnmarshalYAML(value *yaml.Node) error {
	type plain ParamRule
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	p.Type = ParamType(strings.ToLower(strings.TrimSpace(string(p.Type))))
	*r = ParamRule(p)
	return nil
}

// Param is one named entry of a route's params.
type Param struct {
	Name string
	Ref  bool // declared as $Name, rule lives in defines.params
	Rule ParamRule
}

// Params is the ordered parameter list of a route.
// Declaration order drives query string order.
type Params []Param

// UnmarshalYAML keeps declaration order and marks $-prefixed keys as references.
func (p *Params) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*p = Params{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: params must be a mapping", value.Line)
	}

	params := make(Params, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if name, ok := strings.CutPrefix(key, "$"); ok {
			params = append(params, Param{Name: name, Ref: true})
			continue
		}

		param := Param{Name: key}
		if err := value.Content[i+1].Decode(&param.Rule); err != nil {
			return fmt.Errorf("param %q: %w", key, err)
		}
		params = append(params, param)
	}

	*p = params
	return nil
}

// MarshalJSON renders params as an ordered object, $-prefixing unresolved references.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name := param.Name
		if param.Ref {
			name = "$" + name
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if param.Ref {
			buf.WriteString("null")
			continue
		}
		rule, err := json.Marshal(param.Rule)
		if err != nil {
			return nil, err
		}
		buf.Write(rule)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the parameter with the given name.
func (p Params) Get(name string) (Param, bool) {
	for _, param := range p {
		if param.Name == name {
			return param, true
		}
	}
	return Param{}, false
}

// Names returns parameter names in declaration order.
func (p Params) Names() []string {
	names := make([]string, len(p))
	for i, param := range p {
		names[i] = param.Name
	}
	return names
}

// Route is a terminal route definition.
type Route struct {
	URL            string   `yaml:"url" json:"url"`
	Method         string   `yaml:"method" json:"method"`
	Params         Params   `yaml:"params" json:"params"`
	RequestFormat  Format   `yaml:"requestFormat" json:"requestFormat,omitempty"`
	RequestHeaders []string `yaml:"request-headers" json:"request-headers,omitempty"`
	HasFileBody    bool     `yaml:"hasFileBody" json:"hasFileBody,omitempty"`
	Timeout        int      `yaml:"timeout" json:"timeout,omitempty"` // milliseconds
	Host           string   `yaml:"host" json:"host,omitempty"`
	Description    string   `yaml:"description" json:"description,omitempty"`

	// Set by the registry at compile time.
	Path            string   `yaml:"-" json:"-"`
	ResponseHeaders []string `yaml:"-" json:"-"`
}

// TimeoutDuration returns the per-route timeout, zero when unset.
func (r Route) TimeoutDuration() time.Duration {
	if r.Timeout <= 0 {
		return 0
	}
	return time.Duration(r.Timeout) * time.Millisecond
}

// HasBody reports whether the method carries a request body.
func (r Route) HasBody() bool {
	switch strings.ToUpper(r.Method) {
	case "GET", "HEAD", "DELETE":
		return false
	default:
		return true
	}
}

// Clone returns a deep copy of the route.
func (r Route) Clone() Route {
	r.Params = slices.Clone(r.Params)
	r.RequestHeaders = slices.Clone(r.RequestHeaders)
	r.ResponseHeaders = slices.Clone(r.ResponseHeaders)
	return r
}

// Fragment returns the JSON rendering of the route used in error messages.
func (r Route) Fragment() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("%+v", r)
	}
	return string(data)
}
