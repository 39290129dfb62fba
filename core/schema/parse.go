package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed routeschema.json
var routeSchemaDoc []byte

const routeSchemaURL = "routeschema.json"

var (
	structureOnce   sync.Once
	structureSchema *jsonschema.Schema
	structureErr    error
)

// ParseFile parses a route schema from a YAML or JSON file.
func ParseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse parses a route schema from YAML or JSON bytes.
func Parse(data []byte) (*Schema, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("empty schema document")
	}

	if err := checkStructure(doc); err != nil {
		return nil, err
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// checkStructure validates the generic document against the embedded JSON Schema.
func checkStructure(doc any) error {
	structureOnce.Do(func() {
		meta, err := jsonschema.UnmarshalJSON(bytes.NewReader(routeSchemaDoc))
		if err != nil {
			structureErr = fmt.Errorf("load route meta-schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(routeSchemaURL, meta); err != nil {
			structureErr = fmt.Errorf("add route meta-schema: %w", err)
			return
		}
		structureSchema, structureErr = compiler.Compile(routeSchemaURL)
	})
	if structureErr != nil {
		return structureErr
	}

	// Round-trip through JSON so numbers and maps have the shapes the validator expects.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("schema document is not JSON compatible: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("schema document is not JSON compatible: %w", err)
	}
	if err := structureSchema.Validate(inst); err != nil {
		return fmt.Errorf("invalid schema structure: %w", err)
	}
	return nil
}

// Validate performs the semantic checks the structural schema cannot express.
func Validate(s *Schema) error {
	var errs []string

	if !s.Defines.Constants.RequestFormat.IsValid() {
		errs = append(errs, fmt.Sprintf("defines.constants.requestFormat %q is not a known format", s.Defines.Constants.RequestFormat))
	}

	for name, rule := range s.Defines.Params {
		if err := validateRule("defines.params."+name, rule); err != nil {
			errs = append(errs, err.Error())
		}
	}

	_ = s.Walk(func(path []string, route *Route) error {
		where := strings.Join(path, "/")

		if !strings.HasPrefix(route.URL, "/") && !strings.HasPrefix(route.URL, "http") {
			errs = append(errs, fmt.Sprintf("route %s: url %q must start with /", where, route.URL))
		}

		if route.Method == "" {
			route.Method = http.MethodGet
		}
		route.Method = strings.ToUpper(route.Method)
		if !isValidMethod(route.Method) {
			errs = append(errs, fmt.Sprintf("route %s: unknown method %q", where, route.Method))
		}

		if !route.RequestFormat.IsValid() {
			errs = append(errs, fmt.Sprintf("route %s: unknown requestFormat %q", where, route.RequestFormat))
		}

		seen := make(map[string]bool, len(route.Params))
		for _, p := range route.Params {
			if seen[p.Name] {
				errs = append(errs, fmt.Sprintf("route %s: duplicate parameter %q", where, p.Name))
			}
			seen[p.Name] = true
			if p.Ref {
				continue
			}
			if err := validateRule("route "+where+" param "+p.Name, p.Rule); err != nil {
				errs = append(errs, err.Error())
			}
		}
		return nil
	})

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateRule(where string, rule ParamRule) error {
	if !rule.Type.IsValid() {
		return fmt.Errorf("%s: unknown type %q", where, rule.Type)
	}
	if rule.Validation != "" {
		if _, err := regexp.Compile(rule.Validation); err != nil {
			return fmt.Errorf("%s: invalid validation pattern: %w", where, err)
		}
	}
	return nil
}

func isValidMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}
