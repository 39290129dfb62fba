package schema

import (
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// DefinesKey is the reserved top-level key holding schema-wide definitions.
const DefinesKey = "defines"

// Schema is a parsed route schema.
type Schema struct {
	Defines Defines
	Nodes   []*Node // top-level nodes in document order, defines excluded
}

// Defines holds the schema-wide definitions.
type Defines struct {
	Constants       Constants            `yaml:"constants" json:"constants"`
	Params          map[string]ParamRule `yaml:"params" json:"params,omitempty"`
	RequestHeaders  []string             `yaml:"request-headers" json:"request-headers,omitempty"`
	ResponseHeaders []string             `yaml:"response-headers" json:"response-headers,omitempty"`
}

// Constants are the schema defaults used when the client config leaves a value unset.
type Constants struct {
	Name          string `yaml:"name" json:"name,omitempty"`
	Description   string `yaml:"description" json:"description,omitempty"`
	Protocol      string `yaml:"protocol" json:"protocol,omitempty"`
	Host          string `yaml:"host" json:"host,omitempty"`
	Port          int    `yaml:"port" json:"port,omitempty"`
	PathPrefix    string `yaml:"pathPrefix" json:"pathPrefix,omitempty"`
	RequestFormat Format `yaml:"requestFormat" json:"requestFormat,omitempty"`
	RequestMedia  string `yaml:"requestMedia" json:"requestMedia,omitempty"`
	Timeout       int    `yaml:"timeout" json:"timeout,omitempty"` // milliseconds
}

// Node is one schema tree node. Terminal nodes carry a Route.
type Node struct {
	Name     string
	Route    *Route
	Children []*Node
}

// IsTerminal reports whether the node is a route definition.
func (n *Node) IsTerminal() bool {
	return n.Route != nil
}

// UnmarshalYAML decodes the tree, preserving document order.
func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: schema must be a mapping", value.Line)
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if key.Value == DefinesKey {
			if err := val.Decode(&s.Defines); err != nil {
				return fmt.Errorf("decode defines: %w", err)
			}
			continue
		}

		node, err := decodeNode(key.Value, val)
		if err != nil {
			return err
		}
		if node != nil {
			s.Nodes = append(s.Nodes, node)
		}
	}
	return nil
}

// decodeNode returns nil for scalar values, which carry no routes.
func decodeNode(name string, value *yaml.Node) (*Node, error) {
	if value.Kind != yaml.MappingNode {
		return nil, nil
	}

	node := &Node{Name: name}
	if isTerminal(value) {
		var route Route
		if err := value.Decode(&route); err != nil {
			return nil, fmt.Errorf("decode route %q (line %d): %w", name, value.Line, err)
		}
		node.Route = &route
		return node, nil
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		child, err := decodeNode(value.Content[i].Value, value.Content[i+1])
		if err != nil {
			return nil, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
	}
	return node, nil
}

func isTerminal(value *yaml.Node) bool {
	var hasURL, hasParams bool
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch value.Content[i].Value {
		case "url":
			hasURL = true
		case "params":
			hasParams = true
		}
	}
	return hasURL && hasParams
}

// WalkFunc is called for each terminal route with its full path.
type WalkFunc func(path []string, route *Route) error

// Walk visits every route depth-first in document order.
// Walking stops at the first error returned by fn.
func (s *Schema) Walk(fn WalkFunc) error {
	for _, n := range s.Nodes {
		if err := walk(n, nil, fn); err != nil {
			return err
		}
	}
	return nil
}

func walk(n *Node, prefix []string, fn WalkFunc) error {
	path := append(slices.Clone(prefix), n.Name)
	if n.IsTerminal() {
		return fn(path, n.Route)
	}
	for _, child := range n.Children {
		if err := walk(child, path, fn); err != nil {
			return err
		}
	}
	return nil
}

// RouteCount returns the number of terminal routes.
func (s *Schema) RouteCount() int {
	count := 0
	_ = s.Walk(func([]string, *Route) error {
		count++
		return nil
	})
	return count
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := &Schema{Defines: s.Defines.clone()}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, n.clone())
	}
	return out
}

func (d Defines) clone() Defines {
	d.Params = maps.Clone(d.Params)
	d.RequestHeaders = slices.Clone(d.RequestHeaders)
	d.ResponseHeaders = slices.Clone(d.ResponseHeaders)
	return d
}

func (n *Node) clone() *Node {
	out := &Node{Name: n.Name}
	if n.Route != nil {
		r := n.Route.Clone()
		out.Route = &r
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, c.clone())
	}
	return out
}
