// Package registry compiles a route schema against a capability set into a
// read-only table of callable endpoints grouped by namespace.
//
// Compilation is two-phase. The namespaces declared by the capability set are
// laid out first; endpoints are then attached to them. A route whose namespace
// or function has no implementation fails the whole compile with a SchemaError.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/convention"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/core/validation"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

// ErrorResponder receives validation failures before they reach the caller.
// The returned error is what the caller sees.
type ErrorResponder func(ctx context.Context, err error, route schema.Route, msg call.Message) error

// Option configures compilation.
type Option func(*Registry)

// WithSender sets the sender handed to every implementation.
func WithSender(s capability.Sender) Option {
	return func(r *Registry) { r.sender = s }
}

// WithValidator replaces the package-level validator.
func WithValidator(v *validation.Validator) Option {
	return func(r *Registry) { r.validator = v }
}

// WithErrorResponder sets the hook that reports validation failures.
func WithErrorResponder(fn ErrorResponder) Option {
	return func(r *Registry) { r.respond = fn }
}

// Registry is a compiled schema. It is read-only after Compile.
type Registry struct {
	version    string
	defines    schema.Defines
	namespaces map[string]*Namespace
	order      []string

	sender    capability.Sender
	validator *validation.Validator
	respond   ErrorResponder
}

// Compile resolves parameter references and binds every route of s to its
// implementation in caps.
func Compile(s *schema.Schema, caps *capability.Set, opts ...Option) (*Registry, error) {
	if s == nil {
		return nil, apierr.Schema("schema is required")
	}
	if caps == nil {
		return nil, apierr.Schema("capability set is required")
	}

	resolved, err := schema.Resolve(s)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		version:    caps.Version(),
		defines:    resolved.Defines,
		namespaces: make(map[string]*Namespace),
		validator:  validation.New(),
		respond:    passThrough,
	}
	for _, opt := range opts {
		opt(r)
	}

	// Phase one: lay out every declared namespace.
	for _, name := range caps.Sections() {
		r.namespaces[name] = &Namespace{
			Name:      name,
			Accessor:  convention.AccessorName(name),
			endpoints: make(map[string]*Endpoint),
		}
		r.order = append(r.order, name)
	}

	requestHeaders := normalizeHeaders(resolved.Defines.RequestHeaders)
	responseHeaders := normalizeHeaders(resolved.Defines.ResponseHeaders)

	// Phase two: attach endpoints.
	var unimplemented []string
	err = resolved.Walk(func(path []string, route *schema.Route) error {
		nsName := convention.Namespace(path)
		fnName := convention.FunctionName(path)
		routePath := strings.Join(path, "/")

		ns, ok := r.namespaces[nsName]
		sec, _ := caps.Section(nsName)
		if !ok || sec == nil {
			unimplemented = append(unimplemented, fmt.Sprintf("route %s: namespace %q not implemented: %s",
				routePath, nsName, route.Fragment()))
			return nil
		}
		handler, ok := sec.Handler(fnName)
		if !ok {
			unimplemented = append(unimplemented, fmt.Sprintf("route %s: function %s.%s not implemented: %s",
				routePath, nsName, fnName, route.Fragment()))
			return nil
		}
		if _, dup := ns.endpoints[fnName]; dup {
			return apierr.Schema("route %s: function %s.%s defined twice", routePath, nsName, fnName)
		}

		bound := route.Clone()
		bound.Path = routePath
		bound.RequestHeaders = union(normalizeHeaders(route.RequestHeaders), requestHeaders)
		bound.ResponseHeaders = slices.Clone(responseHeaders)

		ns.endpoints[fnName] = &Endpoint{
			Namespace: nsName,
			Name:      fnName,
			Path:      path,
			Route:     bound,
			handler:   handler,
			reg:       r,
		}
		ns.order = append(ns.order, fnName)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(unimplemented) > 0 {
		return nil, apierr.Schema("API version %s does not implement:\n  - %s",
			r.version, strings.Join(unimplemented, "\n  - "))
	}
	return r, nil
}

func passThrough(_ context.Context, err error, _ schema.Route, _ call.Message) error {
	return err
}

// Version returns the API version of the capability set the registry was compiled against.
func (r *Registry) Version() string {
	return r.version
}

// Defines returns the resolved schema-wide definitions.
func (r *Registry) Defines() schema.Defines {
	return r.defines
}

// Namespace returns a namespace by name, the "get <namespace> API" accessor.
func (r *Registry) Namespace(name string) (*Namespace, bool) {
	ns, ok := r.namespaces[name]
	return ns, ok
}

// Namespaces returns all namespaces, sorted by name.
func (r *Registry) Namespaces() []*Namespace {
	out := make([]*Namespace, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.namespaces[name])
	}
	return out
}

// Endpoint looks up a compiled endpoint.
func (r *Registry) Endpoint(namespace, function string) (*Endpoint, bool) {
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil, false
	}
	return ns.Endpoint(function)
}

// Endpoints returns every endpoint, grouped by namespace in declaration order.
func (r *Registry) Endpoints() []*Endpoint {
	var out []*Endpoint
	for _, ns := range r.Namespaces() {
		out = append(out, ns.Endpoints()...)
	}
	return out
}

// Namespace is the set of endpoints sharing a first path segment.
type Namespace struct {
	Name     string
	Accessor string // e.g. getReposApi

	endpoints map[string]*Endpoint
	order     []string
}

// Endpoint looks up a function of the namespace.
func (n *Namespace) Endpoint(function string) (*Endpoint, bool) {
	e, ok := n.endpoints[function]
	return e, ok
}

// Endpoints returns the namespace's endpoints in schema order.
func (n *Namespace) Endpoints() []*Endpoint {
	out := make([]*Endpoint, 0, len(n.order))
	for _, fn := range n.order {
		out = append(out, n.endpoints[fn])
	}
	return out
}

// Functions returns the function names in schema order.
func (n *Namespace) Functions() []string {
	return slices.Clone(n.order)
}

// normalizeHeaders lower-cases, trims and de-duplicates header names.
func normalizeHeaders(headers []string) []string {
	out := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, h := range b {
		if !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}
