// Package capability defines the capability sets that compiled routes attach to.
//
// A capability set belongs to one API version. It declares namespaces (sections)
// and, inside each, the function implementations that the route schema expects.
// The registry only verifies presence and wraps validation around them; a route
// pointing at an undeclared namespace or function fails compilation.
//
// Most APIs need nothing beyond the standard implementation:
//
//	caps := capability.NewSet("v3")
//	caps.Register(capability.StandardSection("repos", "get", "getBranch"))
package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/call"
)

// Sender dispatches a validated call. The transport dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, msg call.Message, route schema.Route) (*call.Response, error)
}

// AsyncSender is a Sender that can also deliver a call's outcome through a
// callback invoked at most once. The transport dispatcher implements it.
type AsyncSender interface {
	Sender
	Go(ctx context.Context, msg call.Message, route schema.Route, cb func(*call.Response, error))
}

// Handler implements one function of a namespace.
type Handler func(ctx context.Context, s Sender, msg call.Message, route schema.Route) (*call.Response, error)

// Section is a namespace and its function implementations.
type Section struct {
	name     string
	handlers map[string]Handler
}

// NewSection creates an empty section.
func NewSection(name string) *Section {
	return &Section{name: name, handlers: make(map[string]Handler)}
}

// Name returns the namespace name.
func (s *Section) Name() string {
	return s.name
}

// Handle registers the implementation of fn, replacing any previous one.
func (s *Section) Handle(fn string, h Handler) *Section {
	s.handlers[fn] = h
	return s
}

// Handler returns the implementation of fn.
func (s *Section) Handler(fn string) (Handler, bool) {
	h, ok := s.handlers[fn]
	return h, ok && h != nil
}

// Functions returns the implemented function names, sorted.
func (s *Section) Functions() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set is the capability set of one API version.
// Thread-safe for concurrent access.
type Set struct {
	mu       sync.RWMutex
	version  string
	sections map[string]*Section
}

// NewSet creates an empty capability set for version.
func NewSet(version string) *Set {
	return &Set{
		version:  version,
		sections: make(map[string]*Section),
	}
}

// Version returns the API version the set implements.
func (s *Set) Version() string {
	return s.version
}

// Register adds a section.
// Returns error if a section with the same name already exists.
func (s *Set) Register(sec *Section) error {
	if sec == nil || sec.name == "" {
		return fmt.Errorf("section name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sections[sec.name]; exists {
		return fmt.Errorf("section %q already registered", sec.name)
	}
	s.sections[sec.name] = sec
	return nil
}

// MustRegister is Register that panics on error, for static wiring.
func (s *Set) MustRegister(sections ...*Section) *Set {
	for _, sec := range sections {
		if err := s.Register(sec); err != nil {
			panic(err)
		}
	}
	return s
}

// Section retrieves a section by namespace name.
func (s *Set) Section(name string) (*Section, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.sections[name]
	return sec, ok
}

// Sections returns all declared namespace names, sorted.
func (s *Set) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sections))
	for name := range s.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
