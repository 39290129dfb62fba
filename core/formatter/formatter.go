// Package formatter renders command output as table, json or yaml.
package formatter

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// Listing is a named set of records and the columns shown for them.
type Listing struct {
	Kind    string // e.g. "endpoints", "calls"
	Columns []string
	Records []map[string]any
}

// Formatter writes a listing in one output format.
type Formatter interface {
	// Name returns the formatter name used by --output.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList writes l.
	FormatList(w io.Writer, l Listing, opts FormatOptions) error

	// FormatError writes err.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// NoHeader disables the header row of tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json only).
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a registry with the table, json and yaml formatters.
func NewRegistry() *Registry {
	r := &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
	for _, f := range []Formatter{NewTableFormatter(), NewJSONFormatter(), NewYAMLFormatter()} {
		r.formatters[f.Name()] = f
	}
	return r
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name. An empty name selects the default.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultFmt
	}
	f, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", name, r.names())
	}
	return f, nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// project keeps only the listing's columns of each record.
func project(l Listing) []map[string]any {
	out := make([]map[string]any, len(l.Records))
	for i, rec := range l.Records {
		if len(l.Columns) == 0 {
			out[i] = rec
			continue
		}
		row := make(map[string]any, len(l.Columns))
		for _, col := range l.Columns {
			if v, ok := rec[col]; ok {
				row[col] = v
			}
		}
		out[i] = row
	}
	return out
}
