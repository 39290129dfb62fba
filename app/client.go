// Package app provides the client facade that ties a compiled route registry
// to the transport dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/routegen/adapters/metrics"
	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/convention"
	"github.com/artpar/routegen/core/registry"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/auth"
	"github.com/artpar/routegen/domain/call"
	"github.com/artpar/routegen/ports"
)

// ErrUnknownEndpoint is returned for a namespace or function the compiled schema lacks.
var ErrUnknownEndpoint = errors.New("unknown endpoint")

// ErrorResponder receives validation failures; the returned error reaches the caller.
type ErrorResponder = registry.ErrorResponder

// Capabilities builds the capability set a schema is compiled against.
type Capabilities func(version string, s *schema.Schema) (*capability.Set, error)

// Transport sends assembled calls. *http.Dispatcher implements it.
type Transport interface {
	capability.Sender
	SetAuth(a auth.Auth)
	SetConstants(c schema.Constants)
}

// ClientDeps contains dependencies for Client.
type ClientDeps struct {
	Transport Transport
	Clock     ports.Clock
	Metrics   *metrics.Collector // optional
	Logger    zerolog.Logger
}

// ClientConfig contains configuration for Client.
type ClientConfig struct {
	Version      string
	Capabilities Capabilities   // defaults to capability.FromSchema
	Responder    ErrorResponder // defaults to DefaultResponder
}

// Client is a compiled API client. The registry is swapped whole on Reload;
// calls already in flight keep the registry they started with.
type Client struct {
	transport Transport
	clock     ports.Clock
	metrics   *metrics.Collector
	logger    zerolog.Logger

	version   string
	caps      Capabilities
	responder ErrorResponder

	registry atomic.Pointer[registry.Registry]
}

// NewClient compiles s and returns a client ready to call it.
func NewClient(deps ClientDeps, cfg ClientConfig, s *schema.Schema) (*Client, error) {
	if deps.Transport == nil || deps.Clock == nil {
		return nil, fmt.Errorf("client requires a transport and a clock")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("client requires an API version")
	}

	c := &Client{
		transport: deps.Transport,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		version:   cfg.Version,
		caps:      cfg.Capabilities,
		responder: cfg.Responder,
	}
	if c.caps == nil {
		c.caps = capability.FromSchema
	}
	if c.responder == nil {
		c.responder = c.DefaultResponder
	}

	reg, err := c.compile(s)
	if err != nil {
		return nil, err
	}
	c.swap(reg, false)
	return c, nil
}

// Registry returns the current compiled registry.
func (c *Client) Registry() *registry.Registry {
	return c.registry.Load()
}

// Version returns the API version the client was compiled for.
func (c *Client) Version() string {
	return c.version
}

// Reload compiles s and replaces the whole registry. On error the old one stays.
func (c *Client) Reload(s *schema.Schema) error {
	reg, err := c.compile(s)
	if err != nil {
		if c.metrics != nil {
			c.metrics.SchemaReloadErrors.Inc()
		}
		c.logger.Error().Err(err).Msg("schema reload failed, keeping old registry")
		return err
	}
	c.swap(reg, true)
	c.logger.Info().Int("endpoints", len(reg.Endpoints())).Msg("schema reloaded")
	return nil
}

// ReloadFile parses the schema at path and reloads it.
func (c *Client) ReloadFile(path string) error {
	s, err := schema.ParseFile(path)
	if err != nil {
		if c.metrics != nil {
			c.metrics.SchemaReloadErrors.Inc()
		}
		c.logger.Error().Err(err).Str("path", path).Msg("schema reload failed, keeping old registry")
		return err
	}
	return c.Reload(s)
}

func (c *Client) compile(s *schema.Schema) (*registry.Registry, error) {
	caps, err := c.caps(c.version, s)
	if err != nil {
		return nil, fmt.Errorf("build capabilities: %w", err)
	}
	return registry.Compile(s, caps,
		registry.WithSender(c.transport),
		registry.WithErrorResponder(c.responder),
	)
}

func (c *Client) swap(reg *registry.Registry, reload bool) {
	c.transport.SetConstants(reg.Defines().Constants)
	c.registry.Store(reg)
	if c.metrics != nil {
		c.metrics.Compiled(len(reg.Endpoints()), c.clock.Now(), reload)
	}
}

// Authenticate validates a and makes it the auth context of subsequent calls.
func (c *Client) Authenticate(a auth.Auth) error {
	if err := a.Validate(); err != nil {
		return err
	}
	c.transport.SetAuth(a)
	return nil
}

// Namespace returns a compiled namespace.
func (c *Client) Namespace(name string) (*registry.Namespace, bool) {
	return c.Registry().Namespace(name)
}

// Namespaces returns every compiled namespace sorted by name.
func (c *Client) Namespaces() []*registry.Namespace {
	return c.Registry().Namespaces()
}

// Endpoint returns a compiled endpoint.
func (c *Client) Endpoint(namespace, function string) (*registry.Endpoint, error) {
	ep, ok := c.Registry().Endpoint(namespace, function)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownEndpoint, namespace, function)
	}
	return ep, nil
}

// Call validates msg and sends it to namespace.function.
func (c *Client) Call(ctx context.Context, namespace, function string, msg call.Message) (*call.Response, error) {
	ep, err := c.Endpoint(namespace, function)
	if err != nil {
		return nil, err
	}
	return ep.Call(ctx, msg)
}

// Go calls namespace.function in the background and delivers the outcome to cb once.
func (c *Client) Go(ctx context.Context, namespace, function string, msg call.Message, cb func(*call.Response, error)) {
	ep, err := c.Endpoint(namespace, function)
	if err != nil {
		go cb(nil, err)
		return
	}
	ep.Go(ctx, msg, cb)
}

// DefaultResponder logs and counts a validation failure and returns it unchanged.
func (c *Client) DefaultResponder(_ context.Context, err error, route schema.Route, _ call.Message) error {
	ns, fn := labels(route)
	c.logger.Debug().
		Str("endpoint", ns+"."+fn).
		Err(err).
		Msg("call rejected")
	if c.metrics != nil {
		c.metrics.ValidationFailures.WithLabelValues(ns, fn).Inc()
	}
	return err
}

func labels(route schema.Route) (string, string) {
	if route.Path == "" {
		return "", ""
	}
	path := strings.Split(route.Path, "/")
	return convention.Namespace(path), convention.FunctionName(path)
}
