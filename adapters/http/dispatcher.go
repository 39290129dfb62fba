// Package http provides the HTTP transport dispatcher that sends compiled calls
// and the introspection server that exposes the compiled surface.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"dario.cat/mergo"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http/httpproxy"

	"github.com/artpar/routegen/adapters/metrics"
	"github.com/artpar/routegen/core/capability"
	"github.com/artpar/routegen/core/convention"
	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/auth"
	"github.com/artpar/routegen/domain/call"
	"github.com/artpar/routegen/domain/proxy"
	"github.com/artpar/routegen/domain/request"
	"github.com/artpar/routegen/ports"
)

// DefaultUserAgent is sent when neither the caller nor the client sets one.
const DefaultUserAgent = "routegen"

// Settings is the client-level transport configuration.
// It is read-only once the dispatcher is built.
type Settings struct {
	Protocol     string
	Host         string
	Port         int
	PathPrefix   string
	Proxy        string // explicit proxy; the environment is consulted when empty
	Timeout      time.Duration
	Headers      map[string]string
	RequestMedia string
	UserAgent    string
	Insecure     bool // skip TLS certificate verification
	Debug        bool

	// ProxyEnv overrides the process environment for proxy lookup.
	ProxyEnv *httpproxy.Config
	// Transport overrides the base round tripper.
	Transport http.RoundTripper
}

// Deps are the collaborators of a dispatcher. Nil journal and metrics are skipped.
type Deps struct {
	FS      ports.FileSystem
	Mime    ports.MimeResolver
	Journal ports.CallJournal
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// Dispatcher sends assembled calls and classifies their responses.
// It is safe for concurrent use; per-call state never touches shared fields.
type Dispatcher struct {
	settings  Settings
	proxyEnv  *httpproxy.Config
	client    *http.Client
	deps      Deps
	auth      atomic.Pointer[auth.Auth]
	constants atomic.Pointer[schema.Constants]
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(settings Settings, deps Deps) (*Dispatcher, error) {
	if deps.FS == nil || deps.Mime == nil || deps.IDs == nil || deps.Clock == nil {
		return nil, fmt.Errorf("dispatcher requires file system, mime resolver, id generator and clock")
	}

	env := settings.ProxyEnv
	if env == nil {
		env = httpproxy.FromEnvironment()
	}
	if settings.Proxy != "" {
		if _, err := proxy.Parse(settings.Proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy: %w", err)
		}
	}

	base := settings.Transport
	if base == nil {
		base = &http.Transport{
			// Proxying is done by rewriting the request, never by the transport.
			Proxy:               nil,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: settings.Insecure}, //nolint:gosec // opt-in via rejectUnauthorized: false
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	d := &Dispatcher{
		settings: settings,
		proxyEnv: env,
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		deps: deps,
	}
	d.auth.Store(&auth.Auth{})
	d.constants.Store(&schema.Constants{})
	return d, nil
}

// SetAuth swaps the authentication context. Callers validate it first.
func (d *Dispatcher) SetAuth(a auth.Auth) {
	d.auth.Store(&a)
}

// Auth returns the current authentication context.
func (d *Dispatcher) Auth() auth.Auth {
	return *d.auth.Load()
}

// SetConstants swaps the schema constants used as defaults.
func (d *Dispatcher) SetConstants(c schema.Constants) {
	d.constants.Store(&c)
}

// Send dispatches one validated call and blocks until it is classified.
func (d *Dispatcher) Send(ctx context.Context, msg call.Message, route schema.Route) (*call.Response, error) {
	timeout := d.timeout(route)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.send(ctx, msg, route)
}

// Go dispatches one call in the background and delivers the outcome to cb at most once.
// When the timeout expires first, cb receives GatewayTimeout and the late result of the
// aborted request is discarded.
func (d *Dispatcher) Go(ctx context.Context, msg call.Message, route schema.Route, cb func(*call.Response, error)) {
	c := newCompletion(cb)
	timeout := d.timeout(route)

	cancel := context.CancelFunc(func() {})
	var timer *time.Timer
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		timer = time.AfterFunc(timeout, func() {
			c.deliver(nil, apierr.GatewayTimeout(route.URL, context.DeadlineExceeded))
		})
	}

	go func() {
		defer cancel()
		resp, err := d.send(ctx, msg, route)
		if timer != nil {
			timer.Stop()
		}
		c.deliver(resp, err)
	}()
}

var _ capability.AsyncSender = (*Dispatcher)(nil)

func (d *Dispatcher) timeout(route schema.Route) time.Duration {
	if t := route.TimeoutDuration(); t > 0 {
		return t
	}
	if d.settings.Timeout > 0 {
		return d.settings.Timeout
	}
	if c := d.constants.Load(); c.Timeout > 0 {
		return time.Duration(c.Timeout) * time.Millisecond
	}
	return 0
}

// outbound is the fully built request of one call.
type outbound struct {
	id     string
	method string
	target proxy.Endpoint
	via    proxy.Route
	header http.Header
	body   io.ReadCloser
	length int64
}

func (d *Dispatcher) send(ctx context.Context, msg call.Message, route schema.Route) (*call.Response, error) {
	ns, fn := endpointLabels(route)
	start := d.deps.Clock.Now()

	out, err := d.build(msg, route, ns, fn)
	if out.body != nil {
		defer out.body.Close()
	}
	if err != nil {
		return nil, d.finish(ctx, out, route, ns, fn, start, nil, err)
	}

	if d.deps.Metrics != nil {
		d.deps.Metrics.CallsInFlight.Inc()
		defer d.deps.Metrics.CallsInFlight.Dec()
	}

	resp, err := d.do(ctx, out, route)
	return resp, d.finish(ctx, out, route, ns, fn, start, resp, err)
}

// build resolves the target, assembles the request and applies headers, auth and proxying.
func (d *Dispatcher) build(msg call.Message, route schema.Route, ns, fn string) (*outbound, error) {
	constants := d.constants.Load()
	out := &outbound{id: d.deps.IDs.New(), header: make(http.Header)}

	prefix := d.settings.PathPrefix
	if prefix == "" {
		prefix = constants.PathPrefix
	}
	assembled, warnings := request.Assemble(msg, route, request.Options{
		PathPrefix:    prefix,
		DefaultFormat: constants.RequestFormat,
	})
	for _, w := range warnings {
		d.deps.Logger.Warn().
			Str("call_id", out.id).
			Str("endpoint", ns+"."+fn).
			Str("param", w.Param).
			Err(w.Err).
			Msg("parameter dropped")
		if d.deps.Metrics != nil {
			d.deps.Metrics.EncodingWarnings.WithLabelValues(ns, fn).Inc()
		}
	}
	out.method = assembled.Method

	path := assembled.Path()
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		target, rel, err := proxy.ParseURL(path)
		if err != nil {
			return out, apierr.Transport(path, err)
		}
		out.target, path = target, rel
	} else {
		out.target = d.resolveTarget(route, constants)
	}

	// Body and its headers.
	switch {
	case route.HasFileBody:
		if err := d.attachFile(out, msg); err != nil {
			return out, err
		}
	case assembled.HasBody():
		body, contentType := assembled.Body()
		out.body = io.NopCloser(bytes.NewReader(body))
		out.length = int64(len(body))
		out.header.Set("Content-Type", contentType)
	}
	out.header.Set("Content-Length", strconv.FormatInt(out.length, 10))

	// Authentication.
	path = d.auth.Load().Apply(path, out.header)

	// Custom headers, client defaults winning, limited to the route allow-list.
	custom, err := mergeHeaders(msg.Headers(), d.settings.Headers)
	if err != nil {
		return out, apierr.Internal("merge headers", err)
	}
	for _, name := range route.RequestHeaders {
		if v, ok := custom[name]; ok {
			out.header.Set(name, v)
		}
	}

	if out.header.Get("User-Agent") == "" {
		ua := d.settings.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		out.header.Set("User-Agent", ua)
	}
	if _, ok := out.header["Accept"]; !ok {
		media := d.settings.RequestMedia
		if media == "" {
			media = constants.RequestMedia
		}
		if media == "" {
			media = "application/json"
		}
		out.header.Set("Accept", media)
	}

	// Proxy rewiring.
	p, proxied, err := proxy.Resolve(d.settings.Proxy, d.proxyEnv)
	if err != nil {
		return out, apierr.Transport(d.settings.Proxy, err)
	}
	out.via = proxy.Plan(out.target, path, p, proxied)
	return out, nil
}

// resolveTarget applies route -> client -> schema constants precedence.
func (d *Dispatcher) resolveTarget(route schema.Route, c *schema.Constants) proxy.Endpoint {
	e := proxy.Endpoint{
		Protocol: firstNonEmpty(d.settings.Protocol, c.Protocol, "http"),
		Host:     firstNonEmpty(route.Host, d.settings.Host, c.Host),
		Port:     d.settings.Port,
	}
	if e.Port == 0 {
		e.Port = c.Port
	}
	if e.Port == 0 {
		e.Port = proxy.DefaultPort(e.Protocol)
	}
	return e
}

func (d *Dispatcher) attachFile(out *outbound, msg call.Message) error {
	path := msg.FilePath()
	if path == "" {
		return apierr.BadRequest("Missing '%s' for file upload", call.KeyFilePath)
	}

	info, err := d.deps.FS.Stat(path)
	if err != nil {
		return apierr.BadRequest("Cannot read file '%s': %v", path, err)
	}
	f, err := d.deps.FS.Open(path)
	if err != nil {
		return apierr.BadRequest("Cannot open file '%s': %v", path, err)
	}

	name := msg.FileName()
	if name == "" {
		name = info.Name()
	}
	out.body = f
	out.length = info.Size()
	out.header.Set("Content-Type", d.deps.Mime.TypeByName(name))
	return nil
}

// do performs the round trip and classifies the outcome.
func (d *Dispatcher) do(ctx context.Context, out *outbound, route schema.Route) (*call.Response, error) {
	target := out.target.URL(out.via.Path)

	var body io.Reader
	if out.body != nil {
		body = out.body
	}
	req, err := http.NewRequestWithContext(ctx, out.method, out.via.Via.Origin()+"/", body)
	if err != nil {
		return nil, apierr.Transport(target, err)
	}
	// Opaque keeps the already encoded path (or the absolute URL when proxied)
	// as the request-target verbatim.
	req.URL.Opaque = out.via.Path
	req.URL.Host = out.via.Via.Authority()
	req.Host = out.target.HostHeader()
	req.ContentLength = out.length
	if out.length == 0 {
		req.Body = http.NoBody
	}
	for k, v := range out.header {
		if k == "Content-Length" {
			continue
		}
		req.Header[k] = v
	}

	if d.settings.Debug {
		d.deps.Logger.Debug().
			Str("call_id", out.id).
			Str("method", out.method).
			Str("url", target).
			Str("via", out.via.Via.Authority()).
			Interface("headers", redact(req.Header)).
			Msg("sending request")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, target, err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 600 || resp.StatusCode < 10 {
		return nil, apierr.HTTP(resp.StatusCode, string(data))
	}

	meta := make(map[string]string, len(route.ResponseHeaders))
	for _, name := range route.ResponseHeaders {
		if v := resp.Header.Get(name); v != "" {
			meta[name] = v
		}
	}

	return &call.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   string(data),
		Meta:   meta,
	}, nil
}

// finish logs, journals and counts the outcome, returning err unchanged.
func (d *Dispatcher) finish(ctx context.Context, out *outbound, route schema.Route, ns, fn string,
	start time.Time, resp *call.Response, err error) error {
	duration := d.deps.Clock.Now().Sub(start)
	outcome := Outcome(err)

	status := 0
	if resp != nil {
		status = resp.Status
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 && status == 0 {
		status = apiErr.Status
	}

	target := route.URL
	if out != nil && out.via.Path != "" {
		target = out.target.URL(out.via.Path)
	}

	event := d.deps.Logger.Debug()
	if err != nil && outcome != ports.OutcomeHTTPError {
		event = d.deps.Logger.Warn()
	}
	event.
		Str("call_id", idOf(out)).
		Str("endpoint", ns+"."+fn).
		Str("outcome", string(outcome)).
		Int("status", status).
		Dur("duration", duration).
		Err(err).
		Msg("call completed")

	if d.deps.Metrics != nil {
		d.deps.Metrics.ObserveCall(ns, fn, string(outcome), duration)
	}

	if d.deps.Journal != nil {
		rec := ports.CallRecord{
			ID:        idOf(out),
			Namespace: ns,
			Function:  fn,
			Method:    strings.ToUpper(route.Method),
			URL:       redactURL(target),
			Status:    status,
			Outcome:   outcome,
			Duration:  duration,
			CreatedAt: start,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		// The journal must not fail the call; a cancelled caller still gets its entry.
		if jerr := d.deps.Journal.Record(context.WithoutCancel(ctx), rec); jerr != nil {
			d.deps.Logger.Error().Err(jerr).Str("call_id", rec.ID).Msg("failed to journal call")
		}
	}
	return err
}

// Outcome maps a call error to its journal outcome.
func Outcome(err error) ports.Outcome {
	if err == nil {
		return ports.OutcomeSuccess
	}
	switch apierr.KindOf(err) {
	case apierr.KindBadRequest:
		return ports.OutcomeBadRequest
	case apierr.KindHTTP:
		return ports.OutcomeHTTPError
	case apierr.KindGatewayTimeout:
		return ports.OutcomeGatewayTimeout
	case apierr.KindInternal:
		return ports.OutcomeInternal
	default:
		return ports.OutcomeTransportError
	}
}

func classifyTransportError(ctx context.Context, target string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apierr.GatewayTimeout(target, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierr.GatewayTimeout(target, err)
	}
	return apierr.Transport(target, err)
}

// mergeHeaders lower-cases both sets and overlays client headers on caller headers.
func mergeHeaders(caller, client map[string]string) (map[string]string, error) {
	merged := lowerKeys(caller)
	if err := mergo.Merge(&merged, lowerKeys(client), mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

func redact(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range []string{"Authorization", "Proxy-Authorization"} {
		if out.Get(name) != "" {
			out.Set(name, "[redacted]")
		}
	}
	return out
}

// redactURL hides oauth credentials carried in the query string.
func redactURL(u string) string {
	for _, key := range []string{"access_token=", "client_secret="} {
		i := strings.Index(u, key)
		if i < 0 {
			continue
		}
		j := strings.IndexByte(u[i:], '&')
		if j < 0 {
			u = u[:i+len(key)] + "[redacted]"
		} else {
			u = u[:i+len(key)] + "[redacted]" + u[i+j:]
		}
	}
	return u
}

func endpointLabels(route schema.Route) (string, string) {
	if route.Path == "" {
		return "", ""
	}
	path := strings.Split(route.Path, "/")
	return convention.Namespace(path), convention.FunctionName(path)
}

func idOf(out *outbound) string {
	if out == nil {
		return ""
	}
	return out.id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
