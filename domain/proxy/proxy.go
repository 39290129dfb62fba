// Package proxy resolves upstream endpoints and the optional forward proxy that
// outbound calls are routed through.
package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// Endpoint is a resolved protocol/host/port triple (immutable value type).
type Endpoint struct {
	Protocol string
	Host     string
	Port     int
}

// DefaultPort returns 443 for https, else 80.
func DefaultPort(protocol string) int {
	if protocol == "https" {
		return 443
	}
	return 80
}

// Authority returns host:port.
func (e Endpoint) Authority() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// HostHeader returns host[:port], omitting the default port.
func (e Endpoint) HostHeader() string {
	if e.Port != 0 && e.Port != DefaultPort(e.Protocol) {
		return e.Authority()
	}
	return e.Host
}

// Origin returns protocol://host[:port], omitting the default port.
func (e Endpoint) Origin() string {
	return e.Protocol + "://" + e.HostHeader()
}

// URL returns the fully qualified URL of path on the endpoint.
// Absolute paths are returned unchanged.
func (e Endpoint) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return e.Origin() + path
}

// ParseURL splits an absolute URL into its endpoint and request path.
func ParseURL(raw string) (Endpoint, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Endpoint{}, "", fmt.Errorf("url %q is not absolute", raw)
	}

	e := Endpoint{Protocol: strings.ToLower(u.Scheme), Host: u.Hostname(), Port: DefaultPort(strings.ToLower(u.Scheme))}
	if p := u.Port(); p != "" {
		if e.Port, err = strconv.Atoi(p); err != nil {
			return Endpoint{}, "", fmt.Errorf("url %q: invalid port: %w", raw, err)
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return e, path, nil
}

// Parse reads a proxy value. A value without a scheme is treated as https.
func Parse(value string) (Endpoint, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Endpoint{}, fmt.Errorf("empty proxy value")
	}
	if !strings.Contains(value, "://") {
		value = "https://" + value
	}

	u, err := url.Parse(value)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse proxy %q: %w", value, err)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("proxy %q has no host", value)
	}

	e := Endpoint{Protocol: strings.ToLower(u.Scheme), Host: u.Hostname()}
	if p := u.Port(); p != "" {
		e.Port, err = strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("proxy %q: invalid port: %w", value, err)
		}
	} else {
		e.Port = DefaultPort(e.Protocol)
	}
	return e, nil
}

// EnvValue returns HTTPS_PROXY, else HTTP_PROXY (either case) from cfg.
func EnvValue(cfg *httpproxy.Config) string {
	if cfg == nil {
		return ""
	}
	if cfg.HTTPSProxy != "" {
		return cfg.HTTPSProxy
	}
	return cfg.HTTPProxy
}

// Resolve returns the proxy to use: the explicit value, else the environment.
// ok is false when no proxy is configured.
func Resolve(explicit string, env *httpproxy.Config) (e Endpoint, ok bool, err error) {
	value := explicit
	if value == "" {
		value = EnvValue(env)
	}
	if value == "" {
		return Endpoint{}, false, nil
	}
	e, err = Parse(value)
	if err != nil {
		return Endpoint{}, false, err
	}
	return e, true, nil
}

// FromEnvironment resolves the proxy from the process environment only.
func FromEnvironment() (Endpoint, bool, error) {
	return Resolve("", httpproxy.FromEnvironment())
}

// Route describes where a request is physically sent and with which request path.
type Route struct {
	Via  Endpoint // endpoint the connection is made to
	Path string   // request path; the absolute target URL when proxied
}

// Plan returns the send route for path on target, through p when proxied.
func Plan(target Endpoint, path string, p Endpoint, proxied bool) Route {
	if !proxied {
		return Route{Via: target, Path: path}
	}
	return Route{Via: p, Path: target.URL(path)}
}
