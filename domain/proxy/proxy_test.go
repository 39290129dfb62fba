package proxy

import (
	"testing"

	"golang.org/x/net/http/httpproxy"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Endpoint
		wantErr bool
	}{
		{"http://proxy.local:3128", Endpoint{"http", "proxy.local", 3128}, false},
		{"proxy.local:8080", Endpoint{"https", "proxy.local", 8080}, false},
		{"proxy.local", Endpoint{"https", "proxy.local", 443}, false},
		{"http://proxy.local", Endpoint{"http", "proxy.local", 80}, false},
		{"", Endpoint{}, true},
		{"http://", Endpoint{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) succeeded, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	env := &httpproxy.Config{HTTPSProxy: "https-proxy:1", HTTPProxy: "http://http-proxy:2"}

	e, ok, err := Resolve("http://explicit:3", env)
	if err != nil || !ok || e.Host != "explicit" {
		t.Errorf("explicit: got %+v ok=%v err=%v", e, ok, err)
	}

	e, ok, _ = Resolve("", env)
	if !ok || e.Host != "https-proxy" || e.Protocol != "https" {
		t.Errorf("env https: got %+v ok=%v", e, ok)
	}

	e, ok, _ = Resolve("", &httpproxy.Config{HTTPProxy: "http://http-proxy:2"})
	if !ok || e.Host != "http-proxy" || e.Port != 2 {
		t.Errorf("env http: got %+v ok=%v", e, ok)
	}

	if _, ok, _ := Resolve("", &httpproxy.Config{}); ok {
		t.Error("no proxy configured, got ok")
	}
}

func TestPlan(t *testing.T) {
	target := Endpoint{Protocol: "https", Host: "api.example.com", Port: 443}
	p := Endpoint{Protocol: "http", Host: "proxy.local", Port: 3128}

	direct := Plan(target, "/user?page=2", p, false)
	if direct.Via != target || direct.Path != "/user?page=2" {
		t.Errorf("direct = %+v", direct)
	}

	proxied := Plan(target, "/user?page=2", p, true)
	if proxied.Via != p {
		t.Errorf("proxied via = %+v, want proxy", proxied.Via)
	}
	if proxied.Path != "https://api.example.com/user?page=2" {
		t.Errorf("proxied path = %q", proxied.Path)
	}
}

func TestEndpointOrigin(t *testing.T) {
	tests := []struct {
		e    Endpoint
		want string
	}{
		{Endpoint{"https", "h", 443}, "https://h"},
		{Endpoint{"http", "h", 80}, "http://h"},
		{Endpoint{"http", "h", 8080}, "http://h:8080"},
		{Endpoint{"https", "h", 80}, "https://h:80"},
	}
	for _, tt := range tests {
		if got := tt.e.Origin(); got != tt.want {
			t.Errorf("Origin(%+v) = %q, want %q", tt.e, got, tt.want)
		}
	}
}

func TestParseURL(t *testing.T) {
	e, path, err := ParseURL("https://api.example.com:8443/repos/o/r/issues?page=2&per_page=10")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	if e != (Endpoint{"https", "api.example.com", 8443}) {
		t.Errorf("endpoint = %+v", e)
	}
	if path != "/repos/o/r/issues?page=2&per_page=10" {
		t.Errorf("path = %q", path)
	}

	if _, _, err := ParseURL("/relative"); err == nil {
		t.Error("relative url accepted")
	}
}
