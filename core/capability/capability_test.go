package capability

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

type stubSender struct {
	resp *call.Response
	err  error
}

func (s stubSender) Send(context.Context, call.Message, schema.Route) (*call.Response, error) {
	return s.resp, s.err
}

func TestSet_Register(t *testing.T) {
	set := NewSet("v3")
	if err := set.Register(StandardSection("repos", "get")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := set.Register(StandardSection("repos", "getBranch")); err == nil {
		t.Error("duplicate section accepted")
	}
	if err := set.Register(NewSection("")); err == nil {
		t.Error("unnamed section accepted")
	}

	sec, ok := set.Section("repos")
	if !ok {
		t.Fatal("section repos missing")
	}
	if _, ok := sec.Handler("get"); !ok {
		t.Error("handler get missing")
	}
	if _, ok := sec.Handler("delete"); ok {
		t.Error("unexpected handler delete")
	}
}

func TestSet_Sections(t *testing.T) {
	set := NewSet("v3").MustRegister(NewSection("users"), NewSection("gists"), NewSection("repos"))
	got := set.Sections()
	want := []string{"gists", "repos", "users"}
	if len(got) != len(want) {
		t.Fatalf("Sections() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sections()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStandard_DecodesJSON(t *testing.T) {
	s := stubSender{resp: &call.Response{
		Status: 200,
		Header: http.Header{"Content-Type": {"application/json; charset=utf-8"}},
		Body:   `{"login":"octocat","id":1}`,
	}}

	resp, err := Standard(context.Background(), s, call.Message{}, schema.Route{})
	if err != nil {
		t.Fatalf("Standard() error = %v", err)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want map", resp.Data)
	}
	if data["login"] != "octocat" {
		t.Errorf("login = %v, want octocat", data["login"])
	}
}

func TestStandard_UndecodableBody(t *testing.T) {
	s := stubSender{resp: &call.Response{Status: 200, Header: http.Header{}, Body: "{not json"}}

	_, err := Standard(context.Background(), s, call.Message{}, schema.Route{})
	if !errors.Is(err, apierr.ErrInternal) {
		t.Errorf("error = %v, want InternalServerError", err)
	}
}

func TestStandard_NonJSONContent(t *testing.T) {
	s := stubSender{resp: &call.Response{
		Status: 200,
		Header: http.Header{"Content-Type": {"text/html"}},
		Body:   "<p>hi</p>",
	}}

	resp, err := Standard(context.Background(), s, call.Message{}, schema.Route{})
	if err != nil {
		t.Fatalf("Standard() error = %v", err)
	}
	if resp.Data != nil {
		t.Errorf("Data = %v, want nil for html", resp.Data)
	}
	if resp.Body != "<p>hi</p>" {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestStandard_PropagatesSendError(t *testing.T) {
	want := apierr.HTTP(404, `{"message":"Not Found"}`)
	_, err := Standard(context.Background(), stubSender{err: want}, call.Message{}, schema.Route{})
	if !errors.Is(err, apierr.ErrHTTP) {
		t.Errorf("error = %v, want HttpError", err)
	}
}

func TestFromSchema(t *testing.T) {
	s, err := schema.Parse([]byte(`
repos:
  get: { url: /repos/:owner/:repo, method: GET, params: { owner: {}, repo: {} } }
  get-branch: { url: /repos/:owner/:repo/branches/:branch, method: GET, params: { branch: {} } }
pull-requests:
  list: { url: /pulls, method: GET, params: {} }
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	set, err := FromSchema("v1", s)
	if err != nil {
		t.Fatalf("FromSchema() error = %v", err)
	}
	if set.Version() != "v1" {
		t.Errorf("Version() = %q", set.Version())
	}

	repos, ok := set.Section("repos")
	if !ok {
		t.Fatal("section repos missing")
	}
	if got := repos.Functions(); len(got) != 2 || got[0] != "get" || got[1] != "getBranch" {
		t.Errorf("repos functions = %v", got)
	}
	if _, ok := set.Section("pullRequests"); !ok {
		t.Error("section pullRequests missing")
	}
}
