package validation

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

func params(name string, rule schema.ParamRule) schema.Params {
	return schema.Params{{Name: name, Rule: rule}}
}

func TestValidate_Required(t *testing.T) {
	rule := schema.ParamRule{Required: true}

	tests := []struct {
		name  string
		msg   call.Message
		valid bool
	}{
		{"absent", call.Message{}, false},
		{"nil", call.Message{"user": nil}, false},
		{"empty", call.Message{"user": ""}, false},
		{"whitespace", call.Message{"user": "  \n\t "}, false},
		{"zero", call.Message{"user": 0}, false},
		{"false is a value", call.Message{"user": false}, true},
		{"present", call.Message{"user": "octocat"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.msg, params("user", rule))
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid {
				if !errors.Is(err, apierr.ErrBadRequest) {
					t.Fatalf("Validate() error = %v, want BadRequest", err)
				}
			}
		})
	}
}

func TestValidate_OptionalAndAllowEmpty(t *testing.T) {
	msg := call.Message{"sha": "   "}
	if err := Validate(msg, params("sha", schema.ParamRule{})); err != nil {
		t.Fatalf("optional empty: %v", err)
	}
	if msg["sha"] != "   " {
		t.Errorf("sha = %q, want the skipped value left as given", msg["sha"])
	}

	msg = call.Message{"body": ""}
	if err := Validate(msg, params("body", schema.ParamRule{Required: true, AllowEmpty: true})); err != nil {
		t.Errorf("allow-empty: %v", err)
	}

	msg = call.Message{"count": 0}
	if err := Validate(msg, params("count", schema.ParamRule{Required: true, AllowEmpty: true})); err == nil {
		t.Error("allow-empty accepted a zero number, want BadRequest")
	}

	msg = call.Message{}
	if err := Validate(msg, params("page", schema.ParamRule{Type: schema.TypeNumber})); err != nil {
		t.Fatalf("absent optional: %v", err)
	}
	if _, ok := msg["page"]; ok {
		t.Error("absent optional parameter was written into the message")
	}
}

func TestValidate_Trims(t *testing.T) {
	msg := call.Message{"user": "\t octocat \n"}
	if err := Validate(msg, params("user", schema.ParamRule{Required: true})); err != nil {
		t.Fatal(err)
	}
	if msg["user"] != "octocat" {
		t.Errorf("user = %q, want %q", msg["user"], "octocat")
	}
}

func TestValidate_Pattern(t *testing.T) {
	rule := schema.ParamRule{Required: true, Validation: "^(open|closed|all)$"}

	if err := Validate(call.Message{"state": "open"}, params("state", rule)); err != nil {
		t.Errorf("matching value: %v", err)
	}
	if err := Validate(call.Message{"state": "merged"}, params("state", rule)); !errors.Is(err, apierr.ErrBadRequest) {
		t.Errorf("non-matching value: error = %v, want BadRequest", err)
	}

	// Patterns are unanchored.
	loose := schema.ParamRule{Validation: "[0-9]+"}
	if err := Validate(call.Message{"id": "abc123"}, params("id", loose)); err != nil {
		t.Errorf("unanchored match: %v", err)
	}

	// Numbers are matched by their string form.
	if err := Validate(call.Message{"id": 42}, params("id", schema.ParamRule{Validation: "^42$"})); err != nil {
		t.Errorf("numeric value: %v", err)
	}
}

func TestValidate_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		typ   schema.ParamType
		in    any
		want  any
		valid bool
	}{
		{"number from string", schema.TypeNumber, "42", 42, true},
		{"number leading digits", schema.TypeNumber, "42abc", 42, true},
		{"number negative", schema.TypeNumber, "-7", -7, true},
		{"number truncates", schema.TypeNumber, "3.9", 3, true},
		{"number from float", schema.TypeNumber, 12.5, 12, true},
		{"number invalid", schema.TypeNumber, "abc", nil, false},
		{"number out of range", schema.TypeNumber, "99999999999999999999", nil, false},
		{"float out of range", schema.TypeFloat, "1e400", nil, false},
		{"float from string", schema.TypeFloat, "1.5", 1.5, true},
		{"float exponent", schema.TypeFloat, "2e3", 2000.0, true},
		{"float invalid", schema.TypeFloat, "abc", nil, false},
		{"json object", schema.TypeJSON, `{"a":1}`, map[string]any{"a": float64(1)}, true},
		{"json array", schema.TypeJSON, `[1,2]`, []any{float64(1), float64(2)}, true},
		{"json passthrough", schema.TypeJSON, map[string]any{"b": "c"}, map[string]any{"b": "c"}, true},
		{"json invalid", schema.TypeJSON, `{"a":`, nil, false},
		{"string", schema.TypeString, " x ", "x", true},
		{"untyped", schema.TypeNone, "value", "value", true},
		{"boolean untouched", schema.TypeBoolean, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := call.Message{"p": tt.in}
			err := Validate(msg, params("p", schema.ParamRule{Type: tt.typ}))
			if !tt.valid {
				if !errors.Is(err, apierr.ErrBadRequest) {
					t.Fatalf("error = %v, want BadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(msg["p"], tt.want) {
				t.Errorf("p = %#v, want %#v", msg["p"], tt.want)
			}
		})
	}
}

func TestValidate_OutOfRangeMessage(t *testing.T) {
	err := Validate(call.Message{"page": "99999999999999999999"}, params("page", schema.ParamRule{Type: schema.TypeNumber}))
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want BadRequest", err)
	}
	if !strings.Contains(apiErr.Message, "out of range") {
		t.Errorf("message = %q, want it to report the range", apiErr.Message)
	}

	msg := call.Message{"page": strconv.Itoa(math.MaxInt)}
	if err := Validate(msg, params("page", schema.ParamRule{Type: schema.TypeNumber})); err != nil {
		t.Fatalf("max int: %v", err)
	}
	if msg["page"] != math.MaxInt {
		t.Errorf("page = %#v", msg["page"])
	}
}

func TestValidate_SkippedOptionalLeftAsGiven(t *testing.T) {
	ps := schema.Params{
		{Name: "q", Rule: schema.ParamRule{}},
		{Name: "page", Rule: schema.ParamRule{Type: schema.TypeNumber}},
	}
	msg := call.Message{"q": "   ", "page": "2"}
	if err := Validate(msg, ps); err != nil {
		t.Fatal(err)
	}
	if msg["q"] != "   " {
		t.Errorf("q = %q, want it untouched", msg["q"])
	}
	if msg["page"] != 2 {
		t.Errorf("page = %#v, want 2", msg["page"])
	}
}

func TestValidate_Date(t *testing.T) {
	msg := call.Message{"since": "2024-03-01T10:00:00Z"}
	if err := Validate(msg, params("since", schema.ParamRule{Type: schema.TypeDate})); err != nil {
		t.Fatal(err)
	}
	got, ok := msg["since"].(time.Time)
	if !ok {
		t.Fatalf("since = %T, want time.Time", msg["since"])
	}
	if !got.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", got)
	}

	err := Validate(call.Message{"since": "yesterday-ish"}, params("since", schema.ParamRule{Type: schema.TypeDate}))
	if !errors.Is(err, apierr.ErrBadRequest) {
		t.Errorf("error = %v, want BadRequest", err)
	}
}

func TestValidate_StopsAtFirstFailure(t *testing.T) {
	ps := schema.Params{
		{Name: "owner", Rule: schema.ParamRule{Required: true}},
		{Name: "per_page", Rule: schema.ParamRule{Type: schema.TypeNumber}},
	}
	msg := call.Message{"per_page": "10"}

	err := Validate(msg, ps)
	if err == nil {
		t.Fatal("expected error for missing owner")
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Errorf("error = %#v, want status 400", err)
	}
	if msg["per_page"] != "10" {
		t.Errorf("per_page = %#v, later parameters must stay untouched", msg["per_page"])
	}
}

func TestValidator_PatternCache(t *testing.T) {
	v := New()
	rule := schema.ParamRule{Validation: "^a+$"}
	for i := 0; i < 3; i++ {
		if _, _, err := v.Param("p", rule, "aaa"); err != nil {
			t.Fatal(err)
		}
	}
	count := 0
	v.patterns.Range(func(any, any) bool {
		count++
		return true
	})
	if count != 1 {
		t.Errorf("cached patterns = %d, want 1", count)
	}
}
