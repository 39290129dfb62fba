// Package validation checks and coerces call parameters against their declared rules.
// It runs synchronously before any network I/O; every failure is a BadRequest.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/artpar/routegen/core/schema"
	"github.com/artpar/routegen/domain/apierr"
	"github.com/artpar/routegen/domain/call"
)

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
)

// Validator validates messages against parameter rules.
// Compiled validation patterns are cached, so a Validator should be shared.
type Validator struct {
	patterns sync.Map // pattern -> *regexp.Regexp
}

// New creates a validator with an empty pattern cache.
func New() *Validator {
	return &Validator{}
}

var defaultValidator = New()

// Validate validates msg with the package-level validator.
func Validate(msg call.Message, params schema.Params) error {
	return defaultValidator.Validate(msg, params)
}

// Validate checks every declared parameter in order and writes coerced values
// back into msg. Skipped optional values are left as given. It stops at the
// first failure.
func (v *Validator) Validate(msg call.Message, params schema.Params) error {
	for _, p := range params {
		value, present, err := v.Param(p.Name, p.Rule, msg[p.Name])
		if err != nil {
			return err
		}
		if present {
			msg[p.Name] = value
		}
	}
	return nil
}

// Param validates one value. present is false when an empty optional value was skipped;
// the returned value is then the trimmed input.
func (v *Validator) Param(name string, rule schema.ParamRule, value any) (out any, present bool, err error) {
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}

	if isFalsy(value) {
		if !rule.Required || (rule.AllowEmpty && value == "") {
			return value, false, nil
		}
		return nil, false, apierr.BadRequest("Empty value for parameter '%s': %v", name, printable(value))
	}

	if rule.Validation != "" {
		re, err := v.pattern(rule.Validation)
		if err != nil {
			return nil, false, apierr.BadRequest("Invalid validation pattern for parameter '%s': %v", name, err)
		}
		if !re.MatchString(stringForm(value)) {
			return nil, false, apierr.BadRequest("Invalid value for parameter '%s': %v", name, printable(value))
		}
	}

	out, err = coerce(name, rule.Type, value)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (v *Validator) pattern(expr string) (*regexp.Regexp, error) {
	if re, ok := v.patterns.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	actual, _ := v.patterns.LoadOrStore(expr, re)
	return actual.(*regexp.Regexp), nil
}

func coerce(name string, typ schema.ParamType, value any) (any, error) {
	switch typ {
	case schema.TypeNumber:
		n, err := parseInt(value)
		if errors.Is(err, strconv.ErrRange) {
			return nil, apierr.BadRequest("Invalid value for parameter '%s': %v is out of range", name, printable(value))
		}
		if err != nil {
			return nil, apierr.BadRequest("Invalid value for parameter '%s': %v is NaN", name, printable(value))
		}
		return n, nil

	case schema.TypeFloat:
		f, err := parseFloat(value)
		if errors.Is(err, strconv.ErrRange) {
			return nil, apierr.BadRequest("Invalid value for parameter '%s': %v is out of range", name, printable(value))
		}
		if err != nil || math.IsNaN(f) {
			return nil, apierr.BadRequest("Invalid value for parameter '%s': %v is NaN", name, printable(value))
		}
		return f, nil

	case schema.TypeJSON:
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, apierr.BadRequest("JSON parse error of value for parameter '%s': %s", name, s)
		}
		return out, nil

	case schema.TypeDate:
		t, err := cast.ToTimeE(value)
		if err != nil {
			return nil, apierr.BadRequest("Invalid date for parameter '%s': %v", name, printable(value))
		}
		return t, nil

	default:
		return value, nil
	}
}

// parseInt reads the leading integer of a string; numeric values are truncated.
// Values outside the int range fail with strconv.ErrRange.
func parseInt(value any) (int, error) {
	s, ok := value.(string)
	if !ok {
		f, err := cast.ToFloat64E(value)
		if err != nil || math.IsNaN(f) {
			return 0, fmt.Errorf("not a number")
		}
		if f >= math.MaxInt || f < math.MinInt {
			return 0, strconv.ErrRange
		}
		return int(f), nil
	}
	m := leadingInt.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("not a number")
	}
	n, err := strconv.ParseInt(m, 10, 0)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// parseFloat reads the leading floating point number of a string.
func parseFloat(value any) (float64, error) {
	s, ok := value.(string)
	if !ok {
		return cast.ToFloat64E(value)
	}
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, fmt.Errorf("not a number")
	}
	return strconv.ParseFloat(m, 64)
}

// isFalsy reports nil, empty string, zero and NaN. false is not falsy here.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return false
	case float64:
		return v == 0 || math.IsNaN(v)
	case float32:
		return v == 0 || math.IsNaN(float64(v))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// stringForm renders a value the way it is matched against validation patterns.
func stringForm(value any) string {
	switch value.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(value)
		if err == nil {
			return string(data)
		}
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return s
}

func printable(value any) string {
	if value == nil {
		return "null"
	}
	return stringForm(value)
}
