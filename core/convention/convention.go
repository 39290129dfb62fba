// Package convention derives endpoint names from route schema paths.
//
// The first path segment names the namespace; the remaining segments, joined
// with hyphens, name the function. Both are camel-cased:
//
//	repos/get-branch      -> repos.getBranch
//	pull-requests/get     -> pullRequests.get
//	repos/hooks/create    -> repos.hooksCreate
package convention

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Namespace returns the namespace name for a route path.
func Namespace(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return CamelCase(path[0], false)
}

// FunctionName returns the function name for a route path.
func FunctionName(path []string) string {
	if len(path) < 2 {
		return ""
	}
	return CamelCase(strings.Join(path[1:], "-"), false)
}

// AccessorName returns the name of the namespace accessor, e.g. "getReposApi".
func AccessorName(namespace string) string {
	if namespace == "" {
		return "getApi"
	}
	r, size := utf8.DecodeRuneInString(namespace)
	return "get" + string(unicode.ToUpper(r)) + namespace[size:] + "Api"
}

// CamelCase lower-cases s and upper-cases every character that follows a
// hyphen, underscore or whitespace run, dropping the separators.
// With upper set, the first character is upper-cased too.
func CamelCase(s string, upper bool) string {
	var b strings.Builder
	b.Grow(len(s))

	capNext := upper
	first := true
	for _, r := range strings.ToLower(s) {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			capNext = !first || upper
			continue
		}
		if capNext {
			r = unicode.ToUpper(r)
			capNext = false
		}
		b.WriteRune(r)
		first = false
	}

	out := b.String()
	if upper || out == "" {
		return out
	}
	r, size := utf8.DecodeRuneInString(out)
	return string(unicode.ToLower(r)) + out[size:]
}
