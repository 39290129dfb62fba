package schema

import (
	"fmt"
	"strings"

	"github.com/artpar/routegen/domain/apierr"
)

// Resolve returns a copy of s in which every $-reference has been replaced by the
// matching rule from defines.params. The input schema is left untouched.
// Any reference without a definition makes the whole schema invalid.
func Resolve(s *Schema) (*Schema, error) {
	out := s.Clone()

	var missing []string
	_ = out.Walk(func(path []string, route *Route) error {
		for i, p := range route.Params {
			if !p.Ref {
				continue
			}
			rule, ok := out.Defines.Params[p.Name]
			if !ok {
				missing = append(missing, fmt.Sprintf("route %s: $%s", strings.Join(path, "/"), p.Name))
				continue
			}
			route.Params[i] = Param{Name: p.Name, Rule: rule}
		}
		return nil
	})

	if len(missing) > 0 {
		return nil, apierr.Schema("unresolved parameter references (not in defines.params):\n  - %s",
			strings.Join(missing, "\n  - "))
	}
	return out, nil
}
