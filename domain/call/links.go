package call

import (
	"regexp"
	"strings"
)

// Page relations found in the link response header.
const (
	RelNext  = "next"
	RelPrev  = "prev"
	RelFirst = "first"
	RelLast  = "last"
)

var linkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="([a-z]+)"`)

// ParseLinks extracts rel -> URL pairs from a link header value such as
// `<https://api.example.com/users?page=2>; rel="next", <...>; rel="last"`.
func ParseLinks(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range strings.Split(header, ",") {
		m := linkPattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		links[m[2]] = m[1]
	}
	return links
}

// Link returns the URL for rel from the response's link meta header.
func (r *Response) Link(rel string) (string, bool) {
	if r == nil || r.Meta == nil {
		return "", false
	}
	header, ok := r.Meta["link"]
	if !ok {
		return "", false
	}
	u, ok := ParseLinks(header)[rel]
	return u, ok
}
