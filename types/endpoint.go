package types

import (
	"strings"
	"time"
)

// Endpoint is an externally addressable path pattern restricting which
// schemas are reachable through it. Path segments wrapped in braces or
// brackets ("{id}", "[id]") are placeholders captured during matching.
type Endpoint struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      []string  `json:"path"`
	Entities  []string  `json:"entities,omitempty"` // allowed schema ids or references
	Proxy     string    `json:"proxy,omitempty"`
	Throws    []string  `json:"throws,omitempty"`
	CreatedAt time.Time `json:"dateCreated"`
}

// Restricted reports whether the endpoint limits the reachable schemas.
// If true, every object returned through this endpoint must belong to
// one of the entities.
func (e *Endpoint) Restricted() bool {
	return len(e.Entities) > 0
}

// isPlaceholder reports whether a path segment is a placeholder and
// returns its bare name.
func isPlaceholder(segment string) (string, bool) {
	if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
		return strings.Trim(segment, "{}"), true
	}
	if strings.HasPrefix(segment, "[") && strings.HasSuffix(segment, "]") {
		return strings.Trim(segment, "[]"), true
	}
	return "", false
}

// Match attempts to match the given request path segments against the
// endpoint's path template. On success it returns the captured placeholder
// values keyed by the placeholder segment as written in the template
// (e.g. "{id}"). A template placeholder matches exactly one segment;
// trailing placeholders are optional so /pets/{id} also matches /pets.
func (e *Endpoint) Match(segments []string) (map[string]string, bool) {
	if len(segments) > len(e.Path) {
		return nil, false
	}

	captured := map[string]string{}
	for i, tmpl := range e.Path {
		if i >= len(segments) {
			// Remaining template segments must all be placeholders.
			if _, ok := isPlaceholder(tmpl); !ok {
				return nil, false
			}
			continue
		}
		if _, ok := isPlaceholder(tmpl); ok {
			captured[tmpl] = segments[i]
			continue
		}
		if tmpl != segments[i] {
			return nil, false
		}
	}
	return captured, true
}

// Specificity returns the number of literal (non-placeholder) segments,
// used to prefer the most specific endpoint when several match.
func (e *Endpoint) Specificity() int {
	n := 0
	for _, seg := range e.Path {
		if _, ok := isPlaceholder(seg); !ok {
			n++
		}
	}
	return n
}
