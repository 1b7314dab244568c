// Package queryparse parses raw query strings into nested key/value
// structures preserving bracket-array semantics. Unlike net/url.ParseQuery
// it keeps dots and brackets inside decoded keys and values intact, which
// filter paths like ?_order[person.name]=asc depend on.
package queryparse

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/c360/objectgateway/errors"
)

// firstBracket matches the first complete bracketed segment of a key,
// e.g. "[b]" in "a[b][c]".
var firstBracket = regexp.MustCompile(`\[[^\[\]]*]`)

// Values is the nested result of parsing a query string. Leaves are
// strings, sequences are []any and nested keys are map[string]any.
type Values map[string]any

// Parse turns a raw query string into nested Values, interpreting
// name[key1][key2]=value as {name: {key1: {key2: value}}} and name[]=value
// as appending to a sequence under name. An empty query string yields an
// empty (non-nil) map.
func Parse(rawQuery string) (Values, error) {
	vars := Values{}
	if rawQuery == "" {
		return vars, nil
	}

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		nv := strings.SplitN(pair, "=", 2)
		name, err := url.QueryUnescape(nv[0])
		if err != nil {
			return nil, errors.Wrap(err, "queryparse", "Parse", "decode parameter name")
		}
		value := ""
		if len(nv) == 2 {
			value, err = url.QueryUnescape(nv[1])
			if err != nil {
				return nil, errors.Wrap(err, "queryparse", "Parse", "decode parameter value")
			}
		}

		nameKey, _, _ := strings.Cut(name, "[")
		assign(vars, name, nameKey, value)
	}

	return vars, nil
}

// assign stores one decoded name=value pair in vars. It recursively strips
// the first bracketed segment from name, descending into (or creating)
// nested maps; an empty bracket appends to a sequence instead of keying.
func assign(vars map[string]any, name, nameKey, value string) {
	match := firstBracket.FindString(name)
	if match == "" {
		vars[nameKey] = value
		return
	}

	name = strings.Replace(name, match, "", 1)
	key := strings.Trim(match, "[]")
	if key == "" {
		seq, _ := vars[nameKey].([]any)
		vars[nameKey] = append(seq, value)
		return
	}

	child, ok := vars[nameKey].(map[string]any)
	if !ok {
		child = map[string]any{}
		vars[nameKey] = child
	}
	assign(child, name, key, value)
}

// reserved maps legacy bare control parameters onto their reserved
// _-prefixed forms.
var reserved = []string{"limit", "start", "offset", "page", "extend", "search", "order", "fields"}

// NormalizeReserved renames legacy bare control keys (limit, start, offset,
// page, extend, search, order, fields) to their _-prefixed reserved forms,
// unless the reserved form is already present. The bare keys are removed
// either way so they never leak into predicate translation.
func NormalizeReserved(vars Values) {
	for _, key := range reserved {
		if v, ok := vars[key]; ok {
			if _, exists := vars["_"+key]; !exists {
				vars["_"+key] = v
			}
			delete(vars, key)
		}
	}
}

// Flatten converts nested Values back into sorted "name[key]=value" pairs
// (unencoded). It is the inverse of Parse on well-formed input and exists
// mainly to make round-trip checks cheap.
func Flatten(vars Values) []string {
	var pairs []string
	for key, value := range vars {
		flattenInto(&pairs, key, value)
	}
	sort.Strings(pairs)
	return pairs
}

func flattenInto(pairs *[]string, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			flattenInto(pairs, prefix+"["+key+"]", child)
		}
	case []any:
		for _, item := range v {
			flattenInto(pairs, prefix+"[]", item)
		}
	default:
		*pairs = append(*pairs, prefix+"="+toString(v))
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
