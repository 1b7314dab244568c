package cachestore

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// evalPredicate reports whether a mirror document matches a translated
// predicate. It evaluates the operator subset the translator emits; it is
// not a general Mongo query engine.
func evalPredicate(doc map[string]any, pred bson.M) bool {
	for key, condition := range pred {
		switch key {
		case "$or":
			if !evalOr(doc, condition) {
				return false
			}
		case "$text":
			if !evalText(doc, condition) {
				return false
			}
		default:
			value, present := lookupPath(doc, key)
			if !evalCondition(value, present, condition) {
				return false
			}
		}
	}
	return true
}

func evalOr(doc map[string]any, condition any) bool {
	branches, ok := condition.([]bson.M)
	if !ok {
		return false
	}
	for _, branch := range branches {
		if evalPredicate(doc, branch) {
			return true
		}
	}
	return false
}

// evalText approximates $text as a case-insensitive substring scan over
// every string leaf of the document.
func evalText(doc map[string]any, condition any) bool {
	spec, ok := condition.(bson.M)
	if !ok {
		return false
	}
	term, ok := spec["$search"].(string)
	if !ok || term == "" {
		return true
	}
	return containsText(doc, strings.ToLower(term))
}

func containsText(value any, term string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), term)
	case map[string]any:
		for _, child := range v {
			if containsText(child, term) {
				return true
			}
		}
	case []any:
		for _, child := range v {
			if containsText(child, term) {
				return true
			}
		}
	}
	return false
}

// lookupPath resolves a dotted path into the document.
func lookupPath(doc map[string]any, path string) (any, bool) {
	current := any(doc)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// evalCondition applies one translated condition to a document value.
func evalCondition(value any, present bool, condition any) bool {
	switch cond := condition.(type) {
	case nil:
		return !present || value == nil
	case bson.M:
		return evalOperators(value, present, cond)
	default:
		return looseEqual(value, condition)
	}
}

func evalOperators(value any, present bool, ops bson.M) bool {
	if pattern, ok := ops["$regex"].(string); ok {
		opts, _ := ops["$options"].(string)
		return evalRegex(value, pattern, opts)
	}

	for op, operand := range ops {
		switch op {
		case "$eq":
			if !looseEqual(value, operand) {
				return false
			}
		case "$ne":
			if operand == nil {
				if !present || value == nil {
					return false
				}
			} else if looseEqual(value, operand) {
				return false
			}
		case "$in":
			members, ok := operand.([]any)
			if !ok {
				if strs, isStrs := operand.([]string); isStrs {
					members = make([]any, len(strs))
					for i, s := range strs {
						members[i] = s
					}
				} else {
					return false
				}
			}
			found := false
			for _, member := range members {
				if looseEqual(value, member) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			cmp, comparable := compareValues(value, operand)
			if !comparable {
				return false
			}
			switch op {
			case "$gt":
				if cmp <= 0 {
					return false
				}
			case "$gte":
				if cmp < 0 {
					return false
				}
			case "$lt":
				if cmp >= 0 {
					return false
				}
			case "$lte":
				if cmp > 0 {
					return false
				}
			}
		case "$options":
			// consumed with $regex
		default:
			return false
		}
	}
	return true
}

func evalRegex(value any, pattern, opts string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	var flags string
	if strings.Contains(opts, "i") {
		flags += "i"
	}
	if strings.Contains(opts, "m") {
		flags += "m"
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// looseEqual compares values across the numeric representations JSON
// decoding produces.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

// compareValues orders two values, returning -1, 0 or 1 and whether they
// were comparable at all.
func compareValues(a, b any) (int, bool) {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
