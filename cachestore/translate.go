package cachestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/objectgateway/queryparse"
	"github.com/c360/objectgateway/types"
)

// Query is a translated, store-native query: a Mongo-style predicate plus
// ordering and pagination already resolved against defaults. Start is the
// number of documents the query skips; Offset is what the envelope
// reports, one less than an explicit _start.
type Query struct {
	Predicate bson.M
	Sort      bson.D
	Limit     int
	Start     int
	Offset    int
	Page      int
}

// QueryError is a structured rejection of a caller-supplied query. It is a
// payload, not a Go error: the dispatcher serializes it as a 400 response
// body without treating translation failure as a server fault.
type QueryError struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Path    string         `json:"path"`
	Data    map[string]any `json:"data,omitempty"`
}

// Body renders the error as a JSON response body.
func (e *QueryError) Body() map[string]any {
	raw, _ := json.Marshal(e)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)
	return body
}

func queryError(path, format string, args ...any) *QueryError {
	return &QueryError{
		Message: fmt.Sprintf(format, args...),
		Type:    "query",
		Path:    path,
	}
}

// reservedKeys never translate into predicate conditions; they steer
// pagination, ordering, search, shaping or are metadata echoes.
var reservedKeys = map[string]bool{
	"_limit":            true,
	"_start":            true,
	"_offset":           true,
	"_page":             true,
	"_order":            true,
	"_search":           true,
	"_extend":           true,
	"_fields":           true,
	"_queries":          true,
	"_enablePagination": true,
	"_showDeleted":      true,
	"_entities":         true,
	"_self":             true,
	"_schema":           true,
	"_id":               true,
	"id":                true,
}

// comparisonOperators is the closed set of operator keys recognized inside
// a filter object. Any other key in an operator object is rejected.
var comparisonOperators = map[string]bool{
	"int_compare":      true,
	"bool_compare":     true,
	"after":            true,
	"strictly_after":   true,
	"before":           true,
	"strictly_before":  true,
	"like":             true,
	"regex":            true,
	">=":               true,
	">":                true,
	"<=":               true,
	"<":                true,
	"exact":            true,
	"case_insensitive": true,
	"case_sensitive":   true,
}

// Translator compiles parsed query values into native cache queries.
type Translator struct {
	Logger *slog.Logger

	// EnforceAttributeFlags gates ordering on sortable attributes and
	// property search on searchable attributes when a schema is available.
	EnforceAttributeFlags bool

	// DefaultLimit applies when the caller sends no _limit. Zero means 30.
	DefaultLimit int
}

// Translate compiles values into a Query. The second return carries a
// caller-facing rejection; exactly one of the two returns is non-nil.
func (t *Translator) Translate(schema *types.Schema, values queryparse.Values) (*Query, *QueryError) {
	q := &Query{Predicate: bson.M{}}
	q.Limit, q.Start, q.Offset, q.Page = paginationBounds(values, t.DefaultLimit)

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		switch key {
		case "_order":
			sortSpec, qerr := t.translateOrder(schema, value)
			if qerr != nil {
				return nil, qerr
			}
			q.Sort = sortSpec
		case "_search":
			qerr := t.translateSearch(schema, value, q.Predicate)
			if qerr != nil {
				return nil, qerr
			}
		case "_entities":
			qerr := t.translateEntities(value, q.Predicate)
			if qerr != nil {
				return nil, qerr
			}
		default:
			if reservedKeys[key] {
				continue
			}
			if qerr := t.translateFilter(key, value, q.Predicate, schema); qerr != nil {
				return nil, qerr
			}
		}
	}

	return q, nil
}

// translateFilter compiles one attribute filter into the predicate. Nested
// maps whose keys are not operators descend as dotted paths.
func (t *Translator) translateFilter(path string, value any, pred bson.M, schema *types.Schema) *QueryError {
	for _, segment := range strings.Split(path, ".") {
		if strings.HasPrefix(segment, "$") {
			return queryError(path, "filter paths cannot name operators")
		}
	}
	if t.EnforceAttributeFlags && schema != nil && !strings.Contains(path, ".") {
		if _, ok := schema.Attribute(rootAttribute(path)); !ok {
			return queryError(path, "filter on unknown attribute %q", rootAttribute(path))
		}
	}

	switch v := value.(type) {
	case bool:
		pred[path] = bson.M{"$eq": v}
	case string:
		pred[path] = translateString(v)
	case []any:
		pred[path] = bson.M{"$in": v}
	case map[string]any:
		if isOperatorObject(v) {
			cond, qerr := translateComparison(path, v)
			if qerr != nil {
				return qerr
			}
			pred[path] = cond
			return nil
		}
		return t.translateNested(path, v, pred, schema)
	default:
		pred[path] = bson.M{"$eq": v}
	}
	return nil
}

// translateNested flattens a non-operator map into dotted sub-paths. A map
// mixing operator and attribute keys is ambiguous and rejected.
func (t *Translator) translateNested(path string, value map[string]any, pred bson.M, schema *types.Schema) *QueryError {
	for key := range value {
		if comparisonOperators[key] {
			return queryError(path, "filter mixes comparison operators with nested attributes")
		}
	}
	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if qerr := t.translateFilter(path+"."+key, value[key], pred, schema); qerr != nil {
			return qerr
		}
	}
	return nil
}

func rootAttribute(path string) string {
	root, _, _ := strings.Cut(path, ".")
	return root
}

func isOperatorObject(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for key := range m {
		if !comparisonOperators[key] {
			return false
		}
	}
	return true
}

// translateString compiles a scalar string filter. Wildcard values keep
// case sensitivity; plain values match whole, case-insensitively.
func translateString(v string) any {
	switch v {
	case "IS NOT NULL":
		return bson.M{"$ne": nil}
	case "IS NULL", "null":
		return nil
	}
	if strings.Contains(v, "%") {
		parts := strings.Split(v, "%")
		for i, part := range parts {
			parts[i] = regexp.QuoteMeta(part)
		}
		return bson.M{"$regex": "^" + strings.Join(parts, ".*") + "$"}
	}
	return bson.M{"$regex": "^" + regexp.QuoteMeta(v) + "$", "$options": "im"}
}

// translateComparison compiles an operator object. Range operators on the
// same attribute combine into one two-sided condition.
func translateComparison(path string, ops map[string]any) (bson.M, *QueryError) {
	cond := bson.M{}

	keys := make([]string, 0, len(ops))
	for key := range ops {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, op := range keys {
		raw := ops[op]
		value, isString := raw.(string)
		if !isString {
			return nil, queryError(path, "operator %q requires a scalar value", op)
		}

		switch op {
		case "int_compare", ">=", ">", "<=", "<":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, queryError(path, "operator %q requires an integer value, got %q", op, value)
			}
			switch op {
			case "int_compare":
				cond["$eq"] = n
			case ">=":
				cond["$gte"] = n
			case ">":
				cond["$gt"] = n
			case "<=":
				cond["$lte"] = n
			case "<":
				cond["$lt"] = n
			}
		case "bool_compare":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, queryError(path, "operator %q requires a boolean value, got %q", op, value)
			}
			cond["$eq"] = b
		case "after":
			cond["$gte"] = value
		case "strictly_after":
			cond["$gt"] = value
		case "before":
			cond["$lte"] = value
		case "strictly_before":
			cond["$lt"] = value
		case "like":
			cond["$regex"] = ".*" + regexp.QuoteMeta(value) + ".*"
			cond["$options"] = "im"
		case "regex":
			cond["$regex"] = value
		case "exact":
			cond["$eq"] = value
		case "case_insensitive":
			cond["$regex"] = value
			cond["$options"] = "i"
		case "case_sensitive":
			cond["$regex"] = value
		default:
			return nil, queryError(path, "unrecognized filter operator %q", op)
		}
	}

	return cond, nil
}

// translateOrder compiles _order. Exactly one attribute is orderable per
// query; the direction must be asc or desc.
func (t *Translator) translateOrder(schema *types.Schema, value any) (bson.D, *QueryError) {
	spec, ok := value.(map[string]any)
	if !ok {
		return nil, queryError("_order", "ordering requires the form _order[attribute]=asc|desc")
	}
	if len(spec) != 1 {
		qerr := queryError("_order", "ordering accepts exactly one attribute, got %d", len(spec))
		qerr.Data = map[string]any{"attributes": mapKeys(spec)}
		return nil, qerr
	}

	for attr, dir := range spec {
		direction, ok := dir.(string)
		if !ok {
			return nil, queryError("_order", "ordering direction must be asc or desc")
		}
		var order int
		switch strings.ToLower(direction) {
		case "asc":
			order = 1
		case "desc":
			order = -1
		default:
			qerr := queryError("_order", "ordering direction must be asc or desc, got %q", direction)
			qerr.Data = map[string]any{"attribute": attr, "direction": direction}
			return nil, qerr
		}

		if t.EnforceAttributeFlags && schema != nil {
			if a, ok := schema.Attribute(rootAttribute(attr)); !ok || !a.Sortable {
				qerr := queryError("_order", "attribute %q is not sortable", attr)
				qerr.Data = map[string]any{"sortable": schema.SortableAttributes()}
				return nil, qerr
			}
		}
		return bson.D{{Key: attr, Value: order}}, nil
	}
	return nil, nil
}

// translateSearch compiles _search. A bare string becomes a case-insensitive
// full-text condition; _search[a,b]=v becomes a per-property $or of regexes.
func (t *Translator) translateSearch(schema *types.Schema, value any, pred bson.M) *QueryError {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		pred["$text"] = bson.M{"$search": v, "$caseSensitive": false}
		return nil
	case map[string]any:
		for props, raw := range v {
			term, ok := raw.(string)
			if !ok || term == "" {
				continue
			}
			var conditions []bson.M
			for _, prop := range strings.Split(props, ",") {
				prop = strings.TrimSpace(prop)
				if prop == "" {
					continue
				}
				if t.EnforceAttributeFlags && schema != nil {
					if a, ok := schema.Attribute(rootAttribute(prop)); !ok || !a.Searchable {
						return &QueryError{
							Message: fmt.Sprintf("attribute %q is not searchable", prop),
							Type:    "query",
							Path:    "_search",
							Data:    map[string]any{"searchable": schema.SearchableAttributes()},
						}
					}
				}
				conditions = append(conditions, bson.M{
					prop: bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"},
				})
			}
			if len(conditions) > 0 {
				pred["$or"] = conditions
			}
		}
		return nil
	default:
		return queryError("_search", "search requires a string or _search[properties]=term form")
	}
}

// translateEntities restricts results to records of the given schemas.
// UUID values match the schema id, anything else the schema reference.
// Non-string members are skipped with a warning rather than failing the
// whole query.
func (t *Translator) translateEntities(value any, pred bson.M) *QueryError {
	members, ok := value.([]any)
	if !ok {
		if single, isString := value.(string); isString {
			members = []any{single}
		} else {
			return queryError("_entities", "entities filter requires one or more schema ids or references")
		}
	}

	var ids, refs []string
	for _, member := range members {
		s, isString := member.(string)
		if !isString || s == "" {
			if t.Logger != nil {
				t.Logger.Warn("skipping unresolvable entities member", "member", member)
			}
			continue
		}
		if uuid.Validate(s) == nil {
			ids = append(ids, s)
		} else {
			refs = append(refs, s)
		}
	}

	switch {
	case len(ids) > 0 && len(refs) > 0:
		pred["$or"] = []bson.M{
			{"_self.schema.id": bson.M{"$in": ids}},
			{"_self.schema.ref": bson.M{"$in": refs}},
		}
	case len(ids) > 0:
		pred["_self.schema.id"] = bson.M{"$in": ids}
	case len(refs) > 0:
		pred["_self.schema.ref"] = bson.M{"$in": refs}
	}
	return nil
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
