package dispatcher

import (
	"strings"

	"github.com/c360/objectgateway/queryparse"
	"github.com/c360/objectgateway/types"
)

// Request is the generic inbound surface the dispatcher accepts. The HTTP
// adapter fills it in; nothing here depends on net/http.
type Request struct {
	Method   string
	Endpoint *types.Endpoint
	Path     []string
	RawQuery string
	Headers  map[string]string
	Body     map[string]any
	User     string
}

// Header returns a header value, case-insensitively.
func (r *Request) Header(name string) string {
	for key, value := range r.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// Response is the generic outbound surface: a status code, a JSON-able
// body and response headers.
type Response struct {
	Status  int
	Body    any
	Headers map[string]string
}

// operation is the immutable per-request context threaded through the
// dispatch stages. Each stage reads from it; none of them share mutable
// dispatcher fields.
type operation struct {
	req        *Request
	values     queryparse.Values
	id         string
	lockToken  string
	markUnread bool
	descriptor types.Descriptor
	attributes map[string]any
	record     *types.Record
	schema     *types.Schema
}

// identifierKeys are the placeholder and parameter names probed for a
// record identifier, in order.
var identifierKeys = []string{"{id}", "[id]", "id", "{uuid}"}

// extractIdentifier probes path placeholders, then query parameters, then
// the body for a record identifier.
func extractIdentifier(captured map[string]string, values queryparse.Values, body map[string]any) string {
	for _, key := range identifierKeys {
		if v, ok := captured[key]; ok && v != "" {
			return v
		}
	}
	for _, key := range []string{"id", "uuid"} {
		if v, ok := values[key].(string); ok && v != "" {
			return v
		}
	}
	for _, key := range []string{"id", "uuid"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// bodyAttributes strips bookkeeping keys from the request body so they
// never end up stored as attributes. The lock token and read marker are
// extracted before stripping.
func bodyAttributes(body map[string]any) (attrs map[string]any, lockToken string, markUnread bool) {
	if body == nil {
		return nil, "", false
	}

	if v, ok := body["lock"].(string); ok {
		lockToken = v
	}
	if v, ok := body["@dateRead"].(bool); ok && !v {
		markUnread = true
	}

	attrs = make(map[string]any, len(body))
	for key, value := range body {
		switch key {
		case "_id", "_self", "_schema", "id", "uuid", "lock", "@dateRead":
			continue
		}
		attrs[key] = value
	}
	return attrs, lockToken, markUnread
}

// searchFromPath folds non-identifier path placeholder captures into a
// _search term when the caller did not supply one.
func searchFromPath(captured map[string]string, values queryparse.Values) {
	if _, exists := values["_search"]; exists {
		return
	}
	for key, value := range captured {
		if value == "" {
			continue
		}
		isID := false
		for _, idKey := range identifierKeys {
			if key == idKey {
				isID = true
				break
			}
		}
		if !isID {
			values["_search"] = value
			return
		}
	}
}
