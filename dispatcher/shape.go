package dispatcher

import (
	"context"
	"maps"
	"strings"

	"github.com/c360/objectgateway/cachestore"
)

// Shaping is the per-endpoint response shaping rule: whether embedded
// sub-objects are suppressed, with an allow-list of accept types exempt
// from suppression.
type Shaping struct {
	SuppressEmbedded bool     `json:"suppressEmbedded"`
	Except           []string `json:"except,omitempty"`
}

// ShapingSource supplies shaping rules per endpoint.
type ShapingSource interface {
	ShapingFor(ctx context.Context, endpointID string) (Shaping, error)
}

// NoShaping suppresses nothing.
type NoShaping struct{}

// ShapingFor returns the zero rule.
func (NoShaping) ShapingFor(_ context.Context, _ string) (Shaping, error) {
	return Shaping{}, nil
}

// StaticShaping serves rules from a fixed map keyed by endpoint id.
type StaticShaping map[string]Shaping

// ShapingFor returns the configured rule, or the zero rule for unknown
// endpoints.
func (s StaticShaping) ShapingFor(_ context.Context, endpointID string) (Shaping, error) {
	return s[endpointID], nil
}

// shape applies post-processing to one response document: embedded
// suppression per endpoint rule and _self metadata stripping unless the
// caller asked for it with _extend.
func (d *Dispatcher) shape(ctx context.Context, op *operation, doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	shaped := maps.Clone(doc)

	if op.req.Endpoint != nil {
		rule, err := d.shaping.ShapingFor(ctx, op.req.Endpoint.ID)
		if err != nil {
			d.logger.Warn("loading shaping rule failed", "endpoint", op.req.Endpoint.ID, "error", err)
		} else if rule.SuppressEmbedded && !acceptExempt(op.req.Header("Accept"), rule.Except) {
			delete(shaped, "embedded")
		}
	}

	if extendsSelf(op.values) {
		delete(shaped, "_id")
		return shaped
	}
	return cachestore.WithoutMetadata(shaped)
}

// extendsSelf reports whether the query asks for _self metadata, either as
// _extend=_self,... or as _extend[_self]=true.
func extendsSelf(values map[string]any) bool {
	raw, ok := values["_extend"]
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case string:
		for _, field := range strings.Split(v, ",") {
			if strings.TrimSpace(field) == "_self" {
				return true
			}
		}
	case map[string]any:
		if flag, ok := v["_self"]; ok {
			return flag != "false"
		}
	}
	return false
}

// acceptExempt reports whether the request's accept type is on the
// suppression exemption list.
func acceptExempt(accept string, except []string) bool {
	if accept == "" {
		return false
	}
	mediaType, _, _ := strings.Cut(accept, ";")
	mediaType = strings.TrimSpace(mediaType)
	for _, exempt := range except {
		if strings.EqualFold(mediaType, exempt) {
			return true
		}
	}
	return false
}
