package types

import (
	"maps"
	"time"
)

// Record is an instance of data bound to exactly one schema. A record's
// schema never changes after creation. The lock token, when set, must be
// echoed back by a caller before a mutation is applied.
type Record struct {
	ID         string                    `json:"id"`
	SchemaID   string                    `json:"schemaId"`
	SchemaRef  string                    `json:"schemaRef,omitempty"`
	Owner      string                    `json:"owner,omitempty"`
	Lock       string                    `json:"lock,omitempty"` // empty means unlocked
	Attributes map[string]any            `json:"attributes"`
	Embedded   map[string]map[string]any `json:"embedded,omitempty"`
	CreatedAt  time.Time                 `json:"dateCreated"`
	UpdatedAt  time.Time                 `json:"dateModified"`
	DateRead   time.Time                 `json:"dateRead,omitempty"` // zero means unread
}

// Clone returns a deep-enough copy of the record: attribute and embedded
// maps are copied one level down so callers can mutate the copy without
// aliasing stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Attributes = maps.Clone(r.Attributes)
	if r.Embedded != nil {
		cp.Embedded = make(map[string]map[string]any, len(r.Embedded))
		for k, v := range r.Embedded {
			cp.Embedded[k] = maps.Clone(v)
		}
	}
	return &cp
}

// Replace swaps the record's attribute payload for the given one
// (PUT semantics).
func (r *Record) Replace(attrs map[string]any) {
	r.Attributes = maps.Clone(attrs)
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}
	r.UpdatedAt = time.Now().UTC()
}

// Merge folds the given attributes into the existing payload
// (PATCH semantics). Existing keys not named are preserved.
func (r *Record) Merge(attrs map[string]any) {
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}
	maps.Copy(r.Attributes, attrs)
	r.UpdatedAt = time.Now().UTC()
}

// MarkRead stamps the record as read at the given time.
func (r *Record) MarkRead(at time.Time) {
	r.DateRead = at
}

// MarkUnread clears the read stamp.
func (r *Record) MarkUnread() {
	r.DateRead = time.Time{}
}

// Unlocked reports whether the record carries no lock token.
func (r *Record) Unlocked() bool {
	return r.Lock == ""
}

// LockMatches reports whether a mutation supplying the given token may
// proceed: either the record is unlocked or the tokens are equal.
func (r *Record) LockMatches(token string) bool {
	return r.Lock == "" || r.Lock == token
}
