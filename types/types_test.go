package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointMatch(t *testing.T) {
	ep := Endpoint{Path: []string{"api", "pets", "{id}"}}

	tests := []struct {
		name     string
		segments []string
		want     map[string]string
		ok       bool
	}{
		{"full match with id", []string{"api", "pets", "abc-123"}, map[string]string{"{id}": "abc-123"}, true},
		{"trailing placeholder optional", []string{"api", "pets"}, map[string]string{}, true},
		{"literal mismatch", []string{"api", "owners", "abc"}, nil, false},
		{"too many segments", []string{"api", "pets", "abc", "extra"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ep.Match(tt.segments)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestEndpointMatchBracketPlaceholder(t *testing.T) {
	ep := Endpoint{Path: []string{"pets", "[id]"}}
	got, ok := ep.Match([]string{"pets", "42"})
	require.True(t, ok)
	assert.Equal(t, "42", got["[id]"])
}

func TestEndpointMatchShortPathNeedsPlaceholderTail(t *testing.T) {
	ep := Endpoint{Path: []string{"api", "pets", "detail"}}
	_, ok := ep.Match([]string{"api", "pets"})
	assert.False(t, ok, "missing literal tail segment should not match")
}

func TestEndpointSpecificity(t *testing.T) {
	assert.Equal(t, 2, (&Endpoint{Path: []string{"api", "pets", "{id}"}}).Specificity())
	assert.Equal(t, 0, (&Endpoint{Path: []string{"{any}"}}).Specificity())
}

func TestEndpointRestricted(t *testing.T) {
	assert.False(t, (&Endpoint{}).Restricted())
	assert.True(t, (&Endpoint{Entities: []string{"a"}}).Restricted())
}

func TestDecodeDescriptor(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want Descriptor
	}{
		{
			"by id",
			map[string]any{"_self": map[string]any{"schema": map[string]any{"id": "uuid-1"}}},
			Descriptor{Kind: ByIdentifier, Value: "uuid-1"},
		},
		{
			"by ref",
			map[string]any{"_self": map[string]any{"schema": map[string]any{"ref": "https://example.org/pet.schema.json"}}},
			Descriptor{Kind: ByReference, Value: "https://example.org/pet.schema.json"},
		},
		{
			"by reference spelling",
			map[string]any{"_self": map[string]any{"schema": map[string]any{"reference": "https://example.org/pet.schema.json"}}},
			Descriptor{Kind: ByReference, Value: "https://example.org/pet.schema.json"},
		},
		{
			"id wins over ref",
			map[string]any{"_self": map[string]any{"schema": map[string]any{"id": "uuid-1", "ref": "ref-1"}}},
			Descriptor{Kind: ByIdentifier, Value: "uuid-1"},
		},
		{"no self block", map[string]any{"name": "rex"}, Descriptor{}},
		{"self without schema", map[string]any{"_self": map[string]any{"owner": "x"}}, Descriptor{}},
		{"nil body", nil, Descriptor{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeDescriptor(tt.body)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind != Unresolved, got.Resolved())
		})
	}
}

func TestRecordLockMatches(t *testing.T) {
	unlocked := Record{}
	assert.True(t, unlocked.Unlocked())
	assert.True(t, unlocked.LockMatches(""))
	assert.True(t, unlocked.LockMatches("anything"))

	locked := Record{Lock: "token-1"}
	assert.False(t, locked.Unlocked())
	assert.True(t, locked.LockMatches("token-1"))
	assert.False(t, locked.LockMatches("token-2"))
	assert.False(t, locked.LockMatches(""))
}

func TestRecordReplaceAndMerge(t *testing.T) {
	rec := Record{Attributes: map[string]any{"name": "rex", "age": 3}}

	rec.Merge(map[string]any{"age": 4, "color": "brown"})
	assert.Equal(t, map[string]any{"name": "rex", "age": 4, "color": "brown"}, rec.Attributes)

	rec.Replace(map[string]any{"name": "fido"})
	assert.Equal(t, map[string]any{"name": "fido"}, rec.Attributes)

	rec.Replace(nil)
	assert.Equal(t, map[string]any{}, rec.Attributes)
}

func TestRecordCloneDoesNotAlias(t *testing.T) {
	rec := &Record{
		ID:         "r1",
		Attributes: map[string]any{"name": "rex"},
		Embedded:   map[string]map[string]any{"owner": {"id": "o1"}},
	}
	cp := rec.Clone()
	cp.Attributes["name"] = "changed"
	cp.Embedded["owner"]["id"] = "o2"

	assert.Equal(t, "rex", rec.Attributes["name"])
	assert.Equal(t, "o1", rec.Embedded["owner"]["id"])
}

func TestRecordReadMarking(t *testing.T) {
	rec := Record{}
	assert.True(t, rec.DateRead.IsZero())

	now := time.Now()
	rec.MarkRead(now)
	assert.Equal(t, now, rec.DateRead)

	rec.MarkUnread()
	assert.True(t, rec.DateRead.IsZero())
}

func TestScopeSetAllows(t *testing.T) {
	scopes := ScopeSet{
		"pet": {"GET": true, "POST": false},
	}
	assert.True(t, scopes.Allows("pet", "GET"))
	assert.False(t, scopes.Allows("pet", "POST"))
	assert.False(t, scopes.Allows("pet", "DELETE"))
	assert.False(t, scopes.Allows("owner", "GET"))
}

func TestSchemaAttributeFlags(t *testing.T) {
	s := Schema{Attributes: []Attribute{
		{Name: "name", Sortable: true, Searchable: true},
		{Name: "age", Sortable: true},
		{Name: "notes"},
	}}

	a, ok := s.Attribute("age")
	require.True(t, ok)
	assert.True(t, a.Sortable)

	_, ok = s.Attribute("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"name", "age"}, s.SortableAttributes())
	assert.Equal(t, []string{"name"}, s.SearchableAttributes())
}
