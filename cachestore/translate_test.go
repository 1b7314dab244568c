package cachestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/objectgateway/queryparse"
	"github.com/c360/objectgateway/types"
)

func TestTranslateFilters(t *testing.T) {
	tests := []struct {
		name   string
		values queryparse.Values
		want   bson.M
	}{
		{
			name:   "plain string matches whole and case-insensitively",
			values: queryparse.Values{"name": "john"},
			want:   bson.M{"name": bson.M{"$regex": "^john$", "$options": "im"}},
		},
		{
			name:   "wildcard string keeps case sensitivity",
			values: queryparse.Values{"name": "jo%n"},
			want:   bson.M{"name": bson.M{"$regex": "^jo.*n$"}},
		},
		{
			name:   "regex metacharacters are escaped",
			values: queryparse.Values{"name": "a.c"},
			want:   bson.M{"name": bson.M{"$regex": `^a\.c$`, "$options": "im"}},
		},
		{
			name:   "IS NOT NULL",
			values: queryparse.Values{"email": "IS NOT NULL"},
			want:   bson.M{"email": bson.M{"$ne": nil}},
		},
		{
			name:   "IS NULL",
			values: queryparse.Values{"email": "IS NULL"},
			want:   bson.M{"email": nil},
		},
		{
			name:   "literal null string",
			values: queryparse.Values{"email": "null"},
			want:   bson.M{"email": nil},
		},
		{
			name:   "boolean",
			values: queryparse.Values{"active": true},
			want:   bson.M{"active": bson.M{"$eq": true}},
		},
		{
			name:   "array becomes membership",
			values: queryparse.Values{"status": []any{"open", "closed"}},
			want:   bson.M{"status": bson.M{"$in": []any{"open", "closed"}}},
		},
		{
			name:   "integer comparison",
			values: queryparse.Values{"age": map[string]any{">=": "18"}},
			want:   bson.M{"age": bson.M{"$gte": 18}},
		},
		{
			name:   "int_compare",
			values: queryparse.Values{"age": map[string]any{"int_compare": "21"}},
			want:   bson.M{"age": bson.M{"$eq": 21}},
		},
		{
			name:   "bool_compare",
			values: queryparse.Values{"active": map[string]any{"bool_compare": "true"}},
			want:   bson.M{"active": bson.M{"$eq": true}},
		},
		{
			name: "date range combines into one condition",
			values: queryparse.Values{"dateCreated": map[string]any{
				"after":  "2024-01-01T00:00:00Z",
				"before": "2024-12-31T00:00:00Z",
			}},
			want: bson.M{"dateCreated": bson.M{
				"$gte": "2024-01-01T00:00:00Z",
				"$lte": "2024-12-31T00:00:00Z",
			}},
		},
		{
			name: "strict bounds",
			values: queryparse.Values{"dateCreated": map[string]any{
				"strictly_after":  "2024-01-01T00:00:00Z",
				"strictly_before": "2024-12-31T00:00:00Z",
			}},
			want: bson.M{"dateCreated": bson.M{
				"$gt": "2024-01-01T00:00:00Z",
				"$lt": "2024-12-31T00:00:00Z",
			}},
		},
		{
			name:   "like wraps and escapes the value",
			values: queryparse.Values{"name": map[string]any{"like": "jo.n"}},
			want:   bson.M{"name": bson.M{"$regex": `.*jo\.n.*`, "$options": "im"}},
		},
		{
			name:   "regex passes through verbatim",
			values: queryparse.Values{"name": map[string]any{"regex": "^J.*n$"}},
			want:   bson.M{"name": bson.M{"$regex": "^J.*n$"}},
		},
		{
			name:   "exact",
			values: queryparse.Values{"name": map[string]any{"exact": "John"}},
			want:   bson.M{"name": bson.M{"$eq": "John"}},
		},
		{
			name:   "case_insensitive passes the pattern through",
			values: queryparse.Values{"name": map[string]any{"case_insensitive": "jo.*n"}},
			want:   bson.M{"name": bson.M{"$regex": "jo.*n", "$options": "i"}},
		},
		{
			name:   "case_sensitive passes the pattern through",
			values: queryparse.Values{"name": map[string]any{"case_sensitive": "Jo.*n"}},
			want:   bson.M{"name": bson.M{"$regex": "Jo.*n"}},
		},
		{
			name:   "nested attribute flattens to dotted path",
			values: queryparse.Values{"person": map[string]any{"name": "ann"}},
			want:   bson.M{"person.name": bson.M{"$regex": "^ann$", "$options": "im"}},
		},
		{
			name: "reserved parameters never reach the predicate",
			values: queryparse.Values{
				"_limit":  "10",
				"_page":   "2",
				"_fields": "name",
				"name":    "ann",
			},
			want: bson.M{"name": bson.M{"$regex": "^ann$", "$options": "im"}},
		},
	}

	tr := &Translator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, qerr := tr.Translate(nil, tt.values)
			require.Nil(t, qerr)
			assert.Equal(t, tt.want, q.Predicate)
		})
	}
}

func TestTranslateRejections(t *testing.T) {
	tests := []struct {
		name   string
		values queryparse.Values
		path   string
	}{
		{
			name:   "non-integer value for integer operator",
			values: queryparse.Values{"age": map[string]any{">=": "old"}},
			path:   "age",
		},
		{
			name:   "non-boolean value for bool_compare",
			values: queryparse.Values{"active": map[string]any{"bool_compare": "yes"}},
			path:   "active",
		},
		{
			name: "operators mixed with nested attributes",
			values: queryparse.Values{"person": map[string]any{
				"exact": "x",
				"name":  "ann",
			}},
			path: "person",
		},
		{
			name:   "operator injection through filter path",
			values: queryparse.Values{"$where": "1"},
			path:   "$where",
		},
		{
			name:   "operator injection through nested path",
			values: queryparse.Values{"a": map[string]any{"$gt": "1"}},
			path:   "a.$gt",
		},
	}

	tr := &Translator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, qerr := tr.Translate(nil, tt.values)
			assert.Nil(t, q)
			require.NotNil(t, qerr)
			assert.Equal(t, "query", qerr.Type)
			assert.Equal(t, tt.path, qerr.Path)
			assert.NotEmpty(t, qerr.Message)
		})
	}
}

func TestTranslateOrder(t *testing.T) {
	tr := &Translator{}

	t.Run("ascending", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_order": map[string]any{"name": "asc"}})
		require.Nil(t, qerr)
		assert.Equal(t, bson.D{{Key: "name", Value: 1}}, q.Sort)
	})

	t.Run("descending", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_order": map[string]any{"name": "DESC"}})
		require.Nil(t, qerr)
		assert.Equal(t, bson.D{{Key: "name", Value: -1}}, q.Sort)
	})

	t.Run("more than one attribute is rejected", func(t *testing.T) {
		_, qerr := tr.Translate(nil, queryparse.Values{"_order": map[string]any{
			"name": "asc",
			"age":  "desc",
		}})
		require.NotNil(t, qerr)
		assert.Equal(t, "_order", qerr.Path)
		assert.Contains(t, qerr.Data["attributes"], "age")
	})

	t.Run("bad direction is rejected", func(t *testing.T) {
		_, qerr := tr.Translate(nil, queryparse.Values{"_order": map[string]any{"name": "sideways"}})
		require.NotNil(t, qerr)
		assert.Equal(t, "_order", qerr.Path)
	})

	t.Run("bare string is rejected", func(t *testing.T) {
		_, qerr := tr.Translate(nil, queryparse.Values{"_order": "name"})
		require.NotNil(t, qerr)
	})
}

func TestTranslateAttributeFlags(t *testing.T) {
	schema := &types.Schema{
		ID:   "f8b3f0a0-0000-0000-0000-000000000001",
		Name: "person",
		Attributes: []types.Attribute{
			{Name: "name", Sortable: true, Searchable: true},
			{Name: "age"},
		},
	}
	tr := &Translator{EnforceAttributeFlags: true}

	t.Run("sortable attribute is accepted", func(t *testing.T) {
		q, qerr := tr.Translate(schema, queryparse.Values{"_order": map[string]any{"name": "asc"}})
		require.Nil(t, qerr)
		assert.NotNil(t, q.Sort)
	})

	t.Run("non-sortable attribute is rejected with alternatives", func(t *testing.T) {
		_, qerr := tr.Translate(schema, queryparse.Values{"_order": map[string]any{"age": "asc"}})
		require.NotNil(t, qerr)
		assert.Equal(t, []string{"name"}, qerr.Data["sortable"])
	})

	t.Run("unknown filter attribute is rejected", func(t *testing.T) {
		_, qerr := tr.Translate(schema, queryparse.Values{"height": "180"})
		require.NotNil(t, qerr)
		assert.Equal(t, "height", qerr.Path)
	})

	t.Run("non-searchable property search is rejected", func(t *testing.T) {
		_, qerr := tr.Translate(schema, queryparse.Values{"_search": map[string]any{"age": "4"}})
		require.NotNil(t, qerr)
		assert.Equal(t, "_search", qerr.Path)
	})
}

func TestTranslateSearch(t *testing.T) {
	tr := &Translator{}

	t.Run("bare term becomes full-text", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_search": "john"})
		require.Nil(t, qerr)
		assert.Equal(t, bson.M{"$search": "john", "$caseSensitive": false}, q.Predicate["$text"])
	})

	t.Run("property list becomes per-property or", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{
			"_search": map[string]any{"name,email": "jo"},
		})
		require.Nil(t, qerr)
		or, ok := q.Predicate["$or"].([]bson.M)
		require.True(t, ok)
		require.Len(t, or, 2)
		assert.Equal(t, bson.M{"name": bson.M{"$regex": "jo", "$options": "i"}}, or[0])
		assert.Equal(t, bson.M{"email": bson.M{"$regex": "jo", "$options": "i"}}, or[1])
	})

	t.Run("empty term is ignored", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_search": ""})
		require.Nil(t, qerr)
		assert.Empty(t, q.Predicate)
	})
}

func TestTranslateEntities(t *testing.T) {
	tr := &Translator{}
	id := "0b8f0854-7050-4dd4-8a54-7b2fbd462eb0"

	t.Run("uuid matches schema id", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_entities": []any{id}})
		require.Nil(t, qerr)
		assert.Equal(t, bson.M{"$in": []string{id}}, q.Predicate["_self.schema.id"])
	})

	t.Run("reference matches schema ref", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{"_entities": []any{"https://example.com/schema/person"}})
		require.Nil(t, qerr)
		assert.Equal(t, bson.M{"$in": []string{"https://example.com/schema/person"}},
			q.Predicate["_self.schema.ref"])
	})

	t.Run("mixed members combine with or", func(t *testing.T) {
		q, qerr := tr.Translate(nil, queryparse.Values{
			"_entities": []any{id, "https://example.com/schema/person"},
		})
		require.Nil(t, qerr)
		or, ok := q.Predicate["$or"].([]bson.M)
		require.True(t, ok)
		assert.Len(t, or, 2)
	})
}
