package queryparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlatPairs(t *testing.T) {
	got, err := Parse("name=rex&age=3")
	require.NoError(t, err)
	assert.Equal(t, Values{"name": "rex", "age": "3"}, got)
}

func TestParseNestedBrackets(t *testing.T) {
	got, err := Parse("filter%5Bowner%5D%5Bname%5D=jane")
	require.NoError(t, err)
	assert.Equal(t, Values{
		"filter": map[string]any{
			"owner": map[string]any{"name": "jane"},
		},
	}, got)
}

func TestParseSequenceBrackets(t *testing.T) {
	got, err := Parse("tag[]=a&tag[]=b&tag[]=c")
	require.NoError(t, err)
	assert.Equal(t, Values{"tag": []any{"a", "b", "c"}}, got)
}

func TestParseNestedSequence(t *testing.T) {
	got, err := Parse("filter[color][]=red&filter[color][]=blue")
	require.NoError(t, err)
	assert.Equal(t, Values{
		"filter": map[string]any{"color": []any{"red", "blue"}},
	}, got)
}

func TestParsePreservesDotsAndSpecials(t *testing.T) {
	// Dots in keys are filter paths and must survive parsing untouched.
	got, err := Parse("_order%5Bperson.name%5D=asc&url=https%3A%2F%2Fexample.org%2Fa.b")
	require.NoError(t, err)
	assert.Equal(t, Values{
		"_order": map[string]any{"person.name": "asc"},
		"url":    "https://example.org/a.b",
	}, got)
}

func TestParseEmptyQuery(t *testing.T) {
	got, err := Parse("")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestParseValuelessAndEmptyPairs(t *testing.T) {
	got, err := Parse("a&&b=")
	require.NoError(t, err)
	assert.Equal(t, Values{"a": "", "b": ""}, got)
}

func TestParseBadEscapeFails(t *testing.T) {
	_, err := Parse("a=%zz")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	// Parsing and flattening back reproduces the original pair set.
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"flat", "b=2&a=1", []string{"a=1", "b=2"}},
		{"nested", "f[x][y]=1&f[x][z]=2", []string{"f[x][y]=1", "f[x][z]=2"}},
		{"sequence", "t[]=a&t[]=b", []string{"t[]=a", "t[]=b"}},
		{"mixed", "o[p.q]=asc&s=hi", []string{"o[p.q]=asc", "s=hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars, err := Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Flatten(vars))
		})
	}
}

func TestNormalizeReserved(t *testing.T) {
	vars := Values{
		"limit":  "10",
		"_page":  "2",
		"page":   "9", // reserved form present, bare form dropped
		"search": "rex",
		"name":   "fido",
	}
	NormalizeReserved(vars)

	assert.Equal(t, Values{
		"_limit":  "10",
		"_page":   "2",
		"_search": "rex",
		"name":    "fido",
	}, vars)
}

func TestParsePlusDecodesAsSpace(t *testing.T) {
	got, err := Parse("q=hello+world")
	require.NoError(t, err)
	assert.Equal(t, Values{"q": "hello world"}, got)
}
