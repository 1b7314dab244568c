package cachestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/objectgateway/queryparse"
)

func TestPaginationBounds(t *testing.T) {
	tests := []struct {
		name       string
		values     queryparse.Values
		wantLimit  int
		wantSkip   int
		wantOffset int
		wantPage   int
	}{
		{
			name:       "defaults",
			values:     queryparse.Values{},
			wantLimit:  30,
			wantSkip:   0,
			wantOffset: 0,
			wantPage:   1,
		},
		{
			name:       "page arithmetic",
			values:     queryparse.Values{"_page": "2", "_limit": "10"},
			wantLimit:  10,
			wantSkip:   10,
			wantOffset: 10,
			wantPage:   2,
		},
		{
			name:       "explicit start wins over page and skips verbatim",
			values:     queryparse.Values{"_start": "11", "_page": "3", "_limit": "10"},
			wantLimit:  10,
			wantSkip:   11,
			wantOffset: 10,
			wantPage:   2,
		},
		{
			name:       "offset is an alias for start",
			values:     queryparse.Values{"_offset": "21", "_limit": "10"},
			wantLimit:  10,
			wantSkip:   21,
			wantOffset: 20,
			wantPage:   3,
		},
		{
			name:       "start of one means the beginning",
			values:     queryparse.Values{"_start": "1", "_limit": "10"},
			wantLimit:  10,
			wantSkip:   0,
			wantOffset: 0,
			wantPage:   1,
		},
		{
			name:       "non-numeric values fall back to defaults",
			values:     queryparse.Values{"_limit": "lots", "_page": "first"},
			wantLimit:  30,
			wantSkip:   0,
			wantOffset: 0,
			wantPage:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, skip, offset, page := paginationBounds(tt.values, 0)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantSkip, skip)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantPage, page)
		})
	}
}

func TestNewResultPage(t *testing.T) {
	docs := []map[string]any{{"id": "a"}, {"id": "b"}}

	t.Run("first page", func(t *testing.T) {
		page := NewResultPage(docs, 45, 30, 0)
		assert.Equal(t, 2, page.Count)
		assert.Equal(t, int64(45), page.Total)
		assert.Equal(t, 30, page.Limit)
		assert.Equal(t, 0, page.Offset)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 2, page.Pages)
	})

	t.Run("second page", func(t *testing.T) {
		page := NewResultPage(docs, 45, 30, 30)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 30, page.Offset)
	})

	t.Run("empty result keeps one page", func(t *testing.T) {
		page := NewResultPage(nil, 0, 30, 0)
		require.NotNil(t, page.Results)
		assert.Equal(t, 0, page.Count)
		assert.Equal(t, 1, page.Pages)
		assert.Equal(t, 1, page.Page)
	})

	t.Run("exact multiple of limit", func(t *testing.T) {
		page := NewResultPage(docs, 60, 30, 0)
		assert.Equal(t, 2, page.Pages)
	})
}
