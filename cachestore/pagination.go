package cachestore

import (
	"strconv"

	"github.com/c360/objectgateway/queryparse"
)

// DefaultPageLimit applies when a caller sends no _limit parameter.
const DefaultPageLimit = 30

// ResultPage is the envelope wrapping every collection response.
type ResultPage struct {
	Results []map[string]any `json:"results"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Total   int64            `json:"total"`
	Offset  int              `json:"offset"`
	Page    int              `json:"page"`
	Pages   int              `json:"pages"`
}

// NewResultPage wraps results with the pagination bookkeeping collection
// consumers expect. Pages is never reported below one, even when total is
// zero.
func NewResultPage(results []map[string]any, total int64, limit, offset int) *ResultPage {
	if results == nil {
		results = []map[string]any{}
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}

	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}

	return &ResultPage{
		Results: results,
		Count:   len(results),
		Limit:   limit,
		Total:   total,
		Offset:  offset,
		Page:    offset/limit + 1,
		Pages:   pages,
	}
}

// paginationBounds resolves _limit, _start/_offset and _page into the skip
// a query runs with plus the offset and page the envelope reports. An
// explicit start wins over page arithmetic and is used as the skip
// verbatim; the reported offset follows the start-1 convention, so the two
// differ by one when a start is given.
func paginationBounds(values queryparse.Values, defaultLimit int) (limit, skip, offset, page int) {
	if defaultLimit < 1 {
		defaultLimit = DefaultPageLimit
	}

	limit = defaultLimit
	if n, ok := intParam(values, "_limit"); ok && n > 0 {
		limit = n
	}

	page = 1
	if n, ok := intParam(values, "_page"); ok && n > 0 {
		page = n
	}

	start := 0
	if n, ok := intParam(values, "_start"); ok {
		start = n
	} else if n, ok := intParam(values, "_offset"); ok {
		start = n
	}

	if start > 1 {
		skip = start
		offset = start - 1
	} else {
		skip = (page - 1) * limit
		offset = skip
	}
	page = offset/limit + 1

	return limit, skip, offset, page
}

func intParam(values queryparse.Values, key string) (int, bool) {
	raw, ok := values[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
