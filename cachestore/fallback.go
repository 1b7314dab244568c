package cachestore

import (
	"context"
	"log/slog"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/types"
)

// Fallback serves cache reads straight from the canonical store. It keeps
// the gateway fully functional when no mirror backend is deployed, at the
// cost of scanning canonical records per search.
type Fallback struct {
	canonical canonical.Store
	logger    *slog.Logger
}

// NewFallback creates a canonical-backed cache.
func NewFallback(store canonical.Store, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{canonical: store, logger: logger.With("component", "cachestore.fallback")}
}

// Upsert is a no-op: the canonical store is the only copy.
func (f *Fallback) Upsert(_ context.Context, _ *types.Record) error { return nil }

// Remove is a no-op: the canonical store is the only copy.
func (f *Fallback) Remove(_ context.Context, _ string) error { return nil }

// Get reads the record canonically and renders its document form.
func (f *Fallback) Get(ctx context.Context, id string) (map[string]any, error) {
	rec, err := f.canonical.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return Document(rec), nil
}

// Search evaluates the translated predicate over all canonical records of
// the schema in memory, then sorts and paginates the matches.
func (f *Fallback) Search(ctx context.Context, schema *types.Schema, q *Query) (*ResultPage, error) {
	records, err := f.canonical.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	filter := scopedPredicate(schema, q.Predicate)
	var matches []map[string]any
	for _, rec := range records {
		doc := Document(rec)
		if evalPredicate(doc, filter) {
			matches = append(matches, doc)
		}
	}

	if len(q.Sort) > 0 {
		sortDocuments(matches, q.Sort)
	}

	total := int64(len(matches))
	start := q.Start
	if start > len(matches) {
		start = len(matches)
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > len(matches) {
		end = len(matches)
	}

	return NewResultPage(matches[start:end], total, q.Limit, q.Offset), nil
}

// sortDocuments orders matches in place by the first sort key. Missing
// values sort before present ones in ascending order.
func sortDocuments(docs []map[string]any, spec bson.D) {
	key := spec[0].Key
	direction, _ := spec[0].Value.(int)
	if direction == 0 {
		direction = 1
	}

	sort.SliceStable(docs, func(i, j int) bool {
		a, aOK := lookupPath(docs[i], key)
		b, bOK := lookupPath(docs[j], key)
		if aOK != bOK {
			return (!aOK) == (direction > 0)
		}
		cmp, comparable := compareValues(a, b)
		if !comparable {
			return false
		}
		if direction > 0 {
			return cmp < 0
		}
		return cmp > 0
	})
}
