package cachestore

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/metric"
	"github.com/c360/objectgateway/types"
)

// Cache is the read-optimized mirror of the canonical store. Implementations
// must tolerate being behind the canonical store: a miss is repaired from
// canonical state, never surfaced as an inconsistency.
type Cache interface {
	// Upsert mirrors the record into the cache, re-reading the canonical
	// copy first so the mirror never regresses past a concurrent write.
	Upsert(ctx context.Context, rec *types.Record) error
	// Remove drops the record's mirror document. Removing an absent
	// document is not an error.
	Remove(ctx context.Context, id string) error
	// Get returns the mirror document for the record, repairing the
	// mirror from canonical state on a miss.
	Get(ctx context.Context, id string) (map[string]any, error)
	// Search runs a translated query, optionally scoped to one schema.
	Search(ctx context.Context, schema *types.Schema, q *Query) (*ResultPage, error)
}

// Engine mirrors canonical records into a MongoDB collection and serves
// translated queries from it.
type Engine struct {
	collection *mongo.Collection
	endpoints  *mongo.Collection
	canonical  canonical.Store
	logger     *slog.Logger
	metrics    *engineMetrics
}

// EngineConfig carries the dependencies an Engine needs.
type EngineConfig struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Canonical  canonical.Store
	Logger     *slog.Logger
	Metrics    *metric.MetricsRegistry
}

// NewEngine creates the engine and ensures its indexes exist.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if cfg.Client == nil {
		return nil, errors.WrapUpstream(nil, "cachestore", "NewEngine", "mongo client cannot be nil")
	}
	if cfg.Canonical == nil {
		return nil, errors.WrapUpstream(nil, "cachestore", "NewEngine", "canonical store cannot be nil")
	}
	if cfg.Database == "" {
		cfg.Database = "objectgateway"
	}
	if cfg.Collection == "" {
		cfg.Collection = "records"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	metrics, err := newEngineMetrics(cfg.Metrics, cfg.Collection)
	if err != nil {
		return nil, errors.Wrap(err, "cachestore", "NewEngine", "register metrics")
	}

	db := cfg.Client.Database(cfg.Database)
	e := &Engine{
		collection: db.Collection(cfg.Collection),
		endpoints:  db.Collection(cfg.Collection + "_endpoints"),
		canonical:  cfg.Canonical,
		logger:     cfg.Logger.With("component", "cachestore"),
		metrics:    metrics,
	}
	if err := e.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// ensureIndexes creates the wildcard text index full-text search depends on.
func (e *Engine) ensureIndexes(ctx context.Context) error {
	_, err := e.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "$**", Value: "text"}},
	})
	if err != nil {
		return errors.WrapUpstream(err, "cachestore", "ensureIndexes", "create text index")
	}
	return nil
}

// Upsert mirrors the record. The canonical copy is re-read first; when the
// record no longer exists canonically the caller's copy is mirrored as-is,
// which covers non-persisted schemas.
func (e *Engine) Upsert(ctx context.Context, rec *types.Record) error {
	start := time.Now()

	fresh, err := e.canonical.GetRecord(ctx, rec.ID)
	if err != nil {
		if !errors.IsNotFound(err) {
			e.metrics.recordUpsert("error", time.Since(start))
			return errors.WrapUpstream(err, "cachestore", "Upsert", "re-read canonical record")
		}
		fresh = rec
	}

	doc := Document(fresh)
	_, err = e.collection.ReplaceOne(ctx,
		bson.M{"_id": fresh.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		e.metrics.recordUpsert("error", time.Since(start))
		return errors.WrapUpstream(err, "cachestore", "Upsert", "replace mirror document")
	}

	e.metrics.recordUpsert("ok", time.Since(start))
	return nil
}

// Remove drops the mirror document.
func (e *Engine) Remove(ctx context.Context, id string) error {
	if _, err := e.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		e.metrics.recordRemove("error")
		return errors.WrapUpstream(err, "cachestore", "Remove", "delete mirror document")
	}
	e.metrics.recordRemove("ok")
	return nil
}

// Get returns the mirror document, repairing the mirror from the canonical
// store on a miss.
func (e *Engine) Get(ctx context.Context, id string) (map[string]any, error) {
	var doc map[string]any
	err := e.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		e.metrics.recordHit()
		return doc, nil
	}
	if !stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.WrapUpstream(err, "cachestore", "Get", "find mirror document")
	}

	e.metrics.recordMiss()
	rec, err := e.canonical.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	doc = Document(rec)
	if uerr := e.Upsert(ctx, rec); uerr != nil {
		// The read still succeeds; the repair is retried on the next miss.
		e.logger.Warn("mirror repair failed", "id", id, "error", uerr)
	}
	return doc, nil
}

// Search runs a translated query. When a schema is given and the predicate
// carries no entities restriction, results are scoped to that schema.
func (e *Engine) Search(ctx context.Context, schema *types.Schema, q *Query) (*ResultPage, error) {
	start := time.Now()
	filter := scopedPredicate(schema, q.Predicate)

	total, err := e.collection.CountDocuments(ctx, filter)
	if err != nil {
		e.metrics.recordSearch("error", time.Since(start))
		return nil, errors.WrapUpstream(err, "cachestore", "Search", "count documents")
	}

	opts := options.Find().
		SetLimit(int64(q.Limit)).
		SetSkip(int64(q.Start))
	if len(q.Sort) > 0 {
		opts.SetSort(q.Sort)
	}

	cursor, err := e.collection.Find(ctx, filter, opts)
	if err != nil {
		e.metrics.recordSearch("error", time.Since(start))
		return nil, errors.WrapUpstream(err, "cachestore", "Search", "find documents")
	}

	var results []map[string]any
	if err := cursor.All(ctx, &results); err != nil {
		e.metrics.recordSearch("error", time.Since(start))
		return nil, errors.WrapUpstream(err, "cachestore", "Search", "decode documents")
	}

	e.metrics.recordSearch("ok", time.Since(start))
	return NewResultPage(results, total, q.Limit, q.Offset), nil
}

// Reconcile rebuilds the mirror from the canonical store: every canonical
// record is re-mirrored, endpoint definitions are refreshed and orphaned
// documents are dropped.
func (e *Engine) Reconcile(ctx context.Context) error {
	if err := e.mirrorEndpoints(ctx); err != nil {
		return err
	}

	records, err := e.canonical.ListRecords(ctx)
	if err != nil {
		return errors.WrapUpstream(err, "cachestore", "Reconcile", "list canonical records")
	}

	known := make(map[string]bool, len(records))
	for _, rec := range records {
		known[rec.ID] = true
		if err := e.Upsert(ctx, rec); err != nil {
			return err
		}
	}

	cursor, err := e.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return errors.WrapUpstream(err, "cachestore", "Reconcile", "list mirror documents")
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return errors.WrapUpstream(err, "cachestore", "Reconcile", "decode mirror ids")
	}

	for _, doc := range docs {
		if known[doc.ID] {
			continue
		}
		e.logger.Info("dropping orphaned mirror document", "id", doc.ID)
		if err := e.Remove(ctx, doc.ID); err != nil {
			return err
		}
	}

	e.metrics.setDocumentCount(int64(len(records)))
	return nil
}

// mirrorEndpoints refreshes the endpoint-definition mirror so external
// consumers can resolve routes without reaching the canonical store.
func (e *Engine) mirrorEndpoints(ctx context.Context) error {
	endpoints, err := e.canonical.ListEndpoints(ctx)
	if err != nil {
		return errors.WrapUpstream(err, "cachestore", "mirrorEndpoints", "list canonical endpoints")
	}
	for _, endpoint := range endpoints {
		doc := bson.M{
			"_id":      endpoint.ID,
			"name":     endpoint.Name,
			"path":     endpoint.Path,
			"entities": endpoint.Entities,
			"proxy":    endpoint.Proxy,
		}
		_, err := e.endpoints.ReplaceOne(ctx,
			bson.M{"_id": endpoint.ID}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return errors.WrapUpstream(err, "cachestore", "mirrorEndpoints", "replace endpoint document")
		}
	}
	return nil
}

// scopedPredicate adds the schema restriction to a predicate unless the
// caller already filtered by entities.
func scopedPredicate(schema *types.Schema, pred bson.M) bson.M {
	filter := bson.M{}
	for key, value := range pred {
		filter[key] = value
	}
	if schema == nil {
		return filter
	}
	if _, byID := filter["_self.schema.id"]; byID {
		return filter
	}
	if _, byRef := filter["_self.schema.ref"]; byRef {
		return filter
	}
	filter["_self.schema.id"] = schema.ID
	return filter
}
