package dispatcher

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/objectgateway/cachestore"
	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/events"
	"github.com/c360/objectgateway/metric"
	"github.com/c360/objectgateway/queryparse"
	"github.com/c360/objectgateway/types"
)

// Config carries the dispatcher's collaborators. Only Store is required:
// an absent cache degrades to canonical passthrough, an absent emitter to
// no events and absent scopes to allow-all.
type Config struct {
	Store      canonical.Store
	Cache      cachestore.Cache
	Emitter    events.Emitter
	Scopes     types.ScopeSource
	Shaping    ShapingSource
	Translator *cachestore.Translator
	Logger     *slog.Logger
	Metrics    *metric.MetricsRegistry
}

// Dispatcher orchestrates one full request: schema resolution, scope
// checks, the canonical CRUD operation, cache synchronization, lifecycle
// events and response shaping.
type Dispatcher struct {
	store      canonical.Store
	cache      cachestore.Cache
	emitter    events.Emitter
	scopes     types.ScopeSource
	shaping    ShapingSource
	translator *cachestore.Translator
	logger     *slog.Logger
	metrics    *dispatcherMetrics
}

// New creates a dispatcher, filling in degraded defaults for optional
// collaborators.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil {
		return nil, errors.WrapUpstream(nil, "dispatcher", "New", "canonical store cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cache == nil {
		cfg.Cache = cachestore.NewFallback(cfg.Store, cfg.Logger)
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.Nop{}
	}
	if cfg.Scopes == nil {
		cfg.Scopes = types.AllowAll{}
	}
	if cfg.Shaping == nil {
		cfg.Shaping = NoShaping{}
	}
	if cfg.Translator == nil {
		cfg.Translator = &cachestore.Translator{Logger: cfg.Logger}
	}

	metrics, err := newDispatcherMetrics(cfg.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "dispatcher", "New", "register metrics")
	}

	return &Dispatcher{
		store:      cfg.Store,
		cache:      cfg.Cache,
		emitter:    cfg.Emitter,
		scopes:     cfg.Scopes,
		shaping:    cfg.Shaping,
		translator: cfg.Translator,
		logger:     cfg.Logger.With("component", "dispatcher"),
		metrics:    metrics,
	}, nil
}

// Handle dispatches one request and always produces a response; failures
// are mapped to status codes, never returned as Go errors.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) *Response {
	start := time.Now()
	resp := d.dispatch(ctx, req)
	d.metrics.recordRequest(req.Method, resp.Status, time.Since(start))
	return resp
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) *Response {
	if req.Endpoint != nil && req.Endpoint.Proxy != "" {
		return &Response{
			Status: http.StatusNotImplemented,
			Body: map[string]any{
				"message": "endpoint requires proxying, which this gateway does not perform",
				"proxy":   req.Endpoint.Proxy,
			},
		}
	}

	values, err := queryparse.Parse(req.RawQuery)
	if err != nil {
		return d.errorResponse(errors.WrapTranslation(err, "dispatcher", "dispatch", "parse query string"))
	}
	queryparse.NormalizeReserved(values)

	captured := map[string]string{}
	if req.Endpoint != nil {
		if c, ok := req.Endpoint.Match(req.Path); ok {
			captured = c
		}
	}

	op := &operation{
		req:        req,
		values:     values,
		descriptor: types.DecodeDescriptor(req.Body),
	}
	op.attributes, op.lockToken, op.markUnread = bodyAttributes(req.Body)
	op.id = extractIdentifier(captured, values, req.Body)
	searchFromPath(captured, values)

	method := strings.ToUpper(req.Method)

	if method == http.MethodPost && op.id != "" {
		return d.errorResponse(errors.WrapResolution(errors.ErrIdentifierPresent,
			"dispatcher", "dispatch", "create with explicit identifier"))
	}

	if op.id != "" && method != http.MethodPost {
		rec, err := d.store.GetRecord(ctx, op.id)
		if err != nil {
			if errors.IsNotFound(err) {
				return d.errorResponse(errors.ErrRecordNotFound)
			}
			return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "dispatch", "load record"))
		}
		op.record = rec
	}

	// A collection GET on an endpoint allowing several schemas searches
	// across all of them instead of resolving a single schema.
	collectionAcrossSchemas := method == http.MethodGet && op.id == "" &&
		req.Endpoint != nil && len(req.Endpoint.Entities) > 1

	if !collectionAcrossSchemas {
		schema, err := d.resolveSchema(ctx, op)
		if err != nil {
			if !(method == http.MethodGet && op.id == "") {
				return d.errorResponse(err)
			}
		} else {
			op.schema = schema
		}
	}

	if op.schema != nil && !schemaAllowed(req.Endpoint, op.schema) {
		return d.errorResponse(errors.WrapPermission(errors.ErrSchemaNotAllowed,
			"dispatcher", "dispatch", "check endpoint allowed set"))
	}

	switch method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		if op.id == "" {
			return d.errorResponse(errors.WrapResolution(errors.ErrNoIdentifier,
				"dispatcher", "dispatch", "extract identifier for "+method))
		}
	}

	if op.schema != nil {
		scopes, err := d.scopes.ScopesFor(ctx, req.User)
		if err != nil {
			return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "dispatch", "load scopes"))
		}
		// A nil set is unrestricted; a non-nil set denies by default.
		if scopes != nil && !scopes.Allows(op.schema.Name, method) {
			return d.errorResponse(errors.WrapPermission(errors.ErrScopeDenied,
				"dispatcher", "dispatch", "authorize "+method+" on "+op.schema.Name))
		}
	}

	switch method {
	case http.MethodGet:
		if op.id != "" {
			return d.getItem(ctx, op)
		}
		return d.getCollection(ctx, op)
	case http.MethodPost:
		return d.create(ctx, op)
	case http.MethodPut, http.MethodPatch:
		return d.mutate(ctx, op, method == http.MethodPut)
	case http.MethodDelete:
		return d.remove(ctx, op)
	default:
		return d.errorResponse(errors.WrapResolution(errors.ErrUnknownMethod,
			"dispatcher", "dispatch", "dispatch method "+method))
	}
}

// getItem serves a single record from the cache, degrading to the loaded
// canonical record when the cache fails.
func (d *Dispatcher) getItem(ctx context.Context, op *operation) *Response {
	doc, err := d.cache.Get(ctx, op.id)
	if err != nil {
		if errors.IsNotFound(err) {
			return d.errorResponse(errors.ErrRecordNotFound)
		}
		d.logger.Warn("cache read failed, serving canonical record", "id", op.id, "error", err)
		doc = cachestore.Document(op.record)
	}

	d.markRead(ctx, op)
	return &Response{Status: http.StatusOK, Body: d.shape(ctx, op, doc)}
}

// markRead flips the record's read marker as a side effect of an item GET.
// Failures are logged; they never fail the read.
func (d *Dispatcher) markRead(ctx context.Context, op *operation) {
	rec := op.record
	switch {
	case op.markUnread:
		rec.MarkUnread()
	case rec.DateRead.IsZero():
		rec.MarkRead(time.Now().UTC())
	default:
		return
	}
	if err := d.store.UpdateRecord(ctx, rec); err != nil {
		d.logger.Warn("updating read marker failed", "id", rec.ID, "error", err)
		return
	}
	d.syncCache(ctx, rec)
}

// getCollection translates the query and serves it from the cache.
func (d *Dispatcher) getCollection(ctx context.Context, op *operation) *Response {
	endpoint := op.req.Endpoint
	if op.schema == nil && endpoint != nil && endpoint.Restricted() {
		if _, exists := op.values["_entities"]; !exists {
			entities := make([]any, len(endpoint.Entities))
			for i, entity := range endpoint.Entities {
				entities[i] = entity
			}
			op.values["_entities"] = entities
		}
	}

	q, qerr := d.translator.Translate(op.schema, op.values)
	if qerr != nil {
		d.metrics.recordTranslationRejection()
		return &Response{Status: http.StatusBadRequest, Body: qerr.Body()}
	}

	page, err := d.cache.Search(ctx, op.schema, q)
	if err != nil {
		return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "getCollection", "search cache"))
	}

	for i, doc := range page.Results {
		page.Results[i] = d.shape(ctx, op, doc)
	}
	return &Response{Status: http.StatusOK, Body: page}
}

// create makes a new record. Records of non-persisting schemas are
// mirrored to the cache but never durably stored.
func (d *Dispatcher) create(ctx context.Context, op *operation) *Response {
	if op.schema == nil {
		return d.errorResponse(errors.WrapResolution(errors.ErrNoSchema,
			"dispatcher", "create", "resolve schema for create"))
	}

	now := time.Now().UTC()
	rec := &types.Record{
		ID:         uuid.NewString(),
		SchemaID:   op.schema.ID,
		SchemaRef:  op.schema.Reference,
		Owner:      op.req.User,
		Attributes: op.attributes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}

	if op.schema.Persist {
		if err := d.store.CreateRecord(ctx, rec); err != nil {
			return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "create", "persist record"))
		}
	}
	d.syncCache(ctx, rec)

	body := d.emitAndShape(ctx, op, "create", rec)
	return &Response{Status: http.StatusOK, Body: body}
}

// mutate applies PUT (replace) or PATCH (merge) semantics under the
// record's optimistic lock.
func (d *Dispatcher) mutate(ctx context.Context, op *operation, replace bool) *Response {
	rec := op.record.Clone()
	if !rec.LockMatches(op.lockToken) {
		return d.errorResponse(errors.WrapConflict(errors.ErrLockMismatch,
			"dispatcher", "mutate", "verify lock token"))
	}

	if replace {
		rec.Replace(op.attributes)
	} else {
		rec.Merge(op.attributes)
	}
	if op.markUnread {
		rec.MarkUnread()
	}

	if err := d.store.UpdateRecord(ctx, rec); err != nil {
		if errors.IsNotFound(err) {
			return d.errorResponse(errors.ErrRecordNotFound)
		}
		return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "mutate", "persist record"))
	}
	d.syncCache(ctx, rec)

	body := d.emitAndShape(ctx, op, "update", rec)
	return &Response{Status: http.StatusOK, Body: body}
}

// remove deletes the record canonically and from the cache, answering
// with a bare acknowledgement.
func (d *Dispatcher) remove(ctx context.Context, op *operation) *Response {
	if err := d.store.DeleteRecord(ctx, op.id); err != nil {
		if errors.IsNotFound(err) {
			return d.errorResponse(errors.ErrRecordNotFound)
		}
		return d.errorResponse(errors.WrapUpstream(err, "dispatcher", "remove", "delete record"))
	}
	if err := d.cache.Remove(ctx, op.id); err != nil {
		d.logger.Warn("cache removal failed", "id", op.id, "error", err)
		d.metrics.recordCacheFailure("remove")
	}

	d.emit(ctx, op, "delete", map[string]any{"id": op.id})
	return &Response{Status: http.StatusAccepted, Body: nil}
}

// syncCache mirrors a record, absorbing cache failures.
func (d *Dispatcher) syncCache(ctx context.Context, rec *types.Record) {
	if err := d.cache.Upsert(ctx, rec); err != nil {
		d.logger.Warn("cache mirror failed", "id", rec.ID, "error", err)
		d.metrics.recordCacheFailure("upsert")
	}
}

// emitAndShape emits the lifecycle event for a mutated record, preferring
// an event-supplied response override, then shapes the outcome.
func (d *Dispatcher) emitAndShape(ctx context.Context, op *operation, action string, rec *types.Record) any {
	doc := cachestore.Document(rec)
	if override, ok := d.emit(ctx, op, action, doc); ok {
		doc = override
	}
	return d.shape(ctx, op, doc)
}

// emit publishes a lifecycle event. It returns the override response and
// true when a handler replaced it.
func (d *Dispatcher) emit(ctx context.Context, op *operation, action string, response map[string]any) (map[string]any, bool) {
	entity := ""
	if op.schema != nil {
		entity = op.schema.ID
	}
	payload := map[string]any{
		"response": response,
		"entity":   entity,
		"parameters": map[string]any{
			"user":   op.req.User,
			"method": op.req.Method,
		},
	}

	out, err := d.emitter.Emit(ctx, action, payload)
	if err != nil {
		d.logger.Warn("event emission failed", "action", action, "error", err)
		return nil, false
	}
	override, ok := out["response"].(map[string]any)
	if !ok {
		return nil, false
	}
	return override, true
}

// errorResponse maps a classified error onto a status and message body.
func (d *Dispatcher) errorResponse(err error) *Response {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		d.logger.Error("request failed", "error", err)
	}
	return &Response{
		Status: status,
		Body: map[string]any{
			"message": err.Error(),
			"status":  status,
		},
	}
}
