// Package natskv implements the canonical store on NATS JetStream
// key/value buckets. Records, schemas and endpoints each live in their own
// bucket as JSON-encoded values keyed by identifier.
package natskv

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/types"
)

// Bucket names used by the store.
const (
	recordsBucket   = "gateway_records"
	schemasBucket   = "gateway_schemas"
	endpointsBucket = "gateway_endpoints"
)

// Store persists gateway entities in JetStream KV buckets.
type Store struct {
	records   jetstream.KeyValue
	schemas   jetstream.KeyValue
	endpoints jetstream.KeyValue
}

// New creates the store, creating or binding the three KV buckets.
func New(ctx context.Context, nc *nats.Conn) (*Store, error) {
	if nc == nil {
		return nil, errors.WrapUpstream(nil, "natskv", "New", "nats connection cannot be nil")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.WrapUpstream(err, "natskv", "New", "create jetstream context")
	}

	s := &Store{}
	buckets := []struct {
		name string
		desc string
		dst  *jetstream.KeyValue
	}{
		{recordsBucket, "Canonical object records", &s.records},
		{schemasBucket, "Schema definitions", &s.schemas},
		{endpointsBucket, "Endpoint definitions", &s.endpoints},
	}
	for _, b := range buckets {
		kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      b.name,
			Description: b.desc,
			History:     5, // keep a few versions for recovery
		})
		if err != nil {
			return nil, errors.WrapUpstream(err, "natskv", "New",
				fmt.Sprintf("create KV bucket %s", b.name))
		}
		*b.dst = kv
	}

	return s, nil
}

// CreateRecord stores a new record, failing if the key already exists.
func (s *Store) CreateRecord(ctx context.Context, rec *types.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "CreateRecord", "record id required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "natskv", "CreateRecord", "marshal record")
	}
	if _, err := s.records.Create(ctx, rec.ID, data); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyExists) {
			return errors.WrapResolution(errors.ErrIdentifierPresent, "natskv", "CreateRecord", "record already exists")
		}
		return errors.WrapUpstream(err, "natskv", "CreateRecord", "create in KV")
	}
	return nil
}

// GetRecord returns the record with the given id.
func (s *Store) GetRecord(ctx context.Context, id string) (*types.Record, error) {
	if id == "" {
		return nil, errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "GetRecord", "record id required")
	}

	entry, err := s.records.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.ErrRecordNotFound
		}
		return nil, errors.WrapUpstream(err, "natskv", "GetRecord", "get from KV")
	}

	var rec types.Record
	if err := json.Unmarshal(entry.Value(), &rec); err != nil {
		return nil, errors.Wrap(err, "natskv", "GetRecord", "unmarshal record")
	}
	return &rec, nil
}

// UpdateRecord replaces the stored record.
func (s *Store) UpdateRecord(ctx context.Context, rec *types.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "UpdateRecord", "record id required")
	}
	if _, err := s.GetRecord(ctx, rec.ID); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "natskv", "UpdateRecord", "marshal record")
	}
	if _, err := s.records.Put(ctx, rec.ID, data); err != nil {
		return errors.WrapUpstream(err, "natskv", "UpdateRecord", "put to KV")
	}
	return nil
}

// DeleteRecord removes the record with the given id.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	if id == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "DeleteRecord", "record id required")
	}
	if _, err := s.GetRecord(ctx, id); err != nil {
		return err
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return errors.WrapUpstream(err, "natskv", "DeleteRecord", "delete from KV")
	}
	return nil
}

// ListRecords returns all stored records.
func (s *Store) ListRecords(ctx context.Context) ([]*types.Record, error) {
	keys, err := s.listKeys(ctx, s.records)
	if err != nil {
		return nil, errors.WrapUpstream(err, "natskv", "ListRecords", "list KV keys")
	}

	records := make([]*types.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := s.GetRecord(ctx, key)
		if err != nil {
			if stderrors.Is(err, errors.ErrRecordNotFound) {
				continue // deleted between Keys() and Get()
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveSchema stores or replaces a schema definition.
func (s *Store) SaveSchema(ctx context.Context, schema *types.Schema) error {
	if schema == nil || schema.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "SaveSchema", "schema id required")
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return errors.Wrap(err, "natskv", "SaveSchema", "marshal schema")
	}
	if _, err := s.schemas.Put(ctx, schema.ID, data); err != nil {
		return errors.WrapUpstream(err, "natskv", "SaveSchema", "put to KV")
	}
	return nil
}

// SchemaByID returns the schema with the given id.
func (s *Store) SchemaByID(ctx context.Context, id string) (*types.Schema, error) {
	entry, err := s.schemas.Get(ctx, id)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, errors.ErrSchemaNotFound
		}
		return nil, errors.WrapUpstream(err, "natskv", "SchemaByID", "get from KV")
	}

	var schema types.Schema
	if err := json.Unmarshal(entry.Value(), &schema); err != nil {
		return nil, errors.Wrap(err, "natskv", "SchemaByID", "unmarshal schema")
	}
	return &schema, nil
}

// SchemaByReference scans the schema bucket for the given reference URI.
// Schema sets are small; a scan is acceptable here.
func (s *Store) SchemaByReference(ctx context.Context, ref string) (*types.Schema, error) {
	schemas, err := s.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	for _, schema := range schemas {
		if schema.Reference == ref {
			return schema, nil
		}
	}
	return nil, errors.ErrSchemaNotFound
}

// ListSchemas returns all stored schemas.
func (s *Store) ListSchemas(ctx context.Context) ([]*types.Schema, error) {
	keys, err := s.listKeys(ctx, s.schemas)
	if err != nil {
		return nil, errors.WrapUpstream(err, "natskv", "ListSchemas", "list KV keys")
	}

	schemas := make([]*types.Schema, 0, len(keys))
	for _, key := range keys {
		schema, err := s.SchemaByID(ctx, key)
		if err != nil {
			if stderrors.Is(err, errors.ErrSchemaNotFound) {
				continue
			}
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	return schemas, nil
}

// SaveEndpoint stores or replaces an endpoint definition.
func (s *Store) SaveEndpoint(ctx context.Context, endpoint *types.Endpoint) error {
	if endpoint == nil || endpoint.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "natskv", "SaveEndpoint", "endpoint id required")
	}

	data, err := json.Marshal(endpoint)
	if err != nil {
		return errors.Wrap(err, "natskv", "SaveEndpoint", "marshal endpoint")
	}
	if _, err := s.endpoints.Put(ctx, endpoint.ID, data); err != nil {
		return errors.WrapUpstream(err, "natskv", "SaveEndpoint", "put to KV")
	}
	return nil
}

// ListEndpoints returns all stored endpoints.
func (s *Store) ListEndpoints(ctx context.Context) ([]*types.Endpoint, error) {
	keys, err := s.listKeys(ctx, s.endpoints)
	if err != nil {
		return nil, errors.WrapUpstream(err, "natskv", "ListEndpoints", "list KV keys")
	}

	endpoints := make([]*types.Endpoint, 0, len(keys))
	for _, key := range keys {
		entry, err := s.endpoints.Get(ctx, key)
		if err != nil {
			if stderrors.Is(err, jetstream.ErrKeyNotFound) {
				continue
			}
			return nil, errors.WrapUpstream(err, "natskv", "ListEndpoints", "get from KV")
		}
		var endpoint types.Endpoint
		if err := json.Unmarshal(entry.Value(), &endpoint); err != nil {
			return nil, errors.Wrap(err, "natskv", "ListEndpoints", "unmarshal endpoint")
		}
		endpoints = append(endpoints, &endpoint)
	}
	return endpoints, nil
}

// listKeys lists bucket keys, mapping "no keys" to an empty slice.
func (s *Store) listKeys(ctx context.Context, kv jetstream.KeyValue) ([]string, error) {
	keys, err := kv.Keys(ctx)
	if err != nil {
		if stderrors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, err
	}
	return keys, nil
}
