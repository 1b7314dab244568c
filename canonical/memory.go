package canonical

import (
	"context"
	"sync"
	"time"

	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/types"
)

// Memory is an in-memory canonical store, used by tests and single-node
// development mode. All methods are safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	records   map[string]*types.Record
	schemas   map[string]*types.Schema
	endpoints map[string]*types.Endpoint
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records:   map[string]*types.Record{},
		schemas:   map[string]*types.Schema{},
		endpoints: map[string]*types.Endpoint{},
	}
}

// CreateRecord stores a new record. The record id must be set and unused.
func (m *Memory) CreateRecord(_ context.Context, rec *types.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "canonical", "CreateRecord", "record id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.ID]; exists {
		return errors.WrapResolution(errors.ErrIdentifierPresent, "canonical", "CreateRecord", "record already exists")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	m.records[rec.ID] = rec.Clone()
	return nil
}

// GetRecord returns a copy of the record with the given id.
func (m *Memory) GetRecord(_ context.Context, id string) (*types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, errors.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// UpdateRecord replaces the stored record with the given one.
func (m *Memory) UpdateRecord(_ context.Context, rec *types.Record) error {
	if rec == nil || rec.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "canonical", "UpdateRecord", "record id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return errors.ErrRecordNotFound
	}
	m.records[rec.ID] = rec.Clone()
	return nil
}

// DeleteRecord removes the record with the given id.
func (m *Memory) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return errors.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

// ListRecords returns copies of all stored records.
func (m *Memory) ListRecords(_ context.Context) ([]*types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// SaveSchema stores or replaces a schema definition.
func (m *Memory) SaveSchema(_ context.Context, schema *types.Schema) error {
	if schema == nil || schema.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "canonical", "SaveSchema", "schema id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *schema
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.schemas[cp.ID] = &cp
	return nil
}

// SchemaByID returns the schema with the given id.
func (m *Memory) SchemaByID(_ context.Context, id string) (*types.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schema, ok := m.schemas[id]
	if !ok {
		return nil, errors.ErrSchemaNotFound
	}
	cp := *schema
	return &cp, nil
}

// SchemaByReference returns the schema with the given reference URI.
func (m *Memory) SchemaByReference(_ context.Context, ref string) (*types.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, schema := range m.schemas {
		if schema.Reference == ref {
			cp := *schema
			return &cp, nil
		}
	}
	return nil, errors.ErrSchemaNotFound
}

// ListSchemas returns copies of all stored schemas.
func (m *Memory) ListSchemas(_ context.Context) ([]*types.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Schema, 0, len(m.schemas))
	for _, schema := range m.schemas {
		cp := *schema
		out = append(out, &cp)
	}
	return out, nil
}

// SaveEndpoint stores or replaces an endpoint definition.
func (m *Memory) SaveEndpoint(_ context.Context, endpoint *types.Endpoint) error {
	if endpoint == nil || endpoint.ID == "" {
		return errors.WrapResolution(errors.ErrNoIdentifier, "canonical", "SaveEndpoint", "endpoint id required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *endpoint
	m.endpoints[cp.ID] = &cp
	return nil
}

// ListEndpoints returns copies of all stored endpoints.
func (m *Memory) ListEndpoints(_ context.Context) ([]*types.Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Endpoint, 0, len(m.endpoints))
	for _, endpoint := range m.endpoints {
		cp := *endpoint
		out = append(out, &cp)
	}
	return out, nil
}
