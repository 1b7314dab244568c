package dispatcher

import (
	"context"

	"github.com/google/uuid"

	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/types"
)

// resolveSchema determines the single applicable schema for an operation:
// the bound record's schema wins, then the body self-descriptor, then the
// endpoint's allowed set.
func (d *Dispatcher) resolveSchema(ctx context.Context, op *operation) (*types.Schema, error) {
	if op.record != nil {
		schema, err := d.store.SchemaByID(ctx, op.record.SchemaID)
		if err == nil {
			return schema, nil
		}
		if op.record.SchemaRef != "" {
			if schema, err := d.store.SchemaByReference(ctx, op.record.SchemaRef); err == nil {
				return schema, nil
			}
		}
		return nil, errors.WrapResolution(errors.ErrSchemaNotFound,
			"dispatcher", "resolveSchema", "look up record schema")
	}

	if op.descriptor.Resolved() {
		return d.schemaByValue(ctx, op.descriptor.Value)
	}

	endpoint := op.req.Endpoint
	if endpoint != nil && endpoint.Restricted() {
		if len(endpoint.Entities) == 1 {
			return d.schemaByValue(ctx, endpoint.Entities[0])
		}
		return d.mostRecentSchema(ctx, endpoint)
	}

	return nil, errors.WrapResolution(errors.ErrNoSchema,
		"dispatcher", "resolveSchema", "resolve schema from request")
}

// schemaByValue looks a schema up by id when the value is a UUID, by
// reference otherwise.
func (d *Dispatcher) schemaByValue(ctx context.Context, value string) (*types.Schema, error) {
	var (
		schema *types.Schema
		err    error
	)
	if uuid.Validate(value) == nil {
		schema, err = d.store.SchemaByID(ctx, value)
	} else {
		schema, err = d.store.SchemaByReference(ctx, value)
	}
	if err != nil {
		return nil, errors.WrapResolution(errors.ErrNoSchema,
			"dispatcher", "schemaByValue", "look up schema "+value)
	}
	return schema, nil
}

// mostRecentSchema picks the most recently created schema among the
// endpoint's allowed set. The tie-break is deterministic but fragile, so
// every use is logged loudly.
func (d *Dispatcher) mostRecentSchema(ctx context.Context, endpoint *types.Endpoint) (*types.Schema, error) {
	var newest *types.Schema
	for _, entity := range endpoint.Entities {
		schema, err := d.schemaByValue(ctx, entity)
		if err != nil {
			d.logger.Warn("skipping unresolvable endpoint entity",
				"endpoint", endpoint.Name, "entity", entity)
			continue
		}
		if newest == nil || schema.CreatedAt.After(newest.CreatedAt) {
			newest = schema
		}
	}
	if newest == nil {
		return nil, errors.WrapResolution(errors.ErrNoSchema,
			"dispatcher", "mostRecentSchema", "resolve any endpoint entity")
	}

	d.logger.Warn("ambiguous schema resolved by creation-date tie-break",
		"endpoint", endpoint.Name, "schema", newest.Name)
	return newest, nil
}

// schemaAllowed reports whether the schema is inside the endpoint's
// allowed set. Unrestricted endpoints allow everything.
func schemaAllowed(endpoint *types.Endpoint, schema *types.Schema) bool {
	if endpoint == nil || !endpoint.Restricted() {
		return true
	}
	for _, entity := range endpoint.Entities {
		if entity == schema.ID || (schema.Reference != "" && entity == schema.Reference) {
			return true
		}
	}
	return false
}
