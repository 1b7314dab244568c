package canonical

import (
	"context"

	"github.com/c360/objectgateway/types"
)

// Store is the canonical, source-of-truth persistence layer. The cache
// mirror is always rebuildable from a Store; the Store is never rebuilt
// from the cache.
//
// Implementations must return errors.ErrRecordNotFound for missing records
// and errors.ErrSchemaNotFound for missing schemas so callers can
// distinguish absence from unavailability.
type Store interface {
	CreateRecord(ctx context.Context, rec *types.Record) error
	GetRecord(ctx context.Context, id string) (*types.Record, error)
	UpdateRecord(ctx context.Context, rec *types.Record) error
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context) ([]*types.Record, error)

	SaveSchema(ctx context.Context, schema *types.Schema) error
	SchemaByID(ctx context.Context, id string) (*types.Schema, error)
	SchemaByReference(ctx context.Context, ref string) (*types.Schema, error)
	ListSchemas(ctx context.Context) ([]*types.Schema, error)

	SaveEndpoint(ctx context.Context, endpoint *types.Endpoint) error
	ListEndpoints(ctx context.Context) ([]*types.Endpoint, error)
}
