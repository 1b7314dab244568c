package canonical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/objectgateway/errors"
	"github.com/c360/objectgateway/types"
)

func TestMemoryRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	rec := &types.Record{ID: "r1", SchemaID: "s1", Attributes: map[string]any{"name": "rex"}}
	require.NoError(t, store.CreateRecord(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero(), "create should stamp dateCreated")

	got, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "rex", got.Attributes["name"])

	// Mutating the returned copy must not touch stored state.
	got.Attributes["name"] = "changed"
	again, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "rex", again.Attributes["name"])

	got.Attributes["name"] = "fido"
	require.NoError(t, store.UpdateRecord(ctx, got))
	updated, err := store.GetRecord(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "fido", updated.Attributes["name"])

	require.NoError(t, store.DeleteRecord(ctx, "r1"))
	_, err = store.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestMemoryCreateDuplicateFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateRecord(ctx, &types.Record{ID: "r1"}))

	err := store.CreateRecord(ctx, &types.Record{ID: "r1"})
	assert.ErrorIs(t, err, errors.ErrIdentifierPresent)
}

func TestMemoryUpdateMissingFails(t *testing.T) {
	err := NewMemory().UpdateRecord(context.Background(), &types.Record{ID: "nope"})
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestMemoryDeleteMissingFails(t *testing.T) {
	err := NewMemory().DeleteRecord(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestMemorySchemaLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	pet := &types.Schema{ID: "s1", Reference: "https://example.org/pet.schema.json", Name: "pet"}
	require.NoError(t, store.SaveSchema(ctx, pet))

	byID, err := store.SchemaByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "pet", byID.Name)

	byRef, err := store.SchemaByReference(ctx, "https://example.org/pet.schema.json")
	require.NoError(t, err)
	assert.Equal(t, "s1", byRef.ID)

	_, err = store.SchemaByID(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrSchemaNotFound)
	_, err = store.SchemaByReference(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrSchemaNotFound)

	all, err := store.ListSchemas(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryEndpoints(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.SaveEndpoint(ctx, &types.Endpoint{ID: "e1", Name: "pets", Path: []string{"pets", "{id}"}}))
	eps, err := store.ListEndpoints(ctx)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "pets", eps[0].Name)
}

func TestMemoryValidatesIdentifiers(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	assert.Error(t, store.CreateRecord(ctx, &types.Record{}))
	assert.Error(t, store.UpdateRecord(ctx, nil))
	assert.Error(t, store.SaveSchema(ctx, &types.Schema{}))
	assert.Error(t, store.SaveEndpoint(ctx, &types.Endpoint{}))
}
