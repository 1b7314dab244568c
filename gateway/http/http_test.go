package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/dispatcher"
	"github.com/c360/objectgateway/types"
)

const (
	petSchemaID = "0b8f0854-7050-4dd4-8a54-7b2fbd462eb0"
	rexID       = "11111111-1111-1111-1111-111111111111"
)

func newGateway(t *testing.T) (*Gateway, canonical.Store) {
	t.Helper()
	ctx := context.Background()
	store := canonical.NewMemory()

	require.NoError(t, store.SaveSchema(ctx, &types.Schema{
		ID:      petSchemaID,
		Name:    "pet",
		Persist: true,
	}))
	require.NoError(t, store.SaveEndpoint(ctx, &types.Endpoint{
		ID:       "ep-pets",
		Name:     "pets",
		Path:     []string{"pets", "{id}"},
		Entities: []string{petSchemaID},
	}))
	require.NoError(t, store.CreateRecord(ctx, &types.Record{
		ID:         rexID,
		SchemaID:   petSchemaID,
		Attributes: map[string]any{"name": "Rex"},
	}))

	d, err := dispatcher.New(dispatcher.Config{Store: store})
	require.NoError(t, err)

	g, err := NewGateway(Config{Addr: ":0", CORSOrigins: []string{"*"}}, d, store, nil)
	require.NoError(t, err)
	return g, store
}

func do(g *Gateway, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	return rec
}

func TestServeItem(t *testing.T) {
	g, _ := newGateway(t)

	rec := do(g, http.MethodGet, "/pets/"+rexID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rex", body["name"])
}

func TestServeCollection(t *testing.T) {
	g, _ := newGateway(t)

	rec := do(g, http.MethodGet, "/pets?_limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, float64(1), page["count"])
	assert.Equal(t, float64(5), page["limit"])
}

func TestCreateThroughAdapter(t *testing.T) {
	g, store := newGateway(t)

	rec := do(g, http.MethodPost, "/pets", `{"name":"Milo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id, ok := body["id"].(string)
	require.True(t, ok)

	stored, err := store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Milo", stored.Attributes["name"])
}

func TestAdapterErrors(t *testing.T) {
	g, _ := newGateway(t)

	t.Run("unmatched path is 404", func(t *testing.T) {
		rec := do(g, http.MethodGet, "/owners", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		rec := do(g, http.MethodPost, "/pets", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete acknowledges without a body", func(t *testing.T) {
		rec := do(g, http.MethodDelete, "/pets/"+rexID, "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestCORSPreflight(t *testing.T) {
	g, _ := newGateway(t)

	req := httptest.NewRequest(http.MethodOptions, "/pets", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestStatsCounters(t *testing.T) {
	g, _ := newGateway(t)

	do(g, http.MethodGet, "/pets/"+rexID, "")
	do(g, http.MethodGet, "/owners", "")

	stats := g.Stats()
	assert.Equal(t, uint64(2), stats["requestsTotal"])
	assert.Equal(t, uint64(1), stats["requestsSuccess"])
	assert.Equal(t, uint64(1), stats["requestsFailed"])
}
