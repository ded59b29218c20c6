package devstore_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/example/storefront/internal/devstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHandler_CreateAssignsID(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	h := store.Handler()

	rec := doJSON(t, h, http.MethodPost, "/addresses", map[string]any{
		"ownerId": "u1",
		"city":    "Manila",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	decode(t, rec, &created)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "Manila", created["city"])
}

func TestHandler_ListFiltersByQuery(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("orders",
		devstore.Record{"ownerId": "u1", "total": 10.0},
		devstore.Record{"ownerId": "u2", "total": 20.0},
		devstore.Record{"ownerId": "u1", "total": 30.0},
	)
	h := store.Handler()

	rec := doJSON(t, h, http.MethodGet, "/orders?ownerId=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	decode(t, rec, &got)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "u1", r["ownerId"])
	}
}

func TestHandler_ListEmptyCollectionIsEmptyArray(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	h := store.Handler()

	rec := doJSON(t, h, http.MethodGet, "/payment-methods", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandler_PatchMergesFields(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("orders", devstore.Record{"id": "o1", "status": "pending", "total": 64.24})
	h := store.Handler()

	rec := doJSON(t, h, http.MethodPatch, "/orders/o1", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, "cancelled", got["status"])
	assert.Equal(t, 64.24, got["total"])
}

func TestHandler_PatchCannotChangeID(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("cart", devstore.Record{"id": "c1", "ownerId": "u1"})
	h := store.Handler()

	rec := doJSON(t, h, http.MethodPatch, "/cart/c1", map[string]any{"id": "evil"})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, "c1", got["id"])
}

func TestHandler_ReplaceKeepsID(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("cart", devstore.Record{"id": "c1", "ownerId": "u1", "items": []any{}})
	h := store.Handler()

	rec := doJSON(t, h, http.MethodPut, "/cart/c1", map[string]any{
		"ownerId": "u1",
		"items":   []map[string]any{{"productId": "p1", "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, "c1", got["id"])
	items, ok := got["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestHandler_DeleteThenGetNotFound(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("addresses", devstore.Record{"id": "a1", "ownerId": "u1"})
	h := store.Handler()

	rec := doJSON(t, h, http.MethodDelete, "/addresses/a1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/addresses/a1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_UnknownRecordIs404(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	h := store.Handler()

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := doJSON(t, h, method, "/orders/missing", map[string]any{})
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
}

// Exercises concurrent reads and patches of the same record; the race
// detector flags the handler if a response ever marshals a stored map that
// a patch is mutating.
func TestHandler_ConcurrentReadsAndPatches(t *testing.T) {
	store, err := devstore.New("")
	require.NoError(t, err)
	store.Seed("orders", devstore.Record{
		"id":      "r1",
		"ownerId": "u1",
		"items":   []any{map[string]any{"productId": "pa", "quantity": 1.0}},
	})
	h := store.Handler()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				req := httptest.NewRequest(http.MethodGet, "/orders", nil)
				h.ServeHTTP(httptest.NewRecorder(), req)
			}
		}()
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				body, _ := json.Marshal(map[string]any{"total": float64(n*100 + j)})
				req := httptest.NewRequest(http.MethodPatch, "/orders/r1", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				h.ServeHTTP(httptest.NewRecorder(), req)
			}
		}(i)
	}
	wg.Wait()

	rec := doJSON(t, h, http.MethodGet, "/orders/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, "r1", got["id"])
	assert.Contains(t, got, "total")
}

func TestStore_SnapshotSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	store, err := devstore.New(path)
	require.NoError(t, err)
	store.Seed("products", devstore.Record{"id": "p1", "name": "Mouse", "price": 20.0})

	reopened, err := devstore.New(path)
	require.NoError(t, err)

	rec := doJSON(t, reopened.Handler(), http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	decode(t, rec, &got)
	assert.Equal(t, "Mouse", got["name"])
}
