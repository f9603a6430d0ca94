package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldbox-rpg/pkg/audit"
	"goldbox-rpg/pkg/model"
	"goldbox-rpg/pkg/store"
	"goldbox-rpg/pkg/syncengine"
)

func newTestServer() (*Server, store.Store) {
	st := store.NewMemoryStore()
	engine := syncengine.New(st, audit.NewMemorySink(), syncengine.DefaultConfig())
	srv := New(Config{
		Engine:            engine,
		Store:             st,
		APIKey:            "test-key",
		RequestsPerSecond: 100,
		Burst:             100,
	})
	return srv, st
}

func doRequest(h http.Handler, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthNeverRequiresAuth(t *testing.T) {
	srv, _ := newTestServer()
	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareRejectsMissingKey(t *testing.T) {
	srv, _ := newTestServer()
	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/status/76561198000000001", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	srv, _ := newTestServer()
	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/status/76561198000000001", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlePlayerSyncConnectsThenSyncs(t *testing.T) {
	srv, _ := newTestServer()

	// Seed a player via the engine's own Connect path instead of poking the
	// store directly, mirroring how a real game server would establish a
	// session before syncing.
	_, connErr := srv.engine.Connect(context.Background(), syncengine.Server{ServerID: "srv-a"}, "76561198000000002", nil, nil)
	require.NoError(t, connErr)

	doc := &model.Document{V: model.DocumentVersion, SteamID: "76561198000000002", SyncSeq: 1}
	rec := doRequest(srv.Handler(), http.MethodPost, "/api/sync/player", "test-key", PlayerSyncRequest{
		ServerID: "srv-a", Document: doc,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlayerSyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.SyncSeq)
}

func TestHandlePlayerSyncRejectsUnknownPlayer(t *testing.T) {
	srv, _ := newTestServer()
	doc := &model.Document{V: model.DocumentVersion, SteamID: "76561198000000003", SyncSeq: 1}
	rec := doRequest(srv.Handler(), http.MethodPost, "/api/sync/player", "test-key", PlayerSyncRequest{
		ServerID: "srv-a", Document: doc,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBatchRejectsOversizedBatch(t *testing.T) {
	srv, _ := newTestServer()
	docs := make([]*model.Document, maxBatchDocuments+1)
	for i := range docs {
		docs[i] = &model.Document{V: model.DocumentVersion, SteamID: "76561198000000004", SyncSeq: 1}
	}
	rec := doRequest(srv.Handler(), http.MethodPost, "/api/sync/batch", "test-key", BatchRequest{
		ServerID: "srv-a", Documents: docs,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStatusReturnsNotFoundForUnknownPlayer(t *testing.T) {
	srv, _ := newTestServer()
	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/status/76561198000000005", "test-key", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStatusRejectsMalformedSteamID(t *testing.T) {
	srv, _ := newTestServer()
	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/status/not-a-steam-id", "test-key", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePlayerExportIncludesTracking(t *testing.T) {
	srv, _ := newTestServer()
	_, connErr := srv.engine.Connect(context.Background(), syncengine.Server{ServerID: "srv-a"}, "76561198000000006", nil, nil)
	require.NoError(t, connErr)

	rec := doRequest(srv.Handler(), http.MethodGet, "/api/sync/player/76561198000000006", "test-key", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.NotNil(t, doc.Tracking)
}
