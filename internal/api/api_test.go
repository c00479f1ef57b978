package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tictactoe-server/internal/api"
	"github.com/mcoot/tictactoe-server/internal/api/apierr"
	"github.com/mcoot/tictactoe-server/internal/api/response"
	"github.com/mcoot/tictactoe-server/internal/factory"
	"github.com/mcoot/tictactoe-server/internal/storage"
	"github.com/mcoot/tictactoe-server/internal/testutil"
)

// downStorage is a backend whose health check always fails
type downStorage struct {
	storage.Storage
}

func (downStorage) Ping(context.Context) error {
	return errors.New("connection refused")
}

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithStorage(t, nil)
}

func newTestServerWithStorage(t *testing.T, store storage.Storage) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	if store == nil {
		store = app.Storage
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Sessions:    app.Sessions,
		Credentials: app.Credentials,
		Storage:     store,
		Metrics:     app.Metrics,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case string:
		reqBody = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reqBody = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHealthCheckStorageDown(t *testing.T) {
	ts := newTestServerWithStorage(t, downStorage{})

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, apierr.CodeUnavailable, decodeError(t, rr).Code)
}

func TestRegisterUser(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{
		"username": "alice",
		"secret":   "hunter2",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var user response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "alice", user.Username)
	assert.True(t, ts.app.MockClock.Now().Equal(user.CreatedAt))

	// the account works for login
	_, err := ts.app.Credentials.Verify(context.Background(), "alice", "hunter2")
	assert.NoError(t, err)
}

func TestRegisterDuplicate(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"username": "alice", "secret": "pw"}

	require.Equal(t, http.StatusCreated, ts.request(http.MethodPost, "/api/v1/users", body).Code)

	rr := ts.request(http.MethodPost, "/api/v1/users", body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameTaken, decodeError(t, rr).Code)
}

func TestRegisterInvalid(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{not json"},
		{"missing secret", map[string]string{"username": "alice"}},
		{"missing username", map[string]string{"secret": "pw"}},
		{"bad characters", map[string]string{"username": "al ice", "secret": "pw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.request(http.MethodPost, "/api/v1/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)
		})
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodPost, "/api/v1/users", map[string]string{"username": "alice", "secret": "pw"})
	ts.request(http.MethodPost, "/api/v1/users", map[string]string{"username": "bob", "secret": "pw"})

	rr := ts.request(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats response.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, response.Stats{RegisteredUsers: 2}, stats)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ttt_live_games")
}

func TestWebSocketRouteOptional(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodDelete, "/api/v1/users", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
