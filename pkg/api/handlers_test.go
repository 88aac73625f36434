package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/pattern"
	"github.com/ssargent/minewatch/pkg/table"
	"github.com/ssargent/minewatch/pkg/table/pebblestore"
)

const testAPIKey = "test-key"

type decodedResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupTestServer(t *testing.T) (http.Handler, *Server) {
	t.Helper()

	store, err := pebblestore.Open(pebblestore.Config{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := codec.NewReadingCodec(pattern.NewSeeded(42))
	server := NewServer(store, c, ServerConfig{APIKey: testAPIKey}, NewMetrics(), nil)
	return server.Router(), server
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, decodedResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp decodedResponse
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func createTable(t *testing.T, h http.Handler, name string) {
	t.Helper()
	w, _ := do(t, h, http.MethodPost, "/api/v1/tables", fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestHealth(t *testing.T) {
	h, _ := setupTestServer(t)

	w, resp := do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"status":"healthy"}`, string(resp.Data))
}

func TestHealthReportsStoreFailure(t *testing.T) {
	server := NewServer(failingStore{}, nil, ServerConfig{}, nil, nil)

	w, resp := do(t, server.Router(), http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestTables(t *testing.T) {
	h, _ := setupTestServer(t)

	w, resp := do(t, h, http.MethodGet, "/api/v1/tables", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tables":[]}`, string(resp.Data))

	w, resp = do(t, h, http.MethodPost, "/api/v1/tables", `{"name":"Readings"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"name":"Readings","partition_key":"PrimKey","sort_key":"GroundNum"}`, string(resp.Data))

	w, _ = do(t, h, http.MethodPost, "/api/v1/tables", `{"name":"Readings"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/v1/tables", `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/v1/tables", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = do(t, h, http.MethodGet, "/api/v1/tables", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tables":["Readings"]}`, string(resp.Data))

	w, _ = do(t, h, http.MethodDelete, "/api/v1/tables/Readings", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodDelete, "/api/v1/tables/Readings", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadingsLifecycle(t *testing.T) {
	h, _ := setupTestServer(t)
	createTable(t, h, "Readings")

	body := `{"GroundNum":"ABC_123_4567","HelmetNum":"0042","Spo2Level":98,"Temperature":36,"GasLevel":410,"HeartRate":77}`
	w, resp := do(t, h, http.MethodPost, "/api/v1/tables/Readings/readings", body)
	require.Equal(t, http.StatusCreated, w.Code, resp.Error)
	assert.JSONEq(t, body, string(resp.Data))

	w, resp = do(t, h, http.MethodGet, "/api/v1/tables/Readings/readings/ABC_123_45670042", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "["+body+"]", string(resp.Data))

	w, resp = do(t, h, http.MethodGet, "/api/v1/tables/Readings/readings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "["+body+"]", string(resp.Data))

	w, _ = do(t, h, http.MethodDelete, "/api/v1/tables/Readings/readings/ABC_123_45670042/ABC_123_4567", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/v1/tables/Readings/readings/ABC_123_45670042", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutSyntheticReading(t *testing.T) {
	h, _ := setupTestServer(t)
	createTable(t, h, "Readings")

	w, resp := do(t, h, http.MethodPost, "/api/v1/tables/Readings/readings", "")
	require.Equal(t, http.StatusCreated, w.Code)

	var r codec.WorkerReading
	require.NoError(t, json.Unmarshal(resp.Data, &r))
	assert.NoError(t, r.Validate())
}

func TestPutReadingRejectsBadInput(t *testing.T) {
	h, _ := setupTestServer(t)
	createTable(t, h, "Readings")

	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"missing field", `{"GroundNum":"ABC_123_4567","HelmetNum":"0042"}`},
		{"out of range", `{"GroundNum":"ABC_123_4567","HelmetNum":"0042","Spo2Level":999,"Temperature":1,"GasLevel":1,"HeartRate":1}`},
		{"bad ground number", `{"GroundNum":"abc","HelmetNum":"0042","Spo2Level":1,"Temperature":1,"GasLevel":1,"HeartRate":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, h, http.MethodPost, "/api/v1/tables/Readings/readings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestReadingsOnMissingTable(t *testing.T) {
	h, _ := setupTestServer(t)

	w, _ := do(t, h, http.MethodGet, "/api/v1/tables/Missing/readings", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, h, http.MethodPost, "/api/v1/tables/Missing/readings", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSynthetic(t *testing.T) {
	h, _ := setupTestServer(t)

	w, resp := do(t, h, http.MethodGet, "/api/v1/synthetic?n=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var readings []codec.WorkerReading
	require.NoError(t, json.Unmarshal(resp.Data, &readings))
	require.Len(t, readings, 5)
	for _, r := range readings {
		assert.NoError(t, r.Validate())
	}

	w, resp = do(t, h, http.MethodGet, "/api/v1/synthetic", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &readings))
	assert.Len(t, readings, 1)

	for _, n := range []string{"0", "101", "many"} {
		w, _ = do(t, h, http.MethodGet, "/api/v1/synthetic?n="+n, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, n)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", table.ErrTableNotFound), http.StatusNotFound},
		{table.ErrTableExists, http.StatusConflict},
		{table.ErrInvalidTableName, http.StatusBadRequest},
		{table.ErrMissingKey, http.StatusBadRequest},
		{table.ErrUnsupportedQuery, http.StatusBadRequest},
		{&codec.MalformedAttributeError{Field: "GasLevel", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

// failingStore fails every operation
type failingStore struct{}

var errUnavailable = errors.New("store unavailable")

func (failingStore) CreateTable(context.Context, table.TableSpec) error { return errUnavailable }
func (failingStore) DeleteTable(context.Context, string) error          { return errUnavailable }
func (failingStore) ListTables(context.Context) ([]string, error)       { return nil, errUnavailable }
func (failingStore) TableExists(context.Context, string) (bool, error)  { return false, errUnavailable }
func (failingStore) PutItem(context.Context, string, codec.AttributeMap) error {
	return errUnavailable
}
func (failingStore) Scan(context.Context, string) ([]codec.AttributeMap, error) {
	return nil, errUnavailable
}
func (failingStore) Query(context.Context, string, string, string) ([]codec.AttributeMap, error) {
	return nil, errUnavailable
}
func (failingStore) DeleteItem(context.Context, string, codec.AttributeMap) error {
	return errUnavailable
}
func (failingStore) Close() error { return nil }
