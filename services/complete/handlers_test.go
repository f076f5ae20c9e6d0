// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package complete

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/snapshot"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

const handlerModelYAML = `
types:
  - name: pkg.Main
    members:
      - {name: getFoo, kind: method, type: pkg.Foo}
      - {name: count, kind: field, type: int}
  - name: pkg.Foo
    members:
      - {name: bar, kind: field, type: pkg.Bar}
      - {name: bars, kind: method, type: "pkg.Bar[]"}
  - name: pkg.Bar
symbols:
  - {name: main, kind: variable, type: pkg.Main}
`

type testEnv struct {
	router *gin.Engine
	svc    *Service
	store  *snapshot.Store
	path   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(handlerModelYAML), 0o644))

	store := snapshot.NewStore(4, nil)
	comp := completer.New(completer.DefaultConfig(), nil,
		completer.WithMetrics(completer.NewMetrics(prometheus.NewRegistry())))
	svc := NewService(store, comp, nil, nil)

	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))

	return &testEnv{router: router, svc: svc, store: store, path: path}
}

func (e *testEnv) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) load(t *testing.T) SnapshotResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/complete/snapshots", LoadSnapshotRequest{Path: e.path})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandlers_HandleHealth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/complete/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
}

func TestHandlers_HandleReady(t *testing.T) {
	env := setupTestEnv(t)
	env.load(t)

	w := env.do(t, http.MethodGet, "/v1/complete/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, 1, resp.SnapshotCount)

	env.svc.Close()
	w = env.do(t, http.MethodGet, "/v1/complete/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandlers_RequestID(t *testing.T) {
	env := setupTestEnv(t)

	req, _ := http.NewRequest(http.MethodGet, "/v1/complete/snapshots", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodGet, "/v1/complete/snapshots", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandlers_HandleLoadSnapshot(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.load(t)
	assert.Equal(t, snapshot.GenerateID(env.path), resp.ID)
	assert.Equal(t, env.path, resp.Path)
	assert.Equal(t, 3, resp.Types)
	assert.Equal(t, 1, resp.Visible)
	assert.False(t, resp.Stale)

	again := env.load(t)
	assert.Equal(t, resp.ID, again.ID)
	assert.Equal(t, resp.LoadedAt.UnixNano(), again.LoadedAt.UnixNano(), "second load is served from the store")
}

func TestHandlers_HandleLoadSnapshot_Errors(t *testing.T) {
	env := setupTestEnv(t)

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("types: [{name: pkg.A, supertypes: [pkg.Missing]}]"), 0o644))

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"empty body", "{}", http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed json", "{", http.StatusBadRequest, "INVALID_REQUEST"},
		{"relative path", LoadSnapshotRequest{Path: "model.yaml"}, http.StatusBadRequest, "INVALID_PATH"},
		{"path traversal", LoadSnapshotRequest{Path: "/tmp/../etc/model.yaml"}, http.StatusBadRequest, "PATH_TRAVERSAL"},
		{"missing file", LoadSnapshotRequest{Path: filepath.Join(t.TempDir(), "nope.yaml")}, http.StatusNotFound, "FILE_NOT_FOUND"},
		{"invalid snapshot", LoadSnapshotRequest{Path: broken}, http.StatusUnprocessableEntity, "INVALID_SNAPSHOT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/complete/snapshots", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}
}

func TestHandlers_ListAndDeleteSnapshots(t *testing.T) {
	env := setupTestEnv(t)
	loaded := env.load(t)

	w := env.do(t, http.MethodGet, "/v1/complete/snapshots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list ListSnapshotsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, loaded.ID, list.Snapshots[0].ID)

	w = env.do(t, http.MethodDelete, "/v1/complete/snapshots/"+loaded.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/complete/snapshots/"+loaded.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SNAPSHOT_NOT_FOUND", decodeError(t, w).Code)
}

func TestHandlers_HandleChains(t *testing.T) {
	env := setupTestEnv(t)
	loaded := env.load(t)

	t.Run("defaults candidates to visible symbols", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/complete/chains", ChainsRequest{
			SnapshotID:    loaded.ID,
			ExpectedTypes: []string{"pkg.Bar", "int"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp ChainsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "main.getFoo().bar", resp.Items[0].Body)
		assert.Equal(t, "main.getFoo().bars()[]", resp.Items[1].Body)
		assert.Equal(t, "main.count", resp.Items[2].Body)
		assert.False(t, resp.TimedOut)
		assert.False(t, resp.Partial)
	})

	t.Run("overrides and unresolved types", func(t *testing.T) {
		one := 1
		w := env.do(t, http.MethodPost, "/v1/complete/chains", ChainsRequest{
			SnapshotID:    loaded.ID,
			ExpectedTypes: []string{"pkg.Nope", "pkg.Bar"},
			Candidates:    []string{"var:main"},
			MaxChains:     &one,
			TimeoutMs:     1000,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp ChainsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, []string{"pkg.Nope"}, resp.Unresolved)
	})

	t.Run("prefix filters entry points", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/complete/chains", ChainsRequest{
			SnapshotID:    loaded.ID,
			ExpectedTypes: []string{"pkg.Bar"},
			Prefix:        "x",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp ChainsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
		assert.NotNil(t, resp.Items)
	})
}

func TestHandlers_HandleChains_Errors(t *testing.T) {
	env := setupTestEnv(t)
	loaded := env.load(t)
	eleven := 11

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing snapshot id", `{"expected_types": ["int"]}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no expected types", ChainsRequest{SnapshotID: loaded.ID, ExpectedTypes: []string{}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank expected type", ChainsRequest{SnapshotID: loaded.ID, ExpectedTypes: []string{""}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"depth out of range", ChainsRequest{SnapshotID: loaded.ID, ExpectedTypes: []string{"int"}, MaxDepth: &eleven}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown snapshot", ChainsRequest{SnapshotID: "0000000000000000", ExpectedTypes: []string{"int"}}, http.StatusNotFound, "SNAPSHOT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/complete/chains", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
		})
	}

	t.Run("stale snapshot", func(t *testing.T) {
		require.True(t, env.store.MarkStale(env.path))
		w := env.do(t, http.MethodPost, "/v1/complete/chains", ChainsRequest{
			SnapshotID:    loaded.ID,
			ExpectedTypes: []string{"int"},
		})
		assert.Equal(t, http.StatusGone, w.Code)
		assert.Equal(t, "SNAPSHOT_STALE", decodeError(t, w).Code)
	})
}

func TestHandlers_HandleMembers(t *testing.T) {
	env := setupTestEnv(t)
	loaded := env.load(t)

	w := env.do(t, http.MethodGet, "/v1/complete/members?snapshot_id="+loaded.ID+"&type=pkg.Main", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MembersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "pkg.Main#getFoo()", resp.Members[0].ID)
	assert.Equal(t, "pkg.Main#count", resp.Members[1].ID)

	w = env.do(t, http.MethodGet, "/v1/complete/members?snapshot_id="+loaded.ID+"&type=pkg.Main&static=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)

	w = env.do(t, http.MethodGet, "/v1/complete/members?snapshot_id="+loaded.ID+"&type=pkg.Ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "UNKNOWN_TYPE", decodeError(t, w).Code)

	w = env.do(t, http.MethodGet, "/v1/complete/members?type=pkg.Main", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	open := gin.New()
	open.Use(RateLimit(0, 0))
	open.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
		open.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
