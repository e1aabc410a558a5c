// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clide-dev/clide/pkg/composition"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func testCatalog(t *testing.T) (*composition.TypeCatalog, *composition.DecoratingCatalog) {
	t.Helper()
	inner, err := composition.NewTypeCatalog("Editor Parts",
		&composition.PartDefinition{
			Type:     "editor.Service",
			Metadata: composition.NewMetadata().Set("owner", "editor"),
			Imports:  []composition.ImportDefinition{{ContractName: "Shell", Cardinality: composition.ExactlyOne}},
			Exports: []composition.ExportDefinition{
				{ContractName: "Command", Metadata: composition.NewMetadata().Set("package_id", "p1")},
			},
		},
		&composition.PartDefinition{
			Type:     "editor.Tool",
			Metadata: composition.NewMetadata().Set(composition.CreationPolicyKey, composition.NonShared),
			Exports: []composition.ExportDefinition{
				{ContractName: "Command", Member: "Run", Metadata: composition.NewMetadata().Set("package_id", "p2")},
			},
		},
	)
	require.NoError(t, err)

	decorated := composition.NewDecoratingCatalog(inner, composition.WithPartDecorator(
		func(_ context.Context, p *composition.DecoratedPart) error {
			p.NewMetadata.Set("decorated", true)
			return nil
		}))
	return inner, decorated
}

func setupTestRouter(catalog composition.Catalog) *gin.Engine {
	router := gin.New()
	RegisterRoutes(router, NewHandlers(func() composition.Catalog { return catalog }, nil))
	return router
}

func get(t *testing.T, router http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func TestHandlers_Health(t *testing.T) {
	_, catalog := testCatalog(t)
	var resp HealthResponse
	w := get(t, setupTestRouter(catalog), "/healthz", &resp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp.Status)
}

func TestHandlers_Catalog(t *testing.T) {
	_, catalog := testCatalog(t)
	var resp CatalogResponse
	w := get(t, setupTestRouter(catalog), "/v1/catalog", &resp)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CatalogResponse{
		Name:      "Decorating Catalog for Editor Parts",
		Origin:    "Editor Parts",
		Parts:     2,
		Shared:    1,
		NonShared: 1,
	}, resp)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandlers_Parts(t *testing.T) {
	_, catalog := testCatalog(t)
	var resp PartsResponse
	w := get(t, setupTestRouter(catalog), "/v1/catalog/parts", &resp)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Parts, 2)

	svc := resp.Parts[0]
	assert.Equal(t, "editor.Service", svc.Type)
	assert.Equal(t, "any", svc.CreationPolicy)
	assert.Equal(t, true, svc.Metadata["decorated"])
	require.Len(t, svc.Imports, 1)
	assert.Equal(t, "Shell", svc.Imports[0].Contract)

	tool := resp.Parts[1]
	assert.Equal(t, "non_shared", tool.CreationPolicy)
	assert.Equal(t, "non_shared", tool.Metadata[composition.CreationPolicyKey])
	assert.Equal(t, "Run", tool.Exports[0].Member)
}

func TestHandlers_Exports(t *testing.T) {
	_, catalog := testCatalog(t)
	router := setupTestRouter(catalog)

	var all ExportsResponse
	w := get(t, router, "/v1/catalog/exports/Command", &all)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, all.Exports, 2)

	var filtered ExportsResponse
	get(t, router, "/v1/catalog/exports/Command?package_id=p2", &filtered)
	require.Len(t, filtered.Exports, 1)
	assert.Equal(t, "editor.Tool", filtered.Exports[0].Part)

	var none ExportsResponse
	get(t, router, "/v1/catalog/exports/Missing", &none)
	assert.Empty(t, none.Exports)
}

func TestHandlers_ClosedCatalog(t *testing.T) {
	inner, catalog := testCatalog(t)
	require.NoError(t, inner.Close())

	var resp ErrorResponse
	w := get(t, setupTestRouter(catalog), "/v1/catalog/parts", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "CATALOG_CLOSED", resp.Code)
}

func TestHandlers_InvalidPolicy(t *testing.T) {
	inner, _ := testCatalog(t)
	catalog := composition.NewDecoratingCatalog(inner, composition.WithPartDecorator(
		func(_ context.Context, p *composition.DecoratedPart) error {
			p.NewMetadata.Set(composition.CreationPolicyKey, 7)
			return nil
		}))

	var resp ErrorResponse
	w := get(t, setupTestRouter(catalog), "/v1/catalog", &resp)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INVALID_CREATION_POLICY", resp.Code)
}

func TestServer_Handler(t *testing.T) {
	_, catalog := testCatalog(t)
	srv := New(Config{Address: "127.0.0.1:0"}, func() composition.Catalog { return catalog }, nil)

	var resp HealthResponse
	w := get(t, srv.Handler(), "/healthz", &resp)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	_, catalog := testCatalog(t)
	source := func() composition.Catalog { return catalog }

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clide_up 1\n"))
	})
	srv := New(Config{Address: "127.0.0.1:0", Metrics: metrics}, source, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "clide_up 1\n", w.Body.String())

	srv = New(Config{Address: "127.0.0.1:0"}, source, nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	_, catalog := testCatalog(t)
	srv := New(Config{Address: "127.0.0.1:0"}, func() composition.Catalog { return catalog }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, srv.Run(ctx))
}
