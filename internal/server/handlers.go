// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes a read-only HTTP view of a composition catalog.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clide-dev/clide/pkg/composition"
	"github.com/clide-dev/clide/pkg/logging"
)

// CatalogSource returns the catalog to serve. It is called once per
// request, so the catalog may be swapped while the server runs.
type CatalogSource func() composition.Catalog

// Handlers serves catalog introspection requests.
type Handlers struct {
	source CatalogSource
	logger *logging.Logger
}

// NewHandlers creates handlers over source.
func NewHandlers(source CatalogSource, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handlers{source: source, logger: logger}
}

// RegisterRoutes registers the catalog routes.
//
// Endpoints:
//
//	GET /healthz - Liveness
//	GET /v1/catalog - Catalog summary
//	GET /v1/catalog/parts - All decorated parts
//	GET /v1/catalog/exports/:contract - Exports of one contract
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	router.GET("/healthz", h.HandleHealth)

	v1 := router.Group("/v1/catalog")
	v1.GET("", h.HandleCatalog)
	v1.GET("/parts", h.HandleParts)
	v1.GET("/exports/:contract", h.HandleExports)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// HandleCatalog handles GET /v1/catalog.
//
// Response:
//
//	200 OK: CatalogResponse
//	503 Service Unavailable: catalog closed
//	500 Internal Server Error: catalog or decoration failure
func (h *Handlers) HandleCatalog(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCatalog")
	catalog := h.source()

	parts, err := catalog.Parts(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	resp := CatalogResponse{Name: displayName(catalog), Parts: len(parts)}
	if e, ok := catalog.(composition.Element); ok && e.Origin() != nil {
		resp.Origin = e.Origin().DisplayName()
	}
	for _, p := range parts {
		if nonShared, err := p.IsNonShared(); err == nil && nonShared {
			resp.NonShared++
		} else {
			resp.Shared++
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleParts handles GET /v1/catalog/parts.
func (h *Handlers) HandleParts(c *gin.Context) {
	logger := h.requestLogger(c, "HandleParts")

	parts, err := h.source().Parts(c.Request.Context())
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	resp := PartsResponse{Parts: make([]PartResponse, 0, len(parts))}
	for _, p := range parts {
		resp.Parts = append(resp.Parts, NewPartResponse(p))
	}
	logger.Debug("parts listed", "count", len(parts))
	c.JSON(http.StatusOK, resp)
}

// HandleExports handles GET /v1/catalog/exports/:contract.
//
// Query parameters of the form key=value restrict the result to exports
// whose metadata holds that string value.
func (h *Handlers) HandleExports(c *gin.Context) {
	logger := h.requestLogger(c, "HandleExports")
	contract := c.Param("contract")

	query := c.Request.URL.Query()
	pred := func(m composition.Metadata) bool {
		for key := range query {
			if v, ok := m.GetString(key); !ok || v != query.Get(key) {
				return false
			}
		}
		return true
	}

	matches, err := composition.ExportsWhere(c.Request.Context(), h.source(), contract, pred)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	resp := ExportsResponse{Contract: contract, Exports: make([]ExportMatchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Exports = append(resp.Exports, NewExportMatchResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) fail(c *gin.Context, logger *logging.Logger, err error) {
	status, code := http.StatusInternalServerError, "CATALOG_ERROR"
	switch {
	case errors.Is(err, composition.ErrCatalogClosed):
		status, code = http.StatusServiceUnavailable, "CATALOG_CLOSED"
	case errors.Is(err, composition.ErrInvalidCreationPolicy):
		code = "INVALID_CREATION_POLICY"
	}
	logger.Error("catalog request failed", "error", err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *logging.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func displayName(catalog composition.Catalog) string {
	if e, ok := catalog.(composition.Element); ok {
		return e.DisplayName()
	}
	return ""
}
