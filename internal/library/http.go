// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buivan/tosho/internal/platform/middleware"
	requestutil "github.com/buivan/tosho/internal/platform/request"
	"github.com/buivan/tosho/internal/platform/respond"
)

const (
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
)

// # Handler Implementation

// Handler implements the HTTP layer for catalogue browsing and scanning.
type Handler struct {
	service *Service
	scanner *Scanner
}

// NewHandler constructs a new library [Handler].
func NewHandler(service *Service, scanner *Scanner) *Handler {
	return &Handler{service: service, scanner: scanner}
}

// RegisterRoutes attaches catalogue endpoints to the root API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	// Browsing endpoints
	api.Get("/library/series", handler.ListSeries)
	api.Get("/library/series/{seriesID}/media", handler.ListMedia)

	// Mutative endpoints require authentication
	api.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)
		authenticated.Post("/library/scan", handler.TriggerScan)
	})
}

// # Browsing

/*
GET /api/v1/library/series.

Description: Returns every series of the library, ordered by title.

Response:
  - 200: []Series
*/
func (handler *Handler) ListSeries(writer http.ResponseWriter, request *http.Request) {
	series, err := handler.service.ListSeries(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{
		FieldItems: series,
		FieldTotal: len(series),
	})
}

/*
GET /api/v1/library/series/{seriesID}/media.

Description: Returns all media of one series, ordered by chapter number.

Request:
  - seriesID: string (UUID)

Response:
  - 200: []Media
  - 404: ErrNotFound: Series not found
*/
func (handler *Handler) ListMedia(writer http.ResponseWriter, request *http.Request) {
	seriesID := requestutil.Param(request, "seriesID")

	media, err := handler.service.ListMedia(request.Context(), seriesID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{
		FieldItems: media,
		FieldTotal: len(media),
	})
}

// # Scanning

/*
POST /api/v1/library/scan.

Description: Kicks off a walk of the library root for archives not yet in
the catalogue. The walk runs detached; its outcome is observable only
through logs, never through this response.

Response:
  - 202: Scan accepted
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) TriggerScan(writer http.ResponseWriter, request *http.Request) {

	// Detach from the request lifecycle; the scan outlives this response.
	go func() {
		_, _ = handler.scanner.Scan(context.Background())
	}()

	respond.Accepted(writer, map[string]interface{}{
		FieldMessage: "Library scan started",
	})
}
