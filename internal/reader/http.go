// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/buivan/tosho/internal/platform/middleware"
	requestutil "github.com/buivan/tosho/internal/platform/request"
	"github.com/buivan/tosho/internal/platform/respond"
)

// Pages never change once an archive is in the library, so clients may
// cache them indefinitely.
const pageCacheControl = "public, max-age=31536000, immutable"

// # Handler Implementation

// Handler implements the HTTP layer for interactive reading.
type Handler struct {
	service *Service
}

// NewHandler constructs a new reader [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches reading endpoints to the root API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Get("/read/{mediaID}", handler.GetChapterInfo)
	api.Get("/read/{mediaID}/pages/{page}", handler.GetPage)

	// Progress is stored per user, so the route needs a verified identity
	api.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)
		authenticated.Post("/read/{mediaID}/progress", handler.SaveProgress)
	})
}

// # Reading

/*
GET /api/v1/read/{mediaID}.

Description: Returns the media record and its live page count, priming the
structure cache for the page requests that follow. Authenticated requests
also receive the caller's reading progress when one exists.

Request:
  - mediaID: string (UUID)

Response:
  - 200: ChapterInfo
  - 404: ErrNotFound: Media not found
  - 422: ErrCorruptArchive: Archive unreadable
*/
func (handler *Handler) GetChapterInfo(writer http.ResponseWriter, request *http.Request) {
	mediaID := requestutil.Param(request, "mediaID")

	userID := ""
	if claims := requestutil.Claims(request); claims != nil {
		userID = claims.UserID
	}

	info, err := handler.service.ChapterInfo(request.Context(), mediaID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, info)
}

// progressRequest is the body of POST /read/{mediaID}/progress.
type progressRequest struct {
	Page       int  `json:"page"`
	IsFinished bool `json:"is_finished"`
}

/*
POST /api/v1/read/{mediaID}/progress.

Description: Upserts the caller's reading position on a media item. One row
per user and media item; repeated saves overwrite.

Request:
  - mediaID: string (UUID)
  - body: progressRequest

Response:
  - 200: Progress
  - 401: ErrUnauthorized: Authentication required
  - 404: ErrNotFound: Media not found
*/
func (handler *Handler) SaveProgress(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	mediaID := requestutil.Param(request, "mediaID")

	var body progressRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	progress, err := handler.service.SaveProgress(request.Context(), claims.UserID, mediaID, body.Page, body.IsFinished)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, progress)
}

/*
GET /api/v1/read/{mediaID}/pages/{page}.

Description: Streams the raw bytes of one page. Page numbers are 1-based.
Headers carry the content type, the exact length when the container knows
it, and an immutable cache directive.

Request:
  - mediaID: string (UUID)
  - page: int (1-based)

Response:
  - 200: Raw image bytes
  - 404: ErrNotFound: Media or page not found
*/
func (handler *Handler) GetPage(writer http.ResponseWriter, request *http.Request) {
	mediaID := requestutil.Param(request, "mediaID")

	page, err := ParsePageParam(requestutil.Param(request, "page"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stream, err := handler.service.OpenPage(request.Context(), mediaID, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer stream.Close()

	writer.Header().Set("Content-Type", stream.MIME)
	if stream.Size >= 0 {
		writer.Header().Set("Content-Length", strconv.FormatInt(stream.Size, 10))
	}
	writer.Header().Set("Cache-Control", pageCacheControl)

	// Headers are committed on first write; stream errors past this point
	// can only truncate the body.
	_, _ = io.Copy(writer, stream)
}
