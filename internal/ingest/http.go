// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/buivan/tosho/internal/platform/apperr"
	"github.com/buivan/tosho/internal/platform/constants"
	"github.com/buivan/tosho/internal/platform/middleware"
	"github.com/buivan/tosho/internal/platform/respond"
	"github.com/buivan/tosho/pkg/sanitize"
	"github.com/buivan/tosho/pkg/uuid"
)

const (
	FieldMessage = "message"
	FieldFile    = "file"
)

// acceptedExtensions is the upload allow-list, checked before any bytes are
// spooled. The magic-byte sniff later has the final say on format.
var acceptedExtensions = map[string]bool{
	".cbz":  true,
	".cbr":  true,
	".pdf":  true,
	".epub": true,
	".zip":  true,
}

// # Handler Implementation

// Handler implements the HTTP layer for uploads.
type Handler struct {
	queue    *Queue
	tempPath string
}

// NewHandler constructs a new ingest [Handler].
func NewHandler(queue *Queue, tempPath string) *Handler {
	return &Handler{queue: queue, tempPath: tempPath}
}

// RegisterRoutes attaches the upload endpoint to the root API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)
		authenticated.Post("/upload", handler.Upload)
	})
}

// # Uploading

/*
POST /api/v1/upload.

Description: Accepts one multipart archive, spools it under the temp root
and enqueues an ingestion job. The response acknowledges acceptance only;
the job runs detached and its outcome is observable through logs.

Request:
  - file: multipart file (.cbz, .cbr, .pdf, .epub or .zip)

Response:
  - 202: Upload accepted for processing
  - 400: ErrValidation: Missing or oversized file part
  - 415: ErrUnsupportedFormat: Extension not in the allow-list
  - 503: ErrServiceUnavailable: Ingestion queue is full
*/
func (handler *Handler) Upload(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxUploadBytes)

	file, header, err := request.FormFile(FieldFile)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError("Multipart 'file' part is required"))
		return
	}
	defer file.Close()

	// Extension gate before any bytes are persisted
	extension := strings.ToLower(filepath.Ext(header.Filename))
	if !acceptedExtensions[extension] {
		respond.Error(writer, request, apperr.UnsupportedFormat("File extension is not accepted"))
		return
	}

	tempFile := filepath.Join(handler.tempPath, uuid.New()+"_"+sanitize.FileName(header.Filename))
	if err := spool(file, tempFile); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.queue.Enqueue(Job{TempPath: tempFile, OriginalName: header.Filename}); err != nil {
		// Nothing will ever process this spool; remove it.
		_ = os.Remove(tempFile)
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]interface{}{
		FieldMessage: "Upload accepted for processing",
	})
}

// spool copies the upload to its temp location.
func spool(source io.Reader, path string) error {
	target, err := os.Create(path)
	if err != nil {
		return apperr.IOFailure(err)
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		_ = os.Remove(path)
		return apperr.IOFailure(err)
	}
	return nil
}
