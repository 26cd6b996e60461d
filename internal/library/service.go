// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"log/slog"

	"github.com/buivan/tosho/internal/platform/apperr"
	"github.com/buivan/tosho/internal/platform/validate"
	"github.com/buivan/tosho/pkg/uuid"
)

// # Catalogue Service

// Service implements series and media registration, listing, and per-user
// reading progress. Both the ingestion pipeline and the filesystem scanner
// register through it.
type Service struct {
	series   SeriesRepository
	media    MediaRepository
	progress ProgressRepository
	logger   *slog.Logger
}

// NewService wires the catalogue service.
func NewService(series SeriesRepository, media MediaRepository, progress ProgressRepository, logger *slog.Logger) *Service {
	return &Service{series: series, media: media, progress: progress, logger: logger}
}

// Registration describes one archive to be recorded in the catalogue.
type Registration struct {
	SeriesTitle string
	FolderPath  string
	SourceType  string
	MediaTitle  string
	Number      float64
	Volume      *float64
	Year        *int
	Path        string
	Extension   string
	PageCount   int
	SizeBytes   int64
	IsOneShot   bool
}

/*
Register records an archive under its series, creating the series on first
contact.

Description: Registration is idempotent on the archive path: a file already
present in the catalogue is returned as-is rather than duplicated, which
lets the scanner re-walk the library safely.

Parameters:
  - context: context.Context
  - registration: Registration

Returns:
  - *Media: The stored record, existing or freshly created
  - error: Storage failures
*/
func (service *Service) Register(context context.Context, registration Registration) (*Media, error) {

	validator := &validate.Validator{}
	validator.Required("series_title", registration.SeriesTitle).
		Required("path", registration.Path).
		OneOf("source_type", registration.SourceType, SourceUpload, SourceScan).
		Custom("number", registration.Number < 0, "Chapter number cannot be negative").
		Custom("page_count", registration.PageCount < 0, "Page count cannot be negative")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Dedupe by path before touching the series
	if existing, err := service.media.FindByPath(context, registration.Path); err == nil {
		return existing, nil
	} else if !apperr.IsCode(err, "NOT_FOUND") {
		return nil, err
	}

	// Lookup-or-create the owning series
	series, err := service.series.UpsertByTitle(context, &Series{
		ID:         uuid.New(),
		Title:      registration.SeriesTitle,
		LibraryID:  DefaultLibraryID,
		FolderPath: registration.FolderPath,
		SourceType: registration.SourceType,
	})
	if err != nil {
		return nil, err
	}

	media := &Media{
		ID:        uuid.New(),
		SeriesID:  series.ID,
		Title:     registration.MediaTitle,
		Number:    registration.Number,
		Volume:    registration.Volume,
		Year:      registration.Year,
		Path:      registration.Path,
		Extension: registration.Extension,
		PageCount: registration.PageCount,
		SizeBytes: registration.SizeBytes,
		IsOneShot: registration.IsOneShot,
		IsReady:   true,
	}
	if err := service.media.Create(context, media); err != nil {
		return nil, err
	}

	service.logger.Info("media_registered",
		slog.String("media_id", media.ID),
		slog.String("series_id", series.ID),
		slog.String("series_title", series.Title),
		slog.Float64("number", media.Number),
		slog.String("source", registration.SourceType),
	)

	return media, nil
}

/*
ListSeries returns all series of the library.

Parameters:
  - context: context.Context

Returns:
  - []*Series: Ordered by title
  - error: Storage failures
*/
func (service *Service) ListSeries(context context.Context) ([]*Series, error) {
	return service.series.List(context)
}

/*
ListMedia returns all media of one series.

Parameters:
  - context: context.Context
  - seriesID: string (UUID)

Returns:
  - []*Media: Ordered by number
  - error: apperr.NotFound for an unknown series
*/
func (service *Service) ListMedia(context context.Context, seriesID string) ([]*Media, error) {
	if _, err := service.series.FindByID(context, seriesID); err != nil {
		return nil, err
	}
	return service.media.ListBySeries(context, seriesID)
}

/*
GetMedia returns one media record.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Media: Hydrated record
  - error: apperr.NotFound if missing
*/
func (service *Service) GetMedia(context context.Context, id string) (*Media, error) {
	return service.media.FindByID(context, id)
}

/*
SetPageCount stores a freshly counted page total on a record.

Parameters:
  - context: context.Context
  - id: string (UUID)
  - pageCount: int

Returns:
  - error: apperr.NotFound if targeting a missing row
*/
func (service *Service) SetPageCount(context context.Context, id string, pageCount int) error {
	return service.media.UpdatePageCount(context, id, pageCount)
}

/*
SaveProgress upserts one user's reading position on a media item.

Description: One row per user and media item; a repeated save overwrites the
previous page and finished flag. The media record must exist.

Parameters:
  - context: context.Context
  - userID: string (UUID)
  - mediaID: string (UUID)
  - page: int (1-based last page read)
  - isFinished: bool

Returns:
  - *Progress: The stored row
  - error: apperr.NotFound for unknown media, validation failures
*/
func (service *Service) SaveProgress(context context.Context, userID string, mediaID string, page int, isFinished bool) (*Progress, error) {

	validator := &validate.Validator{}
	validator.Required("user_id", userID).
		Required("media_id", mediaID).
		Custom("page", page < 0, "Page cannot be negative")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if _, err := service.media.FindByID(context, mediaID); err != nil {
		return nil, err
	}

	progress, err := service.progress.Upsert(context, &Progress{
		ID:         uuid.New(),
		UserID:     userID,
		MediaID:    mediaID,
		Page:       page,
		IsFinished: isFinished,
	})
	if err != nil {
		return nil, err
	}

	service.logger.Debug("progress_saved",
		slog.String("media_id", mediaID),
		slog.Int("page", page),
		slog.Bool("is_finished", isFinished),
	)

	return progress, nil
}

/*
GetProgress returns one user's reading position on a media item.

Parameters:
  - context: context.Context
  - userID: string (UUID)
  - mediaID: string (UUID)

Returns:
  - *Progress: Hydrated row
  - error: apperr.NotFound if the user never opened the item
*/
func (service *Service) GetProgress(context context.Context, userID string, mediaID string) (*Progress, error) {
	return service.progress.FindForUser(context, userID, mediaID)
}
