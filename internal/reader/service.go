// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/buivan/tosho/internal/archive"
	"github.com/buivan/tosho/internal/library"
	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Reading Service

// Catalogue is the slice of the library service the reader needs.
type Catalogue interface {
	GetMedia(context context.Context, id string) (*library.Media, error)
	SetPageCount(context context.Context, id string, pageCount int) error
	SaveProgress(context context.Context, userID string, mediaID string, page int, isFinished bool) (*library.Progress, error)
	GetProgress(context context.Context, userID string, mediaID string) (*library.Progress, error)
}

// ChapterInfo is what a reader client needs to start reading one media item.
// Progress is present only for authenticated requests by users who have
// opened the item before.
type ChapterInfo struct {
	Media     *library.Media    `json:"media"`
	PageCount int               `json:"page_count"`
	Progress  *library.Progress `json:"progress,omitempty"`
}

// Service resolves media IDs to archives and serves their pages. Page
// listings go through the structure cache; page bytes are streamed fresh
// per request with an independent archive handle.
type Service struct {
	catalogue Catalogue
	cache     *StructureCache
	logger    *slog.Logger
}

// NewService wires the reading service.
func NewService(catalogue Catalogue, cache *StructureCache, logger *slog.Logger) *Service {
	return &Service{catalogue: catalogue, cache: cache, logger: logger}
}

/*
ChapterInfo returns the media record plus its live page count.

Description: The count comes from the cached listing, which reflects the
archive on disk. When it disagrees with the persisted pageCount the stored
value is corrected opportunistically; a failed correction is logged, never
surfaced. A non-empty userID additionally hydrates that user's reading
progress; a missing progress row is not an error.

Parameters:
  - context: context.Context
  - mediaID: string (UUID)
  - userID: string (UUID; empty for anonymous requests)

Returns:
  - *ChapterInfo: Media plus page count and optional progress
  - error: apperr.NotFound for unknown media, archive taxonomy otherwise
*/
func (service *Service) ChapterInfo(context context.Context, mediaID string, userID string) (*ChapterInfo, error) {
	media, err := service.catalogue.GetMedia(context, mediaID)
	if err != nil {
		return nil, err
	}

	pages, err := service.listPages(context, media)
	if err != nil {
		return nil, err
	}

	if media.PageCount != len(pages) {
		if err := service.catalogue.SetPageCount(context, media.ID, len(pages)); err != nil {
			service.logger.Warn("page_count_correction_failed",
				slog.String("media_id", media.ID),
				slog.String("error", err.Error()),
			)
		} else {
			media.PageCount = len(pages)
		}
	}

	info := &ChapterInfo{Media: media, PageCount: len(pages)}

	if userID != "" {
		progress, err := service.catalogue.GetProgress(context, userID, media.ID)
		switch {
		case err == nil:
			info.Progress = progress
		case !apperr.IsCode(err, "NOT_FOUND"):
			service.logger.Warn("progress_lookup_failed",
				slog.String("media_id", media.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return info, nil
}

/*
SaveProgress records how far a user has read a media item.

Description: One row per user and media item; a repeated save overwrites the
previous page and finished flag.

Parameters:
  - context: context.Context
  - userID: string (UUID, from the verified token)
  - mediaID: string (UUID)
  - page: int (1-based last page read)
  - isFinished: bool

Returns:
  - *library.Progress: The stored row
  - error: apperr.NotFound for unknown media
*/
func (service *Service) SaveProgress(context context.Context, userID string, mediaID string, page int, isFinished bool) (*library.Progress, error) {
	return service.catalogue.SaveProgress(context, userID, mediaID, page, isFinished)
}

/*
OpenPage streams one page of a media item.

Description: The page parameter is 1-based, matching what reader clients
display. The returned stream owns an archive handle released exactly once
when the stream ends, errors or is closed; callers must Close it.

Parameters:
  - context: context.Context
  - mediaID: string (UUID)
  - page: int (1-based page number)

Returns:
  - *archive.PageStream: Open page stream
  - error: apperr.NotFound for unknown media or an out-of-range page
*/
func (service *Service) OpenPage(context context.Context, mediaID string, page int) (*archive.PageStream, error) {
	media, err := service.catalogue.GetMedia(context, mediaID)
	if err != nil {
		return nil, err
	}

	pages, err := service.listPages(context, media)
	if err != nil {
		return nil, err
	}
	if page < 1 || page > len(pages) {
		return nil, apperr.NotFound("Page")
	}

	reader, _, err := archive.NewReader(media.Path)
	if err != nil {
		return nil, err
	}
	return reader.OpenPage(context, pages[page-1])
}

// listPages returns the cached ordered listing for a media item.
func (service *Service) listPages(context context.Context, media *library.Media) ([]string, error) {
	return service.cache.Get(context, media.ID, service.structureLoader(media))
}

// structureLoader builds the cache population function for one media item.
func (service *Service) structureLoader(media *library.Media) func(context.Context) ([]string, error) {
	return func(context context.Context) ([]string, error) {
		reader, format, err := archive.NewReader(media.Path)
		if err != nil {
			return nil, err
		}

		pages, err := reader.ListPages(context)
		if err != nil {
			return nil, err
		}

		service.logger.Debug("structure_cached",
			slog.String("media_id", media.ID),
			slog.String("format", format.String()),
			slog.Int("pages", len(pages)),
		)
		return pages, nil
	}
}

// ParsePageParam converts the URL page parameter.
func ParsePageParam(raw string) (int, error) {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.ValidationError("Page number must be an integer")
	}
	return page, nil
}
