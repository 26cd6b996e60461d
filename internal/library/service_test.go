// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// In-memory repositories standing in for PostgreSQL.

type fakeSeriesRepository struct {
	rows map[string]*Series
}

func (repository *fakeSeriesRepository) UpsertByTitle(_ context.Context, series *Series) (*Series, error) {
	key := strings.ToLower(series.Title) + "|" + series.LibraryID
	if existing, ok := repository.rows[key]; ok {
		existing.UpdatedAt = time.Now()
		return existing, nil
	}
	stored := *series
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	repository.rows[key] = &stored
	return &stored, nil
}

func (repository *fakeSeriesRepository) FindByID(_ context.Context, id string) (*Series, error) {
	for _, series := range repository.rows {
		if series.ID == id {
			return series, nil
		}
	}
	return nil, apperr.NotFound("Series")
}

func (repository *fakeSeriesRepository) List(_ context.Context) ([]*Series, error) {
	var result []*Series
	for _, series := range repository.rows {
		result = append(result, series)
	}
	return result, nil
}

type fakeMediaRepository struct {
	byPath map[string]*Media
}

func (repository *fakeMediaRepository) Create(_ context.Context, media *Media) error {
	if _, ok := repository.byPath[media.Path]; ok {
		return apperr.Conflict("Media already registered for this path")
	}
	repository.byPath[media.Path] = media
	return nil
}

func (repository *fakeMediaRepository) FindByID(_ context.Context, id string) (*Media, error) {
	for _, media := range repository.byPath {
		if media.ID == id {
			return media, nil
		}
	}
	return nil, apperr.NotFound("Media")
}

func (repository *fakeMediaRepository) FindByPath(_ context.Context, path string) (*Media, error) {
	if media, ok := repository.byPath[path]; ok {
		return media, nil
	}
	return nil, apperr.NotFound("Media")
}

func (repository *fakeMediaRepository) UpdatePageCount(_ context.Context, id string, pageCount int) error {
	media, err := repository.FindByID(context.Background(), id)
	if err != nil {
		return err
	}
	media.PageCount = pageCount
	return nil
}

func (repository *fakeMediaRepository) ListBySeries(_ context.Context, seriesID string) ([]*Media, error) {
	var result []*Media
	for _, media := range repository.byPath {
		if media.SeriesID == seriesID {
			result = append(result, media)
		}
	}
	return result, nil
}

type fakeProgressRepository struct {
	rows map[string]*Progress
}

func (repository *fakeProgressRepository) key(userID, mediaID string) string {
	return userID + "|" + mediaID
}

func (repository *fakeProgressRepository) Upsert(_ context.Context, progress *Progress) (*Progress, error) {
	key := repository.key(progress.UserID, progress.MediaID)
	if existing, ok := repository.rows[key]; ok {
		existing.Page = progress.Page
		existing.IsFinished = progress.IsFinished
		existing.UpdatedAt = time.Now()
		return existing, nil
	}
	stored := *progress
	stored.UpdatedAt = time.Now()
	repository.rows[key] = &stored
	return &stored, nil
}

func (repository *fakeProgressRepository) FindForUser(_ context.Context, userID string, mediaID string) (*Progress, error) {
	if progress, ok := repository.rows[repository.key(userID, mediaID)]; ok {
		return progress, nil
	}
	return nil, apperr.NotFound("Progress")
}

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(
		&fakeSeriesRepository{rows: map[string]*Series{}},
		&fakeMediaRepository{byPath: map[string]*Media{}},
		&fakeProgressRepository{rows: map[string]*Progress{}},
		logger,
	)
}

/*
TestService_Register verifies series reuse across registrations and
idempotency on the archive path.
*/
func TestService_Register(t *testing.T) {
	service := newTestService()

	first, err := service.Register(context.Background(), Registration{
		SeriesTitle: "Planetes",
		SourceType:  SourceUpload,
		MediaTitle:  "Planetes",
		Number:      1,
		Path:        "/library/Planetes/Planetes - Cap 1.cbz",
		Extension:   ".cbz",
		PageCount:   24,
	})
	require.NoError(t, err)
	assert.True(t, first.IsReady)

	t.Run("same_series_title_reuses_series", func(t *testing.T) {
		second, err := service.Register(context.Background(), Registration{
			SeriesTitle: "planetes",
			SourceType:  SourceScan,
			MediaTitle:  "Planetes",
			Number:      2,
			Path:        "/library/Planetes/Planetes - Cap 2.cbz",
			Extension:   ".cbz",
			PageCount:   30,
		})
		require.NoError(t, err)
		assert.Equal(t, first.SeriesID, second.SeriesID)
	})

	t.Run("same_path_returns_existing_record", func(t *testing.T) {
		duplicate, err := service.Register(context.Background(), Registration{
			SeriesTitle: "Planetes",
			SourceType:  SourceScan,
			MediaTitle:  "Planetes",
			Number:      1,
			Path:        "/library/Planetes/Planetes - Cap 1.cbz",
			Extension:   ".cbz",
			PageCount:   24,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, duplicate.ID)
	})

	t.Run("distinct_series_get_distinct_shelves", func(t *testing.T) {
		other, err := service.Register(context.Background(), Registration{
			SeriesTitle: "Monster",
			SourceType:  SourceUpload,
			MediaTitle:  "Monster",
			Number:      1,
			Path:        "/library/Monster/Monster - Cap 1.cbz",
			Extension:   ".cbz",
			PageCount:   18,
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.SeriesID, other.SeriesID)
	})
}

/*
TestService_SaveProgress verifies per-user progress rows are created once
and overwritten on repeat saves.
*/
func TestService_SaveProgress(t *testing.T) {
	service := newTestService()

	media, err := service.Register(context.Background(), Registration{
		SeriesTitle: "Planetes",
		SourceType:  SourceUpload,
		MediaTitle:  "Planetes",
		Number:      1,
		Path:        "/library/Planetes/Planetes - Cap 1.cbz",
		Extension:   ".cbz",
		PageCount:   24,
	})
	require.NoError(t, err)

	first, err := service.SaveProgress(context.Background(), "user-1", media.ID, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Page)
	assert.False(t, first.IsFinished)

	t.Run("repeat_save_overwrites_row", func(t *testing.T) {
		second, err := service.SaveProgress(context.Background(), "user-1", media.ID, 24, true)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 24, second.Page)
		assert.True(t, second.IsFinished)

		stored, err := service.GetProgress(context.Background(), "user-1", media.ID)
		require.NoError(t, err)
		assert.Equal(t, 24, stored.Page)
	})

	t.Run("users_do_not_share_rows", func(t *testing.T) {
		other, err := service.SaveProgress(context.Background(), "user-2", media.ID, 2, false)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, other.ID)
	})

	t.Run("unknown_media_is_rejected", func(t *testing.T) {
		_, err := service.SaveProgress(context.Background(), "user-1", "missing", 1, false)
		assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
	})

	t.Run("negative_page_is_rejected", func(t *testing.T) {
		_, err := service.SaveProgress(context.Background(), "user-1", media.ID, -1, false)
		assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
	})
}
