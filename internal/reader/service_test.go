// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/tosho/internal/library"
	"github.com/buivan/tosho/internal/platform/apperr"
)

// fakeCatalogue stands in for the library service.

type fakeCatalogue struct {
	media    map[string]*library.Media
	counts   map[string]int
	progress map[string]*library.Progress
}

func (catalogue *fakeCatalogue) GetMedia(_ context.Context, id string) (*library.Media, error) {
	if media, ok := catalogue.media[id]; ok {
		return media, nil
	}
	return nil, apperr.NotFound("Media")
}

func (catalogue *fakeCatalogue) SetPageCount(_ context.Context, id string, pageCount int) error {
	catalogue.counts[id] = pageCount
	return nil
}

func (catalogue *fakeCatalogue) SaveProgress(_ context.Context, userID string, mediaID string, page int, isFinished bool) (*library.Progress, error) {
	progress := &library.Progress{
		ID:         userID + "|" + mediaID,
		UserID:     userID,
		MediaID:    mediaID,
		Page:       page,
		IsFinished: isFinished,
	}
	catalogue.progress[progress.ID] = progress
	return progress, nil
}

func (catalogue *fakeCatalogue) GetProgress(_ context.Context, userID string, mediaID string) (*library.Progress, error) {
	if progress, ok := catalogue.progress[userID+"|"+mediaID]; ok {
		return progress, nil
	}
	return nil, apperr.NotFound("Progress")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildPageArchive writes a two-page CBZ and returns its path.
func buildPageArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chapter.cbz")
	file, err := os.Create(path)
	require.NoError(t, err)

	writer := zip.NewWriter(file)
	for name, data := range map[string][]byte{
		"001.jpg": []byte("first page"),
		"002.jpg": []byte("second page"),
	} {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())

	return path
}

// newReaderFixture builds a service over a real archive with a deliberately
// stale persisted page count.
func newReaderFixture(t *testing.T, stalePageCount int) (*Service, *fakeCatalogue, *library.Media) {
	t.Helper()

	media := &library.Media{
		ID:        "media-1",
		Title:     "Chapter",
		Number:    1,
		Path:      buildPageArchive(t),
		PageCount: stalePageCount,
	}
	catalogue := &fakeCatalogue{
		media:    map[string]*library.Media{media.ID: media},
		counts:   map[string]int{},
		progress: map[string]*library.Progress{},
	}
	cache := NewStructureCache(8, time.Hour, time.Hour, time.Now, discardLogger())
	return NewService(catalogue, cache, discardLogger()), catalogue, media
}

/*
TestService_ChapterInfo verifies the live page count corrects a stale stored
value and that progress is hydrated only for authenticated callers.
*/
func TestService_ChapterInfo(t *testing.T) {
	service, catalogue, media := newReaderFixture(t, 99)

	info, err := service.ChapterInfo(context.Background(), media.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PageCount)
	assert.Equal(t, 2, catalogue.counts[media.ID])
	assert.Nil(t, info.Progress)

	t.Run("authenticated_caller_sees_own_progress", func(t *testing.T) {
		_, err := service.SaveProgress(context.Background(), "user-1", media.ID, 2, false)
		require.NoError(t, err)

		info, err := service.ChapterInfo(context.Background(), media.ID, "user-1")
		require.NoError(t, err)
		require.NotNil(t, info.Progress)
		assert.Equal(t, 2, info.Progress.Page)
	})

	t.Run("caller_without_progress_gets_none", func(t *testing.T) {
		info, err := service.ChapterInfo(context.Background(), media.ID, "user-2")
		require.NoError(t, err)
		assert.Nil(t, info.Progress)
	})

	t.Run("unknown_media_is_not_found", func(t *testing.T) {
		_, err := service.ChapterInfo(context.Background(), "missing", "")
		assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
	})
}

/*
TestService_OpenPage verifies 1-based page resolution against the cached
listing and the bounds behavior.
*/
func TestService_OpenPage(t *testing.T) {
	service, _, media := newReaderFixture(t, 2)

	stream, err := service.OpenPage(context.Background(), media.ID, 1)
	require.NoError(t, err)
	defer stream.Close()

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, []byte("first page"), data)
	assert.Equal(t, "image/jpeg", stream.MIME)

	t.Run("page_zero_is_out_of_range", func(t *testing.T) {
		_, err := service.OpenPage(context.Background(), media.ID, 0)
		assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
	})

	t.Run("page_past_end_is_out_of_range", func(t *testing.T) {
		_, err := service.OpenPage(context.Background(), media.ID, 3)
		assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
	})
}
