// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/tosho/internal/library"
	"github.com/buivan/tosho/internal/metadata"
	"github.com/buivan/tosho/internal/platform/apperr"
	"github.com/buivan/tosho/pkg/uuid"
)

// fakeCatalogue records registrations without a database.
type fakeCatalogue struct {
	registrations []library.Registration
}

func (catalogue *fakeCatalogue) Register(_ context.Context, registration library.Registration) (*library.Media, error) {
	catalogue.registrations = append(catalogue.registrations, registration)
	return &library.Media{
		ID:        uuid.New(),
		Title:     registration.MediaTitle,
		Number:    registration.Number,
		Path:      registration.Path,
		PageCount: registration.PageCount,
		IsReady:   true,
	}, nil
}

// encodePNG renders a small page image in memory.
func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buffer bytes.Buffer
	image := imaging.New(width, height, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	require.NoError(t, imaging.Encode(&buffer, image, imaging.PNG))
	return buffer.Bytes()
}

// spoolZip writes a cbz-style upload into the temp root.
func spoolZip(t *testing.T, tempPath string, entries map[string][]byte) string {
	t.Helper()

	path := filepath.Join(tempPath, "upload.bin")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := zip.NewWriter(file)
	for name, data := range entries {
		entryWriter, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entryWriter.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return path
}

func newTestPipeline(t *testing.T, catalogue Catalogue) (*Pipeline, string, string) {
	t.Helper()
	libraryPath := t.TempDir()
	tempPath := t.TempDir()
	resolver := metadata.NewResolver(nil, quietLogger())
	return NewPipeline(libraryPath, tempPath, catalogue, resolver, quietLogger()), libraryPath, tempPath
}

/*
TestPipeline_Run verifies the happy path: extraction, transcoding,
canonical naming under the series folder, registration and cleanup.
*/
func TestPipeline_Run(t *testing.T) {
	catalogue := &fakeCatalogue{}
	pipeline, libraryPath, tempPath := newTestPipeline(t, catalogue)

	upload := spoolZip(t, tempPath, map[string][]byte{
		"001.png": encodePNG(t, 400, 600),
		"002.png": encodePNG(t, 400, 600),
	})

	media, err := pipeline.Run(context.Background(), Job{TempPath: upload, OriginalName: "Naruto v03 c045.cbz"})
	require.NoError(t, err)

	destination := filepath.Join(libraryPath, "Naruto", "Naruto - Cap 45 Vol 3.cbz")
	assert.FileExists(t, destination)

	require.Len(t, catalogue.registrations, 1)
	registration := catalogue.registrations[0]
	assert.Equal(t, "Naruto", registration.SeriesTitle)
	assert.Equal(t, float64(45), registration.Number)
	assert.Equal(t, destination, registration.Path)
	assert.Equal(t, 2, registration.PageCount)
	assert.Equal(t, library.SourceUpload, registration.SourceType)
	assert.Equal(t, 2, media.PageCount)

	t.Run("temp_upload_and_workdir_removed", func(t *testing.T) {
		assert.NoFileExists(t, upload)
		assertNoDirectories(t, tempPath)
	})
}

/*
TestPipeline_Run_UnknownFormat verifies the failure contract: the work
directory is gone, the upload survives for manual recovery.
*/
func TestPipeline_Run_UnknownFormat(t *testing.T) {
	catalogue := &fakeCatalogue{}
	pipeline, _, tempPath := newTestPipeline(t, catalogue)

	upload := filepath.Join(tempPath, "noise.cbz")
	require.NoError(t, os.WriteFile(upload, []byte{0x00, 0x01, 0x02, 0x03}, 0o644))

	_, err := pipeline.Run(context.Background(), Job{TempPath: upload, OriginalName: "noise.cbz"})

	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UNSUPPORTED_FORMAT"))
	assert.FileExists(t, upload)
	assertNoDirectories(t, tempPath)
	assert.Empty(t, catalogue.registrations)
}

/*
TestPipeline_Run_CorruptArchive verifies that a container with valid magic
bytes but unparsable structure fails the job without losing the upload.
*/
func TestPipeline_Run_CorruptArchive(t *testing.T) {
	catalogue := &fakeCatalogue{}
	pipeline, _, tempPath := newTestPipeline(t, catalogue)

	// Zip magic followed by garbage.
	upload := filepath.Join(tempPath, "torn.cbz")
	require.NoError(t, os.WriteFile(upload, append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("garbage")...), 0o644))

	_, err := pipeline.Run(context.Background(), Job{TempPath: upload, OriginalName: "torn.cbz"})

	require.Error(t, err)
	assert.FileExists(t, upload)
	assertNoDirectories(t, tempPath)
}

// assertNoDirectories checks the temp root holds no leftover work directories.
func assertNoDirectories(t *testing.T, root string) {
	t.Helper()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, entry.IsDir(), "leftover directory %s", entry.Name())
	}
}
