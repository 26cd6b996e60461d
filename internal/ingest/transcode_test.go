// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/tosho/internal/platform/constants"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeTestImage renders a solid-color image of the given geometry.
func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	image := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	require.NoError(t, imaging.Save(image, path))
}

/*
TestTranscodeTree verifies the width cap, the no-upscale rule, the JPEG
rewrite and the skip-on-failure policy.
*/
func TestTranscodeTree(t *testing.T) {
	directory := t.TempDir()

	writeTestImage(t, filepath.Join(directory, "wide.png"), constants.TranscodeMaxWidth+400, 600)
	writeTestImage(t, filepath.Join(directory, "narrow.png"), 800, 1200)
	require.NoError(t, os.WriteFile(filepath.Join(directory, "broken.jpg"), []byte("not an image"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "notes.txt"), []byte("ignored"), 0o644))

	transcoded, err := transcodeTree(context.Background(), directory, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, transcoded)

	t.Run("wide_image_capped_at_max_width", func(t *testing.T) {
		image, err := imaging.Open(filepath.Join(directory, "wide.jpg"))
		require.NoError(t, err)
		assert.Equal(t, constants.TranscodeMaxWidth, image.Bounds().Dx())
		assert.NoFileExists(t, filepath.Join(directory, "wide.png"))
	})

	t.Run("narrow_image_not_upscaled", func(t *testing.T) {
		image, err := imaging.Open(filepath.Join(directory, "narrow.jpg"))
		require.NoError(t, err)
		assert.Equal(t, 800, image.Bounds().Dx())
	})

	t.Run("undecodable_image_left_in_place", func(t *testing.T) {
		assert.FileExists(t, filepath.Join(directory, "broken.jpg"))
	})

	t.Run("non_image_untouched", func(t *testing.T) {
		assert.FileExists(t, filepath.Join(directory, "notes.txt"))
	})
}
