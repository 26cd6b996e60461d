// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	// Registers the webp decoder; scanlation archives carry webp pages.
	_ "golang.org/x/image/webp"

	"github.com/buivan/tosho/internal/platform/constants"
)

// # Page Transcoding

// rasterPattern matches the source image extensions the transcoder accepts.
var rasterPattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif|bmp|tif|tiff)$`)

/*
transcodeTree walks a work directory and re-encodes every raster image to
JPEG at the configured quality, capped at the configured width.

Description: Images wider than the cap are resized down with Lanczos
resampling, aspect preserved; narrower images are never upscaled. The
original file is replaced (and removed when the extension changes). One
image failing to decode or encode is logged and left as-is; it never aborts
the job.

Parameters:
  - context: context.Context
  - root: string (Work directory to walk)
  - logger: *slog.Logger

Returns:
  - int: Number of images transcoded
  - error: Only walk-level failures; per-image trouble never propagates
*/
func transcodeTree(context context.Context, root string, logger *slog.Logger) (int, error) {
	transcoded := 0

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := context.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !rasterPattern.MatchString(entry.Name()) {
			return nil
		}

		if err := transcodeImage(path); err != nil {
			logger.Warn("transcode_skipped",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil
		}

		transcoded++
		return nil
	})
	if err != nil {
		return transcoded, err
	}

	return transcoded, nil
}

// transcodeImage re-encodes one image in place.
func transcodeImage(path string) error {
	image, err := imaging.Open(path)
	if err != nil {
		return err
	}

	if image.Bounds().Dx() > constants.TranscodeMaxWidth {
		// Height 0 keeps the aspect ratio.
		image = imaging.Resize(image, constants.TranscodeMaxWidth, 0, imaging.Lanczos)
	}

	target := replaceExtension(path, ".jpg")
	if err := imaging.Save(image, target, imaging.JPEGQuality(constants.TranscodeQuality)); err != nil {
		return err
	}

	// A changed extension leaves the source file behind; drop it.
	if target != path {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

// replaceExtension swaps a file's extension, preserving its directory and stem.
func replaceExtension(path string, extension string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + extension
}
