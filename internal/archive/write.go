// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Repackaging

/*
WriteArchive packs the file tree rooted at sourceDir into a zip archive at
destPath, using forward-slash relative entry names and Deflate compression.

Description: Final step of ingestion; the work directory holding transcoded
pages becomes the canonical .cbz. A partial archive left by a failed pack is
removed so the library never sees a half-written file.

Parameters:
  - sourceDir: string (Directory whose contents become the archive)
  - destPath: string (Target archive path; overwritten if present)

Returns:
  - error: IO failures while walking, compressing or flushing
*/
func WriteArchive(sourceDir string, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return apperr.IOFailure(err)
	}

	writer := zip.NewWriter(destFile)

	err = filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}

		header := &zip.FileHeader{
			Name:   filepath.ToSlash(relative),
			Method: zip.Deflate,
		}
		entryWriter, err := writer.CreateHeader(header)
		if err != nil {
			return err
		}

		sourceFile, err := os.Open(path)
		if err != nil {
			return err
		}
		defer sourceFile.Close()

		_, err = io.Copy(entryWriter, sourceFile)
		return err
	})

	if err == nil {
		err = writer.Close()
	} else {
		_ = writer.Close()
	}
	if closeErr := destFile.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(destPath)
		return apperr.IOFailure(err)
	}
	return nil
}
