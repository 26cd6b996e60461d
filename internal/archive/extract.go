// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Whole-Archive Extraction

/*
ExtractAll unpacks every file of the archive at sourcePath into destDir,
preserving relative sub-paths. PDF documents are "unpacked" by dumping each
page image as a zero-padded numbered file so the result sorts naturally.

Description: Used by the ingestion pipeline, which always works on a private
work directory. Entry names are confined to destDir; an entry that would
escape it aborts the extraction.

Parameters:
  - context: context.Context
  - sourcePath: string (Archive on disk; format is sniffed, not inferred)
  - destDir: string (Existing directory receiving the extracted tree)

Returns:
  - error: UNSUPPORTED_FORMAT for unknown containers, CORRUPT_ARCHIVE or IO
    failures otherwise
*/
func ExtractAll(context context.Context, sourcePath string, destDir string) error {
	format, err := Detect(sourcePath)
	if err != nil {
		return err
	}

	switch format {
	case FormatZip:
		return extractZip(context, sourcePath, destDir)
	case FormatRar:
		return extractRar(context, sourcePath, destDir)
	case FormatPDF:
		return extractPDF(context, sourcePath, destDir)
	default:
		return apperr.UnsupportedFormat("Archive format is not supported")
	}
}

func extractZip(context context.Context, sourcePath string, destDir string) error {
	container, err := openZip(sourcePath)
	if err != nil {
		return err
	}
	defer container.Close()

	for _, entry := range container.File {
		if err := context.Err(); err != nil {
			return apperr.Internal(err)
		}
		if entry.FileInfo().IsDir() {
			continue
		}

		target, err := securePath(destDir, entry.Name)
		if err != nil {
			return err
		}

		entryStream, err := entry.Open()
		if err != nil {
			return apperr.CorruptArchive(err)
		}
		err = writeExtracted(target, entryStream)
		entryStream.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractRar(context context.Context, sourcePath string, destDir string) error {
	container, err := openRar(sourcePath)
	if err != nil {
		return err
	}
	defer container.Close()

	for {
		if err := context.Err(); err != nil {
			return apperr.Internal(err)
		}

		header, err := container.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperr.CorruptArchive(err)
		}
		if header.IsDir {
			continue
		}

		target, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}
		if err := writeExtracted(target, container); err != nil {
			return err
		}
	}
}

func extractPDF(context context.Context, sourcePath string, destDir string) error {
	document, err := readPDF(sourcePath)
	if err != nil {
		return err
	}

	for page := 1; page <= document.PageCount; page++ {
		if err := context.Err(); err != nil {
			return apperr.Internal(err)
		}

		images, err := pdfcpu.ExtractPageImages(document, page, false)
		if err != nil {
			return apperr.CorruptArchive(err)
		}
		if len(images) == 0 {
			// Text-only or vector pages produce no raster output.
			continue
		}

		image := pickPageImage(images)
		target := filepath.Join(destDir, fmt.Sprintf("page_%04d.%s", page, image.FileType))
		if err := writeExtracted(target, image); err != nil {
			return err
		}
	}
	return nil
}

// securePath joins name under destDir and rejects entries that would resolve
// outside it (zip-slip traversal).
func securePath(destDir string, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", apperr.CorruptArchive(fmt.Errorf("entry escapes destination: %s", name))
	}
	return target, nil
}

// writeExtracted creates parent directories and copies the stream to target.
func writeExtracted(target string, source io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return apperr.IOFailure(err)
	}

	file, err := os.Create(target)
	if err != nil {
		return apperr.IOFailure(err)
	}
	defer file.Close()

	if _, err := io.Copy(file, source); err != nil {
		return apperr.CorruptArchive(err)
	}
	return nil
}
