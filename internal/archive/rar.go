// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/nwaples/rardecode/v2"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Rar Family (rar / cbr containers)

// rarReader serves pages out of a RAR archive.
//
// RAR offers no incremental per-file streaming primitive here, so OpenPage
// extracts the single requested file into memory and streams the buffer.
// More expensive per page than zip — an accepted tradeoff for simplicity.
type rarReader struct {
	path string
}

/*
ListPages walks the file headers, filters to raster images excluding
directories, and returns the names naturally sorted.

Parameters:
  - context: context.Context

Returns:
  - []string: Ordered page file names
  - error: NOT_FOUND, CORRUPT_ARCHIVE or IO failures
*/
func (reader *rarReader) ListPages(context context.Context) ([]string, error) {
	container, err := openRar(reader.path)
	if err != nil {
		return nil, err
	}
	defer container.Close()

	var pages []string
	for {
		header, err := container.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.CorruptArchive(err)
		}
		if header.IsDir {
			continue
		}
		if isPageImage(header.Name) {
			pages = append(pages, header.Name)
		}
	}

	sortPages(pages)
	return pages, nil
}

/*
OpenPage extracts exactly one file and returns its bytes as a stream.

Parameters:
  - context: context.Context
  - name: string (File name from ListPages)

Returns:
  - *PageStream: Buffered stream; Size is the decompressed length
  - error: NOT_FOUND if no header carries the name
*/
func (reader *rarReader) OpenPage(context context.Context, name string) (*PageStream, error) {
	container, err := openRar(reader.path)
	if err != nil {
		return nil, err
	}
	defer container.Close()

	for {
		header, err := container.Next()
		if errors.Is(err, io.EOF) {
			return nil, apperr.NotFound("Page")
		}
		if err != nil {
			return nil, apperr.CorruptArchive(err)
		}
		if header.IsDir || header.Name != name {
			continue
		}

		// Decompress just this file; the handle can close right after.
		data, err := io.ReadAll(container)
		if err != nil {
			return nil, apperr.CorruptArchive(err)
		}

		return &PageStream{
			ReadCloser: io.NopCloser(bytes.NewReader(data)),
			Size:       int64(len(data)),
			MIME:       pageMIME(name),
		}, nil
	}
}

// openRar opens the archive and maps open failures onto the shared taxonomy.
func openRar(path string) (*rardecode.ReadCloser, error) {
	container, err := rardecode.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("Archive")
		}
		return nil, apperr.CorruptArchive(err)
	}
	return container, nil
}
