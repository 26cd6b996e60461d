// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"archive/zip"
	"context"
	"errors"
	"io/fs"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Zip Family (zip / cbz / epub containers)

// zipReader serves pages out of a zip-family archive.
//
// Every call opens a fresh enumeration of the central directory and walks it
// forward-only. OpenPage scans entries sequentially until the requested name
// matches, mirroring the absence of a random-access index.
type zipReader struct {
	path string
}

/*
ListPages enumerates raster image entries, excluding directories, and
returns their names naturally sorted.

Parameters:
  - context: context.Context

Returns:
  - []string: Ordered page entry names
  - error: NOT_FOUND, CORRUPT_ARCHIVE or IO failures
*/
func (reader *zipReader) ListPages(context context.Context) ([]string, error) {
	container, err := openZip(reader.path)
	if err != nil {
		return nil, err
	}
	// Listing fully consumes the enumeration, so the handle closes here.
	defer container.Close()

	var pages []string
	for _, entry := range container.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if isPageImage(entry.Name) {
			pages = append(pages, entry.Name)
		}
	}

	sortPages(pages)
	return pages, nil
}

/*
OpenPage scans entries sequentially for the given name and streams its
decompressed bytes.

Description: The zip handle stays open for the lifetime of the returned
stream and is released exactly once when the stream ends, errors, or is
closed. The exact uncompressed size is reported so the transport can emit
a correct Content-Length before any bytes flow.

Parameters:
  - context: context.Context
  - name: string (Entry name from ListPages)

Returns:
  - *PageStream: Decompressing stream over the entry
  - error: NOT_FOUND if no entry carries the name
*/
func (reader *zipReader) OpenPage(context context.Context, name string) (*PageStream, error) {
	container, err := openZip(reader.path)
	if err != nil {
		return nil, err
	}

	for _, entry := range container.File {
		if entry.Name != name {
			continue
		}

		entryStream, err := entry.Open()
		if err != nil {
			_ = container.Close()
			return nil, apperr.CorruptArchive(err)
		}

		return &PageStream{
			ReadCloser: newReleaseReader(entryStream, container, entryStream),
			Size:       int64(entry.UncompressedSize64),
			MIME:       pageMIME(name),
		}, nil
	}

	// Enumeration exhausted without a match.
	_ = container.Close()
	return nil, apperr.NotFound("Page")
}

// openZip opens the archive and maps open failures onto the shared taxonomy.
func openZip(path string) (*zip.ReadCloser, error) {
	container, err := zip.OpenReader(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, apperr.NotFound("Archive")
		case errors.Is(err, zip.ErrFormat):
			return nil, apperr.CorruptArchive(err)
		default:
			return nil, apperr.IOFailure(err)
		}
	}
	return container, nil
}
