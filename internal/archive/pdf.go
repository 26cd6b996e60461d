// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # PDF Documents

// pdfReader serves document pages as images.
//
// PDF pages have no file names, so identifiers are a synthetic zero-based
// sequence ("0", "1", …). Each OpenPage re-opens the document and pulls the
// page image for the requested index only.
type pdfReader struct {
	path string
}

/*
ListPages returns the synthetic page identifier sequence.

Description: Every document page is listed, including pages that carry no
embedded raster image; OpenPage answers NOT_FOUND for those. Filtering them
out here would mean extracting every page up front, making a listing as
expensive as reading the whole document, so the sequence stays count-based.

Parameters:
  - context: context.Context

Returns:
  - []string: "0" … "n-1" for an n-page document
  - error: NOT_FOUND, CORRUPT_ARCHIVE or IO failures
*/
func (reader *pdfReader) ListPages(context context.Context) ([]string, error) {
	count, err := api.PageCountFile(reader.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("Archive")
		}
		return nil, apperr.CorruptArchive(err)
	}

	pages := make([]string, count)
	for i := range pages {
		pages[i] = strconv.Itoa(i)
	}
	return pages, nil
}

/*
OpenPage extracts the raster image of one document page.

Description: The whole document is parsed per request; cost grows with
document size. Interactive reading tolerates this because the structure
cache avoids repeated listings and clients fetch one page at a time.

Parameters:
  - context: context.Context
  - name: string (Zero-based page index as produced by ListPages)

Returns:
  - *PageStream: Buffered image stream
  - error: NOT_FOUND for indexes outside the document
*/
func (reader *pdfReader) OpenPage(context context.Context, name string) (*PageStream, error) {
	index, err := strconv.Atoi(name)
	if err != nil || index < 0 {
		return nil, apperr.NotFound("Page")
	}

	document, err := readPDF(reader.path)
	if err != nil {
		return nil, err
	}

	if index >= document.PageCount {
		return nil, apperr.NotFound("Page")
	}

	if err := context.Err(); err != nil {
		return nil, apperr.Internal(err)
	}

	// pdfcpu pages are 1-based.
	images, err := pdfcpu.ExtractPageImages(document, index+1, false)
	if err != nil {
		return nil, apperr.CorruptArchive(err)
	}
	if len(images) == 0 {
		return nil, apperr.NotFound("Page")
	}

	image := pickPageImage(images)
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, apperr.CorruptArchive(err)
	}

	return &PageStream{
		ReadCloser: io.NopCloser(bytes.NewReader(data)),
		Size:       int64(len(data)),
		MIME:       imageMIME(image.FileType),
	}, nil
}

// readPDF parses, validates and optimizes the document. Optimization builds
// the object tables the image extractor depends on.
func readPDF(path string) (*model.Context, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NotFound("Archive")
		}
		return nil, apperr.IOFailure(err)
	}
	defer file.Close()

	document, err := api.ReadValidateAndOptimize(file, model.NewDefaultConfiguration())
	if err != nil {
		return nil, apperr.CorruptArchive(fmt.Errorf("pdfcpu read: %w", err))
	}
	return document, nil
}

// pickPageImage selects the image with the lowest object number so repeated
// requests for the same page return identical bytes.
func pickPageImage(images map[int]model.Image) model.Image {
	lowest := -1
	for objNr := range images {
		if lowest < 0 || objNr < lowest {
			lowest = objNr
		}
	}
	return images[lowest]
}

// imageMIME maps pdfcpu's file type tag onto a content type.
func imageMIME(fileType string) string {
	switch fileType {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tiff", "tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
