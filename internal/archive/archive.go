// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/natural"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// # Capability Interface

// Reader exposes uniform page access over one archive path.
//
// Implementations open a fresh underlying handle per call; a Reader value
// itself holds no open resources and is safe for concurrent use. Failure
// taxonomy is shared across formats: missing path → NOT_FOUND, unparsable
// headers → CORRUPT_ARCHIVE, absent page name → NOT_FOUND.
type Reader interface {

	/*
		ListPages returns the ordered page identifiers inside the archive.

		Parameters:
		  - context: context.Context

		Returns:
		  - []string: Page identifiers in natural (numeric-aware) order
		  - error: NOT_FOUND, CORRUPT_ARCHIVE or IO failures
	*/
	ListPages(context context.Context) ([]string, error)

	/*
		OpenPage opens a single page for streaming.

		Parameters:
		  - context: context.Context
		  - name: string (A page identifier previously returned by ListPages)

		Returns:
		  - *PageStream: Byte stream with known length; caller must Close
		  - error: NOT_FOUND if the identifier is absent from the archive
	*/
	OpenPage(context context.Context, name string) (*PageStream, error)
}

// PageStream is an open page: a byte stream plus the metadata a transport
// needs to emit correct headers before the first byte is sent.
type PageStream struct {
	io.ReadCloser

	// Size is the exact uncompressed byte length, or -1 when unknown.
	Size int64

	// MIME is the content type of the page bytes.
	MIME string
}

// NewReader sniffs the true container format of path and returns the
// matching [Reader] implementation.
//
// EPUB files sniff as zip and flow through the zip reader: their page list
// is simply empty unless the container happens to hold raster images.
func NewReader(path string) (Reader, Format, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, FormatUnknown, err
	}

	switch format {
	case FormatZip:
		return &zipReader{path: path}, format, nil
	case FormatRar:
		return &rarReader{path: path}, format, nil
	case FormatPDF:
		return &pdfReader{path: path}, format, nil
	default:
		return nil, FormatUnknown, apperr.UnsupportedFormat("Archive format is not supported")
	}
}

// # Page Selection & Ordering

// imagePattern matches the raster page extensions a reader client can display.
var imagePattern = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif|avif)$`)

// isPageImage reports whether an entry name denotes a displayable page.
// Directory entries (trailing slash) never qualify.
func isPageImage(name string) bool {
	if strings.HasSuffix(name, "/") {
		return false
	}
	return imagePattern.MatchString(name)
}

// sortPages orders page identifiers with a case-insensitive natural sort,
// so "page2" precedes "page10" and ordering is stable across calls.
func sortPages(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return natural.Less(strings.ToLower(names[i]), strings.ToLower(names[j]))
	})
}

// pageMIME derives the content type from the page identifier's extension,
// defaulting to webp (the optimizer's historic output) when unknown.
func pageMIME(name string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(name)); mimeType != "" {
		return mimeType
	}
	return "image/webp"
}

// # Deferred Resource Release

// releaseReader couples a page stream to the archive handles beneath it.
//
// The handles must outlive the stream: closing them as soon as the stream is
// handed out corrupts in-flight reads. Release is therefore triggered by
// whichever of {read-to-end, read error, explicit Close} happens first, and
// sync.Once guarantees it runs exactly once.
type releaseReader struct {
	reader  io.Reader
	once    sync.Once
	closers []io.Closer
	err     error
}

func newReleaseReader(reader io.Reader, closers ...io.Closer) *releaseReader {
	return &releaseReader{reader: reader, closers: closers}
}

// Read forwards to the wrapped reader and releases on terminal conditions.
func (r *releaseReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if err != nil {
		// io.EOF and real errors both end the stream's lifetime.
		r.release()
	}
	return n, err
}

// Close releases the underlying handles. Safe to call more than once.
func (r *releaseReader) Close() error {
	r.release()
	return r.err
}

func (r *releaseReader) release() {
	r.once.Do(func() {
		// Close in reverse acquisition order (entry before container).
		for i := len(r.closers) - 1; i >= 0; i-- {
			if err := r.closers[i].Close(); err != nil && r.err == nil {
				r.err = err
			}
		}
	})
}
