// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package archive implements the container abstraction over comic/ebook
archives: true-type detection, format-agnostic page listing, random-access
page streaming, and whole-archive extraction for the ingestion pipeline.

Architecture:

  - Format: a closed variant produced by magic-byte sniffing. Extraction and
    read strategy follow the sniffed format, never the file extension, so a
    mislabeled or disguised upload cannot route into the wrong parser.
  - Reader: one capability interface (ListPages/OpenPage) with one
    implementation per format.
  - PageStream: a byte stream with a known length whose underlying handle is
    released exactly once, on whichever of end/error/close fires first.
*/
package archive

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/buivan/tosho/internal/platform/apperr"
)

// Format identifies the true container type of an archive file.
type Format int

const (
	// FormatUnknown means no known signature matched.
	FormatUnknown Format = iota
	// FormatZip covers zip, cbz and epub (epub is a zip container).
	FormatZip
	// FormatRar covers cbr and rar; the 4-byte prefix is shared by RAR v4 and v5.
	FormatRar
	// FormatPDF is a PDF document.
	FormatPDF
)

// String returns the lowercase format name for logs.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatRar:
		return "rar"
	case FormatPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// Magic byte signatures, all 4 bytes long.
var (
	sigZip = []byte{0x50, 0x4B, 0x03, 0x04} // PK..
	sigRar = []byte{0x52, 0x61, 0x72, 0x21} // Rar!
	sigPDF = []byte{0x25, 0x50, 0x44, 0x46} // %PDF
)

// Detect reads the leading 4 bytes of the file and classifies them against
// the known container signatures.
//
// The declared extension plays no part in the result. A file shorter than
// 4 bytes classifies as [FormatUnknown]; an unreadable file is an error.
func Detect(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FormatUnknown, apperr.NotFound("Archive")
		}
		return FormatUnknown, apperr.IOFailure(err)
	}
	defer file.Close()

	header := make([]byte, 4)
	n, err := io.ReadFull(file, header)
	if err != nil {
		// Tiny files cannot carry any supported container.
		if n < len(header) && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return FormatUnknown, nil
		}
		return FormatUnknown, apperr.IOFailure(err)
	}

	switch {
	case bytes.Equal(header, sigZip):
		return FormatZip, nil
	case bytes.Equal(header, sigRar):
		return FormatRar, nil
	case bytes.Equal(header, sigPDF):
		return FormatPDF, nil
	default:
		return FormatUnknown, nil
	}
}
