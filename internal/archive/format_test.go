// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/tosho/internal/platform/apperr"
)

/*
TestDetect verifies that classification follows the leading magic bytes and
ignores the file extension entirely.
*/
func TestDetect(t *testing.T) {
	directory := t.TempDir()

	writeFile := func(name string, data []byte) string {
		path := filepath.Join(directory, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	tests := []struct {
		name     string
		path     string
		expected Format
	}{
		{
			name:     "zip_signature",
			path:     writeFile("comic.cbz", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}),
			expected: FormatZip,
		},
		{
			name:     "rar_signature",
			path:     writeFile("comic.cbr", []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07}),
			expected: FormatRar,
		},
		{
			name:     "pdf_signature",
			path:     writeFile("book.pdf", []byte("%PDF-1.7\n")),
			expected: FormatPDF,
		},
		{
			name:     "zip_bytes_behind_rar_extension",
			path:     writeFile("disguised.cbr", []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}),
			expected: FormatZip,
		},
		{
			name:     "unknown_signature",
			path:     writeFile("noise.bin", []byte{0xDE, 0xAD, 0xBE, 0xEF}),
			expected: FormatUnknown,
		},
		{
			name:     "file_shorter_than_signature",
			path:     writeFile("tiny.cbz", []byte{0x50, 0x4B}),
			expected: FormatUnknown,
		},
		{
			name:     "empty_file",
			path:     writeFile("empty.cbz", nil),
			expected: FormatUnknown,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			format, err := Detect(test.path)

			require.NoError(t, err)
			assert.Equal(t, test.expected, format)
		})
	}
}

/*
TestDetect_MissingFile verifies that a nonexistent path maps onto the shared
NOT_FOUND code rather than a raw filesystem error.
*/
func TestDetect_MissingFile(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "missing.cbz"))

	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "NOT_FOUND"))
}

/*
TestNewReader verifies that the sniffed format selects the reader and that
unknown containers are rejected as unsupported.
*/
func TestNewReader(t *testing.T) {
	directory := t.TempDir()

	zipPath := filepath.Join(directory, "real.cbr")
	buildZip(t, zipPath, map[string][]byte{"001.jpg": []byte("jpeg bytes")})

	t.Run("zip_payload_routes_to_zip_reader", func(t *testing.T) {
		reader, format, err := NewReader(zipPath)

		require.NoError(t, err)
		assert.Equal(t, FormatZip, format)

		pages, err := reader.ListPages(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"001.jpg"}, pages)
	})

	t.Run("unknown_format_is_unsupported", func(t *testing.T) {
		noisePath := filepath.Join(directory, "noise.cbz")
		require.NoError(t, os.WriteFile(noisePath, []byte{0x00, 0x01, 0x02, 0x03}, 0o644))

		_, _, err := NewReader(noisePath)

		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, "UNSUPPORTED_FORMAT"))
	})
}

// buildZip writes a zip archive containing the given entries.
func buildZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

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
}
