// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metadata

import (
	"archive/zip"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// buildZipWith writes a zip archive holding the given entries.
func buildZipWith(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	writer := zip.NewWriter(file)
	for name, data := range entries {
		entryWriter, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entryWriter.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
}

/*
TestExtractInternal_ComicInfo verifies field extraction from an embedded
ComicInfo.xml document.
*/
func TestExtractInternal_ComicInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comic.cbz")
	buildZipWith(t, path, map[string]string{
		"001.jpg": "page",
		"ComicInfo.xml": `<?xml version="1.0"?>
<ComicInfo>
  <Series>Planetes</Series>
  <Number>10.5</Number>
  <Volume>2</Volume>
  <Year>2001</Year>
  <Writer>Makoto Yukimura</Writer>
</ComicInfo>`,
	})

	internal, err := ExtractInternal(context.Background(), path)

	require.NoError(t, err)
	require.NotNil(t, internal)
	assert.Equal(t, "Planetes", internal.Title)
	assert.Equal(t, "Makoto Yukimura", internal.Author)
	require.NotNil(t, internal.Number)
	assert.Equal(t, 10.5, *internal.Number)
	require.NotNil(t, internal.Volume)
	assert.Equal(t, float64(2), *internal.Volume)
	require.NotNil(t, internal.Year)
	assert.Equal(t, 2001, *internal.Year)
}

/*
TestExtractInternal_OPF verifies Dublin Core extraction from an EPUB-style
OPF package, independent of namespace prefixes.
*/
func TestExtractInternal_OPF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	buildZipWith(t, path, map[string]string{
		"mimetype": "application/epub+zip",
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <metadata>
    <dc:title>All You Need Is Kill</dc:title>
    <dc:creator>Hiroshi Sakurazaka</dc:creator>
  </metadata>
</package>`,
	})

	internal, err := ExtractInternal(context.Background(), path)

	require.NoError(t, err)
	require.NotNil(t, internal)
	assert.Equal(t, "All You Need Is Kill", internal.Title)
	assert.Equal(t, "Hiroshi Sakurazaka", internal.Author)
}

/*
TestExtractInternal_NoDocument verifies that a container without any
metadata document yields no contribution and no error.
*/
func TestExtractInternal_NoDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comic.cbz")
	buildZipWith(t, path, map[string]string{"001.jpg": "page"})

	internal, err := ExtractInternal(context.Background(), path)

	require.NoError(t, err)
	assert.Nil(t, internal)
}

/*
TestMerge verifies the per-field precedence, the zero-preserving presence
semantics and the heuristic monopoly on one-shot classification.
*/
func TestMerge(t *testing.T) {
	t.Run("internal_title_beats_heuristic", func(t *testing.T) {
		internal := &Internal{Title: "Planetes"}
		heuristic := Parsed{Title: "Planets Scanned", Number: 3}

		resolved := merge(internal, heuristic, nil)

		assert.Equal(t, "Planetes", resolved.Title)
	})

	t.Run("generic_internal_title_is_rejected", func(t *testing.T) {
		internal := &Internal{Title: "Microsoft Word - final.doc"}
		heuristic := Parsed{Title: "Real Title", Number: 3}

		resolved := merge(internal, heuristic, nil)

		assert.Equal(t, "Real Title", resolved.Title)
	})

	t.Run("internal_zero_number_wins_by_presence", func(t *testing.T) {
		zero := float64(0)
		internal := &Internal{Title: "Series", Number: &zero}
		heuristic := Parsed{Title: "Series", Number: 7}

		resolved := merge(internal, heuristic, nil)

		assert.Equal(t, float64(0), resolved.Number)
	})

	t.Run("one_shot_always_from_heuristic", func(t *testing.T) {
		five := float64(5)
		internal := &Internal{Title: "Series", Number: &five}
		heuristic := Parsed{Title: "Series", Number: 1, IsOneShot: true}

		resolved := merge(internal, heuristic, nil)

		assert.True(t, resolved.IsOneShot)
		assert.Equal(t, float64(5), resolved.Number)
	})

	t.Run("ai_fills_only_absent_fields", func(t *testing.T) {
		year := 1997
		volume := float64(4)
		guess := &AIGuess{Series: "Guessed", Volume: &volume, Year: &year}
		heuristic := Parsed{Title: UnknownTitle, Number: 1, IsOneShot: true}

		resolved := merge(&Internal{}, heuristic, guess)

		assert.Equal(t, "Guessed", resolved.Title)
		assert.Equal(t, float64(1), resolved.Number)
		require.NotNil(t, resolved.Volume)
		assert.Equal(t, float64(4), *resolved.Volume)
		require.NotNil(t, resolved.Year)
		assert.Equal(t, 1997, *resolved.Year)
	})
}

/*
TestResolver_Resolve verifies the AI fallback trigger and its non-fatal
failure mode end to end against a stub assistant.
*/
func TestResolver_Resolve(t *testing.T) {
	directory := t.TempDir()
	bare := filepath.Join(directory, "c001.cbz")
	buildZipWith(t, bare, map[string]string{"001.jpg": "page"})

	t.Run("low_confidence_consults_assistant", func(t *testing.T) {
		var prompted bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prompted = true
			guess, _ := json.Marshal(map[string]any{"series": "Recovered Series", "number": 1})
			json.NewEncoder(w).Encode(map[string]string{"response": string(guess)})
		}))
		defer server.Close()

		resolver := NewResolver(NewAIClient(server.URL, "phi3:mini"), testLogger())
		resolved := resolver.Resolve(context.Background(), bare, "c001.cbz")

		assert.True(t, prompted)
		assert.Equal(t, "Recovered Series", resolved.Title)
	})

	t.Run("assistant_failure_is_not_fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		resolver := NewResolver(NewAIClient(server.URL, "phi3:mini"), testLogger())
		resolved := resolver.Resolve(context.Background(), bare, "c001.cbz")

		assert.Equal(t, UnknownTitle, resolved.Title)
		assert.Equal(t, float64(1), resolved.Number)
	})

	t.Run("confident_result_skips_assistant", func(t *testing.T) {
		var prompted bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prompted = true
		}))
		defer server.Close()

		confident := filepath.Join(directory, "named.cbz")
		buildZipWith(t, confident, map[string]string{"001.jpg": "page"})

		resolver := NewResolver(NewAIClient(server.URL, "phi3:mini"), testLogger())
		resolved := resolver.Resolve(context.Background(), confident, "Naruto c045.cbz")

		assert.False(t, prompted)
		assert.Equal(t, "Naruto", resolved.Title)
		assert.Equal(t, float64(45), resolved.Number)
	})
}
