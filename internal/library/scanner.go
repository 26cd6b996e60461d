// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/buivan/tosho/internal/archive"
	"github.com/buivan/tosho/internal/metadata"
)

// # Filesystem Scanner

// scannableExtensions filters the walk to containers the read path can serve.
var scannableExtensions = map[string]bool{
	".cbz":  true,
	".cbr":  true,
	".pdf":  true,
	".epub": true,
	".zip":  true,
}

// Scanner walks the library tree and registers archives that reached the
// disk without passing through the ingestion pipeline.
type Scanner struct {
	service     *Service
	resolver    *metadata.Resolver
	logger      *slog.Logger
	libraryPath string
}

// NewScanner wires a scanner over the configured library root.
func NewScanner(service *Service, resolver *metadata.Resolver, libraryPath string, logger *slog.Logger) *Scanner {
	return &Scanner{
		service:     service,
		resolver:    resolver,
		logger:      logger,
		libraryPath: libraryPath,
	}
}

/*
Scan walks the library root and registers every unknown archive.

Description: Runs to completion regardless of per-file failures; a file
that cannot be opened or parsed is logged and skipped. Already-registered
paths are recognized by the catalogue and left untouched, so repeated scans
converge. Callers run this detached; duration is unbounded on large trees.

Parameters:
  - context: context.Context

Returns:
  - int: Number of files newly registered
  - error: Only walk-level failures (unreadable root); per-file trouble never
    propagates
*/
func (scanner *Scanner) Scan(context context.Context) (int, error) {
	scanner.logger.Info("library_scan_started", slog.String("root", scanner.libraryPath))

	registered := 0
	err := filepath.WalkDir(scanner.libraryPath, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := context.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			// Hidden directories hold sidecar data, never media.
			if strings.HasPrefix(name, ".") && path != scanner.libraryPath {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if !scannableExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		if scanner.scanFile(context, path, entry) {
			registered++
		}
		return nil
	})
	if err != nil {
		scanner.logger.Error("library_scan_failed",
			slog.String("root", scanner.libraryPath),
			slog.String("error", err.Error()),
		)
		return registered, err
	}

	scanner.logger.Info("library_scan_finished",
		slog.String("root", scanner.libraryPath),
		slog.Int("registered", registered),
	)
	return registered, nil
}

// scanFile registers one archive; returns true when a new record was made.
func (scanner *Scanner) scanFile(context context.Context, path string, entry fs.DirEntry) bool {

	// Skip files the catalogue already owns before any parsing work
	if _, err := scanner.service.media.FindByPath(context, path); err == nil {
		return false
	}

	pageCount, err := countPages(context, path)
	if err != nil {
		scanner.logger.Warn("library_scan_file_skipped",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false
	}

	info, err := entry.Info()
	if err != nil {
		scanner.logger.Warn("library_scan_file_skipped",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false
	}

	resolved := scanner.resolver.Resolve(context, path, entry.Name())

	_, err = scanner.service.Register(context, Registration{
		SeriesTitle: resolved.Title,
		FolderPath:  filepath.Dir(path),
		SourceType:  SourceScan,
		MediaTitle:  resolved.Title,
		Number:      resolved.Number,
		Volume:      resolved.Volume,
		Year:        resolved.Year,
		Path:        path,
		Extension:   strings.ToLower(filepath.Ext(path)),
		PageCount:   pageCount,
		SizeBytes:   info.Size(),
		IsOneShot:   resolved.IsOneShot,
	})
	if err != nil {
		scanner.logger.Warn("library_scan_file_skipped",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}

// countPages opens the archive once to size it. EPUBs legitimately report
// zero pages; they are registered for their metadata.
func countPages(context context.Context, path string) (int, error) {
	reader, _, err := archive.NewReader(path)
	if err != nil {
		return 0, err
	}

	pages, err := reader.ListPages(context)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}
