// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingest turns accepted uploads into canonical library archives.

Architecture:

  - Pipeline: the single-job workflow — sniff, extract, transcode, resolve
    metadata, repackage, register.
  - Queue: a bounded, single-worker job queue; uploads are acknowledged
    before their job runs, so job outcomes surface only in logs.
  - Handler: the multipart upload endpoint that spools to the temp root and
    enqueues.
*/
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/buivan/tosho/internal/archive"
	"github.com/buivan/tosho/internal/library"
	"github.com/buivan/tosho/internal/metadata"
	"github.com/buivan/tosho/internal/platform/apperr"
	"github.com/buivan/tosho/pkg/sanitize"
)

// # Pipeline

// Job describes one upload awaiting ingestion.
type Job struct {
	// TempPath is the spooled upload on disk.
	TempPath string
	// OriginalName is the client's filename, the metadata resolver's input.
	OriginalName string
}

// Catalogue is the slice of the library service the pipeline needs.
type Catalogue interface {
	Register(context context.Context, registration library.Registration) (*library.Media, error)
}

// Pipeline executes ingestion jobs one at a time.
type Pipeline struct {
	libraryPath string
	tempPath    string
	catalogue   Catalogue
	resolver    *metadata.Resolver
	logger      *slog.Logger
}

// NewPipeline wires the ingestion pipeline.
func NewPipeline(libraryPath string, tempPath string, catalogue Catalogue, resolver *metadata.Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		libraryPath: libraryPath,
		tempPath:    tempPath,
		catalogue:   catalogue,
		resolver:    resolver,
		logger:      logger,
	}
}

/*
Run executes one ingestion job end to end.

Description: All intermediate work happens in an isolated directory under
the temp root. On success both the work directory and the spooled upload
are removed. On failure the work directory is removed but the upload is
kept for manual recovery, and the error is returned for logging; a failed
job never poisons subsequent ones.

Parameters:
  - context: context.Context
  - job: Job

Returns:
  - *library.Media: The registered record
  - error: Any step failure, already mapped onto the shared taxonomy
*/
func (pipeline *Pipeline) Run(context context.Context, job Job) (*library.Media, error) {
	started := time.Now()

	// Isolated work directory: sanitized name plus a uniqueness token.
	workdir := filepath.Join(pipeline.tempPath, fmt.Sprintf("%s_%d", sanitize.FileName(job.OriginalName), started.UnixMilli()))
	if _, err := os.Stat(workdir); err == nil {
		// A stale twin from a crashed run; replace it.
		if err := os.RemoveAll(workdir); err != nil {
			return nil, apperr.IOFailure(err)
		}
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		return nil, apperr.IOFailure(err)
	}

	media, err := pipeline.run(context, job, workdir)

	// The work directory goes either way; the upload survives failures.
	if removeErr := os.RemoveAll(workdir); removeErr != nil {
		pipeline.logger.Warn("workdir_cleanup_failed",
			slog.String("workdir", workdir),
			slog.String("error", removeErr.Error()),
		)
	}
	if err != nil {
		return nil, err
	}
	if err := os.Remove(job.TempPath); err != nil {
		pipeline.logger.Warn("upload_cleanup_failed",
			slog.String("path", job.TempPath),
			slog.String("error", err.Error()),
		)
	}

	pipeline.logger.Info("ingest_job_finished",
		slog.String("file", job.OriginalName),
		slog.String("media_id", media.ID),
		slog.Duration("took", time.Since(started)),
	)
	return media, nil
}

// run is the failable middle of the job; Run owns setup and cleanup.
func (pipeline *Pipeline) run(context context.Context, job Job, workdir string) (*library.Media, error) {

	// True type first; the extension has no say.
	format, err := archive.Detect(job.TempPath)
	if err != nil {
		return nil, err
	}
	if format == archive.FormatUnknown {
		return nil, apperr.UnsupportedFormat("Upload is not a recognized archive")
	}

	if err := archive.ExtractAll(context, job.TempPath, workdir); err != nil {
		return nil, err
	}

	transcoded, err := transcodeTree(context, workdir, pipeline.logger)
	if err != nil {
		return nil, apperr.IOFailure(err)
	}

	resolved := pipeline.resolver.Resolve(context, job.TempPath, job.OriginalName)

	// Destination: library root / series folder / canonical archive name.
	seriesFolder := sanitize.FolderName(resolved.Title)
	destDir := filepath.Join(pipeline.libraryPath, seriesFolder)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, apperr.IOFailure(err)
	}
	destPath := filepath.Join(destDir, canonicalName(resolved))

	if err := archive.WriteArchive(workdir, destPath); err != nil {
		return nil, err
	}

	pageCount, err := countArchivePages(context, destPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(destPath)
	if err != nil {
		return nil, apperr.IOFailure(err)
	}

	media, err := pipeline.catalogue.Register(context, library.Registration{
		SeriesTitle: resolved.Title,
		FolderPath:  destDir,
		SourceType:  library.SourceUpload,
		MediaTitle:  resolved.Title,
		Number:      resolved.Number,
		Volume:      resolved.Volume,
		Year:        resolved.Year,
		Path:        destPath,
		Extension:   ".cbz",
		PageCount:   pageCount,
		SizeBytes:   info.Size(),
		IsOneShot:   resolved.IsOneShot,
	})
	if err != nil {
		return nil, err
	}

	pipeline.logger.Info("ingest_repackaged",
		slog.String("file", job.OriginalName),
		slog.String("format", format.String()),
		slog.String("destination", destPath),
		slog.Int("pages", pageCount),
		slog.Int("transcoded", transcoded),
	)
	return media, nil
}

// canonicalName builds "<title> - Cap <number>[ Vol <volume>].cbz".
func canonicalName(resolved metadata.Resolved) string {
	name := fmt.Sprintf("%s - Cap %s", resolved.Title, formatNumber(resolved.Number))
	if resolved.Volume != nil {
		name += " Vol " + formatNumber(*resolved.Volume)
	}
	return sanitize.FileName(name + ".cbz")
}

// formatNumber renders 10.5 as "10.5" and 7 as "7".
func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// countArchivePages sizes the finished archive.
func countArchivePages(context context.Context, path string) (int, error) {
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
