// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package library manages the media catalogue: series grouping, media records,
and discovery of pre-existing files on disk.

Architecture:

  - Series / Media: persisted entities backed by PostgreSQL repositories.
  - Service: registration and listing operations shared by the ingestion
    pipeline and the filesystem scanner.
  - Scanner: a detached walk over the library tree that registers files the
    pipeline never saw (side-loaded or pre-existing).
*/
package library

import "time"

// Source types recorded on a series, by origin of its first media.
const (
	SourceUpload = "upload"
	SourceScan   = "scan"
)

// DefaultLibraryID groups all series of the single built-in library. A
// multi-library layout would make this a real entity.
const DefaultLibraryID = "local"

// Series is a titled shelf holding related media.
type Series struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	LibraryID  string    `json:"library_id"`
	FolderPath string    `json:"folder_path"`
	SourceType string    `json:"source_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Progress records how far one user has read one media item. One row per
// (user, media) pair; saves overwrite.
type Progress struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MediaID    string    `json:"media_id"`
	Page       int       `json:"page"`
	IsFinished bool      `json:"is_finished"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Media is one readable item: a chapter, volume or one-shot archive on disk.
//
// Volume and Year are pointers because absence is meaningful; Number is
// always set (one-shots carry 1).
type Media struct {
	ID        string    `json:"id"`
	SeriesID  string    `json:"series_id"`
	Title     string    `json:"title"`
	Number    float64   `json:"number"`
	Volume    *float64  `json:"volume"`
	Year      *int      `json:"year"`
	Path      string    `json:"-"`
	Extension string    `json:"extension"`
	PageCount int       `json:"page_count"`
	SizeBytes int64     `json:"size_bytes"`
	IsOneShot bool      `json:"is_one_shot"`
	IsReady   bool      `json:"is_ready"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
