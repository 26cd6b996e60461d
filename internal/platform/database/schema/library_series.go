// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema centralizes table and column identifiers so SQL in the
// repositories never hardcodes strings.
package schema

// LibrarySeriesTable represents the 'library.series' table
type LibrarySeriesTable struct {
	Table      string
	ID         string
	Title      string
	LibraryID  string
	FolderPath string
	SourceType string
	CreatedAt  string
	UpdatedAt  string
}

// LibrarySeries is the schema definition for library.series
var LibrarySeries = LibrarySeriesTable{
	Table:      "library.series",
	ID:         "id",
	Title:      "title",
	LibraryID:  "libraryid",
	FolderPath: "folderpath",
	SourceType: "sourcetype",
	CreatedAt:  "createdat",
	UpdatedAt:  "updatedat",
}

func (t LibrarySeriesTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.LibraryID, t.FolderPath, t.SourceType, t.CreatedAt, t.UpdatedAt,
	}
}
