// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// LibraryMediaTable represents the 'library.media' table
type LibraryMediaTable struct {
	Table     string
	ID        string
	SeriesID  string
	Title     string
	Number    string
	Volume    string
	Year      string
	Path      string
	Extension string
	PageCount string
	SizeBytes string
	IsOneShot string
	IsReady   string
	CreatedAt string
	UpdatedAt string
}

// LibraryMedia is the schema definition for library.media
var LibraryMedia = LibraryMediaTable{
	Table:     "library.media",
	ID:        "id",
	SeriesID:  "seriesid",
	Title:     "title",
	Number:    "number",
	Volume:    "volume",
	Year:      "year",
	Path:      "path",
	Extension: "extension",
	PageCount: "pagecount",
	SizeBytes: "sizebytes",
	IsOneShot: "isoneshot",
	IsReady:   "isready",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}

func (t LibraryMediaTable) Columns() []string {
	return []string{
		t.ID, t.SeriesID, t.Title, t.Number, t.Volume, t.Year, t.Path,
		t.Extension, t.PageCount, t.SizeBytes, t.IsOneShot, t.IsReady,
		t.CreatedAt, t.UpdatedAt,
	}
}
