// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// LibraryProgressTable represents the 'library.progress' table
type LibraryProgressTable struct {
	Table      string
	ID         string
	UserID     string
	MediaID    string
	Page       string
	IsFinished string
	UpdatedAt  string
}

// LibraryProgress is the schema definition for library.progress
var LibraryProgress = LibraryProgressTable{
	Table:      "library.progress",
	ID:         "id",
	UserID:     "userid",
	MediaID:    "mediaid",
	Page:       "page",
	IsFinished: "isfinished",
	UpdatedAt:  "updatedat",
}

func (t LibraryProgressTable) Columns() []string {
	return []string{t.ID, t.UserID, t.MediaID, t.Page, t.IsFinished, t.UpdatedAt}
}
