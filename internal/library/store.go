// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import "context"

// # Series & Media Data Access

// SeriesRepository defines the data access contract for series.
type SeriesRepository interface {

	/*
		UpsertByTitle returns the series with the given title, creating it if
		absent. Title matching is case-insensitive within a library.

		Parameters:
		  - context: context.Context
		  - series: *Series (Candidate row; ID must be pre-assigned)

		Returns:
		  - *Series: The stored row, existing or freshly created
		  - error: Storage failures
	*/
	UpsertByTitle(context context.Context, series *Series) (*Series, error)

	/*
		FindByID returns the series with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Series: Hydrated row
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Series, error)

	/*
		List returns all series ordered by title.

		Parameters:
		  - context: context.Context

		Returns:
		  - []*Series: All series of the library
		  - error: Storage failures
	*/
	List(context context.Context) ([]*Series, error)
}

// MediaRepository defines the data access contract for media records.
type MediaRepository interface {

	/*
		Create persists a new media record.

		Parameters:
		  - context: context.Context
		  - media: *Media

		Returns:
		  - error: apperr.Conflict on a duplicate path
	*/
	Create(context context.Context, media *Media) error

	/*
		FindByID returns the media record with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Media: Hydrated row
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Media, error)

	/*
		FindByPath returns the media record stored under the given absolute
		file path.

		Parameters:
		  - context: context.Context
		  - path: string (Absolute archive path, unique per record)

		Returns:
		  - *Media: Hydrated row
		  - error: apperr.NotFound if no record owns the path
	*/
	FindByPath(context context.Context, path string) (*Media, error)

	/*
		UpdatePageCount overwrites the cached page count of a record.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)
		  - pageCount: int

		Returns:
		  - error: apperr.NotFound if targeting a missing row
	*/
	UpdatePageCount(context context.Context, id string, pageCount int) error

	/*
		ListBySeries returns all media of a series ordered by number.

		Parameters:
		  - context: context.Context
		  - seriesID: string (UUID)

		Returns:
		  - []*Media: Ordered media rows
		  - error: Storage failures
	*/
	ListBySeries(context context.Context, seriesID string) ([]*Media, error)
}

// ProgressRepository defines the data access contract for reading progress.
type ProgressRepository interface {

	/*
		Upsert stores a progress row, overwriting any earlier row for the same
		user and media item.

		Parameters:
		  - context: context.Context
		  - progress: *Progress (Candidate row; ID must be pre-assigned)

		Returns:
		  - *Progress: The stored row
		  - error: Storage failures
	*/
	Upsert(context context.Context, progress *Progress) (*Progress, error)

	/*
		FindForUser returns one user's progress on one media item.

		Parameters:
		  - context: context.Context
		  - userID: string (UUID)
		  - mediaID: string (UUID)

		Returns:
		  - *Progress: Hydrated row
		  - error: apperr.NotFound if the user never opened the item
	*/
	FindForUser(context context.Context, userID string, mediaID string) (*Progress, error)
}
