// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buivan/tosho/internal/platform/apperr"
	"github.com/buivan/tosho/internal/platform/database/schema"
)

// # PostgreSQL Repositories

// seriesRepository implements the [SeriesRepository] interface using pgx.
type seriesRepository struct {
	pool *pgxpool.Pool
}

// NewSeriesRepository constructs a PostgreSQL backed series store.
func NewSeriesRepository(pool *pgxpool.Pool) SeriesRepository {
	return &seriesRepository{pool: pool}
}

// # Series Repository Implementation

/*
UpsertByTitle resolves a title to a series row, creating it when absent.

Description: Relies on the unique (lower(title), libraryid) index so
concurrent registrations of the same series collapse onto one row. On
conflict the row's updatedat is bumped, which doubles as RETURNING support.

Parameters:
  - context: context.Context
  - series: *Series (Candidate row; ID must be pre-assigned)

Returns:
  - *Series: The stored row, existing or freshly created
  - error: Storage failures
*/
func (repository *seriesRepository) UpsertByTitle(context context.Context, series *Series) (*Series, error) {

	// Lookup-or-create in one statement via the case-insensitive unique index
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(%s), %s) DO UPDATE SET %s = NOW()
		RETURNING %s
	`,
		schema.LibrarySeries.Table,
		schema.LibrarySeries.ID,
		schema.LibrarySeries.Title,
		schema.LibrarySeries.LibraryID,
		schema.LibrarySeries.FolderPath,
		schema.LibrarySeries.SourceType,
		schema.LibrarySeries.Title, schema.LibrarySeries.LibraryID,
		schema.LibrarySeries.UpdatedAt,
		strings.Join(schema.LibrarySeries.Columns(), ", "),
	)

	var stored Series
	err := repository.pool.QueryRow(context, query,
		series.ID,
		series.Title,
		series.LibraryID,
		series.FolderPath,
		series.SourceType,
	).Scan(
		&stored.ID,
		&stored.Title,
		&stored.LibraryID,
		&stored.FolderPath,
		&stored.SourceType,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to upsert series: %w", err)
	}

	return &stored, nil
}

/*
FindByID returns the series with the given ID.
*/
func (repository *seriesRepository) FindByID(context context.Context, id string) (*Series, error) {

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.LibrarySeries.Columns(), ", "),
		schema.LibrarySeries.Table,
		schema.LibrarySeries.ID,
	)

	var series Series
	err := repository.pool.QueryRow(context, query, id).Scan(
		&series.ID,
		&series.Title,
		&series.LibraryID,
		&series.FolderPath,
		&series.SourceType,
		&series.CreatedAt,
		&series.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Series")
		}
		return nil, fmt.Errorf("postgres: failed to find series by id: %w", err)
	}

	return &series, nil
}

/*
List returns all series ordered alphabetically by title.
*/
func (repository *seriesRepository) List(context context.Context) ([]*Series, error) {

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		strings.Join(schema.LibrarySeries.Columns(), ", "),
		schema.LibrarySeries.Table,
		schema.LibrarySeries.Title,
	)

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list series: %w", err)
	}
	defer rows.Close()

	var result []*Series
	for rows.Next() {
		var series Series
		err := rows.Scan(
			&series.ID,
			&series.Title,
			&series.LibraryID,
			&series.FolderPath,
			&series.SourceType,
			&series.CreatedAt,
			&series.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan series: %w", err)
		}
		result = append(result, &series)
	}

	return result, nil
}

// mediaRepository implements the [MediaRepository] interface using pgx.
type mediaRepository struct {
	pool *pgxpool.Pool
}

// NewMediaRepository constructs a PostgreSQL backed media store.
func NewMediaRepository(pool *pgxpool.Pool) MediaRepository {
	return &mediaRepository{pool: pool}
}

// # Media Repository Implementation

/*
Create persists a new media record.

Description: The unique index on path turns double registration of the same
file into apperr.Conflict rather than a duplicate row.
*/
func (repository *mediaRepository) Create(context context.Context, media *Media) error {

	query := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s,
			%s, %s, %s, %s, %s, %s
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`,
		schema.LibraryMedia.Table,
		schema.LibraryMedia.ID,
		schema.LibraryMedia.SeriesID,
		schema.LibraryMedia.Title,
		schema.LibraryMedia.Number,
		schema.LibraryMedia.Volume,
		schema.LibraryMedia.Year,
		schema.LibraryMedia.Path,
		schema.LibraryMedia.Extension,
		schema.LibraryMedia.PageCount,
		schema.LibraryMedia.SizeBytes,
		schema.LibraryMedia.IsOneShot,
		schema.LibraryMedia.IsReady,
	)

	_, err := repository.pool.Exec(context, query,
		media.ID,
		media.SeriesID,
		media.Title,
		media.Number,
		media.Volume,
		media.Year,
		media.Path,
		media.Extension,
		media.PageCount,
		media.SizeBytes,
		media.IsOneShot,
		media.IsReady,
	)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			return apperr.Conflict("Media already registered for this path")
		}
		return fmt.Errorf("postgres: failed to create media: %w", err)
	}

	return nil
}

/*
FindByID returns the media record with the given ID.
*/
func (repository *mediaRepository) FindByID(context context.Context, id string) (*Media, error) {
	return repository.findBy(context, schema.LibraryMedia.ID, id, "Media")
}

/*
FindByPath returns the media record owning the given file path.
*/
func (repository *mediaRepository) FindByPath(context context.Context, path string) (*Media, error) {
	return repository.findBy(context, schema.LibraryMedia.Path, path, "Media")
}

// findBy fetches one media row by an equality predicate on a single column.
func (repository *mediaRepository) findBy(context context.Context, column string, value string, resource string) (*Media, error) {

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.LibraryMedia.Columns(), ", "),
		schema.LibraryMedia.Table,
		column,
	)

	var media Media
	err := repository.pool.QueryRow(context, query, value).Scan(
		&media.ID,
		&media.SeriesID,
		&media.Title,
		&media.Number,
		&media.Volume,
		&media.Year,
		&media.Path,
		&media.Extension,
		&media.PageCount,
		&media.SizeBytes,
		&media.IsOneShot,
		&media.IsReady,
		&media.CreatedAt,
		&media.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(resource)
		}
		return nil, fmt.Errorf("postgres: failed to find media: %w", err)
	}

	return &media, nil
}

/*
UpdatePageCount overwrites the cached page count of a record.
*/
func (repository *mediaRepository) UpdatePageCount(context context.Context, id string, pageCount int) error {

	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2`,
		schema.LibraryMedia.Table,
		schema.LibraryMedia.PageCount,
		schema.LibraryMedia.UpdatedAt,
		schema.LibraryMedia.ID,
	)

	result, err := repository.pool.Exec(context, query, pageCount, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update media page count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Media")
	}

	return nil
}

/*
ListBySeries returns all media of a series, ordered by chapter number with
volume as tiebreaker.
*/
func (repository *mediaRepository) ListBySeries(context context.Context, seriesID string) ([]*Media, error) {

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1
		ORDER BY %s ASC, %s ASC NULLS FIRST
	`,
		strings.Join(schema.LibraryMedia.Columns(), ", "),
		schema.LibraryMedia.Table,
		schema.LibraryMedia.SeriesID,
		schema.LibraryMedia.Number,
		schema.LibraryMedia.Volume,
	)

	rows, err := repository.pool.Query(context, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list media: %w", err)
	}
	defer rows.Close()

	var result []*Media
	for rows.Next() {
		var media Media
		err := rows.Scan(
			&media.ID,
			&media.SeriesID,
			&media.Title,
			&media.Number,
			&media.Volume,
			&media.Year,
			&media.Path,
			&media.Extension,
			&media.PageCount,
			&media.SizeBytes,
			&media.IsOneShot,
			&media.IsReady,
			&media.CreatedAt,
			&media.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan media: %w", err)
		}
		result = append(result, &media)
	}

	return result, nil
}

// progressRepository implements the [ProgressRepository] interface using pgx.
type progressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository constructs a PostgreSQL backed progress store.
func NewProgressRepository(pool *pgxpool.Pool) ProgressRepository {
	return &progressRepository{pool: pool}
}

// # Progress Repository Implementation

/*
Upsert stores a progress row, overwriting any earlier row for the same user
and media item.

Description: Relies on the unique (userid, mediaid) index; on conflict the
page and finished flag are replaced and updatedat is bumped.
*/
func (repository *progressRepository) Upsert(context context.Context, progress *Progress) (*Progress, error) {

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = NOW()
		RETURNING %s
	`,
		schema.LibraryProgress.Table,
		schema.LibraryProgress.ID,
		schema.LibraryProgress.UserID,
		schema.LibraryProgress.MediaID,
		schema.LibraryProgress.Page,
		schema.LibraryProgress.IsFinished,
		schema.LibraryProgress.UserID, schema.LibraryProgress.MediaID,
		schema.LibraryProgress.Page, schema.LibraryProgress.Page,
		schema.LibraryProgress.IsFinished, schema.LibraryProgress.IsFinished,
		schema.LibraryProgress.UpdatedAt,
		strings.Join(schema.LibraryProgress.Columns(), ", "),
	)

	var stored Progress
	err := repository.pool.QueryRow(context, query,
		progress.ID,
		progress.UserID,
		progress.MediaID,
		progress.Page,
		progress.IsFinished,
	).Scan(
		&stored.ID,
		&stored.UserID,
		&stored.MediaID,
		&stored.Page,
		&stored.IsFinished,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to upsert progress: %w", err)
	}

	return &stored, nil
}

/*
FindForUser returns one user's progress on one media item.
*/
func (repository *progressRepository) FindForUser(context context.Context, userID string, mediaID string) (*Progress, error) {

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		strings.Join(schema.LibraryProgress.Columns(), ", "),
		schema.LibraryProgress.Table,
		schema.LibraryProgress.UserID,
		schema.LibraryProgress.MediaID,
	)

	var progress Progress
	err := repository.pool.QueryRow(context, query, userID, mediaID).Scan(
		&progress.ID,
		&progress.UserID,
		&progress.MediaID,
		&progress.Page,
		&progress.IsFinished,
		&progress.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Progress")
		}
		return nil, fmt.Errorf("postgres: failed to find progress: %w", err)
	}

	return &progress, nil
}
