// source: inspections.sql

package repository

import (
	"context"
	"database/sql"
	"time"
)

const countInspectionsByUser = `-- name: CountInspectionsByUser :one
SELECT count(*) FROM inspections WHERE user_id = $1
`

func (q *Queries) CountInspectionsByUser(ctx context.Context, userID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countInspectionsByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createInspection = `-- name: CreateInspection :one
INSERT INTO inspections (user_id, plant_name, inspection_date, country, state, city, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, plant_name, inspection_date, country, state, city, notes, created_at, updated_at
`

type CreateInspectionParams struct {
	UserID         int64     `json:"user_id"`
	PlantName      string    `json:"plant_name"`
	InspectionDate time.Time `json:"inspection_date"`
	Country        string    `json:"country"`
	State          string    `json:"state"`
	City           string    `json:"city"`
	Notes          string    `json:"notes"`
}

func (q *Queries) CreateInspection(ctx context.Context, arg CreateInspectionParams) (Inspection, error) {
	row := q.db.QueryRowContext(ctx, createInspection,
		arg.UserID,
		arg.PlantName,
		arg.InspectionDate,
		arg.Country,
		arg.State,
		arg.City,
		arg.Notes,
	)
	var i Inspection
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PlantName,
		&i.InspectionDate,
		&i.Country,
		&i.State,
		&i.City,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteInspection = `-- name: DeleteInspection :execrows
DELETE FROM inspections WHERE id = $1 AND user_id = $2
`

type DeleteInspectionParams struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (q *Queries) DeleteInspection(ctx context.Context, arg DeleteInspectionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInspection, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getInspectionForUser = `-- name: GetInspectionForUser :one
SELECT id, user_id, plant_name, inspection_date, country, state, city, notes, created_at, updated_at
FROM inspections
WHERE id = $1 AND user_id = $2
`

type GetInspectionForUserParams struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (q *Queries) GetInspectionForUser(ctx context.Context, arg GetInspectionForUserParams) (Inspection, error) {
	row := q.db.QueryRowContext(ctx, getInspectionForUser, arg.ID, arg.UserID)
	var i Inspection
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PlantName,
		&i.InspectionDate,
		&i.Country,
		&i.State,
		&i.City,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const searchInspections = `-- name: SearchInspections :many
SELECT i.id, i.user_id, i.plant_name, i.inspection_date, i.country, i.state, i.city, i.notes, i.created_at, i.updated_at
FROM inspections i
LEFT JOIN inspection_analyses a ON a.inspection_id = i.id
WHERE i.user_id = $1
  AND ($2::text IS NULL OR i.plant_name ILIKE '%' || $2::text || '%' ESCAPE '\')
  AND ($3::text IS NULL OR a.status = $3::text)
  AND ($4::timestamptz IS NULL OR i.inspection_date >= $4::timestamptz)
  AND ($5::timestamptz IS NULL OR i.inspection_date <= $5::timestamptz)
ORDER BY i.inspection_date DESC, i.id ASC
`

type SearchInspectionsParams struct {
	UserID    int64          `json:"user_id"`
	PlantName sql.NullString `json:"plant_name"`
	Status    sql.NullString `json:"status"`
	StartDate sql.NullTime   `json:"start_date"`
	EndDate   sql.NullTime   `json:"end_date"`
}

// SearchInspections returns the user's inspections matching every non-null
// filter. PlantName must already have LIKE metacharacters escaped.
func (q *Queries) SearchInspections(ctx context.Context, arg SearchInspectionsParams) ([]Inspection, error) {
	rows, err := q.db.QueryContext(ctx, searchInspections,
		arg.UserID,
		arg.PlantName,
		arg.Status,
		arg.StartDate,
		arg.EndDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Inspection{}
	for rows.Next() {
		var i Inspection
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.PlantName,
			&i.InspectionDate,
			&i.Country,
			&i.State,
			&i.City,
			&i.Notes,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateInspection = `-- name: UpdateInspection :one
UPDATE inspections
SET plant_name = $3,
    inspection_date = $4,
    country = $5,
    state = $6,
    city = $7,
    notes = $8,
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, plant_name, inspection_date, country, state, city, notes, created_at, updated_at
`

type UpdateInspectionParams struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	PlantName      string    `json:"plant_name"`
	InspectionDate time.Time `json:"inspection_date"`
	Country        string    `json:"country"`
	State          string    `json:"state"`
	City           string    `json:"city"`
	Notes          string    `json:"notes"`
}

func (q *Queries) UpdateInspection(ctx context.Context, arg UpdateInspectionParams) (Inspection, error) {
	row := q.db.QueryRowContext(ctx, updateInspection,
		arg.ID,
		arg.UserID,
		arg.PlantName,
		arg.InspectionDate,
		arg.Country,
		arg.State,
		arg.City,
		arg.Notes,
	)
	var i Inspection
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PlantName,
		&i.InspectionDate,
		&i.Country,
		&i.State,
		&i.City,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
