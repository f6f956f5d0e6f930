// source: images.sql

package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

const createInspectionImage = `-- name: CreateInspectionImage :one
INSERT INTO inspection_images (inspection_id, image_name, thumbnail_name, original_filename, content_type, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, inspection_id, image_name, thumbnail_name, original_filename, content_type, size_bytes, created_at, updated_at
`

type CreateInspectionImageParams struct {
	InspectionID     int64          `json:"inspection_id"`
	ImageName        string         `json:"image_name"`
	ThumbnailName    sql.NullString `json:"thumbnail_name"`
	OriginalFilename string         `json:"original_filename"`
	ContentType      string         `json:"content_type"`
	SizeBytes        int64          `json:"size_bytes"`
}

func (q *Queries) CreateInspectionImage(ctx context.Context, arg CreateInspectionImageParams) (InspectionImage, error) {
	row := q.db.QueryRowContext(ctx, createInspectionImage,
		arg.InspectionID,
		arg.ImageName,
		arg.ThumbnailName,
		arg.OriginalFilename,
		arg.ContentType,
		arg.SizeBytes,
	)
	var i InspectionImage
	err := row.Scan(
		&i.ID,
		&i.InspectionID,
		&i.ImageName,
		&i.ThumbnailName,
		&i.OriginalFilename,
		&i.ContentType,
		&i.SizeBytes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteInspectionImage = `-- name: DeleteInspectionImage :execrows
DELETE FROM inspection_images WHERE id = $1
`

func (q *Queries) DeleteInspectionImage(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInspectionImage, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getImageForUser = `-- name: GetImageForUser :one
SELECT img.id, img.inspection_id, img.image_name, img.thumbnail_name, img.original_filename, img.content_type, img.size_bytes, img.created_at, img.updated_at
FROM inspection_images img
JOIN inspections i ON i.id = img.inspection_id
WHERE img.id = $1 AND i.user_id = $2
`

type GetImageForUserParams struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

func (q *Queries) GetImageForUser(ctx context.Context, arg GetImageForUserParams) (InspectionImage, error) {
	row := q.db.QueryRowContext(ctx, getImageForUser, arg.ID, arg.UserID)
	var i InspectionImage
	err := row.Scan(
		&i.ID,
		&i.InspectionID,
		&i.ImageName,
		&i.ThumbnailName,
		&i.OriginalFilename,
		&i.ContentType,
		&i.SizeBytes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getImageByNameForUser = `-- name: GetImageByNameForUser :one
SELECT img.id, img.inspection_id, img.image_name, img.thumbnail_name, img.original_filename, img.content_type, img.size_bytes, img.created_at, img.updated_at
FROM inspection_images img
JOIN inspections i ON i.id = img.inspection_id
WHERE img.image_name = $1 AND i.user_id = $2
`

type GetImageByNameForUserParams struct {
	ImageName string `json:"image_name"`
	UserID    int64  `json:"user_id"`
}

func (q *Queries) GetImageByNameForUser(ctx context.Context, arg GetImageByNameForUserParams) (InspectionImage, error) {
	row := q.db.QueryRowContext(ctx, getImageByNameForUser, arg.ImageName, arg.UserID)
	var i InspectionImage
	err := row.Scan(
		&i.ID,
		&i.InspectionID,
		&i.ImageName,
		&i.ThumbnailName,
		&i.OriginalFilename,
		&i.ContentType,
		&i.SizeBytes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listImagesByInspection = `-- name: ListImagesByInspection :many
SELECT id, inspection_id, image_name, thumbnail_name, original_filename, content_type, size_bytes, created_at, updated_at
FROM inspection_images
WHERE inspection_id = $1
ORDER BY id ASC
`

func (q *Queries) ListImagesByInspection(ctx context.Context, inspectionID int64) ([]InspectionImage, error) {
	rows, err := q.db.QueryContext(ctx, listImagesByInspection, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInspectionImages(rows)
}

const listImagesByInspectionIDs = `-- name: ListImagesByInspectionIDs :many
SELECT id, inspection_id, image_name, thumbnail_name, original_filename, content_type, size_bytes, created_at, updated_at
FROM inspection_images
WHERE inspection_id = ANY($1::bigint[])
ORDER BY inspection_id ASC, id ASC
`

func (q *Queries) ListImagesByInspectionIDs(ctx context.Context, inspectionIds []int64) ([]InspectionImage, error) {
	rows, err := q.db.QueryContext(ctx, listImagesByInspectionIDs, pq.Array(inspectionIds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInspectionImages(rows)
}

func scanInspectionImages(rows *sql.Rows) ([]InspectionImage, error) {
	items := []InspectionImage{}
	for rows.Next() {
		var i InspectionImage
		if err := rows.Scan(
			&i.ID,
			&i.InspectionID,
			&i.ImageName,
			&i.ThumbnailName,
			&i.OriginalFilename,
			&i.ContentType,
			&i.SizeBytes,
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
