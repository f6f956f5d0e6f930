// source: analyses.sql

package repository

import (
	"context"

	"github.com/lib/pq"
)

const createInspectionAnalysis = `-- name: CreateInspectionAnalysis :one
INSERT INTO inspection_analyses (inspection_id, status, confidence_score, description, treatment_recommendation)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (inspection_id) DO NOTHING
RETURNING inspection_id, status, confidence_score::text, description, treatment_recommendation, created_at, updated_at
`

type CreateInspectionAnalysisParams struct {
	InspectionID            int64  `json:"inspection_id"`
	Status                  string `json:"status"`
	ConfidenceScore         string `json:"confidence_score"`
	Description             string `json:"description"`
	TreatmentRecommendation string `json:"treatment_recommendation"`
}

// CreateInspectionAnalysis returns sql.ErrNoRows when the inspection already
// has an analysis.
func (q *Queries) CreateInspectionAnalysis(ctx context.Context, arg CreateInspectionAnalysisParams) (InspectionAnalysis, error) {
	row := q.db.QueryRowContext(ctx, createInspectionAnalysis,
		arg.InspectionID,
		arg.Status,
		arg.ConfidenceScore,
		arg.Description,
		arg.TreatmentRecommendation,
	)
	var i InspectionAnalysis
	err := row.Scan(
		&i.InspectionID,
		&i.Status,
		&i.ConfidenceScore,
		&i.Description,
		&i.TreatmentRecommendation,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteInspectionAnalysis = `-- name: DeleteInspectionAnalysis :execrows
DELETE FROM inspection_analyses WHERE inspection_id = $1
`

func (q *Queries) DeleteInspectionAnalysis(ctx context.Context, inspectionID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInspectionAnalysis, inspectionID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getInspectionAnalysis = `-- name: GetInspectionAnalysis :one
SELECT inspection_id, status, confidence_score::text, description, treatment_recommendation, created_at, updated_at
FROM inspection_analyses
WHERE inspection_id = $1
`

func (q *Queries) GetInspectionAnalysis(ctx context.Context, inspectionID int64) (InspectionAnalysis, error) {
	row := q.db.QueryRowContext(ctx, getInspectionAnalysis, inspectionID)
	var i InspectionAnalysis
	err := row.Scan(
		&i.InspectionID,
		&i.Status,
		&i.ConfidenceScore,
		&i.Description,
		&i.TreatmentRecommendation,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAnalysesByInspectionIDs = `-- name: ListAnalysesByInspectionIDs :many
SELECT inspection_id, status, confidence_score::text, description, treatment_recommendation, created_at, updated_at
FROM inspection_analyses
WHERE inspection_id = ANY($1::bigint[])
`

func (q *Queries) ListAnalysesByInspectionIDs(ctx context.Context, inspectionIds []int64) ([]InspectionAnalysis, error) {
	rows, err := q.db.QueryContext(ctx, listAnalysesByInspectionIDs, pq.Array(inspectionIds))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InspectionAnalysis{}
	for rows.Next() {
		var i InspectionAnalysis
		if err := rows.Scan(
			&i.InspectionID,
			&i.Status,
			&i.ConfidenceScore,
			&i.Description,
			&i.TreatmentRecommendation,
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

const updateInspectionAnalysis = `-- name: UpdateInspectionAnalysis :one
UPDATE inspection_analyses
SET status = $2,
    confidence_score = $3::numeric,
    description = $4,
    treatment_recommendation = $5,
    updated_at = now()
WHERE inspection_id = $1
RETURNING inspection_id, status, confidence_score::text, description, treatment_recommendation, created_at, updated_at
`

type UpdateInspectionAnalysisParams struct {
	InspectionID            int64  `json:"inspection_id"`
	Status                  string `json:"status"`
	ConfidenceScore         string `json:"confidence_score"`
	Description             string `json:"description"`
	TreatmentRecommendation string `json:"treatment_recommendation"`
}

func (q *Queries) UpdateInspectionAnalysis(ctx context.Context, arg UpdateInspectionAnalysisParams) (InspectionAnalysis, error) {
	row := q.db.QueryRowContext(ctx, updateInspectionAnalysis,
		arg.InspectionID,
		arg.Status,
		arg.ConfidenceScore,
		arg.Description,
		arg.TreatmentRecommendation,
	)
	var i InspectionAnalysis
	err := row.Scan(
		&i.InspectionID,
		&i.Status,
		&i.ConfidenceScore,
		&i.Description,
		&i.TreatmentRecommendation,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
