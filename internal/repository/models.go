package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"
)

type AuditLog struct {
	ID         int64                 `json:"id"`
	UserID     sql.NullInt64         `json:"user_id"`
	Action     string                `json:"action"`
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	OldValues  pqtype.NullRawMessage `json:"old_values"`
	NewValues  pqtype.NullRawMessage `json:"new_values"`
	IpAddress  string                `json:"ip_address"`
	UserAgent  string                `json:"user_agent"`
	CreatedAt  time.Time             `json:"created_at"`
}

type BackgroundTask struct {
	ID           string          `json:"id"`
	TaskName     string          `json:"task_name"`
	TaskData     json.RawMessage `json:"task_data"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	ScheduledAt  time.Time       `json:"scheduled_at"`
	StartedAt    sql.NullTime    `json:"started_at"`
	CompletedAt  sql.NullTime    `json:"completed_at"`
	Attempts     int32           `json:"attempts"`
	MaxAttempts  int32           `json:"max_attempts"`
	ErrorMessage sql.NullString  `json:"error_message"`
}

type Inspection struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	PlantName      string    `json:"plant_name"`
	InspectionDate time.Time `json:"inspection_date"`
	Country        string    `json:"country"`
	State          string    `json:"state"`
	City           string    `json:"city"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type InspectionAnalysis struct {
	InspectionID            int64     `json:"inspection_id"`
	Status                  string    `json:"status"`
	ConfidenceScore         string    `json:"confidence_score"`
	Description             string    `json:"description"`
	TreatmentRecommendation string    `json:"treatment_recommendation"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type InspectionImage struct {
	ID               int64          `json:"id"`
	InspectionID     int64          `json:"inspection_id"`
	ImageName        string         `json:"image_name"`
	ThumbnailName    sql.NullString `json:"thumbnail_name"`
	OriginalFilename string         `json:"original_filename"`
	ContentType      string         `json:"content_type"`
	SizeBytes        int64          `json:"size_bytes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
