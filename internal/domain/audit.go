package domain

import (
	"encoding/json"
	"time"
)

// Audit actions.
const (
	AuditActionCreate = "Create"
	AuditActionUpdate = "Update"
	AuditActionDelete = "Delete"
	AuditActionLogin  = "Login"
)

// Audited entity types.
const (
	AuditEntityUser       = "User"
	AuditEntityInspection = "Inspection"
	AuditEntityImage      = "InspectionImage"
	AuditEntityAnalysis   = "InspectionAnalysis"
)

// AuditEntry describes one change to record. OldValues and NewValues are
// marshalled to JSON; nil means no snapshot.
type AuditEntry struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   string
	OldValues  interface{}
	NewValues  interface{}
}

// AuditLog is a recorded audit entry.
type AuditLog struct {
	ID         int64           `json:"id"`
	UserID     *int64          `json:"userId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	OldValues  json.RawMessage `json:"oldValues,omitempty"`
	NewValues  json.RawMessage `json:"newValues,omitempty"`
	IPAddress  string          `json:"ipAddress"`
	UserAgent  string          `json:"userAgent"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AuditFilter narrows an audit log listing.
type AuditFilter struct {
	UserID     int64
	EntityType string
	Action     string
	Limit      int32
	Offset     int32
}
