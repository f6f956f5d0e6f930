// Package domain contains core business types and interfaces.
//
// This file defines the background task model: the closed set of task kinds,
// their typed payloads and the persisted task record.
package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// Task Status
// =============================================================================

// TaskStatus is the lifecycle state of a background task.
//
// Valid transitions:
// - Queued -> Processing (claimed by the worker)
// - Processing -> Completed | Failed | Queued (retry with backoff)
// - Queued -> Cancelled
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "Queued"
	TaskStatusProcessing TaskStatus = "Processing"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusFailed     TaskStatus = "Failed"
	TaskStatusCancelled  TaskStatus = "Cancelled"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []TaskStatus{
	TaskStatusQueued,
	TaskStatusProcessing,
	TaskStatusCompleted,
	TaskStatusFailed,
	TaskStatusCancelled,
}

// IsValid returns true if the status is a recognized value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true once the task can no longer change state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// =============================================================================
// Task Kinds and Payloads
// =============================================================================

// TaskKind discriminates task payloads. It is stored in the task_name column.
type TaskKind string

const (
	TaskKindSendEmail  TaskKind = "SendEmail"
	TaskKindWebAPICall TaskKind = "WebApiCall"
	TaskKindDataExport TaskKind = "DataExport"
)

// TaskKinds lists every kind a worker must be able to handle.
var TaskKinds = []TaskKind{
	TaskKindSendEmail,
	TaskKindWebAPICall,
	TaskKindDataExport,
}

// TaskPayload is implemented only by the payload types in this file.
type TaskPayload interface {
	Kind() TaskKind
	Validate() error
	isTaskPayload()
}

// EmailTask sends one email.
type EmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	IsHTML  bool   `json:"isHtml"`
}

func (EmailTask) Kind() TaskKind { return TaskKindSendEmail }
func (EmailTask) isTaskPayload() {}

func (t EmailTask) Validate() error {
	if !IsValidEmail(NormalizeEmail(t.To)) {
		return fmt.Errorf("email task: invalid recipient %q", t.To)
	}
	if strings.TrimSpace(t.Subject) == "" {
		return fmt.Errorf("email task: subject is required")
	}
	return nil
}

// WebAPICallTask performs one outbound HTTP request. Method defaults to GET.
type WebAPICallTask struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

func (WebAPICallTask) Kind() TaskKind { return TaskKindWebAPICall }
func (WebAPICallTask) isTaskPayload() {}

func (t WebAPICallTask) Validate() error {
	u, err := url.Parse(t.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("web api task: invalid url %q", t.URL)
	}
	switch strings.ToUpper(t.Method) {
	case "", "GET", "POST", "PUT", "PATCH", "DELETE":
	default:
		return fmt.Errorf("web api task: unsupported method %q", t.Method)
	}
	return nil
}

// Export types and formats accepted by DataExportTask.
const (
	ExportTypeInspections = "inspections"
	ExportTypeUsers       = "users"

	ExportFormatCSV   = "csv"
	ExportFormatExcel = "excel"
)

// DataExportTask renders an export file into storage and optionally mails
// a notification when it is ready.
type DataExportTask struct {
	ExportType  string `json:"exportType"`
	Format      string `json:"format"`
	UserID      int64  `json:"userId"`
	NotifyEmail string `json:"notifyEmail,omitempty"`
}

func (DataExportTask) Kind() TaskKind { return TaskKindDataExport }
func (DataExportTask) isTaskPayload() {}

func (t DataExportTask) Validate() error {
	if t.ExportType != ExportTypeInspections && t.ExportType != ExportTypeUsers {
		return fmt.Errorf("data export task: unknown export type %q", t.ExportType)
	}
	if t.Format != ExportFormatCSV && t.Format != ExportFormatExcel {
		return fmt.Errorf("data export task: unknown format %q", t.Format)
	}
	if t.ExportType == ExportTypeInspections && t.UserID <= 0 {
		return fmt.Errorf("data export task: user id is required for inspection exports")
	}
	return nil
}

// DecodeTaskPayload decodes stored task data into the payload type for kind.
func DecodeTaskPayload(kind TaskKind, data []byte) (TaskPayload, error) {
	var payload TaskPayload
	switch kind {
	case TaskKindSendEmail:
		var p EmailTask
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		payload = p
	case TaskKindWebAPICall:
		var p WebAPICallTask
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		payload = p
	case TaskKindDataExport:
		var p DataExportTask
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// =============================================================================
// Task Record
// =============================================================================

// Task is the persisted state of one background task.
type Task struct {
	ID           string          `json:"id"`
	Kind         TaskKind        `json:"taskName"`
	Data         json.RawMessage `json:"taskData"`
	Status       TaskStatus      `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	ScheduledAt  time.Time       `json:"scheduledAt"`
	StartedAt    *time.Time      `json:"startedAt,omitempty"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"maxAttempts"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// TaskStats counts tasks per status.
type TaskStats struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

// Total returns the number of tasks across all statuses.
func (s TaskStats) Total() int64 {
	return s.Queued + s.Processing + s.Completed + s.Failed + s.Cancelled
}

// Add accumulates count under status. Unknown statuses are ignored.
func (s *TaskStats) Add(status TaskStatus, count int64) {
	switch status {
	case TaskStatusQueued:
		s.Queued += count
	case TaskStatusProcessing:
		s.Processing += count
	case TaskStatusCompleted:
		s.Completed += count
	case TaskStatusFailed:
		s.Failed += count
	case TaskStatusCancelled:
		s.Cancelled += count
	}
}
