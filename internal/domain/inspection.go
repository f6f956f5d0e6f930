// Package domain contains core business types and interfaces.
//
// This file defines the Inspection domain type: one visit to a plant at a
// location, with its attached photos and at most one analysis.
package domain

import (
	"strings"
	"time"
)

const (
	MaxLocationLength  = 100
	MaxPlantNameLength = 100
	MaxNotesLength     = 1000
)

// =============================================================================
// Inspection Domain Type
// =============================================================================

// Inspection is a plant-health inspection owned by one user. Images and
// Analysis are eager loaded by the inspection service on every read.
type Inspection struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"userId"`
	PlantName      string    `json:"plantName"`
	InspectionDate time.Time `json:"inspectionDate"`
	Country        string    `json:"country"`
	State          string    `json:"state"`
	City           string    `json:"city"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Images   []Image   `json:"images"`
	Analysis *Analysis `json:"analysis"`
}

// AnalysisStatus returns the status of the attached analysis, or "".
func (i *Inspection) AnalysisStatus() string {
	if i.Analysis == nil {
		return ""
	}
	return i.Analysis.Status
}

// =============================================================================
// Inspection Service Parameters
// =============================================================================

// CreateInspectionParams contains the parameters for creating an inspection.
type CreateInspectionParams struct {
	UserID         int64 // From the auth context
	PlantName      string
	InspectionDate time.Time
	Country        string
	State          string
	City           string
	Notes          string
}

// Normalize trims surrounding whitespace from every text field.
func (p *CreateInspectionParams) Normalize() {
	p.PlantName = strings.TrimSpace(p.PlantName)
	p.Country = strings.TrimSpace(p.Country)
	p.State = strings.TrimSpace(p.State)
	p.City = strings.TrimSpace(p.City)
	p.Notes = strings.TrimSpace(p.Notes)
}

// Validate checks required fields and lengths.
func (p CreateInspectionParams) Validate(op string) error {
	v := NewValidator(op)
	checkRequiredText(v, "plantName", "Plant name", p.PlantName, MaxPlantNameLength)
	v.Check(!p.InspectionDate.IsZero(), "inspectionDate", "Inspection date is required")
	checkRequiredText(v, "country", "Country", p.Country, MaxLocationLength)
	checkRequiredText(v, "state", "State", p.State, MaxLocationLength)
	checkRequiredText(v, "city", "City", p.City, MaxLocationLength)
	v.Check(len(p.Notes) <= MaxNotesLength, "notes", "Notes must be at most 1000 characters")
	return v.Err()
}

// UpdateInspectionParams is a partial update. A field is written only when
// it carries a non-blank value; absent, null and blank leave it unchanged.
// Notes is the exception: any present value is written and null clears it.
type UpdateInspectionParams struct {
	PlantName      Optional[string]
	InspectionDate Optional[time.Time]
	Country        Optional[string]
	State          Optional[string]
	City           Optional[string]
	Notes          Optional[string]
}

// Validate checks the lengths of the fields that will be written.
func (p UpdateInspectionParams) Validate(op string) error {
	v := NewValidator(op)
	checkOptionalText(v, "plantName", "Plant name", p.PlantName, MaxPlantNameLength)
	checkOptionalText(v, "country", "Country", p.Country, MaxLocationLength)
	checkOptionalText(v, "state", "State", p.State, MaxLocationLength)
	checkOptionalText(v, "city", "City", p.City, MaxLocationLength)
	v.Check(len(strings.TrimSpace(p.Notes.Value)) <= MaxNotesLength, "notes", "Notes must be at most 1000 characters")
	return v.Err()
}

// Apply merges the provided fields into current and returns the result.
func (p UpdateInspectionParams) Apply(current Inspection) Inspection {
	if v, ok := Provided(p.PlantName); ok {
		current.PlantName = v
	}
	if p.InspectionDate.HasValue() && !p.InspectionDate.Value.IsZero() {
		current.InspectionDate = p.InspectionDate.Value
	}
	if v, ok := Provided(p.Country); ok {
		current.Country = v
	}
	if v, ok := Provided(p.State); ok {
		current.State = v
	}
	if v, ok := Provided(p.City); ok {
		current.City = v
	}
	if p.Notes.Set {
		// null clears the notes
		current.Notes = strings.TrimSpace(p.Notes.Value)
	}
	return current
}

// SearchFilter narrows an inspection search. Zero values do not filter.
type SearchFilter struct {
	PlantName string     // Case-insensitive substring
	Status    string     // Exact analysis status
	StartDate *time.Time // Inclusive lower bound
	EndDate   *time.Time // Inclusive upper bound
}

// Validate rejects an inverted date range.
func (f SearchFilter) Validate(op string) error {
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return NewValidationError(op, "endDate", "End date must not be before start date")
	}
	return nil
}

// Accepted date layouts, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses an RFC3339 timestamp or a bare YYYY-MM-DD date (UTC).
// endOfDay moves a bare date to its last instant so that an upper bound
// includes the whole day.
func ParseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if layout == "2006-01-02" && endOfDay {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// EscapeLike escapes LIKE metacharacters so s matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func checkRequiredText(v *Validator, field, label, value string, max int) {
	v.Check(value != "", field, label+" is required")
	v.Check(len(value) <= max, field, label+" is too long")
}

func checkOptionalText(v *Validator, field, label string, value Optional[string], max int) {
	if text, ok := Provided(value); ok {
		v.Check(len(text) <= max, field, label+" is too long")
	}
}
