package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MaxAnalysisStatusLength = 50
	MaxDescriptionLength    = 2000
	MaxTreatmentLength      = 2000
)

// Analysis is the single assessment attached to an inspection. Status is
// free text (Healthy, At Risk, Alert, Diseased are the usual values).
type Analysis struct {
	InspectionID            int64     `json:"inspectionId"`
	Status                  string    `json:"status"`
	ConfidenceScore         float64   `json:"confidenceScore"`
	Description             string    `json:"description"`
	TreatmentRecommendation string    `json:"treatmentRecommendation"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// CreateAnalysisParams contains the parameters for creating an analysis.
type CreateAnalysisParams struct {
	InspectionID            int64   `json:"inspectionId"`
	Status                  string  `json:"status"`
	ConfidenceScore         float64 `json:"confidenceScore"`
	Description             string  `json:"description"`
	TreatmentRecommendation string  `json:"treatmentRecommendation"`
}

func (p CreateAnalysisParams) Validate(op string) error {
	v := NewValidator(op)
	v.Check(p.InspectionID > 0, "inspectionId", "Inspection ID must be a positive integer")
	status := strings.TrimSpace(p.Status)
	v.Check(status != "", "status", "Status is required")
	v.Check(len(status) <= MaxAnalysisStatusLength, "status", "Status must be at most 50 characters")
	v.Check(IsValidConfidence(p.ConfidenceScore), "confidenceScore", "Confidence score must be between 0 and 100")
	v.Check(len(p.Description) <= MaxDescriptionLength, "description", "Description must be at most 2000 characters")
	v.Check(len(p.TreatmentRecommendation) <= MaxTreatmentLength, "treatmentRecommendation", "Treatment recommendation must be at most 2000 characters")
	return v.Err()
}

// UpdateAnalysisParams is a partial update. Absent, null and blank fields
// leave the stored value unchanged.
type UpdateAnalysisParams struct {
	Status                  Optional[string]  `json:"status"`
	ConfidenceScore         Optional[float64] `json:"confidenceScore"`
	Description             Optional[string]  `json:"description"`
	TreatmentRecommendation Optional[string]  `json:"treatmentRecommendation"`
}

func (p UpdateAnalysisParams) Validate(op string) error {
	v := NewValidator(op)
	if status, ok := Provided(p.Status); ok {
		v.Check(len(status) <= MaxAnalysisStatusLength, "status", "Status must be at most 50 characters")
	}
	if p.ConfidenceScore.HasValue() {
		v.Check(IsValidConfidence(p.ConfidenceScore.Value), "confidenceScore", "Confidence score must be between 0 and 100")
	}
	if d, ok := Provided(p.Description); ok {
		v.Check(len(d) <= MaxDescriptionLength, "description", "Description must be at most 2000 characters")
	}
	if t, ok := Provided(p.TreatmentRecommendation); ok {
		v.Check(len(t) <= MaxTreatmentLength, "treatmentRecommendation", "Treatment recommendation must be at most 2000 characters")
	}
	return v.Err()
}

// Apply merges the provided fields into current.
func (p UpdateAnalysisParams) Apply(current Analysis) Analysis {
	if v, ok := Provided(p.Status); ok {
		current.Status = v
	}
	if p.ConfidenceScore.HasValue() {
		current.ConfidenceScore = RoundConfidence(p.ConfidenceScore.Value)
	}
	if v, ok := Provided(p.Description); ok {
		current.Description = v
	}
	if v, ok := Provided(p.TreatmentRecommendation); ok {
		current.TreatmentRecommendation = v
	}
	return current
}

// IsValidConfidence reports whether score is a finite value in [0, 100].
func IsValidConfidence(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= 100
}

// RoundConfidence rounds to the two decimals the store keeps.
func RoundConfidence(score float64) float64 {
	return math.Round(score*100) / 100
}

// FormatConfidence renders a score as the numeric(5,2) literal the store
// expects.
func FormatConfidence(score float64) string {
	return strconv.FormatFloat(RoundConfidence(score), 'f', 2, 64)
}

// ParseConfidence parses a numeric column value. Malformed input yields 0.
func ParseConfidence(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
