package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_UnmarshalJSON(t *testing.T) {
	var body struct {
		PlantName Optional[string] `json:"plantName"`
		Notes     Optional[string] `json:"notes"`
		City      Optional[string] `json:"city"`
	}
	err := json.Unmarshal([]byte(`{"plantName":"Tomato","notes":null}`), &body)
	require.NoError(t, err)

	assert.True(t, body.PlantName.HasValue())
	assert.Equal(t, "Tomato", body.PlantName.Value)

	assert.True(t, body.Notes.Set)
	assert.True(t, body.Notes.Null)
	assert.False(t, body.Notes.HasValue())

	assert.False(t, body.City.Set, "absent key must stay unset")
}

func TestProvided(t *testing.T) {
	v, ok := Provided(Some("  Mango "))
	assert.True(t, ok)
	assert.Equal(t, "Mango", v)

	for _, o := range []Optional[string]{{}, NullOf[string](), Some(""), Some(" \t ")} {
		_, ok := Provided(o)
		assert.False(t, ok, "%+v", o)
	}

	role, ok := Provided(Some(RoleAdmin))
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)
}

func TestUpdateInspectionParams_Apply(t *testing.T) {
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	current := Inspection{
		ID:             7,
		PlantName:      "Tomato",
		InspectionDate: date,
		Country:        "Australia",
		State:          "NT",
		City:           "Darwin",
		Notes:          "old",
	}

	tests := []struct {
		name   string
		params UpdateInspectionParams
		want   Inspection
	}{
		{
			name:   "notes only leaves other fields",
			params: UpdateInspectionParams{Notes: Some("new notes")},
			want: func() Inspection {
				w := current
				w.Notes = "new notes"
				return w
			}(),
		},
		{
			name:   "null notes clears to empty",
			params: UpdateInspectionParams{Notes: NullOf[string]()},
			want: func() Inspection {
				w := current
				w.Notes = ""
				return w
			}(),
		},
		{
			name:   "empty update changes nothing",
			params: UpdateInspectionParams{},
			want:   current,
		},
		{
			name: "null plant name keeps stored value",
			params: UpdateInspectionParams{
				PlantName: NullOf[string](),
				Notes:     Some("fresh"),
			},
			want: func() Inspection {
				w := current
				w.Notes = "fresh"
				return w
			}(),
		},
		{
			name: "blank city keeps stored value",
			params: UpdateInspectionParams{
				City:  Some(""),
				State: Some("   "),
				Notes: Some("fresh"),
			},
			want: func() Inspection {
				w := current
				w.Notes = "fresh"
				return w
			}(),
		},
		{
			name:   "null date keeps stored value",
			params: UpdateInspectionParams{InspectionDate: NullOf[time.Time]()},
			want:   current,
		},
		{
			name:   "plant name trimmed",
			params: UpdateInspectionParams{PlantName: Some("  Mango ")},
			want: func() Inspection {
				w := current
				w.PlantName = "Mango"
				return w
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Apply(current))
		})
	}
}

func TestUpdateInspectionParams_Validate(t *testing.T) {
	assert.NoError(t, UpdateInspectionParams{Notes: NullOf[string]()}.Validate("test"))
	assert.NoError(t, UpdateInspectionParams{PlantName: NullOf[string](), Notes: Some("fresh")}.Validate("test"))
	assert.NoError(t, UpdateInspectionParams{City: Some("   ")}.Validate("test"))
	assert.NoError(t, UpdateInspectionParams{InspectionDate: NullOf[time.Time]()}.Validate("test"))

	err := UpdateInspectionParams{PlantName: Some(strings.Repeat("x", MaxPlantNameLength+1))}.Validate("test")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "plantName")
}

func TestCreateInspectionParams_Validate(t *testing.T) {
	valid := CreateInspectionParams{
		UserID:         1,
		PlantName:      "Tomato",
		InspectionDate: time.Now(),
		Country:        "Australia",
		State:          "NT",
		City:           "Darwin",
	}
	assert.NoError(t, valid.Validate("test"))

	missing := valid
	missing.PlantName = ""
	missing.City = ""
	err := missing.Validate("test")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "plantName")
	assert.Contains(t, ve.Fields, "city")
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-03", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), d)

	end, err := ParseDate("2025-01-03", true)
	require.NoError(t, err)
	assert.Equal(t, 2025, end.Year())
	assert.Equal(t, 23, end.Hour())

	ts, err := ParseDate("2025-01-03T10:30:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	_, err = ParseDate("03/01/2025", false)
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\x`, EscapeLike(`c:\x`))
	assert.Equal(t, "tomato", EscapeLike("tomato"))
}

func TestSearchFilter_Validate(t *testing.T) {
	start := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Error(t, SearchFilter{StartDate: &start, EndDate: &end}.Validate("test"))
	assert.NoError(t, SearchFilter{StartDate: &end, EndDate: &start}.Validate("test"))
}
