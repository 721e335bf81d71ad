package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

type draft struct {
	Start  string `json:"start_time" validate:"required,hhmm"`
	Date   string `json:"date" validate:"required,date"`
	Type   string `json:"lecture_type" validate:"lecture_type"`
	Status string `json:"status" validate:"required,mark_status"`
	Day    int    `json:"day_of_week" validate:"min=1,max=6"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct("test", "Validate", draft{Start: "09:30", Date: "2024-01-01", Type: "practical", Status: "Present", Day: 6})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct("test", "Validate", draft{Start: "9:30", Date: "01/01/2024", Type: "lab", Status: "late", Day: 7})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, err.Error(), "start_time=hhmm")
	assert.Contains(t, err.Error(), "date=date")
	assert.Contains(t, err.Error(), "lecture_type=lecture_type")
	assert.Contains(t, err.Error(), "status=mark_status")
	assert.Contains(t, err.Error(), "day_of_week=max(6)")
}

func TestStruct_RejectsOutOfRangeClock(t *testing.T) {
	err := Struct("test", "Validate", draft{Start: "24:10", Date: "2024-01-01", Status: "absent", Day: 1})
	assert.True(t, shared.IsValidation(err))
}
