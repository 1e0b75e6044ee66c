package boxes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationHours(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"whole hours", base.Add(56 * time.Hour), 56},
		{"partial hour rounds up", base.Add(90 * time.Minute), 2},
		{"sub-hour floors to one", base.Add(10 * time.Minute), 1},
		{"zero interval floors to one", base, 1},
		{"negative interval floors to one", base.Add(-3 * time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationHours(base, tt.end))
		})
	}
}

func TestUtilizationAccrualSymmetry(t *testing.T) {
	box := &Box{ID: "box-1", UtilizationHours: 10}

	box.AccrueHours(56)
	assert.Equal(t, 66, box.UtilizationHours)

	box.ReleaseHours(56)
	assert.Equal(t, 10, box.UtilizationHours)
}

func TestReleaseHoursFloorsAtZero(t *testing.T) {
	box := &Box{ID: "box-1", UtilizationHours: 5}
	box.ReleaseHours(20)
	assert.Equal(t, 0, box.UtilizationHours)
}
