package boxes

import (
	"context"
	"errors"
	"math"
	"time"
)

var ErrBoxNotFound = errors.New("boxes: not found")

type BoxID string

// Box is the bookable unit: a physical storage box at a stand. The
// utilization score is an hour counter used to rank boxes by scheduled
// usage; creation accrues it and cancellation releases the same amount.
type Box struct {
	ID               BoxID
	StandID          string
	Label            string
	Active           bool
	UtilizationHours int
	Version          int64
}

type Repository interface {
	ByID(ctx context.Context, id BoxID) (*Box, error)
	ListByStand(ctx context.Context, standID string) ([]*Box, error)
	Save(ctx context.Context, box *Box) error
}

// AccrueHours records scheduled rental hours against the box.
func (b *Box) AccrueHours(hours int) {
	b.UtilizationHours += hours
}

// ReleaseHours reverses a prior accrual. Creation and reversal must use the
// same scheduled duration so the pair is an exact inverse; the score never
// goes below zero on bad data.
func (b *Box) ReleaseHours(hours int) {
	b.UtilizationHours -= hours
	if b.UtilizationHours < 0 {
		b.UtilizationHours = 0
	}
}

// DurationHours converts a rental interval to whole accrual hours with a
// one-hour floor. Negative intervals (clock skew, bad data) clamp to the
// floor instead of erroring.
func DurationHours(start, end time.Time) int {
	hours := int(math.Ceil(end.Sub(start).Hours()))
	if hours < 1 {
		return 1
	}
	return hours
}
