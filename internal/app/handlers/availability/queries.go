package availability

import (
	"context"
	"errors"
	"time"

	"boxstand/internal/app/uow"
	domainavailability "boxstand/internal/domain/availability"
	domainboxes "boxstand/internal/domain/boxes"
)

var ErrUnitOfWorkRequired = errors.New("availability: unit of work required")

type CheckAvailabilityQuery struct {
	BoxID string
	Start time.Time
	End   time.Time
}

type CheckAvailabilityResult struct {
	BoxID     string `json:"box_id"`
	Available bool   `json:"available"`
}

type RankBoxesQuery struct {
	StandID string
	Start   time.Time
	End     time.Time
}

type RankedBox struct {
	BoxID         string     `json:"box_id"`
	Label         string     `json:"label"`
	AvailableNow  bool       `json:"available_now"`
	EarliestStart *time.Time `json:"earliest_start,omitempty"`
}

// Handler serves the read-only availability queries. Each call derives
// blocked ranges fresh from booking rows; no locking, no cache.
type Handler struct {
	UoWFactory uow.UoWFactory
}

func (h *Handler) Check(ctx context.Context, q CheckAvailabilityQuery) (*CheckAvailabilityResult, error) {
	ctx, unit, managed, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}
	if managed {
		defer func() { _ = unit.Rollback(ctx) }()
	}

	engine := domainavailability.Engine{Bookings: unit.Bookings()}
	free, err := engine.IsAvailable(ctx, domainboxes.BoxID(q.BoxID), q.Start, q.End)
	if err != nil {
		return nil, err
	}
	return &CheckAvailabilityResult{BoxID: q.BoxID, Available: free}, nil
}

// Rank lists a stand's boxes available-first; the head of the list is what
// upstream auto-select picks.
func (h *Handler) Rank(ctx context.Context, q RankBoxesQuery) ([]RankedBox, error) {
	ctx, unit, managed, err := h.begin(ctx)
	if err != nil {
		return nil, err
	}
	if managed {
		defer func() { _ = unit.Rollback(ctx) }()
	}

	candidates, err := unit.Boxes().ListByStand(ctx, q.StandID)
	if err != nil {
		return nil, err
	}
	active := candidates[:0]
	for _, box := range candidates {
		if box.Active {
			active = append(active, box)
		}
	}

	engine := domainavailability.Engine{Bookings: unit.Bookings()}
	ranked, err := engine.RankByEarliestAvailability(ctx, active, q.Start, q.End)
	if err != nil {
		return nil, err
	}

	out := make([]RankedBox, 0, len(ranked))
	for _, r := range ranked {
		item := RankedBox{BoxID: string(r.Box.ID), Label: r.Box.Label, AvailableNow: r.AvailableNow}
		if !r.EarliestStart.IsZero() {
			earliest := r.EarliestStart
			item.EarliestStart = &earliest
		}
		out = append(out, item)
	}
	return out, nil
}

func (h *Handler) begin(ctx context.Context) (context.Context, uow.UnitOfWork, bool, error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return ctx, unit, false, nil
	}
	if h.UoWFactory == nil {
		return ctx, nil, false, ErrUnitOfWorkRequired
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return ctx, nil, false, err
	}
	return uow.ContextWithUnitOfWork(ctx, unit), unit, true, nil
}
