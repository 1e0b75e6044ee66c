package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
)

// BookingRepository is an in-memory booking.Repository used by tests and
// the storage-less dev mode.
type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: map[domainbooking.BookingID]*domainbooking.Booking{}}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Version++
	clone := *b
	r.bookings[b.ID] = &clone
	return nil
}

func (r *BookingRepository) BlockingByBox(ctx context.Context, boxID domainboxes.BoxID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.bookings {
		if b.BoxID == boxID && b.Status.Blocks() {
			clone := *b
			out = append(out, &clone)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *BookingRepository) ListNonTerminal(ctx context.Context) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.bookings {
		if !b.Status.Terminal() {
			clone := *b
			out = append(out, &clone)
		}
	}
	sortByID(out)
	return out, nil
}

func (r *BookingRepository) ApplyStatusChanges(ctx context.Context, changes []domainbooking.StatusChange) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var applied int64
	for _, ch := range changes {
		b, ok := r.bookings[ch.BookingID]
		if !ok || b.Status == ch.To {
			continue
		}
		b.Status = ch.To
		b.Version++
		applied++
	}
	return applied, nil
}

func sortByID(bookings []*domainbooking.Booking) {
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
}

// PaymentRepository is an in-memory payments.Repository.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domainpayments.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: map[string]*domainpayments.Payment{}}
}

func (r *PaymentRepository) ByBookingID(ctx context.Context, bookingID string) (*domainpayments.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[bookingID]
	if !ok {
		return nil, domainpayments.ErrPaymentNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domainpayments.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	clone := *p
	r.payments[p.BookingID] = &clone
	return nil
}

// BoxRepository is an in-memory boxes.Repository.
type BoxRepository struct {
	mu    sync.RWMutex
	boxes map[domainboxes.BoxID]*domainboxes.Box
	order []domainboxes.BoxID
}

func NewBoxRepository() *BoxRepository {
	return &BoxRepository{boxes: map[domainboxes.BoxID]*domainboxes.Box{}}
}

func (r *BoxRepository) ByID(ctx context.Context, id domainboxes.BoxID) (*domainboxes.Box, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	box, ok := r.boxes[id]
	if !ok {
		return nil, domainboxes.ErrBoxNotFound
	}
	clone := *box
	return &clone, nil
}

func (r *BoxRepository) ListByStand(ctx context.Context, standID string) ([]*domainboxes.Box, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainboxes.Box
	for _, id := range r.order {
		box := r.boxes[id]
		if box.StandID == standID {
			clone := *box
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *BoxRepository) Save(ctx context.Context, box *domainboxes.Box) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.boxes[box.ID]; !ok {
		r.order = append(r.order, box.ID)
	}
	box.Version++
	clone := *box
	r.boxes[box.ID] = &clone
	return nil
}
