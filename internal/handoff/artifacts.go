package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// Artifacts carries the two values that cross page boundaries without
// touching the URL: the admission token (queue → seat selection) and the
// booking snapshot (seat hold → payment). Call sites read and forward these
// explicitly; nothing attaches them to requests automatically.
type Artifacts struct {
	store Store
	ttl   time.Duration
}

// NewArtifacts wraps a Store with the configured artifact TTL.
func NewArtifacts(store Store, ttl time.Duration) *Artifacts {
	return &Artifacts{store: store, ttl: ttl}
}

func queueTokenKey(gameID uint64) string { return fmt.Sprintf("queue-token-%d", gameID) }
func bookingKey(bookingID uint64) string { return fmt.Sprintf("booking-%d", bookingID) }

// SaveAdmissionToken stores the admission token granted for a game.
func (a *Artifacts) SaveAdmissionToken(ctx context.Context, gameID uint64, token string) error {
	return a.store.Put(ctx, queueTokenKey(gameID), token, a.ttl)
}

// AdmissionToken returns the stored admission token for a game. ErrNotFound
// means the seat-selection step must redirect back to the queue entry.
func (a *Artifacts) AdmissionToken(ctx context.Context, gameID uint64) (string, error) {
	return a.store.Get(ctx, queueTokenKey(gameID))
}

// DeleteAdmissionToken removes the token once it has been consumed by a
// successful seat hold (or when the user leaves the queue).
func (a *Artifacts) DeleteAdmissionToken(ctx context.Context, gameID uint64) error {
	return a.store.Delete(ctx, queueTokenKey(gameID))
}

// SaveBooking stores a snapshot of a freshly held booking for the payment
// view. The snapshot is a cache only; the poller re-reads the authoritative
// record from the gateway.
func (a *Artifacts) SaveBooking(ctx context.Context, b model.Booking) error {
	buf, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, bookingKey(b.BookingID), string(buf), a.ttl)
}

// Booking returns the stored snapshot for a booking id. ErrNotFound means
// the payment view must redirect back to seat selection.
func (a *Artifacts) Booking(ctx context.Context, bookingID uint64) (model.Booking, error) {
	raw, err := a.store.Get(ctx, bookingKey(bookingID))
	if err != nil {
		return model.Booking{}, err
	}
	var b model.Booking
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		// A corrupt snapshot is treated the same as a missing one:
		// fail closed and make the caller re-produce it.
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

// DeleteBooking removes a booking snapshot once the booking has resolved.
func (a *Artifacts) DeleteBooking(ctx context.Context, bookingID uint64) error {
	return a.store.Delete(ctx, bookingKey(bookingID))
}
