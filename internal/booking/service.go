// Package booking wraps the booking endpoints and the PENDING-status poller
// that detects server-side resolution of a hold.
package booking

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iliyamo/sportstix-client/internal/handoff"
	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// queueTokenHeader carries the admission token on the hold call. It is read
// from the handoff store at the call site and forwarded explicitly; the
// transport never attaches it on its own.
const queueTokenHeader = "X-Queue-Token"

// Service wraps booking mutations and reads. Mutations return the updated
// booking so callers can refresh their view without waiting for a poll.
type Service struct {
	client    *transport.Client
	artifacts *handoff.Artifacts
}

// NewService builds a booking Service over the shared transport and handoff
// store.
func NewService(client *transport.Client, artifacts *handoff.Artifacts) *Service {
	return &Service{client: client, artifacts: artifacts}
}

// Hold reserves seats using the admission token. On success the admission
// token is consumed (deleted from the handoff store) and the new booking
// snapshot is stored for the payment view.
func (s *Service) Hold(ctx context.Context, gameID uint64, gameSeatIDs []uint64, admissionToken string) (model.Booking, error) {
	headers := http.Header{queueTokenHeader: []string{admissionToken}}
	b, err := transport.Post[model.Booking](ctx, s.client, "/bookings/hold", model.HoldSeatsRequest{GameID: gameID, GameSeatIDs: gameSeatIDs}, headers)
	if err != nil {
		return model.Booking{}, err
	}
	_ = s.artifacts.DeleteAdmissionToken(ctx, gameID)
	if err := s.artifacts.SaveBooking(ctx, b); err != nil {
		return b, fmt.Errorf("hold succeeded but snapshot not stored: %w", err)
	}
	return b, nil
}

// Confirm settles a PENDING booking. The stored snapshot is refreshed so
// the payment view's cache cannot go stale between polls.
func (s *Service) Confirm(ctx context.Context, bookingID uint64) (model.Booking, error) {
	b, err := transport.Post[model.Booking](ctx, s.client, fmt.Sprintf("/bookings/%d/confirm", bookingID), nil, nil)
	if err != nil {
		return model.Booking{}, err
	}
	_ = s.artifacts.SaveBooking(ctx, b)
	return b, nil
}

// Cancel releases a booking and its held seats.
func (s *Service) Cancel(ctx context.Context, bookingID uint64) (model.Booking, error) {
	b, err := transport.Post[model.Booking](ctx, s.client, fmt.Sprintf("/bookings/%d/cancel", bookingID), nil, nil)
	if err != nil {
		return model.Booking{}, err
	}
	_ = s.artifacts.SaveBooking(ctx, b)
	return b, nil
}

// Get fetches the authoritative booking record.
func (s *Service) Get(ctx context.Context, bookingID uint64) (model.Booking, error) {
	return transport.Get[model.Booking](ctx, s.client, fmt.Sprintf("/bookings/%d", bookingID), nil)
}

// List fetches all bookings for the signed-in user.
func (s *Service) List(ctx context.Context) ([]model.Booking, error) {
	return transport.Get[[]model.Booking](ctx, s.client, "/bookings", nil)
}
