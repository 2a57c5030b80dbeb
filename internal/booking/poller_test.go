package booking

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sportstix-client/internal/auth"
	"github.com/iliyamo/sportstix-client/internal/handoff"
	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/stubgateway"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// bookingHarness is a signed-in user with a held booking against an
// in-process stub gateway, ready for poller scenarios.
type bookingHarness struct {
	stub      *stubgateway.Server
	service   *Service
	artifacts *handoff.Artifacts
	session   *handoff.SessionStore
	booking   model.Booking
}

func newBookingHarness(t *testing.T, name string, holdTTL time.Duration) *bookingHarness {
	t.Helper()
	h := &bookingHarness{stub: stubgateway.New("test-secret", holdTTL)}
	srv := httptest.NewServer(h.stub.Echo)
	t.Cleanup(srv.Close)

	backing := handoff.NewMemoryStore()
	h.session = handoff.NewSessionStore(backing)
	h.artifacts = handoff.NewArtifacts(backing, time.Minute)
	client := transport.New(srv.URL, 5*time.Second, h.session)
	h.service = NewService(client, h.artifacts)

	ctx := context.Background()
	_, err := auth.NewService(client, h.session).Signup(ctx, name+"@example.com", "password1", name)
	require.NoError(t, err)

	// Empty queue grants admission immediately; the token pays for the hold.
	grant, err := transport.Post[model.QueueStatusResponse](ctx, client, "/queue/enter", model.QueueEnterRequest{GameID: 1}, nil)
	require.NoError(t, err)
	require.Equal(t, model.StatusEligible, grant.Status)
	require.NoError(t, h.artifacts.SaveAdmissionToken(ctx, 1, grant.Token))

	h.booking, err = h.service.Hold(ctx, 1, []uint64{3, 4}, grant.Token)
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, h.booking.Status)
	return h
}

// collect drains updates into a slice behind a channel so tests can assert
// on the observed status sequence.
func collect() (func(model.Booking), <-chan model.Booking) {
	ch := make(chan model.Booking, 16)
	return func(b model.Booking) { ch <- b }, ch
}

func waitUpdate(t *testing.T, ch <-chan model.Booking) model.Booking {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a poll update")
		return model.Booking{}
	}
}

func TestHoldConsumesAdmissionTokenAndStoresSnapshot(t *testing.T) {
	h := newBookingHarness(t, "erin", time.Minute)
	ctx := context.Background()

	_, err := h.artifacts.AdmissionToken(ctx, 1)
	assert.ErrorIs(t, err, handoff.ErrNotFound, "a successful hold must consume the token")

	snap, err := h.artifacts.Booking(ctx, h.booking.BookingID)
	require.NoError(t, err)
	assert.Equal(t, h.booking.BookingID, snap.BookingID)
	assert.Equal(t, model.BookingPending, snap.Status)
	assert.Equal(t, int64(100000), snap.TotalPrice)
	assert.Len(t, snap.Seats, 2)
}

func TestHoldRejectsReusedToken(t *testing.T) {
	h := newBookingHarness(t, "frank", time.Minute)

	// The grant was consumed by the first hold; replaying it must fail.
	_, err := h.service.Hold(context.Background(), 1, []uint64{5}, "stale-token")
	require.Error(t, err)
	assert.True(t, transport.IsCode(err, transport.CodeQueueTokenExpired), "got %v", err)
}

func TestPollerStopsWhenBookingResolves(t *testing.T) {
	h := newBookingHarness(t, "grace", time.Minute)
	poller := NewPoller(h.service, 30*time.Millisecond)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), h.booking.BookingID, onUpdate)
	defer w.Stop()

	require.Equal(t, model.BookingPending, waitUpdate(t, updates).Status)

	// An external resolution must surface on the next tick and end the loop.
	h.stub.ResolveBooking(h.booking.BookingID, model.BookingCancelled)
	for {
		b := waitUpdate(t, updates)
		if b.Status != model.BookingPending {
			assert.Equal(t, model.BookingCancelled, b.Status)
			break
		}
	}
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit once the booking leaves PENDING")
	}
}

func TestInvalidateShortCircuitsInterval(t *testing.T) {
	h := newBookingHarness(t, "heidi", time.Minute)
	// An interval long enough that only Invalidate can trigger the re-read.
	poller := NewPoller(h.service, time.Hour)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), h.booking.BookingID, onUpdate)
	defer w.Stop()
	require.Equal(t, model.BookingPending, waitUpdate(t, updates).Status)

	confirmed, err := h.service.Confirm(context.Background(), h.booking.BookingID)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, confirmed.Status)

	w.Invalidate()
	assert.Equal(t, model.BookingConfirmed, waitUpdate(t, updates).Status)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit after reporting the confirmed booking")
	}
}

func TestStopEndsLoopAndSuppressesUpdates(t *testing.T) {
	h := newBookingHarness(t, "ivan", time.Minute)
	poller := NewPoller(h.service, 20*time.Millisecond)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), h.booking.BookingID, onUpdate)
	require.Equal(t, model.BookingPending, waitUpdate(t, updates).Status)

	w.Stop()
	w.Stop()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit on Stop")
	}

	// Drain whatever raced the cancellation, then verify silence.
	for {
		select {
		case <-updates:
			continue
		default:
		}
		break
	}
	select {
	case b := <-updates:
		t.Fatalf("update after Stop: %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollerStopsOnMissingBooking(t *testing.T) {
	h := newBookingHarness(t, "mallory", time.Minute)
	poller := NewPoller(h.service, 20*time.Millisecond)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), 9999, onUpdate)
	defer w.Stop()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit when the booking does not exist")
	}
	select {
	case b := <-updates:
		t.Fatalf("unexpected update: %+v", b)
	default:
	}
}

func TestPollerStopsAfterSessionExpiry(t *testing.T) {
	h := newBookingHarness(t, "nina", time.Minute)
	poller := NewPoller(h.service, 20*time.Millisecond)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), h.booking.BookingID, onUpdate)
	defer w.Stop()
	require.Equal(t, model.BookingPending, waitUpdate(t, updates).Status)

	// Invalidate the access token and poison the refresh chain so the next
	// poll's 401 recovery fails and the session is cleared. A dead session
	// can never yield a successful poll again, so the loop must exit
	// rather than spin at the interval.
	h.stub.RevokeAccess()
	h.session.SetTokens(h.session.AccessToken(), "poisoned")

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit once the session cannot be recovered")
	}
	assert.False(t, h.session.Authenticated())
}

func TestExpiredHoldIsCancelledOnRead(t *testing.T) {
	// A hold TTL in the past makes the lazy sweep fire on the first poll.
	h := newBookingHarness(t, "judy", -time.Second)
	poller := NewPoller(h.service, 20*time.Millisecond)

	onUpdate, updates := collect()
	w := poller.Watch(context.Background(), h.booking.BookingID, onUpdate)
	defer w.Stop()

	assert.Equal(t, model.BookingCancelled, waitUpdate(t, updates).Status)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop must exit once the expired hold is swept")
	}

	// The swept seats are free for the next buyer.
	_, err := h.service.Confirm(context.Background(), h.booking.BookingID)
	require.Error(t, err)
	assert.True(t, transport.IsCode(err, "BOOKING_NOT_PENDING"), "got %v", err)
}
