package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// Poller re-reads a booking on a fixed interval while it is PENDING. A hold
// can resolve server-side without any user action (expiry sweep, external
// confirmation), and the poll is the fallback that notices.
type Poller struct {
	service  *Service
	interval time.Duration
}

// NewPoller builds a Poller with the configured cadence.
func NewPoller(service *Service, interval time.Duration) *Poller {
	return &Poller{service: service, interval: interval}
}

// Watch is one active polling loop. Stop cancels it; Invalidate skips the
// remainder of the current interval so a just-confirmed or just-cancelled
// booking is re-read immediately.
type Watch struct {
	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}
}

// Stop cancels the watch. Any in-flight request is abandoned with it, so a
// late success cannot resurrect state for a booking the caller has already
// written off. Safe to call more than once.
func (w *Watch) Stop() { w.cancel() }

// Invalidate short-circuits the next tick. Non-blocking; if a kick is
// already pending another one is unnecessary.
func (w *Watch) Invalidate() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Done is closed when the loop has exited, either through Stop or because
// the booking left PENDING.
func (w *Watch) Done() <-chan struct{} { return w.done }

// Watch starts polling the booking and reports every fetched record to
// onUpdate. The loop fetches once immediately, then every interval, and
// stops on its own as soon as the status is no longer PENDING.
func (p *Poller) Watch(ctx context.Context, bookingID uint64, onUpdate func(model.Booking)) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{cancel: cancel, kick: make(chan struct{}, 1), done: make(chan struct{})}
	go p.loop(ctx, bookingID, onUpdate, w)
	return w
}

func (p *Poller) loop(ctx context.Context, bookingID uint64, onUpdate func(model.Booking), w *Watch) {
	defer close(w.done)
	for {
		b, err := p.service.Get(ctx, bookingID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, transport.ErrSessionExpired) || transport.IsCode(err, transport.CodeBookingNotFound) {
				// Neither can resolve on a later tick: the session is
				// gone or the booking does not exist for this user.
				log.Printf("booking: poll of %d stopped: %v", bookingID, err)
				return
			}
			// Transient fetch failures keep the loop alive; the next
			// tick retries.
			log.Printf("booking: poll of %d failed: %v", bookingID, err)
		} else {
			onUpdate(b)
			if b.Status != model.BookingPending {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		case <-time.After(p.interval):
		}
	}
}
