// Command sportstix drives the full booking flow against a gateway: sign
// up, enter the queue for a game, wait for admission, hold seats, then
// confirm the booking while the hold countdown and status poller run. With
// -embedded it spins up the in-process stub gateway first, so the whole
// flow works with no external services.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/sportstix-client/internal/auth"
	"github.com/iliyamo/sportstix-client/internal/booking"
	"github.com/iliyamo/sportstix-client/internal/catalog"
	"github.com/iliyamo/sportstix-client/internal/config"
	"github.com/iliyamo/sportstix-client/internal/handoff"
	"github.com/iliyamo/sportstix-client/internal/hold"
	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/queue"
	"github.com/iliyamo/sportstix-client/internal/realtime"
	"github.com/iliyamo/sportstix-client/internal/stubgateway"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

func main() {
	embedded := flag.Bool("embedded", false, "run against an in-process stub gateway")
	gameID := flag.Uint64("game", 1, "game to book")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	var stub *stubgateway.Server
	if *embedded {
		stub = stubgateway.New("demo-secret", 5*time.Minute)
		go func() {
			if err := stub.Echo.Start("127.0.0.1:8089"); err != nil {
				log.Printf("stub gateway stopped: %v", err)
			}
		}()
		cfg.APIBaseURL = "http://127.0.0.1:8089"
		cfg.WSBaseURL = "ws://127.0.0.1:8089"
		time.Sleep(200 * time.Millisecond)
	}

	backing := handoff.NewMemoryStore()
	if rdb := config.NewRedisClient(cfg); rdb != nil {
		backing = handoff.NewRedisStore(rdb, "sportstix")
	}
	session := handoff.NewSessionStore(backing)
	artifacts := handoff.NewArtifacts(backing, cfg.HandoffTTL)

	client := transport.New(cfg.APIBaseURL, cfg.HTTPTimeout, session)
	manager := realtime.NewManager(cfg.WSBaseURL, cfg.ReconnectDelay, cfg.HeartbeatPeriod)
	client.OnLogout(manager.Disconnect)

	authSvc := auth.NewService(client, session)
	qstore := queue.NewStore()
	qc := queue.NewController(client, manager, qstore, artifacts)
	bookingSvc := booking.NewService(client, artifacts)
	poller := booking.NewPoller(bookingSvc, cfg.PollInterval)
	catalogSvc := catalog.NewService(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	user, err := authSvc.Signup(ctx, fmt.Sprintf("demo-%d@example.com", time.Now().UnixNano()), "s3cret!pass", "Demo User")
	if err != nil {
		log.Fatalf("signup: %v", err)
	}
	log.Printf("signed in as %s (id=%d)", user.Email, user.ID)

	if err := qc.Enter(ctx, user, *gameID); err != nil {
		log.Fatalf("enter queue: %v", err)
	}

	// Wait for admission, driven entirely by the state store.
	eligible := make(chan struct{}, 1)
	cancelWatch := qstore.Watch(func(s queue.State) {
		switch s.Status {
		case model.StatusWaiting:
			if s.Rank != nil {
				log.Printf("waiting: rank %d of %d", *s.Rank, deref(s.TotalWaiting))
			}
		case model.StatusEligible:
			select {
			case eligible <- struct{}{}:
			default:
			}
		}
	})
	defer cancelWatch()

	if qstore.State().Status == model.StatusEligible {
		eligible <- struct{}{}
	}
	select {
	case <-eligible:
	case <-ctx.Done():
		log.Fatal("timed out waiting for queue admission")
	}
	log.Printf("admitted to seat selection")

	token, err := artifacts.AdmissionToken(ctx, *gameID)
	if err != nil {
		log.Fatalf("no admission token stored: %v", err)
	}

	detail, err := catalogSvc.Game(ctx, *gameID)
	if err != nil {
		log.Fatalf("game detail: %v", err)
	}
	seats, err := catalogSvc.Seats(ctx, *gameID, detail.Sections[0].SectionID)
	if err != nil {
		log.Fatalf("seat map: %v", err)
	}
	picked := pickSeats(seats, 2)
	if len(picked) == 0 {
		log.Fatal("no seats available")
	}

	b, err := bookingSvc.Hold(ctx, *gameID, picked, token)
	if err != nil {
		log.Fatalf("hold seats: %v", err)
	}
	log.Printf("holding %d seats on booking %d, total %d, expires %s", len(b.Seats), b.BookingID, b.TotalPrice, b.HoldExpiresAt.Format(time.RFC3339))

	var watch *booking.Watch
	countdown := hold.New(b.HoldExpiresAt, func() {
		log.Printf("hold expired before payment")
		if watch != nil {
			watch.Stop()
		}
		cancel()
	})
	countdown.Start()
	defer countdown.Stop()

	watch = poller.Watch(ctx, b.BookingID, func(cur model.Booking) {
		log.Printf("booking %d status: %s", cur.BookingID, cur.Status)
	})

	confirmed, err := bookingSvc.Confirm(ctx, b.BookingID)
	if err != nil {
		log.Fatalf("confirm: %v", err)
	}
	watch.Invalidate()
	log.Printf("booking %d is %s", confirmed.BookingID, confirmed.Status)

	// Drain the poller until it notices the booking left PENDING.
	select {
	case <-watch.Done():
	case <-ctx.Done():
	}

	if err := qc.Leave(ctx, *gameID); err != nil {
		log.Printf("leave queue: %v", err)
	}
	authSvc.Logout()
	log.Printf("done")
}

func pickSeats(seats []model.GameSeat, n int) []uint64 {
	picked := make([]uint64, 0, n)
	for _, s := range seats {
		if s.Status == model.SeatAvailable {
			picked = append(picked, s.GameSeatID)
			if len(picked) == n {
				break
			}
		}
	}
	return picked
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
