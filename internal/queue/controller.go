package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"

	"github.com/iliyamo/sportstix-client/internal/handoff"
	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/realtime"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// Controller drives the queue lifecycle: the one-shot enter call, the two
// topic subscriptions, reconnect re-sync, and the ordered leave sequence.
// One Controller serves the single active game of the browsing session.
type Controller struct {
	client    *transport.Client
	manager   *realtime.Manager
	store     *Store
	artifacts *handoff.Artifacts

	mu          sync.Mutex
	gameID      uint64
	leases      []*realtime.Lease
	cancelWatch func()
}

// NewController wires the controller to the shared transport, connection
// manager, state store and handoff store.
func NewController(client *transport.Client, manager *realtime.Manager, store *Store, artifacts *handoff.Artifacts) *Controller {
	return &Controller{client: client, manager: manager, store: store, artifacts: artifacts}
}

func personalTopic(gameID, userID uint64) string {
	return fmt.Sprintf("/topic/queue/%d/%d", gameID, userID)
}

func publicTopic(gameID uint64) string {
	return fmt.Sprintf("/topic/queue/%d", gameID)
}

// Enter joins the queue for a game. If a ticket for this game already holds
// a status (view remounted mid-wait), the HTTP call is skipped and only the
// connection and subscriptions are (re)established.
func (c *Controller) Enter(ctx context.Context, user model.User, gameID uint64) error {
	cur := c.store.State()
	if cur.Status == model.StatusUnset || cur.GameID != gameID {
		resp, err := transport.Post[model.QueueStatusResponse](ctx, c.client, "/queue/enter", model.QueueEnterRequest{GameID: gameID}, nil)
		if err != nil {
			return err
		}
		c.applyAuthoritative(ctx, gameID, resp)
	}
	c.connect(ctx, user, gameID)
	return nil
}

// connect acquires the identity's channel and leases both topics. Re-entry
// for the same game is a no-op so rapid mount/unmount cycles cannot stack
// duplicate handlers.
func (c *Controller) connect(ctx context.Context, user model.User, gameID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gameID == gameID && len(c.leases) > 0 {
		return
	}
	c.releaseLocked()

	conn := c.manager.Acquire(user.ID)
	personal := conn.Subscribe(personalTopic(gameID, user.ID), func(payload json.RawMessage) {
		var msg model.QueueUpdateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("queue: dropping malformed personal update: %v", err)
			return
		}
		c.applyAuthoritative(context.Background(), gameID, model.QueueStatusResponse{
			GameID:               gameID,
			Status:               msg.Status,
			Rank:                 msg.Rank,
			TotalWaiting:         msg.TotalWaiting,
			EstimatedWaitSeconds: msg.EstimatedWaitSeconds,
			Token:                msg.Token,
		})
	})
	public := conn.Subscribe(publicTopic(gameID), func(payload json.RawMessage) {
		var msg model.QueueUpdateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("queue: dropping malformed public update: %v", err)
			return
		}
		if msg.TotalWaiting != nil {
			c.store.Dispatch(Public{TotalWaiting: *msg.TotalWaiting})
		}
	})
	cancel := conn.Watch(func(connected bool) {
		c.store.SetConnected(connected)
		if connected {
			// The channel may have been down for any stretch of the
			// WAITING phase; the REST status call restores whatever
			// pushes were missed, including ELIGIBLE.
			go c.Resync(context.Background(), gameID)
		}
	})

	c.gameID = gameID
	c.leases = []*realtime.Lease{personal, public}
	c.cancelWatch = cancel
	c.store.SetConnected(conn.Connected())
}

// Resync fetches authoritative status over REST. Used after reconnects and
// available to views as a manual fallback.
func (c *Controller) Resync(ctx context.Context, gameID uint64) {
	q := url.Values{"gameId": []string{strconv.FormatUint(gameID, 10)}}
	resp, err := transport.Get[model.QueueStatusResponse](ctx, c.client, "/queue/status", q)
	if err != nil {
		log.Printf("queue: status re-sync failed: %v", err)
		return
	}
	c.applyAuthoritative(ctx, gameID, resp)
}

// applyAuthoritative dispatches a personal-source snapshot and, when it
// grants admission, writes the token into the handoff store for the
// seat-selection step.
func (c *Controller) applyAuthoritative(ctx context.Context, gameID uint64, resp model.QueueStatusResponse) {
	c.store.Dispatch(Personal{
		GameID:               gameID,
		Status:               resp.Status,
		Rank:                 resp.Rank,
		TotalWaiting:         resp.TotalWaiting,
		EstimatedWaitSeconds: resp.EstimatedWaitSeconds,
		Token:                resp.Token,
	})
	if resp.Status == model.StatusEligible && resp.Token != "" {
		if err := c.artifacts.SaveAdmissionToken(ctx, gameID, resp.Token); err != nil {
			log.Printf("queue: saving admission token failed: %v", err)
		}
	}
}

// Leave exits the queue: release server-side first, then tear down the
// channel and reset the ticket. Leases are released on every path so a
// failed leave cannot leak handlers into a dead view.
func (c *Controller) Leave(ctx context.Context, gameID uint64) error {
	q := url.Values{"gameId": []string{strconv.FormatUint(gameID, 10)}}
	err := transport.Delete(ctx, c.client, "/queue/leave", q)

	c.mu.Lock()
	c.releaseLocked()
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.manager.Disconnect()
	c.store.Dispatch(Reset{})
	_ = c.artifacts.DeleteAdmissionToken(ctx, gameID)
	return nil
}

// Teardown releases subscriptions without leaving the queue, for navigation
// away from the queue view. The ticket keeps its state so a remount resumes
// without a duplicate enter call.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// releaseLocked drops all leases and the connectivity watcher. Lease
// release is idempotent, so racing a concurrent teardown is safe.
func (c *Controller) releaseLocked() {
	for _, l := range c.leases {
		l.Release()
	}
	c.leases = nil
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}
	c.gameID = 0
}
