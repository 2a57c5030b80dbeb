// Package queue reconciles the two event sources that drive a user's queue
// standing — the one-shot enter/status REST calls and the push topics —
// into one authoritative snapshot. The merge rule lives in a pure reducer
// so it can be tested without any network code.
package queue

import "github.com/iliyamo/sportstix-client/internal/model"

// State is the client's view of one QueueTicket. The zero value is the
// UNSET ticket. Pointer fields mirror the wire contract: the gateway omits
// them once the user is past WAITING.
type State struct {
	GameID               uint64
	Status               model.QueueStatus
	Rank                 *int
	TotalWaiting         *int
	EstimatedWaitSeconds *int
	Token                string
}

// Event is one input to the reducer. Authority is granted by event type,
// never by arrival order: personal events replace the snapshot, public
// events touch only the aggregate count, so an ordering race between the
// two sources cannot corrupt the authoritative fields.
type Event interface{ isEvent() }

// Personal carries a personal-topic message or the result of an
// enter/status call. Both are authoritative for this user and replace the
// status/rank/token snapshot wholesale.
type Personal struct {
	GameID               uint64
	Status               model.QueueStatus
	Rank                 *int
	TotalWaiting         *int
	EstimatedWaitSeconds *int
	Token                string
}

// Public carries the aggregate broadcast shared by everyone waiting on the
// same game. It may only refresh TotalWaiting, and only while the user is
// still WAITING.
type Public struct {
	TotalWaiting int
}

// Reset returns the ticket to UNSET: the user left the queue or the
// admission token was consumed downstream.
type Reset struct{}

func (Personal) isEvent() {}
func (Public) isEvent()   {}
func (Reset) isEvent()    {}

// Apply is the reducer: (current, event) → next. It is pure; callers own
// synchronization and side effects.
func Apply(s State, ev Event) State {
	switch e := ev.(type) {
	case Personal:
		return State{
			GameID:               e.GameID,
			Status:               e.Status,
			Rank:                 e.Rank,
			TotalWaiting:         e.TotalWaiting,
			EstimatedWaitSeconds: e.EstimatedWaitSeconds,
			Token:                e.Token,
		}
	case Public:
		// A stale broadcast must never downgrade a newer personal
		// state: past WAITING the aggregate count is irrelevant.
		if s.Status != model.StatusWaiting {
			return s
		}
		n := e.TotalWaiting
		s.TotalWaiting = &n
		return s
	case Reset:
		return State{}
	default:
		return s
	}
}
