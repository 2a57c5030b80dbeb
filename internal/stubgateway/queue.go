package stubgateway

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// gameQueue is the in-memory fair queue for one game. Order of the waiting
// slice is rank order; admitted users leave the slice and keep a token.
type gameQueue struct {
	waiting []uint64
	status  map[uint64]model.QueueStatus
	tokens  map[uint64]string
}

func (s *Server) queueFor(gameID uint64) *gameQueue {
	q, ok := s.queues[gameID]
	if !ok {
		q = &gameQueue{status: map[uint64]model.QueueStatus{}, tokens: map[uint64]string{}}
		s.queues[gameID] = q
	}
	return q
}

// snapshot builds the personal view of one user's standing. Rank and totals
// are only present while WAITING, matching the production wire contract.
func (q *gameQueue) snapshot(gameID, uid uint64) model.QueueStatusResponse {
	resp := model.QueueStatusResponse{GameID: gameID, Status: q.status[uid], Token: q.tokens[uid]}
	if resp.Status != model.StatusWaiting {
		return resp
	}
	total := len(q.waiting)
	for i, w := range q.waiting {
		if w == uid {
			rank := i + 1
			wait := rank * 30
			resp.Rank = &rank
			resp.TotalWaiting = &total
			resp.EstimatedWaitSeconds = &wait
			break
		}
	}
	return resp
}

func (s *Server) handleQueueEnter(c echo.Context) error {
	var req model.QueueEnterRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	uid := userID(c)
	s.mu.Lock()
	q := s.queueFor(req.GameID)
	if q.status[uid] == model.StatusUnset {
		if len(q.waiting) == 0 && len(q.tokens) == 0 {
			// Nobody waiting and no grant outstanding: admit on the spot.
			q.status[uid] = model.StatusEligible
			q.tokens[uid] = uuid.NewString()
		} else {
			q.waiting = append(q.waiting, uid)
			q.status[uid] = model.StatusWaiting
		}
	}
	resp := q.snapshot(req.GameID, uid)
	total := len(q.waiting)
	s.mu.Unlock()
	s.publishTotal(req.GameID, total)
	return ok(c, resp)
}

func (s *Server) handleQueueStatus(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.QueryParam("gameId"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "gameId required")
	}
	uid := userID(c)
	s.mu.Lock()
	resp := s.queueFor(gameID).snapshot(gameID, uid)
	s.mu.Unlock()
	return ok(c, resp)
}

func (s *Server) handleQueueLeave(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.QueryParam("gameId"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "gameId required")
	}
	uid := userID(c)
	s.mu.Lock()
	q := s.queueFor(gameID)
	for i, w := range q.waiting {
		if w == uid {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
	}
	delete(q.status, uid)
	delete(q.tokens, uid)
	total := len(q.waiting)
	s.mu.Unlock()
	s.pushRanks(gameID)
	s.publishTotal(gameID, total)
	return ok(c, nil)
}

// AdmitNext promotes the head of the waiting line to ELIGIBLE and pushes the
// personal update carrying the admission token. Test and demo hook standing
// in for the production ranking engine.
func (s *Server) AdmitNext(gameID uint64) {
	s.mu.Lock()
	q := s.queueFor(gameID)
	if len(q.waiting) == 0 {
		s.mu.Unlock()
		return
	}
	uid := q.waiting[0]
	q.waiting = q.waiting[1:]
	q.status[uid] = model.StatusEligible
	token := uuid.NewString()
	q.tokens[uid] = token
	total := len(q.waiting)
	s.mu.Unlock()

	s.hub.publish(personalTopic(gameID, uid), model.QueueUpdateMessage{
		GameID: gameID,
		UserID: &uid,
		Status: model.StatusEligible,
		Token:  token,
	})
	s.pushRanks(gameID)
	s.publishTotal(gameID, total)
}

// pushRanks re-sends every waiting user their personal position.
func (s *Server) pushRanks(gameID uint64) {
	s.mu.Lock()
	q := s.queueFor(gameID)
	total := len(q.waiting)
	type update struct {
		uid  uint64
		rank int
	}
	updates := make([]update, 0, total)
	for i, w := range q.waiting {
		updates = append(updates, update{uid: w, rank: i + 1})
	}
	s.mu.Unlock()
	for _, u := range updates {
		rank := u.rank
		wait := rank * 30
		uid := u.uid
		s.hub.publish(personalTopic(gameID, uid), model.QueueUpdateMessage{
			GameID:               gameID,
			UserID:               &uid,
			Status:               model.StatusWaiting,
			Rank:                 &rank,
			TotalWaiting:         &total,
			EstimatedWaitSeconds: &wait,
		})
	}
}

// publishTotal broadcasts the aggregate count on the public topic.
func (s *Server) publishTotal(gameID uint64, total int) {
	s.hub.publish(publicTopicName(gameID), model.QueueUpdateMessage{
		GameID:       gameID,
		Status:       model.StatusWaiting,
		TotalWaiting: &total,
	})
}

func personalTopic(gameID, uid uint64) string {
	return "/topic/queue/" + strconv.FormatUint(gameID, 10) + "/" + strconv.FormatUint(uid, 10)
}

func publicTopicName(gameID uint64) string {
	return "/topic/queue/" + strconv.FormatUint(gameID, 10)
}
