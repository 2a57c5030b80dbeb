package model

// QueueStatus enumerates a user's standing in one game's fair queue.
// StatusUnset is the client-side zero value used before the queue has been
// entered and after it has been left; the gateway never sends it.
type QueueStatus string

const (
	StatusUnset    QueueStatus = ""
	StatusWaiting  QueueStatus = "WAITING"
	StatusEligible QueueStatus = "ELIGIBLE"
	StatusComplete QueueStatus = "COMPLETED"
	StatusError    QueueStatus = "ERROR"
)

// Terminal reports whether the status can no longer change through public
// broadcasts. ELIGIBLE and later states are owned by personal messages and
// explicit user action only.
func (s QueueStatus) Terminal() bool {
	return s == StatusEligible || s == StatusComplete || s == StatusError
}

// QueueEnterRequest is the body of POST /queue/enter.
type QueueEnterRequest struct {
	GameID uint64 `json:"gameId"`
}

// QueueStatusResponse is the payload of POST /queue/enter and
// GET /queue/status. Rank, TotalWaiting and EstimatedWaitSeconds are
// pointers because the gateway omits them once a user is past WAITING.
type QueueStatusResponse struct {
	GameID               uint64      `json:"gameId"`
	Status               QueueStatus `json:"status"`
	Rank                 *int        `json:"rank"`
	TotalWaiting         *int        `json:"totalWaiting"`
	EstimatedWaitSeconds *int        `json:"estimatedWaitSeconds"`
	Token                string      `json:"token"`
}

// QueueUpdateMessage is the JSON body pushed on both queue topics. Messages
// on the personal topic carry the full snapshot including the admission
// token; messages on the public topic carry only aggregate fields and a nil
// UserID.
type QueueUpdateMessage struct {
	GameID               uint64      `json:"gameId"`
	UserID               *uint64     `json:"userId"`
	Status               QueueStatus `json:"status"`
	Rank                 *int        `json:"rank"`
	TotalWaiting         *int        `json:"totalWaiting"`
	EstimatedWaitSeconds *int        `json:"estimatedWaitSeconds"`
	Token                string      `json:"token"`
}
