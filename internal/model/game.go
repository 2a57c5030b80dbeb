package model

import "time"

// GameStatus enumerates where a game sits in its sales lifecycle.
type GameStatus string

const (
	GameScheduled GameStatus = "SCHEDULED"
	GameOpen      GameStatus = "OPEN"
	GameSoldOut   GameStatus = "SOLD_OUT"
	GameClosed    GameStatus = "CLOSED"
)

// Game is one row of the games listing.
type Game struct {
	ID                uint64     `json:"id"`
	StadiumName       string     `json:"stadiumName"`
	HomeTeam          string     `json:"homeTeam"`
	AwayTeam          string     `json:"awayTeam"`
	GameDate          time.Time  `json:"gameDate"`
	TicketOpenAt      time.Time  `json:"ticketOpenAt"`
	Status            GameStatus `json:"status"`
	MaxTicketsPerUser int        `json:"maxTicketsPerUser"`
}

// Stadium is the venue summary embedded in a game detail.
type Stadium struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Section summarizes seat availability for one section of the stadium.
type Section struct {
	SectionID      uint64 `json:"sectionId"`
	SectionName    string `json:"sectionName"`
	Grade          string `json:"grade"` // VIP | RED | BLUE | GRAY
	TotalSeats     int    `json:"totalSeats"`
	AvailableSeats int    `json:"availableSeats"`
}

// GameDetail is the payload of GET /games/{id}: the game plus its venue and
// per-section availability.
type GameDetail struct {
	ID                uint64     `json:"id"`
	Stadium           Stadium    `json:"stadium"`
	HomeTeam          string     `json:"homeTeam"`
	AwayTeam          string     `json:"awayTeam"`
	GameDate          time.Time  `json:"gameDate"`
	TicketOpenAt      time.Time  `json:"ticketOpenAt"`
	Status            GameStatus `json:"status"`
	MaxTicketsPerUser int        `json:"maxTicketsPerUser"`
	Sections          []Section  `json:"sections"`
}

// GameListParams are the optional filters of GET /games.
type GameListParams struct {
	Status   GameStatus
	TeamName string
	From     *time.Time
	To       *time.Time
	Page     int
	Size     int
}
