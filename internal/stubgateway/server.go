// Package stubgateway is an in-process fake of the SportsTix gateway: the
// full REST surface plus the websocket queue channel, backed by in-memory
// state. Tests and the demo CLI run the client against it; it implements
// just enough server behavior to exercise every client path, including
// admission pushes, hold expiry and token rotation.
package stubgateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// Server holds all gateway state behind one mutex. It is not a performance
// model; correctness of the contract is all that matters here.
type Server struct {
	Echo   *echo.Echo
	secret []byte

	mu            sync.Mutex
	users         map[string]*stubUser // keyed by email
	nextUserID    uint64
	refreshTokens map[string]uint64 // refresh token -> user id
	queues        map[uint64]*gameQueue
	bookings      map[uint64]*model.Booking
	nextBookingID uint64
	heldSeats     map[uint64]map[uint64]uint64 // gameID -> gameSeatID -> bookingID
	games         []model.Game

	hub     *hub
	holdTTL time.Duration
}

type stubUser struct {
	id           uint64
	email        string
	name         string
	role         string
	passwordHash []byte
}

// New builds a stub gateway with a couple of seeded games. holdTTL controls
// how long seat holds live; tests shrink it to exercise expiry.
func New(secret string, holdTTL time.Duration) *Server {
	s := &Server{
		Echo:          echo.New(),
		secret:        []byte(secret),
		users:         map[string]*stubUser{},
		refreshTokens: map[string]uint64{},
		queues:        map[uint64]*gameQueue{},
		bookings:      map[uint64]*model.Booking{},
		heldSeats:     map[uint64]map[uint64]uint64{},
		hub:           newHub(),
		holdTTL:       holdTTL,
	}
	s.Echo.HideBanner = true
	s.seedGames()
	s.routes()
	return s
}

func (s *Server) seedGames() {
	open := time.Now().Add(-time.Hour)
	s.games = []model.Game{
		{ID: 1, StadiumName: "Riverside Dome", HomeTeam: "Hawks", AwayTeam: "Comets", GameDate: time.Now().Add(72 * time.Hour), TicketOpenAt: open, Status: model.GameOpen, MaxTicketsPerUser: 4},
		{ID: 2, StadiumName: "North Arena", HomeTeam: "Wolves", AwayTeam: "Giants", GameDate: time.Now().Add(96 * time.Hour), TicketOpenAt: open.Add(48 * time.Hour), Status: model.GameScheduled, MaxTicketsPerUser: 2},
	}
}

func (s *Server) routes() {
	api := s.Echo.Group("/api/v1")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
	api.POST("/auth/refresh", s.handleRefresh)

	authed := api.Group("", s.jwtMiddleware())
	authed.POST("/queue/enter", s.handleQueueEnter)
	authed.GET("/queue/status", s.handleQueueStatus)
	authed.DELETE("/queue/leave", s.handleQueueLeave)
	authed.GET("/games", s.handleGames)
	authed.GET("/games/:id", s.handleGameDetail)
	authed.GET("/games/:id/seats", s.handleSeats)
	authed.GET("/bookings", s.handleBookingList)
	authed.POST("/bookings/hold", s.handleHold)
	authed.POST("/bookings/:id/confirm", s.handleConfirm)
	authed.POST("/bookings/:id/cancel", s.handleCancel)
	authed.GET("/bookings/:id", s.handleBookingGet)

	s.Echo.GET("/ws/queue", s.handleWS)
}

// ----- envelope helpers -----

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, model.Envelope{Success: true, Data: mustJSON(data), Timestamp: time.Now().UTC()})
}

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, model.Envelope{
		Success:   false,
		Error:     &model.APIErrorBody{Code: code, Message: msg},
		Timestamp: time.Now().UTC(),
	})
}
