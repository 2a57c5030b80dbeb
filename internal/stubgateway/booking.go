package stubgateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sportstix-client/internal/model"
)

func (s *Server) handleGames(c echo.Context) error {
	s.mu.Lock()
	games := append([]model.Game{}, s.games...)
	s.mu.Unlock()
	if status := c.QueryParam("status"); status != "" {
		filtered := games[:0]
		for _, g := range games {
			if string(g.Status) == status {
				filtered = append(filtered, g)
			}
		}
		games = filtered
	}
	return ok(c, model.Page[model.Game]{
		Content:       games,
		TotalElements: len(games),
		TotalPages:    1,
		Size:          len(games),
		First:         true,
		Last:          true,
	})
}

func (s *Server) handleGameDetail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid game id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.ID == id {
			return ok(c, model.GameDetail{
				ID:                g.ID,
				Stadium:           model.Stadium{ID: g.ID, Name: g.StadiumName, Address: "1 Stadium Way"},
				HomeTeam:          g.HomeTeam,
				AwayTeam:          g.AwayTeam,
				GameDate:          g.GameDate,
				TicketOpenAt:      g.TicketOpenAt,
				Status:            g.Status,
				MaxTicketsPerUser: g.MaxTicketsPerUser,
				Sections: []model.Section{
					{SectionID: 1, SectionName: "A", Grade: "VIP", TotalSeats: 20, AvailableSeats: 20 - len(s.heldSeats[g.ID])},
				},
			})
		}
	}
	return fail(c, http.StatusNotFound, "GAME_NOT_FOUND", "no such game")
}

func (s *Server) handleSeats(c echo.Context) error {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid game id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seats := make([]model.GameSeat, 0, 20)
	for i := uint64(1); i <= 20; i++ {
		status := model.SeatAvailable
		if _, held := s.heldSeats[gameID][i]; held {
			status = model.SeatHeld
		}
		seats = append(seats, model.GameSeat{
			GameSeatID:  i,
			SeatID:      i,
			RowNumber:   "A",
			SeatNumber:  int(i),
			SectionName: "A",
			Grade:       "VIP",
			Price:       50000,
			Status:      status,
		})
	}
	return ok(c, seats)
}

func (s *Server) handleHold(c echo.Context) error {
	var req model.HoldSeatsRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	uid := userID(c)
	token := c.Request().Header.Get("X-Queue-Token")
	if token == "" {
		return fail(c, http.StatusForbidden, "QUEUE_TOKEN_MISSING", "admission token required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queueFor(req.GameID)
	if q.tokens[uid] != token {
		return fail(c, http.StatusForbidden, "QUEUE_TOKEN_EXPIRED", "admission token not valid")
	}
	held := s.heldSeats[req.GameID]
	if held == nil {
		held = map[uint64]uint64{}
		s.heldSeats[req.GameID] = held
	}
	for _, seat := range req.GameSeatIDs {
		if _, taken := held[seat]; taken {
			return fail(c, http.StatusConflict, "SEAT_ALREADY_TAKEN", "one or more seats are no longer available")
		}
	}
	s.nextBookingID++
	b := &model.Booking{
		BookingID:     s.nextBookingID,
		UserID:        uid,
		GameID:        req.GameID,
		Status:        model.BookingPending,
		HoldExpiresAt: time.Now().UTC().Add(s.holdTTL),
		CreatedAt:     time.Now().UTC(),
	}
	for _, seat := range req.GameSeatIDs {
		held[seat] = b.BookingID
		b.Seats = append(b.Seats, model.BookingSeat{GameSeatID: seat, Price: 50000})
		b.TotalPrice += 50000
	}
	s.bookings[b.BookingID] = b
	// The admission token is single-use.
	delete(q.tokens, uid)
	q.status[uid] = model.StatusComplete
	return ok(c, *b)
}

func (s *Server) bookingByID(c echo.Context) (*model.Booking, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid booking id")
	}
	b := s.bookings[id]
	if b == nil || b.UserID != userID(c) {
		return nil, fail(c, http.StatusNotFound, "BOOKING_NOT_FOUND", "no such booking")
	}
	return b, nil
}

func (s *Server) handleConfirm(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, echoErr := s.bookingByID(c)
	if b == nil {
		return echoErr
	}
	if b.Status != model.BookingPending {
		return fail(c, http.StatusConflict, "BOOKING_NOT_PENDING", "booking already resolved")
	}
	if time.Now().UTC().After(b.HoldExpiresAt) {
		s.resolveLocked(b, model.BookingCancelled)
		return fail(c, http.StatusConflict, "HOLD_EXPIRED", "hold expired before confirmation")
	}
	s.resolveLocked(b, model.BookingConfirmed)
	return ok(c, *b)
}

func (s *Server) handleCancel(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, echoErr := s.bookingByID(c)
	if b == nil {
		return echoErr
	}
	if b.Status != model.BookingPending {
		return fail(c, http.StatusConflict, "BOOKING_NOT_PENDING", "booking already resolved")
	}
	s.resolveLocked(b, model.BookingCancelled)
	return ok(c, *b)
}

func (s *Server) handleBookingGet(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, echoErr := s.bookingByID(c)
	if b == nil {
		return echoErr
	}
	if b.Status == model.BookingPending && time.Now().UTC().After(b.HoldExpiresAt) {
		// Lazy expiry sweep, as the production gateway's scheduler does.
		s.resolveLocked(b, model.BookingCancelled)
	}
	return ok(c, *b)
}

func (s *Server) handleBookingList(c echo.Context) error {
	uid := userID(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if b.UserID == uid {
			out = append(out, *b)
		}
	}
	return ok(c, out)
}

// resolveLocked finalizes a booking and frees its seats when cancelled.
// Callers hold s.mu.
func (s *Server) resolveLocked(b *model.Booking, status model.BookingStatus) {
	b.Status = status
	if status == model.BookingCancelled {
		held := s.heldSeats[b.GameID]
		for _, seat := range b.Seats {
			if held[seat.GameSeatID] == b.BookingID {
				delete(held, seat.GameSeatID)
			}
		}
	}
}

// ResolveBooking is a test hook emulating an external process resolving a
// PENDING booking (expiry sweep, payment callback).
func (s *Server) ResolveBooking(bookingID uint64, status model.BookingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b := s.bookings[bookingID]; b != nil && b.Status == model.BookingPending {
		s.resolveLocked(b, status)
	}
}
