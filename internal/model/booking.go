package model

import "time"

// BookingStatus enumerates the lifecycle of a booking. The client never
// writes this field directly; it only reflects what the gateway reports.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// SeatStatus enumerates a seat's availability within one game.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatReserved  SeatStatus = "RESERVED"
)

// GameSeat is one selectable seat in a section's seat map.
type GameSeat struct {
	GameSeatID  uint64     `json:"gameSeatId"`
	SeatID      uint64     `json:"seatId"`
	RowNumber   string     `json:"rowNumber"`
	SeatNumber  int        `json:"seatNumber"`
	SectionName string     `json:"sectionName"`
	Grade       string     `json:"grade"`
	Price       int64      `json:"price"`
	Status      SeatStatus `json:"status"`
}

// HoldSeatsRequest is the body of POST /bookings/hold. The admission token
// travels in the X-Queue-Token header, not in the body, so it stays visible
// at the call site.
type HoldSeatsRequest struct {
	GameID      uint64   `json:"gameId"`
	GameSeatIDs []uint64 `json:"gameSeatIds"`
}

// BookingSeat is one held seat inside a booking, with the price captured at
// hold time.
type BookingSeat struct {
	GameSeatID uint64 `json:"gameSeatId"`
	Price      int64  `json:"price"`
}

// Booking is the gateway's view of one booking. While Status is PENDING the
// seats are held until HoldExpiresAt; the client caches this read-through
// and is never the source of truth.
type Booking struct {
	BookingID     uint64        `json:"bookingId"`
	UserID        uint64        `json:"userId"`
	GameID        uint64        `json:"gameId"`
	Status        BookingStatus `json:"status"`
	TotalPrice    int64         `json:"totalPrice"`
	HoldExpiresAt time.Time     `json:"holdExpiresAt"`
	Seats         []BookingSeat `json:"seats"`
	CreatedAt     time.Time     `json:"createdAt"`
}
