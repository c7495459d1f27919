package models

import "github.com/google/uuid"

// Seat is a player slot within a room. Identity fields are immutable after
// join; SkipsRemaining is consumed by the turn timer when a countdown expires.
type Seat struct {
	ID             uuid.UUID `json:"id"`
	DisplayName    string    `json:"display_name"`
	SeatIndex      int       `json:"seat_index"`
	SkipsRemaining int       `json:"skips_remaining"`
}
