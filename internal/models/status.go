package models

import "time"

// RentalStatus is the payload shown on the external live-status display.
// It is created when payment succeeds and discarded when the display
// session ends; BookingNumber is display-only.
type RentalStatus struct {
	BookingID     int64     `json:"booking_id"`
	BookingNumber int       `json:"booking_number"`
	BookingItems  string    `json:"booking_items"`
	Status        string    `json:"status"` // started, ended
	UpdatedAt     time.Time `json:"updated_at"`
}
