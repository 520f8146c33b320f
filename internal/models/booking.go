package models

import "time"

// Interval is a half-open reservation window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Booking struct {
	ID            int64     `json:"id"`
	BookingNumber int       `json:"booking_number"` // display-only, not a uniqueness key
	RenterID      string    `json:"renter_id"`
	BikeID        string    `json:"bike_id"`
	BikeName      string    `json:"bike_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	WithHelmet    bool      `json:"with_helmet"`
	TotalCents    int64     `json:"total_cents"`
	Status        string    `json:"status"` // active, completed
	PaymentRef    string    `json:"payment_ref"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

func (b *Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// Items returns the display description used by the live status surface.
func (b *Booking) Items() string {
	if b.WithHelmet {
		return "Bike and helmet"
	}
	return b.BikeName
}
