package model

import (
	"encoding/json"
	"time"

	"github.com/dukerupert/opsconsole/internal/datewindow"
)

// Booking is a customer appointment owned by the booking system. The
// scheduling engine only reads Date and Time; the rest is carried through
// for display.
type Booking struct {
	ID           string    `json:"id"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"`
	CustomerName string    `json:"customer_name"`
	ServiceName  string    `json:"service_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (b Booking) MarshalJSON() ([]byte, error) {
	type alias Booking
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias(b), datewindow.Format(b.Date)})
}
