// Package reservation books tables into fixed-capacity (date, time) slots.
package reservation

import (
	"errors"
	"time"

	"restaurantcore/pkg/store"
)

// Table holds reservation rows.
const Table = "reservations"

// Limits.
const (
	SlotCapacity = 10
	MinGuests    = 1
	MaxGuests    = 20
)

// Wire layouts of Reservation.Date and Reservation.Time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ErrSlotFull is wrapped by the Conflict returned when a slot has no room.
var ErrSlotFull = errors.New("slot full")

// Status of a reservation.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Cancelled Status = "cancelled"
	Completed Status = "completed"
	NoShow    Status = "no-show"
)

// Statuses lists every valid status.
var Statuses = []Status{Pending, Confirmed, Cancelled, Completed, NoShow}

// ActiveStatuses occupy a slot.
var ActiveStatuses = []Status{Pending, Confirmed}

var transitions = map[Status][]Status{
	Pending:   {Confirmed, Cancelled},
	Confirmed: {Completed, Cancelled, NoShow},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Active reports whether s counts against slot capacity.
func (s Status) Active() bool { return s == Pending || s == Confirmed }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool { return s.Valid() && len(transitions[s]) == 0 }

// CanTransition reports whether the state machine allows from -> to.
// UpdateStatus does not consult it.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation is a booking for a party at one slot.
type Reservation struct {
	store.Meta
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Guests int    `json:"guests"`
	Status Status `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// Start returns the slot start in loc.
func (r Reservation) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, r.Date+" "+r.Time, loc)
}

// NewReservation is the input to Create.
type NewReservation struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
	Time   string `json:"time"`
	Guests int    `json:"guests"`
	Notes  string `json:"notes"`
}

// Changes are the editable fields of a reservation. Nil fields are left alone.
type Changes struct {
	Date   *string `json:"date"`
	Time   *string `json:"time"`
	Guests *int    `json:"guests"`
	Notes  *string `json:"notes"`
}

// Stats counts reservations in a date range.
type Stats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	Confirmed   int `json:"confirmed"`
	Cancelled   int `json:"cancelled"`
	Completed   int `json:"completed"`
	NoShow      int `json:"no_show"`
	TotalGuests int `json:"total_guests"`
}

// Summarize folds reservations into Stats.
func Summarize(rs []Reservation) Stats {
	var st Stats
	for _, r := range rs {
		st.Total++
		st.TotalGuests += r.Guests
		switch r.Status {
		case Pending:
			st.Pending++
		case Confirmed:
			st.Confirmed++
		case Cancelled:
			st.Cancelled++
		case Completed:
			st.Completed++
		case NoShow:
			st.NoShow++
		}
	}
	return st
}
