/*
Package reservation provides the reservation lifecycle and audit engine.

PURPOSE:
  This package owns the rules of a restaurant booking: which status moves
  are allowed, what every move writes to the audit history, and how a
  completed visit lands in the client's visit ledger. Persistence is an
  external collaborator reached through the Store interface.

KEY CONCEPTS IN THIS FILE (types.go):
  - Reservation: a booking for a party at one unit, date and time
  - Status: the six lifecycle states
  - HistoryEntry: one immutable audit record (actor, action, timestamp)
  - Client: the guest record, deduplicated by phone

DESIGN PRINCIPLES:
  1. Append-only audit: history entries are never edited, reordered or dropped
  2. Precision: spent amounts use decimal.Decimal
  3. Versioned writes: every accepted write bumps Version (see store.go)

SEE ALSO:
  - transitions.go: the transition table
  - lifecycle.go: Service operations
  - visits.go: client visit ledger
*/
package reservation

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for reservation dates and visits.
const DateLayout = "2006-01-02"

// TimeLayout is the wall-clock format of a reservation time.
const TimeLayout = "15:04"

// =============================================================================
// STATUS
// =============================================================================

// Status is where a reservation stands in its lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
	StatusNoShow    Status = "NOSHOW"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusCheckedIn,
	StatusCompleted,
	StatusCanceled,
	StatusNoShow,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// =============================================================================
// AREA
// =============================================================================

// Area is the part of the restaurant a booking asks for.
type Area string

const (
	AreaTerrace Area = "TERRACO"
	AreaHall    Area = "SALAO"
)

func (a Area) Valid() bool { return a == AreaTerrace || a == AreaHall }

// =============================================================================
// AUDIT
// =============================================================================

// HistoryEntry is an immutable audit record appended on every mutation.
type HistoryEntry struct {
	Actor     string    `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// =============================================================================
// RESERVATION
// =============================================================================

// Reservation is one booking at a unit, with its audit trail.
type Reservation struct {
	ID          string
	UnitID      UnitID
	ClientID    string
	ClientName  string // copied from the client at creation
	ClientPhone string // copied from the client at creation

	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	PeopleCount int
	TableNumber string
	Area        Area

	// Outcome, set only while COMPLETED
	ConfirmedPeopleCount *int
	SpentAmount          *decimal.Decimal

	EventType    string
	SpecialNotes string
	NotesAuthor  string

	Status    Status
	CreatedAt time.Time

	History        []HistoryEntry
	LastModifiedBy string
	LastModifiedAt time.Time

	// Version is bumped by the store on every accepted write.
	Version int
}

// Day parses the reservation date.
func (r Reservation) Day() (time.Time, error) {
	return time.Parse(DateLayout, r.Date)
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (r Reservation) Clone() Reservation {
	c := r
	c.History = append([]HistoryEntry(nil), r.History...)
	if r.ConfirmedPeopleCount != nil {
		v := *r.ConfirmedPeopleCount
		c.ConfirmedPeopleCount = &v
	}
	if r.SpentAmount != nil {
		v := *r.SpentAmount
		c.SpentAmount = &v
	}
	return c
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a guest identified by phone, with the dates they visited.
type Client struct {
	ID     string
	Name   string
	Phone  string   // digits only, unique
	Visits []string // set of YYYY-MM-DD dates
	IsVip  bool
	Notes  string
	Tags   []string
}

func (c Client) Clone() Client {
	cc := c
	cc.Visits = append([]string(nil), c.Visits...)
	cc.Tags = append([]string(nil), c.Tags...)
	return cc
}
