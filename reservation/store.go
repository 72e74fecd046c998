/*
store.go - Persistence interface for reservations and clients

PURPOSE:
  Defines the boundary between the lifecycle engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Reservation and client persistence
  TxStore: Store plus atomic multi-write transactions

VERSIONED WRITES:
  A reservation update is a read-modify-write. To keep two operators
  from silently dropping each other's audit entries, every update names
  the version it read:

    UpdateReservation(ctx, r, expectedVersion)

  The store applies it only if the stored version still equals
  expectedVersion, and stores expectedVersion+1. Otherwise it returns
  ErrConflict and nothing is written.

VISIT SET:
  AddVisit is an atomic set-insert evaluated by the store. The engine
  never reads the visit list, appends and writes it back.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - reservation/store/memory.go: In-memory for testing

SEE ALSO:
  - lifecycle.go: Uses these interfaces
*/
package reservation

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// ReservationFilter narrows a listing. Zero-valued fields are ignored.
// DateFrom and DateTo are inclusive YYYY-MM-DD bounds.
type ReservationFilter struct {
	UnitID   UnitID
	ClientID string
	Date     string
	DateFrom string
	DateTo   string
	Status   Status
}

// Match reports whether r passes the filter.
func (f ReservationFilter) Match(r Reservation) bool {
	if f.UnitID != "" && r.UnitID != f.UnitID {
		return false
	}
	if f.ClientID != "" && r.ClientID != f.ClientID {
		return false
	}
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.DateFrom != "" && r.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// ClientFilter narrows a client listing. Matching is substring based;
// name matching is case-insensitive.
type ClientFilter struct {
	NameContains  string
	PhoneContains string
}

// =============================================================================
// STORE
// =============================================================================

// Store persists reservations and clients.
type Store interface {
	// CreateReservation inserts a new reservation with Version 1.
	CreateReservation(ctx context.Context, r Reservation) error

	// GetReservation returns ErrNotFound for an unknown id.
	GetReservation(ctx context.Context, id string) (Reservation, error)

	// UpdateReservation replaces the reservation if its stored version equals
	// expectedVersion. Returns ErrConflict on mismatch, ErrNotFound if gone.
	UpdateReservation(ctx context.Context, r Reservation, expectedVersion int) error

	// DeleteReservation removes the reservation and its history.
	DeleteReservation(ctx context.Context, id string) error

	// ListReservations returns matches ordered by date, time, then creation.
	ListReservations(ctx context.Context, f ReservationFilter) ([]Reservation, error)

	// CountReservations returns the number of matches.
	CountReservations(ctx context.Context, f ReservationFilter) (int, error)

	// UpsertClient inserts the client or, when the phone is already known,
	// updates that client's name and raises its VIP flag if c.IsVip is set
	// (an upsert never clears VIP). Returns the stored client.
	UpsertClient(ctx context.Context, c Client) (Client, error)

	// GetClient returns ErrNotFound for an unknown id.
	GetClient(ctx context.Context, id string) (Client, error)

	// ListClients returns matches ordered by name.
	ListClients(ctx context.Context, f ClientFilter) ([]Client, error)

	// UpdateClient replaces the client's mutable fields (not visits).
	UpdateClient(ctx context.Context, c Client) error

	// DeleteClient fails with a KindIntegrity StorageError while
	// reservations still reference the client.
	DeleteClient(ctx context.Context, id string) error

	// AddVisit inserts date into the client's visits if absent.
	// Reports whether the set changed.
	AddVisit(ctx context.Context, clientID, date string) (bool, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, every write made through the given Store is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
