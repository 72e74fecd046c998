/*
lifecycle.go - Reservation lifecycle operations

PURPOSE:
  Orchestrates every mutation of a reservation:
  1. Creation: validate, upsert the client, write the first audit entry
  2. Transitions: check the transition table, audit the move
  3. Completion: record the outcome numbers and the client visit
  4. Field updates: patch mutable fields with one audit entry per call
  5. Deletion: irreversible removal

WRITE PATH:
  Every mutation runs inside TxStore.WithTx:

    read reservation (version v)
      -> check caller's expected version, if any
      -> apply change + append audit entry
      -> UpdateReservation(r, v)  // stored only if still at v
      -> side effects (visit insert) in the same transaction

  A caller that read version v before showing a form passes it as
  ExpectedVersion. If someone else wrote in between, the call fails with
  ErrConflict instead of overwriting their audit entry.

EXAMPLE:
  svc := reservation.NewService(store, labels, logger)

  r, err := svc.Create(ctx, reservation.CreateInput{...}, "maria@jotaka")
  r, err = svc.Transition(ctx, r.ID, reservation.StatusConfirmed, "maria@jotaka", reservation.TransitionOptions{})
  r, err = svc.Complete(ctx, r.ID, 3, &amount, "maria@jotaka", reservation.ModeNormal)

SEE ALSO:
  - transitions.go: Which edges are allowed
  - audit.go: Action labels
  - clients.go: Client operations
*/
package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service runs reservation and client operations against a store.
type Service struct {
	Store  TxStore
	Labels *StatusLabels
	Log    logrus.FieldLogger

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewService returns a Service using the system clock and random ids.
func NewService(store TxStore, labels *StatusLabels, log logrus.FieldLogger) *Service {
	if labels == nil {
		labels = NewStatusLabels("")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		Store:  store,
		Labels: labels,
		Log:    log,
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  func() string { return uuid.NewString() },
	}
}

// =============================================================================
// CREATE
// =============================================================================

type CreateInput struct {
	UnitID       UnitID
	ClientName   string
	ClientPhone  string
	ClientIsVip  bool
	Date         string
	Time         string
	PeopleCount  int
	EventType    string
	Area         Area
	TableNumber  string
	SpecialNotes string
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.ClientName) == "" {
		return invalid("client_name", "required")
	}
	if CleanPhone(in.ClientPhone) == "" {
		return invalid("client_phone", "required")
	}
	if _, ok := LookupUnit(in.UnitID); !ok {
		return invalid("unit_id", "unknown unit "+string(in.UnitID))
	}
	if err := validateDate(in.Date); err != nil {
		return err
	}
	if err := validateTime(in.Time); err != nil {
		return err
	}
	if in.PeopleCount < 1 {
		return invalid("people_count", "must be at least 1")
	}
	if in.Area != "" && !in.Area.Valid() {
		return invalid("area", "must be TERRACO or SALAO")
	}
	return nil
}

// Create books a reservation in PENDING. The client is upserted by phone and
// its name and phone are copied onto the reservation.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (Reservation, error) {
	if err := in.validate(); err != nil {
		return Reservation{}, err
	}
	actor = NormalizeActor(actor)
	now := s.Now()

	var created Reservation
	err := s.Store.WithTx(ctx, func(st Store) error {
		client, err := st.UpsertClient(ctx, Client{
			ID:    s.NewID(),
			Name:  strings.TrimSpace(in.ClientName),
			Phone: CleanPhone(in.ClientPhone),
			IsVip: in.ClientIsVip,
		})
		if err != nil {
			return err
		}

		r := Reservation{
			ID:           s.NewID(),
			UnitID:       in.UnitID,
			ClientID:     client.ID,
			ClientName:   client.Name,
			ClientPhone:  client.Phone,
			Date:         in.Date,
			Time:         in.Time,
			PeopleCount:  in.PeopleCount,
			TableNumber:  in.TableNumber,
			Area:         in.Area,
			EventType:    in.EventType,
			SpecialNotes: in.SpecialNotes,
			Status:       StatusPending,
			CreatedAt:    now,
			Version:      1,
		}
		if in.SpecialNotes != "" {
			r.NotesAuthor = actor
		}
		r.AppendHistory(actor, ActionCreated, now)

		if err := st.CreateReservation(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": created.ID,
		"unit_id":        created.UnitID,
		"client_id":      created.ClientID,
		"actor":          actor,
	}).Info("reservation created")
	return created, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// TransitionOptions carries the extras of a status change.
type TransitionOptions struct {
	Mode TransitionMode

	// Outcome numbers, required when the target is COMPLETED.
	ConfirmedCount *int
	Amount         *decimal.Decimal

	// ExpectedVersion, when non-zero, must match the stored version.
	ExpectedVersion int
}

// Transition moves the reservation to status to.
func (s *Service) Transition(ctx context.Context, id string, to Status, actor string, opts TransitionOptions) (Reservation, error) {
	if opts.Mode == "" {
		opts.Mode = ModeNormal
	}
	if opts.Mode != ModeNormal && opts.Mode != ModeCorrection {
		return Reservation{}, invalid("mode", "unknown mode "+string(opts.Mode))
	}
	if !to.Valid() {
		return Reservation{}, invalid("status", "unknown status "+string(to))
	}
	actor = NormalizeActor(actor)

	var from Status
	r, err := s.mutate(ctx, id, opts.ExpectedVersion, func(st Store, r *Reservation) error {
		from = r.Status
		effect, ok := Rule(r.Status, to, opts.Mode)
		if !ok {
			return &TransitionError{From: r.Status, To: to, Mode: opts.Mode}
		}
		now := s.Now()

		if effect == EffectComplete {
			if err := validateOutcome(opts.ConfirmedCount, opts.Amount); err != nil {
				return err
			}
			return s.applyCompletion(ctx, st, r, *opts.ConfirmedCount, opts.Amount, actor, now)
		}

		if r.Status == StatusCompleted {
			r.ConfirmedPeopleCount = nil
			r.SpentAmount = nil
		}
		r.Status = to
		r.AppendHistory(actor, statusChangedAction(s.Labels.Label(to)), now)
		return nil
	})
	if err != nil {
		return Reservation{}, err
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": id,
		"from":           from,
		"to":             to,
		"mode":           opts.Mode,
		"actor":          actor,
	}).Info("reservation status changed")
	return r, nil
}

// Complete closes the visit with the actual attendance and amount spent.
// Calling it again on a COMPLETED reservation corrects the numbers.
func (s *Service) Complete(ctx context.Context, id string, confirmedCount int, amount *decimal.Decimal, actor string, mode TransitionMode) (Reservation, error) {
	return s.Transition(ctx, id, StatusCompleted, actor, TransitionOptions{
		Mode:           mode,
		ConfirmedCount: &confirmedCount,
		Amount:         amount,
	})
}

func (s *Service) applyCompletion(ctx context.Context, st Store, r *Reservation, count int, amount *decimal.Decimal, actor string, now time.Time) error {
	r.Status = StatusCompleted
	r.ConfirmedPeopleCount = &count
	if amount != nil {
		v := *amount
		r.SpentAmount = &v
	} else {
		r.SpentAmount = nil
	}
	r.AppendHistory(actor, completedAction(count, amount), now)

	added, err := st.AddVisit(ctx, r.ClientID, r.Date)
	if err != nil {
		return err
	}
	if added {
		s.Log.WithFields(logrus.Fields{
			"client_id": r.ClientID,
			"date":      r.Date,
		}).Debug("client visit recorded")
	}
	return nil
}

func validateOutcome(count *int, amount *decimal.Decimal) error {
	if count == nil {
		return invalid("confirmed_people_count", "required to complete")
	}
	if *count < 0 {
		return invalid("confirmed_people_count", "must not be negative")
	}
	if amount != nil && amount.IsNegative() {
		return invalid("spent_amount", "must not be negative")
	}
	return nil
}

// =============================================================================
// FIELD UPDATES
// =============================================================================

// FieldUpdate patches mutable fields. Nil pointers are left untouched.
type FieldUpdate struct {
	PeopleCount  *int
	Date         *string
	Time         *string
	SpecialNotes *string
	TableNumber  *string
	Area         *Area // pointer to "" clears the area
	EventType    *string

	ExpectedVersion int
}

func (u FieldUpdate) validate() error {
	if u.PeopleCount != nil && *u.PeopleCount < 1 {
		return invalid("people_count", "must be at least 1")
	}
	if u.Date != nil {
		if err := validateDate(*u.Date); err != nil {
			return err
		}
	}
	if u.Time != nil {
		if err := validateTime(*u.Time); err != nil {
			return err
		}
	}
	if u.Area != nil && *u.Area != "" && !u.Area.Valid() {
		return invalid("area", "must be TERRACO or SALAO")
	}
	return nil
}

// UpdateFields applies the patch and appends exactly one audit entry.
// A patch touching the notes is audited as a note change and makes the
// actor the notes author.
func (s *Service) UpdateFields(ctx context.Context, id string, u FieldUpdate, actor string) (Reservation, error) {
	if err := u.validate(); err != nil {
		return Reservation{}, err
	}
	actor = NormalizeActor(actor)

	return s.mutate(ctx, id, u.ExpectedVersion, func(_ Store, r *Reservation) error {
		action := ActionUpdated
		if u.PeopleCount != nil {
			r.PeopleCount = *u.PeopleCount
		}
		if u.Date != nil {
			r.Date = *u.Date
		}
		if u.Time != nil {
			r.Time = *u.Time
		}
		if u.TableNumber != nil {
			r.TableNumber = *u.TableNumber
		}
		if u.Area != nil {
			r.Area = *u.Area
		}
		if u.EventType != nil {
			r.EventType = *u.EventType
		}
		if u.SpecialNotes != nil {
			r.SpecialNotes = *u.SpecialNotes
			r.NotesAuthor = actor
			action = ActionNoteUpdated
		}
		r.AppendHistory(actor, action, s.Now())
		return nil
	})
}

// =============================================================================
// DELETE / READ
// =============================================================================

// Delete removes the reservation from any state. Nothing of it is retained.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.Store.DeleteReservation(ctx, id); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{
		"reservation_id": id,
		"actor":          NormalizeActor(actor),
	}).Warn("reservation deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Reservation, error) {
	return s.Store.GetReservation(ctx, id)
}

// ListForDay returns a unit's reservations for one date, by time ascending.
func (s *Service) ListForDay(ctx context.Context, unitID UnitID, date string) ([]Reservation, error) {
	if _, ok := LookupUnit(unitID); !ok {
		return nil, invalid("unit_id", "unknown unit "+string(unitID))
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	return s.Store.ListReservations(ctx, ReservationFilter{UnitID: unitID, Date: date})
}

// List returns reservations matching the filter.
func (s *Service) List(ctx context.Context, f ReservationFilter) ([]Reservation, error) {
	return s.Store.ListReservations(ctx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

// mutate runs a read-modify-write of one reservation in a transaction.
func (s *Service) mutate(ctx context.Context, id string, expected int, fn func(Store, *Reservation) error) (Reservation, error) {
	var out Reservation
	err := s.Store.WithTx(ctx, func(st Store) error {
		r, err := st.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if expected != 0 && r.Version != expected {
			return &ConflictError{ID: id, Expected: expected, Actual: r.Version}
		}
		read := r.Version
		if err := fn(st, &r); err != nil {
			return err
		}
		if err := st.UpdateReservation(ctx, r, read); err != nil {
			return err
		}
		r.Version = read + 1
		out = r
		return nil
	})
	return out, err
}

func validateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return invalid("date", "expected YYYY-MM-DD")
	}
	return nil
}

func validateTime(t string) error {
	if _, err := time.Parse(TimeLayout, t); err != nil {
		return invalid("time", "expected HH:MM")
	}
	return nil
}
