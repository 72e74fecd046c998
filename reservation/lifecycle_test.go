package reservation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterpribes/jotakareservas1/reservation"
	"github.com/walterpribes/jotakareservas1/reservation/store"
)

// =============================================================================
// HELPERS
// =============================================================================

var clock = time.Date(2025, 6, 15, 15, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*reservation.Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	log, _ := test.NewNullLogger()
	svc := reservation.NewService(mem, nil, log)

	tick := 0
	svc.Now = func() time.Time {
		tick++
		return clock.Add(time.Duration(tick) * time.Minute)
	}
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, mem
}

func book(t *testing.T, svc *reservation.Service, date string) reservation.Reservation {
	t.Helper()
	r, err := svc.Create(context.Background(), reservation.CreateInput{
		UnitID:      reservation.UnitAsaSul,
		ClientName:  "Maria Souza",
		ClientPhone: "(61) 99999-0000",
		Date:        date,
		Time:        "20:00",
		PeopleCount: 4,
	}, "ana")
	require.NoError(t, err)
	return r
}

func move(t *testing.T, svc *reservation.Service, id string, to reservation.Status) reservation.Reservation {
	t.Helper()
	r, err := svc.Transition(context.Background(), id, to, "ana", reservation.TransitionOptions{})
	require.NoError(t, err)
	return r
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_StartsPendingWithOneEntry(t *testing.T) {
	svc, _ := newService(t)

	r := book(t, svc, "2025-06-20")

	assert.Equal(t, reservation.StatusPending, r.Status)
	assert.Equal(t, 1, r.Version)
	require.Len(t, r.History, 1)
	assert.Equal(t, reservation.ActionCreated, r.History[0].Action)
	assert.Equal(t, "ana", r.LastModifiedBy)
	assert.Equal(t, "61999990000", r.ClientPhone)
	assert.False(t, r.Modified())
}

func TestCreate_ReusesClientByPhone(t *testing.T) {
	// GIVEN: A reservation for a phone
	// WHEN: Booking again with the same phone in another format
	// THEN: Both reservations point at one client

	svc, _ := newService(t)
	first := book(t, svc, "2025-06-20")

	second, err := svc.Create(context.Background(), reservation.CreateInput{
		UnitID:      reservation.UnitTaguatinga,
		ClientName:  "Maria S.",
		ClientPhone: "61 99999 0000",
		Date:        "2025-06-21",
		Time:        "19:30",
		PeopleCount: 2,
	}, "ana")
	require.NoError(t, err)

	assert.Equal(t, first.ClientID, second.ClientID)
	clients, err := svc.SearchClients(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, clients, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService(t)
	valid := reservation.CreateInput{
		UnitID:      reservation.UnitAsaSul,
		ClientName:  "Maria",
		ClientPhone: "61999990000",
		Date:        "2025-06-20",
		Time:        "20:00",
		PeopleCount: 2,
	}

	tests := []struct {
		name  string
		field string
		edit  func(*reservation.CreateInput)
	}{
		{"blank name", "client_name", func(in *reservation.CreateInput) { in.ClientName = "  " }},
		{"phone without digits", "client_phone", func(in *reservation.CreateInput) { in.ClientPhone = "n/a" }},
		{"unknown unit", "unit_id", func(in *reservation.CreateInput) { in.UnitID = "gama" }},
		{"bad date", "date", func(in *reservation.CreateInput) { in.Date = "20/06/2025" }},
		{"bad time", "time", func(in *reservation.CreateInput) { in.Time = "8pm" }},
		{"empty party", "people_count", func(in *reservation.CreateInput) { in.PeopleCount = 0 }},
		{"bad area", "area", func(in *reservation.CreateInput) { in.Area = "ROOFTOP" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			_, err := svc.Create(context.Background(), in, "ana")

			var ve *reservation.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, reservation.IsClientError(err))
		})
	}
}

func TestCreate_NotesSetAuthor(t *testing.T) {
	svc, _ := newService(t)
	r, err := svc.Create(context.Background(), reservation.CreateInput{
		UnitID:       reservation.UnitAsaSul,
		ClientName:   "Maria",
		ClientPhone:  "61999990000",
		Date:         "2025-06-20",
		Time:         "20:00",
		PeopleCount:  2,
		SpecialNotes: "birthday cake",
	}, " ")
	require.NoError(t, err)

	assert.Equal(t, reservation.SystemActor, r.NotesAuthor)
	assert.Equal(t, reservation.SystemActor, r.History[0].Actor)
}

// =============================================================================
// LIFECYCLE SCENARIOS
// =============================================================================

func TestLifecycle_FullVisit(t *testing.T) {
	// GIVEN: A new reservation
	// WHEN: Confirmed, checked in, then completed with 3 guests and R$ 150
	// THEN: Four history entries, the outcome is stored, one visit is recorded

	svc, mem := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")

	move(t, svc, r.ID, reservation.StatusConfirmed)
	move(t, svc, r.ID, reservation.StatusCheckedIn)
	done, err := svc.Complete(ctx, r.ID, 3, amount("150.00"), "ana", reservation.ModeNormal)
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusCompleted, done.Status)
	assert.Equal(t, 4, done.Version)
	require.Len(t, done.History, 4)
	assert.Equal(t, "Status changed to Pré-Confirmado", done.History[1].Action)
	assert.Equal(t, "Status changed to Presente", done.History[2].Action)
	assert.Equal(t, "Completed (actual: 3, R$ 150.00)", done.History[3].Action)
	require.NotNil(t, done.ConfirmedPeopleCount)
	assert.Equal(t, 3, *done.ConfirmedPeopleCount)
	assert.True(t, done.SpentAmount.Equal(decimal.NewFromInt(150)))

	for i := 1; i < len(done.History); i++ {
		assert.False(t, done.History[i].Timestamp.Before(done.History[i-1].Timestamp))
	}

	client, err := mem.GetClient(ctx, r.ClientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-20"}, client.Visits)

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Version, stored.Version)
	assert.Len(t, stored.History, 4)
}

func TestLifecycle_RecompletionKeepsOneVisit(t *testing.T) {
	// GIVEN: A completed reservation
	// WHEN: Completing it again with corrected numbers
	// THEN: Numbers change, history grows, the visit set is unchanged

	svc, mem := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")
	move(t, svc, r.ID, reservation.StatusCheckedIn)
	_, err := svc.Complete(ctx, r.ID, 3, amount("150.00"), "ana", reservation.ModeNormal)
	require.NoError(t, err)

	again, err := svc.Complete(ctx, r.ID, 4, nil, "bruno", reservation.ModeNormal)
	require.NoError(t, err)

	assert.Equal(t, 4, *again.ConfirmedPeopleCount)
	assert.Nil(t, again.SpentAmount)
	assert.Equal(t, "Completed (actual: 4, no amount)", again.History[len(again.History)-1].Action)
	assert.Equal(t, "bruno", again.LastModifiedBy)

	client, err := mem.GetClient(ctx, r.ClientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-20"}, client.Visits)
}

func TestLifecycle_TwoReservationsSameDayOneVisit(t *testing.T) {
	svc, mem := newService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r := book(t, svc, "2025-06-20")
		move(t, svc, r.ID, reservation.StatusCheckedIn)
		_, err := svc.Complete(ctx, r.ID, 2, nil, "ana", reservation.ModeNormal)
		require.NoError(t, err)
	}

	clients, err := mem.ListClients(ctx, reservation.ClientFilter{})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, []string{"2025-06-20"}, clients[0].Visits)

	n, err := svc.CountCompletedReservations(ctx, clients[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTransition_NormalSkipToCompletedRejected(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")

	_, err := svc.Transition(context.Background(), r.ID, reservation.StatusCompleted, "ana", reservation.TransitionOptions{
		ConfirmedCount: intPtr(2),
	})

	require.ErrorIs(t, err, reservation.ErrInvalidTransition)
	var te *reservation.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, reservation.StatusPending, te.From)

	stored, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 1, "rejected move must not be audited")
}

func TestTransition_CorrectionOutOfCompleted(t *testing.T) {
	// GIVEN: A completed reservation
	// WHEN: An operator corrects it back to PENDING
	// THEN: One entry is added, the outcome is cleared, the visit stays

	svc, mem := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")
	move(t, svc, r.ID, reservation.StatusCheckedIn)
	done, err := svc.Complete(ctx, r.ID, 3, amount("90"), "ana", reservation.ModeNormal)
	require.NoError(t, err)

	back, err := svc.Transition(ctx, r.ID, reservation.StatusPending, "gerente", reservation.TransitionOptions{
		Mode: reservation.ModeCorrection,
	})
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusPending, back.Status)
	assert.Len(t, back.History, len(done.History)+1)
	assert.Nil(t, back.ConfirmedPeopleCount)
	assert.Nil(t, back.SpentAmount)

	client, err := mem.GetClient(ctx, r.ClientID)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-20"}, client.Visits)
}

func TestTransition_CompletionNeedsCount(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")
	move(t, svc, r.ID, reservation.StatusCheckedIn)

	_, err := svc.Transition(context.Background(), r.ID, reservation.StatusCompleted, "ana", reservation.TransitionOptions{})
	assert.ErrorIs(t, err, reservation.ErrValidation)

	_, err = svc.Complete(context.Background(), r.ID, 2, amount("-1"), "ana", reservation.ModeNormal)
	assert.ErrorIs(t, err, reservation.ErrValidation)

	_, err = svc.Complete(context.Background(), r.ID, -1, nil, "ana", reservation.ModeNormal)
	assert.ErrorIs(t, err, reservation.ErrValidation)
}

func TestTransition_UnknownModeAndStatus(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")

	_, err := svc.Transition(context.Background(), r.ID, reservation.StatusConfirmed, "ana", reservation.TransitionOptions{Mode: "force"})
	assert.ErrorIs(t, err, reservation.ErrValidation)

	_, err = svc.Transition(context.Background(), r.ID, "SEATED", "ana", reservation.TransitionOptions{})
	assert.ErrorIs(t, err, reservation.ErrValidation)
}

func TestTransition_UnknownReservation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Transition(context.Background(), "missing", reservation.StatusConfirmed, "ana", reservation.TransitionOptions{})

	assert.True(t, reservation.IsNotFound(err))
}

func TestTransition_UsesCustomLabels(t *testing.T) {
	svc, _ := newService(t)
	require.NoError(t, svc.Labels.Save(map[reservation.Status]string{reservation.StatusConfirmed: "Confirmado"}))
	r := book(t, svc, "2025-06-20")

	out := move(t, svc, r.ID, reservation.StatusConfirmed)

	assert.Equal(t, "Status changed to Confirmado", out.History[1].Action)
}

// =============================================================================
// FIELD UPDATES
// =============================================================================

func TestUpdateFields_OneEntryPerCall(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")
	area := reservation.AreaTerrace

	out, err := svc.UpdateFields(context.Background(), r.ID, reservation.FieldUpdate{
		PeopleCount: intPtr(6),
		Time:        strPtr("21:00"),
		TableNumber: strPtr("12"),
		Area:        &area,
	}, "bruno")
	require.NoError(t, err)

	assert.Equal(t, 6, out.PeopleCount)
	assert.Equal(t, "21:00", out.Time)
	assert.Equal(t, reservation.AreaTerrace, out.Area)
	require.Len(t, out.History, 2)
	assert.Equal(t, reservation.ActionUpdated, out.History[1].Action)
	assert.Equal(t, "bruno", out.LastModifiedBy)
	assert.Empty(t, out.NotesAuthor)
	assert.Equal(t, reservation.StatusPending, out.Status)
}

func TestUpdateFields_NotesChangeAuthor(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")

	out, err := svc.UpdateFields(context.Background(), r.ID, reservation.FieldUpdate{
		SpecialNotes: strPtr("window table"),
	}, "carla")
	require.NoError(t, err)

	assert.Equal(t, "carla", out.NotesAuthor)
	assert.Equal(t, reservation.ActionNoteUpdated, out.History[1].Action)
}

func TestUpdateFields_Validation(t *testing.T) {
	svc, _ := newService(t)
	r := book(t, svc, "2025-06-20")

	_, err := svc.UpdateFields(context.Background(), r.ID, reservation.FieldUpdate{PeopleCount: intPtr(0)}, "ana")
	assert.ErrorIs(t, err, reservation.ErrValidation)

	_, err = svc.UpdateFields(context.Background(), r.ID, reservation.FieldUpdate{Date: strPtr("2025-13-01")}, "ana")
	assert.ErrorIs(t, err, reservation.ErrValidation)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestExpectedVersion_StaleWriteRejected(t *testing.T) {
	// GIVEN: Two operators that both read version 1
	// WHEN: Both write with ExpectedVersion 1
	// THEN: The second gets a retryable conflict and nothing is lost

	svc, _ := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")

	_, err := svc.Transition(ctx, r.ID, reservation.StatusConfirmed, "ana", reservation.TransitionOptions{ExpectedVersion: 1})
	require.NoError(t, err)

	_, err = svc.UpdateFields(ctx, r.ID, reservation.FieldUpdate{PeopleCount: intPtr(8), ExpectedVersion: 1}, "bruno")
	require.ErrorIs(t, err, reservation.ErrConflict)
	assert.True(t, reservation.IsRetryable(err))
	var ce *reservation.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Actual)

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.PeopleCount)
	assert.Len(t, stored.History, 2)
}

func TestConcurrentTransitions_ExactlyOneWins(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, r.ID, reservation.StatusConfirmed, fmt.Sprintf("op-%d", i),
				reservation.TransitionOptions{ExpectedVersion: 1})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, reservation.ErrConflict)
	}
	assert.Equal(t, 1, wins)

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 2)
	assert.Equal(t, 2, stored.Version)
}

// =============================================================================
// DELETE / LIST
// =============================================================================

func TestDelete_FromAnyState(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	r := book(t, svc, "2025-06-20")
	move(t, svc, r.ID, reservation.StatusCanceled)

	require.NoError(t, svc.Delete(ctx, r.ID, "ana"))

	_, err := svc.Get(ctx, r.ID)
	assert.True(t, reservation.IsNotFound(err))
	assert.True(t, reservation.IsNotFound(svc.Delete(ctx, r.ID, "ana")))
}

func TestListForDay_OrderedByTime(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, at := range []string{"21:00", "19:00", "20:30"} {
		_, err := svc.Create(ctx, reservation.CreateInput{
			UnitID:      reservation.UnitCeilandia,
			ClientName:  "Guest " + at,
			ClientPhone: "6190000" + at[:2],
			Date:        "2025-06-20",
			Time:        at,
			PeopleCount: 2,
		}, "ana")
		require.NoError(t, err)
	}
	book(t, svc, "2025-06-20") // other unit

	rs, err := svc.ListForDay(ctx, reservation.UnitCeilandia, "2025-06-20")
	require.NoError(t, err)

	require.Len(t, rs, 3)
	assert.Equal(t, []string{"19:00", "20:30", "21:00"}, []string{rs[0].Time, rs[1].Time, rs[2].Time})

	_, err = svc.ListForDay(ctx, "gama", "2025-06-20")
	assert.ErrorIs(t, err, reservation.ErrValidation)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
