package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/reservation"
	"github.com/walterpribes/jotakareservas1/reservation/store"
)

var created = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) (*store.Memory, reservation.Reservation) {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	c, err := m.UpsertClient(ctx, reservation.Client{ID: "c1", Name: "Maria", Phone: "61999990000"})
	require.NoError(t, err)

	r := reservation.Reservation{
		ID:          "r1",
		UnitID:      reservation.UnitAsaSul,
		ClientID:    c.ID,
		Date:        "2025-06-20",
		Time:        "20:00",
		PeopleCount: 4,
		Status:      reservation.StatusPending,
		CreatedAt:   created,
	}
	r.AppendHistory("ana", reservation.ActionCreated, created)
	require.NoError(t, m.CreateReservation(ctx, r))
	return m, r
}

func TestMemory_UpdateIsCompareAndSwap(t *testing.T) {
	// GIVEN: A stored reservation at version 1
	// WHEN: Updating with the right version, then with the stale one
	// THEN: The first write is applied and bumps the version, the second conflicts

	m, r := seed(t)
	ctx := context.Background()

	r.Status = reservation.StatusConfirmed
	require.NoError(t, m.UpdateReservation(ctx, r, 1))

	r.Status = reservation.StatusCanceled
	err := m.UpdateReservation(ctx, r, 1)
	require.ErrorIs(t, err, reservation.ErrConflict)

	got, err := m.GetReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, reservation.StatusConfirmed, got.Status)

	err = m.UpdateReservation(ctx, reservation.Reservation{ID: "missing"}, 1)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	m, _ := seed(t)
	ctx := context.Background()

	got, err := m.GetReservation(ctx, "r1")
	require.NoError(t, err)
	got.History[0].Action = "tampered"

	again, err := m.GetReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, reservation.ActionCreated, again.History[0].Action)
}

func TestMemory_CreateNeedsKnownClient(t *testing.T) {
	m, r := seed(t)

	r.ID = "r2"
	r.ClientID = "ghost"
	err := m.CreateReservation(context.Background(), r)

	assert.Equal(t, reservation.KindIntegrity, reservation.StorageKindOf(err))
}

func TestMemory_WithTxRollsBack(t *testing.T) {
	// GIVEN: A transaction that writes a visit and a reservation
	// WHEN: The function fails afterwards
	// THEN: Neither write is visible

	m, r := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(st reservation.Store) error {
		if _, err := st.AddVisit(ctx, "c1", "2025-06-20"); err != nil {
			return err
		}
		r.Status = reservation.StatusCheckedIn
		if err := st.UpdateReservation(ctx, r, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := m.GetClient(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, c.Visits)

	got, err := m.GetReservation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, reservation.StatusPending, got.Status)
}

func TestMemory_WithTxCommits(t *testing.T) {
	m, _ := seed(t)
	ctx := context.Background()

	err := m.WithTx(ctx, func(st reservation.Store) error {
		_, err := st.AddVisit(ctx, "c1", "2025-06-20")
		return err
	})
	require.NoError(t, err)

	c, err := m.GetClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-20"}, c.Visits)
}

func TestMemory_AddVisitIdempotent(t *testing.T) {
	m, _ := seed(t)
	ctx := context.Background()

	added, err := m.AddVisit(ctx, "c1", "2025-06-20")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.AddVisit(ctx, "c1", "2025-06-20")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = m.AddVisit(ctx, "ghost", "2025-06-20")
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestMemory_UpdateClientKeepsVisits(t *testing.T) {
	m, _ := seed(t)
	ctx := context.Background()
	_, err := m.AddVisit(ctx, "c1", "2025-06-20")
	require.NoError(t, err)

	require.NoError(t, m.UpdateClient(ctx, reservation.Client{ID: "c1", Name: "Maria S.", Phone: "61911112222"}))

	c, err := m.GetClient(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-20"}, c.Visits)

	// The old phone is free again.
	other, err := m.UpsertClient(ctx, reservation.Client{ID: "c2", Name: "Outra", Phone: "61999990000"})
	require.NoError(t, err)
	assert.Equal(t, "c2", other.ID)
}

func TestMemory_DeleteClientIntegrity(t *testing.T) {
	m, _ := seed(t)
	ctx := context.Background()

	err := m.DeleteClient(ctx, "c1")
	assert.Equal(t, reservation.KindIntegrity, reservation.StorageKindOf(err))

	require.NoError(t, m.DeleteReservation(ctx, "r1"))
	require.NoError(t, m.DeleteClient(ctx, "c1"))
	assert.ErrorIs(t, m.DeleteClient(ctx, "c1"), reservation.ErrNotFound)
}

func TestMemory_ListOrdering(t *testing.T) {
	m, base := seed(t)
	ctx := context.Background()

	add := func(id, date, at string) {
		r := base
		r.ID, r.Date, r.Time = id, date, at
		require.NoError(t, m.CreateReservation(ctx, r))
	}
	add("r2", "2025-06-19", "21:00")
	add("r3", "2025-06-20", "19:00")
	add("r4", "2025-06-20", "20:00") // same date, time and creation as r1

	rs, err := m.ListReservations(ctx, reservation.ReservationFilter{DateFrom: "2025-06-19", DateTo: "2025-06-20"})
	require.NoError(t, err)

	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"r2", "r3", "r1", "r4"}, ids)

	n, err := m.CountReservations(ctx, reservation.ReservationFilter{Date: "2025-06-20"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemory_Notices(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveNotice(ctx, notice.Notice{ID: "n1", Title: "Old", CreatedAt: created}))
	require.NoError(t, m.SaveNotice(ctx, notice.Notice{ID: "n2", Title: "New", CreatedAt: created.Add(time.Hour)}))
	require.NoError(t, m.SaveNotice(ctx, notice.Notice{ID: "n3", Title: "Pinned", IsImportant: true, CreatedAt: created}))

	ns, err := m.ListNotices(ctx)
	require.NoError(t, err)
	require.Len(t, ns, 3)
	assert.Equal(t, []string{"n3", "n2", "n1"}, []string{ns[0].ID, ns[1].ID, ns[2].ID})

	require.NoError(t, m.DeleteNotice(ctx, "n1"))
	_, err = m.GetNotice(ctx, "n1")
	assert.ErrorIs(t, err, notice.ErrNotFound)
	assert.ErrorIs(t, m.DeleteNotice(ctx, "n1"), notice.ErrNotFound)
}
