package reservation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walterpribes/jotakareservas1/reservation"
)

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestRule_NormalFlow(t *testing.T) {
	// GIVEN: Every ordered pair of statuses
	// WHEN: Checking the normal flow
	// THEN: Only the forward edges and COMPLETED re-entry are allowed

	allowed := map[reservation.Status][]reservation.Status{
		reservation.StatusPending: {
			reservation.StatusConfirmed,
			reservation.StatusCheckedIn,
			reservation.StatusCanceled,
			reservation.StatusNoShow,
		},
		reservation.StatusConfirmed: {
			reservation.StatusCheckedIn,
			reservation.StatusCanceled,
			reservation.StatusNoShow,
		},
		reservation.StatusCheckedIn: {reservation.StatusCompleted},
		reservation.StatusCompleted: {reservation.StatusCompleted},
	}

	for _, from := range reservation.Statuses {
		for _, to := range reservation.Statuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, reservation.CanTransition(from, to, reservation.ModeNormal),
				"%s -> %s", from, to)
		}
	}
}

func TestRule_Effects(t *testing.T) {
	effect, ok := reservation.Rule(reservation.StatusCheckedIn, reservation.StatusCompleted, reservation.ModeNormal)
	assert.True(t, ok)
	assert.Equal(t, reservation.EffectComplete, effect)

	effect, ok = reservation.Rule(reservation.StatusPending, reservation.StatusConfirmed, reservation.ModeNormal)
	assert.True(t, ok)
	assert.Equal(t, reservation.EffectStatusChange, effect)

	// A correction into COMPLETED still records the outcome.
	effect, ok = reservation.Rule(reservation.StatusCanceled, reservation.StatusCompleted, reservation.ModeCorrection)
	assert.True(t, ok)
	assert.Equal(t, reservation.EffectComplete, effect)
}

func TestRule_NoShowAfterCheckInNeedsCorrection(t *testing.T) {
	assert.False(t, reservation.CanTransition(reservation.StatusCheckedIn, reservation.StatusNoShow, reservation.ModeNormal))
	assert.True(t, reservation.CanTransition(reservation.StatusCheckedIn, reservation.StatusNoShow, reservation.ModeCorrection))
}

func TestRule_TerminalStatesInNormalFlow(t *testing.T) {
	for _, from := range []reservation.Status{reservation.StatusCanceled, reservation.StatusNoShow} {
		assert.Empty(t, reservation.NextStatuses(from, reservation.ModeNormal), from)
	}
}

func TestRule_CorrectionReachesEveryOtherStatus(t *testing.T) {
	// GIVEN: Correction mode
	// WHEN: Checking every pair
	// THEN: Every different status is reachable; same-status only for COMPLETED

	for _, from := range reservation.Statuses {
		for _, to := range reservation.Statuses {
			want := from != to || from == reservation.StatusCompleted
			assert.Equal(t, want, reservation.CanTransition(from, to, reservation.ModeCorrection),
				"%s -> %s", from, to)
		}
	}
}

func TestRule_UnknownStatus(t *testing.T) {
	assert.False(t, reservation.CanTransition("SEATED", reservation.StatusCompleted, reservation.ModeCorrection))
	assert.False(t, reservation.CanTransition(reservation.StatusPending, "SEATED", reservation.ModeCorrection))
}

func TestNextStatuses_LifecycleOrder(t *testing.T) {
	assert.Equal(t, []reservation.Status{
		reservation.StatusCheckedIn,
		reservation.StatusCanceled,
		reservation.StatusNoShow,
	}, reservation.NextStatuses(reservation.StatusConfirmed, reservation.ModeNormal))
}
