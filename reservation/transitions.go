/*
transitions.go - Explicit status transition table

PURPOSE:
  Encodes which status moves an operator may make. The normal flow is
  strictly forward; a correction is a privileged override that moves a
  reservation anywhere (usually backward) to fix a mistake.

NORMAL FLOW:
  PENDING    ──▶ CONFIRMED, CHECKED_IN, CANCELED, NOSHOW
  CONFIRMED  ──▶ CHECKED_IN, CANCELED, NOSHOW
  CHECKED_IN ──▶ COMPLETED
  COMPLETED  ──▶ COMPLETED (re-entry to fix the final numbers)

  CANCELED and NOSHOW are terminal for the normal flow.
  NOSHOW is reachable only from PENDING and CONFIRMED: a checked-in party
  has arrived, so marking it absent needs a correction.

CORRECTION:
  Any status to any different status, plus COMPLETED re-entry.
  A correction into COMPLETED still requires the outcome numbers.

SEE ALSO:
  - lifecycle.go: Applies the side effects of an allowed edge
*/
package reservation

// TransitionMode selects between the forward flow and the correction override.
type TransitionMode string

const (
	ModeNormal     TransitionMode = "normal"
	ModeCorrection TransitionMode = "correction"
)

// Effect is the side effect an allowed edge requires.
type Effect int

const (
	EffectNone Effect = iota
	// EffectStatusChange appends a "status changed" audit entry.
	EffectStatusChange
	// EffectComplete records outcome numbers, audits them and records the visit.
	EffectComplete
)

type edge struct {
	from Status
	to   Status
}

var forward = map[edge]Effect{
	{StatusPending, StatusConfirmed}:   EffectStatusChange,
	{StatusPending, StatusCheckedIn}:   EffectStatusChange,
	{StatusPending, StatusCanceled}:    EffectStatusChange,
	{StatusPending, StatusNoShow}:      EffectStatusChange,
	{StatusConfirmed, StatusCheckedIn}: EffectStatusChange,
	{StatusConfirmed, StatusCanceled}:  EffectStatusChange,
	{StatusConfirmed, StatusNoShow}:    EffectStatusChange,
	{StatusCheckedIn, StatusCompleted}: EffectComplete,
	{StatusCompleted, StatusCompleted}: EffectComplete,
}

// Rule returns whether from -> to is allowed in the given mode and which
// side effect it carries.
func Rule(from, to Status, mode TransitionMode) (Effect, bool) {
	if !from.Valid() || !to.Valid() {
		return EffectNone, false
	}
	if effect, ok := forward[edge{from, to}]; ok {
		return effect, true
	}
	if mode != ModeCorrection || from == to {
		return EffectNone, false
	}
	if to == StatusCompleted {
		return EffectComplete, true
	}
	return EffectStatusChange, true
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status, mode TransitionMode) bool {
	_, ok := Rule(from, to, mode)
	return ok
}

// NextStatuses lists the targets reachable from s in the given mode, in
// lifecycle order.
func NextStatuses(s Status, mode TransitionMode) []Status {
	var out []Status
	for _, to := range Statuses {
		if CanTransition(s, to, mode) {
			out = append(out, to)
		}
	}
	return out
}
