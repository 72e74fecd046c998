package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Audit action labels.
const (
	ActionCreated      = "Reservation created"
	ActionUpdated      = "Details updated"
	ActionNoteUpdated  = "Note updated"
	actionStatusFormat = "Status changed to %s"
)

// SystemActor is recorded when a caller does not identify itself.
const SystemActor = "system"

// NormalizeActor trims the actor and falls back to SystemActor.
func NormalizeActor(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return SystemActor
	}
	return actor
}

// AppendHistory appends one entry and mirrors it into LastModifiedBy/At.
// It is the only way history grows.
func (r *Reservation) AppendHistory(actor, action string, at time.Time) {
	entry := HistoryEntry{Actor: actor, Action: action, Timestamp: at}
	r.History = append(r.History, entry)
	r.LastModifiedBy = entry.Actor
	r.LastModifiedAt = entry.Timestamp
}

// LastEntry returns the most recent history entry.
func (r Reservation) LastEntry() (HistoryEntry, bool) {
	if len(r.History) == 0 {
		return HistoryEntry{}, false
	}
	return r.History[len(r.History)-1], true
}

// Modified reports whether anything happened after creation.
func (r Reservation) Modified() bool {
	return len(r.History) > 1
}

func statusChangedAction(label string) string {
	return fmt.Sprintf(actionStatusFormat, label)
}

func completedAction(count int, amount *decimal.Decimal) string {
	spent := "no amount"
	if amount != nil {
		spent = "R$ " + amount.StringFixed(2)
	}
	return fmt.Sprintf("Completed (actual: %d, %s)", count, spent)
}
