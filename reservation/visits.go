package reservation

import "strings"

// =============================================================================
// CLIENT VISIT LEDGER
// =============================================================================

// RecordVisit adds date to the client's visits if it is not already there.
// Set semantics: it reports whether the set changed.
func RecordVisit(c *Client, date string) bool {
	if HasVisit(*c, date) {
		return false
	}
	c.Visits = append(c.Visits, date)
	return true
}

// HasVisit reports whether date is in the client's visits.
func HasVisit(c Client, date string) bool {
	for _, v := range c.Visits {
		if v == date {
			return true
		}
	}
	return false
}

// VisitNumber is the ordinal shown next to a booking ("3rd visit").
// A completed reservation is already counted, one in progress is the next.
func VisitNumber(completedCount int, status Status) int {
	if status == StatusCompleted {
		return completedCount
	}
	return completedCount + 1
}

// CleanPhone strips everything but digits.
func CleanPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
