package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/walterpribes/jotakareservas1/reservation"
)

// topN is the length of the day rankings.
const topN = 5

// DayRank is one entry of a top-days ranking. Label is DD/MM.
type DayRank struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats is the dashboard of one unit over a window.
type Stats struct {
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	TotalPax        int             `json:"totalPax"`
	TotalRealPax    int             `json:"totalRealPax"`
	AvgTicket       decimal.Decimal `json:"avgTicket"`
	CanceledCount   int             `json:"canceledCount"`
	NoShowCount     int             `json:"noshows"`
	ModifiedCount   int             `json:"modifiedCount"`
	TopAgendaDays   []DayRank       `json:"topAgendaDays"`
	TopCreationDays []DayRank       `json:"topCreationDays"`
}

// realPax is the attendance a reservation contributes: the confirmed count
// once COMPLETED, the booked party while CHECKED_IN, nothing otherwise.
func realPax(r reservation.Reservation) int {
	switch r.Status {
	case reservation.StatusCompleted:
		if r.ConfirmedPeopleCount != nil {
			return *r.ConfirmedPeopleCount
		}
	case reservation.StatusCheckedIn:
		return r.PeopleCount
	}
	return 0
}

func spent(r reservation.Reservation) decimal.Decimal {
	if r.Status == reservation.StatusCompleted && r.SpentAmount != nil {
		return *r.SpentAmount
	}
	return decimal.Zero
}

// avgTicket is spent per attended guest, rounded to cents. Zero attendance
// gives zero.
func avgTicket(total decimal.Decimal, pax int) decimal.Decimal {
	if pax <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(pax))).Round(2)
}

// PeriodStats computes a unit dashboard. Reservations outside w are skipped.
func PeriodStats(rs []reservation.Reservation, w Window) Stats {
	var st Stats
	loc := w.Location()
	agenda := newTally()
	creation := newTally()

	for _, r := range inWindow(rs, w) {
		st.TotalSpent = st.TotalSpent.Add(spent(r))
		st.TotalRealPax += realPax(r)
		st.TotalPax += r.PeopleCount

		switch r.Status {
		case reservation.StatusCanceled:
			st.CanceledCount++
		case reservation.StatusNoShow:
			st.NoShowCount++
		}
		if r.Modified() {
			st.ModifiedCount++
		}

		agenda.add(r.Date)
		creation.add(r.CreatedAt.In(loc).Format(reservation.DateLayout))
	}

	st.AvgTicket = avgTicket(st.TotalSpent, st.TotalRealPax)
	st.TopAgendaDays = agenda.top(topN)
	st.TopCreationDays = creation.top(topN)
	return st
}

// tally counts keys and remembers the order they were first seen.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) { t.addN(key, 1) }

func (t *tally) addN(key string, n int) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key] += n
}

// top returns the n highest counts. Equal counts keep first-seen order.
func (t *tally) top(n int) []DayRank {
	ranks := make([]DayRank, 0, len(t.order))
	for _, key := range t.order {
		ranks = append(ranks, DayRank{Label: dayMonth(key), Count: t.counts[key]})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].Count > ranks[j].Count
	})
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

// dayMonth turns YYYY-MM-DD into DD/MM.
func dayMonth(date string) string {
	if len(date) != len(reservation.DateLayout) {
		return date
	}
	return date[8:10] + "/" + date[5:7]
}
