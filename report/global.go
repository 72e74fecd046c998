package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/walterpribes/jotakareservas1/reservation"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// UnitStats is one line of the per-unit breakdown.
type UnitStats struct {
	ID        reservation.UnitID `json:"id"`
	Name      string             `json:"name"`
	Spent     decimal.Decimal    `json:"spent"`
	Pax       int                `json:"pax"`
	RealPax   int                `json:"realPax"`
	AvgTicket decimal.Decimal    `json:"avgTicket"`
}

// BestMonth is the month with the highest real attendance.
type BestMonth struct {
	Key     string `json:"key"`  // YYYY-MM
	Name    string `json:"name"` // e.g. Junho/2025
	RealPax int    `json:"pax"`
}

// Global is the group-wide dashboard.
type Global struct {
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	TotalPax          int             `json:"totalPax"`
	TotalRealPax      int             `json:"totalRealPax"`
	AvgTicket         decimal.Decimal `json:"globalAvgTicket"`
	Units             []UnitStats     `json:"unitBreakdown"`
	BestMonth         *BestMonth      `json:"bestMonth"`
	EfficiencyPercent int             `json:"efficiencyPercent"`
}

// GlobalStats consolidates every unit over w. The breakdown has one line per
// entry of units, in that order; reservations of other units are ignored.
func GlobalStats(rs []reservation.Reservation, units []reservation.Unit, w Window) Global {
	g := Global{Units: make([]UnitStats, len(units))}
	index := make(map[reservation.UnitID]int, len(units))
	for i, u := range units {
		g.Units[i] = UnitStats{ID: u.ID, Name: u.Name}
		index[u.ID] = i
	}

	monthly := newTally()
	for _, r := range inWindow(rs, w) {
		i, ok := index[r.UnitID]
		if !ok {
			continue
		}
		u := &g.Units[i]
		s, pax := spent(r), realPax(r)

		u.Spent = u.Spent.Add(s)
		u.RealPax += pax
		u.Pax += r.PeopleCount
		g.TotalSpent = g.TotalSpent.Add(s)
		g.TotalRealPax += pax
		g.TotalPax += r.PeopleCount

		if (r.Status == reservation.StatusCompleted || r.Status == reservation.StatusCheckedIn) && len(r.Date) >= 7 {
			monthly.addN(r.Date[:7], pax)
		}
	}

	for i := range g.Units {
		if g.Units[i].Spent.IsPositive() {
			g.Units[i].AvgTicket = avgTicket(g.Units[i].Spent, g.Units[i].RealPax)
		}
	}
	g.AvgTicket = avgTicket(g.TotalSpent, g.TotalRealPax)
	g.BestMonth = bestMonth(monthly)
	g.EfficiencyPercent = efficiency(g.TotalRealPax, g.BestMonth)
	return g
}

// bestMonth picks the highest attendance. A strictly greater value is needed
// to replace the current best, so the first month seen wins ties and a month
// with zero attendance never qualifies.
func bestMonth(t *tally) *BestMonth {
	var best *BestMonth
	for _, key := range t.order {
		pax := t.counts[key]
		if pax > 0 && (best == nil || pax > best.RealPax) {
			best = &BestMonth{Key: key, Name: monthName(key), RealPax: pax}
		}
	}
	return best
}

func efficiency(total int, best *BestMonth) int {
	if best == nil || best.RealPax <= 0 {
		return 0
	}
	pct := int(math.Floor(float64(total)/float64(best.RealPax)*100 + 0.5))
	return min(100, pct)
}

func monthName(key string) string {
	if len(key) != 7 {
		return key
	}
	m, err := strconv.Atoi(key[5:])
	if err != nil || m < 1 || m > 12 {
		return key
	}
	return fmt.Sprintf("%s/%s", monthNames[m-1], key[:4])
}
