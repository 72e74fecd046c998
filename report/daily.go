package report

import (
	"time"

	"github.com/walterpribes/jotakareservas1/reservation"
)

// DayCounts are the calendar badges of one day.
type DayCounts struct {
	Scheduled int `json:"scheduled"`
	Created   int `json:"created"`
	NoShows   int `json:"noshows"`
}

// DailyCounts buckets reservations by day. Each reservation touches two
// buckets: its reservation date (scheduled unless CANCELED, plus no-shows)
// and its creation date in loc (created).
func DailyCounts(rs []reservation.Reservation, loc *time.Location) map[string]DayCounts {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[string]DayCounts)
	for _, r := range rs {
		day := counts[r.Date]
		if r.Status != reservation.StatusCanceled {
			day.Scheduled++
		}
		if r.Status == reservation.StatusNoShow {
			day.NoShows++
		}
		counts[r.Date] = day

		created := r.CreatedAt.In(loc).Format(reservation.DateLayout)
		c := counts[created]
		c.Created++
		counts[created] = c
	}
	return counts
}
