package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/walterpribes/jotakareservas1/reservation"
)

// ErrNothingToExport is returned for an empty export.
var ErrNothingToExport = errors.New("nothing to export")

var exportHeader = []string{
	"id", "unit_id", "client_id", "client_name", "client_phone",
	"date", "time", "people_count", "table_number", "area",
	"confirmed_people_count", "spent_amount", "event_type",
	"special_notes", "notes_author", "status", "created_at",
	"history", "last_modified_by", "last_modified_at", "version",
}

// ExportCSV writes a header and one row per reservation. Text and the
// history JSON are always quoted with doubled inner quotes, numbers are bare
// and absent values are empty.
func ExportCSV(w io.Writer, rs []reservation.Reservation) error {
	if len(rs) == 0 {
		return ErrNothingToExport
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(exportHeader, ",") + "\n"); err != nil {
		return err
	}
	for _, r := range rs {
		row, err := exportRow(r)
		if err != nil {
			return fmt.Errorf("export %s: %w", r.ID, err)
		}
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func exportRow(r reservation.Reservation) ([]string, error) {
	history := ""
	if r.History != nil {
		b, err := json.Marshal(r.History)
		if err != nil {
			return nil, err
		}
		history = quote(string(b))
	}

	confirmed := ""
	if r.ConfirmedPeopleCount != nil {
		confirmed = strconv.Itoa(*r.ConfirmedPeopleCount)
	}
	amount := ""
	if r.SpentAmount != nil {
		amount = r.SpentAmount.String()
	}

	return []string{
		quote(r.ID),
		quote(string(r.UnitID)),
		quote(r.ClientID),
		quote(r.ClientName),
		quote(r.ClientPhone),
		quote(r.Date),
		quote(r.Time),
		strconv.Itoa(r.PeopleCount),
		optional(r.TableNumber),
		optional(string(r.Area)),
		confirmed,
		amount,
		quote(r.EventType),
		optional(r.SpecialNotes),
		optional(r.NotesAuthor),
		quote(string(r.Status)),
		timestamp(r.CreatedAt),
		history,
		quote(r.LastModifiedBy),
		timestamp(r.LastModifiedAt),
		strconv.Itoa(r.Version),
	}, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// optional leaves an absent text field empty instead of quoting it.
func optional(s string) string {
	if s == "" {
		return ""
	}
	return quote(s)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return quote(t.UTC().Format(time.RFC3339))
}
