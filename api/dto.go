/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - Money as plain JSON numbers while the domain keeps decimal.Decimal

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Reservation:
    ReservationDTO, HistoryEntryDTO, CreateReservationRequest,
    TransitionRequest, UpdateReservationRequest

  Client:
    ClientDTO, CreateClientRequest, UpdateClientRequest

  Notice:
    NoticeDTO, NoticeRequest

  Reports:
    StatsDTO, GlobalStatsDTO

VALIDATION:
  Validation is done by the services, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/report"
	"github.com/walterpribes/jotakareservas1/reservation"
)

// =============================================================================
// RESERVATIONS
// =============================================================================

type HistoryEntryDTO struct {
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID                   string            `json:"id"`
	UnitID               string            `json:"unit_id"`
	ClientID             string            `json:"client_id"`
	ClientName           string            `json:"client_name"`
	ClientPhone          string            `json:"client_phone"`
	Date                 string            `json:"date"`
	Time                 string            `json:"time"`
	PeopleCount          int               `json:"people_count"`
	TableNumber          string            `json:"table_number,omitempty"`
	Area                 string            `json:"area,omitempty"`
	ConfirmedPeopleCount *int              `json:"confirmed_people_count"`
	SpentAmount          *float64          `json:"spent_amount"`
	EventType            string            `json:"event_type"`
	SpecialNotes         string            `json:"special_notes,omitempty"`
	NotesAuthor          string            `json:"notes_author,omitempty"`
	Status               string            `json:"status"`
	StatusLabel          string            `json:"status_label"`
	CreatedAt            time.Time         `json:"created_at"`
	History              []HistoryEntryDTO `json:"history"`
	LastModifiedBy       string            `json:"last_modified_by"`
	LastModifiedAt       time.Time         `json:"last_modified_at"`
	Version              int               `json:"version"`

	// VisitNumber is set on single-reservation reads only.
	VisitNumber int `json:"visit_number,omitempty"`
}

type CreateReservationRequest struct {
	UnitID       string `json:"unit_id"`
	ClientName   string `json:"client_name"`
	ClientPhone  string `json:"client_phone"`
	ClientIsVip  bool   `json:"client_is_vip"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PeopleCount  int    `json:"people_count"`
	EventType    string `json:"event_type"`
	Area         string `json:"area"`
	TableNumber  string `json:"table_number"`
	SpecialNotes string `json:"special_notes"`
}

// TransitionRequest is the body of POST /api/reservations/{id}/status.
type TransitionRequest struct {
	Status               string   `json:"status"`
	Correction           bool     `json:"correction"`
	ConfirmedPeopleCount *int     `json:"confirmed_people_count"`
	SpentAmount          *float64 `json:"spent_amount"`
	Version              int      `json:"version"`
}

// UpdateReservationRequest is a partial update; absent fields stay.
type UpdateReservationRequest struct {
	PeopleCount  *int    `json:"people_count"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	SpecialNotes *string `json:"special_notes"`
	TableNumber  *string `json:"table_number"`
	Area         *string `json:"area"`
	EventType    *string `json:"event_type"`
	Version      int     `json:"version"`
}

// =============================================================================
// CLIENTS
// =============================================================================

type ClientDTO struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Phone  string   `json:"phone"`
	Visits []string `json:"visits"`
	IsVip  bool     `json:"is_vip"`
	Notes  string   `json:"notes,omitempty"`
	Tags   []string `json:"tags"`
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	IsVip bool   `json:"is_vip"`
}

type UpdateClientRequest struct {
	Name  *string  `json:"name"`
	Phone *string  `json:"phone"`
	IsVip *bool    `json:"is_vip"`
	Notes *string  `json:"notes"`
	Tags  []string `json:"tags"`
}

// =============================================================================
// NOTICES
// =============================================================================

type NoticeDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorName  string    `json:"author_name"`
	IsImportant bool      `json:"is_important"`
	CreatedAt   time.Time `json:"created_at"`
}

type NoticeRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsImportant bool   `json:"is_important"`
}

// =============================================================================
// REPORTS
// =============================================================================

type StatsDTO struct {
	Period          string           `json:"period"`
	From            string           `json:"from"`
	To              string           `json:"to"`
	TotalSpent      float64          `json:"totalSpent"`
	TotalPax        int              `json:"totalPax"`
	TotalRealPax    int              `json:"totalRealPax"`
	AvgTicket       float64          `json:"avgTicket"`
	CanceledCount   int              `json:"canceledCount"`
	NoShows         int              `json:"noshows"`
	ModifiedCount   int              `json:"modifiedCount"`
	TopAgendaDays   []report.DayRank `json:"topAgendaDays"`
	TopCreationDays []report.DayRank `json:"topCreationDays"`
}

type UnitStatsDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Spent     float64 `json:"spent"`
	Pax       int     `json:"pax"`
	RealPax   int     `json:"realPax"`
	AvgTicket float64 `json:"avgTicket"`
}

type GlobalStatsDTO struct {
	Period            string            `json:"period"`
	From              string            `json:"from"`
	To                string            `json:"to"`
	TotalSpent        float64           `json:"totalSpent"`
	TotalPax          int               `json:"totalPax"`
	TotalRealPax      int               `json:"totalRealPax"`
	GlobalAvgTicket   float64           `json:"globalAvgTicket"`
	UnitBreakdown     []UnitStatsDTO    `json:"unitBreakdown"`
	BestMonth         *report.BestMonth `json:"bestMonth"`
	EfficiencyPercent int               `json:"efficiencyPercent"`
}

type UnitDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (h *Handler) toReservationDTO(r reservation.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:                   r.ID,
		UnitID:               string(r.UnitID),
		ClientID:             r.ClientID,
		ClientName:           r.ClientName,
		ClientPhone:          r.ClientPhone,
		Date:                 r.Date,
		Time:                 r.Time,
		PeopleCount:          r.PeopleCount,
		TableNumber:          r.TableNumber,
		Area:                 string(r.Area),
		ConfirmedPeopleCount: r.ConfirmedPeopleCount,
		EventType:            r.EventType,
		SpecialNotes:         r.SpecialNotes,
		NotesAuthor:          r.NotesAuthor,
		Status:               string(r.Status),
		StatusLabel:          h.Labels.Label(r.Status),
		CreatedAt:            r.CreatedAt,
		History:              make([]HistoryEntryDTO, len(r.History)),
		LastModifiedBy:       r.LastModifiedBy,
		LastModifiedAt:       r.LastModifiedAt,
		Version:              r.Version,
	}
	if r.SpentAmount != nil {
		f := r.SpentAmount.InexactFloat64()
		dto.SpentAmount = &f
	}
	for i, e := range r.History {
		dto.History[i] = HistoryEntryDTO{User: e.Actor, Action: e.Action, Timestamp: e.Timestamp}
	}
	return dto
}

func (h *Handler) toReservationDTOs(rs []reservation.Reservation) []ReservationDTO {
	dtos := make([]ReservationDTO, len(rs))
	for i, r := range rs {
		dtos[i] = h.toReservationDTO(r)
	}
	return dtos
}

func toClientDTO(c reservation.Client) ClientDTO {
	dto := ClientDTO{
		ID:     c.ID,
		Name:   c.Name,
		Phone:  c.Phone,
		Visits: c.Visits,
		IsVip:  c.IsVip,
		Notes:  c.Notes,
		Tags:   c.Tags,
	}
	if dto.Visits == nil {
		dto.Visits = []string{}
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}

func toNoticeDTO(n notice.Notice) NoticeDTO {
	return NoticeDTO{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		AuthorName:  n.AuthorName,
		IsImportant: n.IsImportant,
		CreatedAt:   n.CreatedAt,
	}
}

func toStatsDTO(p report.Period, w report.Window, st report.Stats) StatsDTO {
	return StatsDTO{
		Period:          string(p),
		From:            w.From(),
		To:              w.To(),
		TotalSpent:      st.TotalSpent.InexactFloat64(),
		TotalPax:        st.TotalPax,
		TotalRealPax:    st.TotalRealPax,
		AvgTicket:       st.AvgTicket.InexactFloat64(),
		CanceledCount:   st.CanceledCount,
		NoShows:         st.NoShowCount,
		ModifiedCount:   st.ModifiedCount,
		TopAgendaDays:   st.TopAgendaDays,
		TopCreationDays: st.TopCreationDays,
	}
}

func toGlobalStatsDTO(p report.Period, w report.Window, g report.Global) GlobalStatsDTO {
	dto := GlobalStatsDTO{
		Period:            string(p),
		From:              w.From(),
		To:                w.To(),
		TotalSpent:        g.TotalSpent.InexactFloat64(),
		TotalPax:          g.TotalPax,
		TotalRealPax:      g.TotalRealPax,
		GlobalAvgTicket:   g.AvgTicket.InexactFloat64(),
		UnitBreakdown:     make([]UnitStatsDTO, len(g.Units)),
		BestMonth:         g.BestMonth,
		EfficiencyPercent: g.EfficiencyPercent,
	}
	for i, u := range g.Units {
		dto.UnitBreakdown[i] = UnitStatsDTO{
			ID:        string(u.ID),
			Name:      u.Name,
			Spent:     u.Spent.InexactFloat64(),
			Pax:       u.Pax,
			RealPax:   u.RealPax,
			AvgTicket: u.AvgTicket.InexactFloat64(),
		}
	}
	return dto
}

// amountFromFloat converts a JSON amount to a decimal rounded to cents.
func amountFromFloat(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f).Round(2)
	return &d
}
