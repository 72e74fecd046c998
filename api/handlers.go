/*
handlers.go - HTTP API handlers for the reservation book

PURPOSE:
  Exposes the reservation lifecycle, client ledger, notice board and
  reports via REST API. Handles HTTP request/response, JSON serialization,
  and delegates to the domain services.

ENDPOINTS:
  Units:
    GET    /api/units                              List units
    GET    /api/units/{unit}/reservations?date=    Day list, by time
    GET    /api/units/{unit}/calendar?year=&month= Daily badges of a month
    GET    /api/units/{unit}/stats?period=         Unit dashboard
    GET    /api/units/{unit}/export?period=        CSV export of one unit

  Reservations:
    POST   /api/reservations                       Create (client upserted by phone)
    GET    /api/reservations/{id}                  Read, with visit number
    PATCH  /api/reservations/{id}                  Partial update
    DELETE /api/reservations/{id}                  Irreversible delete
    POST   /api/reservations/{id}/status           Status change / completion

  Clients:
    GET    /api/clients?q=                         Search
    POST   /api/clients                            Create or refresh by phone
    GET    /api/clients/{id}                       Read
    PUT    /api/clients/{id}                       Update
    DELETE /api/clients/{id}                       Delete (refused while referenced)
    GET    /api/clients/{id}/completed-count       COMPLETED reservations

  Reports:
    GET    /api/stats/global?period=               Group dashboard
    GET    /api/export?period=                     CSV export of every unit

  Notices / labels:
    GET, POST /api/notices; PUT, DELETE /api/notices/{id}
    GET, PUT, DELETE /api/status-labels

ACTOR:
  The acting user comes from the X-Actor header. Authentication happens
  upstream; a missing header is recorded as "system".

CONCURRENCY:
  Writes accept the version the client last read, either as "version" in
  the body or in an If-Match header. A stale version answers 409 with
  retryable=true and nothing is written.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: The store refused the write
  - 404: Resource not found
  - 409: Invalid transition, version conflict, integrity violation
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/walterpribes/jotakareservas1/notice"
	"github.com/walterpribes/jotakareservas1/report"
	"github.com/walterpribes/jotakareservas1/reservation"
)

// ActorHeader carries the acting user's identity.
const ActorHeader = "X-Actor"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Reservations *reservation.Service
	Notices      *notice.Service
	Labels       *reservation.StatusLabels
	Log          logrus.FieldLogger

	// Location is the business timezone used for "today" and creation days.
	Location *time.Location
	Now      func() time.Time
}

// NewHandler creates a new handler over the given services.
func NewHandler(reservations *reservation.Service, notices *notice.Service, loc *time.Location, log logrus.FieldLogger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		Reservations: reservations,
		Notices:      notices,
		Labels:       reservations.Labels,
		Log:          log,
		Location:     loc,
		Now:          time.Now,
	}
}

func (h *Handler) now() time.Time {
	return h.Now().In(h.Location)
}

// =============================================================================
// UNIT ENDPOINTS
// =============================================================================

// ListUnits returns the group's units.
// GET /api/units
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units := reservation.Units()
	dtos := make([]UnitDTO, len(units))
	for i, u := range units {
		dtos[i] = UnitDTO{ID: string(u.ID), Name: u.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListDayReservations returns one unit's reservations for a date.
// GET /api/units/{unit}/reservations?date=YYYY-MM-DD
func (h *Handler) ListDayReservations(w http.ResponseWriter, r *http.Request) {
	unit := reservation.UnitID(chi.URLParam(r, "unit"))
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().Format(reservation.DateLayout)
	}

	rs, err := h.Reservations.ListForDay(r.Context(), unit, date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toReservationDTOs(rs))
}

// MonthlyCounts returns the calendar badges of a month.
// GET /api/units/{unit}/calendar?year=2025&month=6
func (h *Handler) MonthlyCounts(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.unitParam(w, r)
	if !ok {
		return
	}
	today := h.now()
	year, err := intQuery(r, "year", today.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return
	}
	month, err := intQuery(r, "month", int(today.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month", err)
		return
	}

	win := report.MonthWindow(year, time.Month(month), h.Location)
	rs, err := h.Reservations.List(r.Context(), win.Filter(unit))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.DailyCounts(rs, h.Location))
}

// UnitStats returns the dashboard of one unit.
// GET /api/units/{unit}/stats?period=month
func (h *Handler) UnitStats(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.unitParam(w, r)
	if !ok {
		return
	}
	period, win, ok := h.windowParam(w, r)
	if !ok {
		return
	}

	rs, err := h.Reservations.List(r.Context(), win.Filter(unit))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(period, win, report.PeriodStats(rs, win)))
}

// ExportUnit streams one unit's reservations of the period as CSV.
// GET /api/units/{unit}/export?period=month
func (h *Handler) ExportUnit(w http.ResponseWriter, r *http.Request) {
	unit, ok := h.unitParam(w, r)
	if !ok {
		return
	}
	period, win, ok := h.windowParam(w, r)
	if !ok {
		return
	}
	h.export(w, r, win.Filter(unit), fmt.Sprintf("jotaka_export_%s_%s.csv", unit, period))
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GlobalStats returns the consolidated dashboard of every unit.
// GET /api/stats/global?period=month
func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	period, win, ok := h.windowParam(w, r)
	if !ok {
		return
	}
	rs, err := h.Reservations.List(r.Context(), win.Filter(""))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	g := report.GlobalStats(rs, reservation.Units(), win)
	writeJSON(w, http.StatusOK, toGlobalStatsDTO(period, win, g))
}

// ExportAll streams every unit's reservations of the period as CSV.
// GET /api/export?period=month
func (h *Handler) ExportAll(w http.ResponseWriter, r *http.Request) {
	period, win, ok := h.windowParam(w, r)
	if !ok {
		return
	}
	h.export(w, r, win.Filter(""), fmt.Sprintf("jotaka_export_global_%s.csv", period))
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, f reservation.ReservationFilter, filename string) {
	rs, err := h.Reservations.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if len(rs) == 0 {
		writeError(w, http.StatusNotFound, "nothing to export", report.ErrNothingToExport)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := report.ExportCSV(w, rs); err != nil {
		h.Log.WithError(err).Error("csv export failed mid-stream")
	}
}

// =============================================================================
// RESERVATION ENDPOINTS
// =============================================================================

// CreateReservation books a reservation in PENDING.
// POST /api/reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.Reservations.Create(r.Context(), reservation.CreateInput{
		UnitID:       reservation.UnitID(req.UnitID),
		ClientName:   req.ClientName,
		ClientPhone:  req.ClientPhone,
		ClientIsVip:  req.ClientIsVip,
		Date:         req.Date,
		Time:         req.Time,
		PeopleCount:  req.PeopleCount,
		EventType:    req.EventType,
		Area:         reservation.Area(req.Area),
		TableNumber:  req.TableNumber,
		SpecialNotes: req.SpecialNotes,
	}, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toReservationDTO(res))
}

// GetReservation returns a reservation with the client's visit number.
// GET /api/reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.Reservations.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	count, err := h.Reservations.CountCompletedReservations(ctx, res.ClientID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	dto := h.toReservationDTO(res)
	dto.VisitNumber = reservation.VisitNumber(count, res.Status)
	writeJSON(w, http.StatusOK, dto)
}

// TransitionReservation changes the status. Target COMPLETED needs the
// confirmed count; correction=true bypasses the normal flow.
// POST /api/reservations/{id}/status
func (h *Handler) TransitionReservation(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid If-Match header", err)
		return
	}

	opts := reservation.TransitionOptions{
		Mode:            reservation.ModeNormal,
		ConfirmedCount:  req.ConfirmedPeopleCount,
		Amount:          amountFromFloat(req.SpentAmount),
		ExpectedVersion: version,
	}
	if req.Correction {
		opts.Mode = reservation.ModeCorrection
	}

	res, err := h.Reservations.Transition(r.Context(), chi.URLParam(r, "id"), reservation.Status(req.Status), actor(r), opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toReservationDTO(res))
}

// UpdateReservation patches reservation details.
// PATCH /api/reservations/{id}
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid If-Match header", err)
		return
	}

	u := reservation.FieldUpdate{
		PeopleCount:     req.PeopleCount,
		Date:            req.Date,
		Time:            req.Time,
		SpecialNotes:    req.SpecialNotes,
		TableNumber:     req.TableNumber,
		EventType:       req.EventType,
		ExpectedVersion: version,
	}
	if req.Area != nil {
		area := reservation.Area(*req.Area)
		u.Area = &area
	}

	res, err := h.Reservations.UpdateFields(r.Context(), chi.URLParam(r, "id"), u, actor(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toReservationDTO(res))
}

// DeleteReservation removes a reservation.
// DELETE /api/reservations/{id}
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CLIENT ENDPOINTS
// =============================================================================

// SearchClients lists clients matching q (phone digits or name).
// GET /api/clients?q=
func (h *Handler) SearchClients(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Reservations.SearchClients(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	dtos := make([]ClientDTO, len(cs))
	for i, c := range cs {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient registers a client or refreshes the one with that phone.
// POST /api/clients
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, err := h.Reservations.CreateClient(r.Context(), req.Name, req.Phone, req.IsVip)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClientDTO(c))
}

// GetClient returns a client with its visit dates.
// GET /api/clients/{id}
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.Reservations.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c))
}

// UpdateClient edits a client record.
// PUT /api/clients/{id}
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	c, err := h.Reservations.UpdateClient(r.Context(), chi.URLParam(r, "id"), reservation.ClientUpdate{
		Name:  req.Name,
		Phone: req.Phone,
		IsVip: req.IsVip,
		Notes: req.Notes,
		Tags:  req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c))
}

// DeleteClient removes a client without reservations.
// DELETE /api/clients/{id}
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.Reservations.DeleteClient(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompletedCount returns how many reservations of the client are COMPLETED.
// GET /api/clients/{id}/completed-count
func (h *Handler) CompletedCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.Reservations.CountCompletedReservations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// =============================================================================
// NOTICE ENDPOINTS
// =============================================================================

// ListNotices returns the board, important first.
// GET /api/notices
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Notices.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	dtos := make([]NoticeDTO, len(ns))
	for i, n := range ns {
		dtos[i] = toNoticeDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateNotice posts a notice authored by the actor.
// POST /api/notices
func (h *Handler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	n, err := h.Notices.Create(r.Context(), notice.Draft{
		Title:       req.Title,
		Content:     req.Content,
		AuthorName:  actor(r),
		IsImportant: req.IsImportant,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoticeDTO(n))
}

// UpdateNotice edits a notice.
// PUT /api/notices/{id}
func (h *Handler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	var req NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	n, err := h.Notices.Update(r.Context(), chi.URLParam(r, "id"), notice.Draft{
		Title:       req.Title,
		Content:     req.Content,
		IsImportant: req.IsImportant,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNoticeDTO(n))
}

// DeleteNotice removes a notice.
// DELETE /api/notices/{id}
func (h *Handler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.Notices.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// STATUS LABEL ENDPOINTS
// =============================================================================

// GetStatusLabels returns the display label of every status.
// GET /api/status-labels
func (h *Handler) GetStatusLabels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Labels.All())
}

// SaveStatusLabels customizes labels. Unknown statuses are rejected.
// PUT /api/status-labels
func (h *Handler) SaveStatusLabels(w http.ResponseWriter, r *http.Request) {
	var req map[reservation.Status]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.Labels.Save(req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Log.WithField("actor", actor(r)).Info("status labels updated")
	writeJSON(w, http.StatusOK, h.Labels.All())
}

// ResetStatusLabels restores the default labels.
// DELETE /api/status-labels
func (h *Handler) ResetStatusLabels(w http.ResponseWriter, r *http.Request) {
	if err := h.Labels.Reset(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Log.WithField("actor", actor(r)).Info("status labels reset")
	writeJSON(w, http.StatusOK, h.Labels.All())
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps domain errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, reservation.ErrValidation), errors.Is(err, notice.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", err)
	case errors.Is(err, reservation.ErrNotFound), errors.Is(err, notice.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, reservation.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "transition not allowed", err)
	case reservation.IsRetryable(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "reservation was changed by someone else",
			Details:   err.Error(),
			Retryable: true,
		})
	case reservation.StorageKindOf(err) == reservation.KindIntegrity:
		writeError(w, http.StatusConflict, "integrity violation", err)
	case reservation.StorageKindOf(err) == reservation.KindPermission:
		writeError(w, http.StatusForbidden, "write refused by storage", err)
	default:
		h.Log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func actor(r *http.Request) string {
	return reservation.NormalizeActor(r.Header.Get(ActorHeader))
}

func (h *Handler) unitParam(w http.ResponseWriter, r *http.Request) (reservation.UnitID, bool) {
	unit := reservation.UnitID(chi.URLParam(r, "unit"))
	if _, ok := reservation.LookupUnit(unit); !ok {
		writeError(w, http.StatusNotFound, "unknown unit", fmt.Errorf("unit %q", unit))
		return "", false
	}
	return unit, true
}

func (h *Handler) windowParam(w http.ResponseWriter, r *http.Request) (report.Period, report.Window, bool) {
	period, err := report.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return "", report.Window{}, false
	}
	return period, report.ResolveWindow(period, h.now()), true
}

func intQuery(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// expectedVersion prefers the body version, then an If-Match header.
func expectedVersion(r *http.Request, body int) (int, error) {
	if body != 0 {
		return body, nil
	}
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	if v == "" {
		return 0, nil
	}
	v = strings.Trim(strings.TrimPrefix(v, "W/"), `"`)
	return strconv.Atoi(v)
}
