/*
handlers.go - HTTP API handlers for the rent management system

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every computation to the billing
  package — no money math lives here.

ENDPOINTS:
  Rooms:
    GET    /api/rooms                       List rooms
    POST   /api/rooms                       Create room
    GET    /api/rooms/{id}                  Get room
    GET    /api/rooms/{id}/tenancy          Most recent tenancy for a room

  Tenancies:
    GET    /api/tenancies                   List tenancies
    POST   /api/tenancies                   Create tenancy (loose document in)
    GET    /api/tenancies/{id}              Get tenancy
    PUT    /api/tenancies/{id}              Update tenancy (loose document in)
    POST   /api/tenancies/{id}/readings     Record a meter reading
    POST   /api/tenancies/{id}/payments     Set a month's payment status
    GET    /api/tenancies/{id}/water        Water bill preview for a month
    POST   /api/tenancies/{id}/settlement/preview  Settlement preview
    POST   /api/tenancies/{id}/evict        Finalize eviction (atomic archive)

  Reporting:
    GET    /api/revisions/due               Tenancies due for annual revision
    GET    /api/summary                     Monthly property totals

  Admin:
    POST   /api/admin/sweep                 Run the vacate sweep immediately

ERROR HANDLING:
  - 400: validation errors, invalid input
  - 404: record not found
  - 409: conflict (room occupied, already vacated)
  - 500: internal errors
  An indeterminate computation is NOT an error: water previews return null
  fields and settlement previews return a null settlement with a reason.

SEE ALSO:
  - dto.go: request/response data structures
  - sweep.go: the scheduled auto-vacate sweep
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  billing.TenancyStore
	Config billing.Config
	Sweep  *VacateSweep

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

// NewHandler creates a new handler with the given store and config.
func NewHandler(store billing.TenancyStore, cfg billing.Config) *Handler {
	h := &Handler{
		Store:  store,
		Config: cfg,
		Now:    time.Now,
	}
	h.Sweep = NewVacateSweep(store, cfg)
	return h
}

// =============================================================================
// ROOM HANDLERS
// =============================================================================

// ListRooms returns all rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}

	dtos := make([]RoomDTO, len(rooms))
	for i, room := range rooms {
		dtos[i] = toRoomDTO(room)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRoom returns a single room.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.Store.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Room not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get room", err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomDTO(*room))
}

// CreateRoom creates a new room.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Number == "" {
		writeError(w, http.StatusBadRequest, "Room id and number are required", nil)
		return
	}

	room := billing.Room{
		ID:           req.ID,
		Number:       req.Number,
		WaterAccount: req.WaterAccount,
		PowerAccount: req.PowerAccount,
		CreatedAt:    h.Now().UTC(),
	}
	if err := h.Store.SaveRoom(r.Context(), room); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room))
}

// =============================================================================
// TENANCY HANDLERS
// =============================================================================

// ListTenancies returns all tenancy records.
func (h *Handler) ListTenancies(w http.ResponseWriter, r *http.Request) {
	tenancies, err := h.Store.ListTenancies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenancies", err)
		return
	}

	dtos := make([]TenancyDTO, len(tenancies))
	for i, t := range tenancies {
		dtos[i] = toTenancyDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTenancy returns a single tenancy.
func (h *Handler) GetTenancy(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenancyDTO(t))
}

// CreateTenancy creates a tenancy from a loose document record. The raw
// shape is normalized exactly once, here at the boundary.
func (h *Handler) CreateTenancy(w http.ResponseWriter, r *http.Request) {
	var raw billing.RawTenancy
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if raw.Status == "" {
		raw.Status = string(billing.StatusOccupied)
	}

	t, err := billing.NormalizeTenancy(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tenancy record", err)
		return
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	if _, err := h.Store.GetRoom(r.Context(), t.RoomID); err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusBadRequest, "Unknown room", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to check room", err)
		return
	}

	now := h.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := h.Store.SaveTenancy(r.Context(), t); err != nil {
		if billing.IsClientError(err) {
			writeError(w, http.StatusConflict, "Room already has an active tenancy", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save tenancy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTenancyDTO(&t))
}

// UpdateTenancy replaces a tenancy from a loose document record, keeping
// the original creation timestamp.
func (h *Handler) UpdateTenancy(w http.ResponseWriter, r *http.Request) {
	existing, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	var raw billing.RawTenancy
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	raw.ID = existing.ID
	if raw.RoomID == "" {
		raw.RoomID = existing.RoomID
	}
	if raw.Status == "" {
		raw.Status = string(existing.Status)
	}

	t, err := billing.NormalizeTenancy(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tenancy record", err)
		return
	}
	t.Archived = existing.Archived
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = h.Now().UTC()

	if err := h.Store.SaveTenancy(r.Context(), t); err != nil {
		if billing.IsClientError(err) {
			writeError(w, http.StatusConflict, "Room already has an active tenancy", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save tenancy", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenancyDTO(&t))
}

// GetRoomTenancy returns the most recent tenancy record for a room.
func (h *Handler) GetRoomTenancy(w http.ResponseWriter, r *http.Request) {
	t, err := h.Store.GetTenancyByRoom(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "No tenancy for room", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenancyDTO(t))
}

// RecordReading stores a water meter reading (and optional reset flag) for
// one month. Future months are locked.
func (h *Handler) RecordReading(w http.ResponseWriter, r *http.Request) {
	var req ReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, ok := parsePeriod(req.Year, req.MonthIndex)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year/monthIndex", nil)
		return
	}
	if p.IsFuture(h.Now()) {
		writeError(w, http.StatusBadRequest, "Cannot record a reading for a future month", nil)
		return
	}

	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	key := p.Key()
	if t.Readings == nil {
		t.Readings = make(map[string]decimal.Decimal)
	}
	t.Readings[key] = decimal.NewFromFloat(req.Reading)
	if req.MeterReset {
		if t.MeterReset == nil {
			t.MeterReset = make(map[string]bool)
		}
		t.MeterReset[key] = true
	}
	t.UpdatedAt = h.Now().UTC()

	if err := h.Store.SaveTenancy(r.Context(), *t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reading", err)
		return
	}

	// Echo the resulting bill so the caller can display it immediately.
	writeJSON(w, http.StatusOK, toWaterBillDTO(h.Config.TenancyWaterBill(t, p)))
}

// SetPayment sets a month's payment status.
func (h *Handler) SetPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, ok := parsePeriod(req.Year, req.MonthIndex)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid year/monthIndex", nil)
		return
	}
	if p.IsFuture(h.Now()) {
		writeError(w, http.StatusBadRequest, "Cannot set status for a future month", nil)
		return
	}

	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	key := p.Key()
	status := billing.ParsePaymentStatus(req.Status)
	if t.Payments == nil {
		t.Payments = make(map[string]billing.PaymentStatus)
	}
	if status == billing.PaymentUnset {
		delete(t.Payments, key)
	} else {
		t.Payments[key] = status
	}
	if req.PaidTotal != nil {
		if t.PaidTotals == nil {
			t.PaidTotals = make(map[string]decimal.Decimal)
		}
		t.PaidTotals[key] = decimal.NewFromFloat(*req.PaidTotal)
	}
	t.UpdatedAt = h.Now().UTC()

	if err := h.Store.SaveTenancy(r.Context(), *t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save payment status", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenancyDTO(t))
}

// WaterPreview computes the water bill for one tenancy and month.
// GET /api/tenancies/{id}/water?year=2025&monthIndex=2
func (h *Handler) WaterPreview(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(r.URL.Query().Get("year"))
	month, err2 := strconv.Atoi(r.URL.Query().Get("monthIndex"))
	p, ok := parsePeriod(year, month)
	if err1 != nil || err2 != nil || !ok {
		writeError(w, http.StatusBadRequest, "year and monthIndex query params required", nil)
		return
	}

	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	writeJSON(w, http.StatusOK, toWaterBillDTO(h.Config.TenancyWaterBill(t, p)))
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// RevisionsDue returns tenancies whose annual rent review falls inside the
// lookahead window, soonest first.
func (h *Handler) RevisionsDue(w http.ResponseWriter, r *http.Request) {
	tenancies, err := h.Store.ListTenancies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenancies", err)
		return
	}

	today := h.Now()
	dtos := []RevisionDueDTO{}
	for _, t := range tenancies {
		if t.Status != billing.StatusOccupied {
			continue
		}
		rs := h.Config.RevisionStatus(t, today)
		if rs.Skip != billing.SkipNone || !rs.Due {
			continue
		}
		dtos = append(dtos, RevisionDueDTO{
			TenancyID:     t.ID,
			RoomID:        t.RoomID,
			Name:          t.Name,
			DaysRemaining: rs.DaysRemaining,
			Overdue:       rs.Overdue,
			NextDue:       rs.NextDue.Format("2006-01-02"),
		})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].DaysRemaining < dtos[j].DaysRemaining })
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlySummary aggregates the whole property for one month.
// GET /api/summary?year=2025&monthIndex=2
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, err1 := strconv.Atoi(r.URL.Query().Get("year"))
	month, err2 := strconv.Atoi(r.URL.Query().Get("monthIndex"))
	p, ok := parsePeriod(year, month)
	if err1 != nil || err2 != nil || !ok {
		writeError(w, http.StatusBadRequest, "year and monthIndex query params required", nil)
		return
	}

	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rooms", err)
		return
	}
	tenancies, err := h.Store.ListTenancies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tenancies", err)
		return
	}

	totals := h.Config.MonthlyTotals(rooms, tenancies, p, h.Now())
	writeJSON(w, http.StatusOK, MonthlySummaryDTO{
		Year:          p.Year,
		MonthIndex:    p.Month,
		RentCollected: dec(totals.RentCollected),
		WaterCharges:  dec(totals.WaterCharges),
		GrandTotal:    dec(totals.GrandTotal),
		PendingRent:   dec(totals.PendingRent),
	})
}

// =============================================================================
// SETTLEMENT / EVICTION HANDLERS
// =============================================================================

// SettlementPreview computes a settlement without persisting anything.
// A nil settlement (bad or inverted dates) is a normal response, not an
// error: the UI renders "no settlement possible".
func (h *Handler) SettlementPreview(w http.ResponseWriter, r *http.Request) {
	var req SettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	notice, vacate := parseDate(req.NoticeDate), parseDate(req.VacateDate)
	s := h.Config.ComputeSettlement(t, notice, vacate, false)
	resp := SettlementPreviewResponse{Settlement: toSettlementDTO(s)}
	if s == nil {
		resp.Reason = "settlement not computable: dates missing, unparseable or inverted"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Evict finalizes an eviction: computes the settlement, marks it
// finalized, and archives the tenancy atomically. The store's status guard
// makes a race with the sweep surface as 409 instead of a double archive.
func (h *Handler) Evict(w http.ResponseWriter, r *http.Request) {
	var req EvictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := h.Store.GetTenancy(r.Context(), chi.URLParam(r, "id"))
	if billing.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Tenancy not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get tenancy", err)
		return
	}

	notice, vacate := parseDate(req.NoticeDate), parseDate(req.VacateDate)
	settlement := h.Config.ComputeSettlement(t, notice, vacate, false)
	if settlement == nil {
		writeError(w, http.StatusBadRequest, "Settlement not computable for the given dates", nil)
		return
	}
	settlement.Finalize()

	actor := req.Actor
	if actor == "" {
		actor = "admin"
	}
	archived := t.ArchiveSnapshot(settlement, actor, req.Reason, h.Now().UTC())
	if err := h.Store.ArchiveTenancy(r.Context(), t.ID, archived); err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Tenancy not found", nil)
			return
		}
		if errors.Is(err, billing.ErrAlreadyVacated) {
			writeError(w, http.StatusConflict, "Tenancy already vacated", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to archive tenancy", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettlementDTO(settlement))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep runs the vacate sweep immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	result := h.Sweep.RunNow()
	writeJSON(w, http.StatusOK, SweepResultDTO{
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePeriod(year, monthIndex int) (billing.Period, bool) {
	if year < 1900 || year > 3000 || monthIndex < 0 || monthIndex > 11 {
		return billing.Period{}, false
	}
	return billing.Period{Year: year, Month: monthIndex}, true
}

// parseDate returns the zero time for anything unparseable; the settlement
// calculator treats zero dates as "not computable".
func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

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
