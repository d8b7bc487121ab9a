/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. Currency figures go
  out as float64; the engine's indeterminate results go out as JSON null,
  which the UI must render distinctly from zero ("missing data", not a
  billed amount of 0).

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

SEE ALSO:
  - handlers.go: uses these types
  - billing/normalize.go: RawTenancy, the loose create/update shape
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RoomDTO represents a room in API responses.
type RoomDTO struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	WaterAccount string `json:"water_account,omitempty"`
	PowerAccount string `json:"power_account,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateRoomRequest is the request to create a room.
type CreateRoomRequest struct {
	ID           string `json:"id"`
	Number       string `json:"number"`
	WaterAccount string `json:"water_account"`
	PowerAccount string `json:"power_account"`
}

// TenancyDTO represents a tenancy in API responses.
type TenancyDTO struct {
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`

	Rent      float64  `json:"rent"`
	WaterRate *float64 `json:"water_rate,omitempty"`
	Deposit   float64  `json:"deposit"`

	Status       string  `json:"status"`
	MoveIn       *string `json:"move_in_date,omitempty"`
	LastRevision *string `json:"last_revision_date,omitempty"`
	LastRent     float64 `json:"last_rent,omitempty"`

	EvictionConfirmed bool    `json:"eviction_confirmed"`
	NoticeDate        *string `json:"notice_date,omitempty"`
	VacateDate        *string `json:"vacate_date,omitempty"`
	NoRevision        bool    `json:"no_revision,omitempty"`

	Payments map[string]string `json:"payment_status,omitempty"`

	Archived *ArchivedDTO `json:"archived_tenant,omitempty"`

	UpdatedAt string `json:"updated_at,omitempty"`
}

// ArchivedDTO is the frozen previous occupancy on a vacated record.
type ArchivedDTO struct {
	Name       string         `json:"name"`
	Rent       float64        `json:"rent"`
	Deposit    float64        `json:"deposit"`
	NoticeDate *string        `json:"notice_date,omitempty"`
	VacateDate *string        `json:"vacate_date,omitempty"`
	Settlement *SettlementDTO `json:"settlement,omitempty"`
	ArchivedBy string         `json:"archived_by"`
	ArchivedAt string         `json:"archived_at"`
	Reason     string         `json:"reason,omitempty"`
}

// ReadingRequest records a water meter reading for one month.
// MonthIndex is 0-based (January = 0), matching the engine.
type ReadingRequest struct {
	Year       int     `json:"year"`
	MonthIndex int     `json:"monthIndex"`
	Reading    float64 `json:"reading"`
	MeterReset bool    `json:"meterReset"`
}

// PaymentRequest sets the payment status for one month.
type PaymentRequest struct {
	Year       int      `json:"year"`
	MonthIndex int      `json:"monthIndex"`
	Status     string   `json:"status"` // "Paid", "Pending", "Rent Only", "None"
	PaidTotal  *float64 `json:"paidTotal,omitempty"`
}

// WaterBillDTO carries a water computation result. Units and Amount are
// null when the month cannot be billed yet — never conflate with zero.
type WaterBillDTO struct {
	Units          *float64 `json:"units"`
	Amount         *float64 `json:"amount"`
	MeterReset     bool     `json:"meter_reset"`
	CurrentReading *float64 `json:"current_reading"`
}

// RevisionDueDTO is one entry in the "revision due soon" list.
type RevisionDueDTO struct {
	TenancyID     string `json:"tenancy_id"`
	RoomID        string `json:"room_id"`
	Name          string `json:"name"`
	DaysRemaining int    `json:"days_remaining"`
	Overdue       bool   `json:"overdue"`
	NextDue       string `json:"next_due"`
}

// MonthlySummaryDTO is the property-wide aggregation for one month.
type MonthlySummaryDTO struct {
	Year          int     `json:"year"`
	MonthIndex    int     `json:"monthIndex"`
	RentCollected float64 `json:"rent_collected"`
	WaterCharges  float64 `json:"water_charges"`
	GrandTotal    float64 `json:"grand_total"`
	PendingRent   float64 `json:"pending_rent"`
}

// SettlementRequest asks for a settlement preview or finalize.
type SettlementRequest struct {
	NoticeDate string `json:"noticeDate"` // YYYY-MM-DD
	VacateDate string `json:"vacateDate"`
}

// EvictRequest finalizes an eviction.
type EvictRequest struct {
	NoticeDate string `json:"noticeDate"`
	VacateDate string `json:"vacateDate"`
	Actor      string `json:"actor"`
	Reason     string `json:"reason,omitempty"`
}

// SettlementDTO is the computed deposit division.
type SettlementDTO struct {
	NoticeDate string   `json:"notice_date"`
	VacateDate string   `json:"vacate_date"`
	Months     []string `json:"months"`

	MonthlyRent   float64 `json:"monthly_rent"`
	WaterRate     float64 `json:"water_rate"`
	ServiceCharge float64 `json:"service_charge_per_month"`

	RentDeduction  float64 `json:"rent_deduction"`
	MandatoryRent  float64 `json:"mandatory_notice_rent"`
	WaterDeduction float64 `json:"water_deduction"`
	ServiceTotal   float64 `json:"service_total"`
	TotalDeduction float64 `json:"total_deduction"`
	Deposit        float64 `json:"deposit"`
	Refund         float64 `json:"refund"` // positive = owed back to tenant

	WaterByMonth       map[string]float64 `json:"water_by_month"`
	MissingWaterMonths []string           `json:"missing_water_months,omitempty"`

	Finalized     bool `json:"finalized"`
	AutoGenerated bool `json:"auto_generated"`
}

// SettlementPreviewResponse wraps the preview result: a nil settlement is
// the normal "no settlement possible" state, not an error.
type SettlementPreviewResponse struct {
	Settlement *SettlementDTO `json:"settlement"`
	Reason     string         `json:"reason,omitempty"`
}

// SweepResultDTO reports an admin-triggered sweep run.
type SweepResultDTO struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRoomDTO(r billing.Room) RoomDTO {
	dto := RoomDTO{
		ID:           r.ID,
		Number:       r.Number,
		WaterAccount: r.WaterAccount,
		PowerAccount: r.PowerAccount,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toTenancyDTO(t *billing.Tenancy) TenancyDTO {
	dto := TenancyDTO{
		ID:                t.ID,
		RoomID:            t.RoomID,
		Name:              t.Name,
		Phone:             t.Phone,
		Email:             t.Email,
		Rent:              dec(t.Rent),
		WaterRate:         decPtr(t.WaterRate),
		Deposit:           dec(t.Deposit),
		Status:            string(t.Status),
		MoveIn:            datePtr(t.MoveIn),
		LastRevision:      datePtr(t.LastRevision),
		LastRent:          dec(t.LastRent),
		EvictionConfirmed: t.EvictionConfirmed,
		NoticeDate:        datePtr(t.NoticeDate),
		VacateDate:        datePtr(t.VacateDate),
		NoRevision:        t.NoRevision,
	}
	if len(t.Payments) > 0 {
		dto.Payments = make(map[string]string, len(t.Payments))
		for k, v := range t.Payments {
			dto.Payments[k] = string(v)
		}
	}
	if t.Archived != nil {
		a := t.Archived
		dto.Archived = &ArchivedDTO{
			Name:       a.Name,
			Rent:       dec(a.Rent),
			Deposit:    dec(a.Deposit),
			NoticeDate: datePtr(a.NoticeDate),
			VacateDate: datePtr(a.VacateDate),
			Settlement: toSettlementDTO(a.Settlement),
			ArchivedBy: a.ArchivedBy,
			ArchivedAt: a.ArchivedAt.Format(time.RFC3339),
			Reason:     a.Reason,
		}
	}
	if !t.UpdatedAt.IsZero() {
		dto.UpdatedAt = t.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toWaterBillDTO(b billing.WaterBill) WaterBillDTO {
	return WaterBillDTO{
		Units:          decPtr(b.Units),
		Amount:         decPtr(b.Amount),
		MeterReset:     b.MeterReset,
		CurrentReading: decPtr(b.CurrentReading),
	}
}

func toSettlementDTO(s *billing.Settlement) *SettlementDTO {
	if s == nil {
		return nil
	}
	dto := &SettlementDTO{
		NoticeDate:         s.NoticeDate.Format("2006-01-02"),
		VacateDate:         s.VacateDate.Format("2006-01-02"),
		Months:             s.Months,
		MonthlyRent:        dec(s.MonthlyRent),
		WaterRate:          dec(s.WaterRate),
		ServiceCharge:      dec(s.ServiceCharge),
		RentDeduction:      dec(s.RentDeduction),
		MandatoryRent:      dec(s.MandatoryRent),
		WaterDeduction:     dec(s.WaterDeduction),
		ServiceTotal:       dec(s.ServiceTotal),
		TotalDeduction:     dec(s.TotalDeduction),
		Deposit:            dec(s.Deposit),
		Refund:             dec(s.Refund),
		MissingWaterMonths: s.MissingWaterMonths,
		Finalized:          s.Finalized,
		AutoGenerated:      s.AutoGenerated,
	}
	dto.WaterByMonth = make(map[string]float64, len(s.WaterByMonth))
	for k, v := range s.WaterByMonth {
		dto.WaterByMonth[k] = dec(v)
	}
	return dto
}

func dec(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func decPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := dec(*d)
	return &f
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
