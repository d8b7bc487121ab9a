/*
normalize.go - Boundary conversion from loose document records

PURPOSE:
  The record store the original data comes from is schemaless: rents arrive
  as numbers or strings, readings as numbers, strings or empty strings,
  dates in a couple of formats, statuses as free text. This file converts
  that loose shape into the strict Tenancy entity exactly once, at the
  boundary, so no calculator ever sees an untyped field.

RULES:
  - null, absent and empty-string readings are all "never recorded" and are
    dropped from the maps (absence, not zero)
  - unparseable numbers on optional fields are dropped; on required fields
    (rent, deposit) they normalize to zero
  - dates accept YYYY-MM-DD and RFC 3339
  - payment statuses collapse through ParsePaymentStatus
*/
package billing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW TENANCY - The loose persisted/submitted shape
// =============================================================================

// RawTenancy mirrors the document shape as it arrives from storage or the
// API: everything optional, numbers possibly strings, maps keyed by month
// label.
type RawTenancy struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`

	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`

	Rent      any `json:"rent"`
	WaterRate any `json:"waterRate"`
	Deposit   any `json:"deposit"`

	Status       string `json:"status"`
	MoveIn       string `json:"moveInDate"`
	LastRevision string `json:"lastRevisionDate"`
	LastRent     any    `json:"lastRent"`

	EvictionConfirmed bool   `json:"evictionConfirmed"`
	NoticeDate        string `json:"noticeDate"`
	VacateDate        string `json:"vacateDate"`
	NoRevision        bool   `json:"noRevision"`

	Readings   map[string]any    `json:"meterReadings"`
	MeterReset map[string]any    `json:"meterResets"`
	Payments   map[string]string `json:"paymentStatus"`
	PaidTotals map[string]any    `json:"paidTotals"`
}

// NormalizeTenancy converts a loose record into the strict entity. The only
// hard failure is a missing room link; everything else degrades per the
// rules above.
func NormalizeTenancy(raw RawTenancy) (Tenancy, error) {
	if raw.RoomID == "" {
		return Tenancy{}, fmt.Errorf("normalize tenancy %q: %w", raw.ID, ErrMissingRecordID)
	}

	t := Tenancy{
		ID:                raw.ID,
		RoomID:            raw.RoomID,
		Name:              strings.TrimSpace(raw.Name),
		Phone:             strings.TrimSpace(raw.Phone),
		Email:             strings.TrimSpace(raw.Email),
		Rent:              looseDecimalOrZero(raw.Rent),
		WaterRate:         looseDecimal(raw.WaterRate),
		Deposit:           looseDecimalOrZero(raw.Deposit),
		Status:            normalizeStatus(raw.Status),
		MoveIn:            looseDate(raw.MoveIn),
		LastRevision:      looseDate(raw.LastRevision),
		LastRent:          looseDecimalOrZero(raw.LastRent),
		EvictionConfirmed: raw.EvictionConfirmed,
		NoticeDate:        looseDate(raw.NoticeDate),
		VacateDate:        looseDate(raw.VacateDate),
		NoRevision:        raw.NoRevision,
	}

	if len(raw.Readings) > 0 {
		t.Readings = make(map[string]decimal.Decimal, len(raw.Readings))
		for k, v := range raw.Readings {
			if d := looseDecimal(v); d != nil {
				t.Readings[k] = *d
			}
		}
	}
	if len(raw.MeterReset) > 0 {
		t.MeterReset = make(map[string]bool, len(raw.MeterReset))
		for k, v := range raw.MeterReset {
			if looseBool(v) {
				t.MeterReset[k] = true
			}
		}
	}
	if len(raw.Payments) > 0 {
		t.Payments = make(map[string]PaymentStatus, len(raw.Payments))
		for k, v := range raw.Payments {
			if ps := ParsePaymentStatus(v); ps != PaymentUnset {
				t.Payments[k] = ps
			}
		}
	}
	if len(raw.PaidTotals) > 0 {
		t.PaidTotals = make(map[string]decimal.Decimal, len(raw.PaidTotals))
		for k, v := range raw.PaidTotals {
			if d := looseDecimal(v); d != nil {
				t.PaidTotals[k] = *d
			}
		}
	}

	return t, nil
}

func normalizeStatus(s string) TenancyStatus {
	switch TenancyStatus(strings.TrimSpace(s)) {
	case StatusOccupied, StatusVacant, StatusMaintenance:
		return TenancyStatus(strings.TrimSpace(s))
	default:
		return StatusVacant
	}
}

// =============================================================================
// LOOSE VALUE PARSERS
// =============================================================================

// looseDecimal accepts numbers, numeric strings and json.Number; nil, empty
// strings and garbage all come back nil ("never recorded").
func looseDecimal(v any) *decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(x)
		return &d
	case int:
		d := decimal.NewFromInt(int64(x))
		return &d
	case int64:
		d := decimal.NewFromInt(x)
		return &d
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return nil
		}
		return &d
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return &d
	case decimal.Decimal:
		return &x
	default:
		return nil
	}
}

func looseDecimalOrZero(v any) decimal.Decimal {
	if d := looseDecimal(v); d != nil {
		return *d
	}
	return decimal.Zero
}

func looseBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	case float64:
		return x != 0
	default:
		return false
	}
}

// looseDate accepts YYYY-MM-DD and RFC 3339; anything else is nil.
func looseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
