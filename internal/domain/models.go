// Package domain defines the core entities of the repair-order dashboard:
// repair orders, their append-only status history, and repair shops. It also
// holds the pure business rules that derive dates from a status transition
// (update cadence, payment terms, overdue computation) so that the repository
// and service layers stay free of calendar math.
package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Repair-order statuses as they appear in the tracking sheet. Status cells are
// free text, so matching elsewhere is done on the normalized upper-cased form.
const (
	StatusToSend           = "TO SEND"
	StatusSent             = "SENT"
	StatusReceivedByVendor = "RECEIVED BY VENDOR"
	StatusQuoteReceived    = "QUOTE RECEIVED"
	StatusQuoteApproved    = "QUOTE APPROVED"
	StatusInRepair         = "IN REPAIR"
	StatusShippingBack     = "SHIPPING BACK"
	StatusPaid             = "PAID"
)

// RepairOrder is one row of the repair-order table: an aircraft part sent out
// to a shop for repair, tracked from drop-off through payment.
//
// ID is a UUID written into its own column when the row is appended. The
// workbook's table API still addresses rows by position, so the ID exists to
// let clients refer to an order across mutations that shift row indices.
//
// DaysOverdue and IsOverdue are derived at read time from NextUpdateDue and
// the current clock; they are never written back to the sheet.
type RepairOrder struct {
	ID           string `json:"id"`
	RONumber     string `json:"ro_number"`
	PartNumber   string `json:"part_number"`
	SerialNumber string `json:"serial_number"`

	// ShopName references a Shop by business name, matched by string
	// equality. Kept for sheet compatibility; Shop.ID is the stable handle.
	ShopName string `json:"shop_name"`

	Status         string   `json:"status"`
	EstimatedCost  *float64 `json:"estimated_cost,omitempty"`
	FinalCost      *float64 `json:"final_cost,omitempty"`
	PaymentTerms   string   `json:"payment_terms,omitempty"`
	TrackingNumber string   `json:"tracking_number,omitempty"`

	CreatedAt         *time.Time `json:"created_at,omitempty"`
	DroppedOffAt      *time.Time `json:"dropped_off_at,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	StatusDate        *time.Time `json:"status_date,omitempty"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
	NextUpdateDue     *time.Time `json:"next_update_due,omitempty"`

	// Notes is the free-text portion of the notes cell; History is the
	// structured log embedded alongside it (see the history package).
	Notes   string        `json:"notes,omitempty"`
	History []StatusEntry `json:"history,omitempty"`

	// Derived, read-only.
	DaysOverdue int  `json:"days_overdue"`
	IsOverdue   bool `json:"is_overdue"`
}

// StatusEntry is one append-only entry of a repair order's status history.
type StatusEntry struct {
	Status       string     `json:"status"`
	Date         time.Time  `json:"date"`
	User         string     `json:"user"`
	Notes        string     `json:"notes,omitempty"`
	Cost         *float64   `json:"cost,omitempty"`
	DeliveryDate *time.Time `json:"deliveryDate,omitempty"`
}

// Shop is a repair vendor: contact details plus the payment terms that drive
// payment-due reminders for its repair orders.
type Shop struct {
	ID           string `json:"id"`
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	PaymentTerms string `json:"payment_terms,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// IsTerminalStatus reports whether a status ends the active tracking cycle.
// Terminal statuses route a supplied cost into the final-cost column and can
// trigger a payment-due reminder.
func IsTerminalStatus(status string) bool {
	s := strings.ToUpper(status)
	return strings.Contains(s, "PAID") || strings.Contains(s, "SHIPPING")
}

// netTermsRE matches "NET 30"-style payment terms, tolerating case and
// missing whitespace ("Net30").
var netTermsRE = regexp.MustCompile(`(?i)\bNET\s*(\d+)`)

// ParseNetTerms extracts the day count from a "NET n" payment-terms string.
// The second return value is false when the terms do not follow the NET
// convention (e.g. "COD", "Due on receipt", empty).
func ParseNetTerms(terms string) (int, bool) {
	m := netTermsRE.FindStringSubmatch(terms)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NextUpdateDue computes when the next follow-up on an order is expected,
// given the status it just entered and the shop's payment terms.
//
// Cadence: freshly created orders and orders in repair get a week; in-transit
// states get checked every three days; quoting states every five. A PAID
// order needs no follow-up unless NET terms put a payment date on the clock.
// Unknown statuses get the weekly default rather than falling off the radar.
func NextUpdateDue(status, paymentTerms string, from time.Time) *time.Time {
	var days int
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusToSend, StatusInRepair:
		days = 7
	case StatusSent, StatusReceivedByVendor, StatusShippingBack:
		days = 3
	case StatusQuoteReceived, StatusQuoteApproved:
		days = 5
	case StatusPaid:
		if n, ok := ParseNetTerms(paymentTerms); ok {
			days = n
		} else {
			return nil
		}
	default:
		days = 7
	}
	due := from.AddDate(0, 0, days)
	return &due
}

// Overdue derives (daysOverdue, isOverdue) from a next-update-due date and
// the current time. A nil or future due date is not overdue. DaysOverdue is
// the ceiling of elapsed whole days, so an order one hour past due already
// counts one day overdue.
func Overdue(nextUpdateDue *time.Time, now time.Time) (int, bool) {
	if nextUpdateDue == nil || !nextUpdateDue.Before(now) {
		return 0, false
	}
	days := int(math.Ceil(now.Sub(*nextUpdateDue).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days, true
}
