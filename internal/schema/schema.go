// Package schema is the one place that knows the positional column layout of
// the workbook tables. Rows travel over the Graph API as flat value arrays
// with no schema negotiation, so every index lives here as a named constant,
// the layout is validated once at startup, and all cell parsing quirks
// (spreadsheet date serials vs. ISO strings, "$1,234.56" currency text,
// short rows) are contained in this package.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repair-order table columns, in sheet order.
const (
	ROColID = iota
	ROColRONumber
	ROColPartNumber
	ROColSerialNumber
	ROColShopName
	ROColStatus
	ROColEstimatedCost
	ROColFinalCost
	ROColPaymentTerms
	ROColTrackingNumber
	ROColCreatedAt
	ROColDroppedOffAt
	ROColEstimatedDelivery
	ROColStatusDate
	ROColLastUpdated
	ROColNextUpdateDue
	ROColNotes

	// ROWidth is the number of columns in the repair-order table.
	ROWidth
)

// Shop table columns, in sheet order.
const (
	ShopColID = iota
	ShopColBusinessName
	ShopColContactName
	ShopColPhone
	ShopColEmail
	ShopColPaymentTerms
	ShopColNotes

	// ShopWidth is the number of columns in the shop table.
	ShopWidth
)

// ROHeaders are the expected header names of the repair-order table, used
// only for validation; data access is positional.
var ROHeaders = []string{
	"ID", "RO Number", "Part Number", "Serial Number", "Shop",
	"Status", "Estimated Cost", "Final Cost", "Payment Terms", "Tracking Number",
	"Created", "Dropped Off", "Estimated Delivery", "Status Date", "Last Updated",
	"Next Update Due", "Notes",
}

// ShopHeaders are the expected header names of the shop table.
var ShopHeaders = []string{
	"ID", "Business Name", "Contact Name", "Phone", "Email", "Payment Terms", "Notes",
}

// ValidateWidth checks a table's column count against the expected layout.
// A misaligned sheet silently produces misaligned domain data, so this is
// checked once per table at startup rather than trusted forever.
func ValidateWidth(table string, got, want int) error {
	if got != want {
		return fmt.Errorf("schema: table %q has %d columns, expected %d; the sheet layout has drifted", table, got, want)
	}
	return nil
}

// ---- cell readers ----
//
// Rows are not guaranteed to be fully populated: a lookup beyond the row's
// actual width degrades to the zero value instead of panicking.

// CellString returns the cell at idx as a trimmed string, or "" when the
// cell is missing, nil, or not text-like.
func CellString(values []any, idx int) string {
	if idx < 0 || idx >= len(values) || values[idx] == nil {
		return ""
	}
	switch v := values[idx].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// excelEpoch is day zero of the spreadsheet date serial scheme. The host
// perpetuates Lotus 1-2-3's phantom 1900 leap day, which lands day zero on
// 1899-12-30.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// cellDateLayouts are the string representations accepted for date cells.
var cellDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1/2/2006",
	"1/2/06",
}

// CellTime parses the cell at idx as a date. Numeric cells are spreadsheet
// epoch-offset serials; string cells may be ISO-8601 or M/D/YY style. A
// missing or unparseable cell yields nil.
func CellTime(values []any, idx int) *time.Time {
	if idx < 0 || idx >= len(values) || values[idx] == nil {
		return nil
	}
	switch v := values[idx].(type) {
	case float64:
		if v <= 0 {
			return nil
		}
		t := excelEpoch.Add(time.Duration(v * float64(24*time.Hour)))
		return &t
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		for _, layout := range cellDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	default:
		return nil
	}
}

// CellCurrency parses the cell at idx as a monetary amount. Numeric cells
// are taken as-is; string cells tolerate a currency symbol and thousands
// separators ("$1,234.56"). A missing, empty, or unparseable cell yields nil.
func CellCurrency(values []any, idx int) *float64 {
	if idx < 0 || idx >= len(values) || values[idx] == nil {
		return nil
	}
	switch v := values[idx].(type) {
	case float64:
		return &v
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ---- cell writers ----
//
// Writes always use unambiguous representations: ISO dates and plain
// numbers. Empty string stands in for absent values; the rows API has no
// notion of null cells.

// DateCell formats a date for writing, or "" when absent.
func DateCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// CurrencyCell formats an amount for writing, or "" when absent.
func CurrencyCell(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
