package schema

import (
	"testing"
	"time"

	"github.com/skylinemro/ro-dashboard/internal/domain"
)

func TestCellString_GracefulDegradation(t *testing.T) {
	values := []any{" RO-1 ", nil, 42.5, true}
	cases := []struct {
		idx  int
		want string
	}{
		{0, "RO-1"}, // trimmed
		{1, ""},     // nil cell
		{2, "42.5"}, // numeric cell
		{3, "true"}, // boolean cell
		{7, ""},     // beyond the row
		{-1, ""},    // nonsense index
	}
	for _, tc := range cases {
		if got := CellString(values, tc.idx); got != tc.want {
			t.Errorf("CellString(%d) = %q; want %q", tc.idx, got, tc.want)
		}
	}
}

func TestCellTime_SerialAndStringRepresentations(t *testing.T) {
	// 45717 is 2025-03-01 in the spreadsheet serial scheme.
	values := []any{
		float64(45717),
		"2025-03-01",
		"2025-03-01T00:00:00Z",
		"3/1/2025",
		"3/1/25",
		"not a date",
		"",
		nil,
		float64(0),
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for idx := 0; idx < 5; idx++ {
		got := CellTime(values, idx)
		if got == nil || !got.Equal(want) {
			t.Errorf("CellTime(%d) = %v; want %v", idx, got, want)
		}
	}
	for idx := 5; idx < len(values); idx++ {
		if got := CellTime(values, idx); got != nil {
			t.Errorf("CellTime(%d) = %v; want nil", idx, got)
		}
	}
	if got := CellTime(values, 20); got != nil {
		t.Errorf("CellTime beyond row = %v; want nil", got)
	}
}

func TestCellTime_SerialWithFraction(t *testing.T) {
	// 45717.5 is noon on 2025-03-01.
	got := CellTime([]any{float64(45717.5)}, 0)
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Fatalf("CellTime = %v; want %v", got, want)
	}
}

func TestCellCurrency(t *testing.T) {
	values := []any{
		float64(1500),
		"$1,234.56",
		"1234.56",
		"$ junk",
		"",
		nil,
	}
	if got := CellCurrency(values, 0); got == nil || *got != 1500 {
		t.Errorf("numeric cell = %v", got)
	}
	if got := CellCurrency(values, 1); got == nil || *got != 1234.56 {
		t.Errorf("formatted currency = %v", got)
	}
	if got := CellCurrency(values, 2); got == nil || *got != 1234.56 {
		t.Errorf("bare decimal = %v", got)
	}
	for idx := 3; idx < len(values); idx++ {
		if got := CellCurrency(values, idx); got != nil {
			t.Errorf("CellCurrency(%d) = %v; want nil", idx, got)
		}
	}
	if got := CellCurrency(values, 33); got != nil {
		t.Errorf("beyond row = %v; want nil", got)
	}
}

func TestValidateWidth(t *testing.T) {
	if err := ValidateWidth("ROs", ROWidth, ROWidth); err != nil {
		t.Fatalf("matching width should pass: %v", err)
	}
	if err := ValidateWidth("ROs", ROWidth-1, ROWidth); err == nil {
		t.Fatalf("drifted layout must be rejected")
	}
}

func TestHeadersMatchLayoutWidths(t *testing.T) {
	if len(ROHeaders) != ROWidth {
		t.Fatalf("ROHeaders has %d names for %d columns", len(ROHeaders), ROWidth)
	}
	if len(ShopHeaders) != ShopWidth {
		t.Fatalf("ShopHeaders has %d names for %d columns", len(ShopHeaders), ShopWidth)
	}
}

func TestRepairOrderRowRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	est := 2500.0
	ro := domain.RepairOrder{
		ID:             "uuid-1",
		RONumber:       "RO-1001",
		PartNumber:     "PN-77",
		SerialNumber:   "SN-3",
		ShopName:       "Apex Hydraulics",
		Status:         domain.StatusToSend,
		EstimatedCost:  &est,
		PaymentTerms:   "NET 30",
		TrackingNumber: "1Z999",
		CreatedAt:      &created,
		StatusDate:     &created,
		NextUpdateDue:  &due,
	}

	row := RepairOrderToRow(ro, "notes cell")
	if len(row) != ROWidth {
		t.Fatalf("row width = %d; want %d", len(row), ROWidth)
	}

	got, notes := RepairOrderFromRow(row)
	if notes != "notes cell" {
		t.Fatalf("notes = %q", notes)
	}
	if got.ID != ro.ID || got.RONumber != ro.RONumber || got.PartNumber != ro.PartNumber ||
		got.SerialNumber != ro.SerialNumber || got.ShopName != ro.ShopName || got.Status != ro.Status ||
		got.PaymentTerms != ro.PaymentTerms || got.TrackingNumber != ro.TrackingNumber {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.EstimatedCost == nil || *got.EstimatedCost != est {
		t.Fatalf("estimated cost = %v", got.EstimatedCost)
	}
	if got.FinalCost != nil {
		t.Fatalf("final cost should stay absent, got %v", got.FinalCost)
	}
	if got.CreatedAt == nil || !got.CreatedAt.Equal(created) {
		t.Fatalf("created at = %v", got.CreatedAt)
	}
	if got.NextUpdateDue == nil || !got.NextUpdateDue.Equal(due) {
		t.Fatalf("next update due = %v", got.NextUpdateDue)
	}
	if got.DroppedOffAt != nil || got.EstimatedDelivery != nil {
		t.Fatalf("absent dates must stay nil: %+v", got)
	}
}

func TestShortRowDegradesToEmptyOrder(t *testing.T) {
	// A row narrower than the layout parses without panicking.
	ro, notes := RepairOrderFromRow([]any{"uuid-1", "RO-1"})
	if ro.ID != "uuid-1" || ro.RONumber != "RO-1" {
		t.Fatalf("prefix fields lost: %+v", ro)
	}
	if ro.Status != "" || ro.EstimatedCost != nil || ro.CreatedAt != nil || notes != "" {
		t.Fatalf("missing cells should be zero values: %+v", ro)
	}
}

func TestShopRowRoundTrip(t *testing.T) {
	s := domain.Shop{
		ID:           "uuid-s1",
		BusinessName: "Apex Hydraulics",
		ContactName:  "Dana",
		Phone:        "555-0101",
		Email:        "dana@apex.example",
		PaymentTerms: "NET 30",
		Notes:        "preferred vendor",
	}
	got := ShopFromRow(ShopToRow(s))
	if got != s {
		t.Fatalf("round trip mismatch: %+v != %+v", got, s)
	}
}
