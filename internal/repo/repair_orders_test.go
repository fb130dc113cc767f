package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/graph"
	"github.com/skylinemro/ro-dashboard/internal/reminder"
	"github.com/skylinemro/ro-dashboard/internal/schema"
)

// fakeWorkbook is an in-memory stand-in for the Graph workbook rows API.
// Rows are stored per table; delete shifts subsequent indices, as the real
// API does.
type fakeWorkbook struct {
	tables map[string][][]any

	addErr    error
	updateErr error
	deleteErr error

	// ops records the mutation order, e.g. "add:Archive", "delete:ROs".
	ops []string
}

func newFakeWorkbook() *fakeWorkbook {
	return &fakeWorkbook{tables: map[string][][]any{}}
}

func (f *fakeWorkbook) ListRows(_ context.Context, table, _ string) ([]graph.TableRow, error) {
	rows := make([]graph.TableRow, 0, len(f.tables[table]))
	for i, vals := range f.tables[table] {
		rows = append(rows, graph.TableRow{Index: i, Values: [][]any{vals}})
	}
	return rows, nil
}

func (f *fakeWorkbook) AddRow(_ context.Context, table string, values []any, _ string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.ops = append(f.ops, "add:"+table)
	f.tables[table] = append(f.tables[table], values)
	return nil
}

func (f *fakeWorkbook) UpdateRow(_ context.Context, table string, index int, values []any, _ string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if index < 0 || index >= len(f.tables[table]) {
		return fmt.Errorf("fake: index %d out of range", index)
	}
	f.ops = append(f.ops, "update:"+table)
	f.tables[table][index] = values
	return nil
}

func (f *fakeWorkbook) DeleteRow(_ context.Context, table string, index int, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if index < 0 || index >= len(f.tables[table]) {
		return fmt.Errorf("fake: index %d out of range", index)
	}
	f.ops = append(f.ops, "delete:"+table)
	f.tables[table] = append(f.tables[table][:index], f.tables[table][index+1:]...)
	return nil
}

// passSessions hands fn a fixed session token with no retry machinery;
// session behavior has its own tests.
type passSessions struct{ calls int }

func (p *passSessions) WithSession(ctx context.Context, fn func(context.Context, string) error) error {
	p.calls++
	return fn(ctx, "sess-1")
}

type capturedReminder struct {
	ro   domain.RepairOrder
	cost *float64
}

type captureNotifier struct{ got []capturedReminder }

func (c *captureNotifier) PaymentDue(ro domain.RepairOrder, cost *float64) {
	c.got = append(c.got, capturedReminder{ro: ro, cost: cost})
}

func newTestRepo(t *testing.T, wb *fakeWorkbook, n PaymentNotifier) *RepairOrders {
	t.Helper()
	r := NewRepairOrders(wb, &passSessions{}, "ROs", "Archive", n, zerolog.Nop())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	seq := 0
	r.newID = func() string { seq++; return fmt.Sprintf("id-%d", seq) }
	return r
}

func fptr(v float64) *float64 { return &v }

func TestAdd_WritesFullRowWithInitialHistory(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	ro, err := r.Add(context.Background(), AddParams{
		RONumber:     "RO-100",
		PartNumber:   "P-7",
		SerialNumber: "SN-1",
		ShopName:     "AeroFix",
		PaymentTerms: "NET 30",
		Notes:        "left aileron",
		User:         "dispatcher",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ro.Status != domain.StatusToSend {
		t.Fatalf("default status = %q, want %q", ro.Status, domain.StatusToSend)
	}
	if ro.ID != "id-1" {
		t.Fatalf("ID = %q", ro.ID)
	}
	if ro.NextUpdateDue == nil {
		t.Fatalf("expected NextUpdateDue to be set")
	}

	rows := wb.tables["ROs"]
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if got := len(rows[0]); got != schema.ROWidth {
		t.Fatalf("row width = %d, want %d", got, schema.ROWidth)
	}
	cell, _ := rows[0][schema.ROColNotes].(string)
	if !strings.HasPrefix(cell, "HISTORY:") || !strings.Contains(cell, "|NOTES:left aileron") {
		t.Fatalf("notes cell = %q", cell)
	}
}

func TestGetAll_DecodesHistoryAndComputesOverdue(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	if _, err := r.Add(context.Background(), AddParams{RONumber: "RO-1", User: "u"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Move the clock past the 7-day cadence: 7d due + 2d late.
	r.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	all, err := r.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d", len(all))
	}
	got := all[0]
	if len(got.History) != 1 || got.History[0].Status != domain.StatusToSend {
		t.Fatalf("history not decoded: %+v", got.History)
	}
	if !got.IsOverdue || got.DaysOverdue != 2 {
		t.Fatalf("overdue = (%d, %v), want (2, true)", got.DaysOverdue, got.IsOverdue)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	_, err := r.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: domain.StatusSent})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_NonTerminalCostGoesToEstimated(t *testing.T) {
	wb := newFakeWorkbook()
	n := &captureNotifier{}
	r := newTestRepo(t, wb, n)

	added, err := r.Add(context.Background(), AddParams{RONumber: "RO-2", User: "u"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.UpdateStatus(context.Background(), added.ID, StatusUpdate{
		Status: domain.StatusQuoteReceived,
		User:   "u",
		Cost:   fptr(900),
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.EstimatedCost == nil || *got.EstimatedCost != 900 {
		t.Fatalf("EstimatedCost = %v, want 900", got.EstimatedCost)
	}
	if got.FinalCost != nil {
		t.Fatalf("FinalCost = %v, want nil", got.FinalCost)
	}
	// Notifier still sees the update; the dispatcher itself decides the
	// status is not terminal and skips.
	if len(n.got) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(n.got))
	}
}

func TestUpdateStatus_FailedWriteSkipsReminder(t *testing.T) {
	wb := newFakeWorkbook()
	n := &captureNotifier{}
	r := newTestRepo(t, wb, n)

	added, err := r.Add(context.Background(), AddParams{RONumber: "RO-3", PaymentTerms: "NET 30", User: "u"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	wb.updateErr = errors.New("boom")
	if _, err := r.UpdateStatus(context.Background(), added.ID, StatusUpdate{
		Status: domain.StatusPaid, Cost: fptr(100),
	}); err == nil {
		t.Fatalf("expected write failure to surface")
	}
	if len(n.got) != 0 {
		t.Fatalf("reminder dispatched despite failed write")
	}
}

// A failing calendar write must never fail the status update: the row change
// has already committed when the reminder fires.
type failingEvents struct{ calls chan struct{} }

func (f *failingEvents) CreateCalendarEvent(context.Context, graph.Event) error {
	f.calls <- struct{}{}
	return errors.New("calendar down")
}

func TestUpdateStatus_CalendarFailureDoesNotFailUpdate(t *testing.T) {
	wb := newFakeWorkbook()
	ev := &failingEvents{calls: make(chan struct{}, 1)}
	d := reminder.NewDispatcher(ev, zerolog.Nop())
	r := newTestRepo(t, wb, d)

	added, err := r.Add(context.Background(), AddParams{RONumber: "RO-4", PaymentTerms: "NET 15", User: "u"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.UpdateStatus(context.Background(), added.ID, StatusUpdate{
		Status: domain.StatusPaid,
		Cost:   fptr(500),
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.FinalCost == nil || *got.FinalCost != 500 {
		t.Fatalf("FinalCost = %v, want 500", got.FinalCost)
	}

	select {
	case <-ev.calls:
	case <-time.After(time.Second):
		t.Fatalf("calendar event never attempted")
	}
	d.Wait()

	// Row is committed in the sheet.
	ro, _ := schema.RepairOrderFromRow(wb.tables["ROs"][0])
	if ro.Status != domain.StatusPaid {
		t.Fatalf("sheet status = %q", ro.Status)
	}
}

func TestUpdate_EditableFieldsOnly(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	added, err := r.Add(context.Background(), AddParams{RONumber: "RO-5", Notes: "orig", User: "u"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	shop := "NewShop"
	notes := "edited"
	got, err := r.Update(context.Background(), added.ID, UpdateFields{
		ShopName: &shop,
		Notes:    &notes,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ShopName != "NewShop" || got.Notes != "edited" {
		t.Fatalf("unexpected entity: %+v", got)
	}
	if got.Status != domain.StatusToSend {
		t.Fatalf("status changed by field update: %q", got.Status)
	}
	// History survives a notes edit.
	if len(got.History) != 1 {
		t.Fatalf("history lost: %+v", got.History)
	}
}

func TestDelete_ShiftsSubsequentRows(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	a, _ := r.Add(context.Background(), AddParams{RONumber: "RO-A", User: "u"})
	b, _ := r.Add(context.Background(), AddParams{RONumber: "RO-B", User: "u"})

	if err := r.Delete(context.Background(), a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The second row shifted to index 0; a fresh lookup must still find it.
	if err := r.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete after shift: %v", err)
	}
	if len(wb.tables["ROs"]) != 0 {
		t.Fatalf("rows remain: %v", wb.tables["ROs"])
	}
}

func TestMoveToArchive_AppendBeforeDelete(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	added, _ := r.Add(context.Background(), AddParams{RONumber: "RO-6", User: "u"})
	wb.ops = nil

	if err := r.MoveToArchive(context.Background(), added.ID); err != nil {
		t.Fatalf("MoveToArchive: %v", err)
	}
	want := []string{"add:Archive", "delete:ROs"}
	if len(wb.ops) != 2 || wb.ops[0] != want[0] || wb.ops[1] != want[1] {
		t.Fatalf("ops = %v, want %v", wb.ops, want)
	}
	if len(wb.tables["ROs"]) != 0 || len(wb.tables["Archive"]) != 1 {
		t.Fatalf("tables after archive: ROs=%d Archive=%d", len(wb.tables["ROs"]), len(wb.tables["Archive"]))
	}
}

func TestMoveToArchive_DeleteFailureLeavesDuplicate(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	added, _ := r.Add(context.Background(), AddParams{RONumber: "RO-7", User: "u"})
	wb.deleteErr = errors.New("boom")

	if err := r.MoveToArchive(context.Background(), added.ID); err == nil {
		t.Fatalf("expected delete failure to surface")
	}
	// Duplicated, not lost.
	if len(wb.tables["ROs"]) != 1 || len(wb.tables["Archive"]) != 1 {
		t.Fatalf("tables after failed archive: ROs=%d Archive=%d", len(wb.tables["ROs"]), len(wb.tables["Archive"]))
	}
}

func TestMoveToArchive_NoArchiveConfigured(t *testing.T) {
	wb := newFakeWorkbook()
	r := NewRepairOrders(wb, &passSessions{}, "ROs", "", nil, zerolog.Nop())
	if err := r.MoveToArchive(context.Background(), "x"); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("err = %v, want ErrNoArchive", err)
	}
}

func TestVerifySchema(t *testing.T) {
	wb := newFakeWorkbook()
	r := newTestRepo(t, wb, nil)

	// Empty table passes.
	if err := r.VerifySchema(context.Background()); err != nil {
		t.Fatalf("empty table: %v", err)
	}

	if _, err := r.Add(context.Background(), AddParams{RONumber: "RO-8", User: "u"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.VerifySchema(context.Background()); err != nil {
		t.Fatalf("valid width: %v", err)
	}

	wb.tables["ROs"][0] = append(wb.tables["ROs"][0], "extra")
	if err := r.VerifySchema(context.Background()); err == nil {
		t.Fatalf("expected drifted layout to fail")
	}
}

// Full lifecycle: add with NET 30 terms, then a terminal status with a cost.
// The cost lands in the final column, the estimate is untouched, the history
// gains a second entry, and the payment reminder lands 30 days out.
func TestLifecycle_AddThenPay(t *testing.T) {
	wb := newFakeWorkbook()
	ev := &captureEvents{}
	d := reminder.NewDispatcher(ev, zerolog.Nop())
	r := newTestRepo(t, wb, d)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	added, err := r.Add(context.Background(), AddParams{
		RONumber:      "RO-2025-042",
		PartNumber:    "fuel pump",
		ShopName:      "AeroFix",
		EstimatedCost: fptr(1200),
		PaymentTerms:  "NET 30",
		User:          "dispatcher",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.Status != domain.StatusToSend {
		t.Fatalf("initial status = %q", added.Status)
	}

	got, err := r.UpdateStatus(context.Background(), added.ID, StatusUpdate{
		Status: domain.StatusPaid,
		User:   "dispatcher",
		Cost:   fptr(1500),
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.FinalCost == nil || *got.FinalCost != 1500 {
		t.Fatalf("FinalCost = %v, want 1500", got.FinalCost)
	}
	if got.EstimatedCost == nil || *got.EstimatedCost != 1200 {
		t.Fatalf("EstimatedCost = %v, want untouched 1200", got.EstimatedCost)
	}
	if len(got.History) != 2 {
		t.Fatalf("history entries = %d, want 2", len(got.History))
	}
	if got.History[0].Status != domain.StatusToSend || got.History[1].Status != domain.StatusPaid {
		t.Fatalf("history order: %+v", got.History)
	}
	if got.NextUpdateDue != nil {
		// PAID with NET terms tracks payment, not another status update.
		wantDue := base.AddDate(0, 0, 30)
		if !got.NextUpdateDue.Equal(wantDue) {
			t.Fatalf("NextUpdateDue = %v, want %v", got.NextUpdateDue, wantDue)
		}
	}

	d.Wait()
	if len(ev.got) != 1 {
		t.Fatalf("calendar events = %d, want 1", len(ev.got))
	}
	wantStart := time.Now().AddDate(0, 0, 30)
	if diff := ev.got[0].Start.Sub(wantStart); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("reminder start = %v, want ~%v", ev.got[0].Start, wantStart)
	}
	if !strings.Contains(ev.got[0].Subject, "RO-2025-042") {
		t.Fatalf("reminder subject = %q", ev.got[0].Subject)
	}
}

type captureEvents struct {
	got []graph.Event
}

func (c *captureEvents) CreateCalendarEvent(_ context.Context, ev graph.Event) error {
	c.got = append(c.got, ev)
	return nil
}
