// Repair-order repository over the remote workbook's rows API.
//
// The workbook addresses rows by position, and positions shift whenever a row
// is deleted. Every operation therefore resolves its target row from the ID
// column inside the same session it mutates in; indices are never cached
// across sessions. All multi-step mutations (read-modify-write, archive
// moves) run under a single session so the server applies them against one
// consistent view of the sheet.
//
// Error semantics:
//   - When no row carries the requested ID, operations return ErrNotFound.
//   - Transport and API failures propagate from the session manager, which
//     has already retried the transient ones.
//
// Methods:
//
//   - GetAll(ctx) -> []domain.RepairOrder, error
//     Lists every order with history decoded and overdue fields computed.
//
//   - Add(ctx, params) -> *domain.RepairOrder, error
//     Appends a full-width row with a fresh UUID and an initial history entry.
//
//   - UpdateStatus(ctx, id, req) -> *domain.RepairOrder, error
//     Appends a history entry, routes the cost column by status terminality,
//     recomputes the next-update-due date, and writes the row back. A
//     payment-due reminder is dispatched after the write commits and never
//     affects the result.
//
//   - Update(ctx, id, fields) -> *domain.RepairOrder, error
//     Read-modify-write of the user-editable columns only.
//
//   - Delete(ctx, id) -> error
//
//   - MoveToArchive(ctx, id) -> error
//     Append to the archive table first, then delete the source row, so a
//     mid-operation failure duplicates rather than loses the order.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/graph"
	"github.com/skylinemro/ro-dashboard/internal/history"
	"github.com/skylinemro/ro-dashboard/internal/schema"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("repo: not found")

// ErrNoArchive is returned by MoveToArchive when no archive table is
// configured.
var ErrNoArchive = errors.New("repo: archive table not configured")

// Workbook is the slice of the Graph client the row repositories need.
type Workbook interface {
	ListRows(ctx context.Context, table, sessionID string) ([]graph.TableRow, error)
	AddRow(ctx context.Context, table string, values []any, sessionID string) error
	UpdateRow(ctx context.Context, table string, index int, values []any, sessionID string) error
	DeleteRow(ctx context.Context, table string, index int, sessionID string) error
}

// Sessions runs workbook work under a managed session (see internal/session).
type Sessions interface {
	WithSession(ctx context.Context, fn func(ctx context.Context, sessionID string) error) error
}

// PaymentNotifier receives fire-and-forget payment-due notifications after a
// status update commits. *reminder.Dispatcher satisfies it.
type PaymentNotifier interface {
	PaymentDue(ro domain.RepairOrder, cost *float64)
}

// RepairOrders is the repository for the repair-order table.
type RepairOrders struct {
	wb        Workbook
	sessions  Sessions
	codec     history.Codec
	table     string
	archive   string
	reminders PaymentNotifier
	log       zerolog.Logger

	// Replaceable in tests.
	now   func() time.Time
	newID func() string
}

// NewRepairOrders builds a RepairOrders repository. archiveTable may be empty,
// in which case MoveToArchive returns ErrNoArchive. reminders may be nil.
func NewRepairOrders(wb Workbook, sessions Sessions, table, archiveTable string, reminders PaymentNotifier, log zerolog.Logger) *RepairOrders {
	return &RepairOrders{
		wb:        wb,
		sessions:  sessions,
		codec:     history.Codec{Log: log},
		table:     table,
		archive:   archiveTable,
		reminders: reminders,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AddParams are the caller-supplied fields of a new repair order. Status
// defaults to TO SEND when empty.
type AddParams struct {
	RONumber          string
	PartNumber        string
	SerialNumber      string
	ShopName          string
	Status            string
	EstimatedCost     *float64
	PaymentTerms      string
	TrackingNumber    string
	DroppedOffAt      *time.Time
	EstimatedDelivery *time.Time
	Notes             string
	User              string
}

// StatusUpdate describes one status transition. Cost routes to the final-cost
// column when the new status is terminal, otherwise to the estimated-cost
// column. TrackingNumber and DeliveryDate only overwrite when supplied.
type StatusUpdate struct {
	Status         string
	User           string
	Notes          string
	Cost           *float64
	DeliveryDate   *time.Time
	TrackingNumber string
}

// UpdateFields holds the user-editable columns. Nil pointers leave the
// current cell untouched; Notes replaces only the free-text portion of the
// notes cell, never the embedded history.
type UpdateFields struct {
	RONumber          *string
	PartNumber        *string
	SerialNumber      *string
	ShopName          *string
	EstimatedCost     *float64
	PaymentTerms      *string
	TrackingNumber    *string
	DroppedOffAt      *time.Time
	EstimatedDelivery *time.Time
	Notes             *string
}

// GetAll returns every repair order in sheet order, with the history cell
// decoded and the overdue fields computed against the current clock.
func (r *RepairOrders) GetAll(ctx context.Context) ([]domain.RepairOrder, error) {
	var out []domain.RepairOrder
	err := r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		rows, err := r.wb.ListRows(ctx, r.table, sessionID)
		if err != nil {
			return err
		}
		now := r.now()
		out = make([]domain.RepairOrder, 0, len(rows))
		for _, row := range rows {
			if len(row.Values) == 0 {
				continue
			}
			ro, notesCell := schema.RepairOrderFromRow(row.Values[0])
			ro.Notes, ro.History = r.codec.Decode(notesCell)
			ro.DaysOverdue, ro.IsOverdue = domain.Overdue(ro.NextUpdateDue, now)
			out = append(out, ro)
		}
		return nil
	})
	return out, err
}

// Add appends a new repair order row and returns the stored entity.
func (r *RepairOrders) Add(ctx context.Context, p AddParams) (*domain.RepairOrder, error) {
	now := r.now()
	status := p.Status
	if status == "" {
		status = domain.StatusToSend
	}
	ro := domain.RepairOrder{
		ID:                r.newID(),
		RONumber:          p.RONumber,
		PartNumber:        p.PartNumber,
		SerialNumber:      p.SerialNumber,
		ShopName:          p.ShopName,
		Status:            status,
		EstimatedCost:     p.EstimatedCost,
		PaymentTerms:      p.PaymentTerms,
		TrackingNumber:    p.TrackingNumber,
		CreatedAt:         &now,
		DroppedOffAt:      p.DroppedOffAt,
		EstimatedDelivery: p.EstimatedDelivery,
		StatusDate:        &now,
		LastUpdated:       &now,
		NextUpdateDue:     domain.NextUpdateDue(status, p.PaymentTerms, now),
		Notes:             p.Notes,
		History: []domain.StatusEntry{{
			Status: status,
			Date:   now,
			User:   p.User,
			Notes:  p.Notes,
			Cost:   p.EstimatedCost,
		}},
	}
	cell := r.codec.Encode(ro.Notes, ro.History)
	err := r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		return r.wb.AddRow(ctx, r.table, schema.RepairOrderToRow(ro, cell), sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &ro, nil
}

// UpdateStatus applies one status transition to the order identified by id.
// The whole read-modify-write runs in one session; the payment reminder is
// dispatched only after the row write has committed, and its outcome never
// surfaces here.
func (r *RepairOrders) UpdateStatus(ctx context.Context, id string, req StatusUpdate) (*domain.RepairOrder, error) {
	var ro domain.RepairOrder
	err := r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, values, err := r.findRow(ctx, r.table, id, sessionID)
		if err != nil {
			return err
		}
		now := r.now()
		var notesCell string
		ro, notesCell = schema.RepairOrderFromRow(values)
		notes, entries := r.codec.Decode(notesCell)

		entries = append(entries, domain.StatusEntry{
			Status:       req.Status,
			Date:         now,
			User:         req.User,
			Notes:        req.Notes,
			Cost:         req.Cost,
			DeliveryDate: req.DeliveryDate,
		})

		ro.Status = req.Status
		ro.StatusDate = &now
		ro.LastUpdated = &now
		ro.NextUpdateDue = domain.NextUpdateDue(req.Status, ro.PaymentTerms, now)
		if req.Cost != nil {
			if domain.IsTerminalStatus(req.Status) {
				ro.FinalCost = req.Cost
			} else {
				ro.EstimatedCost = req.Cost
			}
		}
		if req.TrackingNumber != "" {
			ro.TrackingNumber = req.TrackingNumber
		}
		if req.DeliveryDate != nil {
			ro.EstimatedDelivery = req.DeliveryDate
		}

		ro.Notes, ro.History = notes, entries
		cell := r.codec.Encode(notes, entries)
		return r.wb.UpdateRow(ctx, r.table, idx, schema.RepairOrderToRow(ro, cell), sessionID)
	})
	if err != nil {
		return nil, err
	}
	if r.reminders != nil {
		r.reminders.PaymentDue(ro, req.Cost)
	}
	return &ro, nil
}

// Update overwrites the user-editable columns of the order identified by id
// and stamps LastUpdated. Status, history, and the derived date columns are
// not touched here; use UpdateStatus for transitions.
func (r *RepairOrders) Update(ctx context.Context, id string, fields UpdateFields) (*domain.RepairOrder, error) {
	var ro domain.RepairOrder
	err := r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, values, err := r.findRow(ctx, r.table, id, sessionID)
		if err != nil {
			return err
		}
		var notesCell string
		ro, notesCell = schema.RepairOrderFromRow(values)
		notes, entries := r.codec.Decode(notesCell)

		if fields.RONumber != nil {
			ro.RONumber = *fields.RONumber
		}
		if fields.PartNumber != nil {
			ro.PartNumber = *fields.PartNumber
		}
		if fields.SerialNumber != nil {
			ro.SerialNumber = *fields.SerialNumber
		}
		if fields.ShopName != nil {
			ro.ShopName = *fields.ShopName
		}
		if fields.EstimatedCost != nil {
			ro.EstimatedCost = fields.EstimatedCost
		}
		if fields.PaymentTerms != nil {
			ro.PaymentTerms = *fields.PaymentTerms
		}
		if fields.TrackingNumber != nil {
			ro.TrackingNumber = *fields.TrackingNumber
		}
		if fields.DroppedOffAt != nil {
			ro.DroppedOffAt = fields.DroppedOffAt
		}
		if fields.EstimatedDelivery != nil {
			ro.EstimatedDelivery = fields.EstimatedDelivery
		}
		if fields.Notes != nil {
			notes = *fields.Notes
		}
		now := r.now()
		ro.LastUpdated = &now

		ro.Notes, ro.History = notes, entries
		cell := r.codec.Encode(notes, entries)
		return r.wb.UpdateRow(ctx, r.table, idx, schema.RepairOrderToRow(ro, cell), sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &ro, nil
}

// Delete removes the row identified by id.
func (r *RepairOrders) Delete(ctx context.Context, id string) error {
	return r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, _, err := r.findRow(ctx, r.table, id, sessionID)
		if err != nil {
			return err
		}
		return r.wb.DeleteRow(ctx, r.table, idx, sessionID)
	})
}

// MoveToArchive copies the row identified by id into the archive table and
// then deletes it from the source table, in that order and in one session.
// If the delete fails the order exists twice, which is recoverable; the
// reverse order could lose it.
func (r *RepairOrders) MoveToArchive(ctx context.Context, id string) error {
	if r.archive == "" {
		return ErrNoArchive
	}
	return r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, values, err := r.findRow(ctx, r.table, id, sessionID)
		if err != nil {
			return err
		}
		if err := r.wb.AddRow(ctx, r.archive, values, sessionID); err != nil {
			return err
		}
		return r.wb.DeleteRow(ctx, r.table, idx, sessionID)
	})
}

// VerifySchema checks the column count of the first data row against the
// expected layout. Meant to run once at startup; an empty table passes.
func (r *RepairOrders) VerifySchema(ctx context.Context) error {
	return r.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		rows, err := r.wb.ListRows(ctx, r.table, sessionID)
		if err != nil {
			return err
		}
		if len(rows) == 0 || len(rows[0].Values) == 0 {
			return nil
		}
		return schema.ValidateWidth(r.table, len(rows[0].Values[0]), schema.ROWidth)
	})
}

// findRow scans the table for the row whose ID column equals id. The index
// is only valid within the session it was resolved in.
func (r *RepairOrders) findRow(ctx context.Context, table, id, sessionID string) (int, []any, error) {
	rows, err := r.wb.ListRows(ctx, table, sessionID)
	if err != nil {
		return 0, nil, err
	}
	for _, row := range rows {
		if len(row.Values) == 0 {
			continue
		}
		if schema.CellString(row.Values[0], schema.ROColID) == id {
			return row.Index, row.Values[0], nil
		}
	}
	return 0, nil, ErrNotFound
}
