// Shop repository over the remote workbook's rows API. Same row-addressing
// rules as the repair-order repository: IDs live in their own column, row
// indices are resolved fresh inside each operation's session.
package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/schema"
)

// Shops is the repository for the shop table.
type Shops struct {
	wb       Workbook
	sessions Sessions
	table    string
	log      zerolog.Logger

	newID func() string
}

// NewShops builds a Shops repository.
func NewShops(wb Workbook, sessions Sessions, table string, log zerolog.Logger) *Shops {
	return &Shops{
		wb:       wb,
		sessions: sessions,
		table:    table,
		log:      log,
		newID:    uuid.NewString,
	}
}

// GetAll returns every shop in sheet order.
func (s *Shops) GetAll(ctx context.Context) ([]domain.Shop, error) {
	var out []domain.Shop
	err := s.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		rows, err := s.wb.ListRows(ctx, s.table, sessionID)
		if err != nil {
			return err
		}
		out = make([]domain.Shop, 0, len(rows))
		for _, row := range rows {
			if len(row.Values) == 0 {
				continue
			}
			out = append(out, schema.ShopFromRow(row.Values[0]))
		}
		return nil
	})
	return out, err
}

// Add appends a new shop row with a fresh UUID and returns the stored entity.
func (s *Shops) Add(ctx context.Context, shop domain.Shop) (*domain.Shop, error) {
	shop.ID = s.newID()
	err := s.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		return s.wb.AddRow(ctx, s.table, schema.ShopToRow(shop), sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// Update overwrites the row identified by id with the supplied fields. The
// stored ID wins over whatever the caller put in shop.ID.
func (s *Shops) Update(ctx context.Context, id string, shop domain.Shop) (*domain.Shop, error) {
	err := s.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, _, err := s.findRow(ctx, id, sessionID)
		if err != nil {
			return err
		}
		shop.ID = id
		return s.wb.UpdateRow(ctx, s.table, idx, schema.ShopToRow(shop), sessionID)
	})
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

// Delete removes the row identified by id.
func (s *Shops) Delete(ctx context.Context, id string) error {
	return s.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		idx, _, err := s.findRow(ctx, id, sessionID)
		if err != nil {
			return err
		}
		return s.wb.DeleteRow(ctx, s.table, idx, sessionID)
	})
}

// VerifySchema checks the column count of the first data row against the
// expected layout. Meant to run once at startup; an empty table passes.
func (s *Shops) VerifySchema(ctx context.Context) error {
	return s.sessions.WithSession(ctx, func(ctx context.Context, sessionID string) error {
		rows, err := s.wb.ListRows(ctx, s.table, sessionID)
		if err != nil {
			return err
		}
		if len(rows) == 0 || len(rows[0].Values) == 0 {
			return nil
		}
		return schema.ValidateWidth(s.table, len(rows[0].Values[0]), schema.ShopWidth)
	})
}

func (s *Shops) findRow(ctx context.Context, id, sessionID string) (int, []any, error) {
	rows, err := s.wb.ListRows(ctx, s.table, sessionID)
	if err != nil {
		return 0, nil, err
	}
	for _, row := range rows {
		if len(row.Values) == 0 {
			continue
		}
		if schema.CellString(row.Values[0], schema.ShopColID) == id {
			return row.Index, row.Values[0], nil
		}
	}
	return 0, nil, ErrNotFound
}
