// Package services – RepairOrderService
//
// This file implements the RepairOrderService, which fronts the workbook-backed
// repair-order repository. It validates and normalizes input, applies
// pagination over the full sheet read (the table lives in a spreadsheet; there
// is no server-side query language to push limits into), and maps repository
// errors onto stable service-level errors.
//
// Service-level errors (e.g., ErrRepairOrderNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/repo"
)

// RepairOrderRepo defines the repository contract required by
// RepairOrderService. *repo.RepairOrders satisfies it.
type RepairOrderRepo interface {
	// GetAll returns every repair order with derived fields computed.
	GetAll(ctx context.Context) ([]domain.RepairOrder, error)

	// Add appends a new repair order and returns the stored entity.
	Add(ctx context.Context, p repo.AddParams) (*domain.RepairOrder, error)

	// UpdateStatus applies one status transition.
	UpdateStatus(ctx context.Context, id string, req repo.StatusUpdate) (*domain.RepairOrder, error)

	// Update overwrites user-editable fields.
	Update(ctx context.Context, id string, fields repo.UpdateFields) (*domain.RepairOrder, error)

	// Delete removes the order.
	Delete(ctx context.Context, id string) error

	// MoveToArchive moves the order to the archive table.
	MoveToArchive(ctx context.Context, id string) error
}

// RepairOrderService provides repair-order operations for the HTTP layer.
type RepairOrderService struct {
	// Repo is the repair-order repository used by this service.
	Repo RepairOrderRepo
}

// NewRepairOrderService constructs a RepairOrderService.
func NewRepairOrderService(r RepairOrderRepo) *RepairOrderService {
	return &RepairOrderService{Repo: r}
}

// List returns all repair orders (non-paginated).
// Prefer ListPage for the dashboard's list view.
func (s *RepairOrderService) List(ctx context.Context) ([]domain.RepairOrder, error) {
	return s.Repo.GetAll(ctx)
}

// ListPage returns a page of repair orders plus the total count. The sheet is
// read in full either way, so pagination is applied in memory after the read.
// It applies defaults for invalid page/pageSize.
func (s *RepairOrderService) ListPage(ctx context.Context, page, pageSize int) ([]domain.RepairOrder, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	all, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	offset := (page - 1) * pageSize
	if offset >= total {
		return []domain.RepairOrder{}, total, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// Create validates and inserts a new repair order. RONumber is required;
// Status defaults to TO SEND downstream when blank.
func (s *RepairOrderService) Create(ctx context.Context, p repo.AddParams) (*domain.RepairOrder, error) {
	p.RONumber = normalizeField(p.RONumber)
	if p.RONumber == "" {
		return nil, ErrEmptyRONumber
	}
	if p.EstimatedCost != nil && *p.EstimatedCost < 0 {
		return nil, ErrNegativeCost
	}
	p.PartNumber = normalizeField(p.PartNumber)
	p.SerialNumber = normalizeField(p.SerialNumber)
	p.ShopName = normalizeField(p.ShopName)
	p.Status = strings.ToUpper(normalizeField(p.Status))
	p.PaymentTerms = normalizeField(p.PaymentTerms)
	return s.Repo.Add(ctx, p)
}

// UpdateStatus validates and applies a status transition.
func (s *RepairOrderService) UpdateStatus(ctx context.Context, id string, req repo.StatusUpdate) (*domain.RepairOrder, error) {
	req.Status = strings.ToUpper(normalizeField(req.Status))
	if req.Status == "" {
		return nil, ErrEmptyStatus
	}
	if req.Cost != nil && *req.Cost < 0 {
		return nil, ErrNegativeCost
	}
	out, err := s.Repo.UpdateStatus(ctx, id, req)
	return out, mapNotFound(err)
}

// Update overwrites the user-editable fields of an order.
func (s *RepairOrderService) Update(ctx context.Context, id string, fields repo.UpdateFields) (*domain.RepairOrder, error) {
	if fields.EstimatedCost != nil && *fields.EstimatedCost < 0 {
		return nil, ErrNegativeCost
	}
	out, err := s.Repo.Update(ctx, id, fields)
	return out, mapNotFound(err)
}

// Delete removes a repair order.
func (s *RepairOrderService) Delete(ctx context.Context, id string) error {
	return mapNotFound(s.Repo.Delete(ctx, id))
}

// Archive moves a repair order into the archive table.
func (s *RepairOrderService) Archive(ctx context.Context, id string) error {
	err := s.Repo.MoveToArchive(ctx, id)
	if errors.Is(err, repo.ErrNoArchive) {
		return ErrNoArchive
	}
	return mapNotFound(err)
}

// mapNotFound translates the repository's not-found error into the
// service-level one; everything else passes through untouched.
func mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrRepairOrderNotFound
	}
	return err
}

// normalizeField trims whitespace and collapses multiple spaces to one.
func normalizeField(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
