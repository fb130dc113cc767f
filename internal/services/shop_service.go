// Package services – ShopService
//
// Fronts the workbook-backed shop repository: input validation and stable
// error mapping for the handlers.
package services

import (
	"context"
	"errors"

	"github.com/skylinemro/ro-dashboard/internal/domain"
	"github.com/skylinemro/ro-dashboard/internal/repo"
)

// ShopRepo defines the repository contract required by ShopService.
// *repo.Shops satisfies it.
type ShopRepo interface {
	GetAll(ctx context.Context) ([]domain.Shop, error)
	Add(ctx context.Context, shop domain.Shop) (*domain.Shop, error)
	Update(ctx context.Context, id string, shop domain.Shop) (*domain.Shop, error)
	Delete(ctx context.Context, id string) error
}

// ShopService provides shop operations for the HTTP layer.
type ShopService struct {
	// Repo is the shop repository used by this service.
	Repo ShopRepo
}

// NewShopService constructs a ShopService.
func NewShopService(r ShopRepo) *ShopService {
	return &ShopService{Repo: r}
}

// List returns all shops.
func (s *ShopService) List(ctx context.Context) ([]domain.Shop, error) {
	return s.Repo.GetAll(ctx)
}

// Create validates and inserts a new shop. BusinessName is required.
func (s *ShopService) Create(ctx context.Context, shop domain.Shop) (*domain.Shop, error) {
	shop.BusinessName = normalizeField(shop.BusinessName)
	if shop.BusinessName == "" {
		return nil, ErrEmptyBusinessName
	}
	return s.Repo.Add(ctx, shop)
}

// Update overwrites a shop's fields.
func (s *ShopService) Update(ctx context.Context, id string, shop domain.Shop) (*domain.Shop, error) {
	shop.BusinessName = normalizeField(shop.BusinessName)
	if shop.BusinessName == "" {
		return nil, ErrEmptyBusinessName
	}
	out, err := s.Repo.Update(ctx, id, shop)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrShopNotFound
	}
	return out, err
}

// Delete removes a shop.
func (s *ShopService) Delete(ctx context.Context, id string) error {
	err := s.Repo.Delete(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrShopNotFound
	}
	return err
}
