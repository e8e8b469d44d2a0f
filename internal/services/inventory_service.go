package services

import (
	"context"
	"errors"

	"apotek/internal/domain"
	"apotek/internal/repos"
)

type InventoryService struct {
	Inv      *repos.InventoryRepo
	LowStock int
}

func NewInventoryService(inv *repos.InventoryRepo, lowStock int) *InventoryService {
	if lowStock <= 0 {
		lowStock = 10
	}
	return &InventoryService{Inv: inv, LowStock: lowStock}
}

// CheckAvailability maps qty to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	qty, err := s.Inv.Qty(ctx, productID)
	if err != nil {
		// Unknown product: nothing to sell.
		if errors.Is(err, repos.ErrNotFound) {
			return domain.Availability{Status: "OUT_OF_STOCK", Qty: 0}, nil
		}
		return domain.Availability{}, err
	}

	status := "OUT_OF_STOCK"
	switch {
	case qty >= s.LowStock:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{Status: status, Qty: qty}, nil
}

func (s *InventoryService) List(ctx context.Context) ([]repos.InventoryRow, error) {
	return s.Inv.ListAll(ctx)
}

func (s *InventoryService) SetQty(ctx context.Context, productID string, qty int) error {
	if qty < 0 || qty > 100000 {
		return invalid("qty", "stock must be between 0 and 100000")
	}
	return s.Inv.SetQty(ctx, productID, qty)
}

func (s *InventoryService) CountLow(ctx context.Context) (int, error) {
	return s.Inv.CountLow(ctx, s.LowStock)
}
