package services

import (
	"context"

	"apotek/internal/cart"
	"apotek/internal/repos"
	"apotek/internal/validate"
)

type CartService struct {
	Carts cart.Store
	Prods *repos.ProductRepo
}

func NewCartService(carts cart.Store, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

type CartView struct {
	Lines      []cart.Line `json:"lines"`
	TotalItems int         `json:"total_items"`
	Subtotal   int64       `json:"subtotal"`
}

func viewOf(c cart.Cart) CartView {
	lines := c.Lines
	if lines == nil {
		lines = []cart.Line{}
	}
	return CartView{Lines: lines, TotalItems: c.TotalItems(), Subtotal: c.Subtotal()}
}

// Add snapshots the product from the catalog and merges it into the cart.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, qty int) (CartView, error) {
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return CartView{}, err
	}
	if p.Stock <= 0 {
		return CartView{}, ErrOutOfStock
	}
	if p.RequiresPrescription {
		return CartView{}, ErrPrescriptionOnly
	}
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	c.Add(cart.Line{ProductID: p.ID, Name: p.Name, ImageURL: p.ImageURL, Price: p.Price}, validate.ClampQty(qty))
	if n := c.Quantity(p.ID); n != validate.ClampQty(n) {
		c.UpdateQuantity(p.ID, validate.ClampQty(n))
	}
	if err := s.Carts.Save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return viewOf(c), nil
}

// Update sets a line's quantity; below 1 removes it.
func (s *CartService) Update(ctx context.Context, sessionID, productID string, qty int) (CartView, error) {
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	if qty > 99 {
		qty = 99
	}
	c.UpdateQuantity(productID, qty)
	if err := s.Carts.Save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return viewOf(c), nil
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) (CartView, error) {
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	c.Remove(productID)
	if err := s.Carts.Save(ctx, sessionID, c); err != nil {
		return CartView{}, err
	}
	return viewOf(c), nil
}

func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	return s.Carts.Delete(ctx, sessionID)
}

func (s *CartService) View(ctx context.Context, sessionID string) (CartView, error) {
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return viewOf(c), nil
}
