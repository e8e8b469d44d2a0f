// Package cart holds the per-session shopping cart and the stores that keep
// it between requests.
package cart

import (
	"context"
	"errors"
)

// Line is one product in the cart. Name and price are the catalog values at
// the time the product was added; checkout re-prices from the catalog.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url,omitempty"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

func (l Line) Subtotal() int64 { return l.Price * int64(l.Quantity) }

type Cart struct {
	Lines []Line `json:"lines"`
}

// Add merges into an existing line for the same product or appends a new
// one. qty below 1 counts as 1.
func (c *Cart) Add(l Line, qty int) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == l.ProductID {
			c.Lines[i].Quantity += qty
			return
		}
	}
	l.Quantity = qty
	c.Lines = append(c.Lines, l)
}

// UpdateQuantity sets a line's quantity; qty below 1 removes the line.
func (c *Cart) UpdateQuantity(productID string, qty int) {
	if qty < 1 {
		c.Remove(productID)
		return
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Quantity = qty
			return
		}
	}
}

func (c *Cart) Remove(productID string) {
	out := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != productID {
			out = append(out, l)
		}
	}
	c.Lines = out
}

func (c *Cart) Clear() { c.Lines = nil }

func (c Cart) Empty() bool { return len(c.Lines) == 0 }

func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c Cart) Subtotal() int64 {
	var sum int64
	for _, l := range c.Lines {
		sum += l.Subtotal()
	}
	return sum
}

func (c Cart) Quantity(productID string) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// Store keeps carts keyed by session id. Load of an unknown session returns
// an empty cart, not an error.
type Store interface {
	Load(ctx context.Context, sid string) (Cart, error)
	Save(ctx context.Context, sid string, c Cart) error
	Delete(ctx context.Context, sid string) error
}

var ErrNoSession = errors.New("cart: empty session id")
