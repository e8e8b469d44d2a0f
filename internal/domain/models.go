package domain

import (
	"strings"
	"time"
)

// TimeLayout is fixed-width so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

func Now() string { return time.Now().UTC().Format(TimeLayout) }

func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	// rows written by SQLite's CURRENT_TIMESTAMP
	return time.Parse("2006-01-02 15:04:05", s)
}

type Category struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CategoryAll is the catalog filter key that disables category matching.
const CategoryAll = "all"

type Product struct {
	ID                   string `db:"id" json:"id"`
	Name                 string `db:"name" json:"name"`
	Brand                string `db:"brand" json:"brand"`
	Tags                 string `db:"tags" json:"tags"` // comma separated
	Category             string `db:"category" json:"category"`
	Price                int64  `db:"price" json:"price"`
	OriginalPrice        *int64 `db:"original_price" json:"original_price,omitempty"`
	Stock                int    `db:"stock" json:"stock"`
	Sold                 int    `db:"sold" json:"sold"`
	ImageURL             string `db:"image_url" json:"image_url"`
	Description          string `db:"description" json:"description"`
	RequiresPrescription bool   `db:"requires_prescription" json:"requires_prescription"`
	CreatedAt            string `db:"created_at" json:"created_at"`
	UpdatedAt            string `db:"updated_at" json:"updated_at"`
}

// IsPromo reports whether the product carries a strike-through price.
func (p Product) IsPromo() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// DiscountPercent is rounded down; zero when the product is not on promotion.
func (p Product) DiscountPercent() int {
	if !p.IsPromo() {
		return 0
	}
	return int((*p.OriginalPrice - p.Price) * 100 / *p.OriginalPrice)
}

func (p Product) TagList() []string {
	var out []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type Availability struct {
	Status string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty    int    `json:"qty"`
}

type Order struct {
	ID              string      `db:"id" json:"id"`
	UserID          string      `db:"user_id" json:"user_id"`
	Status          OrderStatus `db:"status" json:"status"`
	TotalAmount     int64       `db:"total_amount" json:"total_amount"`
	ShippingAddress string      `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string      `db:"payment_method" json:"payment_method"`
	CreatedAt       string      `db:"created_at" json:"created_at"`
	StatusUpdatedAt string      `db:"status_updated_at" json:"status_updated_at"`
}

// OrderItem is a denormalized snapshot of the product at purchase time.
type OrderItem struct {
	ID          string `db:"id" json:"id"`
	OrderID     string `db:"order_id" json:"order_id"`
	ProductID   string `db:"product_id" json:"product_id"`
	ProductName string `db:"product_name" json:"product_name"`
	Price       int64  `db:"price" json:"price"`
	Quantity    int    `db:"quantity" json:"quantity"`
}

func (it OrderItem) Subtotal() int64 { return it.Price * int64(it.Quantity) }

type Prescription struct {
	ID              string             `db:"id" json:"id"`
	UserID          string             `db:"user_id" json:"user_id"`
	ImageURL        string             `db:"image_url" json:"image_url"`
	Status          PrescriptionStatus `db:"status" json:"status"`
	Price           *int64             `db:"price" json:"price,omitempty"`
	Notes           string             `db:"notes" json:"notes"`
	PharmacistNotes string             `db:"pharmacist_notes" json:"pharmacist_notes"`
	PaymentMethod   string             `db:"payment_method" json:"payment_method"`
	ShippingAddress string             `db:"shipping_address" json:"shipping_address"`
	CreatedAt       string             `db:"created_at" json:"created_at"`
	UpdatedAt       string             `db:"updated_at" json:"updated_at"`
}

type Address struct {
	ID            string `db:"id" json:"id"`
	UserID        string `db:"user_id" json:"user_id"`
	Label         string `db:"label" json:"label"`
	RecipientName string `db:"recipient_name" json:"recipient_name"`
	Phone         string `db:"phone" json:"phone"`
	AddressLine   string `db:"address_line" json:"address_line"`
	City          string `db:"city" json:"city"`
	Province      string `db:"province" json:"province"`
	PostalCode    string `db:"postal_code" json:"postal_code"`
	IsDefault     bool   `db:"is_default" json:"is_default"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

// Compose renders the free-text shipping address stored on orders and
// prescriptions.
func (a Address) Compose() string {
	return a.Label + " - " + a.AddressLine + ", " + a.City + ", " + a.Province + ", " + a.PostalCode
}

// Payment methods accepted at checkout.
const (
	PaymentTransfer = "transfer"
	PaymentEWallet  = "ewallet"
	PaymentQRIS     = "qris"
	PaymentCOD      = "cod"
)
