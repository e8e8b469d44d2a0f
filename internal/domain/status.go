package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderAliases = map[string]OrderStatus{
	"pending":    OrderPending,
	"menunggu":   OrderPending,
	"paid":       OrderPending,
	"processing": OrderProcessing,
	"diproses":   OrderProcessing,
	"dikemas":    OrderProcessing,
	"shipped":    OrderShipped,
	"dikirim":    OrderShipped,
	"otw":        OrderShipped,
	"delivered":  OrderDelivered,
	"selesai":    OrderDelivered,
	"success":    OrderDelivered,
	"tiba":       OrderDelivered,
	"cancelled":  OrderCancelled,
	"canceled":   OrderCancelled,
	"dibatalkan": OrderCancelled,
}

// NormalizeOrderStatus maps any stored spelling onto the closed set.
// Unknown values fall back to pending.
func NormalizeOrderStatus(raw string) OrderStatus {
	if s, ok := orderAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return OrderPending
}

// ParseOrderStatus is the strict variant used for operator input.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s, ok := orderAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

var orderNext = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// Next lists the statuses an operator may move the order to.
func (s OrderStatus) Next() []OrderStatus { return orderNext[s] }

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, n := range orderNext[s] {
		if n == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool { return len(orderNext[s]) == 0 }

func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Menunggu Konfirmasi"
	case OrderProcessing:
		return "Diproses"
	case OrderShipped:
		return "Dikirim"
	case OrderDelivered:
		return "Selesai"
	case OrderCancelled:
		return "Dibatalkan"
	}
	return string(s)
}

func (s *OrderStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("order status: %w", err)
	}
	*s = NormalizeOrderStatus(raw)
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) { return string(s), nil }

// Aliases lists the stored spellings that read as s.
func (s OrderStatus) Aliases() []string { return spellings(orderAliases, s, true) }

// OtherAliases lists the known spellings that read as anything but s.
func (s OrderStatus) OtherAliases() []string { return spellings(orderAliases, s, false) }

// Fallback reports whether unknown spellings read as s.
func (s OrderStatus) Fallback() bool { return s == OrderPending }

type PrescriptionStatus string

const (
	PrescriptionPending    PrescriptionStatus = "pending"
	PrescriptionProcessing PrescriptionStatus = "processing"
	PrescriptionPaid       PrescriptionStatus = "paid"
	PrescriptionCompleted  PrescriptionStatus = "completed"
	PrescriptionRejected   PrescriptionStatus = "rejected"
)

var prescriptionAliases = map[string]PrescriptionStatus{
	"pending":    PrescriptionPending,
	"menunggu":   PrescriptionPending,
	"processing": PrescriptionProcessing,
	"diproses":   PrescriptionProcessing,
	"approved":   PrescriptionProcessing,
	"paid":       PrescriptionPaid,
	"dibayar":    PrescriptionPaid,
	"completed":  PrescriptionCompleted,
	"selesai":    PrescriptionCompleted,
	"rejected":   PrescriptionRejected,
	"ditolak":    PrescriptionRejected,
}

func NormalizePrescriptionStatus(raw string) PrescriptionStatus {
	if s, ok := prescriptionAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return PrescriptionPending
}

func ParsePrescriptionStatus(raw string) (PrescriptionStatus, bool) {
	s, ok := prescriptionAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// processing -> paid is driven by the customer's checkout; every other edge
// is an admin action.
var prescriptionNext = map[PrescriptionStatus][]PrescriptionStatus{
	PrescriptionPending:    {PrescriptionProcessing, PrescriptionRejected},
	PrescriptionProcessing: {PrescriptionPaid},
	PrescriptionPaid:       {PrescriptionCompleted},
	PrescriptionCompleted:  {},
	PrescriptionRejected:   {},
}

func (s PrescriptionStatus) CanTransition(to PrescriptionStatus) bool {
	for _, n := range prescriptionNext[s] {
		if n == to {
			return true
		}
	}
	return false
}

// AdminActions lists the transitions offered to staff from s.
func (s PrescriptionStatus) AdminActions() []PrescriptionStatus {
	var out []PrescriptionStatus
	for _, n := range prescriptionNext[s] {
		if n != PrescriptionPaid {
			out = append(out, n)
		}
	}
	return out
}

func (s PrescriptionStatus) Terminal() bool { return len(prescriptionNext[s]) == 0 }

func (s PrescriptionStatus) Label() string {
	switch s {
	case PrescriptionPending:
		return "Menunggu Verifikasi"
	case PrescriptionProcessing:
		return "Menunggu Pembayaran"
	case PrescriptionPaid:
		return "Dibayar"
	case PrescriptionCompleted:
		return "Selesai"
	case PrescriptionRejected:
		return "Ditolak"
	}
	return string(s)
}

func (s *PrescriptionStatus) Scan(src any) error {
	raw, err := scanString(src)
	if err != nil {
		return fmt.Errorf("prescription status: %w", err)
	}
	*s = NormalizePrescriptionStatus(raw)
	return nil
}

func (s PrescriptionStatus) Value() (driver.Value, error) { return string(s), nil }

func (s PrescriptionStatus) Aliases() []string { return spellings(prescriptionAliases, s, true) }

func (s PrescriptionStatus) OtherAliases() []string {
	return spellings(prescriptionAliases, s, false)
}

func (s PrescriptionStatus) Fallback() bool { return s == PrescriptionPending }

func spellings[S comparable](aliases map[string]S, s S, same bool) []string {
	out := []string{}
	for raw, v := range aliases {
		if (v == s) == same {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

func scanString(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unsupported type %T", src)
}
