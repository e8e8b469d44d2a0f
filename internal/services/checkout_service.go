package services

import (
	"context"
	"errors"

	"apotek/internal/cart"
	"apotek/internal/domain"
	"apotek/internal/events"
	applog "apotek/internal/log"
	"apotek/internal/repos"
	"apotek/internal/validate"
)

type CheckoutService struct {
	Carts         cart.Store
	Orders        *repos.OrderRepo
	Prescriptions *repos.PrescriptionRepo
	Addresses     *AddressService
	Events        events.Publisher

	DeliveryFee int64
	CODLimit    int64
}

type Quote struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Total       int64 `json:"total"`
	CODAllowed  bool  `json:"cod_allowed"`
}

// QuoteAmount adds the flat delivery fee. COD is allowed strictly below the
// limit.
func (s *CheckoutService) QuoteAmount(subtotal int64) Quote {
	total := subtotal + s.DeliveryFee
	return Quote{Subtotal: subtotal, DeliveryFee: s.DeliveryFee, Total: total, CODAllowed: s.codAllowed(total)}
}

func (s *CheckoutService) codAllowed(total int64) bool { return total < s.CODLimit }

func (s *CheckoutService) QuoteCart(ctx context.Context, sessionID string) (Quote, error) {
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return Quote{}, err
	}
	return s.QuoteAmount(c.Subtotal()), nil
}

type PaymentInstructions struct {
	Method  string   `json:"method"`
	Title   string   `json:"title"`
	Account string   `json:"account,omitempty"`
	Holder  string   `json:"holder,omitempty"`
	Notes   []string `json:"notes"`
	Total   int64    `json:"total"`
}

// InstructionsFor returns the simulated payment details shown after
// checkout. Nothing is charged anywhere.
func InstructionsFor(method string, total int64) PaymentInstructions {
	pi := PaymentInstructions{Method: method, Total: total}
	switch method {
	case domain.PaymentTransfer:
		pi.Title = "Transfer Bank (BCA / Mandiri / BRI)"
		pi.Account, pi.Holder = "123 456 7890", "PT MedicGo Indonesia"
		pi.Notes = []string{"Transfer sesuai total hingga digit terakhir.", "Pesanan diproses setelah pembayaran terverifikasi."}
	case domain.PaymentEWallet:
		pi.Title = "E-Wallet (GoPay / OVO / DANA)"
		pi.Account, pi.Holder = "0812 3456 7890", "MedicGo Official"
		pi.Notes = []string{"Transfer ke nomor di atas."}
	case domain.PaymentQRIS:
		pi.Title = "QRIS"
		pi.Notes = []string{"Scan QR Code pada halaman pembayaran.", "Mendukung GoPay, OVO, DANA, ShopeePay, BCA Mobile, dll."}
	case domain.PaymentCOD:
		pi.Title = "Bayar di Tempat (COD)"
		pi.Notes = []string{"Siapkan uang pas saat kurir datang."}
	}
	return pi
}

func (s *CheckoutService) precheck(u *domain.User, method string) (string, error) {
	if u == nil {
		return "", ErrNotOwner
	}
	if !u.PhoneVerified {
		return "", ErrPhoneNotVerified
	}
	m, ok := validate.PaymentMethod(method)
	if !ok {
		return "", invalid("payment_method", "choose transfer, ewallet, qris or cod")
	}
	return m, nil
}

// PlaceCartOrder turns the session cart into an order. The order row, its
// items and the stock/sold updates commit together or not at all; the cart
// is cleared only after the commit.
func (s *CheckoutService) PlaceCartOrder(ctx context.Context, u *domain.User, sessionID string, addr AddressInput, method string) (domain.Order, []domain.OrderItem, error) {
	method, err := s.precheck(u, method)
	if err != nil {
		return domain.Order{}, nil, err
	}
	c, err := s.Carts.Load(ctx, sessionID)
	if err != nil {
		return domain.Order{}, nil, err
	}
	if c.Empty() {
		return domain.Order{}, nil, ErrCartEmpty
	}
	shipTo, err := s.Addresses.Compose(ctx, u.ID, addr)
	if err != nil {
		return domain.Order{}, nil, err
	}

	in := repos.NewOrder{
		UserID:          u.ID,
		ShippingAddress: shipTo,
		PaymentMethod:   method,
		DeliveryFee:     s.DeliveryFee,
	}
	for _, l := range c.Lines {
		in.Lines = append(in.Lines, repos.LineInput{ProductID: l.ProductID, Qty: l.Quantity})
	}
	order, items, err := s.Orders.Place(ctx, in, func(total int64) error {
		if method == domain.PaymentCOD && !s.codAllowed(total) {
			return ErrCODNotAllowed
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, nil, err
	}

	if err := s.Carts.Delete(ctx, sessionID); err != nil {
		applog.Bg("cart_clear", err, map[string]any{"order_id": order.ID})
	}
	payload := events.OrderCreatedPayload{OrderID: order.ID, UserID: u.ID, Total: order.TotalAmount, PaymentMethod: method}
	for _, it := range items {
		payload.Items = append(payload.Items, events.ItemLine{ProductID: it.ProductID, Name: it.ProductName, Qty: it.Quantity, Price: it.Price})
	}
	events.Emit(ctx, s.Events, events.OrderCreated, order.ID, payload)
	return order, items, nil
}

// PayPrescription settles a quoted prescription: processing -> paid, with
// the payment method and shipping address recorded.
func (s *CheckoutService) PayPrescription(ctx context.Context, u *domain.User, prescriptionID string, addr AddressInput, method string) (domain.Prescription, Quote, error) {
	method, err := s.precheck(u, method)
	if err != nil {
		return domain.Prescription{}, Quote{}, err
	}
	p, err := s.Prescriptions.Get(ctx, prescriptionID)
	if err != nil {
		return domain.Prescription{}, Quote{}, err
	}
	if p.UserID != u.ID {
		return domain.Prescription{}, Quote{}, ErrNotOwner
	}
	if !p.Status.CanTransition(domain.PrescriptionPaid) || p.Price == nil {
		return domain.Prescription{}, Quote{}, ErrInvalidTransition
	}
	q := s.QuoteAmount(*p.Price)
	if method == domain.PaymentCOD && !q.CODAllowed {
		return domain.Prescription{}, Quote{}, ErrCODNotAllowed
	}
	shipTo, err := s.Addresses.Compose(ctx, u.ID, addr)
	if err != nil {
		return domain.Prescription{}, Quote{}, err
	}

	paid, err := s.Prescriptions.MarkPaid(ctx, p.ID, method, shipTo)
	if errors.Is(err, repos.ErrStale) {
		return domain.Prescription{}, Quote{}, ErrInvalidTransition
	}
	if err != nil {
		return domain.Prescription{}, Quote{}, err
	}
	events.Emit(ctx, s.Events, events.PrescriptionStatusChanged, p.ID, events.StatusChangedPayload{
		ID: p.ID, UserID: u.ID, From: string(p.Status), To: string(paid.Status), ActorID: u.ID,
	})
	return paid, q, nil
}
