package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"apotek/internal/domain"
	applog "apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/tracking"
)

// streamLimit bounds one live tracking connection.
const streamLimit = 10 * time.Minute

type OrderHandler struct {
	Cart      *services.CartService
	Checkout  *services.CheckoutService
	Orders    *services.OrderService
	Addresses *services.AddressService
	Profile   *services.ProfileService
}

// checkoutInput is the checkout and address-book form: either saved_id or
// a typed address, plus the payment method.
type checkoutInput struct {
	SavedID       string `json:"saved_id" form:"saved_id"`
	Label         string `json:"label" form:"label"`
	RecipientName string `json:"recipient_name" form:"recipient_name"`
	Phone         string `json:"phone" form:"phone"`
	AddressLine   string `json:"address_line" form:"address_line"`
	City          string `json:"city" form:"city"`
	Province      string `json:"province" form:"province"`
	PostalCode    string `json:"postal_code" form:"postal_code"`
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	IsDefault     bool   `json:"is_default" form:"is_default"`
}

func (in checkoutInput) address() services.AddressInput {
	return services.AddressInput{
		SavedID:       in.SavedID,
		Label:         in.Label,
		RecipientName: in.RecipientName,
		Phone:         in.Phone,
		AddressLine:   in.AddressLine,
		City:          in.City,
		Province:      in.Province,
		PostalCode:    in.PostalCode,
	}
}

func parseCheckout(c *fiber.Ctx) (checkoutInput, error) {
	var in checkoutInput
	if err := c.BodyParser(&in); err != nil {
		return in, &services.ValidationError{Field: "body", Msg: "unreadable form"}
	}
	return in, nil
}

// CheckoutPage shows the cart, the quote and the saved addresses.
func (h *OrderHandler) CheckoutPage(c *fiber.Ctx) error {
	u := currentUser(c)
	sid := ensureSID(c)
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		return fail(c, "checkout.load", err, nil)
	}
	if len(cv.Lines) == 0 {
		return c.Redirect("/cart")
	}
	addrs, err := h.Addresses.List(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, "checkout.addresses", err, nil)
	}
	return render(c, "checkout", fiber.Map{
		"Cart":      cv,
		"Quote":     h.Checkout.QuoteAmount(cv.Subtotal),
		"Addresses": addrs,
		"OTPHint":   h.Profile.OTPHint(),
	})
}

// Quote is GET /api/v1/checkout/quote.
func (h *OrderHandler) Quote(c *fiber.Ctx) error {
	q, err := h.Checkout.QuoteCart(c.UserContext(), ensureSID(c))
	if err != nil {
		return fail(c, "checkout.quote", err, nil)
	}
	return c.JSON(q)
}

func (h *OrderHandler) Place(c *fiber.Ctx) error {
	u := currentUser(c)
	sid := ensureSID(c)
	in, err := parseCheckout(c)
	if err != nil {
		return fail(c, "order.place", err, nil)
	}
	order, items, err := h.Checkout.PlaceCartOrder(c.UserContext(), u, sid, in.address(), in.PaymentMethod)
	if err != nil {
		return fail(c, "order.place", err, map[string]any{"method": in.PaymentMethod})
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": order.ID,
		"total":    order.TotalAmount,
		"method":   order.PaymentMethod,
		"lines":    len(items),
	})
	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order":        order,
			"items":        items,
			"instructions": services.InstructionsFor(order.PaymentMethod, order.TotalAmount),
		})
	}
	return c.Redirect("/orders/" + order.ID)
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	id := c.Params("id")
	o, items, err := h.Orders.Get(c.UserContext(), currentUser(c), isAdmin(c), id)
	if err != nil {
		return fail(c, "access.order", err, map[string]any{"order_id": id})
	}
	pi := services.InstructionsFor(o.PaymentMethod, o.TotalAmount)
	if isAPI(c) {
		return c.JSON(fiber.Map{"order": o, "items": items, "instructions": pi, "label": o.Status.Label()})
	}
	return render(c, "order", fiber.Map{"Order": o, "Items": items, "Instructions": pi})
}

// History lists the user's orders and prescriptions together.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u := currentUser(c)
	entries, err := h.Orders.History(c.UserContext(), u.ID)
	if err != nil {
		return fail(c, "orders.history", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"history": entries})
	}
	return render(c, "history", fiber.Map{"Entries": entries})
}

func (h *OrderHandler) Tracking(c *fiber.Ctx) error {
	id := c.Params("id")
	tr, err := h.Orders.Track(c.UserContext(), currentUser(c), isAdmin(c), id)
	if err != nil {
		return fail(c, "access.tracking", err, map[string]any{"order_id": id})
	}
	if isAPI(c) {
		return c.JSON(tr)
	}
	return render(c, "tracking", fiber.Map{"T": tr})
}

// TrackingStream sends the courier progress as server-sent events. Only a
// shipped order keeps moving; anything else gets one event and the stream
// ends.
func (h *OrderHandler) TrackingStream(c *fiber.Ctx) error {
	id := c.Params("id")
	sim, err := h.Orders.Follow(c.UserContext(), currentUser(c), isAdmin(c), id)
	if err != nil {
		return fail(c, "access.tracking", err, map[string]any{"order_id": id})
	}
	interval := h.Orders.TrackInterval
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// the request context is recycled once the handler returns
		ctx, cancel := context.WithTimeout(context.Background(), streamLimit)
		defer cancel()
		first := sim.Snapshot()
		if err := writeEvent(w, first); err != nil || first.Status != domain.OrderShipped {
			return
		}
		sim.Run(ctx, interval, func(s tracking.Snapshot) {
			if err := writeEvent(w, s); err != nil {
				cancel()
			}
		})
	})
	return nil
}

func writeEvent(w *bufio.Writer, s tracking.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}
