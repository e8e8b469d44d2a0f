package handlers

import (
	"github.com/gofiber/fiber/v2"

	"apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/validate"
)

type CartHandler struct {
	Cart     *services.CartService
	Checkout *services.CheckoutService
}

type cartInput struct {
	ProductID string `json:"product_id" form:"product_id"`
	Qty       int    `json:"qty" form:"qty"`
}

func (h *CartHandler) respond(c *fiber.Ctx, cv services.CartView) error {
	q := h.Checkout.QuoteAmount(cv.Subtotal)
	if isAPI(c) {
		return c.JSON(fiber.Map{"cart": cv, "quote": q})
	}
	return render(c, "cart", fiber.Map{"Cart": cv, "Quote": q})
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		return fail(c, "cart.view", err, nil)
	}
	return h.respond(c, cv)
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var in cartInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "cart.add", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	id, ok := validate.ID(in.ProductID)
	if !ok {
		return fail(c, "cart.add", &services.ValidationError{Field: "product_id", Msg: "missing product"}, nil)
	}
	cv, err := h.Cart.Add(c.UserContext(), sid, id, validate.ClampQty(in.Qty))
	if err != nil {
		return fail(c, "cart.add", err, map[string]any{"product_id": id})
	}
	log.Info(c, "cart.add", map[string]any{"product_id": id, "qty": in.Qty})
	if !isAPI(c) {
		return c.Redirect("/cart")
	}
	return h.respond(c, cv)
}

// Update sets a quantity; zero or less drops the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var in cartInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "cart.update", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	if in.ProductID == "" {
		in.ProductID = c.Params("id")
	}
	cv, err := h.Cart.Update(c.UserContext(), sid, in.ProductID, in.Qty)
	if err != nil {
		return fail(c, "cart.update", err, nil)
	}
	if !isAPI(c) {
		return c.Redirect("/cart")
	}
	return h.respond(c, cv)
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	id := c.Params("id")
	if id == "" {
		id = c.FormValue("product_id")
	}
	cv, err := h.Cart.Remove(c.UserContext(), sid, id)
	if err != nil {
		return fail(c, "cart.remove", err, nil)
	}
	if !isAPI(c) {
		return c.Redirect("/cart")
	}
	return h.respond(c, cv)
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	sid := ensureSID(c)
	if err := h.Cart.Clear(c.UserContext(), sid); err != nil {
		return fail(c, "cart.clear", err, nil)
	}
	if !isAPI(c) {
		return c.Redirect("/cart")
	}
	cv, err := h.Cart.View(c.UserContext(), sid)
	if err != nil {
		return fail(c, "cart.view", err, nil)
	}
	return h.respond(c, cv)
}
