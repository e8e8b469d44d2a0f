package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/storage"
)

type PrescriptionHandler struct {
	Rx        *services.PrescriptionService
	Checkout  *services.CheckoutService
	Addresses *services.AddressService
}

func (h *PrescriptionHandler) List(c *fiber.Ctx) error {
	list, err := h.Rx.ListMine(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "prescriptions.list", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"prescriptions": list})
	}
	return render(c, "prescriptions", fiber.Map{"List": list})
}

// Upload takes a multipart "image" field and optional "notes".
func (h *PrescriptionHandler) Upload(c *fiber.Ctx) error {
	u := currentUser(c)
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, "prescriptions.upload", &services.ValidationError{Field: "image", Msg: "choose a photo of the prescription"}, nil)
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "prescriptions.upload", err, nil)
	}
	defer f.Close()

	p, err := h.Rx.Upload(c.UserContext(), u, f, c.FormValue("notes"))
	if err != nil {
		return fail(c, "prescriptions.upload", uploadErr(err), map[string]any{"size": fh.Size})
	}
	applog.Audit(c, "prescriptions.upload", map[string]any{"prescription_id": p.ID})
	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(p)
	}
	return c.Redirect("/prescriptions/" + p.ID)
}

// uploadErr turns storage rejections into validation errors.
func uploadErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return &services.ValidationError{Field: "image", Msg: "image is too large"}
	case errors.Is(err, storage.ErrNotImage):
		return &services.ValidationError{Field: "image", Msg: "only JPEG, PNG or WebP images"}
	}
	return err
}

func (h *PrescriptionHandler) View(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.Rx.GetOwned(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return fail(c, "access.prescription", err, map[string]any{"prescription_id": id})
	}
	var quote *services.Quote
	if p.Price != nil {
		q := h.Checkout.QuoteAmount(*p.Price)
		quote = &q
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"prescription": p, "quote": quote, "label": p.Status.Label()})
	}
	addrs, err := h.Addresses.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "prescriptions.addresses", err, nil)
	}
	return render(c, "prescription", fiber.Map{"P": p, "Quote": quote, "Addresses": addrs})
}

// Pay is the customer's checkout for a quoted prescription.
func (h *PrescriptionHandler) Pay(c *fiber.Ctx) error {
	id := c.Params("id")
	in, err := parseCheckout(c)
	if err != nil {
		return fail(c, "prescriptions.pay", err, nil)
	}
	p, q, err := h.Checkout.PayPrescription(c.UserContext(), currentUser(c), id, in.address(), in.PaymentMethod)
	if err != nil {
		return fail(c, "prescriptions.pay", err, map[string]any{"prescription_id": id})
	}
	applog.Audit(c, "prescriptions.pay", map[string]any{"prescription_id": id, "total": q.Total, "method": p.PaymentMethod})
	pi := services.InstructionsFor(p.PaymentMethod, q.Total)
	if isAPI(c) {
		return c.JSON(fiber.Map{"prescription": p, "quote": q, "instructions": pi})
	}
	return c.Redirect("/prescriptions/" + p.ID)
}
