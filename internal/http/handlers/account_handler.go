package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "apotek/internal/log"
	"apotek/internal/services"
)

// AccountHandler serves the profile page, phone verification and the
// address book.
type AccountHandler struct {
	Profile   *services.ProfileService
	Addresses *services.AddressService
}

type profileInput struct {
	Name  string `json:"name" form:"name"`
	Phone string `json:"phone" form:"phone"`
	Code  string `json:"code" form:"code"`
}

func (h *AccountHandler) Page(c *fiber.Ctx) error {
	addrs, err := h.Addresses.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "profile.load", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"user": currentUser(c), "addresses": addrs})
	}
	return render(c, "profile", fiber.Map{"Addresses": addrs, "OTPHint": h.Profile.OTPHint(), "Msg": c.Query("msg")})
}

func (h *AccountHandler) Update(c *fiber.Ctx) error {
	var in profileInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "profile.update", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	u, err := h.Profile.Update(c.UserContext(), currentUser(c).ID, in.Name, in.Phone)
	if err != nil {
		return fail(c, "profile.update", err, nil)
	}
	applog.Audit(c, "profile.update", map[string]any{"phone_verified": u.PhoneVerified})
	if isAPI(c) {
		return c.JSON(fiber.Map{"user": u})
	}
	return c.Redirect("/profile")
}

func (h *AccountHandler) SendOTP(c *fiber.Ctx) error {
	if err := h.Profile.SendOTP(c.UserContext(), currentUser(c)); err != nil {
		return fail(c, "otp.send", err, nil)
	}
	applog.Info(c, "otp.send", nil)
	if isAPI(c) {
		return c.JSON(fiber.Map{"sent": true, "hint": h.Profile.OTPHint()})
	}
	return c.Redirect("/profile?msg=otp")
}

func (h *AccountHandler) VerifyOTP(c *fiber.Ctx) error {
	var in profileInput
	_ = c.BodyParser(&in)
	if err := h.Profile.VerifyOTP(c.UserContext(), currentUser(c), in.Code); err != nil {
		code, msg := statusOf(err)
		if code == fiber.StatusBadRequest {
			applog.Security(c, "otp.verify.fail", nil)
			// demo provider: the hint carries the accepted code
			if isAPI(c) {
				return c.Status(code).JSON(fiber.Map{"error": msg, "hint": h.Profile.OTPHint()})
			}
			return c.Status(code).Render("notfound", fiber.Map{"Message": msg + ". " + h.Profile.OTPHint()})
		}
		return fail(c, "otp.verify", err, nil)
	}
	applog.Audit(c, "otp.verify", nil)
	if isAPI(c) {
		return c.JSON(fiber.Map{"phone_verified": true})
	}
	return c.Redirect("/profile")
}

func (h *AccountHandler) parseAddress(c *fiber.Ctx) (services.AddressInput, bool, error) {
	var in checkoutInput
	if err := c.BodyParser(&in); err != nil {
		return services.AddressInput{}, false, &services.ValidationError{Field: "body", Msg: "unreadable form"}
	}
	return in.address(), in.IsDefault, nil
}

func (h *AccountHandler) ListAddresses(c *fiber.Ctx) error {
	addrs, err := h.Addresses.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "addresses.list", err, nil)
	}
	return c.JSON(fiber.Map{"addresses": addrs})
}

func (h *AccountHandler) CreateAddress(c *fiber.Ctx) error {
	in, def, err := h.parseAddress(c)
	if err != nil {
		return fail(c, "addresses.create", err, nil)
	}
	a, err := h.Addresses.Create(c.UserContext(), currentUser(c).ID, in, def)
	if err != nil {
		return fail(c, "addresses.create", err, nil)
	}
	applog.Audit(c, "addresses.create", map[string]any{"address_id": a.ID, "default": a.IsDefault})
	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(a)
	}
	return c.Redirect("/profile")
}

func (h *AccountHandler) UpdateAddress(c *fiber.Ctx) error {
	in, _, err := h.parseAddress(c)
	if err != nil {
		return fail(c, "addresses.update", err, nil)
	}
	a, err := h.Addresses.Update(c.UserContext(), currentUser(c).ID, c.Params("id"), in)
	if err != nil {
		return fail(c, "addresses.update", err, map[string]any{"address_id": c.Params("id")})
	}
	applog.Audit(c, "addresses.update", map[string]any{"address_id": a.ID})
	if isAPI(c) {
		return c.JSON(a)
	}
	return c.Redirect("/profile")
}

func (h *AccountHandler) DeleteAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Addresses.Delete(c.UserContext(), currentUser(c).ID, id); err != nil {
		return fail(c, "addresses.delete", err, map[string]any{"address_id": id})
	}
	applog.Audit(c, "addresses.delete", map[string]any{"address_id": id})
	if isAPI(c) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect("/profile")
}

func (h *AccountHandler) SetDefaultAddress(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Addresses.SetDefault(c.UserContext(), currentUser(c).ID, id); err != nil {
		return fail(c, "addresses.default", err, map[string]any{"address_id": id})
	}
	applog.Audit(c, "addresses.default", map[string]any{"address_id": id})
	if isAPI(c) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect("/profile")
}
