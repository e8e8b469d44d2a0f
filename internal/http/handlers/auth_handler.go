package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/tokens"
	"apotek/internal/validate"
)

const (
	sidCookie  = "sid"
	csrfCookie = "csrf_"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies(sidCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     sidCookie,
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // true behind TLS
		})
	}
	return sid
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Confirm  string `json:"confirm_password" form:"confirm_password"`
	Token    string `json:"token" form:"token"`
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{"Err": "", "Next": c.Query("next")})
}

func (h *AuthHandler) AdminLoginForm(c *fiber.Ctx) error {
	return render(c, "admin_login", fiber.Map{"Err": ""})
}

func (h *AuthHandler) loginFailed(c *fiber.Ctx, tmpl string, in credentials, reason string, err error) error {
	log.Security(c, "auth.login.fail", map[string]any{"email": in.Email, "reason": reason})
	code, msg := fiber.StatusUnauthorized, "Invalid email or password"
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailNotConfirmed), errors.Is(err, services.ErrAccountBanned):
			code, msg = statusOf(err)
		case errors.Is(err, services.ErrNotAdmin):
			code, msg = fiber.StatusForbidden, "This account has no admin access"
		case !errors.Is(err, services.ErrBadCreds):
			log.Error(c, "auth.login.error", err, nil)
			code, msg = statusOf(err)
		}
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	return c.Status(code).Render(tmpl, fiber.Map{"Err": msg, "CSRFToken": c.Cookies(csrfCookie)})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	return h.login(c, "login", false)
}

// AdminLogin signs in and then checks the admin role; a customer account is
// signed straight back out.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	return h.login(c, "admin_login", true)
}

func (h *AuthHandler) login(c *fiber.Ctx, tmpl string, admin bool) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return h.loginFailed(c, tmpl, in, "bad_body", nil)
	}
	email, ok := validate.Email(in.Email)
	if !ok {
		return h.loginFailed(c, tmpl, in, "bad_format", nil)
	}
	if in.Password == "" {
		return h.loginFailed(c, tmpl, in, "empty_password", nil)
	}

	sid := ensureSID(c)
	login := h.Auth.Login
	if admin {
		login = h.Auth.AdminLogin
	}
	u, err := login(c.UserContext(), sid, email, in.Password)
	if err != nil {
		return h.loginFailed(c, tmpl, in, "rejected", err)
	}

	log.Audit(c, "auth.login.success", map[string]any{"email": email, "admin": admin})
	if isAPI(c) {
		return c.JSON(fiber.Map{"user": u})
	}
	if admin {
		return c.Redirect("/admin")
	}
	if next := c.FormValue("next"); next != "" && next[0] == '/' && (len(next) == 1 || next[1] != '/') {
		return c.Redirect(next)
	}
	return c.Redirect("/")
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := c.Cookies(sidCookie)
	if sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			log.Error(c, "auth.logout", err, nil)
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     sidCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	log.Audit(c, "auth.logout", nil)
	if isAPI(c) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Redirect("/")
}

func (h *AuthHandler) SignupForm(c *fiber.Ctx) error {
	return render(c, "signup", fiber.Map{"Err": ""})
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "auth.signup", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	if in.Confirm != "" && in.Confirm != in.Password {
		return h.signupFailed(c, &services.ValidationError{Field: "confirm_password", Msg: "passwords do not match"})
	}
	u, err := h.Auth.SignUp(c.UserContext(), in.Email, in.Password, in.Name)
	if err != nil {
		return h.signupFailed(c, err)
	}
	log.Audit(c, "auth.signup", map[string]any{"new_user": u.ID})
	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": u, "message": "Check your email to confirm the account"})
	}
	return render(c, "login", fiber.Map{"Info": "Akun dibuat. Cek email Anda untuk konfirmasi."})
}

func (h *AuthHandler) signupFailed(c *fiber.Ctx, err error) error {
	code, msg := statusOf(err)
	if code >= 500 {
		return fail(c, "auth.signup", err, nil)
	}
	log.Security(c, "auth.signup.reject", map[string]any{"reason": err.Error()})
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	return c.Status(code).Render("signup", fiber.Map{"Err": msg, "CSRFToken": c.Cookies(csrfCookie)})
}

// Confirm is the link mailed after sign-up.
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	err := h.Auth.Confirm(c.UserContext(), c.Query("token"))
	if errors.Is(err, tokens.ErrInvalid) {
		log.Security(c, "auth.confirm.invalid", nil)
		return c.Status(fiber.StatusBadRequest).Render("notfound", fiber.Map{"Message": "Link konfirmasi tidak valid atau kedaluwarsa"})
	}
	if err != nil {
		return fail(c, "auth.confirm", err, nil)
	}
	log.Audit(c, "auth.confirm", nil)
	return render(c, "login", fiber.Map{"Info": "Email terkonfirmasi. Silakan masuk."})
}

// RequestReset always answers the same way, whether or not the address has
// an account.
func (h *AuthHandler) RequestReset(c *fiber.Ctx) error {
	var in credentials
	_ = c.BodyParser(&in)
	if email, ok := validate.Email(in.Email); ok {
		if err := h.Auth.RequestReset(c.UserContext(), email); err != nil {
			log.Error(c, "auth.reset.request", err, nil)
		}
	}
	log.Audit(c, "auth.reset.request", nil)
	const msg = "Jika email terdaftar, tautan atur ulang sudah dikirim."
	if isAPI(c) {
		return c.JSON(fiber.Map{"message": msg})
	}
	return render(c, "login", fiber.Map{"Info": msg})
}

func (h *AuthHandler) ResetForm(c *fiber.Ctx) error {
	return render(c, "reset_password", fiber.Map{"Token": c.Query("token")})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "auth.reset", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	if in.Confirm != "" && in.Confirm != in.Password {
		return fail(c, "auth.reset", &services.ValidationError{Field: "confirm_password", Msg: "passwords do not match"}, nil)
	}
	err := h.Auth.ResetPassword(c.UserContext(), in.Token, in.Password)
	if errors.Is(err, tokens.ErrInvalid) {
		err = &services.ValidationError{Field: "token", Msg: "reset link is invalid or expired"}
	}
	if err != nil {
		return fail(c, "auth.reset", err, nil)
	}
	log.Audit(c, "auth.reset", nil)
	if isAPI(c) {
		return c.JSON(fiber.Map{"message": "password updated"})
	}
	return render(c, "login", fiber.Map{"Info": "Kata sandi diperbarui. Silakan masuk."})
}

// Me reports the session user for API clients.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
	}
	return c.JSON(fiber.Map{"user": u, "admin": isAdmin(c)})
}
