package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "apotek/internal/log"
	"apotek/internal/services"
)

// LoadUser puts the signed-in user (and whether they are an admin) into
// Locals for templates and the guards below. It never rejects.
func LoadUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(sidCookie); sid != "" {
			if u, err := auth.CurrentUser(c.UserContext(), sid); err == nil && u != nil {
				c.Locals("user", u)
				if ok, err := auth.IsAdmin(c.UserContext(), u.ID); err == nil && ok {
					c.Locals("admin", true)
				}
			}
		}
		return c.Next()
	}
}

// RequireUser answers 401 on API paths and redirects pages to the login form.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) == nil {
			if isAPI(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
			}
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := currentUser(c)
		if u == nil {
			if isAPI(c) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
			}
			return c.Redirect("/admin/login")
		}
		if !isAdmin(c) {
			applog.Security(c, "access.denied.admin", map[string]any{"user_id": u.ID})
			if isAPI(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Access denied"})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
		}
		return c.Next()
	}
}
