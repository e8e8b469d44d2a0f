package handlers

import (
	"github.com/gofiber/fiber/v2"

	"apotek/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// Home shows the category tiles and the current best sellers.
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, "home.categories", err, nil)
	}
	best, err := h.Catalog.BestSellers(c.UserContext(), 4)
	if err != nil {
		return fail(c, "home.bestsellers", err, nil)
	}
	return render(c, "home", fiber.Map{"Categories": cats, "BestSellers": best})
}

// List is GET /api/v1/categories.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, "categories.list", err, nil)
	}
	return c.JSON(fiber.Map{"categories": cats})
}
