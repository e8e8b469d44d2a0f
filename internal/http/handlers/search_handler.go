package handlers

import (
	"github.com/gofiber/fiber/v2"

	"apotek/internal/services"
)

type SearchHandler struct {
	Catalog *services.CatalogService
}

// Search backs both the catalog page and GET /api/v1/products. An empty
// query with category "all" lists the whole catalog.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	q, category := c.Query("q"), c.Query("category")
	products, err := h.Catalog.Search(c.UserContext(), q, category)
	if err != nil {
		code, msg := statusOf(err)
		if code == fiber.StatusBadRequest && !isAPI(c) {
			return c.Status(code).Render("products", fiber.Map{"Q": q, "Err": msg, "Products": nil})
		}
		return fail(c, "search", err, map[string]any{"category": category})
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"products": products, "count": len(products)})
	}
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, "search.categories", err, nil)
	}
	return render(c, "products", fiber.Map{
		"Q": q, "Category": category, "Categories": cats,
		"Products": products, "Count": len(products),
	})
}
