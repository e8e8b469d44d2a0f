package handlers

import (
	"github.com/gofiber/fiber/v2"

	"apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	Inv     *services.InventoryService
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		log.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "Produk tidak tersedia")
	}
	p, err := h.Catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		if isAPI(c) {
			return fail(c, "product.detail", err, map[string]any{"product_id": id})
		}
		return notFound(c, "Produk tidak tersedia")
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), id)
	if err != nil {
		return fail(c, "product.availability", err, map[string]any{"product_id": id})
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{
			"product":          p,
			"availability":     avail,
			"is_promo":         p.IsPromo(),
			"discount_percent": p.DiscountPercent(),
		})
	}
	return render(c, "product", fiber.Map{"P": p, "Avail": avail})
}
