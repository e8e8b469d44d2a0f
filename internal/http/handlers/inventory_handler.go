package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"apotek/internal/services"
	"apotek/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// Check is GET /api/v1/availability?product_id=...
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	productID := strings.TrimSpace(c.Query("product_id"))
	if productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing product_id"})
	}
	if _, ok := validate.ID(productID); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product_id"})
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), productID)
	if err != nil {
		return fail(c, "availability", err, nil)
	}
	return c.JSON(avail)
}
