package handlers

import (
	"github.com/gofiber/fiber/v2"

	"apotek/internal/domain"
	applog "apotek/internal/log"
	"apotek/internal/services"
	"apotek/internal/validate"
)

type AdminHandler struct {
	Dashboard *services.DashboardService
	Orders    *services.OrderService
	Rx        *services.PrescriptionService
	Catalog   *services.CatalogService
	Inv       *services.InventoryService
	Profile   *services.ProfileService
}

// answer sends v on the admin API and redirects admin pages back to back.
func answer(c *fiber.Ctx, v any, back string) error {
	if isAPI(c) {
		return c.JSON(v)
	}
	return c.Redirect(back)
}

// GET /admin
func (h *AdminHandler) DashboardPage(c *fiber.Ctx) error {
	sum, err := h.Dashboard.Summary(c.UserContext())
	if err != nil {
		return fail(c, "admin.dashboard", err, nil)
	}
	if isAPI(c) {
		return c.JSON(sum)
	}
	return render(c, "admin_dashboard", fiber.Map{"S": sum})
}

// Counters is polled by the admin sidebar badges.
func (h *AdminHandler) Counters(c *fiber.Ctx) error {
	ct, err := h.Dashboard.Counters(c.UserContext())
	if err != nil {
		return fail(c, "admin.counters", err, nil)
	}
	return c.JSON(fiber.Map{"counters": ct, "total": ct.Total()})
}

// ---------- Orders ----------

func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	status := c.Query("status")
	ords, err := h.Orders.AdminList(c.UserContext(), status)
	if err != nil {
		return fail(c, "admin.orders.list", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"orders": ords})
	}
	return render(c, "admin_orders", fiber.Map{"Orders": ords, "Status": status})
}

func (h *AdminHandler) OrderDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	o, items, err := h.Orders.Get(c.UserContext(), currentUser(c), true, id)
	if err != nil {
		return fail(c, "admin.orders.get", err, map[string]any{"order_id": id})
	}
	return c.JSON(fiber.Map{"order": o, "items": items, "next": o.Status.Next()})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var in struct {
		Status string `json:"status" form:"status"`
	}
	_ = c.BodyParser(&in)
	o, err := h.Orders.SetStatus(c.UserContext(), currentUser(c), id, in.Status)
	if err != nil {
		return fail(c, "admin.orders.update", err, map[string]any{"order_id": id, "status": in.Status})
	}
	applog.Audit(c, "admin.orders.update", map[string]any{"order_id": id, "status": o.Status})
	return answer(c, o, "/admin/orders")
}

// ---------- Prescriptions ----------

func (h *AdminHandler) PrescriptionsPage(c *fiber.Ctx) error {
	status := c.Query("status")
	list, err := h.Rx.List(c.UserContext(), status)
	if err != nil {
		return fail(c, "admin.prescriptions.list", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"prescriptions": list})
	}
	return render(c, "admin_prescriptions", fiber.Map{"List": list, "Status": status})
}

type moderationInput struct {
	Price int64  `json:"price" form:"price"`
	Notes string `json:"notes" form:"notes"`
}

func (h *AdminHandler) QuotePrescription(c *fiber.Ctx) error {
	id := c.Params("id")
	var in moderationInput
	_ = c.BodyParser(&in)
	p, err := h.Rx.Quote(c.UserContext(), currentUser(c), id, in.Price, in.Notes)
	if err != nil {
		return fail(c, "admin.prescriptions.quote", err, map[string]any{"prescription_id": id})
	}
	applog.Audit(c, "admin.prescriptions.quote", map[string]any{"prescription_id": id, "price": in.Price})
	return answer(c, p, "/admin/prescriptions")
}

func (h *AdminHandler) RejectPrescription(c *fiber.Ctx) error {
	id := c.Params("id")
	var in moderationInput
	_ = c.BodyParser(&in)
	p, err := h.Rx.Reject(c.UserContext(), currentUser(c), id, in.Notes)
	if err != nil {
		return fail(c, "admin.prescriptions.reject", err, map[string]any{"prescription_id": id})
	}
	applog.Audit(c, "admin.prescriptions.reject", map[string]any{"prescription_id": id})
	return answer(c, p, "/admin/prescriptions")
}

func (h *AdminHandler) CompletePrescription(c *fiber.Ctx) error {
	id := c.Params("id")
	p, err := h.Rx.Complete(c.UserContext(), currentUser(c), id)
	if err != nil {
		return fail(c, "admin.prescriptions.complete", err, map[string]any{"prescription_id": id})
	}
	applog.Audit(c, "admin.prescriptions.complete", map[string]any{"prescription_id": id})
	return answer(c, p, "/admin/prescriptions")
}

// ---------- Products & stock ----------

func (h *AdminHandler) ProductsPage(c *fiber.Ctx) error {
	rows, err := h.Inv.List(c.UserContext())
	if err != nil {
		return fail(c, "admin.inventory.list", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"products": rows, "low_stock_threshold": h.Inv.LowStock})
	}
	cats, err := h.Catalog.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, "admin.categories", err, nil)
	}
	return render(c, "admin_products", fiber.Map{"Rows": rows, "Categories": cats, "LowStock": h.Inv.LowStock})
}

func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "admin.products.create", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), in)
	if err != nil {
		return fail(c, "admin.products.create", err, nil)
	}
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID})
	if isAPI(c) {
		return c.Status(fiber.StatusCreated).JSON(p)
	}
	return c.Redirect("/admin/products")
}

func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "admin.products.update", &services.ValidationError{Field: "body", Msg: "unreadable form"}, nil)
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return fail(c, "admin.products.update", err, map[string]any{"product_id": id})
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product_id": id})
	return answer(c, p, "/admin/products")
}

func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.Catalog.DeleteProduct(c.UserContext(), id); err != nil {
		return fail(c, "admin.products.delete", err, map[string]any{"product_id": id})
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return answer(c, fiber.Map{"deleted": id}, "/admin/products")
}

// UploadImage takes a multipart "image" of at most 2 MiB.
func (h *AdminHandler) UploadImage(c *fiber.Ctx) error {
	id := c.Params("id")
	fh, err := c.FormFile("image")
	if err != nil {
		return fail(c, "admin.products.image", &services.ValidationError{Field: "image", Msg: "missing image"}, nil)
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, "admin.products.image", err, nil)
	}
	defer f.Close()
	url, err := h.Catalog.UploadImage(c.UserContext(), id, f)
	if err != nil {
		return fail(c, "admin.products.image", uploadErr(err), map[string]any{"product_id": id, "size": fh.Size})
	}
	applog.Audit(c, "admin.products.image", map[string]any{"product_id": id})
	return answer(c, fiber.Map{"image_url": url}, "/admin/products")
}

// POST /admin/inventory
func (h *AdminHandler) UpdateStock(c *fiber.Ctx) error {
	var in struct {
		ProductID string `json:"product_id" form:"product_id"`
		Qty       int    `json:"qty" form:"qty"`
	}
	if err := c.BodyParser(&in); err != nil {
		return fail(c, "admin.inventory.save", &services.ValidationError{Field: "qty", Msg: "invalid input"}, nil)
	}
	pid, ok := validate.ID(in.ProductID)
	if !ok {
		return fail(c, "admin.inventory.save", &services.ValidationError{Field: "product_id", Msg: "invalid input"}, nil)
	}
	qty := in.Qty
	if err := h.Inv.SetQty(c.UserContext(), pid, qty); err != nil {
		return fail(c, "admin.inventory.save", err, map[string]any{"product": pid, "qty": qty})
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"product": pid, "qty": qty})
	return answer(c, fiber.Map{"product_id": pid, "stock": qty}, "/admin/products")
}

// ---------- Users ----------

func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Profile.ListUsers(c.UserContext())
	if err != nil {
		return fail(c, "admin.users.list", err, nil)
	}
	if isAPI(c) {
		return c.JSON(fiber.Map{"users": users})
	}
	return render(c, "admin_users", fiber.Map{
		"Users":    users,
		"Statuses": []string{domain.UserActive, domain.UserInactive, domain.UserBanned},
	})
}

func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var in struct {
		Status string `json:"status" form:"status"`
	}
	_ = c.BodyParser(&in)
	if err := h.Profile.SetUserStatus(c.UserContext(), currentUser(c), id, in.Status); err != nil {
		return fail(c, "admin.users.status", err, map[string]any{"target": id})
	}
	applog.Audit(c, "admin.users.status", map[string]any{"target": id, "status": in.Status})
	return answer(c, fiber.Map{"id": id, "status": in.Status}, "/admin/users")
}
