package handlers

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	applog "apotek/internal/log"
	"apotek/internal/storage"
)

// Options are the knobs main and the handler tests turn differently.
type Options struct {
	TemplatesDir string
	StaticDir    string
	MediaDir     string

	LoginRateMax  int // attempts per 10 minutes per IP
	GlobalRateMax int // requests per minute per IP, 0 disables
	BodyLimit     int
	ReloadViews   bool
	AccessLog     bool
}

const csrfHeader = "X-Csrf-Token"

var errNoCSRFToken = errors.New("missing csrf token")

// csrfToken reads the header first (fetch/XHR) and falls back to the
// "csrf" form field (plain forms and multipart uploads).
func csrfToken(c *fiber.Ctx) (string, error) {
	if tok := c.Get(csrfHeader); tok != "" {
		return tok, nil
	}
	if tok := c.FormValue("csrf"); tok != "" {
		return tok, nil
	}
	return "", errNoCSRFToken
}

// ErrorHandler answers anything a handler returned unhandled. 5xx details
// are logged and replaced by a generic message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, msg := fiber.StatusInternalServerError, "Something went wrong. Please try again."
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < 500 {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// New builds the fiber app with every middleware and route mounted.
func New(d *Deps, opts Options) *fiber.App {
	engine := NewEngine(opts.TemplatesDir)
	engine.Reload(opts.ReloadViews)

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: ErrorHandler,
	})
	limit := opts.BodyLimit
	if limit <= 0 {
		limit = 6 << 20 // a 5 MiB prescription photo plus form fields
	}
	app.Server().MaxRequestBodySize = limit

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if opts.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New())
	app.Use(LoadUser(d.Auth))
	if opts.GlobalRateMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.GlobalRateMax,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/media/")
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		Extractor:      csrfToken,
		ContextKey:     "csrf",
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			if isAPI(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid csrf token"})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	if opts.StaticDir != "" {
		app.Static("/static", opts.StaticDir)
	}
	mediaDir := opts.MediaDir
	if !filepath.IsAbs(mediaDir) {
		if abs, err := filepath.Abs(mediaDir); err == nil {
			mediaDir = abs
		}
	}
	app.Get("/media/*", mediaHandler(mediaDir))

	loginLimiter := limiter.New(limiter.Config{
		Max:        max(opts.LoginRateMax, 1),
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			const msg = "Too many attempts. Please try again later."
			if isAPI(c) {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": msg})
			}
			tmpl := "login"
			if strings.HasPrefix(c.Path(), "/admin") {
				tmpl = "admin_login"
			}
			return c.Status(fiber.StatusTooManyRequests).Render(tmpl, fiber.Map{"Err": msg, "CSRFToken": c.Locals("CSRFToken")})
		},
	})
	searchLimiter := limiter.New(limiter.Config{Max: 30, Expiration: time.Minute})
	availLimiter := limiter.New(limiter.Config{
		Max:        15,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|avail"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.availability.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})

	auth := d.AuthHandler
	user := RequireUser()

	// ---------- Public pages ----------
	app.Get("/", d.CategoryHandler.Home)
	app.Get("/products", searchLimiter, d.SearchHandler.Search)
	app.Get("/products/:id", d.ProductHandler.Detail)

	app.Get("/login", auth.LoginForm)
	app.Post("/login", loginLimiter, auth.Login)
	app.Post("/logout", auth.Logout)
	app.Get("/signup", auth.SignupForm)
	app.Post("/signup", auth.Signup)
	app.Get("/confirm", auth.Confirm)
	app.Post("/password/forgot", auth.RequestReset)
	app.Get("/password/reset", auth.ResetForm)
	app.Post("/password/reset", auth.ResetPassword)

	// Cart works for guests; the sid cookie identifies it.
	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Post("/cart/update", d.CartHandler.Update)
	app.Post("/cart/remove", d.CartHandler.Remove)
	app.Post("/cart/clear", d.CartHandler.Clear)

	// ---------- Signed-in pages ----------
	app.Get("/checkout", user, d.OrderHandler.CheckoutPage)
	app.Post("/orders", user, d.OrderHandler.Place)
	app.Get("/orders", user, d.OrderHandler.History)
	app.Get("/orders/:id", user, d.OrderHandler.View)
	app.Get("/orders/:id/tracking", user, d.OrderHandler.Tracking)

	app.Get("/prescriptions", user, d.PrescriptionHandler.List)
	app.Post("/prescriptions", user, d.PrescriptionHandler.Upload)
	app.Get("/prescriptions/:id", user, d.PrescriptionHandler.View)
	app.Post("/prescriptions/:id/pay", user, d.PrescriptionHandler.Pay)

	app.Get("/profile", user, d.AccountHandler.Page)
	app.Post("/profile", user, d.AccountHandler.Update)
	app.Post("/profile/otp", user, d.AccountHandler.SendOTP)
	app.Post("/profile/verify", user, d.AccountHandler.VerifyOTP)
	app.Post("/addresses", user, d.AccountHandler.CreateAddress)
	app.Post("/addresses/:id", user, d.AccountHandler.UpdateAddress)
	app.Post("/addresses/:id/delete", user, d.AccountHandler.DeleteAddress)
	app.Post("/addresses/:id/default", user, d.AccountHandler.SetDefaultAddress)

	// ---------- JSON API ----------
	api := app.Group("/api/v1")
	api.Get("/csrf", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"token": c.Locals("CSRFToken"), "header": csrfHeader})
	})
	api.Post("/auth/login", loginLimiter, auth.Login)
	api.Post("/auth/logout", auth.Logout)
	api.Post("/auth/signup", auth.Signup)
	api.Post("/auth/reset", auth.RequestReset)
	api.Post("/auth/reset/confirm", auth.ResetPassword)
	api.Get("/me", auth.Me)

	api.Get("/categories", d.CategoryHandler.List)
	api.Get("/products", searchLimiter, d.SearchHandler.Search)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/availability", availLimiter, d.InventoryHandler.Check)

	api.Get("/cart", d.CartHandler.View)
	api.Post("/cart/items", d.CartHandler.Add)
	api.Patch("/cart/items/:id", d.CartHandler.Update)
	api.Delete("/cart/items/:id", d.CartHandler.Remove)
	api.Delete("/cart", d.CartHandler.Clear)
	api.Get("/checkout/quote", d.OrderHandler.Quote)

	api.Post("/orders", user, d.OrderHandler.Place)
	api.Get("/orders", user, d.OrderHandler.History)
	api.Get("/orders/:id", user, d.OrderHandler.View)
	api.Get("/orders/:id/tracking", user, d.OrderHandler.Tracking)
	api.Get("/orders/:id/tracking/stream", user, d.OrderHandler.TrackingStream)

	api.Get("/prescriptions", user, d.PrescriptionHandler.List)
	api.Post("/prescriptions", user, d.PrescriptionHandler.Upload)
	api.Get("/prescriptions/:id", user, d.PrescriptionHandler.View)
	api.Post("/prescriptions/:id/pay", user, d.PrescriptionHandler.Pay)

	api.Get("/profile", user, d.AccountHandler.Page)
	api.Put("/profile", user, d.AccountHandler.Update)
	api.Post("/profile/otp", user, d.AccountHandler.SendOTP)
	api.Post("/profile/verify", user, d.AccountHandler.VerifyOTP)
	api.Get("/addresses", user, d.AccountHandler.ListAddresses)
	api.Post("/addresses", user, d.AccountHandler.CreateAddress)
	api.Put("/addresses/:id", user, d.AccountHandler.UpdateAddress)
	api.Delete("/addresses/:id", user, d.AccountHandler.DeleteAddress)
	api.Post("/addresses/:id/default", user, d.AccountHandler.SetDefaultAddress)

	// ---------- Admin ----------
	// login is mounted before the guarded group so it stays reachable
	app.Get("/admin/login", auth.AdminLoginForm)
	app.Post("/admin/login", loginLimiter, auth.AdminLogin)

	adm := d.AdminHandler
	admin := app.Group("/admin", RequireAdmin())
	admin.Get("/", adm.DashboardPage)
	admin.Get("/orders", adm.OrdersPage)
	admin.Post("/orders/:id/status", adm.UpdateOrderStatus)
	admin.Get("/prescriptions", adm.PrescriptionsPage)
	admin.Post("/prescriptions/:id/quote", adm.QuotePrescription)
	admin.Post("/prescriptions/:id/reject", adm.RejectPrescription)
	admin.Post("/prescriptions/:id/complete", adm.CompletePrescription)
	admin.Get("/products", adm.ProductsPage)
	admin.Post("/products", adm.CreateProduct)
	admin.Post("/products/:id", adm.UpdateProduct)
	admin.Post("/products/:id/delete", adm.DeleteProduct)
	admin.Post("/products/:id/image", adm.UploadImage)
	admin.Post("/inventory", adm.UpdateStock)
	admin.Get("/users", adm.UsersPage)
	admin.Post("/users/:id/status", adm.SetUserStatus)

	adminAPI := admin.Group("/api")
	adminAPI.Get("/dashboard", adm.DashboardPage)
	adminAPI.Get("/counters", adm.Counters)
	adminAPI.Get("/orders", adm.OrdersPage)
	adminAPI.Get("/orders/:id", adm.OrderDetail)
	adminAPI.Post("/orders/:id/status", adm.UpdateOrderStatus)
	adminAPI.Get("/prescriptions", adm.PrescriptionsPage)
	adminAPI.Post("/prescriptions/:id/quote", adm.QuotePrescription)
	adminAPI.Post("/prescriptions/:id/reject", adm.RejectPrescription)
	adminAPI.Post("/prescriptions/:id/complete", adm.CompletePrescription)
	adminAPI.Get("/products", adm.ProductsPage)
	adminAPI.Post("/products", adm.CreateProduct)
	adminAPI.Put("/products/:id", adm.UpdateProduct)
	adminAPI.Delete("/products/:id", adm.DeleteProduct)
	adminAPI.Post("/products/:id/image", adm.UploadImage)
	adminAPI.Post("/inventory", adm.UpdateStock)
	adminAPI.Get("/users", adm.UsersPage)
	adminAPI.Post("/users/:id/status", adm.SetUserStatus)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return notFound(c, "Page not found")
	})
	return app
}

// mediaHandler serves uploaded images. Prescription photos are only
// visible to their owner and to admins.
func mediaHandler(root string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.ToSlash(filepath.Clean(path))
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		parts := strings.Split(clean, "/")
		if parts[0] == storage.BucketPrescriptions {
			u := currentUser(c)
			if u == nil || (!isAdmin(c) && (len(parts) < 3 || parts[1] != u.ID)) {
				applog.Security(c, "access.media.denied", map[string]any{"path": clean})
				return c.SendStatus(fiber.StatusNotFound)
			}
		}
		c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
		return c.SendFile(filepath.Join(root, clean), true)
	}
}
