package handlers

import (
	"errors"
	"html/template"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"

	"apotek/internal/domain"
	applog "apotek/internal/log"
	"apotek/internal/services"
)

// NewEngine loads web/templates with the view helpers registered.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("rupiah", domain.FormatRupiah)
	engine.AddFunc("richtext", RichText)
	engine.AddFunc("deref", func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	})
	return engine
}

var reKeepTag = regexp.MustCompile(`&lt;(/?)(b|i)&gt;`)

// RichText escapes s and then re-enables bare <b> and <i> tags. Attributes
// never survive because "<b onclick=..>" no longer matches after escaping.
func RichText(s string) template.HTML {
	esc := template.HTMLEscapeString(s)
	return template.HTML(reKeepTag.ReplaceAllString(esc, "<$1$2>"))
}

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := currentUser(c); u != nil {
		data["User"] = u
	}
	if _, ok := data["CSRFToken"]; !ok {
		tok, _ := c.Locals("CSRFToken").(string)
		if tok == "" {
			tok = c.Cookies(csrfCookie)
		}
		data["CSRFToken"] = tok
	}
	return c.Render(tmpl, data)
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": msg})
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func isAdmin(c *fiber.Ctx) bool {
	ok, _ := c.Locals("admin").(bool)
	return ok
}

func isAPI(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/admin/api/")
}

// statusOf maps service errors onto HTTP statuses and user-facing text.
// Unknown errors are 500 with a generic message.
func statusOf(err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, verr.Error()
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, services.ErrNotOwner):
		// owner mismatch reads as missing
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, services.ErrBadCreds),
		errors.Is(err, services.ErrEmailNotConfirmed):
		return fiber.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrAccountBanned),
		errors.Is(err, services.ErrNotAdmin),
		errors.Is(err, services.ErrSelfModeration):
		return fiber.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, services.ErrOutOfStock),
		errors.Is(err, services.ErrPrescriptionOnly),
		errors.Is(err, services.ErrCODNotAllowed),
		errors.Is(err, services.ErrPhoneNotVerified),
		errors.Is(err, services.ErrNoteRequired),
		errors.Is(err, services.ErrPriceRequired),
		errors.Is(err, services.ErrWrongCode):
		return fiber.StatusBadRequest, err.Error()
	}
	return fiber.StatusInternalServerError, "Something went wrong. Please try again."
}

// fail logs err under action and answers with JSON on API paths or the
// notfound page otherwise.
func fail(c *fiber.Ctx, action string, err error, fields map[string]any) error {
	code, msg := statusOf(err)
	switch {
	case code >= 500:
		applog.Error(c, action+".fail", err, fields)
	case code == fiber.StatusNotFound || code == fiber.StatusForbidden:
		applog.Security(c, action+".denied", withErr(fields, err))
	default:
		applog.Security(c, action+".reject", withErr(fields, err))
	}
	if isAPI(c) {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	return c.Status(code).Render("notfound", fiber.Map{"Message": msg})
}

func withErr(fields map[string]any, err error) map[string]any {
	out := map[string]any{"reason": err.Error()}
	for k, v := range fields {
		out[k] = v
	}
	return out
}
