package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"apotek/internal/cart"
	"apotek/internal/domain"
	"apotek/internal/events"
	"apotek/internal/mail"
	"apotek/internal/poller"
	"apotek/internal/repos"
	"apotek/internal/services"
	"apotek/internal/storage"
	"apotek/internal/tokens"
	"apotek/internal/verify"
)

// env wires every service against a fresh in-memory database.
type env struct {
	db     *sqlx.DB
	events *events.Recorder
	mail   *mail.Recorder

	auth      *services.AuthService
	catalog   *services.CatalogService
	carts     *services.CartService
	checkout  *services.CheckoutService
	orders    *services.OrderService
	rx        *services.PrescriptionService
	addresses *services.AddressService
	profile   *services.ProfileService
	dashboard *services.DashboardService
	inventory *services.InventoryService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	signer, err := tokens.NewSigner("test-secret")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	pm := poller.New(time.Hour, time.Hour)
	t.Cleanup(pm.Stop)

	e := &env{db: db, events: &events.Recorder{}, mail: &mail.Recorder{}}
	store := cart.NewMemoryStore()
	users := repos.NewUserRepo(db)
	prods := repos.NewProductRepo(db)
	orders := repos.NewOrderRepo(db)
	prescriptions := repos.NewPrescriptionRepo(db)

	e.auth = &services.AuthService{Users: users, Tokens: signer, Mail: e.mail, Carts: store, BaseURL: "http://apotek.test"}
	e.catalog = services.NewCatalogService(repos.NewCategoryRepo(db), prods, st)
	e.carts = services.NewCartService(store, prods)
	e.addresses = &services.AddressService{Repo: repos.NewAddressRepo(db)}
	e.checkout = &services.CheckoutService{
		Carts:         store,
		Orders:        orders,
		Prescriptions: prescriptions,
		Addresses:     e.addresses,
		Events:        e.events,
		DeliveryFee:   15000,
		CODLimit:      100000,
	}
	e.orders = services.NewOrderService(orders, prescriptions, e.events, time.Second)
	e.rx = &services.PrescriptionService{Repo: prescriptions, Storage: st, Events: e.events}
	e.profile = &services.ProfileService{Users: users, Verify: verify.NewDemoProvider(time.Minute)}
	e.inventory = services.NewInventoryService(repos.NewInventoryRepo(db), 10)
	e.dashboard = services.NewDashboardService(orders, prescriptions, prods, e.inventory, pm)
	return e
}

func (e *env) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := repos.NewUserRepo(e.db).ByID(context.Background(), id)
	if err != nil {
		t.Fatalf("user %s: %v", id, err)
	}
	return u
}

var homeAddress = services.AddressInput{
	Label:         "Rumah",
	RecipientName: "Budi",
	Phone:         "081234567890",
	AddressLine:   "Jl. Melati No. 5",
	City:          "Bandung",
	Province:      "Jawa Barat",
	PostalCode:    "40115",
}

// smallest PNG header that content sniffing accepts
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
