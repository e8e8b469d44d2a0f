package handlers

import (
	"apotek/internal/cart"
	"apotek/internal/config"
	"apotek/internal/events"
	"apotek/internal/mail"
	"apotek/internal/poller"
	"apotek/internal/repos"
	"apotek/internal/services"
	"apotek/internal/storage"
	"apotek/internal/tokens"
	"apotek/internal/verify"

	"github.com/jmoiron/sqlx"
)

// Infra is everything NewDeps needs besides the database. main builds the
// production versions, tests pass in-memory ones.
type Infra struct {
	Carts   cart.Store
	Events  events.Publisher
	Mail    mail.Sender
	Tokens  *tokens.Signer
	Storage *storage.Local
	Poller  *poller.Manager
	Verify  verify.Provider
}

type Deps struct {
	Auth *services.AuthService

	AuthHandler         *AuthHandler
	CategoryHandler     *CategoryHandler
	ProductHandler      *ProductHandler
	InventoryHandler    *InventoryHandler
	SearchHandler       *SearchHandler
	CartHandler         *CartHandler
	OrderHandler        *OrderHandler
	PrescriptionHandler *PrescriptionHandler
	AccountHandler      *AccountHandler
	AdminHandler        *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, in Infra) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	rxRepo := repos.NewPrescriptionRepo(db)
	addrRepo := repos.NewAddressRepo(db)

	authSvc := &services.AuthService{
		Users:   userRepo,
		Tokens:  in.Tokens,
		Mail:    in.Mail,
		Carts:   in.Carts,
		BaseURL: cfg.BaseURL,
	}
	catalogSvc := services.NewCatalogService(catRepo, prodRepo, in.Storage)
	invSvc := services.NewInventoryService(invRepo, cfg.LowStockThreshold)
	cartSvc := services.NewCartService(in.Carts, prodRepo)
	addrSvc := &services.AddressService{Repo: addrRepo}
	checkoutSvc := &services.CheckoutService{
		Carts:         in.Carts,
		Orders:        orderRepo,
		Prescriptions: rxRepo,
		Addresses:     addrSvc,
		Events:        in.Events,
		DeliveryFee:   cfg.DeliveryFee,
		CODLimit:      cfg.CODLimit,
	}
	orderSvc := services.NewOrderService(orderRepo, rxRepo, in.Events, cfg.TrackInterval)
	rxSvc := &services.PrescriptionService{Repo: rxRepo, Storage: in.Storage, Events: in.Events}
	profileSvc := &services.ProfileService{Users: userRepo, Verify: in.Verify}
	dashSvc := services.NewDashboardService(orderRepo, rxRepo, prodRepo, invSvc, in.Poller)

	return &Deps{
		Auth: authSvc,

		AuthHandler:      &AuthHandler{Auth: authSvc},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc, Inv: invSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		CartHandler:      &CartHandler{Cart: cartSvc, Checkout: checkoutSvc},
		OrderHandler: &OrderHandler{
			Cart:      cartSvc,
			Checkout:  checkoutSvc,
			Orders:    orderSvc,
			Addresses: addrSvc,
			Profile:   profileSvc,
		},
		PrescriptionHandler: &PrescriptionHandler{Rx: rxSvc, Checkout: checkoutSvc, Addresses: addrSvc},
		AccountHandler:      &AccountHandler{Profile: profileSvc, Addresses: addrSvc},
		AdminHandler: &AdminHandler{
			Dashboard: dashSvc,
			Orders:    orderSvc,
			Rx:        rxSvc,
			Catalog:   catalogSvc,
			Inv:       invSvc,
			Profile:   profileSvc,
		},
	}
}
