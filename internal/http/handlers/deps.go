package handlers

import (
	"time"

	"buttergolf/internal/config"
	"buttergolf/internal/jobs"
	"buttergolf/internal/repos"
	"buttergolf/internal/services"

	"github.com/jmoiron/sqlx"
)

// Gateway is the payment provider as the HTTP layer sees it.
type Gateway interface {
	services.Payments
	EventParser
}

// Integrations are the SaaS adapters; tests swap them for fakes.
type Integrations struct {
	Payments Gateway
	Notifier services.Notifier
	Broker   services.Broker
	Tracker  services.Tracker
	Tokens   services.TokenVerifier
	Clerk    SignatureVerifier
	APIKey   KeyChecker
}

type Deps struct {
	Auth *services.AuthService
	Jobs *jobs.Runner
	Keys KeyChecker

	AccountHandler  *AccountHandler
	CategoryHandler *CategoryHandler
	ProductHandler  *ProductHandler
	SearchHandler   *SearchHandler
	FavoriteHandler *FavoriteHandler
	AddressHandler  *AddressHandler
	CheckoutHandler *CheckoutHandler
	OrderHandler    *OrderHandler
	MessageHandler  *MessageHandler
	OfferHandler    *OfferHandler
	WaitlistHandler *WaitlistHandler
	WebhookHandler  *WebhookHandler
	AdminHandler    *AdminHandler
	PageHandler     *PageHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, in Integrations) *Deps {
	userRepo := repos.NewUserRepo(db)
	brandRepo := repos.NewBrandRepo(db)
	prodRepo := repos.NewProductRepo(db)
	favRepo := repos.NewFavoriteRepo(db)
	addrRepo := repos.NewAddressRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	msgRepo := repos.NewMessageRepo(db)
	waitRepo := repos.NewWaitlistRepo(db)

	authSvc := services.NewAuthService(userRepo, in.Tokens)
	userSvc := services.NewUserService(userRepo)
	catalogSvc := services.NewCatalogService(brandRepo, prodRepo)
	favSvc := services.NewFavoriteService(favRepo, prodRepo)
	addrSvc := services.NewAddressService(addrRepo)
	checkoutSvc := services.NewCheckoutService(userRepo, prodRepo, addrRepo, orderRepo, offerRepo,
		in.Payments, cfg.PublicURL, cfg.Currency, cfg.PlatformFeeBPS)
	orderSvc := services.NewOrderService(orderRepo, prodRepo, userRepo, offerRepo,
		in.Payments, in.Notifier, in.Tracker, cfg.HoldReleaseDays)
	offerSvc := services.NewOfferService(offerRepo, prodRepo, userRepo, in.Notifier,
		time.Duration(cfg.OfferTTLHours)*time.Hour)
	msgSvc := services.NewMessageService(msgRepo, orderRepo, userRepo, in.Broker, in.Notifier)
	waitSvc := services.NewWaitlistService(waitRepo)
	runner := jobs.NewRunner(orderSvc, offerSvc)

	return &Deps{
		Auth: authSvc,
		Jobs: runner,
		Keys: in.APIKey,

		AccountHandler:  &AccountHandler{Users: userSvc},
		CategoryHandler: &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:  &ProductHandler{Catalog: catalogSvc},
		SearchHandler:   &SearchHandler{Catalog: catalogSvc},
		FavoriteHandler: &FavoriteHandler{Favs: favSvc},
		AddressHandler:  &AddressHandler{Addrs: addrSvc},
		CheckoutHandler: &CheckoutHandler{Checkout: checkoutSvc},
		OrderHandler:    &OrderHandler{Orders: orderSvc},
		MessageHandler:  &MessageHandler{Msgs: msgSvc},
		OfferHandler:    &OfferHandler{Offers: offerSvc},
		WaitlistHandler: &WaitlistHandler{Waitlist: waitSvc},
		WebhookHandler: &WebhookHandler{Clerk: in.Clerk, Stripe: in.Payments, Users: userSvc,
			Events: services.NewStripeEvents(orderSvc, userSvc)},
		AdminHandler: &AdminHandler{Jobs: runner, Waitlist: waitRepo},
		PageHandler:  &PageHandler{AppScheme: cfg.AppScheme},
	}
}
