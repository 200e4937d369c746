package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"buttergolf/internal/domain"
	"buttergolf/internal/payments"
	"buttergolf/internal/repos"

	"github.com/google/uuid"
)

type CheckoutService struct {
	Users     *repos.UserRepo
	Prods     *repos.ProductRepo
	Addresses *repos.AddressRepo
	Orders    *repos.OrderRepo
	Offers    *repos.OfferRepo
	Pay       Payments

	PublicURL string
	Currency  string
	FeeBPS    int
}

func NewCheckoutService(users *repos.UserRepo, prods *repos.ProductRepo, addrs *repos.AddressRepo,
	orders *repos.OrderRepo, offers *repos.OfferRepo, pay Payments, publicURL, currency string, feeBPS int) *CheckoutService {
	return &CheckoutService{Users: users, Prods: prods, Addresses: addrs, Orders: orders, Offers: offers, Pay: pay,
		PublicURL: strings.TrimRight(publicURL, "/"), Currency: currency, FeeBPS: feeBPS}
}

// Fee is the platform's cut, rounded to the penny.
func (s *CheckoutService) Fee(amount float64) float64 {
	return math.Round(amount*float64(s.FeeBPS)/100) / 100
}

type CheckoutResult struct {
	OrderID   string `json:"orderId"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateSession opens a PAYMENT_PENDING order for the product and a hosted
// checkout for it. An accepted offer from this buyer sets the price.
func (s *CheckoutService) CreateSession(ctx context.Context, buyer *domain.User, productID, addressID string) (CheckoutResult, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return CheckoutResult{}, fromRepo(err, "product")
	}
	if p.IsSold {
		return CheckoutResult{}, conflict("product has already sold")
	}
	if p.SellerID == buyer.ID {
		return CheckoutResult{}, invalid("you can't buy your own listing")
	}

	open, err := s.Orders.OpenForProduct(p.ID)
	switch {
	case err == nil && open.Status != domain.OrderPaymentPending:
		return CheckoutResult{}, conflict("product has already sold")
	case err == nil:
		// an abandoned checkout; its session expires on the provider side
		if err := s.Orders.Transition(open.ID, domain.OrderPaymentPending, domain.OrderCancelled, ""); err != nil && !errors.Is(err, repos.ErrStale) {
			return CheckoutResult{}, err
		}
	case !errors.Is(err, repos.ErrNotFound):
		return CheckoutResult{}, err
	}

	seller, err := s.Users.ByID(p.SellerID)
	if err != nil {
		return CheckoutResult{}, fromRepo(err, "seller")
	}
	if seller.StripeAccountID == "" || !seller.StripeOnboarded {
		return CheckoutResult{}, conflict("seller can't accept payments yet")
	}

	var addr domain.Address
	if addressID != "" {
		addr, err = s.Addresses.Get(buyer.ID, addressID)
	} else {
		addr, err = s.Addresses.Default(buyer.ID)
	}
	if errors.Is(err, repos.ErrNotFound) {
		return CheckoutResult{}, invalid("a shipping address is required")
	}
	if err != nil {
		return CheckoutResult{}, err
	}

	amount := p.Price
	if off, err := s.Offers.AcceptedFor(p.ID, buyer.ID); err == nil {
		amount = off.Amount
	} else if !errors.Is(err, repos.ErrNotFound) {
		return CheckoutResult{}, err
	}

	o := domain.Order{
		ID: uuid.NewString(), ProductID: p.ID, BuyerID: buyer.ID, SellerID: seller.ID,
		Amount: amount, Fee: s.Fee(amount), Currency: s.Currency,
		ShipName: addr.Name, ShipLine1: addr.Line1, ShipLine2: addr.Line2,
		ShipCity: addr.City, ShipPostcode: addr.Postcode, ShipCountry: addr.Country,
	}
	if err := s.Orders.Create(o); err != nil {
		return CheckoutResult{}, err
	}

	req := payments.CheckoutRequest{
		OrderID: o.ID, ProductID: p.ID, Title: p.Title, Amount: amount, Currency: s.Currency,
		BuyerEmail: buyer.Email,
		SuccessURL: s.PublicURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.PublicURL + "/checkout/cancel?order_id=" + o.ID,
	}
	if len(p.Images) > 0 {
		req.ImageURL = p.Images[0]
	}
	sess, err := s.Pay.CreateCheckoutSession(ctx, req)
	if err != nil {
		_ = s.Orders.Transition(o.ID, domain.OrderPaymentPending, domain.OrderCancelled, "")
		return CheckoutResult{}, err
	}
	if err := s.Orders.SetCheckoutSession(o.ID, sess.ID); err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{OrderID: o.ID, SessionID: sess.ID, URL: sess.URL}, nil
}

// ConnectAccount returns the seller's Connect account, creating it on first use.
func (s *CheckoutService) ConnectAccount(ctx context.Context, u *domain.User) (string, error) {
	if u.StripeAccountID != "" {
		return u.StripeAccountID, nil
	}
	id, err := s.Pay.CreateConnectAccount(ctx, u.Email, u.ID)
	if err != nil {
		return "", err
	}
	if err := s.Users.SetStripeAccount(u.ID, id); err != nil {
		return "", err
	}
	u.StripeAccountID = id
	return id, nil
}

func (s *CheckoutService) AccountSession(ctx context.Context, u *domain.User) (string, error) {
	acct, err := s.ConnectAccount(ctx, u)
	if err != nil {
		return "", err
	}
	return s.Pay.CreateAccountSession(ctx, acct)
}

func (s *CheckoutService) OnboardingLink(ctx context.Context, u *domain.User) (string, error) {
	acct, err := s.ConnectAccount(ctx, u)
	if err != nil {
		return "", err
	}
	return s.Pay.CreateAccountLink(ctx, acct, s.PublicURL+"/connect/refresh", s.PublicURL+"/connect/return")
}
