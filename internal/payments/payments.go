// Package payments talks to Stripe Connect. The platform collects each
// payment itself and later transfers the seller's share, so funds stay held
// until the order completes.
package payments

import (
	"context"
	"errors"
	"math"
	"strings"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrNotConfigured = errors.New("payments not configured")

type CheckoutRequest struct {
	OrderID    string
	ProductID  string
	Title      string
	ImageURL   string
	Amount     float64
	Currency   string
	BuyerEmail string
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string
	URL string
}

type TransferRequest struct {
	OrderID     string
	Amount      float64
	Currency    string
	Destination string
}

// Event is a verified webhook event; Object is the raw data.object JSON.
type Event struct {
	ID     string
	Type   string
	Object []byte
}

// Minor converts a major-unit amount to the smallest currency unit.
func Minor(amount float64) int64 { return int64(math.Round(amount * 100)) }

type Stripe struct {
	api           *client.API
	webhookSecret string
	country       string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil), webhookSecret: webhookSecret, country: "GB"}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(req.Title)}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(req.Currency)),
				UnitAmount:  stripe.Int64(Minor(req.Amount)),
				ProductData: product,
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			TransferGroup: stripe.String(req.OrderID),
			Metadata:      map[string]string{"orderId": req.OrderID, "productId": req.ProductID},
		},
	}
	if req.BuyerEmail != "" {
		params.CustomerEmail = stripe.String(req.BuyerEmail)
	}
	params.AddMetadata("orderId", req.OrderID)
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: cs.ID, URL: cs.URL}, nil
}

func (s *Stripe) CreateConnectAccount(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(s.country),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.AddMetadata("userId", userID)
	params.Context = ctx
	params.SetIdempotencyKey("connect-" + userID)

	acct, err := s.api.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

// CreateAccountSession returns the client secret for embedded onboarding.
func (s *Stripe) CreateAccountSession(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountSessionParams{
		Account: stripe.String(accountID),
		Components: &stripe.AccountSessionComponentsParams{
			AccountOnboarding: &stripe.AccountSessionComponentsAccountOnboardingParams{Enabled: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	as, err := s.api.AccountSessions.New(params)
	if err != nil {
		return "", err
	}
	return as.ClientSecret, nil
}

// CreateAccountLink returns a hosted onboarding URL.
func (s *Stripe) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// Transfer pays the seller's share out of the platform balance.
func (s *Stripe) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(Minor(req.Amount)),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		Destination:   stripe.String(req.Destination),
		TransferGroup: stripe.String(req.OrderID),
	}
	params.AddMetadata("orderId", req.OrderID)
	params.Context = ctx
	params.SetIdempotencyKey("release-" + req.OrderID)
	tr, err := s.api.Transfers.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

func (s *Stripe) Refund(ctx context.Context, paymentIntentID, orderID string) (string, error) {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)}
	params.AddMetadata("orderId", orderID)
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + orderID)
	rf, err := s.api.Refunds.New(params)
	if err != nil {
		return "", err
	}
	return rf.ID, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (Event, error) {
	if s.webhookSecret == "" {
		return Event{}, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return Event{}, err
	}
	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data != nil {
		out.Object = ev.Data.Raw
	}
	return out, nil
}

// Disabled stands in when no secret key is configured; every call fails.
type Disabled struct{}

func (Disabled) CreateCheckoutSession(context.Context, CheckoutRequest) (Session, error) {
	return Session{}, ErrNotConfigured
}
func (Disabled) CreateConnectAccount(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}
func (Disabled) CreateAccountSession(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
func (Disabled) CreateAccountLink(context.Context, string, string, string) (string, error) {
	return "", ErrNotConfigured
}
func (Disabled) Transfer(context.Context, TransferRequest) (string, error) {
	return "", ErrNotConfigured
}
func (Disabled) Refund(context.Context, string, string) (string, error) { return "", ErrNotConfigured }
func (Disabled) ParseWebhook([]byte, string) (Event, error)             { return Event{}, ErrNotConfigured }
