package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"buttergolf/internal/domain"
	"buttergolf/internal/payments"
	"buttergolf/internal/pubsub"
	"buttergolf/internal/repos"
	"buttergolf/internal/services"
)

type fakePay struct {
	mu        sync.Mutex
	transfers []payments.TransferRequest
	refunds   []string
	failNext  error
	accounts  int
	// onRefund runs after a refund is recorded, standing in for the
	// provider's refund webhook arriving mid-request.
	onRefund func(orderID string)
}

func (f *fakePay) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (payments.Session, error) {
	if err := f.takeFailure(); err != nil {
		return payments.Session{}, err
	}
	return payments.Session{ID: "cs_test_" + req.OrderID, URL: "https://pay.test/" + req.OrderID}, nil
}

func (f *fakePay) CreateConnectAccount(_ context.Context, _, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts++
	return "acct_" + userID, nil
}

func (f *fakePay) CreateAccountSession(_ context.Context, accountID string) (string, error) {
	return "secret_" + accountID, nil
}

func (f *fakePay) CreateAccountLink(_ context.Context, accountID, _, returnURL string) (string, error) {
	return "https://connect.test/" + accountID + "?return=" + returnURL, nil
}

func (f *fakePay) Transfer(_ context.Context, req payments.TransferRequest) (string, error) {
	if err := f.takeFailure(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, req)
	return "tr_" + req.OrderID, nil
}

func (f *fakePay) Refund(_ context.Context, pi, orderID string) (string, error) {
	f.mu.Lock()
	f.refunds = append(f.refunds, pi)
	hook := f.onRefund
	f.mu.Unlock()
	if hook != nil {
		hook(orderID)
	}
	return "re_" + orderID, nil
}

func (f *fakePay) takeFailure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.failNext
	f.failNext = nil
	return err
}

type sentPush struct {
	To   string
	Push domain.Push
}

type fakePush struct {
	mu   sync.Mutex
	sent []sentPush
}

func (f *fakePush) Notify(_ context.Context, to *domain.User, p domain.Push) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{To: to.ID, Push: p})
}

func (f *fakePush) titlesFor(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if s.To == userID {
			out = append(out, s.Push.Title)
		}
	}
	return out
}

type fakeTracker struct{}

func (fakeTracker) Track(_ context.Context, carrier, number string) (domain.Tracking, error) {
	if number == "UNKNOWN1" {
		return domain.Tracking{}, errors.New("carrier unavailable")
	}
	return domain.Tracking{Carrier: carrier, TrackingNumber: number, Status: "InTransit", Events: []domain.TrackingEvent{}}, nil
}

// world is a marketplace with an onboarded seller, a buyer with a default
// address, a stranger, and one listing priced 250.
type world struct {
	db *sqlx.DB

	users  *repos.UserRepo
	prods  *repos.ProductRepo
	orders *repos.OrderRepo

	pay  *fakePay
	push *fakePush

	checkout *services.CheckoutService
	orderSvc *services.OrderService
	offerSvc *services.OfferService
	msgSvc   *services.MessageService
	userSvc  *services.UserService
	events   *services.StripeEvents

	seller, buyer, stranger *domain.User
	product                 domain.Product
	address                 domain.Address
}

func newWorld(t *testing.T) *world {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	w := &world{db: db, pay: &fakePay{}, push: &fakePush{}}
	w.users = repos.NewUserRepo(db)
	w.prods = repos.NewProductRepo(db)
	w.orders = repos.NewOrderRepo(db)
	offers := repos.NewOfferRepo(db)
	addrs := repos.NewAddressRepo(db)

	w.checkout = services.NewCheckoutService(w.users, w.prods, addrs, w.orders, offers, w.pay, "https://golf.test/", "gbp", 500)
	w.orderSvc = services.NewOrderService(w.orders, w.prods, w.users, offers, w.pay, w.push, fakeTracker{}, 7)
	w.offerSvc = services.NewOfferService(offers, w.prods, w.users, w.push, 48*time.Hour)
	w.msgSvc = services.NewMessageService(repos.NewMessageRepo(db), w.orders, w.users, pubsub.NewMemory(), w.push)
	w.userSvc = services.NewUserService(w.users)
	w.events = services.NewStripeEvents(w.orderSvc, w.userSvc)

	mk := func(clerkID string) *domain.User {
		u, err := w.users.UpsertFromProvider(repos.ProviderProfile{ClerkID: clerkID, Email: clerkID + "@golf.test", Name: clerkID})
		require.NoError(t, err)
		return u
	}
	w.seller, w.buyer, w.stranger = mk("user_seller"), mk("user_buyer"), mk("user_stranger")

	require.NoError(t, w.users.SetStripeAccount(w.seller.ID, "acct_seller"))
	_, err = w.users.SetOnboarded("acct_seller", true)
	require.NoError(t, err)
	w.seller, err = w.users.ByID(w.seller.ID)
	require.NoError(t, err)

	w.product, err = w.prods.Create(w.seller.ID, repos.ProductInput{
		Title: "Titleist TSR2 Driver", Category: "DRIVERS", BrandName: "Titleist", Condition: "EXCELLENT",
		Price: 250, Images: []string{"https://img.test/tsr2.jpg"},
	})
	require.NoError(t, err)

	w.address, err = addrs.Create(w.buyer.ID, repos.AddressInput{
		Name: "Buyer", Line1: "1 Fairway", City: "St Andrews", Postcode: "KY16 9AB", Country: "GB",
	}, false)
	require.NoError(t, err)
	return w
}

// paidOrder runs checkout and the payment confirmation for the buyer.
func (w *world) paidOrder(t *testing.T) domain.Order {
	t.Helper()
	res, err := w.checkout.CreateSession(context.Background(), w.buyer, w.product.ID, "")
	require.NoError(t, err)
	o, changed, err := w.orderSvc.ConfirmPayment(context.Background(), res.SessionID, "pi_"+res.OrderID)
	require.NoError(t, err)
	require.True(t, changed)
	return o
}
