package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"buttergolf/internal/auth"
	"buttergolf/internal/config"
	"buttergolf/internal/domain"
	"buttergolf/internal/http/handlers"
	applog "buttergolf/internal/log"
	"buttergolf/internal/notify"
	"buttergolf/internal/payments"
	"buttergolf/internal/pubsub"
	"buttergolf/internal/repos"
	"buttergolf/internal/shipping"
)

const goodStripeSig = "t=1,v1=good"

type tokens map[string]*auth.Claims

func (m tokens) Verify(token string) (*auth.Claims, error) {
	if c, ok := m[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

func claims(sub string) *auth.Claims {
	c := &auth.Claims{Email: sub + "@golf.test", Name: sub}
	c.Subject = sub
	return c
}

// gateway fakes the payment provider. ParseWebhook accepts goodStripeSig and
// reads {id, type, data: {object}} like the real event envelope.
type gateway struct {
	mu        sync.Mutex
	transfers []payments.TransferRequest
}

func (g *gateway) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (payments.Session, error) {
	return payments.Session{ID: "cs_test_" + req.OrderID, URL: "https://pay.test/" + req.OrderID}, nil
}
func (g *gateway) CreateConnectAccount(_ context.Context, _, userID string) (string, error) {
	return "acct_" + userID, nil
}
func (g *gateway) CreateAccountSession(_ context.Context, accountID string) (string, error) {
	return "secret_" + accountID, nil
}
func (g *gateway) CreateAccountLink(_ context.Context, accountID, _, _ string) (string, error) {
	return "https://connect.test/" + accountID, nil
}
func (g *gateway) Transfer(_ context.Context, req payments.TransferRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, req)
	return "tr_" + req.OrderID, nil
}
func (g *gateway) Refund(_ context.Context, _, orderID string) (string, error) {
	return "re_" + orderID, nil
}
func (g *gateway) ParseWebhook(payload []byte, sig string) (payments.Event, error) {
	if sig != goodStripeSig {
		return payments.Event{}, errors.New("signature mismatch")
	}
	ev := gjson.ParseBytes(payload)
	return payments.Event{
		ID:     ev.Get("id").String(),
		Type:   ev.Get("type").String(),
		Object: []byte(ev.Get("data.object").Raw),
	}, nil
}

type svixStub struct{}

func (svixStub) Verify(_ []byte, h http.Header) error {
	if h.Get("svix-signature") != "v1,ok" {
		return errors.New("no matching signature")
	}
	return nil
}

type opsKey string

func (k opsKey) Valid(key string) bool { return key != "" && key == string(k) }

type harness struct {
	app *fiber.App
	db  *sqlx.DB
	pay *gateway

	users *repos.UserRepo
	prods *repos.ProductRepo
}

func testConfig() config.Config {
	return config.Config{
		PublicURL:       "https://golf.test/",
		Currency:        "gbp",
		PlatformFeeBPS:  500,
		HoldReleaseDays: 7,
		OfferTTLHours:   48,
		AppScheme:       "buttergolf",
	}
}

// newApp wires the routes behind requestid and any extra middleware given.
func newApp(t *testing.T, db *sqlx.DB, pay *gateway, mw ...fiber.Handler) *fiber.App {
	t.Helper()
	d := handlers.NewDeps(db, testConfig(), handlers.Integrations{
		Payments: pay,
		Notifier: notify.Nop{},
		Broker:   pubsub.NewMemory(),
		Tracker:  shipping.NewTracker("", ""),
		Tokens: tokens{
			"seller-token":   claims("user_seller"),
			"buyer-token":    claims("user_buyer"),
			"stranger-token": claims("user_stranger"),
		},
		Clerk:  svixStub{},
		APIKey: opsKey("ops-key"),
	})
	d.MessageHandler.Heartbeat = 50 * time.Millisecond
	app := fiber.New(fiber.Config{
		Views:        html.New("../../web/templates", ".html"),
		ErrorHandler: handlers.ErrorHandler,
	})
	app.Use(requestid.New())
	for _, h := range mw {
		app.Use(h)
	}
	handlers.Register(app, d)
	return app
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{db: db, pay: &gateway{}, users: repos.NewUserRepo(db), prods: repos.NewProductRepo(db)}
	h.app = newApp(t, db, h.pay)
	return h
}

// user resolves a test token once so the account exists, then returns it.
func (h *harness) user(t *testing.T, token string) *domain.User {
	t.Helper()
	resp, _ := h.call(t, "GET", "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u, err := h.users.ByClerkID("user_" + token)
	require.NoError(t, err)
	return u
}

// listing creates an onboarded seller with one product priced 250.
func (h *harness) listing(t *testing.T) domain.Product {
	t.Helper()
	seller := h.user(t, "seller")
	require.NoError(t, h.users.SetStripeAccount(seller.ID, "acct_seller"))
	_, err := h.users.SetOnboarded("acct_seller", true)
	require.NoError(t, err)
	p, err := h.prods.Create(seller.ID, repos.ProductInput{
		Title: "Scotty Cameron Newport 2", Category: "PUTTERS", BrandName: "Scotty Cameron",
		Condition: "EXCELLENT", Price: 250, Images: []string{"https://img.test/newport.jpg"},
	})
	require.NoError(t, err)
	return p
}

// call sends a request; token "seller" becomes "Bearer seller-token".
func (h *harness) call(t *testing.T, method, path, token string, body any) (*http.Response, gjson.Result) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token+"-token")
	}
	return send(t, h.app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, gjson.Result) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, gjson.ParseBytes(raw)
}

type lockedBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs returns the structured entries written while fn ran.
func captureLogs(t *testing.T, fn func()) []gjson.Result {
	t.Helper()
	var buf lockedBuf
	applog.SetOutput(&buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var out []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		if gjson.Valid(line) {
			out = append(out, gjson.Parse(line))
		}
	}
	return out
}

func findAction(entries []gjson.Result, action string) (gjson.Result, bool) {
	for _, e := range entries {
		if e.Get("action").String() == action {
			return e, true
		}
	}
	return gjson.Result{}, false
}
