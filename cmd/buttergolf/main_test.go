package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buttergolf/internal/auth"
	"buttergolf/internal/config"
	"buttergolf/internal/http/handlers"
	"buttergolf/internal/metrics"
	"buttergolf/internal/notify"
	"buttergolf/internal/payments"
	"buttergolf/internal/pubsub"
	"buttergolf/internal/repos"
	"buttergolf/internal/shipping"
)

func testDeps(t *testing.T) *handlers.Deps {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := auth.NewVerifier("", "")
	require.NoError(t, err)
	clerk, err := auth.NewWebhookVerifier("")
	require.NoError(t, err)
	return handlers.NewDeps(db, config.Config{Currency: "gbp", HoldReleaseDays: 7, OfferTTLHours: 48}, handlers.Integrations{
		Payments: payments.Disabled{},
		Notifier: notify.Nop{},
		Broker:   pubsub.NewMemory(),
		Tracker:  shipping.NewTracker("", ""),
		Tokens:   tokens,
		Clerk:    clerk,
		APIKey:   auth.NewAPIKey(""),
	})
}

// rejected sums the request counter over every route for one status.
func rejected(t *testing.T, status string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != "buttergolf_http_requests_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == status {
					total += m.GetCounter().GetValue()
				}
			}
		}
	}
	return total
}

func TestRateLimitedRequestsAreCounted(t *testing.T) {
	app := newServer(config.Config{Templates: "../../web/templates"}, testDeps(t))

	before := rejected(t, "429")
	var last int
	for i := 0; i < 121; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/categories", nil), -1)
		require.NoError(t, err)
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, 1.0, rejected(t, "429")-before)

	// health checks and scrapes stay outside the limit
	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
