package handlers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func stripeEvent(t *testing.T, h *harness, sig, payload string) (*http.Response, gjson.Result) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/webhooks/stripe", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sig)
	return send(t, h.app, req)
}

func sessionCompleted(sessionID, orderID string) string {
	return fmt.Sprintf(`{"id":"evt_%[2]s","type":"checkout.session.completed","data":{"object":
		{"id":%[1]q,"payment_status":"paid","payment_intent":"pi_%[2]s"}}}`, sessionID, orderID)
}

// checkout buys the listing and delivers the paid webhook.
func checkout(t *testing.T, h *harness) string {
	t.Helper()
	p := h.listing(t)
	resp, _ := h.call(t, "POST", "/api/addresses", "buyer", addr("Home", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, res := h.call(t, "POST", "/api/checkout/create-session", "buyer", map[string]string{"productId": p.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	orderID := res.Get("orderId").String()
	assert.Equal(t, "https://pay.test/"+orderID, res.Get("url").String())

	resp, _ = stripeEvent(t, h, goodStripeSig, sessionCompleted(res.Get("sessionId").String(), orderID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return orderID
}

func TestOrderLifecycle(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)

	resp, o := h.call(t, "GET", "/api/orders/"+id, "buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PAYMENT_CONFIRMED", o.Get("status").String())
	assert.Equal(t, "HELD", o.Get("holdStatus").String())
	assert.Equal(t, 250.0, o.Get("amount").Float())

	// delivery before shipping is an invalid transition
	resp, _ = h.call(t, "POST", "/api/orders/"+id+"/confirm-delivery", "buyer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.call(t, "GET", "/api/orders/"+id+"/tracking", "buyer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = h.call(t, "POST", "/api/orders/"+id+"/ship", "buyer",
		map[string]string{"carrier": "royal-mail", "trackingNumber": "AB123456789GB"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, o = h.call(t, "POST", "/api/orders/"+id+"/ship", "seller",
		map[string]string{"carrier": "Royal-Mail", "trackingNumber": "ab123456789gb"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SHIPPED", o.Get("status").String())

	resp, tr := h.call(t, "GET", "/api/orders/"+id+"/tracking", "buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "private, max-age=300", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "Pending", tr.Get("status").String())

	resp, o = h.call(t, "POST", "/api/orders/"+id+"/confirm-delivery", "buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "COMPLETED", o.Get("status").String())
	assert.Equal(t, "RELEASED", o.Get("holdStatus").String())

	h.pay.mu.Lock()
	require.Len(t, h.pay.transfers, 1)
	assert.Equal(t, "acct_seller", h.pay.transfers[0].Destination)
	h.pay.mu.Unlock()

	resp, _ = h.call(t, "POST", "/api/orders/"+id+"/cancel", "buyer", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOrderHiddenFromStrangers(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)

	resp, _ := h.call(t, "GET", "/api/orders/"+id, "stranger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = h.call(t, "GET", "/api/orders/"+id+"/messages", "stranger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, list := h.call(t, "GET", "/api/orders?role=seller", "seller", nil)
	assert.Equal(t, id, list.Get("orders.0.id").String())
	_, list = h.call(t, "GET", "/api/orders?role=seller", "buyer", nil)
	assert.Empty(t, list.Get("orders").Array())
}

func TestStripeWebhookIsIdempotent(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)

	// the provider redelivers
	resp, body := stripeEvent(t, h, goodStripeSig, sessionCompleted("cs_test_"+id, id))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Get("received").Bool())

	_, o := h.call(t, "GET", "/api/orders/"+id, "buyer", nil)
	assert.Equal(t, "PAYMENT_CONFIRMED", o.Get("status").String())

	resp, body = stripeEvent(t, h, goodStripeSig, sessionCompleted("cs_someone_else", "x"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Get("ignored").Bool())

	resp, _ = stripeEvent(t, h, "t=1,v1=forged", sessionCompleted("cs_test_"+id, id))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = stripeEvent(t, h, goodStripeSig, `{"id":"evt_1","type":"payout.paid","data":{"object":{}}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutGuards(t *testing.T) {
	h := newHarness(t)
	p := h.listing(t)

	resp, body := h.call(t, "POST", "/api/checkout/create-session", "buyer", map[string]string{"productId": p.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "a shipping address is required", body.Get("error").String())

	resp, _ = h.call(t, "POST", "/api/checkout/create-session", "seller", map[string]string{"productId": p.ID})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.call(t, "POST", "/api/checkout/create-session", "buyer", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOfferThenCheckout(t *testing.T) {
	h := newHarness(t)
	p := h.listing(t)
	h.call(t, "POST", "/api/addresses", "buyer", addr("Home", true))

	resp, offer := h.call(t, "POST", "/api/products/"+p.ID+"/offers", "buyer", map[string]float64{"amount": 200})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	oid := offer.Get("id").String()

	resp, _ = h.call(t, "POST", "/api/offers/"+oid+"/accept", "buyer", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, offer = h.call(t, "POST", "/api/offers/"+oid+"/counter", "seller", map[string]float64{"amount": 225})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "COUNTERED", offer.Get("status").String())

	resp, offer = h.call(t, "POST", "/api/offers/"+oid+"/accept", "buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ACCEPTED", offer.Get("status").String())

	resp, res := h.call(t, "POST", "/api/checkout/create-session", "buyer", map[string]string{"productId": p.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, o := h.call(t, "GET", "/api/orders/"+res.Get("orderId").String(), "buyer", nil)
	assert.Equal(t, 225.0, o.Get("amount").Float())

	resp, _ = h.call(t, "GET", "/api/offers/"+oid, "stranger", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessages(t *testing.T) {
	h := newHarness(t)
	id := checkout(t, h)

	resp, m := h.call(t, "POST", "/api/orders/"+id+"/messages", "buyer", map[string]string{"body": "Is the headcover included?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Is the headcover included?", m.Get("body").String())

	resp, _ = h.call(t, "POST", "/api/orders/"+id+"/messages", "buyer", map[string]string{"body": " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, list := h.call(t, "GET", "/api/orders/"+id+"/messages", "seller", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, list.Get("messages").Array(), 1)
}
