package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buttergolf/internal/auth"
	"buttergolf/internal/http/handlers"
)

func TestCSRFGuardsCookieSessionsOnly(t *testing.T) {
	h := newHarness(t)
	h.app = newApp(t, h.db, h.pay, handlers.CSRF())
	session := &http.Cookie{Name: auth.SessionCookie, Value: "buyer-token"}

	post := func(path string, body []byte, prep func(*http.Request)) *http.Response {
		req := httptest.NewRequest("POST", path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		prep(req)
		resp, _ := send(t, h.app, req)
		return resp
	}
	address, err := json.Marshal(addr("Home", false))
	require.NoError(t, err)

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = post("/api/addresses", address, func(r *http.Request) { r.AddCookie(session) })
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, ok := findAction(entries, "csrf.fail")
	assert.True(t, ok)

	// a safe request with the session hands out the token cookie
	req := httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(session)
	resp, _ = send(t, h.app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	resp = post("/api/addresses", address, func(r *http.Request) {
		r.AddCookie(session)
		r.AddCookie(&http.Cookie{Name: "csrf_", Value: token})
		r.Header.Set("X-Csrf-Token", "forged")
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = post("/api/addresses", address, func(r *http.Request) {
		r.AddCookie(session)
		r.AddCookie(&http.Cookie{Name: "csrf_", Value: token})
		r.Header.Set("X-Csrf-Token", token)
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// bearer callers and signed webhooks never carry the token
	resp = post("/api/addresses", address, func(r *http.Request) { r.Header.Set("Authorization", "Bearer buyer-token") })
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post("/api/webhooks/stripe", []byte(`{"id":"evt_1","type":"payout.paid","data":{"object":{}}}`), func(r *http.Request) {
		r.AddCookie(session)
		r.Header.Set("Stripe-Signature", goodStripeSig)
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
