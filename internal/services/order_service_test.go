package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buttergolf/internal/domain"
	"buttergolf/internal/payments"
	"buttergolf/internal/repos"
	"buttergolf/internal/services"
)

func TestOrderFlow_CheckoutToCompleted(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	res, err := w.checkout.CreateSession(ctx, w.buyer, w.product.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/"+res.OrderID, res.URL)

	o, err := w.orderSvc.Get(w.buyer, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentPending, o.Status)
	assert.Equal(t, domain.HoldNone, o.HoldStatus)
	assert.Equal(t, 250.0, o.Amount)
	assert.Equal(t, 12.5, o.Fee)
	assert.Equal(t, "KY16 9AB", o.ShipPostcode)

	o, changed, err := w.orderSvc.ConfirmPayment(ctx, res.SessionID, "pi_1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.OrderPaymentConfirmed, o.Status)
	assert.Equal(t, domain.HoldHeld, o.HoldStatus)

	// provider retries the same event
	_, changed, err = w.orderSvc.ConfirmPayment(ctx, res.SessionID, "pi_1")
	require.NoError(t, err)
	assert.False(t, changed)

	p, err := w.prods.Get(w.product.ID)
	require.NoError(t, err)
	assert.True(t, p.IsSold)
	assert.Contains(t, w.push.titlesFor(w.seller.ID), "You made a sale!")

	o, err = w.orderSvc.Ship(ctx, w.seller, o.ID, "Royal-Mail", "ab 1234 5678 gb")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, o.Status)
	assert.Equal(t, "royal-mail", o.Carrier)
	assert.Equal(t, "AB12345678GB", o.TrackingNumber)

	o, err = w.orderSvc.ConfirmDelivery(ctx, w.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, o.Status)
	assert.Equal(t, domain.HoldReleased, o.HoldStatus)

	require.Len(t, w.pay.transfers, 1)
	assert.Equal(t, 237.5, w.pay.transfers[0].Amount)
	assert.Equal(t, "acct_seller", w.pay.transfers[0].Destination)
	assert.Contains(t, w.push.titlesFor(w.seller.ID), "Funds released")
}

func TestOrder_InvalidTransitionsConflict(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	_, err := w.orderSvc.ConfirmDelivery(ctx, w.buyer, o.ID)
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = w.orderSvc.Ship(ctx, w.seller, o.ID, "dpd", "15501234567")
	require.NoError(t, err)
	_, err = w.orderSvc.Ship(ctx, w.seller, o.ID, "dpd", "15501234567")
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = w.orderSvc.Cancel(ctx, w.buyer, o.ID)
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestOrder_ParticipantsOnly(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	_, err := w.orderSvc.Get(w.stranger, o.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = w.orderSvc.Ship(ctx, w.buyer, o.ID, "dpd", "15501234567")
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = w.orderSvc.Ship(ctx, w.seller, o.ID, "d", "15501234567")
	assert.ErrorIs(t, err, services.ErrInvalid)

	_, err = w.orderSvc.List(w.buyer, "admin")
	assert.ErrorIs(t, err, services.ErrInvalid)

	mine, err := w.orderSvc.List(w.seller, "seller")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o.ID, mine[0].ID)
}

func TestOrder_CancelPaidRefundsAndRelists(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	o, err := w.orderSvc.Cancel(ctx, w.seller, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, o.Status)
	assert.Equal(t, domain.HoldRefunded, o.HoldStatus)
	assert.Equal(t, []string{o.PaymentIntentID}, w.pay.refunds)
	assert.Contains(t, w.push.titlesFor(w.buyer.ID), "Order cancelled")

	p, err := w.prods.Get(w.product.ID)
	require.NoError(t, err)
	assert.False(t, p.IsSold)
}

func TestOrder_CancelLosingToRefundWebhookSucceeds(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	w.pay.onRefund = func(string) {
		_, err := w.orderSvc.RecordRefund(ctx, "pi_"+o.ID)
		require.NoError(t, err)
	}
	got, err := w.orderSvc.Cancel(ctx, w.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderRefunded, got.Status)
	assert.Equal(t, domain.HoldRefunded, got.HoldStatus)
}

func TestCheckout_SupersededSessionIsRefundedWhenPaid(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	first, err := w.checkout.CreateSession(ctx, w.buyer, w.product.ID, "")
	require.NoError(t, err)
	second, err := w.checkout.CreateSession(ctx, w.buyer, w.product.ID, w.address.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.OrderID, second.OrderID)

	o, err := w.orders.Get(first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, o.Status)

	// the abandoned session gets paid anyway
	o, changed, err := w.orderSvc.ConfirmPayment(ctx, first.SessionID, "pi_late")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"pi_late"}, w.pay.refunds)

	o, err = w.orders.Get(first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldRefunded, o.HoldStatus)
}

func TestCheckout_Guards(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.checkout.CreateSession(ctx, w.seller, w.product.ID, "")
	assert.ErrorIs(t, err, services.ErrInvalid)

	_, err = w.checkout.CreateSession(ctx, w.stranger, w.product.ID, "")
	assert.ErrorIs(t, err, services.ErrInvalid, "no shipping address")

	_, err = w.checkout.CreateSession(ctx, w.buyer, "missing", "")
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = w.users.SetOnboarded("acct_seller", false)
	require.NoError(t, err)
	_, err = w.checkout.CreateSession(ctx, w.buyer, w.product.ID, "")
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestCheckout_SoldProductConflicts(t *testing.T) {
	w := newWorld(t)
	w.paidOrder(t)
	_, err := w.checkout.CreateSession(context.Background(), w.stranger, w.product.ID, "")
	assert.ErrorIs(t, err, services.ErrConflict)
}

func TestCheckout_ConnectAccountCreatedOnce(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	link, err := w.checkout.OnboardingLink(ctx, w.buyer)
	require.NoError(t, err)
	assert.Contains(t, link, "return=https://golf.test/connect/return")

	fresh, err := w.users.ByID(w.buyer.ID)
	require.NoError(t, err)
	secret, err := w.checkout.AccountSession(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "secret_acct_"+w.buyer.ID, secret)
	assert.Equal(t, 1, w.pay.accounts)
}

func TestOrder_ReleaseDueAfterHoldWindow(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	shippedAt := time.Now().UTC().Add(-8 * 24 * time.Hour)
	repos.Now = func() time.Time { return shippedAt }
	t.Cleanup(func() { repos.Now = func() time.Time { return time.Now().UTC() } })
	_, err := w.orderSvc.Ship(ctx, w.seller, o.ID, "dpd", "15501234567")
	require.NoError(t, err)
	repos.Now = func() time.Time { return time.Now().UTC() }

	n, err := w.orderSvc.ReleaseDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	o, err = w.orders.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, o.Status)

	n, err = w.orderSvc.ReleaseDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrder_FailedReleaseStaysDelivered(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)
	_, err := w.orderSvc.Ship(ctx, w.seller, o.ID, "dpd", "15501234567")
	require.NoError(t, err)

	w.pay.failNext = assert.AnError
	o, err = w.orderSvc.ConfirmDelivery(ctx, w.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, o.Status)
	assert.Equal(t, domain.HoldHeld, o.HoldStatus)
}

func TestOrder_Tracking(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	_, err := w.orderSvc.Tracking(ctx, w.buyer, o.ID)
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = w.orderSvc.Ship(ctx, w.seller, o.ID, "evri", "H01ABC1234567890")
	require.NoError(t, err)
	tr, err := w.orderSvc.Tracking(ctx, w.buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "InTransit", tr.Status)
	assert.Equal(t, "evri", tr.Carrier)
}

func TestStripeEvents(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	res, err := w.checkout.CreateSession(ctx, w.buyer, w.product.ID, "")
	require.NoError(t, err)

	unpaid := payments.Event{Type: "checkout.session.completed",
		Object: []byte(`{"id":"` + res.SessionID + `","payment_status":"unpaid"}`)}
	require.NoError(t, w.events.Handle(ctx, unpaid))
	o, _ := w.orders.Get(res.OrderID)
	assert.Equal(t, domain.OrderPaymentPending, o.Status)

	paid := payments.Event{Type: "checkout.session.completed",
		Object: []byte(`{"id":"` + res.SessionID + `","payment_status":"paid","payment_intent":"pi_9"}`)}
	require.NoError(t, w.events.Handle(ctx, paid))
	require.NoError(t, w.events.Handle(ctx, paid))
	o, _ = w.orders.Get(res.OrderID)
	assert.Equal(t, domain.OrderPaymentConfirmed, o.Status)
	assert.Equal(t, "pi_9", o.PaymentIntentID)

	refunded := payments.Event{Type: "charge.refunded", Object: []byte(`{"payment_intent":"pi_9","refunded":true}`)}
	require.NoError(t, w.events.Handle(ctx, refunded))
	o, _ = w.orders.Get(res.OrderID)
	assert.Equal(t, domain.OrderRefunded, o.Status)
	assert.Equal(t, domain.HoldRefunded, o.HoldStatus)

	acct := payments.Event{Type: "account.updated",
		Object: []byte(`{"id":"acct_seller","details_submitted":true,"payouts_enabled":false}`)}
	require.NoError(t, w.events.Handle(ctx, acct))
	seller, _ := w.users.ByID(w.seller.ID)
	assert.False(t, seller.StripeOnboarded)

	require.NoError(t, w.events.Handle(ctx, payments.Event{Type: "invoice.paid", Object: []byte(`{}`)}))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, services.CanTransition(domain.OrderPaymentPending, domain.OrderPaymentConfirmed))
	assert.True(t, services.CanTransition(domain.OrderShipped, domain.OrderCompleted))
	assert.False(t, services.CanTransition(domain.OrderCompleted, domain.OrderRefunded))
	assert.False(t, services.CanTransition(domain.OrderPaymentPending, domain.OrderShipped))
}
