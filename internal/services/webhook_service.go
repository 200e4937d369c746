package services

import (
	"context"

	"buttergolf/internal/payments"

	"github.com/tidwall/gjson"
)

// StripeEvents routes verified payment events to the services that own them.
type StripeEvents struct {
	Orders *OrderService
	Users  *UserService
}

func NewStripeEvents(orders *OrderService, users *UserService) *StripeEvents {
	return &StripeEvents{Orders: orders, Users: users}
}

// Handle applies one event. Unknown types are acknowledged and ignored so the
// provider stops retrying them.
func (h *StripeEvents) Handle(ctx context.Context, ev payments.Event) error {
	obj := gjson.ParseBytes(ev.Object)
	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		if obj.Get("payment_status").String() != "paid" {
			return nil
		}
		_, _, err := h.Orders.ConfirmPayment(ctx, obj.Get("id").String(), obj.Get("payment_intent").String())
		return err
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		return h.Orders.ExpireCheckout(obj.Get("id").String())
	case "charge.refunded":
		if !obj.Get("refunded").Bool() {
			return nil // partial refunds are handled by support
		}
		_, err := h.Orders.RecordRefund(ctx, obj.Get("payment_intent").String())
		return err
	case "account.updated":
		_, err := h.Users.MarkOnboarded(ev.Object)
		return err
	}
	return nil
}
