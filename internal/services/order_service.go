package services

import (
	"context"
	"errors"
	"time"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"
	"buttergolf/internal/payments"
	"buttergolf/internal/repos"
	"buttergolf/internal/shipping"
	"buttergolf/internal/validate"
)

// transitions lists the allowed status moves. SHIPPED goes straight to
// COMPLETED when the hold auto-releases without a delivery confirmation.
var transitions = map[string][]string{
	domain.OrderPaymentPending:   {domain.OrderPaymentConfirmed, domain.OrderCancelled},
	domain.OrderPaymentConfirmed: {domain.OrderShipped, domain.OrderCancelled, domain.OrderRefunded},
	domain.OrderShipped:          {domain.OrderDelivered, domain.OrderCompleted, domain.OrderRefunded},
	domain.OrderDelivered:        {domain.OrderCompleted, domain.OrderRefunded},
}

func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func badTransition(from, to string) error {
	return conflict("order can't move from %s to %s", from, to)
}

type OrderService struct {
	Orders  *repos.OrderRepo
	Prods   *repos.ProductRepo
	Users   *repos.UserRepo
	Offers  *repos.OfferRepo
	Pay     Payments
	Notify  Notifier
	Tracker Tracker

	HoldDays int
}

func NewOrderService(orders *repos.OrderRepo, prods *repos.ProductRepo, users *repos.UserRepo, offers *repos.OfferRepo,
	pay Payments, notify Notifier, tracker Tracker, holdDays int) *OrderService {
	return &OrderService{Orders: orders, Prods: prods, Users: users, Offers: offers,
		Pay: pay, Notify: notify, Tracker: tracker, HoldDays: holdDays}
}

// participantOrder hides orders from anyone but their buyer and seller.
func participantOrder(orders *repos.OrderRepo, u *domain.User, id string) (domain.Order, error) {
	o, err := orders.Get(id)
	if err != nil {
		return o, fromRepo(err, "order")
	}
	if o.BuyerID != u.ID && o.SellerID != u.ID {
		return domain.Order{}, notFound("order")
	}
	return o, nil
}

func counterpart(o domain.Order, u *domain.User) string {
	if o.BuyerID == u.ID {
		return o.SellerID
	}
	return o.BuyerID
}

func (s *OrderService) Get(u *domain.User, id string) (domain.Order, error) {
	return participantOrder(s.Orders, u, id)
}

// List returns the user's orders; role is "buyer", "seller" or empty for both.
func (s *OrderService) List(u *domain.User, role string) ([]domain.Order, error) {
	switch role {
	case "", "buyer", "seller":
	default:
		return nil, invalid("role must be buyer or seller")
	}
	return s.Orders.ListForUser(u.ID, role)
}

// ConfirmPayment applies a completed checkout. Replays of the same event are
// no-ops; changed reports whether this call moved the order.
func (s *OrderService) ConfirmPayment(ctx context.Context, sessionID, paymentIntentID string) (o domain.Order, changed bool, err error) {
	o, err = s.Orders.ByCheckoutSession(sessionID)
	if err != nil {
		return o, false, fromRepo(err, "order")
	}

	switch {
	case o.Status == domain.OrderCancelled && o.HoldStatus == domain.HoldNone:
		// paid after the checkout was superseded or cancelled
		if _, err := s.Pay.Refund(ctx, paymentIntentID, o.ID); err != nil {
			return o, false, err
		}
		err = s.Orders.Transition(o.ID, domain.OrderCancelled, domain.OrderCancelled, domain.HoldRefunded)
		return o, err == nil, fromRepo(err, "order")
	case o.Status != domain.OrderPaymentPending:
		return o, false, nil
	}

	if err := s.Orders.ConfirmPayment(o.ID, paymentIntentID); err != nil {
		if errors.Is(err, repos.ErrStale) {
			o, err = s.Orders.Get(o.ID)
			return o, false, err
		}
		return o, false, err
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderPaymentConfirmed).Inc()

	if err := s.Prods.SetSold(o.ProductID, true); err != nil {
		if !errors.Is(err, repos.ErrStale) {
			return o, true, err
		}
		// another order won the race for this item
		if _, err := s.Pay.Refund(ctx, paymentIntentID, o.ID); err != nil {
			return o, true, err
		}
		if err := s.Orders.Transition(o.ID, domain.OrderPaymentConfirmed, domain.OrderRefunded, domain.HoldRefunded); err != nil {
			return o, true, fromRepo(err, "order")
		}
		metrics.OrderTransitions.WithLabelValues(domain.OrderRefunded).Inc()
		pushTo(ctx, s.Users, s.Notify, o.BuyerID, domain.Push{
			Title: "Payment refunded", Body: "Sorry, " + o.ProductTitle + " sold moments before your payment.",
			Data: map[string]string{"orderId": o.ID},
		})
		o, err = s.Orders.Get(o.ID)
		return o, true, err
	}
	if _, err := s.Offers.RejectOthers(o.ProductID, ""); err != nil {
		applog.Event("offer.reject_others", err, map[string]any{"product_id": o.ProductID})
	}

	pushTo(ctx, s.Users, s.Notify, o.SellerID, domain.Push{
		Title: "You made a sale!", Body: o.ProductTitle + " has been paid for. Ship it to get paid.",
		Data: map[string]string{"orderId": o.ID, "type": "order.paid"},
	})
	o, err = s.Orders.Get(o.ID)
	return o, true, err
}

// Ship records the carrier and tracking number; seller only.
func (s *OrderService) Ship(ctx context.Context, u *domain.User, id, carrier, number string) (domain.Order, error) {
	o, err := participantOrder(s.Orders, u, id)
	if err != nil {
		return o, err
	}
	if o.SellerID != u.ID {
		return o, forbidden("only the seller can ship this order")
	}
	c, ok := validate.Carrier(carrier)
	if !ok {
		return o, invalid("invalid carrier")
	}
	n, ok := validate.TrackingNumber(number)
	if !ok {
		return o, invalid("invalid tracking number")
	}
	if !CanTransition(o.Status, domain.OrderShipped) {
		return o, badTransition(o.Status, domain.OrderShipped)
	}
	if err := s.Orders.SetShipment(o.ID, c, n); err != nil {
		return o, fromRepo(err, "order")
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderShipped).Inc()
	pushTo(ctx, s.Users, s.Notify, o.BuyerID, domain.Push{
		Title: "Your order is on its way", Body: o.ProductTitle + " has shipped.",
		Data: map[string]string{"orderId": o.ID, "type": "order.shipped"},
	})
	return s.Orders.Get(o.ID)
}

// ConfirmDelivery is the buyer's sign-off; it releases the held funds. A
// failed transfer leaves the order DELIVERED for the release job to retry.
func (s *OrderService) ConfirmDelivery(ctx context.Context, u *domain.User, id string) (domain.Order, error) {
	o, err := participantOrder(s.Orders, u, id)
	if err != nil {
		return o, err
	}
	if o.BuyerID != u.ID {
		return o, forbidden("only the buyer can confirm delivery")
	}
	if !CanTransition(o.Status, domain.OrderDelivered) {
		return o, badTransition(o.Status, domain.OrderDelivered)
	}
	if err := s.Orders.SetDelivered(o.ID); err != nil {
		return o, fromRepo(err, "order")
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderDelivered).Inc()

	o.Status = domain.OrderDelivered
	if err := s.release(ctx, o); err != nil {
		applog.Event("order.release", err, map[string]any{"order_id": o.ID})
	}
	return s.Orders.Get(o.ID)
}

func (s *OrderService) release(ctx context.Context, o domain.Order) error {
	if !CanTransition(o.Status, domain.OrderCompleted) || o.HoldStatus == domain.HoldReleased {
		return badTransition(o.Status, domain.OrderCompleted)
	}
	seller, err := s.Users.ByID(o.SellerID)
	if err != nil {
		return err
	}
	if seller.StripeAccountID == "" {
		return errors.New("seller has no payout account")
	}
	trID, err := s.Pay.Transfer(ctx, payments.TransferRequest{
		OrderID: o.ID, Amount: o.Payout(), Currency: o.Currency, Destination: seller.StripeAccountID,
	})
	if err != nil {
		return err
	}
	if err := s.Orders.SetReleased(o.ID, o.Status, trID); err != nil {
		return fromRepo(err, "order")
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderCompleted).Inc()
	s.Notify.Notify(ctx, seller, domain.Push{
		Title: "Funds released", Body: "Your payout for " + o.ProductTitle + " is on its way.",
		Data: map[string]string{"orderId": o.ID, "type": "order.completed"},
	})
	return nil
}

// Cancel is open to both parties until the item ships. Paid orders are
// refunded and the listing goes back on sale.
func (s *OrderService) Cancel(ctx context.Context, u *domain.User, id string) (domain.Order, error) {
	o, err := participantOrder(s.Orders, u, id)
	if err != nil {
		return o, err
	}
	switch o.Status {
	case domain.OrderPaymentPending:
		if err := s.Orders.Transition(o.ID, o.Status, domain.OrderCancelled, ""); err != nil {
			return o, fromRepo(err, "order")
		}
	case domain.OrderPaymentConfirmed:
		if _, err := s.Pay.Refund(ctx, o.PaymentIntentID, o.ID); err != nil {
			return o, err
		}
		if err := s.Orders.Transition(o.ID, o.Status, domain.OrderCancelled, domain.HoldRefunded); err != nil {
			if !errors.Is(err, repos.ErrStale) {
				return o, fromRepo(err, "order")
			}
			// a refund webhook got there first; the buyer has their money back
			cur, gerr := s.Orders.Get(o.ID)
			if gerr == nil && cur.HoldStatus == domain.HoldRefunded {
				return cur, nil
			}
			return o, fromRepo(err, "order")
		}
		if err := s.Prods.SetSold(o.ProductID, false); err != nil && !errors.Is(err, repos.ErrStale) {
			return o, err
		}
	default:
		return o, badTransition(o.Status, domain.OrderCancelled)
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderCancelled).Inc()
	pushTo(ctx, s.Users, s.Notify, counterpart(o, u), domain.Push{
		Title: "Order cancelled", Body: "The order for " + o.ProductTitle + " was cancelled.",
		Data: map[string]string{"orderId": o.ID, "type": "order.cancelled"},
	})
	return s.Orders.Get(o.ID)
}

// RecordRefund applies a refund issued outside the API (dashboard or dispute).
func (s *OrderService) RecordRefund(ctx context.Context, paymentIntentID string) (domain.Order, error) {
	o, err := s.Orders.ByPaymentIntent(paymentIntentID)
	if err != nil {
		return o, fromRepo(err, "order")
	}
	if o.HoldStatus != domain.HoldHeld {
		return o, nil
	}
	if !CanTransition(o.Status, domain.OrderRefunded) {
		return o, badTransition(o.Status, domain.OrderRefunded)
	}
	if err := s.Orders.Transition(o.ID, o.Status, domain.OrderRefunded, domain.HoldRefunded); err != nil {
		return o, fromRepo(err, "order")
	}
	if o.Status == domain.OrderPaymentConfirmed {
		if err := s.Prods.SetSold(o.ProductID, false); err != nil && !errors.Is(err, repos.ErrStale) {
			return o, err
		}
	}
	metrics.OrderTransitions.WithLabelValues(domain.OrderRefunded).Inc()
	pushTo(ctx, s.Users, s.Notify, o.BuyerID, domain.Push{
		Title: "Refund issued", Body: "You've been refunded for " + o.ProductTitle + ".",
		Data: map[string]string{"orderId": o.ID, "type": "order.refunded"},
	})
	return s.Orders.Get(o.ID)
}

// ReleaseDue pays out holds that sat DELIVERED, or SHIPPED without a buyer
// confirmation, for longer than the hold window.
func (s *OrderService) ReleaseDue(ctx context.Context, now time.Time) (int, error) {
	cutoff := repos.Stamp(now.Add(-time.Duration(s.HoldDays) * 24 * time.Hour))
	due, err := s.Orders.DueForRelease(cutoff)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, o := range due {
		if err := s.release(ctx, o); err != nil {
			metrics.JobRuns.WithLabelValues("release", "error").Inc()
			applog.Event("order.release", err, map[string]any{"order_id": o.ID, "status": o.Status})
			continue
		}
		metrics.JobRuns.WithLabelValues("release", "ok").Inc()
		released++
	}
	return released, nil
}

// Tracking asks the carrier for the shipment's progress.
func (s *OrderService) Tracking(ctx context.Context, u *domain.User, id string) (domain.Tracking, error) {
	o, err := participantOrder(s.Orders, u, id)
	if err != nil {
		return domain.Tracking{}, err
	}
	if o.TrackingNumber == "" {
		return domain.Tracking{}, conflict("order hasn't shipped yet")
	}
	tr, err := s.Tracker.Track(ctx, o.Carrier, o.TrackingNumber)
	if errors.Is(err, shipping.ErrUnknownShipment) {
		return tr, notFound("shipment")
	}
	return tr, err
}

// ExpireCheckout cancels the order behind an abandoned checkout session.
func (s *OrderService) ExpireCheckout(sessionID string) error {
	o, err := s.Orders.ByCheckoutSession(sessionID)
	if err != nil {
		return fromRepo(err, "order")
	}
	if o.Status != domain.OrderPaymentPending {
		return nil
	}
	err = s.Orders.Transition(o.ID, domain.OrderPaymentPending, domain.OrderCancelled, "")
	if errors.Is(err, repos.ErrStale) {
		return nil
	}
	if err == nil {
		metrics.OrderTransitions.WithLabelValues(domain.OrderCancelled).Inc()
	}
	return err
}
