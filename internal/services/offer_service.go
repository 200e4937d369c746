package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"
)

type OfferService struct {
	Offers *repos.OfferRepo
	Prods  *repos.ProductRepo
	Users  *repos.UserRepo
	Notify Notifier

	TTL time.Duration
}

func NewOfferService(offers *repos.OfferRepo, prods *repos.ProductRepo, users *repos.UserRepo, notify Notifier, ttl time.Duration) *OfferService {
	return &OfferService{Offers: offers, Prods: prods, Users: users, Notify: notify, TTL: ttl}
}

func (s *OfferService) expiry() string { return repos.Stamp(repos.Now().Add(s.TTL)) }

func money(f float64) string { return fmt.Sprintf("£%.2f", f) }

// Make places a buyer's offer below the asking price. One open offer per
// buyer and product.
func (s *OfferService) Make(ctx context.Context, buyer *domain.User, productID string, amount float64) (domain.Offer, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return domain.Offer{}, fromRepo(err, "product")
	}
	if p.SellerID == buyer.ID {
		return domain.Offer{}, invalid("you can't make an offer on your own listing")
	}
	if p.IsSold {
		return domain.Offer{}, conflict("product has already sold")
	}
	if !validate.Price(amount) || amount >= p.Price {
		return domain.Offer{}, invalid("offer must be above zero and below the asking price")
	}
	if _, err := s.Offers.OpenFor(p.ID, buyer.ID); err == nil {
		return domain.Offer{}, conflict("you already have an open offer on this product")
	} else if !errors.Is(err, repos.ErrNotFound) {
		return domain.Offer{}, err
	}

	o, err := s.Offers.Create(p.ID, buyer.ID, p.SellerID, amount, s.expiry())
	if err != nil {
		return o, err
	}
	pushTo(ctx, s.Users, s.Notify, p.SellerID, domain.Push{
		Title: "New offer", Body: money(amount) + " offered for " + p.Title,
		Data: map[string]string{"offerId": o.ID, "productId": p.ID, "type": "offer.new"},
	})
	return o, nil
}

func (s *OfferService) participantOffer(u *domain.User, id string) (domain.Offer, error) {
	o, err := s.Offers.Get(id)
	if err != nil {
		return o, fromRepo(err, "offer")
	}
	if o.BuyerID != u.ID && o.SellerID != u.ID {
		return domain.Offer{}, notFound("offer")
	}
	return o, nil
}

// live rejects offers that are closed or past their expiry; the latter are
// marked EXPIRED on the way.
func (s *OfferService) live(o domain.Offer) error {
	if !o.Open() {
		return conflict("offer is %s", o.Status)
	}
	if o.ExpiresAt < repos.Stamp(repos.Now()) {
		if err := s.Offers.SetStatus(o.ID, domain.OfferExpired, o.Status); err != nil && !errors.Is(err, repos.ErrStale) {
			return err
		}
		return conflict("offer has expired")
	}
	return nil
}

// Get is the polling endpoint for both parties.
func (s *OfferService) Get(u *domain.User, id string) (domain.Offer, error) {
	return s.participantOffer(u, id)
}

// List shows the seller every offer on their product and a buyer only theirs.
func (s *OfferService) List(u *domain.User, productID string) ([]domain.Offer, error) {
	p, err := s.Prods.Get(productID)
	if err != nil {
		return nil, fromRepo(err, "product")
	}
	if p.SellerID == u.ID {
		return s.Offers.ListForProduct(p.ID, "")
	}
	return s.Offers.ListForProduct(p.ID, u.ID)
}

// Accept closes the deal: the seller accepts a pending offer, the buyer a
// counter. Other open offers on the product are rejected.
func (s *OfferService) Accept(ctx context.Context, u *domain.User, id string) (domain.Offer, error) {
	o, err := s.participantOffer(u, id)
	if err != nil {
		return o, err
	}
	if err := s.live(o); err != nil {
		return o, err
	}
	switch {
	case o.Status == domain.OfferPending && u.ID == o.SellerID,
		o.Status == domain.OfferCountered && u.ID == o.BuyerID:
	default:
		return o, forbidden("it's the other party's turn to respond")
	}
	if err := s.Offers.Accept(o.ID, o.Status); err != nil {
		return o, fromRepo(err, "offer")
	}
	if _, err := s.Offers.RejectOthers(o.ProductID, o.ID); err != nil {
		applog.Event("offer.reject_others", err, map[string]any{"product_id": o.ProductID})
	}
	o, err = s.Offers.Get(o.ID)
	if err != nil {
		return o, err
	}
	s.tell(ctx, o, u, "Offer accepted", money(o.Amount)+" was accepted. Checkout is ready.", "offer.accepted")
	return o, nil
}

func (s *OfferService) Reject(ctx context.Context, u *domain.User, id string) (domain.Offer, error) {
	o, err := s.participantOffer(u, id)
	if err != nil {
		return o, err
	}
	if err := s.live(o); err != nil {
		return o, err
	}
	switch {
	case o.Status == domain.OfferPending && u.ID == o.SellerID,
		o.Status == domain.OfferCountered && u.ID == o.BuyerID:
	default:
		return o, forbidden("it's the other party's turn to respond")
	}
	if err := s.Offers.SetStatus(o.ID, domain.OfferRejected, o.Status); err != nil {
		return o, fromRepo(err, "offer")
	}
	o.Status = domain.OfferRejected
	s.tell(ctx, o, u, "Offer declined", "Your offer was declined.", "offer.rejected")
	return o, nil
}

// Counter lets the seller answer a pending offer with a new amount between
// the offer and the asking price.
func (s *OfferService) Counter(ctx context.Context, u *domain.User, id string, amount float64) (domain.Offer, error) {
	o, err := s.participantOffer(u, id)
	if err != nil {
		return o, err
	}
	if u.ID != o.SellerID {
		return o, forbidden("only the seller can counter")
	}
	if err := s.live(o); err != nil {
		return o, err
	}
	if o.Status != domain.OfferPending {
		return o, conflict("offer is %s", o.Status)
	}
	p, err := s.Prods.Get(o.ProductID)
	if err != nil {
		return o, fromRepo(err, "product")
	}
	if !validate.Price(amount) || amount <= o.Amount || amount >= p.Price {
		return o, invalid("counter must be between the offer and the asking price")
	}
	if err := s.Offers.Counter(o.ID, amount, s.expiry()); err != nil {
		return o, fromRepo(err, "offer")
	}
	o, err = s.Offers.Get(o.ID)
	if err != nil {
		return o, err
	}
	s.tell(ctx, o, u, "Counter offer", "The seller countered with "+money(amount)+".", "offer.countered")
	return o, nil
}

// Withdraw lets the buyer pull an open offer.
func (s *OfferService) Withdraw(ctx context.Context, u *domain.User, id string) (domain.Offer, error) {
	o, err := s.participantOffer(u, id)
	if err != nil {
		return o, err
	}
	if u.ID != o.BuyerID {
		return o, forbidden("only the buyer can withdraw")
	}
	if !o.Open() {
		return o, conflict("offer is %s", o.Status)
	}
	if err := s.Offers.SetStatus(o.ID, domain.OfferWithdrawn, domain.OfferPending, domain.OfferCountered); err != nil {
		return o, fromRepo(err, "offer")
	}
	o.Status = domain.OfferWithdrawn
	s.tell(ctx, o, u, "Offer withdrawn", "An offer on your listing was withdrawn.", "offer.withdrawn")
	return o, nil
}

// ExpireDue closes open offers whose expiry has passed.
func (s *OfferService) ExpireDue(now time.Time) (int64, error) {
	return s.Offers.ExpireBefore(repos.Stamp(now))
}

func (s *OfferService) tell(ctx context.Context, o domain.Offer, actor *domain.User, title, body, kind string) {
	to := o.BuyerID
	if actor.ID == o.BuyerID {
		to = o.SellerID
	}
	pushTo(ctx, s.Users, s.Notify, to, domain.Push{
		Title: title, Body: body,
		Data: map[string]string{"offerId": o.ID, "productId": o.ProductID, "type": kind},
	})
}
