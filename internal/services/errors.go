package services

import (
	"context"
	"errors"
	"fmt"

	"buttergolf/internal/domain"
	"buttergolf/internal/payments"
	"buttergolf/internal/repos"
)

// Error kinds; handlers map them to status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error carries a client-safe message alongside its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func invalid(format string, a ...any) error {
	return &Error{Kind: ErrInvalid, Msg: fmt.Sprintf(format, a...)}
}

func conflict(format string, a ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, a...)}
}

func notFound(what string) error { return &Error{Kind: ErrNotFound, Msg: what + " not found"} }

func forbidden(msg string) error { return &Error{Kind: ErrForbidden, Msg: msg} }

// fromRepo translates repo sentinels; other errors pass through untouched.
func fromRepo(err error, what string) error {
	switch {
	case errors.Is(err, repos.ErrNotFound):
		return notFound(what)
	case errors.Is(err, repos.ErrStale):
		return conflict("%s was changed by another request", what)
	}
	return err
}

// Payments is the payment provider surface the services depend on.
type Payments interface {
	CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error)
	CreateConnectAccount(ctx context.Context, email, userID string) (string, error)
	CreateAccountSession(ctx context.Context, accountID string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	Transfer(ctx context.Context, req payments.TransferRequest) (string, error)
	Refund(ctx context.Context, paymentIntentID, orderID string) (string, error)
}

// Notifier delivers push notifications. Delivery failures are the
// notifier's to log; callers never see them.
type Notifier interface {
	Notify(ctx context.Context, to *domain.User, p domain.Push)
}

// Broker fans out live messages across API instances.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

type Tracker interface {
	Track(ctx context.Context, carrier, number string) (domain.Tracking, error)
}
