// Package notify delivers mobile push notifications through the Expo relay.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var ErrDeviceGone = errors.New("device not registered")

type message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Expo posts to the relay at URL, throttled to the configured rate.
type Expo struct {
	URL     string
	Timeout time.Duration
	limiter *rate.Limiter

	// Forget is called with the user id when the relay reports the device
	// token is dead.
	Forget func(userID string) error
}

func NewExpo(url string, perSecond float64) *Expo {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Expo{
		URL:     url,
		Timeout: 10 * time.Second,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

// Notify sends in the background and never blocks the request that
// triggered it.
func (e *Expo) Notify(ctx context.Context, to *domain.User, p domain.Push) {
	if to == nil || to.PushToken == "" {
		metrics.PushSends.WithLabelValues("skipped").Inc()
		return
	}
	ctx = context.WithoutCancel(ctx)
	userID, token := to.ID, to.PushToken
	go func() {
		err := e.Send(ctx, token, p)
		switch {
		case err == nil:
			return
		case errors.Is(err, ErrDeviceGone) && e.Forget != nil:
			if ferr := e.Forget(userID); ferr != nil {
				applog.Event("push.forget", ferr, map[string]any{"user_id": userID})
			}
		}
		applog.Event("push.send", err, map[string]any{"user_id": userID, "title": p.Title})
	}()
}

// Send delivers one notification synchronously.
func (e *Expo) Send(ctx context.Context, token string, p domain.Push) error {
	if err := e.limiter.Wait(ctx); err != nil {
		metrics.PushSends.WithLabelValues("throttled").Inc()
		return err
	}
	code, body, errs := fiber.Post(e.URL).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		JSON(message{To: token, Title: p.Title, Body: p.Body, Data: p.Data, Sound: "default"}).
		Timeout(e.Timeout).
		Bytes()
	if len(errs) > 0 {
		metrics.PushSends.WithLabelValues("error").Inc()
		return errors.Join(errs...)
	}
	if code >= 300 {
		metrics.PushSends.WithLabelValues("error").Inc()
		return fmt.Errorf("push relay status %d", code)
	}

	// the relay answers 200 with a per-ticket status
	ticket := gjson.GetBytes(body, "data")
	if ticket.IsArray() {
		ticket = ticket.Get("0")
	}
	if ticket.Get("status").String() == "error" {
		metrics.PushSends.WithLabelValues("rejected").Inc()
		if ticket.Get("details.error").String() == "DeviceNotRegistered" {
			return ErrDeviceGone
		}
		return fmt.Errorf("push rejected: %s", ticket.Get("message").String())
	}
	metrics.PushSends.WithLabelValues("sent").Inc()
	return nil
}

// Nop drops every notification. Used when no relay is configured.
type Nop struct{}

func (Nop) Notify(context.Context, *domain.User, domain.Push) {}
