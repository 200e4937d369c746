// Package shipping looks up parcel progress from the tracking aggregator.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"buttergolf/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
)

var ErrUnknownShipment = errors.New("shipment not found at carrier")

// StatusPending is reported when no aggregator is configured or it has no
// checkpoints yet.
const StatusPending = "Pending"

type Tracker struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewTracker(baseURL, apiKey string) *Tracker {
	return &Tracker{BaseURL: baseURL, APIKey: apiKey, Timeout: 8 * time.Second}
}

func (t *Tracker) Track(ctx context.Context, carrier, number string) (domain.Tracking, error) {
	out := domain.Tracking{Carrier: carrier, TrackingNumber: number, Status: StatusPending, Events: []domain.TrackingEvent{}}
	if t.BaseURL == "" {
		return out, nil
	}
	timeout := t.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return out, context.DeadlineExceeded
	}

	endpoint := fmt.Sprintf("%s/trackings/%s/%s", t.BaseURL, url.PathEscape(carrier), url.PathEscape(number))
	code, body, errs := fiber.Get(endpoint).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Set("as-api-key", t.APIKey).
		Timeout(timeout).
		Bytes()
	if len(errs) > 0 {
		return out, errors.Join(errs...)
	}
	switch {
	case code == fiber.StatusNotFound:
		return out, ErrUnknownShipment
	case code >= 300:
		return out, fmt.Errorf("tracking api status %d", code)
	}
	return parse(out, body), nil
}

func parse(out domain.Tracking, body []byte) domain.Tracking {
	tr := gjson.GetBytes(body, "data.tracking")
	if tag := tr.Get("tag").String(); tag != "" {
		out.Status = tag
	}
	out.EstimatedDelivery = tr.Get("expected_delivery").String()
	cps := tr.Get("checkpoints").Array()
	// newest first
	for i := len(cps) - 1; i >= 0; i-- {
		cp := cps[i]
		out.Events = append(out.Events, domain.TrackingEvent{
			Time:        cp.Get("checkpoint_time").String(),
			Status:      cp.Get("tag").String(),
			Description: cp.Get("message").String(),
			Location:    cp.Get("location").String(),
		})
	}
	return out
}
