package services

import (
	"context"
	"encoding/json"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"
)

type MessageService struct {
	Msgs   *repos.MessageRepo
	Orders *repos.OrderRepo
	Users  *repos.UserRepo
	Broker Broker
	Notify Notifier
}

func NewMessageService(msgs *repos.MessageRepo, orders *repos.OrderRepo, users *repos.UserRepo, b Broker, n Notifier) *MessageService {
	return &MessageService{Msgs: msgs, Orders: orders, Users: users, Broker: b, Notify: n}
}

// Channel is the pub/sub channel carrying an order's live messages.
func Channel(orderID string) string { return "order:" + orderID }

// List returns the conversation and marks the counterpart's messages read.
func (s *MessageService) List(u *domain.User, orderID string) ([]domain.Message, error) {
	o, err := participantOrder(s.Orders, u, orderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Msgs.MarkRead(o.ID, u.ID); err != nil {
		return nil, err
	}
	return s.Msgs.List(o.ID)
}

// Send stores the message, then publishes it and pushes the counterpart.
// Publish and push failures are logged only.
func (s *MessageService) Send(ctx context.Context, u *domain.User, orderID, body string) (domain.Message, error) {
	o, err := participantOrder(s.Orders, u, orderID)
	if err != nil {
		return domain.Message{}, err
	}
	body, ok := validate.Text(body, 1, 2000)
	if !ok {
		return domain.Message{}, invalid("message must be 1-2000 characters")
	}
	m, err := s.Msgs.Create(o.ID, u.ID, body)
	if err != nil {
		return m, err
	}

	if s.Broker != nil {
		payload, _ := json.Marshal(m)
		if err := s.Broker.Publish(ctx, Channel(o.ID), payload); err != nil {
			applog.Event("message.publish", err, map[string]any{"order_id": o.ID})
		}
	}
	preview := body
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "…"
	}
	pushTo(ctx, s.Users, s.Notify, counterpart(o, u), domain.Push{
		Title: "New message", Body: preview,
		Data: map[string]string{"orderId": o.ID, "type": "message.new"},
	})
	return m, nil
}

// Subscribe streams messages published for the order until ctx ends.
func (s *MessageService) Subscribe(ctx context.Context, u *domain.User, orderID string) (<-chan domain.Message, error) {
	o, err := participantOrder(s.Orders, u, orderID)
	if err != nil {
		return nil, err
	}
	if s.Broker == nil {
		return nil, conflict("live delivery unavailable")
	}
	raw, err := s.Broker.Subscribe(ctx, Channel(o.ID))
	if err != nil {
		return nil, err
	}
	out := make(chan domain.Message)
	go func() {
		defer close(out)
		for payload := range raw {
			var m domain.Message
			if err := json.Unmarshal(payload, &m); err != nil {
				applog.Event("message.decode", err, map[string]any{"order_id": o.ID})
				continue
			}
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
