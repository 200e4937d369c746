package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	applog "buttergolf/internal/log"
	"buttergolf/internal/services"

	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	Msgs *services.MessageService

	// Heartbeat keeps idle streams open through proxies.
	Heartbeat time.Duration
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	list, err := h.Msgs.List(currentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": list})
}

// POST /api/orders/:id/messages {body}
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var in struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body")
	}
	m, err := h.Msgs.Send(c.UserContext(), currentUser(c), c.Params("id"), in.Body)
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "message.send", map[string]any{"order_id": m.OrderID, "message_id": m.ID})
	return c.Status(fiber.StatusCreated).JSON(m)
}

// GET /api/orders/:id/messages/stream delivers new messages as server-sent
// events until the client goes away.
func (h *MessageHandler) Stream(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(context.Background())
	live, err := h.Msgs.Subscribe(ctx, currentUser(c), c.Params("id"))
	if err != nil {
		cancel()
		return fail(c, err)
	}
	orderID := strings.Clone(c.Params("id"))
	applog.Info(c, "message.stream.open", map[string]any{"order_id": orderID})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	beat := h.Heartbeat
	if beat <= 0 {
		beat = 25 * time.Second
	}
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(beat)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case m, ok := <-live:
				if !ok {
					return
				}
				b, _ := json.Marshal(m)
				fmt.Fprintf(w, "event: message\nid: %s\ndata: %s\n\n", m.ID, b)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				applog.Event("message.stream.close", nil, map[string]any{"order_id": orderID})
				return
			}
		}
	})
	return nil
}
