package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buttergolf/internal/repos"
	"buttergolf/internal/services"
)

func TestMessages_SendReachesSubscriber(t *testing.T) {
	w := newWorld(t)
	o := w.paidOrder(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live, err := w.msgSvc.Subscribe(ctx, w.buyer, o.ID)
	require.NoError(t, err)

	sent, err := w.msgSvc.Send(ctx, w.seller, o.ID, "  Posting it tomorrow  ")
	require.NoError(t, err)
	assert.Equal(t, "Posting it tomorrow", sent.Body)

	select {
	case m := <-live:
		assert.Equal(t, sent.ID, m.ID)
		assert.Equal(t, w.seller.ID, m.SenderID)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber got nothing")
	}
	assert.Contains(t, w.push.titlesFor(w.buyer.ID), "New message")

	list, err := w.msgSvc.List(w.buyer, o.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	cancel()
	for range live {
	}
}

func TestMessages_Guards(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	o := w.paidOrder(t)

	_, err := w.msgSvc.Send(ctx, w.stranger, o.ID, "hello")
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = w.msgSvc.Subscribe(ctx, w.stranger, o.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = w.msgSvc.Send(ctx, w.buyer, o.ID, "   ")
	assert.ErrorIs(t, err, services.ErrInvalid)
	_, err = w.msgSvc.Send(ctx, w.buyer, o.ID, strings.Repeat("x", 2001))
	assert.ErrorIs(t, err, services.ErrInvalid)
}

func TestMessages_SubscribeWithoutBroker(t *testing.T) {
	w := newWorld(t)
	o := w.paidOrder(t)
	svc := services.NewMessageService(repos.NewMessageRepo(w.db), w.orders, w.users, nil, w.push)

	_, err := svc.Subscribe(context.Background(), w.buyer, o.ID)
	assert.ErrorIs(t, err, services.ErrConflict)

	// sending still works; only live delivery is missing
	_, err = svc.Send(context.Background(), w.buyer, o.ID, "still there?")
	assert.NoError(t, err)
}
