package services

import (
	"context"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/repos"
)

// pushTo looks up the recipient and hands the notification to n. Lookup
// failures are logged; a notification never fails the caller.
func pushTo(ctx context.Context, users *repos.UserRepo, n Notifier, userID string, p domain.Push) {
	if n == nil {
		return
	}
	u, err := users.ByID(userID)
	if err != nil {
		applog.Event("push.lookup", err, map[string]any{"user_id": userID})
		return
	}
	n.Notify(ctx, u, p)
}
