package services

import (
	"errors"
	"strings"

	"buttergolf/internal/domain"
	applog "buttergolf/internal/log"
	"buttergolf/internal/repos"
	"buttergolf/internal/validate"

	"github.com/tidwall/gjson"
)

type UserService struct {
	Users *repos.UserRepo
}

func NewUserService(users *repos.UserRepo) *UserService { return &UserService{Users: users} }

func (s *UserService) Me(u *domain.User) (*domain.User, error) {
	fresh, err := s.Users.ByID(u.ID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	return fresh, nil
}

// SetPushToken stores the device's Expo token; an empty token clears it.
func (s *UserService) SetPushToken(u *domain.User, token string) error {
	if strings.TrimSpace(token) != "" {
		t, ok := validate.PushToken(token)
		if !ok {
			return invalid("invalid push token")
		}
		token = t
	}
	return s.Users.SetPushToken(u.ID, strings.TrimSpace(token))
}

// SyncFromWebhook mirrors a verified user.created, user.updated or
// user.deleted event. Other event types are ignored.
func (s *UserService) SyncFromWebhook(payload []byte) (string, error) {
	ev := gjson.ParseBytes(payload)
	typ := ev.Get("type").String()
	data := ev.Get("data")
	clerkID := data.Get("id").String()
	if clerkID == "" && strings.HasPrefix(typ, "user.") {
		return typ, invalid("event has no user id")
	}

	switch typ {
	case "user.created", "user.updated":
		_, err := s.Users.UpsertFromProvider(repos.ProviderProfile{
			ClerkID:  clerkID,
			Email:    primaryEmail(data),
			Name:     strings.TrimSpace(data.Get("first_name").String() + " " + data.Get("last_name").String()),
			ImageURL: data.Get("image_url").String(),
		})
		return typ, err
	case "user.deleted":
		err := s.Users.DeleteByClerkID(clerkID)
		switch {
		case err == nil, errors.Is(err, repos.ErrNotFound):
			return typ, nil
		default:
			// order history keeps the row alive
			applog.Event("user.delete", err, map[string]any{"clerk_id": clerkID, "fallback": "anonymize"})
			return typ, s.Users.Anonymize(clerkID)
		}
	}
	return typ, nil
}

func primaryEmail(data gjson.Result) string {
	primary := data.Get("primary_email_address_id").String()
	var first string
	for _, e := range data.Get("email_addresses").Array() {
		addr := e.Get("email_address").String()
		if e.Get("id").String() == primary {
			return addr
		}
		if first == "" {
			first = addr
		}
	}
	return first
}

// MarkOnboarded applies an account.updated object: the seller can be paid
// once details are submitted and payouts are enabled.
func (s *UserService) MarkOnboarded(account []byte) (bool, error) {
	acct := gjson.ParseBytes(account)
	id := acct.Get("id").String()
	if id == "" {
		return false, invalid("account has no id")
	}
	ready := acct.Get("details_submitted").Bool() && acct.Get("payouts_enabled").Bool()
	if _, err := s.Users.SetOnboarded(id, ready); err != nil {
		return false, err
	}
	return ready, nil
}
