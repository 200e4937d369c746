package repos

import (
	"database/sql"
	"errors"

	"buttergolf/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, clerk_id, email, name, COALESCE(image_url,'') AS image_url,
	COALESCE(stripe_account_id,'') AS stripe_account_id, stripe_onboarded,
	COALESCE(push_token,'') AS push_token, created_at`

func (r *UserRepo) one(query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.DB.Get(&u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE `+query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(id string) (*domain.User, error) {
	return r.one(`id = ?`, id)
}

func (r *UserRepo) ByClerkID(clerkID string) (*domain.User, error) {
	return r.one(`clerk_id = ?`, clerkID)
}

func (r *UserRepo) ByStripeAccount(accountID string) (*domain.User, error) {
	return r.one(`stripe_account_id = ?`, accountID)
}

// ProviderProfile is the subset of identity-provider data mirrored locally.
type ProviderProfile struct {
	ClerkID  string
	Email    string
	Name     string
	ImageURL string
}

// UpsertFromProvider creates the local user row for a provider id or refreshes its profile.
// Empty profile fields never overwrite stored values.
func (r *UserRepo) UpsertFromProvider(p ProviderProfile) (*domain.User, error) {
	now := nowStamp()
	_, err := r.DB.Exec(r.DB.Rebind(`
		INSERT INTO users(id, clerk_id, email, name, image_url, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(clerk_id) DO UPDATE SET
		  email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
		  name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
		  image_url = COALESCE(excluded.image_url, users.image_url),
		  updated_at = excluded.updated_at
	`), uuid.NewString(), p.ClerkID, p.Email, p.Name, nullable(p.ImageURL), now, now)
	if err != nil {
		return nil, err
	}
	return r.ByClerkID(p.ClerkID)
}

// DeleteByClerkID removes the user; listings, favorites, addresses and offers cascade.
func (r *UserRepo) DeleteByClerkID(clerkID string) error {
	res, err := r.DB.Exec(r.DB.Rebind(`DELETE FROM users WHERE clerk_id = ?`), clerkID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetStripeAccount(userID, accountID string) error {
	_, err := r.DB.Exec(r.DB.Rebind(`UPDATE users SET stripe_account_id = ?, updated_at = ? WHERE id = ?`),
		accountID, nowStamp(), userID)
	return err
}

// SetOnboarded flags the seller behind a Connect account; false when no user owns it.
func (r *UserRepo) SetOnboarded(accountID string, onboarded bool) (bool, error) {
	res, err := r.DB.Exec(r.DB.Rebind(`UPDATE users SET stripe_onboarded = ?, updated_at = ? WHERE stripe_account_id = ?`),
		onboarded, nowStamp(), accountID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *UserRepo) SetPushToken(userID, token string) error {
	_, err := r.DB.Exec(r.DB.Rebind(`UPDATE users SET push_token = ?, updated_at = ? WHERE id = ?`),
		nullable(token), nowStamp(), userID)
	return err
}

// Anonymize scrubs the profile of a user who still has orders on record.
func (r *UserRepo) Anonymize(clerkID string) error {
	res, err := r.DB.Exec(r.DB.Rebind(`
		UPDATE users SET clerk_id = ?, email = '', name = 'Deleted user', image_url = NULL,
		       push_token = NULL, updated_at = ?
		WHERE clerk_id = ?
	`), "deleted_"+uuid.NewString(), nowStamp(), clerkID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
