package repos

import (
	"database/sql"
	"errors"

	"buttergolf/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AddressRepo struct{ db *sqlx.DB }

func NewAddressRepo(db *sqlx.DB) *AddressRepo { return &AddressRepo{db: db} }

const addressCols = `id, user_id, name, line1, line2, city, county, postcode, country, phone,
	is_default, created_at, COALESCE(updated_at,'') AS updated_at`

type AddressInput struct {
	Name     string
	Line1    string
	Line2    string
	City     string
	County   string
	Postcode string
	Country  string
	Phone    string
}

// List puts the default address first, then newest.
func (r *AddressRepo) List(userID string) ([]domain.Address, error) {
	out := []domain.Address{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT `+addressCols+`
	  FROM addresses
	  WHERE user_id = ?
	  ORDER BY is_default DESC, created_at DESC
	`), userID)
	return out, err
}

func (r *AddressRepo) Get(userID, id string) (domain.Address, error) {
	var a domain.Address
	err := r.db.Get(&a, r.db.Rebind(`SELECT `+addressCols+` FROM addresses WHERE id = ? AND user_id = ?`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (r *AddressRepo) Default(userID string) (domain.Address, error) {
	var a domain.Address
	err := r.db.Get(&a, r.db.Rebind(`SELECT `+addressCols+` FROM addresses WHERE user_id = ? AND is_default = ?`), userID, true)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

// Create inserts an address. The user's first address is always the default; when
// makeDefault is set every other address of the user loses the flag in the same tx.
func (r *AddressRepo) Create(userID string, in AddressInput, makeDefault bool) (domain.Address, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Address{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.Get(&n, tx.Rebind(`SELECT COUNT(*) FROM addresses WHERE user_id = ?`), userID); err != nil {
		return domain.Address{}, err
	}
	if n == 0 {
		makeDefault = true
	}
	if makeDefault {
		if err := unsetDefaults(tx, userID); err != nil {
			return domain.Address{}, err
		}
	}

	id := uuid.NewString()
	if _, err := tx.Exec(tx.Rebind(`
	  INSERT INTO addresses(id, user_id, name, line1, line2, city, county, postcode, country, phone, is_default, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, userID, in.Name, in.Line1, in.Line2, in.City, in.County, in.Postcode, in.Country, in.Phone,
		makeDefault, nowStamp()); err != nil {
		return domain.Address{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Address{}, err
	}
	return r.Get(userID, id)
}

// Update rewrites the address fields; makeDefault promotes it in the same tx.
func (r *AddressRepo) Update(userID, id string, in AddressInput, makeDefault bool) (domain.Address, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return domain.Address{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(tx.Rebind(`
	  UPDATE addresses SET name = ?, line1 = ?, line2 = ?, city = ?, county = ?, postcode = ?,
	         country = ?, phone = ?, updated_at = ?
	  WHERE id = ? AND user_id = ?
	`), in.Name, in.Line1, in.Line2, in.City, in.County, in.Postcode, in.Country, in.Phone, nowStamp(), id, userID)
	if err != nil {
		return domain.Address{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Address{}, ErrNotFound
	}
	if makeDefault {
		if err := setDefault(tx, userID, id); err != nil {
			return domain.Address{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Address{}, err
	}
	return r.Get(userID, id)
}

// SetDefault makes id the only default address of the user. Repeating it is a no-op.
func (r *AddressRepo) SetDefault(userID, id string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.Get(&exists, tx.Rebind(`SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?`), id, userID); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := setDefault(tx, userID, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the address; if it was the default the newest remaining one is promoted.
func (r *AddressRepo) Delete(userID, id string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var wasDefault bool
	err = tx.Get(&wasDefault, tx.Rebind(`SELECT is_default FROM addresses WHERE id = ? AND user_id = ?`), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(tx.Rebind(`DELETE FROM addresses WHERE id = ? AND user_id = ?`), id, userID); err != nil {
		return err
	}
	if wasDefault {
		var next string
		err := tx.Get(&next, tx.Rebind(`SELECT id FROM addresses WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`), userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if next != "" {
			if err := setDefault(tx, userID, next); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func unsetDefaults(tx *sqlx.Tx, userID string) error {
	_, err := tx.Exec(tx.Rebind(`UPDATE addresses SET is_default = ? WHERE user_id = ? AND is_default = ?`), false, userID, true)
	return err
}

func setDefault(tx *sqlx.Tx, userID, id string) error {
	if err := unsetDefaults(tx, userID); err != nil {
		return err
	}
	_, err := tx.Exec(tx.Rebind(`UPDATE addresses SET is_default = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
		true, nowStamp(), id, userID)
	return err
}
