package repos

import (
	"buttergolf/internal/domain"

	"github.com/jmoiron/sqlx"
)

type FavoriteRepo struct{ db *sqlx.DB }

func NewFavoriteRepo(db *sqlx.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add is idempotent; it reports whether a new row was written.
func (r *FavoriteRepo) Add(userID, productID string) (bool, error) {
	res, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO favorites(user_id, product_id, created_at)
	  VALUES(?, ?, ?)
	  ON CONFLICT(user_id, product_id) DO NOTHING
	`), userID, productID, nowStamp())
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Remove returns ErrNotFound when the product was not favorited.
func (r *FavoriteRepo) Remove(userID, productID string) error {
	res, err := r.db.Exec(r.db.Rebind(`DELETE FROM favorites WHERE user_id = ? AND product_id = ?`), userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FavoriteRepo) List(userID string) ([]domain.Favorite, error) {
	out := []domain.Favorite{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT user_id, product_id, created_at
	  FROM favorites
	  WHERE user_id = ?
	  ORDER BY created_at DESC
	`), userID)
	return out, err
}

func (r *FavoriteRepo) Products(userID string) ([]domain.Product, error) {
	out := []domain.Product{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT `+productCols+`
	  FROM favorites f
	  JOIN products p ON p.id = f.product_id
	  WHERE f.user_id = ?
	  ORDER BY f.created_at DESC
	`), userID)
	if err != nil {
		return nil, err
	}
	return hydrate(out), nil
}
