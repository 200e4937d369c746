package repos

import (
	"database/sql"
	"errors"

	"buttergolf/internal/domain"

	"github.com/jmoiron/sqlx"
)

type BrandRepo struct{ db *sqlx.DB }

func NewBrandRepo(db *sqlx.DB) *BrandRepo { return &BrandRepo{db: db} }

func (r *BrandRepo) List() ([]domain.Brand, error) {
	out := []domain.Brand{}
	err := r.db.Select(&out, `
	  SELECT id, slug, name, COALESCE(logo_url,'') AS logo_url
	  FROM brands
	  ORDER BY LOWER(name)
	`)
	return out, err
}

func (r *BrandRepo) BySlug(slug string) (domain.Brand, error) {
	var b domain.Brand
	err := r.db.Get(&b, r.db.Rebind(`
	  SELECT id, slug, name, COALESCE(logo_url,'') AS logo_url
	  FROM brands WHERE slug = ?
	`), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (r *BrandRepo) Models(brandID string) ([]domain.ClubModel, error) {
	out := []domain.ClubModel{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT id, brand_id, name, category, COALESCE(year,0) AS year
	  FROM club_models
	  WHERE brand_id = ?
	  ORDER BY category, COALESCE(year,0) DESC, name
	`), brandID)
	return out, err
}

// Model returns a club model only when it belongs to the given brand.
func (r *BrandRepo) Model(brandID, modelID string) (domain.ClubModel, error) {
	var m domain.ClubModel
	err := r.db.Get(&m, r.db.Rebind(`
	  SELECT id, brand_id, name, category, COALESCE(year,0) AS year
	  FROM club_models WHERE id = ? AND brand_id = ?
	`), modelID, brandID)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (r *BrandRepo) ByID(id string) (domain.Brand, error) {
	var b domain.Brand
	err := r.db.Get(&b, r.db.Rebind(`
	  SELECT id, slug, name, COALESCE(logo_url,'') AS logo_url
	  FROM brands WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (r *BrandRepo) SetLogo(slug, url string) error {
	res, err := r.db.Exec(r.db.Rebind(`UPDATE brands SET logo_url = ? WHERE slug = ?`), url, slug)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
