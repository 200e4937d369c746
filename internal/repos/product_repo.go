package repos

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"buttergolf/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    p.id, p.seller_id, p.title, p.description, p.category,
    COALESCE(p.brand_id,'') AS brand_id, COALESCE(p.model_id,'') AS model_id,
    p.brand_name, p.condition, p.price, p.images_json, p.is_sold,
    p.created_at, COALESCE(p.updated_at,'') AS updated_at`

func hydrate(ps []domain.Product) []domain.Product {
	for i := range ps {
		ps[i].Images = decodeImages(ps[i].ImagesJSON)
	}
	return ps
}

func decodeImages(raw string) []string {
	out := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	return out
}

func encodeImages(imgs []string) string {
	if imgs == nil {
		imgs = []string{}
	}
	b, _ := json.Marshal(imgs)
	return string(b)
}

// ProductFilter narrows List. Zero values mean "no constraint".
type ProductFilter struct {
	Category    string
	BrandID     string
	Condition   string
	SellerID    string
	MinPrice    float64
	MaxPrice    float64
	IncludeSold bool
	Sort        string // newest | price_asc | price_desc
	Limit       int
	Offset      int
}

func (r *ProductRepo) List(f ProductFilter) ([]domain.Product, error) {
	where := []string{"1=1"}
	args := []any{}
	if !f.IncludeSold {
		where = append(where, "p.is_sold = ?")
		args = append(args, false)
	}
	if f.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, f.Category)
	}
	if f.BrandID != "" {
		where = append(where, "p.brand_id = ?")
		args = append(args, f.BrandID)
	}
	if f.Condition != "" {
		where = append(where, "p.condition = ?")
		args = append(args, f.Condition)
	}
	if f.SellerID != "" {
		where = append(where, "p.seller_id = ?")
		args = append(args, f.SellerID)
	}
	if f.MinPrice > 0 {
		where = append(where, "p.price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		where = append(where, "p.price <= ?")
		args = append(args, f.MaxPrice)
	}
	order := "p.created_at DESC"
	switch f.Sort {
	case "price_asc":
		order = "p.price ASC, p.created_at DESC"
	case "price_desc":
		order = "p.price DESC, p.created_at DESC"
	}
	if f.Limit <= 0 {
		f.Limit = 24
	}
	args = append(args, f.Limit, f.Offset)

	q := `SELECT ` + productCols + `
	  FROM products p
	  WHERE ` + strings.Join(where, " AND ") + `
	  ORDER BY ` + order + `
	  LIMIT ? OFFSET ?`
	out := []domain.Product{}
	if err := r.db.Select(&out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return hydrate(out), nil
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, r.db.Rebind(`SELECT `+productCols+` FROM products p WHERE p.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Images = decodeImages(p.ImagesJSON)
	return p, nil
}

// ByIDs returns the listed products in created_at DESC order, skipping unknown ids.
func (r *ProductRepo) ByIDs(ids []string) ([]domain.Product, error) {
	out := []domain.Product{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+productCols+` FROM products p WHERE p.id IN (?) ORDER BY p.created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.db.Select(&out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return hydrate(out), nil
}

// likeEscaper makes user input literal inside a LIKE ... ESCAPE '\' pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches unsold listings by title, description or brand name.
func (r *ProductRepo) Search(q string, limit, offset int) ([]domain.Product, error) {
	like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	out := []domain.Product{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT `+productCols+`
	  FROM products p
	  WHERE p.is_sold = ?
	    AND (LOWER(p.title) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\'
	         OR LOWER(p.brand_name) LIKE ? ESCAPE '\')
	  ORDER BY p.created_at DESC
	  LIMIT ? OFFSET ?
	`), false, like, like, like, limit, offset)
	if err != nil {
		return nil, err
	}
	return hydrate(out), nil
}

// ProductInput carries the writable listing fields.
type ProductInput struct {
	Title       string
	Description string
	Category    string
	BrandID     string
	ModelID     string
	BrandName   string
	Condition   string
	Price       float64
	Images      []string
}

func (r *ProductRepo) Create(sellerID string, in ProductInput) (domain.Product, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO products(id, seller_id, title, description, category, brand_id, model_id,
	                       brand_name, condition, price, images_json, is_sold, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), id, sellerID, in.Title, in.Description, in.Category, nullable(in.BrandID), nullable(in.ModelID),
		in.BrandName, in.Condition, in.Price, encodeImages(in.Images), false, nowStamp())
	if err != nil {
		return domain.Product{}, err
	}
	return r.Get(id)
}

// Update rewrites an unsold listing owned by sellerID.
func (r *ProductRepo) Update(id, sellerID string, in ProductInput) error {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE products SET title = ?, description = ?, category = ?, brand_id = ?, model_id = ?,
	         brand_name = ?, condition = ?, price = ?, images_json = ?, updated_at = ?
	  WHERE id = ? AND seller_id = ? AND is_sold = ?
	`), in.Title, in.Description, in.Category, nullable(in.BrandID), nullable(in.ModelID),
		in.BrandName, in.Condition, in.Price, encodeImages(in.Images), nowStamp(), id, sellerID, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// Delete removes an unsold listing that never had an order.
func (r *ProductRepo) Delete(id, sellerID string) error {
	res, err := r.db.Exec(r.db.Rebind(`
	  DELETE FROM products
	  WHERE id = ? AND seller_id = ? AND is_sold = ?
	    AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.product_id = products.id)
	`), id, sellerID, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// SetSold flips the sold flag; it reports ErrStale when the flag already had that value.
func (r *ProductRepo) SetSold(id string, sold bool) error {
	res, err := r.db.Exec(r.db.Rebind(`UPDATE products SET is_sold = ?, updated_at = ? WHERE id = ? AND is_sold = ?`),
		sold, nowStamp(), id, !sold)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// BackfillBrands links free-text brand names to brand rows; returns rows updated.
func (r *ProductRepo) BackfillBrands() (int64, error) {
	res, err := r.db.Exec(`
	  UPDATE products SET brand_id = (
	    SELECT b.id FROM brands b WHERE LOWER(b.name) = LOWER(products.brand_name)
	  )
	  WHERE brand_id IS NULL AND brand_name <> ''
	    AND EXISTS (SELECT 1 FROM brands b WHERE LOWER(b.name) = LOWER(products.brand_name))
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
