package repos

import (
	"database/sql"
	"errors"

	"buttergolf/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type OfferRepo struct{ db *sqlx.DB }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerCols = `id, product_id, buyer_id, seller_id, amount, COALESCE(counter_amount,0) AS counter_amount,
	status, expires_at, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *OfferRepo) Create(productID, buyerID, sellerID string, amount float64, expiresAt string) (domain.Offer, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO offers(id, product_id, buyer_id, seller_id, amount, status, expires_at, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`), id, productID, buyerID, sellerID, amount, domain.OfferPending, expiresAt, nowStamp())
	if err != nil {
		return domain.Offer{}, err
	}
	return r.Get(id)
}

func (r *OfferRepo) Get(id string) (domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, r.db.Rebind(`SELECT `+offerCols+` FROM offers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

// OpenFor returns the buyer's pending or countered offer on a product, if any.
func (r *OfferRepo) OpenFor(productID, buyerID string) (domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, r.db.Rebind(`
	  SELECT `+offerCols+` FROM offers
	  WHERE product_id = ? AND buyer_id = ? AND status IN (?, ?)
	  ORDER BY created_at DESC LIMIT 1
	`), productID, buyerID, domain.OfferPending, domain.OfferCountered)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

// ListForProduct returns every offer on a product; buyerID limits it to one buyer.
func (r *OfferRepo) ListForProduct(productID, buyerID string) ([]domain.Offer, error) {
	q := `SELECT ` + offerCols + ` FROM offers WHERE product_id = ?`
	args := []any{productID}
	if buyerID != "" {
		q += ` AND buyer_id = ?`
		args = append(args, buyerID)
	}
	out := []domain.Offer{}
	err := r.db.Select(&out, r.db.Rebind(q+` ORDER BY created_at DESC`), args...)
	return out, err
}

// SetStatus moves an offer out of one of the given statuses. ErrStale when it wasn't in any.
func (r *OfferRepo) SetStatus(id, to string, from ...string) error {
	q, args, err := sqlx.In(`UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)`,
		to, nowStamp(), id, from)
	if err != nil {
		return err
	}
	res, err := r.db.Exec(r.db.Rebind(q), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// Counter records the seller's counter amount and extends the expiry.
func (r *OfferRepo) Counter(id string, amount float64, expiresAt string) error {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE offers SET status = ?, counter_amount = ?, expires_at = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`), domain.OfferCountered, amount, expiresAt, nowStamp(), id, domain.OfferPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// RejectOthers closes every other open offer on a product once one is accepted.
func (r *OfferRepo) RejectOthers(productID, keepID string) (int64, error) {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE offers SET status = ?, updated_at = ?
	  WHERE product_id = ? AND id <> ? AND status IN (?, ?)
	`), domain.OfferRejected, nowStamp(), productID, keepID, domain.OfferPending, domain.OfferCountered)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireBefore marks open offers past their expiry as EXPIRED.
func (r *OfferRepo) ExpireBefore(now string) (int64, error) {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE offers SET status = ?, updated_at = ?
	  WHERE status IN (?, ?) AND expires_at < ?
	`), domain.OfferExpired, now, domain.OfferPending, domain.OfferCountered, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Accept closes a negotiation. When the buyer accepts a counter the agreed
// amount becomes the counter amount.
func (r *OfferRepo) Accept(id, from string) error {
	q := `UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	if from == domain.OfferCountered {
		q = `UPDATE offers SET status = ?, updated_at = ?, amount = counter_amount WHERE id = ? AND status = ?`
	}
	res, err := r.db.Exec(r.db.Rebind(q), domain.OfferAccepted, nowStamp(), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// AcceptedFor returns the buyer's latest accepted offer on a product.
func (r *OfferRepo) AcceptedFor(productID, buyerID string) (domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, r.db.Rebind(`
	  SELECT `+offerCols+` FROM offers
	  WHERE product_id = ? AND buyer_id = ? AND status = ?
	  ORDER BY updated_at DESC LIMIT 1
	`), productID, buyerID, domain.OfferAccepted)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}
