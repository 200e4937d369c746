package repos

import (
	"database/sql"
	"errors"

	"buttergolf/internal/domain"

	"github.com/jmoiron/sqlx"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `
    o.id, o.product_id, o.buyer_id, o.seller_id, o.amount, o.fee, o.currency, o.status, o.hold_status,
    COALESCE(o.checkout_session_id,'') AS checkout_session_id,
    COALESCE(o.payment_intent_id,'') AS payment_intent_id,
    COALESCE(o.transfer_id,'') AS transfer_id,
    o.ship_name, o.ship_line1, o.ship_line2, o.ship_city, o.ship_postcode, o.ship_country,
    COALESCE(o.carrier,'') AS carrier, COALESCE(o.tracking_number,'') AS tracking_number,
    COALESCE(o.shipped_at,'') AS shipped_at, COALESCE(o.delivered_at,'') AS delivered_at,
    COALESCE(o.released_at,'') AS released_at,
    o.created_at, COALESCE(o.updated_at,'') AS updated_at,
    COALESCE(p.title,'') AS product_title`

const orderFrom = ` FROM orders o LEFT JOIN products p ON p.id = o.product_id `

// Create inserts a new order header in PAYMENT_PENDING with no hold.
func (r *OrderRepo) Create(o domain.Order) error {
	_, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO orders
	    (id, product_id, buyer_id, seller_id, amount, fee, currency, status, hold_status,
	     ship_name, ship_line1, ship_line2, ship_city, ship_postcode, ship_country, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), o.ID, o.ProductID, o.BuyerID, o.SellerID, o.Amount, o.Fee, o.Currency,
		domain.OrderPaymentPending, domain.HoldNone,
		o.ShipName, o.ShipLine1, o.ShipLine2, o.ShipCity, o.ShipPostcode, o.ShipCountry, nowStamp())
	return err
}

func (r *OrderRepo) one(where string, args ...any) (domain.Order, error) {
	var o domain.Order
	err := r.db.Get(&o, r.db.Rebind(`SELECT `+orderCols+orderFrom+`WHERE `+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

func (r *OrderRepo) Get(id string) (domain.Order, error) {
	return r.one(`o.id = ?`, id)
}

func (r *OrderRepo) ByCheckoutSession(sessionID string) (domain.Order, error) {
	return r.one(`o.checkout_session_id = ?`, sessionID)
}

func (r *OrderRepo) ByPaymentIntent(intentID string) (domain.Order, error) {
	return r.one(`o.payment_intent_id = ?`, intentID)
}

// OpenForProduct returns a pending or paid order that still blocks the product.
func (r *OrderRepo) OpenForProduct(productID string) (domain.Order, error) {
	return r.one(`o.product_id = ? AND o.status NOT IN (?, ?) ORDER BY o.created_at DESC LIMIT 1`,
		productID, domain.OrderCancelled, domain.OrderRefunded)
}

// ListForUser lists orders where the user is the buyer ("buyer"), the seller ("seller"), or either.
func (r *OrderRepo) ListForUser(userID, role string) ([]domain.Order, error) {
	where := `(o.buyer_id = ? OR o.seller_id = ?)`
	args := []any{userID, userID}
	switch role {
	case "buyer":
		where, args = `o.buyer_id = ?`, []any{userID}
	case "seller":
		where, args = `o.seller_id = ?`, []any{userID}
	}
	out := []domain.Order{}
	err := r.db.Select(&out, r.db.Rebind(`SELECT `+orderCols+orderFrom+`WHERE `+where+` ORDER BY o.created_at DESC`), args...)
	return out, err
}

// Transition moves an order from one status to another and optionally the hold status.
// ErrStale means the order was not in the expected status.
func (r *OrderRepo) Transition(id, from, to, hold string) error {
	q := `UPDATE orders SET status = ?, updated_at = ?`
	args := []any{to, nowStamp()}
	if hold != "" {
		q += `, hold_status = ?`
		args = append(args, hold)
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, id, from)
	res, err := r.db.Exec(r.db.Rebind(q), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *OrderRepo) SetCheckoutSession(id, sessionID string) error {
	_, err := r.db.Exec(r.db.Rebind(`UPDATE orders SET checkout_session_id = ?, updated_at = ? WHERE id = ?`),
		sessionID, nowStamp(), id)
	return err
}

// ConfirmPayment records the payment and holds the funds; ErrStale when not pending.
func (r *OrderRepo) ConfirmPayment(id, paymentIntentID string) error {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE orders SET status = ?, hold_status = ?, payment_intent_id = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`), domain.OrderPaymentConfirmed, domain.HoldHeld, paymentIntentID, nowStamp(), id, domain.OrderPaymentPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *OrderRepo) SetShipment(id, carrier, tracking string) error {
	now := nowStamp()
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE orders SET status = ?, carrier = ?, tracking_number = ?, shipped_at = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`), domain.OrderShipped, carrier, tracking, now, now, id, domain.OrderPaymentConfirmed)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

func (r *OrderRepo) SetDelivered(id string) error {
	now := nowStamp()
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE orders SET status = ?, delivered_at = ?, updated_at = ?
	  WHERE id = ? AND status = ?
	`), domain.OrderDelivered, now, now, id, domain.OrderShipped)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// SetReleased completes an order whose held funds were transferred to the seller.
func (r *OrderRepo) SetReleased(id, from, transferID string) error {
	now := nowStamp()
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE orders SET status = ?, hold_status = ?, transfer_id = ?, released_at = ?, updated_at = ?
	  WHERE id = ? AND status = ? AND hold_status = ?
	`), domain.OrderCompleted, domain.HoldReleased, transferID, now, now, id, from, domain.HoldHeld)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// DueForRelease lists held orders delivered before cutoff, or shipped before cutoff
// and never confirmed by the buyer.
func (r *OrderRepo) DueForRelease(cutoff string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.db.Select(&out, r.db.Rebind(`SELECT `+orderCols+orderFrom+`
	  WHERE o.hold_status = ?
	    AND ((o.status = ? AND o.delivered_at < ?) OR (o.status = ? AND o.shipped_at < ?))
	  ORDER BY o.created_at
	`), domain.HoldHeld, domain.OrderDelivered, cutoff, domain.OrderShipped, cutoff)
	return out, err
}
