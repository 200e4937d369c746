package repos

import (
	"buttergolf/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MessageRepo struct{ db *sqlx.DB }

func NewMessageRepo(db *sqlx.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) List(orderID string) ([]domain.Message, error) {
	out := []domain.Message{}
	err := r.db.Select(&out, r.db.Rebind(`
	  SELECT id, order_id, sender_id, body, COALESCE(read_at,'') AS read_at, created_at
	  FROM messages
	  WHERE order_id = ?
	  ORDER BY created_at, id
	`), orderID)
	return out, err
}

func (r *MessageRepo) Create(orderID, senderID, body string) (domain.Message, error) {
	m := domain.Message{ID: uuid.NewString(), OrderID: orderID, SenderID: senderID, Body: body, CreatedAt: nowStamp()}
	_, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO messages(id, order_id, sender_id, body, created_at) VALUES(?, ?, ?, ?, ?)
	`), m.ID, m.OrderID, m.SenderID, m.Body, m.CreatedAt)
	return m, err
}

// MarkRead stamps every unread message the reader did not send.
func (r *MessageRepo) MarkRead(orderID, readerID string) (int64, error) {
	res, err := r.db.Exec(r.db.Rebind(`
	  UPDATE messages SET read_at = ?
	  WHERE order_id = ? AND sender_id <> ? AND read_at IS NULL
	`), nowStamp(), orderID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
