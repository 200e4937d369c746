package repos

import (
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type WaitlistRepo struct{ db *sqlx.DB }

func NewWaitlistRepo(db *sqlx.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// Join adds the email once (case-insensitive) and reports whether it was new.
func (r *WaitlistRepo) Join(email, source string) (bool, error) {
	res, err := r.db.Exec(r.db.Rebind(`
	  INSERT INTO waitlist(id, email, source, created_at) VALUES(?, ?, ?, ?)
	  ON CONFLICT DO NOTHING
	`), uuid.NewString(), email, source, nowStamp())
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *WaitlistRepo) Count() (int, error) {
	var n int
	err := r.db.Get(&n, `SELECT COUNT(*) FROM waitlist`)
	return n, err
}
