package domain

// Offer statuses.
const (
	OfferPending   = "PENDING"
	OfferAccepted  = "ACCEPTED"
	OfferRejected  = "REJECTED"
	OfferCountered = "COUNTERED"
	OfferExpired   = "EXPIRED"
	OfferWithdrawn = "WITHDRAWN"
)

type Offer struct {
	ID            string  `db:"id" json:"id"`
	ProductID     string  `db:"product_id" json:"productId"`
	BuyerID       string  `db:"buyer_id" json:"buyerId"`
	SellerID      string  `db:"seller_id" json:"sellerId"`
	Amount        float64 `db:"amount" json:"amount"`
	CounterAmount float64 `db:"counter_amount" json:"counterAmount,omitempty"`
	Status        string  `db:"status" json:"status"`
	ExpiresAt     string  `db:"expires_at" json:"expiresAt"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
	UpdatedAt     string  `db:"updated_at" json:"updatedAt,omitempty"`
}

// Open reports whether the offer still awaits a decision.
func (o Offer) Open() bool { return o.Status == OfferPending || o.Status == OfferCountered }
