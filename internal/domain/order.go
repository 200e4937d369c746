package domain

// Order statuses.
const (
	OrderPaymentPending   = "PAYMENT_PENDING"
	OrderPaymentConfirmed = "PAYMENT_CONFIRMED"
	OrderShipped          = "SHIPPED"
	OrderDelivered        = "DELIVERED"
	OrderCompleted        = "COMPLETED"
	OrderCancelled        = "CANCELLED"
	OrderRefunded         = "REFUNDED"
)

// Payment hold statuses. Funds sit with the platform while HELD.
const (
	HoldNone     = "NONE"
	HoldHeld     = "HELD"
	HoldReleased = "RELEASED"
	HoldRefunded = "REFUNDED"
)

type Order struct {
	ID                string  `db:"id" json:"id"`
	ProductID         string  `db:"product_id" json:"productId"`
	BuyerID           string  `db:"buyer_id" json:"buyerId"`
	SellerID          string  `db:"seller_id" json:"sellerId"`
	Amount            float64 `db:"amount" json:"amount"`
	Fee               float64 `db:"fee" json:"fee"`
	Currency          string  `db:"currency" json:"currency"`
	Status            string  `db:"status" json:"status"`
	HoldStatus        string  `db:"hold_status" json:"holdStatus"`
	CheckoutSessionID string  `db:"checkout_session_id" json:"-"`
	PaymentIntentID   string  `db:"payment_intent_id" json:"-"`
	TransferID        string  `db:"transfer_id" json:"-"`
	ShipName          string  `db:"ship_name" json:"shipName"`
	ShipLine1         string  `db:"ship_line1" json:"shipLine1"`
	ShipLine2         string  `db:"ship_line2" json:"shipLine2,omitempty"`
	ShipCity          string  `db:"ship_city" json:"shipCity"`
	ShipPostcode      string  `db:"ship_postcode" json:"shipPostcode"`
	ShipCountry       string  `db:"ship_country" json:"shipCountry"`
	Carrier           string  `db:"carrier" json:"carrier,omitempty"`
	TrackingNumber    string  `db:"tracking_number" json:"trackingNumber,omitempty"`
	ShippedAt         string  `db:"shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt       string  `db:"delivered_at" json:"deliveredAt,omitempty"`
	ReleasedAt        string  `db:"released_at" json:"releasedAt,omitempty"`
	CreatedAt         string  `db:"created_at" json:"createdAt"`
	UpdatedAt         string  `db:"updated_at" json:"updatedAt,omitempty"`
	ProductTitle      string  `db:"product_title" json:"productTitle,omitempty"`
}

// Payout is what the seller receives once the hold is released.
func (o Order) Payout() float64 { return o.Amount - o.Fee }
