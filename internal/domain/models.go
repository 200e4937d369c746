package domain

// Listing categories.
var Categories = []string{
	"DRIVERS", "FAIRWAY_WOODS", "HYBRIDS", "IRONS", "WEDGES",
	"PUTTERS", "BAGS", "BALLS", "APPAREL", "ACCESSORIES",
}

// Item conditions, best to worst.
var Conditions = []string{"NEW", "LIKE_NEW", "EXCELLENT", "GOOD", "FAIR", "POOR"}

type Brand struct {
	ID      string `db:"id" json:"id"`
	Slug    string `db:"slug" json:"slug"`
	Name    string `db:"name" json:"name"`
	LogoURL string `db:"logo_url" json:"logoUrl,omitempty"`
}

type ClubModel struct {
	ID       string `db:"id" json:"id"`
	BrandID  string `db:"brand_id" json:"brandId"`
	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`
	Year     int    `db:"year" json:"year,omitempty"`
}

type Product struct {
	ID          string   `db:"id" json:"id"`
	SellerID    string   `db:"seller_id" json:"sellerId"`
	Title       string   `db:"title" json:"title"`
	Description string   `db:"description" json:"description"`
	Category    string   `db:"category" json:"category"`
	BrandID     string   `db:"brand_id" json:"brandId,omitempty"`
	ModelID     string   `db:"model_id" json:"modelId,omitempty"`
	BrandName   string   `db:"brand_name" json:"brandName,omitempty"`
	Condition   string   `db:"condition" json:"condition"`
	Price       float64  `db:"price" json:"price"`
	ImagesJSON  string   `db:"images_json" json:"-"`
	Images      []string `db:"-" json:"images"`
	IsSold      bool     `db:"is_sold" json:"isSold"`
	CreatedAt   string   `db:"created_at" json:"createdAt"`
	UpdatedAt   string   `db:"updated_at" json:"updatedAt,omitempty"`
}

type Address struct {
	ID        string `db:"id" json:"id"`
	UserID    string `db:"user_id" json:"-"`
	Name      string `db:"name" json:"name"`
	Line1     string `db:"line1" json:"line1"`
	Line2     string `db:"line2" json:"line2,omitempty"`
	City      string `db:"city" json:"city"`
	County    string `db:"county" json:"county,omitempty"`
	Postcode  string `db:"postcode" json:"postcode"`
	Country   string `db:"country" json:"country"`
	Phone     string `db:"phone" json:"phone,omitempty"`
	IsDefault bool   `db:"is_default" json:"isDefault"`
	CreatedAt string `db:"created_at" json:"createdAt"`
	UpdatedAt string `db:"updated_at" json:"updatedAt,omitempty"`
}

type Favorite struct {
	UserID    string `db:"user_id" json:"-"`
	ProductID string `db:"product_id" json:"productId"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type Message struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"orderId"`
	SenderID  string `db:"sender_id" json:"senderId"`
	Body      string `db:"body" json:"body"`
	ReadAt    string `db:"read_at" json:"readAt,omitempty"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type WaitlistEntry struct {
	ID        string `db:"id" json:"id"`
	Email     string `db:"email" json:"email"`
	Source    string `db:"source" json:"source,omitempty"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

// Push is a mobile notification addressed to one user.
type Push struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type TrackingEvent struct {
	Time        string `json:"time"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// Tracking is the carrier's view of a shipment.
type Tracking struct {
	Carrier           string          `json:"carrier"`
	TrackingNumber    string          `json:"trackingNumber"`
	Status            string          `json:"status"`
	EstimatedDelivery string          `json:"estimatedDelivery,omitempty"`
	Events            []TrackingEvent `json:"events"`
}
