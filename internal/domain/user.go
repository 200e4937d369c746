package domain

type User struct {
	ID              string `db:"id" json:"id"`
	ClerkID         string `db:"clerk_id" json:"-"`
	Email           string `db:"email" json:"email"`
	Name            string `db:"name" json:"name"`
	ImageURL        string `db:"image_url" json:"imageUrl,omitempty"`
	StripeAccountID string `db:"stripe_account_id" json:"stripeAccountId,omitempty"`
	StripeOnboarded bool   `db:"stripe_onboarded" json:"stripeOnboarded"`
	PushToken       string `db:"push_token" json:"-"`
	CreatedAt       string `db:"created_at" json:"createdAt"`
}
