package trip

import "time"

// Trip is the scope every expense, balance and settlement belongs to
type Trip struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is one entry of a trip roster, joined with the user's payment handles
type Member struct {
	UserID        int64  `json:"user_id"`
	Name          string `json:"name"`
	VenmoUsername string `json:"venmo_username,omitempty"`
	PaypalEmail   string `json:"paypal_email,omitempty"`
}
