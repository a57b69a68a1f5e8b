package user

import "time"

// User is a member profile as this service sees it. Identity and sign-up are
// owned by the gateway; only payment handles are edited here.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	VenmoUsername *string   `json:"venmo_username,omitempty"`
	PaypalEmail   *string   `json:"paypal_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
