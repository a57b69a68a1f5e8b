package user

// UpdatePaymentHandlesRequest sets or clears payment handles. A missing field
// is left alone and an empty string clears it.
type UpdatePaymentHandlesRequest struct {
	VenmoUsername *string `json:"venmo_username,omitempty" validate:"omitempty,max=31"`
	PaypalEmail   *string `json:"paypal_email,omitempty" validate:"omitempty,max=255"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID            int64   `json:"id"`
	Username      string  `json:"username"`
	Email         string  `json:"email"`
	VenmoUsername *string `json:"venmo_username,omitempty"`
	PaypalEmail   *string `json:"paypal_email,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		VenmoUsername: u.VenmoUsername,
		PaypalEmail:   u.PaypalEmail,
		CreatedAt:     u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
