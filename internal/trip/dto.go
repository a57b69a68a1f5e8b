package trip

// TripResponse represents a trip with its roster
type TripResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt string    `json:"created_at"`
	Members   []*Member `json:"members,omitempty"`
}

// ToResponse converts a Trip model to a TripResponse DTO
func (t *Trip) ToResponse() *TripResponse {
	return &TripResponse{
		ID:        t.ID,
		Name:      t.Name,
		Currency:  t.Currency,
		CreatedAt: t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
