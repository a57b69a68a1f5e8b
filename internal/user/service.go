package user

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fkhayef/tripsettle/internal/apperr"
	"github.com/fkhayef/tripsettle/internal/payment"
)

// Common errors
var (
	ErrUserNotFound      = apperr.NotFound("user not found")
	ErrInvalidVenmo      = apperr.Validation("venmo username must be 5 to 30 letters, digits, '-' or '_'")
	ErrInvalidPaypalMail = apperr.Validation("paypal email is not a valid email address")
)

// Store is the persistence the user service needs
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdatePaymentHandles(ctx context.Context, id int64, venmo, paypal *string) (*User, error)
}

// Service handles member profile logic
type Service struct {
	repo     Store
	validate *validator.Validate
}

// NewService creates a new user service with repository dependency injected
func NewService(repo Store) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdatePaymentHandles validates and stores the handles the settlement
// resolver builds deep links from. Handles are stored normalized, so a Venmo
// username never keeps its leading @.
func (s *Service) UpdatePaymentHandles(ctx context.Context, id int64, req *UpdatePaymentHandlesRequest) (*User, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	venmo, paypal := existing.VenmoUsername, existing.PaypalEmail

	if req.VenmoUsername != nil {
		venmo = nil
		if raw := strings.TrimSpace(*req.VenmoUsername); raw != "" {
			user, ok := payment.NormalizeVenmoUsername(raw)
			if !ok {
				return nil, ErrInvalidVenmo
			}
			venmo = &user
		}
	}

	if req.PaypalEmail != nil {
		paypal = nil
		if email := strings.TrimSpace(*req.PaypalEmail); email != "" {
			if err := s.validate.Var(email, "email"); err != nil {
				return nil, ErrInvalidPaypalMail
			}
			paypal = &email
		}
	}

	user, err := s.repo.UpdatePaymentHandles(ctx, id, venmo, paypal)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
