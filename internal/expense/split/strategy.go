package split

import (
	"errors"
	"fmt"

	"github.com/fkhayef/tripsettle/internal/money"
)

// SplitType defines the type of split strategy
type SplitType string

const (
	SplitTypeEven       SplitType = "EVEN"
	SplitTypePercentage SplitType = "PERCENTAGE"
	SplitTypeExact      SplitType = "EXACT"
)

// SplitInput represents a participant in a split with optional values
type SplitInput struct {
	UserID     int64        `json:"user_id"`
	Percentage *float64     `json:"percentage,omitempty"` // For PERCENTAGE split
	Amount     *money.Cents `json:"amount,omitempty"`     // For EXACT split
}

// SplitOutput is one participant's share of an expense. Every participant,
// the payer included, gets exactly one output and the outputs sum to the total.
type SplitOutput struct {
	UserID     int64       `json:"user_id"`
	AmountOwed money.Cents `json:"amount_owed"`
}

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Calculate computes the share of every participant
	Calculate(total money.Cents, participants []SplitInput) ([]SplitOutput, error)

	// Type returns the type identifier for this strategy
	Type() SplitType

	// Validate checks if the inputs are valid for this strategy
	Validate(total money.Cents, participants []SplitInput) error
}

// Factory creates split strategies based on the requested type
type Factory struct{}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the appropriate strategy implementation based on the type
func (f *Factory) Create(splitType SplitType) (Strategy, error) {
	switch splitType {
	case SplitTypeEven:
		return &EvenStrategy{}, nil
	case SplitTypePercentage:
		return &PercentageStrategy{}, nil
	case SplitTypeExact:
		return &ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown split type: %s", splitType)
	}
}

// CreateFromString creates a strategy from a string type (useful for API requests)
func (f *Factory) CreateFromString(splitType string) (Strategy, error) {
	return f.Create(SplitType(splitType))
}

var (
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrDuplicateParticipant = errors.New("participants must be unique")
	ErrInvalidPercentages   = errors.New("percentages must sum to 100")
	ErrInvalidExactAmounts  = errors.New("exact amounts must sum to total amount")
	ErrNegativeAmount       = errors.New("amounts cannot be negative")
	ErrMissingPercentage    = errors.New("percentage value required for all participants")
	ErrMissingExactAmount   = errors.New("exact amount required for all participants")
	ErrPercentageOutOfRange = errors.New("percentage must be between 0 and 100")
)

// validateCommon checks the rules shared by every strategy
func validateCommon(total money.Cents, participants []SplitInput) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	if total < 0 {
		return ErrNegativeAmount
	}
	seen := make(map[int64]struct{}, len(participants))
	for _, p := range participants {
		if _, ok := seen[p.UserID]; ok {
			return ErrDuplicateParticipant
		}
		seen[p.UserID] = struct{}{}
	}
	return nil
}
