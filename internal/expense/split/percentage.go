package split

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsettle/internal/money"
)

// =============================================================================
// PERCENTAGE SPLIT STRATEGY
// Divides the expense based on specified percentages for each participant
// =============================================================================

// PercentageStrategy implements the Strategy interface for percentage-based splits
type PercentageStrategy struct{}

// Type returns the split type identifier
func (s *PercentageStrategy) Type() SplitType {
	return SplitTypePercentage
}

// Validate checks if the inputs are valid for a percentage split
func (s *PercentageStrategy) Validate(total money.Cents, participants []SplitInput) error {
	if err := validateCommon(total, participants); err != nil {
		return err
	}

	var totalPercentage float64
	for _, p := range participants {
		if p.Percentage == nil {
			return ErrMissingPercentage
		}
		if *p.Percentage < 0 || *p.Percentage > 100 {
			return ErrPercentageOutOfRange
		}
		totalPercentage += *p.Percentage
	}

	// Percentages come in as floats, allow 99.99 to 100.01
	if math.Abs(totalPercentage-100) > 0.01 {
		return ErrInvalidPercentages
	}

	return nil
}

// Calculate divides the total by percentage, rounding each share to the cent.
// The last participant absorbs the rounding difference.
func (s *PercentageStrategy) Calculate(total money.Cents, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	base := decimal.NewFromInt(int64(total))
	outputs := make([]SplitOutput, len(participants))
	var allocated money.Cents

	for i, p := range participants {
		share := base.Mul(decimal.NewFromFloat(*p.Percentage)).Div(decimal.NewFromInt(100)).Round(0)
		amount := money.Cents(share.IntPart())
		allocated += amount
		outputs[i] = SplitOutput{UserID: p.UserID, AmountOwed: amount}
	}

	last := len(outputs) - 1
	outputs[last].AmountOwed += total - allocated
	if outputs[last].AmountOwed < 0 {
		return nil, ErrInvalidPercentages
	}

	return outputs, nil
}
