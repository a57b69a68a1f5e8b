package split

import "github.com/fkhayef/tripsettle/internal/money"

// =============================================================================
// EVEN SPLIT STRATEGY
// Divides the expense equally among all participants
// =============================================================================

// EvenStrategy implements the Strategy interface for even splits
type EvenStrategy struct{}

// Type returns the split type identifier
func (s *EvenStrategy) Type() SplitType {
	return SplitTypeEven
}

// Validate checks if the inputs are valid for an even split
func (s *EvenStrategy) Validate(total money.Cents, participants []SplitInput) error {
	return validateCommon(total, participants)
}

// Calculate divides the total evenly. Leftover cents go one each to the first
// participants, so the shares always add back up to the total.
func (s *EvenStrategy) Calculate(total money.Cents, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	n := money.Cents(len(participants))
	share := total / n
	remainder := total % n

	outputs := make([]SplitOutput, len(participants))
	for i, p := range participants {
		amount := share
		if money.Cents(i) < remainder {
			amount++
		}
		outputs[i] = SplitOutput{UserID: p.UserID, AmountOwed: amount}
	}

	return outputs, nil
}
