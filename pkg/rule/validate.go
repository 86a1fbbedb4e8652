package rule

import (
	"fmt"

	"github.com/praetorian-inc/panscan/pkg/pan"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// Candidate lengths a rule may classify.
const (
	MinLength = 13
	MaxLength = 16
)

// ValidateRule checks rule consistency and required fields.
// Returns error if rule is invalid.
func ValidateRule(r *types.IssuerRule) error {
	if r == nil {
		return fmt.Errorf("rule is nil")
	}

	// Check required fields
	if r.ID == "" {
		return fmt.Errorf("rule ID is required")
	}
	if r.Brand == "" {
		return fmt.Errorf("rule %s: brand is required", r.ID)
	}
	if r.Length < MinLength || r.Length > MaxLength {
		return fmt.Errorf("rule %s: length %d outside [%d,%d]", r.ID, r.Length, MinLength, MaxLength)
	}
	if len(r.Any) == 0 {
		return fmt.Errorf("rule %s: at least one prefix condition is required", r.ID)
	}

	for i, c := range r.Any {
		if c.Digits < 1 || c.Digits > r.Length {
			return fmt.Errorf("rule %s: condition %d: digits %d outside [1,%d]", r.ID, i, c.Digits, r.Length)
		}
		if !c.Constrained() {
			return fmt.Errorf("rule %s: condition %d has no constraint", r.ID, i)
		}
	}

	// Examples are checked against this rule alone
	classifier := pan.NewClassifier([]*types.IssuerRule{r})
	for _, ex := range r.Examples {
		digits, err := exampleDigits(r, ex)
		if err != nil {
			return err
		}
		if len(classifier.Classify(digits)) == 0 {
			return fmt.Errorf("rule %s: example %s is not accepted", r.ID, ex)
		}
	}
	for _, ex := range r.NegativeExamples {
		digits, err := exampleDigits(r, ex)
		if err != nil {
			return err
		}
		if len(classifier.Classify(digits)) != 0 {
			return fmt.Errorf("rule %s: negative example %s is accepted", r.ID, ex)
		}
	}

	return nil
}

// ValidateRules validates every rule and rejects duplicate IDs.
func ValidateRules(rules []*types.IssuerRule) error {
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate rule ID: %s", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

func exampleDigits(r *types.IssuerRule, ex string) ([]uint8, error) {
	digits, err := pan.ParseDigits(ex)
	if err != nil {
		return nil, fmt.Errorf("rule %s: example %q: %w", r.ID, ex, err)
	}
	if len(digits) != r.Length {
		return nil, fmt.Errorf("rule %s: example %s has %d digits, want %d", r.ID, ex, len(digits), r.Length)
	}
	if !pan.LuhnValid(digits) {
		return nil, fmt.Errorf("rule %s: example %s fails the Luhn check", r.ID, ex)
	}
	return digits, nil
}
