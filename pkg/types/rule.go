package types

import "fmt"

// IssuerRule classifies candidate numbers of one length as one brand.
// A rule matches when any of its prefix conditions holds.
type IssuerRule struct {
	ID          string            `json:"id" yaml:"id"`
	Brand       string            `json:"brand" yaml:"brand"`
	Length      int               `json:"length" yaml:"length"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	References  []string          `json:"references,omitempty" yaml:"references,omitempty"`
	Any         []PrefixCondition `json:"any" yaml:"any"`

	// Examples are Luhn-valid numbers the rule must accept; negative
	// examples are Luhn-valid numbers it must reject.
	Examples         []string `json:"examples,omitempty" yaml:"examples,omitempty"`
	NegativeExamples []string `json:"negative_examples,omitempty" yaml:"negative_examples,omitempty"`
}

// PrefixCondition constrains the numeric value of the first Digits digits.
// Above and Below are exclusive bounds, From and To are inclusive. Every
// constraint that is set must hold.
type PrefixCondition struct {
	Digits int   `json:"digits" yaml:"digits"`
	Equals []int `json:"equals,omitempty" yaml:"equals,omitempty"`
	Above  *int  `json:"above,omitempty" yaml:"above,omitempty"`
	Below  *int  `json:"below,omitempty" yaml:"below,omitempty"`
	From   *int  `json:"from,omitempty" yaml:"from,omitempty"`
	To     *int  `json:"to,omitempty" yaml:"to,omitempty"`
}

// Holds reports whether the condition accepts a prefix value.
func (c PrefixCondition) Holds(prefix int) bool {
	if len(c.Equals) > 0 {
		found := false
		for _, v := range c.Equals {
			if v == prefix {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.Above != nil && prefix <= *c.Above {
		return false
	}
	if c.Below != nil && prefix >= *c.Below {
		return false
	}
	if c.From != nil && prefix < *c.From {
		return false
	}
	if c.To != nil && prefix > *c.To {
		return false
	}
	return true
}

// Constrained reports whether at least one constraint is set.
func (c PrefixCondition) Constrained() bool {
	return len(c.Equals) > 0 || c.Above != nil || c.Below != nil || c.From != nil || c.To != nil
}

// String renders the condition the way the rules table reads.
func (c PrefixCondition) String() string {
	s := fmt.Sprintf("first %d", c.Digits)
	if len(c.Equals) == 1 {
		s += fmt.Sprintf(" == %d", c.Equals[0])
	} else if len(c.Equals) > 1 {
		s += fmt.Sprintf(" in %v", c.Equals)
	}
	if c.Above != nil {
		s += fmt.Sprintf(" > %d", *c.Above)
	}
	if c.Below != nil {
		s += fmt.Sprintf(" < %d", *c.Below)
	}
	if c.From != nil && c.To != nil {
		s += fmt.Sprintf(" in [%d,%d]", *c.From, *c.To)
	} else if c.From != nil {
		s += fmt.Sprintf(" >= %d", *c.From)
	} else if c.To != nil {
		s += fmt.Sprintf(" <= %d", *c.To)
	}
	return s
}
