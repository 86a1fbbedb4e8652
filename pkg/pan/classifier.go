package pan

import "github.com/praetorian-inc/panscan/pkg/types"

// Classifier maps Luhn-valid digit runs to issuer brands using a rule table.
type Classifier struct {
	rules    []*types.IssuerRule
	byLength map[int][]*types.IssuerRule
}

// NewClassifier indexes rules by candidate length. Rule order is kept, so
// brands come back in table order.
func NewClassifier(rules []*types.IssuerRule) *Classifier {
	c := &Classifier{
		rules:    rules,
		byLength: make(map[int][]*types.IssuerRule),
	}
	for _, r := range rules {
		c.byLength[r.Length] = append(c.byLength[r.Length], r)
	}
	return c
}

// Rules returns the table the classifier was built from.
func (c *Classifier) Rules() []*types.IssuerRule {
	return c.rules
}

// Classify returns every rule that accepts digits. It does not check Luhn.
func (c *Classifier) Classify(digits []uint8) []*types.IssuerRule {
	if c == nil {
		return nil
	}

	var matched []*types.IssuerRule
	for _, r := range c.byLength[len(digits)] {
		for _, cond := range r.Any {
			if cond.Digits < 1 || cond.Digits > len(digits) {
				continue
			}
			if cond.Holds(prefixValue(digits, cond.Digits)) {
				matched = append(matched, r)
				break
			}
		}
	}
	return matched
}

// Brands is Classify reduced to brand names.
func (c *Classifier) Brands(digits []uint8) []string {
	var brands []string
	for _, r := range c.Classify(digits) {
		brands = append(brands, r.Brand)
	}
	return brands
}

func prefixValue(digits []uint8, n int) int {
	v := 0
	for _, d := range digits[:n] {
		v = v*10 + int(d)
	}
	return v
}
