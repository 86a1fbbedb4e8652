package rule

import (
	"strings"
	"testing"

	"github.com/praetorian-inc/panscan/pkg/types"
)

func intp(v int) *int { return &v }

func validRule() *types.IssuerRule {
	return &types.IssuerRule{
		ID:     "pan.test.16",
		Brand:  "TEST",
		Length: 16,
		Any: []types.PrefixCondition{
			{Digits: 2, Above: intp(50), Below: intp(56)},
		},
		Examples:         []string{"5555555555554444", "5105-1051-0510-5100"},
		NegativeExamples: []string{"5600000000000003"},
	}
}

func TestValidateRule_Valid(t *testing.T) {
	if err := ValidateRule(validRule()); err != nil {
		t.Errorf("ValidateRule failed for valid rule: %v", err)
	}
}

func TestValidateRule_NilRule(t *testing.T) {
	err := ValidateRule(nil)
	if err == nil {
		t.Fatal("expected error for nil rule")
	}
	if !strings.Contains(err.Error(), "nil") {
		t.Errorf("expected 'nil' in error message, got: %v", err)
	}
}

func TestValidateRule_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *types.IssuerRule)
		want   string
	}{
		{
			name:   "missing ID",
			mutate: func(r *types.IssuerRule) { r.ID = "" },
			want:   "ID",
		},
		{
			name:   "missing brand",
			mutate: func(r *types.IssuerRule) { r.Brand = "" },
			want:   "brand",
		},
		{
			name:   "length too short",
			mutate: func(r *types.IssuerRule) { r.Length = 12 },
			want:   "length",
		},
		{
			name:   "length too long",
			mutate: func(r *types.IssuerRule) { r.Length = 17 },
			want:   "length",
		},
		{
			name:   "no conditions",
			mutate: func(r *types.IssuerRule) { r.Any = nil },
			want:   "prefix condition",
		},
		{
			name:   "zero digits",
			mutate: func(r *types.IssuerRule) { r.Any[0].Digits = 0 },
			want:   "digits",
		},
		{
			name:   "more digits than the length",
			mutate: func(r *types.IssuerRule) { r.Any[0].Digits = 17 },
			want:   "digits",
		},
		{
			name: "unconstrained condition",
			mutate: func(r *types.IssuerRule) {
				r.Any = append(r.Any, types.PrefixCondition{Digits: 1})
			},
			want: "no constraint",
		},
		{
			name:   "example of the wrong length",
			mutate: func(r *types.IssuerRule) { r.Examples = []string{"378282246310005"} },
			want:   "digits, want 16",
		},
		{
			name:   "example failing Luhn",
			mutate: func(r *types.IssuerRule) { r.Examples = []string{"5555555555554445"} },
			want:   "Luhn",
		},
		{
			name:   "example with letters",
			mutate: func(r *types.IssuerRule) { r.Examples = []string{"5555x55555554444"} },
			want:   "example",
		},
		{
			name:   "example rejected",
			mutate: func(r *types.IssuerRule) { r.Examples = []string{"4111111111111111"} },
			want:   "not accepted",
		},
		{
			name:   "negative example accepted",
			mutate: func(r *types.IssuerRule) { r.NegativeExamples = []string{"5100000000000008"} },
			want:   "negative example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(r)
			err := ValidateRule(r)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error message, got: %v", tt.want, err)
			}
		})
	}
}

func TestValidateRules_Duplicate(t *testing.T) {
	err := ValidateRules([]*types.IssuerRule{validRule(), validRule()})
	if err == nil {
		t.Fatal("expected error for duplicate IDs")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected 'duplicate' in error message, got: %v", err)
	}
}

func TestValidateRules_Empty(t *testing.T) {
	if err := ValidateRules(nil); err != nil {
		t.Errorf("empty table must validate: %v", err)
	}
}
