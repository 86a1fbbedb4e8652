package rule

import (
	"testing"

	"github.com/praetorian-inc/panscan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string returns empty slice",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single pattern",
			input:    "pan.visa.*",
			expected: []string{"pan.visa.*"},
		},
		{
			name:     "multiple patterns comma-separated",
			input:    "pan.visa.*,pan.amex.*,JCB",
			expected: []string{"pan.visa.*", "pan.amex.*", "JCB"},
		},
		{
			name:     "patterns with spaces are trimmed",
			input:    " pan.visa.* , pan.amex.* ,, JCB ",
			expected: []string{"pan.visa.*", "pan.amex.*", "JCB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePatterns(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func filterFixture() []*types.IssuerRule {
	return []*types.IssuerRule{
		{ID: "pan.mastercard.16", Brand: "MASTERCARD", Length: 16},
		{ID: "pan.visa.16", Brand: "VISA", Length: 16},
		{ID: "pan.jcb.16", Brand: "JCB", Length: 16},
		{ID: "pan.amex.15", Brand: "AMEX", Length: 15},
		{ID: "pan.jcb.15", Brand: "JCB", Length: 15},
	}
}

func ruleIDs(rules []*types.IssuerRule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		config   FilterConfig
		expected []string
	}{
		{
			name:     "empty config returns all rules",
			config:   FilterConfig{},
			expected: []string{"pan.mastercard.16", "pan.visa.16", "pan.jcb.16", "pan.amex.15", "pan.jcb.15"},
		},
		{
			name:     "include by rule ID",
			config:   FilterConfig{Include: []string{`^pan\.visa\.`}},
			expected: []string{"pan.visa.16"},
		},
		{
			name:     "include by brand matches every length",
			config:   FilterConfig{Include: []string{"^JCB$"}},
			expected: []string{"pan.jcb.16", "pan.jcb.15"},
		},
		{
			name:     "include by length suffix",
			config:   FilterConfig{Include: []string{`\.15$`}},
			expected: []string{"pan.amex.15", "pan.jcb.15"},
		},
		{
			name:     "exclude brand",
			config:   FilterConfig{Exclude: []string{"^JCB$", "^AMEX$"}},
			expected: []string{"pan.mastercard.16", "pan.visa.16"},
		},
		{
			name:     "include then exclude",
			config:   FilterConfig{Include: []string{`\.16$`}, Exclude: []string{"MASTERCARD"}},
			expected: []string{"pan.visa.16", "pan.jcb.16"},
		},
		{
			name:     "include pattern matches none",
			config:   FilterConfig{Include: []string{"^pan.nomatch"}},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered, err := Filter(filterFixture(), tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ruleIDs(filtered))
		})
	}
}

func TestFilter_InvalidRegex(t *testing.T) {
	tests := []struct {
		name   string
		config FilterConfig
	}{
		{name: "invalid include regex", config: FilterConfig{Include: []string{"[invalid"}}},
		{name: "invalid exclude regex", config: FilterConfig{Exclude: []string{"[invalid"}}},
		{name: "one of several invalid", config: FilterConfig{Include: []string{"pan.*", "[invalid"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Filter(filterFixture(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid regex pattern")
		})
	}
}

func TestFilter_NilRules(t *testing.T) {
	filtered, err := Filter(nil, FilterConfig{Include: []string{".*"}})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}
