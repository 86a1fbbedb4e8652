package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// FilterConfig specifies include and exclude patterns for rule filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching rules included
	Exclude []string // Regex patterns - matching rules excluded
}

// ParsePatterns splits a comma-separated flag value into trimmed,
// non-empty patterns.
func ParsePatterns(patterns string) []string {
	result := []string{}
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Filter keeps the rules whose ID or brand matches an include pattern (all
// rules when there are none) and drops those matching an exclude pattern.
func Filter(rules []*types.IssuerRule, config FilterConfig) ([]*types.IssuerRule, error) {
	include, err := compilePatterns(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compilePatterns(config.Exclude)
	if err != nil {
		return nil, err
	}
	if len(include) == 0 && len(exclude) == 0 {
		return rules, nil
	}

	kept := make([]*types.IssuerRule, 0, len(rules))
	for _, r := range rules {
		if len(include) > 0 && !matchesAny(r, include) {
			continue
		}
		if matchesAny(r, exclude) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// matchesAny tests a rule's ID and its brand.
func matchesAny(rule *types.IssuerRule, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(rule.ID) || re.MatchString(rule.Brand) {
			return true
		}
	}
	return false
}
