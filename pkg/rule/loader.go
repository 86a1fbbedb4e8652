package rule

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/panscan/pkg/types"
	"gopkg.in/yaml.v3"
)

// Loader handles loading issuer rules from YAML files.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in rules
}

// NewLoader creates a loader with built-in rules from embedded filesystem.
func NewLoader() *Loader {
	return &Loader{
		fs: builtinRulesFS,
	}
}

// NewLoaderWithFS creates a loader with a custom filesystem.
// The filesystem must hold its tables under rules/.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs: fsys,
	}
}

// LoadRule loads a single rule from YAML bytes.
// Returns error if YAML is invalid or multiple rules are present.
func (l *Loader) LoadRule(data []byte) (*types.IssuerRule, error) {
	rules, err := l.LoadRules(data)
	if err != nil {
		return nil, err
	}
	if len(rules) > 1 {
		return nil, fmt.Errorf("expected single rule, found %d", len(rules))
	}
	return rules[0], nil
}

// LoadRules loads every rule of a YAML table, in file order.
func (l *Loader) LoadRules(data []byte) ([]*types.IssuerRule, error) {
	var yamlFile yamlRulesFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlFile.Rules) == 0 {
		return nil, fmt.Errorf("no rules found in YAML")
	}

	rules := make([]*types.IssuerRule, 0, len(yamlFile.Rules))
	for _, yr := range yamlFile.Rules {
		rules = append(rules, convertYAMLRule(yr))
	}
	return rules, nil
}

// LoadRuleFile loads a rules table from a YAML file path.
func (l *Loader) LoadRuleFile(path string) ([]*types.IssuerRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	rules, err := l.LoadRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// LoadBuiltinRules loads all built-in rules from embedded filesystem.
// Files are read in lexical order, rules within a file in file order.
func (l *Loader) LoadBuiltinRules() ([]*types.IssuerRule, error) {
	var rules []*types.IssuerRule

	err := fs.WalkDir(l.fs, "rules", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(l.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var yamlFile yamlRulesFile
		if err := yaml.Unmarshal(data, &yamlFile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for _, yr := range yamlFile.Rules {
			rules = append(rules, convertYAMLRule(yr))
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return rules, nil
}

// convertYAMLRule converts yamlRule to types.IssuerRule.
func convertYAMLRule(yr yamlRule) *types.IssuerRule {
	r := &types.IssuerRule{
		ID:               yr.ID,
		Brand:            yr.Brand,
		Length:           yr.Length,
		Description:      strings.TrimSpace(yr.Description),
		References:       yr.References,
		Examples:         yr.Examples,
		NegativeExamples: yr.NegativeExamples,
	}
	for _, c := range yr.Any {
		r.Any = append(r.Any, types.PrefixCondition{
			Digits: c.Digits,
			Equals: c.Equals,
			Above:  c.Above,
			Below:  c.Below,
			From:   c.From,
			To:     c.To,
		})
	}
	return r
}
