package rule

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestLoadRule_Valid(t *testing.T) {
	loader := NewLoader()

	validYAML := `rules:
  - id: pan.test.16
    brand: TEST
    length: 16
    description: >
      Test issuer.
    any:
      - digits: 2
        above: 50
        below: 56
      - digits: 1
        equals: [4]
    references:
      - https://example.com/iin
    examples:
      - "4111111111111111"
    negative_examples:
      - "6011111111111117"
`

	rule, err := loader.LoadRule([]byte(validYAML))
	if err != nil {
		t.Fatalf("LoadRule failed: %v", err)
	}

	if rule.ID != "pan.test.16" {
		t.Errorf("expected ID pan.test.16, got %s", rule.ID)
	}
	if rule.Brand != "TEST" {
		t.Errorf("expected brand TEST, got %s", rule.Brand)
	}
	if rule.Length != 16 {
		t.Errorf("expected length 16, got %d", rule.Length)
	}
	if rule.Description != "Test issuer." {
		t.Errorf("expected trimmed description, got %q", rule.Description)
	}
	if len(rule.Any) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(rule.Any))
	}
	first := rule.Any[0]
	if first.Digits != 2 || first.Above == nil || *first.Above != 50 || first.Below == nil || *first.Below != 56 {
		t.Errorf("unexpected first condition: %s", first)
	}
	if first.From != nil || first.To != nil {
		t.Errorf("unset bounds must stay nil: %s", first)
	}
	if got := rule.Any[1].Equals; len(got) != 1 || got[0] != 4 {
		t.Errorf("expected equals [4], got %v", got)
	}
	if len(rule.Examples) != 1 || len(rule.NegativeExamples) != 1 || len(rule.References) != 1 {
		t.Errorf("examples, negative examples and references not loaded: %+v", rule)
	}
}

func TestLoadRule_InvalidYAML(t *testing.T) {
	loader := NewLoader()

	_, err := loader.LoadRule([]byte(`this is not valid yaml: [[[`))
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadRule_NoRules(t *testing.T) {
	loader := NewLoader()

	_, err := loader.LoadRule([]byte(`rules: []`))
	if err == nil {
		t.Error("expected error for empty rules array")
	}
}

func TestLoadRule_MultipleRules(t *testing.T) {
	loader := NewLoader()

	multipleYAML := `rules:
  - id: pan.a.16
    brand: A
    length: 16
    any: [{digits: 1, equals: [4]}]
  - id: pan.b.15
    brand: B
    length: 15
    any: [{digits: 2, equals: [34]}]
`

	if _, err := loader.LoadRule([]byte(multipleYAML)); err == nil {
		t.Error("expected error for multiple rules")
	}

	rules, err := loader.LoadRules([]byte(multipleYAML))
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	if len(rules) != 2 || rules[0].ID != "pan.a.16" || rules[1].ID != "pan.b.15" {
		t.Errorf("rules not loaded in file order: %v", rules)
	}
}

func TestLoadRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	content := `rules:
  - id: pan.custom.13
    brand: CUSTOM
    length: 13
    any: [{digits: 1, equals: [4]}]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader()
	rules, err := loader.LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile failed: %v", err)
	}
	if len(rules) != 1 || rules[0].Length != 13 {
		t.Errorf("unexpected rules: %v", rules)
	}

	if _, err := loader.LoadRuleFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadBuiltinRules(t *testing.T) {
	loader := NewLoader()

	rules, err := loader.LoadBuiltinRules()
	if err != nil {
		t.Fatalf("LoadBuiltinRules failed: %v", err)
	}

	want := []string{
		"pan.mastercard.16",
		"pan.visa.16",
		"pan.discover.16",
		"pan.jcb.16",
		"pan.amex.15",
		"pan.enroute.15",
		"pan.jcb.15",
		"pan.diners.14",
	}
	if len(rules) != len(want) {
		t.Fatalf("expected %d builtin rules, got %d", len(want), len(rules))
	}
	for i, id := range want {
		if rules[i].ID != id {
			t.Errorf("rule %d: expected %s, got %s", i, id, rules[i].ID)
		}
	}

	if err := ValidateRules(rules); err != nil {
		t.Errorf("builtin rules do not validate: %v", err)
	}
}

func TestLoadBuiltinRules_CustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"rules/a.yml": &fstest.MapFile{Data: []byte(`rules:
  - id: pan.a.16
    brand: A
    length: 16
    any: [{digits: 1, equals: [4]}]
`)},
		"rules/b.yml": &fstest.MapFile{Data: []byte(`rules:
  - id: pan.b.14
    brand: B
    length: 14
    any: [{digits: 2, equals: [36]}]
`)},
		"rules/readme.txt": &fstest.MapFile{Data: []byte("ignored")},
	}

	rules, err := NewLoaderWithFS(fsys).LoadBuiltinRules()
	if err != nil {
		t.Fatalf("LoadBuiltinRules failed: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].ID != "pan.a.16" || rules[1].ID != "pan.b.14" {
		t.Errorf("unexpected order: %s, %s", rules[0].ID, rules[1].ID)
	}
}

func TestLoadBuiltinRules_BadFile(t *testing.T) {
	fsys := fstest.MapFS{
		"rules/bad.yml": &fstest.MapFile{Data: []byte("rules: [[[")},
	}

	if _, err := NewLoaderWithFS(fsys).LoadBuiltinRules(); err == nil {
		t.Error("expected error for unparsable table")
	}
}
