package rule

// yamlCondition is one prefix test of a rule's "any" list.
type yamlCondition struct {
	Digits int   `yaml:"digits"`
	Equals []int `yaml:"equals,omitempty"`
	Above  *int  `yaml:"above,omitempty"`
	Below  *int  `yaml:"below,omitempty"`
	From   *int  `yaml:"from,omitempty"`
	To     *int  `yaml:"to,omitempty"`
}

// yamlRule is the intermediate struct for parsing the issuer YAML format.
// Maps YAML fields to types.IssuerRule.
type yamlRule struct {
	ID               string          `yaml:"id"`
	Brand            string          `yaml:"brand"`
	Length           int             `yaml:"length"`
	Description      string          `yaml:"description,omitempty"`
	Any              []yamlCondition `yaml:"any"`
	Examples         []string        `yaml:"examples,omitempty"`
	NegativeExamples []string        `yaml:"negative_examples,omitempty"`
	References       []string        `yaml:"references,omitempty"`
}

// yamlRulesFile represents the top-level structure of a rules YAML file.
type yamlRulesFile struct {
	Rules []yamlRule `yaml:"rules"`
}
