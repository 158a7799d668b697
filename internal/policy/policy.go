// Package policy evaluates optional pre-push rules, written as CEL
// expressions over revision metadata, so a team can block pushes that
// violate its own conventions (naming, description length, and so on).
package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Severity levels for rules. Only failing error-level rules abort a
// push; warn-level failures are reported and ignored.
const (
	SeverityError = "error"
	SeverityWarn  = "warn"
)

// Config is the YAML policy file.
type Config struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// Rule is one CEL expression evaluated against the push input.
type Rule struct {
	Name       string `yaml:"name"`
	Expr       string `yaml:"expr"`
	FailureMsg string `yaml:"failure_msg"`
	Severity   string `yaml:"severity"`
}

// Result of evaluating one rule.
type Result struct {
	RuleName   string
	Passed     bool
	Severity   string
	FailureMsg string
}

// Load reads and parses a policy file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	for i := range config.Rules {
		if config.Rules[i].Severity == "" {
			config.Rules[i].Severity = SeverityError
		}
	}
	return &config, nil
}
