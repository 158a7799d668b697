package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Engine compiles and evaluates CEL rules. The single variable exposed
// to expressions is "input", a map of revision metadata; schema file
// contents are deliberately not exposed.
type Engine struct {
	env *cel.Env
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Engine{env: env}, nil
}

// Evaluate runs every rule in config against input.
func (e *Engine) Evaluate(config *Config, input map[string]any) ([]Result, error) {
	results := make([]Result, 0, len(config.Rules))
	for _, rule := range config.Rules {
		passed, err := e.evaluateRule(rule, input)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate rule %q: %w", rule.Name, err)
		}
		result := Result{
			RuleName: rule.Name,
			Passed:   passed,
			Severity: rule.Severity,
		}
		if !passed {
			result.FailureMsg = rule.FailureMsg
			if result.FailureMsg == "" {
				result.FailureMsg = "rule returned false"
			}
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Engine) evaluateRule(rule Rule, input map[string]any) (bool, error) {
	ast, issues := e.env.Compile(rule.Expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %w", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %w", err)
	}

	out, _, err := prg.Eval(map[string]any{"input": input})
	if err != nil {
		return false, fmt.Errorf("evaluation error: %w", err)
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression did not evaluate to a boolean")
	}
	return passed, nil
}

// Violations returns the failing error-level results.
func Violations(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && r.Severity == SeverityError {
			failed = append(failed, r)
		}
	}
	return failed
}
