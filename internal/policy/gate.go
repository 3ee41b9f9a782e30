package policy

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/venturalitica/venturalitica-go/internal/models"
)

// GateEngine evaluates policy-level gate rules (CEL expressions) against the
// summary of a finished enforcement run. Gates are how CI pipelines turn an
// audit into a go/no-go decision beyond per-control pass/fail.
type GateEngine struct {
	env *cel.Env
}

// NewGateEngine builds the CEL environment. The expression input is exposed
// as `input`, a map with total/passed/failed/skipped/errors counters and the
// per-control result list.
func NewGateEngine() (*GateEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &GateEngine{env: env}, nil
}

// GateResult is one gate rule's verdict.
type GateResult struct {
	RuleName   string `json:"rule_name"`
	Passed     bool   `json:"passed"`
	FailureMsg string `json:"failure_msg,omitempty"`
}

// Evaluate runs every gate rule of a policy over the result list.
func (g *GateEngine) Evaluate(pol *models.Policy, results []models.ComplianceResult) ([]GateResult, error) {
	if len(pol.Rules) == 0 {
		return nil, nil
	}
	input := summaryInput(results)

	out := make([]GateResult, 0, len(pol.Rules))
	for _, rule := range pol.Rules {
		res, err := g.evaluateRule(rule, input)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate gate rule %q: %w", rule.Name, err)
		}
		out = append(out, res)
	}
	return out, nil
}

func (g *GateEngine) evaluateRule(rule models.GateRule, input map[string]any) (GateResult, error) {
	ast, issues := g.env.Compile(rule.Expr)
	if issues != nil && issues.Err() != nil {
		return GateResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL compile error: %v", issues.Err()),
		}, nil
	}

	prg, err := g.env.Program(ast)
	if err != nil {
		return GateResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL program error: %v", err),
		}, nil
	}

	out, _, err := prg.Eval(map[string]any{"input": input})
	if err != nil {
		return GateResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("CEL evaluation error: %v", err),
		}, nil
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return GateResult{
			RuleName:   rule.Name,
			Passed:     false,
			FailureMsg: fmt.Sprintf("gate expression must return boolean, got %T", out.Value()),
		}, nil
	}

	res := GateResult{RuleName: rule.Name, Passed: passed}
	if !passed {
		res.FailureMsg = rule.FailureMsg
	}
	return res, nil
}

// CompileAndValidate checks every gate rule compiles, for policy validate.
func (g *GateEngine) CompileAndValidate(pol *models.Policy) error {
	var errs []string
	for _, rule := range pol.Rules {
		_, issues := g.env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			errs = append(errs, fmt.Sprintf("rule %q: %v", rule.Name, issues.Err()))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("gate validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// summaryInput converts results into the CEL input map (deterministic).
func summaryInput(results []models.ComplianceResult) map[string]any {
	s := models.Summarize(results)
	list := make([]any, len(results))
	for i, r := range results {
		list[i] = r.Record()
	}
	return map[string]any{
		"total":   s.Total,
		"passed":  s.Passed,
		"failed":  s.Failed,
		"skipped": s.Skipped,
		"errors":  s.Errors,
		"results": list,
	}
}
