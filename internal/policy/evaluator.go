package policy

import (
	"errors"
	"fmt"

	"github.com/venturalitica/venturalitica-go/internal/audit"
	"github.com/venturalitica/venturalitica-go/internal/binding"
	"github.com/venturalitica/venturalitica-go/internal/dataset"
	"github.com/venturalitica/venturalitica-go/internal/metrics"
	"github.com/venturalitica/venturalitica-go/internal/models"
)

// Evaluator drives each control through a strictly linear pass: resolve
// bindings, compute the metric, compare against the threshold. Every control
// yields exactly one ComplianceResult whatever its terminal state.
//
// In lenient mode a missing binding degrades to SKIPPED and a computation
// failure to ERROR, and evaluation continues. In strict mode the first such
// failure aborts the whole run. An unknown metric key is a configuration
// bug and aborts in both modes.
type Evaluator struct {
	registry *metrics.Registry
	resolver *binding.Resolver
	sink     audit.Sink
	strict   bool
}

// NewEvaluator wires the evaluator's collaborators. A nil sink discards
// narration.
func NewEvaluator(reg *metrics.Registry, res *binding.Resolver, sink audit.Sink, strict bool) *Evaluator {
	if sink == nil {
		sink = audit.Discard()
	}
	return &Evaluator{registry: reg, resolver: res, sink: sink, strict: strict}
}

// Evaluate runs every control of a policy against the dataset, in document
// order. caller maps semantic variable names to physical columns.
func (e *Evaluator) Evaluate(pol *models.Policy, f *dataset.Frame, caller map[string]string) ([]models.ComplianceResult, error) {
	results := make([]models.ComplianceResult, 0, len(pol.Controls))
	for _, ctrl := range pol.Controls {
		res, err := e.evaluateControl(ctrl, f, caller)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Evaluator) evaluateControl(ctrl models.Control, f *dataset.Frame, caller map[string]string) (models.ComplianceResult, error) {
	res := newResult(ctrl)

	fn, err := e.registry.Get(ctrl.MetricKey)
	if err != nil {
		// Unknown metric is fatal regardless of mode.
		return res, fmt.Errorf("control %q: %w", ctrl.ID, err)
	}
	md, _ := e.registry.Metadata(ctrl.MetricKey)

	e.sink.Linef("  Evaluating Control '%s': %s", ctrl.ID, truncate(ctrl.Description, 50))

	in, err := e.resolveInputs(ctrl, md, f, caller)
	if err != nil {
		var unresolved *binding.ResolutionError
		if !errors.As(err, &unresolved) || e.strict {
			return res, fmt.Errorf("control %q: %w", ctrl.ID, err)
		}
		res.Status = models.StatusSkipped
		res.SkipReason = err.Error()
		e.sink.Linef("    [Skip] Control '%s' (%s): %s", ctrl.ID, ctrl.MetricKey, res.SkipReason)
		return res, nil
	}

	value, detail, err := fn(f, in)
	if err != nil {
		if e.strict {
			return res, fmt.Errorf("control %q: %w", ctrl.ID, err)
		}
		res.Status = models.StatusError
		res.ErrorMessage = err.Error()
		e.sink.Linef("    [Error] Control '%s' (%s): %s", ctrl.ID, ctrl.MetricKey, res.ErrorMessage)
		return res, nil
	}

	passed := ctrl.Operator.Compare(value, ctrl.Threshold)
	res.ActualValue = &value
	res.Passed = &passed
	res.Metadata = detail
	if passed {
		res.Status = models.StatusPass
	} else {
		res.Status = models.StatusFail
	}
	e.sink.Linef("    [%s] %s: actual=%.4f %s threshold=%.4g", res.Status, ctrl.ID, value, ctrl.Operator, ctrl.Threshold)
	return res, nil
}

// resolveInputs binds every role the control needs. Required roles are the
// union of the metric's declared roles and the policy's input bindings; a
// required role that resolves nowhere returns a *binding.ResolutionError.
// Optional roles bind best-effort.
func (e *Evaluator) resolveInputs(ctrl models.Control, md metrics.Metadata, f *dataset.Frame, caller map[string]string) (metrics.Inputs, error) {
	in := metrics.Inputs{
		Roles:  make(map[string]string),
		Params: make(map[string]string),
		Lists:  make(map[string][]string),
	}

	required := append([]string(nil), md.Roles...)
	for role := range ctrl.InputBindings {
		if !contains(required, role) {
			required = append(required, role)
		}
	}

	for _, role := range required {
		b, err := e.resolver.Resolve(role, ctrl.InputBindings, caller, f)
		if err != nil {
			return in, err
		}
		in.Roles[role] = b.Column
		e.sink.Linef("    [Binding] %s", b)
	}
	for _, role := range md.OptionalRoles {
		if _, done := in.Roles[role]; done {
			continue
		}
		if b, err := e.resolver.Resolve(role, ctrl.InputBindings, caller, f); err == nil {
			in.Roles[role] = b.Column
			e.sink.Linef("    [Binding] %s", b)
		}
	}

	for name, value := range ctrl.Params {
		switch name {
		case "quasi_identifiers", "sensitive_columns":
			in.Lists[name] = e.resolver.ResolveList(value, f)
		case "sensitive_attribute":
			if col, ok := e.resolver.Discover(value, f); ok {
				in.Params[name] = col
			} else {
				in.Params[name] = value
			}
		default:
			in.Params[name] = value
			e.sink.Linef("    [Param] Set static parameter '%s' = '%s'", name, value)
		}
	}
	return in, nil
}

// EvaluatePrecomputed evaluates controls directly against already-computed
// metric values, skipping binding and computation. Controls with no value
// present yield a SKIPPED result.
func (e *Evaluator) EvaluatePrecomputed(pol *models.Policy, values map[string]float64) []models.ComplianceResult {
	results := make([]models.ComplianceResult, 0, len(pol.Controls))
	for _, ctrl := range pol.Controls {
		res := newResult(ctrl)
		value, ok := values[ctrl.MetricKey]
		if !ok {
			res.Status = models.StatusSkipped
			res.SkipReason = fmt.Sprintf("no precomputed value for metric %q", ctrl.MetricKey)
			results = append(results, res)
			continue
		}
		passed := ctrl.Operator.Compare(value, ctrl.Threshold)
		res.ActualValue = &value
		res.Passed = &passed
		if passed {
			res.Status = models.StatusPass
		} else {
			res.Status = models.StatusFail
		}
		e.sink.Linef("    [%s] %s: actual=%.4f %s threshold=%.4g", res.Status, ctrl.ID, value, ctrl.Operator, ctrl.Threshold)
		results = append(results, res)
	}
	return results
}

func newResult(ctrl models.Control) models.ComplianceResult {
	return models.ComplianceResult{
		ControlID:   ctrl.ID,
		Description: ctrl.Description,
		MetricKey:   ctrl.MetricKey,
		Severity:    ctrl.Severity,
		Operator:    ctrl.Operator,
		Threshold:   ctrl.Threshold,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
