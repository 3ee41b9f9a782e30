// Package enforce orchestrates a full governance run: dataset binding,
// policy evaluation, gate rules, and evidence persistence.
package enforce

import (
	"context"
	"fmt"
	"os"

	"github.com/venturalitica/venturalitica-go/internal/audit"
	"github.com/venturalitica/venturalitica-go/internal/binding"
	"github.com/venturalitica/venturalitica-go/internal/dataset"
	"github.com/venturalitica/venturalitica-go/internal/metrics"
	"github.com/venturalitica/venturalitica-go/internal/models"
	"github.com/venturalitica/venturalitica-go/internal/observability/logging"
	"github.com/venturalitica/venturalitica-go/internal/policy"
	"github.com/venturalitica/venturalitica-go/internal/store"
)

// Options configures one enforcement run. Data or DataPath supplies the
// dataset; Metrics switches to the precomputed path where no dataset is
// needed at all.
type Options struct {
	// Data is a pre-loaded dataset. Takes precedence over DataPath.
	Data *dataset.Frame
	// DataPath is a CSV file to load when Data is nil.
	DataPath string

	// Policies are evaluated in order. Each entry is a policy file path or
	// the name of a built-in preset.
	Policies []string

	// Metrics holds precomputed metric values keyed by metric key. When
	// set, controls are compared directly against these values and the
	// dataset is never touched.
	Metrics map[string]float64

	// Target and Prediction are variable or column hints for the two core
	// roles. They go through synonym discovery against the dataset.
	Target     string
	Prediction string

	// Predictions is an in-memory model output series. It is materialized
	// as a dataset column before evaluation, under the Prediction hint or
	// "prediction" when no hint is given.
	Predictions []float64

	// Bindings maps semantic variable names to physical columns, taking
	// precedence over discovery.
	Bindings map[string]string

	// Strict overrides the environment-derived mode when non-nil.
	Strict *bool

	// Registry defaults to the built-in metric battery.
	Registry *metrics.Registry
	// Sink receives audit narration. Defaults to discard.
	Sink audit.Sink

	// ResultsPath, when set, merges this run's results into a JSON
	// evidence file. HistoryPath, when set, appends the run to a SQLite
	// run log.
	ResultsPath string
	HistoryPath string

	// Exporters receive the final result list after a successful run.
	Exporters []ResultExporter
}

// ResultExporter is the fan-out contract for downstream systems. Exporters
// run after evaluation completes; a failing exporter fails the run.
type ResultExporter interface {
	Export(ctx context.Context, results []models.ComplianceResult) error
}

// Report is the outcome of one enforcement run.
type Report struct {
	Policies []*models.Policy
	Results  []models.ComplianceResult
	Summary  models.Summary
	Gates    []policy.GateResult
	Strict   bool
	RunID    string
}

// GatePassed reports whether every gate rule across all policies held.
func (r *Report) GatePassed() bool {
	for _, g := range r.Gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// StrictFromEnv derives the default mode from the environment: CI pipelines
// and explicit opt-in both enable strict.
func StrictFromEnv() bool {
	return envTrue(os.Getenv("CI")) || envTrue(os.Getenv("VENTURALITICA_STRICT"))
}

func envTrue(v string) bool {
	return v == "true" || v == "1" || v == "True" || v == "TRUE"
}

// Enforce runs every named policy against the dataset (or precomputed
// values) and returns the aggregate report. In strict mode the first
// missing binding or failed computation aborts with an error; in lenient
// mode those degrade per control and the run completes.
func Enforce(ctx context.Context, opts Options) (*Report, error) {
	log := logging.From(ctx)

	strict := StrictFromEnv()
	if opts.Strict != nil {
		strict = *opts.Strict
	}

	registry := opts.Registry
	if registry == nil {
		registry = metrics.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = audit.Discard()
	}
	resolver := binding.NewResolver(nil)

	if len(opts.Policies) == 0 {
		return nil, fmt.Errorf("no policies given")
	}
	policies, err := loadPolicies(opts.Policies)
	if err != nil {
		return nil, err
	}

	report := &Report{Policies: policies, Strict: strict}

	if opts.Metrics != nil {
		evaluator := policy.NewEvaluator(registry, resolver, sink, strict)
		for _, pol := range policies {
			sink.Linef("Enforcing Policy '%s' (precomputed)", pol.Title)
			results := evaluator.EvaluatePrecomputed(pol, opts.Metrics)
			report.Results = append(report.Results, results...)
		}
	} else {
		frame, caller, err := prepareData(opts, resolver)
		if err != nil {
			return nil, err
		}
		evaluator := policy.NewEvaluator(registry, resolver, sink, strict)
		for _, pol := range policies {
			sink.Linef("Enforcing Policy '%s' (%d controls)", pol.Title, len(pol.Controls))
			results, err := evaluator.Evaluate(pol, frame, caller)
			if err != nil {
				return nil, fmt.Errorf("policy %q: %w", pol.Title, err)
			}
			report.Results = append(report.Results, results...)
		}
	}

	report.Summary = models.Summarize(report.Results)

	gates, err := evaluateGates(policies, report.Results)
	if err != nil {
		return nil, err
	}
	report.Gates = gates

	if opts.ResultsPath != "" {
		if err := store.SaveResults(opts.ResultsPath, report.Results); err != nil {
			return nil, err
		}
	}
	if opts.HistoryPath != "" {
		if err := recordHistory(ctx, opts, report); err != nil {
			return nil, err
		}
	}

	for _, exp := range opts.Exporters {
		if err := exp.Export(ctx, report.Results); err != nil {
			return nil, fmt.Errorf("export results: %w", err)
		}
	}

	log.Event(ctx, "enforce.completed", map[string]any{
		"policies": len(policies),
		"strict":   strict,
		"total":    report.Summary.Total,
		"passed":   report.Summary.Passed,
		"failed":   report.Summary.Failed,
		"skipped":  report.Summary.Skipped,
		"errors":   report.Summary.Errors,
	})
	return report, nil
}

// loadPolicies resolves each name as a file first, then as a preset.
func loadPolicies(names []string) ([]*models.Policy, error) {
	policies := make([]*models.Policy, 0, len(names))
	for _, name := range names {
		if _, err := os.Stat(name); err == nil {
			pol, err := policy.Load(name)
			if err != nil {
				return nil, err
			}
			policies = append(policies, pol)
			continue
		}
		if pol := policy.GetPreset(name); pol != nil {
			policies = append(policies, pol)
			continue
		}
		return nil, fmt.Errorf("policy %q: no such file or preset", name)
	}
	return policies, nil
}

// prepareData loads the dataset, materializes a caller prediction series as
// a column, and discovers target/prediction columns from the hints.
func prepareData(opts Options, resolver *binding.Resolver) (*dataset.Frame, map[string]string, error) {
	frame := opts.Data
	if frame == nil {
		if opts.DataPath == "" {
			return nil, nil, fmt.Errorf("no dataset given (need Data, DataPath, or Metrics)")
		}
		loaded, err := dataset.LoadCSV(opts.DataPath)
		if err != nil {
			return nil, nil, err
		}
		frame = loaded
	}

	caller := make(map[string]string, len(opts.Bindings)+2)
	for variable, column := range opts.Bindings {
		caller[variable] = column
	}

	if opts.Predictions != nil {
		name := opts.Prediction
		if name == "" {
			name = "prediction"
		}
		withPred, err := frame.WithFloatColumn(name, opts.Predictions)
		if err != nil {
			return nil, nil, fmt.Errorf("attach predictions: %w", err)
		}
		frame = withPred
		caller["prediction"] = name
	} else if opts.Prediction != "" {
		if col, ok := resolver.Discover(opts.Prediction, frame); ok {
			caller["prediction"] = col
		}
	}

	if opts.Target != "" {
		if col, ok := resolver.Discover(opts.Target, frame); ok {
			caller["target"] = col
		}
	}
	return frame, caller, nil
}

// evaluateGates runs each policy's gate rules over that policy's own slice
// of the aggregate results.
func evaluateGates(policies []*models.Policy, results []models.ComplianceResult) ([]policy.GateResult, error) {
	var gates []policy.GateResult
	var engine *policy.GateEngine

	offset := 0
	for _, pol := range policies {
		slice := results[offset : offset+len(pol.Controls)]
		offset += len(pol.Controls)
		if len(pol.Rules) == 0 {
			continue
		}
		if engine == nil {
			var err error
			engine, err = policy.NewGateEngine()
			if err != nil {
				return nil, err
			}
		}
		res, err := engine.Evaluate(pol, slice)
		if err != nil {
			return nil, fmt.Errorf("policy %q gates: %w", pol.Title, err)
		}
		gates = append(gates, res...)
	}
	return gates, nil
}

func recordHistory(ctx context.Context, opts Options, report *Report) error {
	h, err := store.OpenHistory(opts.HistoryPath)
	if err != nil {
		return err
	}
	defer h.Close()

	titles := ""
	for i, pol := range report.Policies {
		if i > 0 {
			titles += ","
		}
		titles += pol.Title
	}
	id, err := h.RecordRun(ctx, titles, report.Strict, report.Results)
	if err != nil {
		return err
	}
	report.RunID = id
	return nil
}
