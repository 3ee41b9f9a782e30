// Package metrics hosts the metric registry and the battery of fairness,
// performance, data-quality, and privacy metric functions.
package metrics

import (
	"fmt"
	"sort"

	"github.com/venturalitica/venturalitica-go/internal/dataset"
)

// Metric categories.
const (
	CategoryFairness    = "fairness"
	CategoryPrivacy     = "privacy"
	CategoryPerformance = "performance"
	CategoryQuality     = "quality"
	CategoryCausal      = "causal"
)

// Inputs carries the role-bound columns and static parameters a metric
// function receives. Roles map functional role names to physical columns
// already resolved by the binding layer.
type Inputs struct {
	Roles  map[string]string
	Params map[string]string
	Lists  map[string][]string
}

// Col returns the column bound to a role, or "" when unbound.
func (in Inputs) Col(role string) string { return in.Roles[role] }

// Param returns a static parameter value, or the fallback when absent.
func (in Inputs) Param(name, fallback string) string {
	if v, ok := in.Params[name]; ok && v != "" {
		return v
	}
	return fallback
}

// Func computes one scalar from role-bound inputs. The optional metadata map
// carries per-group detail alongside the scalar. Precondition violations
// must surface as *ComputationError, never as a silently-wrong default.
type Func func(f *dataset.Frame, in Inputs) (float64, map[string]float64, error)

// Metadata describes a registered metric for explain output and binding.
type Metadata struct {
	Name        string
	Category    string
	Description string
	Ideal       float64
	// Roles are the functional roles the metric requires; a control whose
	// required role cannot be bound is skipped (lenient) or fatal (strict).
	Roles []string
	// OptionalRoles are bound best-effort and never cause a skip.
	OptionalRoles []string
}

// UnknownMetricError means a policy references a metric key that was never
// registered. This is a configuration bug and is fatal in every mode.
type UnknownMetricError struct {
	Key string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("no metric registered for key %q", e.Key)
}

// ComputationError means a metric's own precondition failed: missing
// columns, degenerate group structure, insufficient samples.
type ComputationError struct {
	Metric string
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("metric %q: %s", e.Metric, e.Reason)
}

func errf(metric, format string, args ...any) error {
	return &ComputationError{Metric: metric, Reason: fmt.Sprintf(format, args...)}
}

type entry struct {
	fn Func
	md Metadata
}

// Registry maps metric keys to functions. It is populated once at process
// start and read-only during evaluation; re-registering a key overwrites
// silently (last-writer-wins).
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds or replaces a metric under a key.
func (r *Registry) Register(key string, fn Func, md Metadata) {
	r.entries[key] = entry{fn: fn, md: md}
}

// Get returns the function for a key, or *UnknownMetricError.
func (r *Registry) Get(key string) (Func, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, &UnknownMetricError{Key: key}
	}
	return e.fn, nil
}

// Metadata returns the descriptor for a key.
func (r *Registry) Metadata(key string) (Metadata, bool) {
	e, ok := r.entries[key]
	return e.md, ok
}

// Keys returns all registered keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Default builds the full metric battery. Call once at process start.
func Default() *Registry {
	r := NewRegistry()
	registerPerformance(r)
	registerFairness(r)
	registerQuality(r)
	registerPrivacy(r)
	return r
}
