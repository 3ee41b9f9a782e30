package models

// Control is one governance rule inside a policy: a metric bound to a
// threshold, an operator, and the role-to-variable mappings the metric needs.
// Controls are built once by the loader and never mutated during evaluation.
type Control struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Severity    string   `yaml:"severity" json:"severity"`
	MetricKey   string   `yaml:"metric_key" json:"metric_key"`
	Threshold   float64  `yaml:"threshold" json:"threshold"`
	Operator    Operator `yaml:"operator" json:"operator"`

	// InputBindings maps a functional role (e.g. "dimension") to the
	// semantic variable the policy expects for it (e.g. "gender").
	// Populated from input:<role> props; absent roles default to the
	// role name itself.
	InputBindings map[string]string `yaml:"input_bindings,omitempty" json:"input_bindings,omitempty"`

	// Params carries free-form metric parameters from control props,
	// e.g. quasi_identifiers or sensitive_attribute for privacy metrics.
	Params map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// GateRule is an optional policy-level CEL rule evaluated against the run
// summary after all controls have been evaluated.
type GateRule struct {
	Name       string `yaml:"name" json:"name"`
	Expr       string `yaml:"expr" json:"expr"`
	FailureMsg string `yaml:"failure_msg" json:"failure_msg"`
}

// Policy is an ordered collection of controls plus display metadata.
// Duplicate control IDs are not rejected; every control is evaluated and
// reported in document order.
type Policy struct {
	Title    string     `yaml:"title" json:"title"`
	Version  string     `yaml:"version,omitempty" json:"version,omitempty"`
	UUID     string     `yaml:"uuid,omitempty" json:"uuid,omitempty"`
	Controls []Control  `yaml:"controls" json:"controls"`
	Rules    []GateRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}
