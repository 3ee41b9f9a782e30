package policy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/venturalitica/venturalitica-go/internal/models"
)

const assessmentPlanYAML = `
assessment-plan:
  uuid: 11111111-2222-3333-4444-555555555555
  metadata:
    title: Loan Fairness Policy
    version: "1.2"
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: fair-di
            description: Disparate impact must satisfy the 80% rule.
            props:
              - name: metric_key
                value: disparate_impact
              - name: threshold
                value: "0.8"
              - name: operator
                value: gte
              - name: severity
                value: high
              - name: input:dimension
                value: gender
          - control-id: dq-imbalance
            description: Class imbalance bound.
            props:
              - name: metric_key
                value: class_imbalance
              - name: threshold
                value: 0.35
              - name: operator
                value: "<="
`

func TestParse_AssessmentPlan(t *testing.T) {
	pol, err := Parse([]byte(assessmentPlanYAML), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if pol.Title != "Loan Fairness Policy" {
		t.Errorf("Title = %q", pol.Title)
	}
	if pol.Version != "1.2" {
		t.Errorf("Version = %q", pol.Version)
	}
	if len(pol.Controls) != 2 {
		t.Fatalf("controls = %d, want 2", len(pol.Controls))
	}

	di := pol.Controls[0]
	if di.ID != "fair-di" || di.MetricKey != "disparate_impact" {
		t.Errorf("control[0] = %+v", di)
	}
	if di.Threshold != 0.8 {
		t.Errorf("Threshold = %v", di.Threshold)
	}
	// Named alias normalizes to the symbolic form.
	if di.Operator != models.OpGE {
		t.Errorf("Operator = %q, want >=", di.Operator)
	}
	if di.Severity != "high" {
		t.Errorf("Severity = %q", di.Severity)
	}
	if di.InputBindings["dimension"] != "gender" {
		t.Errorf("InputBindings = %v", di.InputBindings)
	}

	im := pol.Controls[1]
	// Unquoted YAML float round-trips through the prop flattening.
	if im.Threshold != 0.35 || im.Operator != models.OpLE {
		t.Errorf("control[1] = %+v", im)
	}
	if im.Severity != "low" {
		t.Errorf("default severity = %q, want low", im.Severity)
	}
}

func TestParse_InventoryLinks(t *testing.T) {
	doc := `
assessment-plan:
  metadata:
    title: Linked Policy
  local-definitions:
    inventory-items:
      - uuid: aaaa-bbbb
        props:
          - name: metric_key
            value: data_completeness
          - name: threshold
            value: "0.9"
          - name: operator
            value: ">="
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: dq-complete
            description: Completeness floor.
            links:
              - href: "#aaaa-bbbb"
            props:
              - name: threshold
                value: "0.95"
`
	pol, err := Parse([]byte(doc), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pol.Controls) != 1 {
		t.Fatalf("controls = %d, want 1", len(pol.Controls))
	}
	ctrl := pol.Controls[0]
	if ctrl.MetricKey != "data_completeness" {
		t.Errorf("MetricKey = %q", ctrl.MetricKey)
	}
	// Requirement props override inventory defaults.
	if ctrl.Threshold != 0.95 {
		t.Errorf("Threshold = %v, want requirement override 0.95", ctrl.Threshold)
	}
}

func TestParse_CatalogNestedControls(t *testing.T) {
	doc := `
catalog:
  metadata:
    title: Nested Catalog
  controls:
    - id: top
      title: Top control
      props:
        - name: metric_key
          value: accuracy_score
        - name: threshold
          value: "0.7"
        - name: operator
          value: ">="
      controls:
        - id: nested
          title: Nested control
          props:
            - name: metric_key
              value: f1_score
            - name: threshold
              value: "0.6"
            - name: operator
              value: ">="
`
	pol, err := Parse([]byte(doc), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pol.Controls) != 2 {
		t.Fatalf("controls = %d, want parent and nested", len(pol.Controls))
	}
	if pol.Controls[0].ID != "top" || pol.Controls[1].ID != "nested" {
		t.Errorf("order = %s, %s", pol.Controls[0].ID, pol.Controls[1].ID)
	}
}

func TestParse_FlatList(t *testing.T) {
	doc := `
- id: c1
  description: Accuracy floor.
  metric_key: accuracy_score
  threshold: 0.75
  operator: ">="
`
	pol, err := Parse([]byte(doc), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pol.Controls) != 1 || pol.Controls[0].Threshold != 0.75 {
		t.Errorf("Controls = %+v", pol.Controls)
	}
	if pol.UUID == "" {
		t.Error("flat policy must get a generated UUID")
	}
}

func TestParse_FlatListMissingFields(t *testing.T) {
	doc := `
- id: c1
  metric_key: accuracy_score
`
	_, err := Parse([]byte(doc), "fallback")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestParse_GateRules(t *testing.T) {
	doc := `
assessment-plan:
  metadata:
    title: Gated
  rules:
    - name: no-failures
      expr: "input.failed == 0"
      failure_msg: Failures present.
`
	pol, err := Parse([]byte(doc), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pol.Rules) != 1 || pol.Rules[0].Expr != "input.failed == 0" {
		t.Errorf("Rules = %+v", pol.Rules)
	}
}

func TestParse_GateRuleMissingExpr(t *testing.T) {
	doc := `
assessment-plan:
  metadata:
    title: Gated
  rules:
    - name: broken
`
	if _, err := Parse([]byte(doc), "fallback"); err == nil {
		t.Error("rule without expr must fail")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "{{{", "not valid YAML"},
		{"missing root", "foo: bar", "missing root element"},
		{"scalar document", `"hello"`, "neither"},
		{"bad threshold", `
assessment-plan:
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: c1
            props:
              - name: metric_key
                value: accuracy_score
              - name: threshold
                value: high
`, "not numeric"},
		{"bad operator", `
assessment-plan:
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: c1
            props:
              - name: metric_key
                value: accuracy_score
              - name: operator
                value: "=>"
`, "unknown operator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "fallback")
			if err == nil {
				t.Fatal("expected ParseError, got nil")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T", err)
			}
			if !strings.Contains(pe.Reason, tt.want) {
				t.Errorf("Reason = %q, want substring %q", pe.Reason, tt.want)
			}
		})
	}
}

func TestParse_StaticParamsAndPrivacyProps(t *testing.T) {
	doc := `
assessment-plan:
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: priv-k
            description: k-anonymity floor.
            props:
              - name: metric_key
                value: k_anonymity
              - name: threshold
                value: "5"
              - name: operator
                value: ">="
              - name: quasi_identifiers
                value: "age, zip"
              - name: input:aggregation
                value: macro
`
	pol, err := Parse([]byte(doc), "fallback")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctrl := pol.Controls[0]
	if ctrl.Params["quasi_identifiers"] != "age, zip" {
		t.Errorf("Params = %v", ctrl.Params)
	}
	// input:aggregation is a static param, not a role binding.
	if ctrl.Params["aggregation"] != "macro" {
		t.Errorf("Params = %v, want aggregation=macro", ctrl.Params)
	}
	if _, bound := ctrl.InputBindings["aggregation"]; bound {
		t.Error("aggregation must not appear in InputBindings")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "governance.oscal.yaml")
	if err := os.WriteFile(path, []byte(assessmentPlanYAML), 0644); err != nil {
		t.Fatal(err)
	}

	pol, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pol.Controls) != 2 {
		t.Errorf("controls = %d", len(pol.Controls))
	}
}

func TestLoad_ErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("foo: bar"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v", err)
	}
	if pe.Source != path {
		t.Errorf("Source = %q, want %q", pe.Source, path)
	}
}

func TestLoad_FallbackTitleFromFilename(t *testing.T) {
	doc := `
assessment-plan:
  reviewed-controls:
    control-implementations:
      - implemented-requirements:
          - control-id: c1
            props:
              - name: metric_key
                value: accuracy_score
              - name: threshold
                value: "0.5"
              - name: operator
                value: ">="
`
	dir := t.TempDir()
	path := filepath.Join(dir, "untitled.yaml")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	pol, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pol.Title != "untitled" {
		t.Errorf("Title = %q, want filename fallback", pol.Title)
	}
	if pol.UUID == "" {
		t.Error("UUID must be generated when metadata omits it")
	}
}
