// Package policy loads OSCAL-shaped governance policies and evaluates their
// controls against datasets.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/venturalitica/venturalitica-go/internal/models"
	"gopkg.in/yaml.v3"
)

// ParseError means the policy document is malformed: unsupported root,
// missing required control fields, or an unparseable value. Always fatal at
// load time, before any control is evaluated.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid policy: %s", e.Reason)
	}
	return fmt.Sprintf("invalid policy %s: %s", e.Source, e.Reason)
}

// oscalRoots are the recognized OSCAL root elements, in probe order.
var oscalRoots = []string{"assessment-plan", "catalog", "profile", "component-definition"}

// staticParams are input:<role> names carried as literal values rather than
// bound to columns (e.g. input:average=macro for sklearn-style averaging).
var staticParams = map[string]bool{
	"average":     true,
	"aggregation": true,
}

// Load reads and parses a policy file (YAML or JSON; YAML parsing covers
// both since JSON is a YAML subset).
func Load(path string) (*models.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	pol, err := Parse(data, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Source = path
		}
		return nil, err
	}
	return pol, nil
}

// Parse decodes an OSCAL-shaped document. Recognized shapes: a document
// rooted at assessment-plan/catalog/profile/component-definition, or the
// flat-list fallback of bare control entries.
func Parse(data []byte, fallbackTitle string) (*models.Policy, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("not valid YAML/JSON: %v", err)}
	}

	switch root := doc.(type) {
	case map[string]any:
		for _, key := range oscalRoots {
			if obj, ok := root[key].(map[string]any); ok {
				return parseOSCAL(obj, fallbackTitle)
			}
		}
		return nil, &ParseError{Reason: fmt.Sprintf("missing root element (one of %s)", strings.Join(oscalRoots, ", "))}
	case []any:
		return parseFlatList(root)
	default:
		return nil, &ParseError{Reason: "document is neither an OSCAL object nor a control list"}
	}
}

// parseOSCAL walks one OSCAL object permissively, collecting controls from
// control-implementations (direct props or inventory links) and from
// catalog-style nested controls, plus optional gate rules.
func parseOSCAL(obj map[string]any, fallbackTitle string) (*models.Policy, error) {
	pol := &models.Policy{Title: fallbackTitle}
	if meta, ok := obj["metadata"].(map[string]any); ok {
		if title, ok := meta["title"].(string); ok && title != "" {
			pol.Title = title
		}
		pol.Version, _ = meta["version"].(string)
		pol.UUID, _ = meta["uuid"].(string)
	}
	if pol.UUID == "" {
		pol.UUID = uuid.NewString()
	}

	inventory := buildInventory(obj)

	for _, impl := range controlImplementations(obj) {
		reqs, _ := impl["implemented-requirements"].([]any)
		for _, raw := range reqs {
			req, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if err := addRequirement(pol, req, inventory); err != nil {
				return nil, err
			}
		}
	}

	if rawControls, ok := obj["controls"].([]any); ok {
		for _, raw := range rawControls {
			ctrl, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if err := addCatalogControl(pol, ctrl); err != nil {
				return nil, err
			}
		}
	}

	if rawRules, ok := obj["rules"].([]any); ok {
		for _, raw := range rawRules {
			rule, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			gr := models.GateRule{}
			gr.Name, _ = rule["name"].(string)
			gr.Expr, _ = rule["expr"].(string)
			gr.FailureMsg, _ = rule["failure_msg"].(string)
			if gr.Name == "" || gr.Expr == "" {
				return nil, &ParseError{Reason: "gate rule requires name and expr"}
			}
			pol.Rules = append(pol.Rules, gr)
		}
	}

	return pol, nil
}

// buildInventory indexes inventory-item props by uuid for link resolution.
func buildInventory(obj map[string]any) map[string]map[string]string {
	var items []any
	if defs, ok := obj["local-definitions"].(map[string]any); ok {
		items, _ = defs["inventory-items"].([]any)
	}
	if len(items) == 0 {
		items, _ = obj["inventory-items"].([]any)
	}

	inv := make(map[string]map[string]string)
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := item["uuid"].(string)
		if id == "" {
			continue
		}
		inv[id] = propMap(item)
	}
	return inv
}

// controlImplementations gathers implementation lists from both the
// standard assessment-plan location and the simplified root location.
func controlImplementations(obj map[string]any) []map[string]any {
	var impls []map[string]any
	if reviewed, ok := obj["reviewed-controls"].(map[string]any); ok {
		if list, ok := reviewed["control-implementations"].([]any); ok {
			for _, raw := range list {
				if impl, ok := raw.(map[string]any); ok {
					impls = append(impls, impl)
				}
			}
		}
	}
	if list, ok := obj["control-implementations"].([]any); ok {
		for _, raw := range list {
			if impl, ok := raw.(map[string]any); ok {
				impls = append(impls, impl)
			}
		}
	}
	return impls
}

// addRequirement maps one implemented-requirement to a control, either from
// direct props or by following a #uuid link into the inventory.
func addRequirement(pol *models.Policy, req map[string]any, inventory map[string]map[string]string) error {
	id, _ := req["control-id"].(string)
	description, _ := req["description"].(string)
	props := propMap(req)

	if _, ok := props["metric_key"]; ok {
		ctrl, err := buildControl(id, description, props)
		if err != nil {
			return err
		}
		pol.Controls = append(pol.Controls, ctrl)
		return nil
	}

	links, _ := req["links"].([]any)
	for _, raw := range links {
		link, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		href, _ := link["href"].(string)
		if !strings.HasPrefix(href, "#") {
			continue
		}
		def, ok := inventory[href[1:]]
		if !ok {
			continue
		}
		if _, ok := def["metric_key"]; !ok {
			continue
		}
		merged := mergeProps(def, props)
		ctrl, err := buildControl(id, description, merged)
		if err != nil {
			return err
		}
		pol.Controls = append(pol.Controls, ctrl)
	}
	return nil
}

// addCatalogControl handles catalog-style controls, recursing into nested
// control groups.
func addCatalogControl(pol *models.Policy, ctrl map[string]any) error {
	props := propMap(ctrl)
	if _, ok := props["metric_key"]; ok {
		id, _ := ctrl["id"].(string)
		if id == "" {
			id = "unknown"
		}
		description, _ := ctrl["title"].(string)
		if description == "" {
			description = id
		}
		built, err := buildControl(id, description, props)
		if err != nil {
			return err
		}
		pol.Controls = append(pol.Controls, built)
	}
	if subs, ok := ctrl["controls"].([]any); ok {
		for _, raw := range subs {
			sub, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if err := addCatalogControl(pol, sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseFlatList handles the simplified bare-list form.
func parseFlatList(items []any) (*models.Policy, error) {
	pol := &models.Policy{Title: "Flat Policy", UUID: uuid.NewString()}
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		props := make(map[string]string)
		for k, v := range item {
			props[k] = stringValue(v)
		}
		id := props["id"]
		if id == "" || props["metric_key"] == "" || props["threshold"] == "" || props["operator"] == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("flat control %q requires id, metric_key, threshold, and operator", id)}
		}
		ctrl, err := buildControl(id, props["description"], props)
		if err != nil {
			return nil, err
		}
		pol.Controls = append(pol.Controls, ctrl)
	}
	return pol, nil
}

// buildControl assembles one control from a flattened prop map. Thresholds
// arrive as strings in the source document and are parsed here.
func buildControl(id, description string, props map[string]string) (models.Control, error) {
	if id == "" {
		return models.Control{}, &ParseError{Reason: "control missing control-id"}
	}
	if description == "" {
		description = "Control " + id
	}

	threshold := 0.0
	if raw, ok := props["threshold"]; ok && raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.Control{}, &ParseError{Reason: fmt.Sprintf("control %q: threshold %q is not numeric", id, raw)}
		}
		threshold = v
	}

	opRaw := props["operator"]
	if opRaw == "" {
		opRaw = "=="
	}
	op, err := models.ParseOperator(opRaw)
	if err != nil {
		return models.Control{}, &ParseError{Reason: fmt.Sprintf("control %q: %v", id, err)}
	}

	severity := props["severity"]
	if severity == "" {
		severity = "low"
	}

	ctrl := models.Control{
		ID:          id,
		Description: description,
		Severity:    severity,
		MetricKey:   props["metric_key"],
		Threshold:   threshold,
		Operator:    op,
	}

	for name, value := range props {
		role, ok := strings.CutPrefix(name, "input:")
		if !ok {
			continue
		}
		if staticParams[role] {
			if ctrl.Params == nil {
				ctrl.Params = make(map[string]string)
			}
			ctrl.Params[role] = value
			continue
		}
		if ctrl.InputBindings == nil {
			ctrl.InputBindings = make(map[string]string)
		}
		ctrl.InputBindings[role] = value
	}
	for _, name := range []string{"quasi_identifiers", "sensitive_columns", "sensitive_attribute", "aggregation", "average"} {
		if value, ok := props[name]; ok {
			if ctrl.Params == nil {
				ctrl.Params = make(map[string]string)
			}
			ctrl.Params[name] = value
		}
	}
	return ctrl, nil
}

// propMap flattens an OSCAL props list into name → value.
func propMap(obj map[string]any) map[string]string {
	out := make(map[string]string)
	list, _ := obj["props"].([]any)
	for _, raw := range list {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if name == "" {
			continue
		}
		if v, ok := p["value"]; ok {
			out[name] = stringValue(v)
		}
	}
	return out
}

func mergeProps(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// stringValue renders YAML scalar props uniformly; unquoted numeric
// thresholds still round-trip through ParseFloat.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
