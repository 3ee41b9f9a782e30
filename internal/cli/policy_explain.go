package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/venturalitica/venturalitica-go/internal/metrics"
	"github.com/venturalitica/venturalitica-go/internal/models"
)

// policyExplainCmd outputs policy controls with metadata
var policyExplainCmd = &cobra.Command{
	Use:   "explain <file-or-preset>",
	Short: "Output policy controls with compliance metadata",
	Long: `Display policy controls with their metric, threshold, operator, severity,
and role bindings in human-readable Markdown or machine-readable JSON.

Example:
  venturalitica policy explain fairness
  venturalitica policy explain governance.oscal.yaml --json
  venturalitica policy explain baseline --output report.md`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPolicyExplain,
}

var (
	explainJSON   bool
	explainOutput string
)

func init() {
	policyExplainCmd.Flags().BoolVar(&explainJSON, "json", false, "Output JSON instead of Markdown")
	policyExplainCmd.Flags().StringVar(&explainOutput, "output", "", "Write output to file (default: stdout)")
	policyCmd.AddCommand(policyExplainCmd)
}

// ExplainOutput is the JSON output schema
type ExplainOutput struct {
	SchemaVersion string           `json:"schema_version"`
	Source        string           `json:"source"`
	GeneratedAt   string           `json:"generated_at"`
	Policy        string           `json:"policy"`
	Version       string           `json:"version,omitempty"`
	Controls      []ExplainControl `json:"controls"`
	Rules         []ExplainRule    `json:"rules,omitempty"`
}

// ExplainControl is a control with all metadata for JSON output
type ExplainControl struct {
	ID          string            `json:"id"`
	Description string            `json:"description"`
	MetricKey   string            `json:"metric_key"`
	MetricName  string            `json:"metric_name,omitempty"`
	Category    string            `json:"category,omitempty"`
	Operator    string            `json:"operator"`
	Threshold   float64           `json:"threshold"`
	Severity    string            `json:"severity"`
	Bindings    map[string]string `json:"input_bindings,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// ExplainRule is a gate rule for JSON output
type ExplainRule struct {
	Name       string `json:"name"`
	Expr       string `json:"expr"`
	FailureMsg string `json:"failure_msg,omitempty"`
}

func runPolicyExplain(cmd *cobra.Command, args []string) error {
	pol, err := loadPolicyArg(args[0])
	if err != nil {
		return err
	}

	out := buildExplainOutput(args[0], pol)

	var rendered []byte
	if explainJSON {
		rendered, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		rendered = append(rendered, '\n')
	} else {
		rendered = []byte(renderExplainMarkdown(out))
	}

	if explainOutput != "" {
		return os.WriteFile(explainOutput, rendered, 0644)
	}
	fmt.Print(string(rendered))
	return nil
}

func buildExplainOutput(source string, pol *models.Policy) *ExplainOutput {
	registry := metrics.Default()

	out := &ExplainOutput{
		SchemaVersion: "1.0",
		Source:        source,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		Policy:        pol.Title,
		Version:       pol.Version,
	}
	for _, ctrl := range pol.Controls {
		ec := ExplainControl{
			ID:          ctrl.ID,
			Description: ctrl.Description,
			MetricKey:   ctrl.MetricKey,
			Operator:    string(ctrl.Operator),
			Threshold:   ctrl.Threshold,
			Severity:    ctrl.Severity,
			Bindings:    ctrl.InputBindings,
			Params:      ctrl.Params,
		}
		if md, ok := registry.Metadata(ctrl.MetricKey); ok {
			ec.MetricName = md.Name
			ec.Category = md.Category
		}
		out.Controls = append(out.Controls, ec)
	}
	for _, rule := range pol.Rules {
		out.Rules = append(out.Rules, ExplainRule{
			Name:       rule.Name,
			Expr:       rule.Expr,
			FailureMsg: rule.FailureMsg,
		})
	}
	return out
}

func renderExplainMarkdown(out *ExplainOutput) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Policy: %s\n\n", out.Policy))
	if out.Version != "" {
		sb.WriteString(fmt.Sprintf("Version: %s\n", out.Version))
	}
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", out.GeneratedAt))

	sb.WriteString("## Controls\n\n")
	for _, c := range out.Controls {
		sb.WriteString(fmt.Sprintf("### %s\n\n", c.ID))
		sb.WriteString(fmt.Sprintf("%s\n\n", c.Description))
		if c.MetricName != "" {
			sb.WriteString(fmt.Sprintf("- **Metric**: %s (`%s`, %s)\n", c.MetricName, c.MetricKey, c.Category))
		} else {
			sb.WriteString(fmt.Sprintf("- **Metric**: `%s`\n", c.MetricKey))
		}
		sb.WriteString(fmt.Sprintf("- **Requirement**: value %s %.4g\n", c.Operator, c.Threshold))
		sb.WriteString(fmt.Sprintf("- **Severity**: %s\n", c.Severity))
		for _, role := range sortedKeys(c.Bindings) {
			sb.WriteString(fmt.Sprintf("- **Binding**: role `%s` → variable `%s`\n", role, c.Bindings[role]))
		}
		for _, name := range sortedKeys(c.Params) {
			sb.WriteString(fmt.Sprintf("- **Param**: `%s` = `%s`\n", name, c.Params[name]))
		}
		sb.WriteString("\n")
	}

	if len(out.Rules) > 0 {
		sb.WriteString("## Gate Rules\n\n")
		for _, r := range out.Rules {
			sb.WriteString(fmt.Sprintf("- **%s**: `%s`", r.Name, r.Expr))
			if r.FailureMsg != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", r.FailureMsg))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
