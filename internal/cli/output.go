package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/venturalitica/venturalitica-go/internal/enforce"
	"github.com/venturalitica/venturalitica-go/internal/models"
)

// ANSI color codes
const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorReset  = "\033[0m"
)

// FailOnLevel threshold for failure
type FailOnLevel string

const (
	FailOnAny   FailOnLevel = "any"
	FailOnHigh  FailOnLevel = "high"
	FailOnNever FailOnLevel = "never"
)

// ParseFailOnLevel from string
func ParseFailOnLevel(s string) (FailOnLevel, error) {
	switch strings.ToLower(s) {
	case "any":
		return FailOnAny, nil
	case "high":
		return FailOnHigh, nil
	case "never":
		return FailOnNever, nil
	default:
		return "", fmt.Errorf("invalid fail-on level: %s (use any, high, or never)", s)
	}
}

// ShouldFail checks whether a failed control at this severity trips the
// exit threshold.
func (f FailOnLevel) ShouldFail(severity string) bool {
	switch f {
	case FailOnAny:
		return true
	case FailOnHigh:
		return strings.EqualFold(severity, "high") || strings.EqualFold(severity, "critical")
	case FailOnNever:
		return false
	default:
		return true
	}
}

// PolicyOutputInfo identifies one evaluated policy
type PolicyOutputInfo struct {
	Title    string `json:"title"`
	Version  string `json:"version,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	Controls int    `json:"controls"`
}

// GateOutputItem is one gate rule verdict
type GateOutputItem struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	FailureMsg string `json:"failureMsg,omitempty"`
}

// EnforceOutput is the output structure for both formats
type EnforceOutput struct {
	Policies []PolicyOutputInfo        `json:"policies"`
	Summary  models.Summary            `json:"summary"`
	Results  []models.ComplianceResult `json:"results"`
	Gates    []GateOutputItem          `json:"gates,omitempty"`
	Strict   bool                      `json:"strict"`
	FailOn   string                    `json:"failOn"`
	Outcome  string                    `json:"outcome"` // "PASS" or "FAIL"
	RunID    string                    `json:"runId,omitempty"`
}

// BuildEnforceOutput from a report
func BuildEnforceOutput(report *enforce.Report, failOn FailOnLevel) *EnforceOutput {
	out := &EnforceOutput{
		Summary: report.Summary,
		Results: report.Results,
		Strict:  report.Strict,
		FailOn:  string(failOn),
		Outcome: "PASS",
		RunID:   report.RunID,
	}

	for _, pol := range report.Policies {
		out.Policies = append(out.Policies, PolicyOutputInfo{
			Title:    pol.Title,
			Version:  pol.Version,
			UUID:     pol.UUID,
			Controls: len(pol.Controls),
		})
	}
	for _, g := range report.Gates {
		out.Gates = append(out.Gates, GateOutputItem{
			Name:       g.RuleName,
			Passed:     g.Passed,
			FailureMsg: g.FailureMsg,
		})
	}

	if !report.GatePassed() {
		out.Outcome = "FAIL"
	} else {
		for _, r := range report.Results {
			if r.Status == models.StatusFail && failOn.ShouldFail(r.Severity) {
				out.Outcome = "FAIL"
				break
			}
		}
	}
	return out
}

// FormatTextOutput human readable
func FormatTextOutput(out *EnforceOutput) string {
	var sb strings.Builder

	mode := "lenient"
	if out.Strict {
		mode = "strict"
	}
	if out.Outcome == "PASS" {
		sb.WriteString(fmt.Sprintf("%sventuralitica enforce: PASS%s (mode=%s, fail-on=%s)\n",
			colorGreen, colorReset, mode, out.FailOn))
	} else {
		sb.WriteString(fmt.Sprintf("%sventuralitica enforce: FAIL%s (mode=%s, fail-on=%s)\n",
			colorRed, colorReset, mode, out.FailOn))
	}

	for _, pol := range out.Policies {
		sb.WriteString(fmt.Sprintf("Policy: %s%s%s (%d controls)\n", colorBold, pol.Title, colorReset, pol.Controls))
	}
	sb.WriteString("\n")

	for _, r := range out.Results {
		sb.WriteString(formatResultLine(r))
	}
	sb.WriteString("\n")

	for _, g := range out.Gates {
		if g.Passed {
			sb.WriteString(fmt.Sprintf("Gate %s: %sPASS%s\n", g.Name, colorGreen, colorReset))
		} else {
			sb.WriteString(fmt.Sprintf("Gate %s: %sFAIL%s - %s\n", g.Name, colorRed, colorReset, g.FailureMsg))
		}
	}

	sb.WriteString(fmt.Sprintf("Summary: %d total, %d passed, %d failed, %d skipped, %d errors\n",
		out.Summary.Total, out.Summary.Passed, out.Summary.Failed, out.Summary.Skipped, out.Summary.Errors))
	if out.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n", out.RunID))
	}
	return sb.String()
}

func formatResultLine(r models.ComplianceResult) string {
	switch r.Status {
	case models.StatusPass:
		return fmt.Sprintf("%s[PASS]%s %s: %s = %.4f (%s %.4g)\n",
			colorGreen, colorReset, r.ControlID, r.MetricKey, *r.ActualValue, r.Operator, r.Threshold)
	case models.StatusFail:
		return fmt.Sprintf("%s[FAIL]%s %s: %s = %.4f (want %s %.4g, severity=%s)\n",
			colorRed, colorReset, r.ControlID, r.MetricKey, *r.ActualValue, r.Operator, r.Threshold, r.Severity)
	case models.StatusSkipped:
		return fmt.Sprintf("%s[SKIP]%s %s: %s\n",
			colorYellow, colorReset, r.ControlID, r.SkipReason)
	default:
		return fmt.Sprintf("%s[ERROR]%s %s: %s\n",
			colorRed, colorReset, r.ControlID, r.ErrorMessage)
	}
}

// FormatJSONOutput raw json
func FormatJSONOutput(out *EnforceOutput) ([]byte, error) {
	return json.MarshalIndent(out, "", "  ")
}
