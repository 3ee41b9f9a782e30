package models

// Status is the terminal state of one control evaluation.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
	StatusError   Status = "ERROR"
)

// ComplianceResult is the outcome of evaluating one control against one
// dataset. Exactly one result is produced per control, whatever the terminal
// state. ActualValue and Passed are nil when the control never reached the
// comparison step.
type ComplianceResult struct {
	ControlID   string   `json:"control_id"`
	Description string   `json:"description"`
	MetricKey   string   `json:"metric_key"`
	Severity    string   `json:"severity"`
	Operator    Operator `json:"operator"`
	Threshold   float64  `json:"threshold"`

	ActualValue *float64 `json:"actual_value"`
	Passed      *bool    `json:"passed"`
	Status      Status   `json:"status"`

	SkipReason   string `json:"skip_reason,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Metadata carries optional per-group detail some metrics report
	// alongside the scalar (e.g. positive rate per group).
	Metadata map[string]float64 `json:"metadata,omitempty"`
}

// Record flattens the result into the key/value form logging collaborators
// consume. Every field serializes losslessly; nil values stay nil.
func (r ComplianceResult) Record() map[string]any {
	rec := map[string]any{
		"control_id":  r.ControlID,
		"description": r.Description,
		"metric_key":  r.MetricKey,
		"severity":    r.Severity,
		"operator":    string(r.Operator),
		"threshold":   r.Threshold,
		"status":      string(r.Status),
	}
	if r.ActualValue != nil {
		rec["actual_value"] = *r.ActualValue
	} else {
		rec["actual_value"] = nil
	}
	if r.Passed != nil {
		rec["passed"] = *r.Passed
	} else {
		rec["passed"] = nil
	}
	if r.SkipReason != "" {
		rec["skip_reason"] = r.SkipReason
	}
	if r.ErrorMessage != "" {
		rec["error_message"] = r.ErrorMessage
	}
	return rec
}

// Summary aggregates result counts for gate rules and CLI output.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Summarize counts terminal states across an ordered result list.
func Summarize(results []ComplianceResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Errors++
		}
	}
	return s
}
