package differ

import (
	"fmt"
	"strings"

	"github.com/wI2L/jsondiff"

	"github.com/venturalitica/venturalitica-go/internal/models"
)

// Translate patches to english
func Translate(old, now models.ComplianceResult, patches jsondiff.Patch) []string {
	var translations []string
	seen := make(map[string]bool)

	for _, op := range patches {
		translation := translateOperation(old, now, op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}

	return translations
}

func translateOperation(old, now models.ComplianceResult, op jsondiff.Operation) string {
	path := strings.ToLower(op.Path)

	switch {
	case strings.HasPrefix(path, "/status"):
		return translateStatus(old.Status, now.Status)
	case strings.HasPrefix(path, "/actual_value"):
		return translateActual(old.ActualValue, now.ActualValue)
	case strings.HasPrefix(path, "/threshold"):
		return fmt.Sprintf("⚠️  CRITICAL: Threshold changed from %.4g to %.4g.", old.Threshold, now.Threshold)
	case strings.HasPrefix(path, "/operator"):
		return fmt.Sprintf("⚠️  CRITICAL: Operator changed from '%s' to '%s'.", old.Operator, now.Operator)
	case strings.HasPrefix(path, "/severity"):
		return fmt.Sprintf("Severity changed from '%s' to '%s'.", old.Severity, now.Severity)
	case strings.HasPrefix(path, "/metric_key"):
		return fmt.Sprintf("⚠️  CRITICAL: Metric changed from '%s' to '%s'.", old.MetricKey, now.MetricKey)
	case strings.HasPrefix(path, "/description"):
		return "Documentation update."
	case strings.HasPrefix(path, "/skip_reason"), strings.HasPrefix(path, "/error_message"):
		return "Failure detail changed."
	case strings.HasPrefix(path, "/metadata"):
		return "Per-group detail changed."
	case strings.HasPrefix(path, "/passed"):
		// Covered by the status translation.
		return ""
	default:
		return "Result modified."
	}
}

func translateStatus(old, now models.Status) string {
	switch {
	case now == models.StatusFail && old == models.StatusPass:
		return "⚠️  CRITICAL: Control regressed from PASS to FAIL."
	case now == models.StatusPass && old != models.StatusPass:
		return fmt.Sprintf("Control recovered from %s to PASS.", old)
	case now == models.StatusError:
		return fmt.Sprintf("⚠️  CRITICAL: Control now errors (was %s).", old)
	case now == models.StatusSkipped:
		return fmt.Sprintf("Control now skipped (was %s).", old)
	default:
		return fmt.Sprintf("Status changed from %s to %s.", old, now)
	}
}

func translateActual(old, now *float64) string {
	if old == nil && now != nil {
		return fmt.Sprintf("Metric value now computed (%.4f).", *now)
	}
	if old != nil && now == nil {
		return "Metric value no longer computed."
	}
	if old != nil && now != nil {
		return fmt.Sprintf("Metric value drifted from %.4f to %.4f.", *old, *now)
	}
	return ""
}

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

// GetSeverity
func GetSeverity(translation string) SeverityLevel {
	lowerMsg := strings.ToLower(translation)

	// Critical changes (Red)
	if strings.Contains(translation, "⚠️") ||
		strings.Contains(translation, "CRITICAL") ||
		strings.Contains(lowerMsg, "no longer") {
		return SeverityCritical
	}

	// Safe changes (Green)
	if strings.Contains(lowerMsg, "documentation") ||
		strings.Contains(lowerMsg, "recovered") {
		return SeveritySafe
	}

	// Everything else is moderate (Yellow)
	return SeverityModerate
}
