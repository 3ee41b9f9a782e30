// Package receipt provides stable evidence artifacts for audit/compliance.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string       `json:"schema_version"`
	OpID          string       `json:"op_id"`
	TsStart       string       `json:"ts_start"`
	TsEnd         string       `json:"ts_end"`
	Command       string       `json:"command"`
	Args          []string     `json:"args"`
	ArgsRedacted  bool         `json:"args_redacted,omitempty"` // true if any args were sanitized
	Result        Result       `json:"result"`
	Dataset       *DatasetRef  `json:"dataset,omitempty"`
	Policies      []PolicyRef  `json:"policies,omitempty"`
	Run           *RunSummary  `json:"run,omitempty"`
	Gate          *GateSummary `json:"gate,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// DatasetRef detail
type DatasetRef struct {
	Path    string `json:"path"`
	SHA256  string `json:"sha256,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Columns int    `json:"columns,omitempty"`
}

// PolicyRef detail
type PolicyRef struct {
	Title    string `json:"title"`
	Version  string `json:"version,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	Controls int    `json:"controls"`
}

// RunSummary detail
type RunSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// GateSummary detail
type GateSummary struct {
	Status   string    `json:"status"` // pass|fail
	RulesHit []RuleHit `json:"rules_hit,omitempty"`
}

// RuleHit detail
type RuleHit struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}
