package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/venturalitica/venturalitica-go/internal/observability"
)

func TestWriterOverwrite_WritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.json")

	w, err := NewWriter(path, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          "test-op-id-123",
		TsStart:       "2024-01-01T00:00:00Z",
		TsEnd:         "2024-01-01T00:01:00Z",
		Command:       "venturalitica enforce",
		Args:          []string{"--data", "loans.csv", "--strict"},
		Result:        Result{Status: "success"},
	}

	if err := w.Write(r); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Read back and verify
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}

	var parsed Receipt
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\nContent: %s", err, string(data))
	}

	if parsed.SchemaVersion != "1.0" {
		t.Errorf("schema_version = %q, want %q", parsed.SchemaVersion, "1.0")
	}
	if parsed.OpID != "test-op-id-123" {
		t.Errorf("op_id = %q, want %q", parsed.OpID, "test-op-id-123")
	}
	if parsed.Result.Status != "success" {
		t.Errorf("result.status = %q, want %q", parsed.Result.Status, "success")
	}
}

func TestWriterAppend_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.jsonl")

	w, err := NewWriter(path, "append")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	// Write first receipt
	r1 := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          "op-1",
		Command:       "venturalitica enforce",
		Result:        Result{Status: "success"},
	}
	if err := w.Write(r1); err != nil {
		t.Fatalf("Write 1 failed: %v", err)
	}

	// Write second receipt
	r2 := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          "op-2",
		Command:       "venturalitica diff",
		Result:        Result{Status: "fail", Error: "audit runs diverged"},
	}
	if err := w.Write(r2); err != nil {
		t.Fatalf("Write 2 failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Read back and verify
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	// Verify each line is valid JSON
	for i, line := range lines {
		var parsed Receipt
		if err := json.Unmarshal([]byte(line), &parsed); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i+1, err)
		}
	}

	// Verify op_ids
	var line1, line2 Receipt
	_ = json.Unmarshal([]byte(lines[0]), &line1)
	_ = json.Unmarshal([]byte(lines[1]), &line2)

	if line1.OpID != "op-1" {
		t.Errorf("line 1 op_id = %q, want %q", line1.OpID, "op-1")
	}
	if line2.OpID != "op-2" {
		t.Errorf("line 2 op_id = %q, want %q", line2.OpID, "op-2")
	}
}

func TestSessionFinish_ComputesDatasetSHA256(t *testing.T) {
	dir := t.TempDir()

	// Create a dataset with known content
	dataPath := filepath.Join(dir, "loans.csv")
	dataContent := []byte("age,gender,approved\n34,male,1\n29,female,0\n")
	if err := os.WriteFile(dataPath, dataContent, 0644); err != nil {
		t.Fatalf("failed to write dataset: %v", err)
	}

	expectedSHA256, err := computeSHA256(dataPath)
	if err != nil {
		t.Fatalf("failed to compute dataset SHA256: %v", err)
	}

	// Create receipt file
	receiptPath := filepath.Join(dir, "receipt.json")
	w, err := NewWriter(receiptPath, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	// Create context with writer and op_id
	ctx := observability.WithOpID(context.Background())
	ctx = WithWriter(ctx, w)

	// Create session and finish with dataset option
	sess := Start(ctx, "venturalitica enforce", []string{"--data", dataPath})
	if err := sess.Finish(nil, WithDataset(dataPath, 2, 3)); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Read and verify
	data, err := os.ReadFile(receiptPath)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}

	var parsed Receipt
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Dataset == nil {
		t.Fatal("dataset is nil")
	}
	if parsed.Dataset.Path != dataPath {
		t.Errorf("dataset.path = %q, want %q", parsed.Dataset.Path, dataPath)
	}
	if parsed.Dataset.SHA256 != expectedSHA256 {
		t.Errorf("dataset.sha256 = %q, want %q", parsed.Dataset.SHA256, expectedSHA256)
	}
	if parsed.Dataset.Rows != 2 || parsed.Dataset.Columns != 3 {
		t.Errorf("dataset shape = (%d, %d), want (2, 3)", parsed.Dataset.Rows, parsed.Dataset.Columns)
	}
}

func TestSessionFinish_RecordsRunAndGate(t *testing.T) {
	dir := t.TempDir()
	receiptPath := filepath.Join(dir, "receipt.json")

	w, err := NewWriter(receiptPath, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	ctx := observability.WithOpID(context.Background())
	ctx = WithWriter(ctx, w)

	sess := Start(ctx, "venturalitica enforce", []string{"--policy", "fairness"})
	err = sess.Finish(nil,
		WithPolicy(PolicyRef{Title: "Model Fairness", Version: "1.0.0", Controls: 2}),
		WithRun(2, 1, 1, 0, 0),
		WithGate("fail", []RuleHit{{Name: "no-high-severity-failures", Message: "one or more fairness controls failed"}}),
	)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(receiptPath)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}
	var parsed Receipt
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(parsed.Policies) != 1 || parsed.Policies[0].Title != "Model Fairness" {
		t.Errorf("policies = %+v, want one entry titled Model Fairness", parsed.Policies)
	}
	if parsed.Run == nil || parsed.Run.Failed != 1 {
		t.Errorf("run = %+v, want failed=1", parsed.Run)
	}
	if parsed.Gate == nil || parsed.Gate.Status != "fail" || len(parsed.Gate.RulesHit) != 1 {
		t.Errorf("gate = %+v, want fail with one rule hit", parsed.Gate)
	}
}

func TestErrorTruncation(t *testing.T) {
	dir := t.TempDir()
	receiptPath := filepath.Join(dir, "receipt.json")

	w, err := NewWriter(receiptPath, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	ctx := observability.WithOpID(context.Background())
	ctx = WithWriter(ctx, w)

	// Create a very long error string
	longError := strings.Repeat("x", 5000)

	sess := Start(ctx, "venturalitica enforce", []string{"--strict"})
	if err := sess.Finish(fmt.Errorf("error: %s", longError)); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Read and verify
	data, err := os.ReadFile(receiptPath)
	if err != nil {
		t.Fatalf("failed to read receipt: %v", err)
	}

	var parsed Receipt
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(parsed.Result.Error) > MaxErrorLength {
		t.Errorf("error length = %d, want <= %d", len(parsed.Result.Error), MaxErrorLength)
	}
	if len(parsed.Result.Error) < MaxErrorLength-10 {
		t.Errorf("error should be truncated to near MaxErrorLength, got %d", len(parsed.Result.Error))
	}
}

func TestContextWithWriter(t *testing.T) {
	// Without writer in context
	ctx := context.Background()
	if w := From(ctx); w != nil {
		t.Error("From should return nil when no writer set")
	}

	// With writer in context
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.json")
	writer, _ := NewWriter(path, "overwrite")
	ctx = WithWriter(ctx, writer)

	if w := From(ctx); w != writer {
		t.Error("From should return the writer stored in context")
	}
}

func TestWriterCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	nestedPath := filepath.Join(dir, "a", "b", "c", "receipt.json")

	w, err := NewWriter(nestedPath, "overwrite")
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          "nested-op",
		Command:       "venturalitica enforce",
		Result:        Result{Status: "success"},
	}
	if err := w.Write(r); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := os.Stat(nestedPath); err != nil {
		t.Errorf("receipt file not created: %v", err)
	}
}
