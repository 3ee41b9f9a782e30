package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/venturalitica/venturalitica-go/internal/models"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecordAndGet(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	results := []models.ComplianceResult{
		result("c-1", models.StatusPass),
		result("c-2", models.StatusFail),
	}
	id, err := h.RecordRun(ctx, "fairness", true, results)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("RecordRun returned empty id")
	}

	run, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.Policy != "fairness" || !run.Strict {
		t.Errorf("run = %+v, want policy=fairness strict=true", run)
	}
	if run.Summary.Total != 2 || run.Summary.Passed != 1 || run.Summary.Failed != 1 {
		t.Errorf("summary = %+v, want total=2 passed=1 failed=1", run.Summary)
	}
	if len(run.Results) != 2 || run.Results[0].ControlID != "c-1" {
		t.Errorf("results = %+v, want two entries starting with c-1", run.Results)
	}
}

func TestHistory_RunsNewestFirst(t *testing.T) {
	h := openTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.RecordRun(ctx, "baseline", false, []models.ComplianceResult{result("c-1", models.StatusPass)}); err != nil {
			t.Fatalf("RecordRun %d failed: %v", i, err)
		}
	}

	runs, err := h.Runs(ctx, 2)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}

	all, err := h.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
}

func TestHistory_GetUnknownRun(t *testing.T) {
	h := openTestHistory(t)
	if _, err := h.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown run id")
	}
}
