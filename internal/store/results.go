// Package store persists compliance results and run history.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/venturalitica/venturalitica-go/internal/models"
)

// SaveResults writes results to a JSON file, merging with any existing
// content: an existing entry with the same control_id is replaced, new
// entries are appended, and entries for controls not present in this run
// are left untouched. This lets successive runs against different policies
// accumulate into one evidence file.
func SaveResults(path string, results []models.ComplianceResult) error {
	existing, err := LoadResults(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	merged := mergeResults(existing, results)

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create results directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadResults reads a results file. A missing file surfaces as an
// os.IsNotExist error so callers can treat it as empty.
func LoadResults(path string) ([]models.ComplianceResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []models.ComplianceResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", path, err)
	}
	return results, nil
}

// mergeResults replaces same-control entries in place and appends the rest,
// preserving the existing file's order for untouched controls.
func mergeResults(existing, incoming []models.ComplianceResult) []models.ComplianceResult {
	byID := make(map[string]int, len(existing))
	merged := append([]models.ComplianceResult(nil), existing...)
	for i, r := range merged {
		byID[r.ControlID] = i
	}
	for _, r := range incoming {
		if i, ok := byID[r.ControlID]; ok {
			merged[i] = r
			continue
		}
		byID[r.ControlID] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
