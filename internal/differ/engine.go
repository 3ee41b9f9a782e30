// Package differ compares two audit result files and reports per-control
// changes in human-readable terms.
package differ

import (
	"fmt"

	"github.com/wI2L/jsondiff"

	"github.com/venturalitica/venturalitica-go/internal/models"
	"github.com/venturalitica/venturalitica-go/internal/store"
)

// DiffType indicates what kind of difference was detected
type DiffType string

const (
	DiffTypeAdded    DiffType = "added"
	DiffTypeRemoved  DiffType = "removed"
	DiffTypeChanged  DiffType = "changed"
	DiffTypeNoChange DiffType = "no_change"
)

// ControlDiff represents the difference for a single control
type ControlDiff struct {
	ControlID    string
	DiffType     DiffType
	Patches      jsondiff.Patch // Raw JSON patches for changed controls
	Translations []string       // Human-readable translations
}

// DiffResult contains the complete diff result
type DiffResult struct {
	HasChanges   bool
	ControlDiffs []ControlDiff
}

// ComputeDiff loads two result files and compares them, baseline first.
func ComputeDiff(baselinePath, currentPath string) (*DiffResult, error) {
	baseline, err := store.LoadResults(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("load baseline results: %w", err)
	}
	current, err := store.LoadResults(currentPath)
	if err != nil {
		return nil, fmt.Errorf("load current results: %w", err)
	}
	return Compare(baseline, current)
}

// Compare diffs two result lists control by control. Ordering follows the
// baseline, with controls new in the current run appended.
func Compare(baseline, current []models.ComplianceResult) (*DiffResult, error) {
	currentByID := make(map[string]models.ComplianceResult, len(current))
	for _, r := range current {
		currentByID[r.ControlID] = r
	}

	result := &DiffResult{}

	seen := make(map[string]bool, len(baseline))
	for _, old := range baseline {
		seen[old.ControlID] = true

		now, exists := currentByID[old.ControlID]
		if !exists {
			result.ControlDiffs = append(result.ControlDiffs, ControlDiff{
				ControlID:    old.ControlID,
				DiffType:     DiffTypeRemoved,
				Translations: []string{"Control no longer evaluated."},
			})
			result.HasChanges = true
			continue
		}

		patches, err := jsondiff.Compare(old, now)
		if err != nil {
			return nil, fmt.Errorf("compare control %q: %w", old.ControlID, err)
		}
		if len(patches) == 0 {
			result.ControlDiffs = append(result.ControlDiffs, ControlDiff{
				ControlID: old.ControlID,
				DiffType:  DiffTypeNoChange,
			})
			continue
		}

		result.ControlDiffs = append(result.ControlDiffs, ControlDiff{
			ControlID:    old.ControlID,
			DiffType:     DiffTypeChanged,
			Patches:      patches,
			Translations: Translate(old, now, patches),
		})
		result.HasChanges = true
	}

	for _, now := range current {
		if seen[now.ControlID] {
			continue
		}
		result.ControlDiffs = append(result.ControlDiffs, ControlDiff{
			ControlID:    now.ControlID,
			DiffType:     DiffTypeAdded,
			Translations: []string{fmt.Sprintf("New control evaluated (%s).", now.Status)},
		})
		result.HasChanges = true
	}

	return result, nil
}
