package policy

import (
	"embed"
	"fmt"

	"github.com/venturalitica/venturalitica-go/internal/models"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// presetCache holds parsed presets to avoid re-parsing
var presetCache = map[string]*models.Policy{}

// presetFiles maps preset names to embedded file paths
var presetFiles = map[string]string{
	"baseline": "presets/baseline.oscal.yaml",
	"fairness": "presets/fairness.oscal.yaml",
}

// GetPreset loads a built-in policy preset by name, or nil if not found.
func GetPreset(name string) *models.Policy {
	if cached, ok := presetCache[name]; ok {
		return cached
	}
	path, ok := presetFiles[name]
	if !ok {
		return nil
	}
	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil
	}
	pol, err := Parse(data, name)
	if err != nil {
		return nil
	}
	presetCache[name] = pol
	return pol
}

// ListPresetNames returns the names of all available presets.
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	return names
}

// MustGetPreset returns a preset or panics (for tests).
func MustGetPreset(name string) *models.Policy {
	p := GetPreset(name)
	if p == nil {
		panic(fmt.Sprintf("preset %q not found", name))
	}
	return p
}
