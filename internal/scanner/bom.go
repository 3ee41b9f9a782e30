package scanner

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// CycloneDX component types used by the scanner.
const (
	TypeLibrary = "library"
	TypeMLModel = "machine-learning-model"
)

// Property is a CycloneDX name/value annotation.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Component is one BOM entry.
type Component struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Version     string     `json:"version,omitempty"`
	PURL        string     `json:"purl,omitempty"`
	Description string     `json:"description,omitempty"`
	Properties  []Property `json:"properties,omitempty"`
}

// BOM is a CycloneDX 1.5 JSON document.
type BOM struct {
	BOMFormat    string      `json:"bomFormat"`
	SpecVersion  string      `json:"specVersion"`
	SerialNumber string      `json:"serialNumber"`
	Version      int         `json:"version"`
	Components   []Component `json:"components"`
}

func newBOM() *BOM {
	return &BOM{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.5",
		SerialNumber: "urn:uuid:" + uuid.NewString(),
		Version:      1,
	}
}

// add records a component, deduplicating on (type, name, version).
func (b *BOM) add(c Component) {
	for _, have := range b.Components {
		if have.Type == c.Type && have.Name == c.Name && have.Version == c.Version {
			return
		}
	}
	b.Components = append(b.Components, c)
}

// sortComponents gives deterministic output across filesystem walk orders.
func (b *BOM) sortComponents() {
	sort.Slice(b.Components, func(i, j int) bool {
		a, c := b.Components[i], b.Components[j]
		if a.Type != c.Type {
			return a.Type < c.Type
		}
		if a.Name != c.Name {
			return a.Name < c.Name
		}
		return a.Version < c.Version
	})
}

// JSON renders the BOM.
func (b *BOM) JSON() ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}
