package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func findComponent(b *BOM, name string) *Component {
	for i := range b.Components {
		if b.Components[i].Name == name {
			return &b.Components[i]
		}
	}
	return nil
}

func TestScan_Requirements(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", `
# training stack
scikit-learn==1.4.2
pandas>=2.0
requests
fairlearn[extras]==0.10.0
`)

	bom, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	sk := findComponent(bom, "scikit-learn")
	if sk == nil {
		t.Fatal("scikit-learn not detected")
	}
	if sk.Version != "1.4.2" {
		t.Errorf("scikit-learn version = %q, want 1.4.2", sk.Version)
	}
	if sk.PURL != "pkg:pypi/scikit-learn@1.4.2" {
		t.Errorf("purl = %q", sk.PURL)
	}
	if len(sk.Properties) != 1 || sk.Properties[0].Name != "venturalitica:ml" {
		t.Errorf("scikit-learn missing ml marker: %+v", sk.Properties)
	}

	if pd := findComponent(bom, "pandas"); pd == nil || pd.Version != "2.0" {
		t.Errorf("pandas = %+v, want version 2.0", pd)
	}
	if rq := findComponent(bom, "requests"); rq == nil || rq.Version != "" || len(rq.Properties) != 0 {
		t.Errorf("requests = %+v, want unversioned non-ml entry", rq)
	}
	if fl := findComponent(bom, "fairlearn"); fl == nil {
		t.Error("extras suffix not stripped from fairlearn")
	}
}

func TestScan_Pyproject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", `
[project]
name = "demo"
dependencies = ["torch==2.3.0", "pyyaml"]

[project.optional-dependencies]
dev = ["pytest>=8.0"]
`)

	bom, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if th := findComponent(bom, "torch"); th == nil || th.Version != "2.3.0" {
		t.Errorf("torch = %+v, want version 2.3.0", th)
	}
	if findComponent(bom, "pytest") == nil {
		t.Error("optional dependency group not scanned")
	}
}

func TestScan_GoMod(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", `module example.com/demo

go 1.24.0

require (
	github.com/spf13/cobra v1.10.2
	gopkg.in/yaml.v3 v3.0.1 // indirect
)

require github.com/google/uuid v1.6.0
`)

	bom, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if c := findComponent(bom, "github.com/spf13/cobra"); c == nil || c.PURL != "pkg:golang/github.com/spf13/cobra@v1.10.2" {
		t.Errorf("cobra = %+v", c)
	}
	if findComponent(bom, "gopkg.in/yaml.v3") != nil {
		t.Error("indirect require should be skipped")
	}
	if findComponent(bom, "github.com/google/uuid") == nil {
		t.Error("single-line require missed")
	}
}

func TestScan_ModelSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "train.py", `
from sklearn.ensemble import RandomForestClassifier

model = RandomForestClassifier(n_estimators=100)
helper = some_function()
`)

	bom, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	m := findComponent(bom, "RandomForestClassifier")
	if m == nil {
		t.Fatal("model constructor not detected")
	}
	if m.Type != TypeMLModel {
		t.Errorf("type = %q, want %q", m.Type, TypeMLModel)
	}
	if !strings.Contains(m.Description, "train.py") {
		t.Errorf("description = %q, want source file name", m.Description)
	}
	if findComponent(bom, "some_function") != nil {
		t.Error("unrelated call flagged as model")
	}
}

func TestScan_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "requirements.txt", "numpy\npandas\n")

	first, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Components) != len(second.Components) {
		t.Fatal("component counts differ")
	}
	for i := range first.Components {
		if first.Components[i].Name != second.Components[i].Name {
			t.Errorf("order differs at %d: %s vs %s", i, first.Components[i].Name, second.Components[i].Name)
		}
	}
}

func TestScan_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.txt", "x")
	if _, err := Scan(filepath.Join(dir, "file.txt")); err == nil {
		t.Fatal("expected error for non-directory target")
	}
}
