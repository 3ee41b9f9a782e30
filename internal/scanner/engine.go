// Package scanner builds a CycloneDX-flavored ML bill of materials from a
// project directory: declared dependencies plus model constructors spotted
// in Python sources.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// knownModels are constructor names that indicate an ML model definition.
var knownModels = map[string]bool{
	"RandomForestClassifier":     true,
	"LogisticRegression":         true,
	"SVC":                        true,
	"LinearRegression":           true,
	"DecisionTreeClassifier":     true,
	"KNeighborsClassifier":       true,
	"GradientBoostingClassifier": true,
	"XGBClassifier":              true,
	"LGBMClassifier":             true,
	"CatBoostClassifier":         true,
	"Sequential":                 true,
	"Module":                     true,
	"resnet18":                   true,
	"resnet50":                   true,
}

// mlLibraries get a marker property so governance tooling can tell ML
// dependencies from plumbing.
var mlLibraries = map[string]bool{
	"torch":        true,
	"tensorflow":   true,
	"keras":        true,
	"scikit-learn": true,
	"sklearn":      true,
	"xgboost":      true,
	"lightgbm":     true,
	"catboost":     true,
	"transformers": true,
	"pandas":       true,
	"numpy":        true,
}

var modelCallRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// Scan walks a project directory and assembles its BOM.
func Scan(dir string) (*BOM, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scan target: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan target %s is not a directory", dir)
	}

	bom := newBOM()
	if err := scanRequirements(bom, filepath.Join(dir, "requirements.txt")); err != nil {
		return nil, err
	}
	if err := scanPyproject(bom, filepath.Join(dir, "pyproject.toml")); err != nil {
		return nil, err
	}
	if err := scanGoMod(bom, filepath.Join(dir, "go.mod")); err != nil {
		return nil, err
	}
	if err := scanModelSources(bom, dir); err != nil {
		return nil, err
	}
	bom.sortComponents()
	return bom, nil
}

// scanRequirements parses requirements.txt lines into library components.
func scanRequirements(bom *BOM, path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		addRequirementLine(bom, sc.Text(), "pypi")
	}
	return sc.Err()
}

// addRequirementLine handles one PEP 508-ish requirement line. Naive split
// on the common version operators, same as the audits it feeds expect.
func addRequirementLine(bom *BOM, line, ecosystem string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}

	name := line
	version := ""
	for _, op := range []string{"==", ">=", "<=", "~=", ">", "<"} {
		if i := strings.Index(name, op); i >= 0 {
			rest := name[i+len(op):]
			name = name[:i]
			if op == "==" || op == ">=" {
				version = strings.TrimSpace(strings.SplitN(rest, ";", 2)[0])
			}
			break
		}
	}
	// Strip extras: name[extra]
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	c := Component{
		Type:    TypeLibrary,
		Name:    name,
		Version: version,
		PURL:    purl(ecosystem, name, version),
	}
	if mlLibraries[strings.ToLower(name)] {
		c.Properties = append(c.Properties, Property{Name: "venturalitica:ml", Value: "true"})
	}
	bom.add(c)
}

// pyprojectDoc is the PEP 621 slice of pyproject.toml the scanner reads.
type pyprojectDoc struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

func scanPyproject(bom *BOM, path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var doc pyprojectDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for _, dep := range doc.Project.Dependencies {
		addRequirementLine(bom, dep, "pypi")
	}
	for _, group := range doc.Project.OptionalDependencies {
		for _, dep := range group {
			addRequirementLine(bom, dep, "pypi")
		}
	}
	return nil
}

// scanGoMod collects direct requires from a go.mod require block.
func scanGoMod(bom *BOM, path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	inBlock := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "require (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		}

		var spec string
		if inBlock {
			spec = line
		} else if strings.HasPrefix(line, "require ") {
			spec = strings.TrimPrefix(line, "require ")
		} else {
			continue
		}
		if strings.Contains(spec, "// indirect") {
			continue
		}
		fields := strings.Fields(spec)
		if len(fields) < 2 {
			continue
		}
		bom.add(Component{
			Type:    TypeLibrary,
			Name:    fields[0],
			Version: fields[1],
			PURL:    purl("golang", fields[0], fields[1]),
		})
	}
	return sc.Err()
}

// scanModelSources greps Python sources for known model constructor calls.
func scanModelSources(bom *BOM, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "venv" || name == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable source files are not BOM errors
		}
		for _, m := range modelCallRe.FindAllStringSubmatch(string(data), -1) {
			if !knownModels[m[1]] {
				continue
			}
			bom.add(Component{
				Type:        TypeMLModel,
				Name:        m[1],
				Description: fmt.Sprintf("Detected in %s", filepath.Base(path)),
			})
		}
		return nil
	})
}

func purl(ecosystem, name, version string) string {
	p := fmt.Sprintf("pkg:%s/%s", ecosystem, name)
	if version != "" {
		p += "@" + version
	}
	return p
}
