package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator generates JSON schemas from Go types.
// Uses [github.com/invopop/jsonschema].
type SchemaGenerator struct {
	obj  any
	pkgs []string
}

// NewSchemaGenerator creates a [SchemaGenerator] for obj. Go doc comments are
// read from the given package import paths and attached to the schema as
// property descriptions. The packages must live inside the current module.
func NewSchemaGenerator(obj any, pkgs ...string) *SchemaGenerator {
	return &SchemaGenerator{
		obj:  obj,
		pkgs: pkgs,
	}
}

// Generate produces an indented JSON schema document for the generator's
// object.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	root, err := findModuleRoot()
	if err != nil {
		return nil, fmt.Errorf("find module root: %w", err)
	}

	modPath, err := getModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		return nil, fmt.Errorf("get module path: %w", err)
	}

	r := &jsonschema.Reflector{}

	for _, pkg := range g.pkgs {
		rel := strings.TrimPrefix(strings.TrimPrefix(pkg, modPath), "/")

		err := r.AddGoComments(pkg, filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("add go comments from %s: %w", pkg, err)
		}
	}

	js := r.Reflect(g.obj)

	jsData, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return jsData, nil
}

// findModuleRoot walks up from the working directory until it finds a go.mod
// file. Schema generation runs via `go generate`, so the working directory is
// always somewhere inside the module.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		_, err := os.Stat(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod found in any parent directory")
		}

		dir = parent
	}
}

func getModulePath(gomod string) (string, error) {
	data, err := os.ReadFile(gomod) //nolint:gosec // G304: Path is derived from the module root.
	if err != nil {
		return "", fmt.Errorf("read %s: %w", gomod, err)
	}

	for line := range strings.Lines(string(data)) {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "module ")
		if ok {
			return strings.TrimSpace(rest), nil
		}
	}

	return "", fmt.Errorf("no module directive in %s", gomod)
}
