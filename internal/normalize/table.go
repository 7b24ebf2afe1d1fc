package normalize

import (
	_ "embed"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

// Table maps a normalized canonical name to its synonyms. It is immutable
// after construction and injected into the Expander, so it can be swapped
// per locale or per test.
type Table map[string][]string

// DefaultTable returns the embedded bilingual synonym table.
func DefaultTable() Table {
	table, err := parseTable(defaultSynonymsYAML)
	if err != nil {
		// The embedded table is validated by tests; an error here means a
		// broken build.
		panic(err)
	}
	return table
}

// LoadTable reads a synonym table from a YAML file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	table, err := parseTable(data)
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return table, nil
}

// LoadTableFS reads a synonym table from a filesystem, for tests.
func LoadTableFS(fsys fs.FS, path string) (Table, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	table, err := parseTable(data)
	if err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return table, nil
}

// parseTable decodes the YAML mapping and normalizes its keys so lookups by
// normalized name always hit.
func parseTable(data []byte) (Table, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	table := make(Table, len(raw))
	for key, synonyms := range raw {
		table[Name(key)] = synonyms
	}
	return table, nil
}

// Lookup returns the synonyms for a normalized name.
func (t Table) Lookup(normalized string) []string {
	return t[normalized]
}
