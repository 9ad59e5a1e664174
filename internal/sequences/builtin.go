package sequences

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// LoadBuiltinDefinitions returns the catalogues bundled with animseq.
func LoadBuiltinDefinitions() ([]*Definition, error) {
	entries, err := fs.ReadDir(builtinFS, "builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtin catalogs: %w", err)
	}

	defs := make([]*Definition, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := "builtin/" + entry.Name()
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read builtin catalog %s: %w", entry.Name(), err)
		}
		def, err := parseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("parse builtin catalog %s: %w", entry.Name(), err)
		}
		def.Source = "builtin"
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})

	return defs, nil
}

// Builtin compiles the bundled catalogue with the given units.
func Builtin(units Units) (*Catalog, error) {
	defs, err := LoadBuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs, units)
}
