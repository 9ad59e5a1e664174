package sequences

import (
	"os"
	"path/filepath"
)

// CatalogSearchPaths returns catalogue directories in precedence order.
func CatalogSearchPaths(projectDir string) []string {
	paths := make([]string, 0, 3)
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".animseq", "commands"))
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "animseq", "commands"))
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "animseq", "commands"))
	return paths
}

// LoadDefinitions loads definitions from dirs in order, followed by the builtins.
func LoadDefinitions(dirs ...string) ([]*Definition, error) {
	defs := make([]*Definition, 0)
	for _, dir := range dirs {
		loaded, err := LoadDefinitionsFromDir(dir)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}

	builtins, err := LoadBuiltinDefinitions()
	if err != nil {
		return nil, err
	}
	return append(defs, builtins...), nil
}

// LoadCatalog compiles a catalog from an explicit directory (if any), the
// search paths for projectDir, and the builtins, with first-hit precedence.
func LoadCatalog(dir, projectDir string, units Units) (*Catalog, error) {
	dirs := make([]string, 0, 4)
	if dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = append(dirs, CatalogSearchPaths(projectDir)...)

	defs, err := LoadDefinitions(dirs...)
	if err != nil {
		return nil, err
	}
	return NewCatalog(defs, units)
}
