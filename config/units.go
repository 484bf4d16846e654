package config

import (
	"path/filepath"
	"strings"
)

// UnitName derives the binary name of the unit stored at path from its
// location below the first source root that contains it:
// src/acme/tools/Greeter.mag -> acme.tools.Greeter. A file outside every
// root is named after its base name.
func UnitName(roots []string, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, root := range roots {
		r, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(r, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return dotted(rel)
	}
	return dotted(filepath.Base(path))
}

func dotted(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

// UnitName derives a unit name using the configured source directories.
func (c *Config) UnitName(path string) string {
	return UnitName(c.SourceDirPaths(), path)
}
