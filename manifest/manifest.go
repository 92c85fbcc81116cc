// Package manifest handles protean.toml declarative class definitions.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a protean.toml file: project metadata plus an ordered
// list of class declarations.
type Manifest struct {
	Project Project     `toml:"project"`
	Classes []ClassDecl `toml:"class"`

	// Dir is the directory containing the protean.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ClassDecl declares one class: its base, the fields its generated
// constructor assigns positionally, and constant members.
type ClassDecl struct {
	Name    string         `toml:"name"`
	Base    string         `toml:"base"`
	Doc     string         `toml:"doc"`
	Fields  []string       `toml:"fields"`
	Members map[string]any `toml:"members"`
}

// Load parses a protean.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "protean.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(data, dir)
}

// Parse decodes manifest bytes. dir is recorded as the manifest directory.
func Parse(data []byte, dir string) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in protean.toml: %w", err)
	}

	var err error
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a protean.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "protean.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}
