// Package manifest is the human-authored declaration of a project's
// dependencies, USE flags, and named scripts (spec §3/§4.10): the
// "pkgforge.json" file the solver reads requirements from and the
// installer updates after a successful direct install.
//
// Grounded on original_source/src/installer.c's ttrek_AddPackageToSpec
// (the C tool's equivalent spec-file mutation) and spec.md §4.10's field
// table; the JSON encoding itself is mandated by spec.md §6.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Manifest is the round-tripped in-memory form of pkgforge.json.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
	UseFlags     []string          `json:"useFlags"`
	Scripts      map[string]string `json:"scripts"`
}

// New returns an empty manifest with the given name and version 0.1.0.
func New(name string) Manifest {
	return Manifest{
		Name:         name,
		Version:      "0.1.0",
		Dependencies: map[string]string{},
		Scripts:      map[string]string{},
	}
}

// Load reads and parses a manifest file. Missing maps are normalized to
// empty, never nil, so callers can index them unconditionally.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.Scripts == nil {
		m.Scripts = map[string]string{}
	}
	return m, nil
}

// LoadOrCreate reads path, creating a fresh manifest named after
// projectDir if it does not exist yet.
func LoadOrCreate(path, projectDir string) (Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m := New(filepath.Base(projectDir))
		return m, Save(path, m)
	}
	return Load(path)
}

// Save writes m to path atomically: write to a sibling temp file, then
// rename over the destination (spec §4.10/§6).
func Save(path string, m Manifest) error {
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.Scripts == nil {
		m.Scripts = map[string]string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SetDependency records (or replaces) a direct requirement's range
// expression, used by the installer after a successful direct install
// (spec §4.9 step 6).
func (m *Manifest) SetDependency(name, rangeExpr string) {
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	m.Dependencies[name] = rangeExpr
}

// RemoveDependency deletes a direct requirement, used by uninstall when
// the removed package was a direct requirement (spec §4.9's Uninstall).
func (m *Manifest) RemoveDependency(name string) {
	delete(m.Dependencies, name)
}

// IsDirect reports whether name is declared as a direct dependency.
func (m Manifest) IsDirect(name string) bool {
	_, ok := m.Dependencies[name]
	return ok
}

// DirectNames returns the manifest's direct dependency names, sorted.
func (m Manifest) DirectNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for n := range m.Dependencies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
