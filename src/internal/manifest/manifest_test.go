package manifest

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateThenSaveRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pkgforge.json")

	m, err := LoadOrCreate(path, dir)
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if m.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want %q", m.Name, filepath.Base(dir))
	}

	m.SetDependency("libfoo", ">=1.0.0")
	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Dependencies["libfoo"] != ">=1.0.0" {
		t.Errorf("Dependencies[libfoo] = %q, want >=1.0.0", reloaded.Dependencies["libfoo"])
	}
	if !reloaded.IsDirect("libfoo") {
		t.Error("libfoo should be a direct dependency after SetDependency")
	}
}

func TestRemoveDependency(t *testing.T) {
	m := New("demo")
	m.SetDependency("libfoo", "*")
	m.RemoveDependency("libfoo")
	if m.IsDirect("libfoo") {
		t.Error("libfoo must not be direct after RemoveDependency")
	}
}

func TestDirectNamesSorted(t *testing.T) {
	m := New("demo")
	m.SetDependency("zlib", "")
	m.SetDependency("alib", "")
	got := m.DirectNames()
	if len(got) != 2 || got[0] != "alib" || got[1] != "zlib" {
		t.Errorf("DirectNames() = %v, want [alib zlib]", got)
	}
}
