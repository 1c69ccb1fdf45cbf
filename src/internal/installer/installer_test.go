package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pkgforge/src/internal/lockfile"
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/pkgdir"
	"pkgforge/src/internal/planner"
	"pkgforge/src/internal/registry"
)

// fakeRunner simulates a build script by dropping a fixed file into the
// install directory, without touching the shell at all.
type fakeRunner struct {
	installDir string
	fileName   string
	fail       bool
}

func (r *fakeRunner) Run(ctx context.Context, scriptPath string, dir string) (int, error) {
	if r.fail {
		return 1, nil
	}
	if err := os.WriteFile(filepath.Join(r.installDir, r.fileName), []byte("built"), 0o644); err != nil {
		return -1, err
	}
	return 0, nil
}

func newTestProject(t *testing.T) pkgdir.Project {
	t.Helper()
	proj := pkgdir.NewProject(t.TempDir())
	if err := proj.EnsureContainer(); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	return proj
}

func TestRunInstallsAndRecordsFiles(t *testing.T) {
	proj := newTestProject(t)
	client := registry.NewStaticClient()
	client.Recipes["libfoo|1.0.0|linux|amd64"] = registry.Recipe{
		InstallScript: ": noop",
		Dependencies:  map[string]string{},
	}
	runner := &fakeRunner{installDir: proj.InstallDir(), fileName: "lib/libfoo.so"}

	in := New(proj, client, runner, Platform{OS: "linux", Arch: "amd64"}, nil)
	man := manifest.New("demo")
	lock := lockfile.New()

	actions := []planner.Action{
		{Name: "libfoo", Version: "1.0.0", Class: planner.DirectInstall, DirectVersionRequirement: "^1.0.0"},
	}
	if err := in.Run(context.Background(), actions, &man, &lock); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !lock.ExactVersion("libfoo", "1.0.0") {
		t.Error("lock should record libfoo at 1.0.0 after a successful install")
	}
	if man.Dependencies["libfoo"] != "^1.0.0" {
		t.Errorf("manifest dependency = %q, want ^1.0.0", man.Dependencies["libfoo"])
	}
	if proj.IsDirty() {
		t.Error("project should not be dirty after a successful transaction")
	}
	if _, err := os.Stat(filepath.Join(proj.InstallDir(), "lib/libfoo.so")); err != nil {
		t.Errorf("installed file missing: %v", err)
	}
}

func TestRunRollsBackOnFailedBuild(t *testing.T) {
	proj := newTestProject(t)
	client := registry.NewStaticClient()
	client.Recipes["libfoo|1.0.0|linux|amd64"] = registry.Recipe{InstallScript: ": noop"}
	runner := &fakeRunner{installDir: proj.InstallDir(), fileName: "lib/libfoo.so", fail: true}

	in := New(proj, client, runner, Platform{OS: "linux", Arch: "amd64"}, nil)
	man := manifest.New("demo")
	lock := lockfile.New()

	actions := []planner.Action{
		{Name: "libfoo", Version: "1.0.0", Class: planner.DirectInstall, DirectVersionRequirement: "^1.0.0"},
	}
	err := in.Run(context.Background(), actions, &man, &lock)
	if err == nil {
		t.Fatal("expected an error from a failing build script")
	}
	if lock.Has("libfoo") {
		t.Error("lock must not record a package whose build failed")
	}
}

func TestRunEmptyPlanIsNoop(t *testing.T) {
	proj := newTestProject(t)
	client := registry.NewStaticClient()
	in := New(proj, client, &fakeRunner{installDir: proj.InstallDir()}, Platform{OS: "linux", Arch: "amd64"}, nil)
	man := manifest.New("demo")
	lock := lockfile.New()

	if err := in.Run(context.Background(), nil, &man, &lock); err != nil {
		t.Errorf("Run with an empty plan should be a no-op, got: %v", err)
	}
}

func TestUninstallRemovesFilesAndLockEntry(t *testing.T) {
	installRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(installRoot, "lib"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	filePath := filepath.Join(installRoot, "lib", "libfoo.so")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	man := manifest.New("demo")
	man.SetDependency("libfoo", "^1.0.0")
	lock := lockfile.New()
	lock.SetPackage("libfoo", lockfile.Package{Version: "1.0.0", Files: []string{"lib/libfoo.so"}})

	removed, err := Uninstall(&man, &lock, installRoot, []string{"libfoo"}, false)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if len(removed) != 1 || removed[0] != "libfoo" {
		t.Errorf("removed = %v, want [libfoo]", removed)
	}
	if lock.Has("libfoo") {
		t.Error("libfoo should no longer be locked")
	}
	if man.IsDirect("libfoo") {
		t.Error("libfoo should no longer be a direct dependency")
	}
	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Error("installed file should have been removed")
	}
}

func TestUninstallAutoremoveDropsOrphanedDependency(t *testing.T) {
	installRoot := t.TempDir()
	man := manifest.New("demo")
	man.SetDependency("libfoo", "^1.0.0")
	lock := lockfile.New()
	lock.SetPackage("libfoo", lockfile.Package{Version: "1.0.0", Requires: map[string]string{"libbar": "*"}})
	lock.SetPackage("libbar", lockfile.Package{Version: "2.0.0"})

	removed, err := Uninstall(&man, &lock, installRoot, []string{"libfoo"}, true)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	removedSet := map[string]bool{}
	for _, n := range removed {
		removedSet[n] = true
	}
	if !removedSet["libbar"] {
		t.Errorf("removed = %v, want libbar included as an orphaned dependency", removed)
	}
}
