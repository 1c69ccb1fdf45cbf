package engine

import (
	"context"
	"testing"

	"pkgforge/src/internal/installer"
	"pkgforge/src/internal/lockfile"
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/pkgdir"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/useflags"
)

func newTestEngine(t *testing.T, client *registry.StaticClient) *Engine {
	t.Helper()
	proj := pkgdir.NewProject(t.TempDir())
	if err := proj.EnsureContainer(); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	inst := installer.New(proj, client, nil, installer.Platform{OS: "linux", Arch: "amd64"}, nil)
	return New(client, inst)
}

func TestSolveResolvesTransitiveDependency(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{"libbar": ">=1.0.0"}},
	}
	client.Packages["libbar"] = map[string]registry.VersionFixture{
		"1.0.0": {},
		"2.0.0": {},
	}

	e := newTestEngine(t, client)
	man := manifest.New("demo")
	man.SetDependency("libfoo", "")
	lock := lockfile.New()

	sr, err := e.Solve(context.Background(), man, lock)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	byName := map[string]string{}
	for _, r := range sr.Resolved {
		byName[r.Name] = r.Version
	}
	if _, ok := byName["libfoo"]; !ok {
		t.Fatalf("Resolved = %+v, want libfoo present", sr.Resolved)
	}
	if v, ok := byName["libbar"]; !ok || v != "2.0.0" {
		t.Errorf("libbar resolved to %q, want the newest 2.0.0", v)
	}
	for name := range byName {
		if useflags.IsPseudoName(name) {
			t.Errorf("pseudo-package %q leaked into the resolved set", name)
		}
	}
}

func TestSolveUnsatisfiableOnMissingDependency(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {Dependencies: map[string]string{"missing": ">=1.0.0"}},
	}

	e := newTestEngine(t, client)
	man := manifest.New("demo")
	man.SetDependency("libfoo", "")
	lock := lockfile.New()

	_, err := e.Solve(context.Background(), man, lock)
	if err == nil {
		t.Fatal("expected an unsat error when a dependency has no candidates")
	}
}

func TestSolveRespectsUseFlagDependency(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{
		"1.0.0": {IUse: []string{"ssl"}},
	}

	e := newTestEngine(t, client)
	man := manifest.New("demo")
	man.SetDependency("libfoo", "")
	man.UseFlags = []string{"+ssl"}
	lock := lockfile.New()

	sr, err := e.Solve(context.Background(), man, lock)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	found := false
	for _, r := range sr.Resolved {
		if r.Name != "libfoo" {
			continue
		}
		found = true
		if len(r.IUse) != 1 || r.IUse[0] != "ssl" {
			t.Errorf("libfoo.IUse = %v, want [ssl]", r.IUse)
		}
	}
	if !found {
		t.Fatal("libfoo missing from resolved set")
	}
}

func TestPlanAndInstallNoopWhenAlreadySatisfied(t *testing.T) {
	client := registry.NewStaticClient()
	client.Packages["libfoo"] = map[string]registry.VersionFixture{"1.0.0": {}}

	e := newTestEngine(t, client)
	man := manifest.New("demo")
	man.SetDependency("libfoo", "")
	lock := lockfile.New()
	lock.SetPackage("libfoo", lockfile.Package{Version: "1.0.0"})

	sr, err := e.Solve(context.Background(), man, lock)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	actions, err := e.PlanAndInstall(context.Background(), sr, &man, &lock, nil, nil)
	if err != nil {
		t.Fatalf("PlanAndInstall: %v", err)
	}
	if len(actions) != 0 {
		t.Errorf("actions = %v, want none: libfoo is already installed at the resolved version", actions)
	}
}
