// Package installer implements the transactional installer (spec §4.9,
// C9): for each planned action, back up any existing files, run the
// generated build script in a monitored sandbox, capture the files it
// created into the lock, and roll back every action in the transaction on
// failure.
//
// Grounded on original_source/src/installer.c's ttrek_BackupPackageFiles /
// install-loop shape (backup -> delete -> build -> capture -> lock
// update, restore-on-failure) and spec.md §4.9's eight numbered steps.
package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"pkgforge/src/internal/fsmonitor"
	"pkgforge/src/internal/lockfile"
	"pkgforge/src/internal/manifest"
	"pkgforge/src/internal/planner"
	"pkgforge/src/internal/pkgdir"
	"pkgforge/src/internal/registry"
	"pkgforge/src/internal/shellrunner"
)

// Platform identifies the (os, arch) pair recipes are fetched for.
type Platform struct {
	OS   string
	Arch string
}

// Installer runs install/uninstall transactions against one project.
type Installer struct {
	Project  pkgdir.Project
	Registry registry.Client
	Runner   shellrunner.Runner
	Platform Platform
	Log      *slog.Logger
}

// New returns an Installer; a nil logger falls back to slog.Default().
func New(project pkgdir.Project, client registry.Client, runner shellrunner.Runner, platform Platform, log *slog.Logger) *Installer {
	if log == nil {
		log = slog.Default()
	}
	return &Installer{Project: project, Registry: client, Runner: runner, Platform: platform, Log: log}
}

// backupEntry records where a package's pre-existing files were staged,
// so a later action's failure can restore them.
type backupEntry struct {
	name    string
	tempDir string
	files   []string
}

// Run executes actions in order against man/lock, mutating both only on
// full-transaction success (spec §4.9 steps 1-8).
func (in *Installer) Run(ctx context.Context, actions []planner.Action, man *manifest.Manifest, lock *lockfile.Lockfile) (retErr error) {
	if len(actions) == 0 {
		return nil // "already-satisfied plan": not an error (spec §7)
	}
	if err := in.Project.EnsureContainer(); err != nil {
		return err
	}
	if err := in.Project.MarkDirty(); err != nil {
		return err
	}

	origDeps, origPkgs := maps.Clone(man.Dependencies), maps.Clone(lock.Packages)
	var backups []backupEntry
	defer func() {
		if retErr != nil {
			in.rollback(backups)
			man.Dependencies, lock.Packages = origDeps, origPkgs
			return
		}
		if err := in.Project.ClearDirty(); err != nil {
			in.Log.Warn("clear dirty marker failed", "error", err)
		}
		for _, b := range backups {
			if err := os.RemoveAll(b.tempDir); err != nil {
				// spec §9 open question: cleanup failure is logged, not fatal.
				in.Log.Warn("backup temp dir cleanup failed", "package", b.name, "error", err)
			}
		}
	}()

	for _, action := range actions {
		backup, err := in.runOne(ctx, action, man, lock)
		if backup != nil {
			backups = append(backups, *backup)
		}
		if err != nil {
			return fmt.Errorf("install %s=%s: %w", action.Name, action.Version, err)
		}
	}
	return nil
}

func (in *Installer) runOne(ctx context.Context, action planner.Action, man *manifest.Manifest, lock *lockfile.Lockfile) (*backupEntry, error) {
	var backup *backupEntry
	if lock.Has(action.Name) {
		b, err := in.backupAndDelete(action.Name, lock.Packages[action.Name].Files)
		if err != nil {
			return nil, fmt.Errorf("backup: %w", err)
		}
		backup = &b
	}

	recipe, err := in.Registry.FetchRecipe(ctx, action.Name, action.Version, in.Platform.OS, in.Platform.Arch)
	if err != nil {
		return backup, fmt.Errorf("fetch_recipe: %w", err)
	}

	buildDir := in.Project.BuildPackageDir(action.Name, action.Version)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return backup, err
	}
	if err := writePatches(buildDir, recipe.Patches); err != nil {
		return backup, err
	}
	scriptPath, err := in.materializeScript(buildDir, action, recipe)
	if err != nil {
		return backup, err
	}

	before, err := fsmonitor.Begin(in.Project.InstallDir())
	if err != nil {
		return backup, err
	}

	exitCode, err := in.Runner.Run(ctx, scriptPath, buildDir)
	if err != nil {
		return backup, fmt.Errorf("shell runner: %w", err)
	}
	if exitCode != 0 {
		return backup, fmt.Errorf("build script exited %d", exitCode)
	}

	newFiles, err := before.End()
	if err != nil {
		return backup, err
	}

	use := computeUse(recipe.IUse, man.UseFlags)
	lock.SetPackage(action.Name, lockfile.Package{
		Version:  action.Version,
		Requires: recipe.Dependencies,
		IUse:     recipe.IUse,
		Use:      use,
		Files:    newFiles,
	})

	if action.Class == planner.DirectInstall {
		expr := action.DirectVersionRequirement
		if expr == "none" || expr == "" {
			expr = "^" + action.Version
		}
		man.SetDependency(action.Name, expr)
	}

	return backup, nil
}

// backupAndDelete copies files out of the install root into a per-
// transaction temp directory, then deletes them (spec §4.9 step 1).
func (in *Installer) backupAndDelete(name string, files []string) (backupEntry, error) {
	tempDir := filepath.Join(in.Project.TempDir(), name+"-"+uuid.New().String())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return backupEntry{}, err
	}
	for _, rel := range files {
		src := filepath.Join(in.Project.InstallDir(), rel)
		dst := filepath.Join(tempDir, rel)
		if err := copyFile(src, dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return backupEntry{}, err
		}
	}
	for _, rel := range files {
		src := filepath.Join(in.Project.InstallDir(), rel)
		if err := os.Remove(src); err != nil && !os.IsNotExist(err) {
			return backupEntry{}, err
		}
	}
	return backupEntry{name: name, tempDir: tempDir, files: files}, nil
}

// rollback restores every backed-up package's files into the install
// root, overwriting any partial new state (spec §4.9 step 7).
func (in *Installer) rollback(backups []backupEntry) {
	for _, b := range backups {
		for _, rel := range b.files {
			src := filepath.Join(b.tempDir, rel)
			dst := filepath.Join(in.Project.InstallDir(), rel)
			if err := copyFile(src, dst); err != nil {
				in.Log.Error("rollback restore failed", "package", b.name, "path", rel, "error", err)
			}
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func writePatches(buildDir string, patches map[string][]byte) error {
	if len(patches) == 0 {
		return nil
	}
	patchDir := filepath.Join(buildDir, "patches")
	if err := os.MkdirAll(patchDir, 0o755); err != nil {
		return err
	}
	for name, payload := range patches {
		if err := os.WriteFile(filepath.Join(patchDir, name), payload, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// materializeScript stitches a fixed preamble (working-tree paths, build
// environment) with the recipe-derived body and writes the result to
// disk (spec §4.9 step 2). The body's own stage structure (download/git,
// unpack, patch, autogen, configure/cmake, make, install — tagged 1..4)
// is produced upstream by the recipe DSL, out of this package's scope;
// this only wraps it with the environment the sandbox needs.
func (in *Installer) materializeScript(buildDir string, action planner.Action, recipe registry.Recipe) (string, error) {
	preamble := fmt.Sprintf(`#!/bin/sh
set -e
export PKGFORGE_INSTALL_DIR=%q
export PKGFORGE_BUILD_DIR=%q
export PKGFORGE_PACKAGE_NAME=%q
export PKGFORGE_PACKAGE_VERSION=%q
cd "$PKGFORGE_BUILD_DIR"
`, in.Project.InstallDir(), buildDir, action.Name, action.Version)
	full := preamble + recipe.InstallScript + "\n"
	scriptPath := filepath.Join(buildDir, "install.sh")
	if err := os.WriteFile(scriptPath, []byte(full), 0o755); err != nil {
		return "", err
	}
	return scriptPath, nil
}

// computeUse intersects the global USE selection with a package's
// declared iuse, the value recorded into the lock's `use` field (spec
// §4.9 step 6). A bare iuse entry (no explicit polarity token) that the
// global selection never mentions is recorded as disabled.
func computeUse(iuse []string, globalUse []string) []string {
	global := map[string]bool{}
	for _, tok := range globalUse {
		if len(tok) < 2 {
			continue
		}
		global[tok[1:]] = tok[0] == '+'
	}
	out := make([]string, 0, len(iuse))
	for _, flag := range iuse {
		name := flag
		positive := false
		if len(name) > 0 && (name[0] == '+' || name[0] == '-') {
			positive = name[0] == '+'
			name = name[1:]
		}
		if p, ok := global[name]; ok {
			positive = p
		}
		prefix := "-"
		if positive {
			prefix = "+"
		}
		out = append(out, prefix+name)
	}
	return out
}

// Uninstall removes names and every package that transitively depends on
// them, plus (when autoremove is set) any now-orphaned non-direct
// package. It deletes each removed package's files from the install tree
// and its lock entry, and drops direct requirements from the manifest
// (spec §4.9's Uninstall).
func Uninstall(man *manifest.Manifest, lock *lockfile.Lockfile, installRoot string, names []string, autoremove bool) ([]string, error) {
	rdeps := lock.ReverseDependencies()
	toRemove := map[string]bool{}
	var queue []string
	queue = append(queue, names...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if toRemove[n] {
			continue
		}
		toRemove[n] = true
		queue = append(queue, rdeps[n]...)
	}

	if autoremove {
		changed := true
		for changed {
			changed = false
			for _, name := range lock.AllPackageNames() {
				if toRemove[name] || man.IsDirect(name) {
					continue
				}
				orphaned := true
				for _, parent := range rdeps[name] {
					if !toRemove[parent] {
						orphaned = false
						break
					}
				}
				if orphaned && len(rdeps[name]) > 0 {
					toRemove[name] = true
					changed = true
				}
			}
		}
	}

	var removed []string
	for name := range toRemove {
		files := lock.RemovePackage(name)
		for _, rel := range files {
			if err := os.Remove(filepath.Join(installRoot, rel)); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
		}
		man.RemoveDependency(name)
		removed = append(removed, name)
	}
	return removed, nil
}
