package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"pkgforge/src/internal/pkgdir"
)

func setupProject(t *testing.T) pkgdir.Project {
	t.Helper()
	root := t.TempDir()
	proj := pkgdir.NewProject(root)
	if err := proj.EnsureContainer(); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	return proj
}

func TestCommitThenResetHardDiscardsChanges(t *testing.T) {
	proj := setupProject(t)
	ws := New(proj)

	trackedFile := filepath.Join(proj.Root, "pkgforge.json")
	if err := os.WriteFile(trackedFile, []byte(`{"name":"demo"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Commit("initial"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := os.WriteFile(trackedFile, []byte(`{"name":"mutated"}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.ResetHard(); err != nil {
		t.Fatalf("ResetHard: %v", err)
	}

	data, err := os.ReadFile(trackedFile)
	if err != nil {
		t.Fatalf("ReadFile after ResetHard: %v", err)
	}
	if string(data) != `{"name":"demo"}` {
		t.Errorf("file contents after ResetHard = %q, want the committed contents", data)
	}
}

func TestEnsureReadyResetsWhenDirty(t *testing.T) {
	proj := setupProject(t)
	ws := New(proj)

	if err := os.WriteFile(filepath.Join(proj.Root, "pkgforge.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Commit("initial"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := proj.MarkDirty(); err != nil {
		t.Fatalf("MarkDirty: %v", err)
	}

	if err := ws.EnsureReady(); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if proj.IsDirty() {
		t.Error("EnsureReady should clear the dirty marker after resetting")
	}
}

func TestCleanRemovesUntrackedFiles(t *testing.T) {
	proj := setupProject(t)
	ws := New(proj)

	if err := os.WriteFile(filepath.Join(proj.Root, "pkgforge.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Commit("initial"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	untracked := filepath.Join(proj.Root, "scratch.tmp")
	if err := os.WriteFile(untracked, []byte("junk"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if _, err := os.Stat(untracked); !os.IsNotExist(err) {
		t.Error("Clean should have removed the untracked file")
	}
}

func TestAmendReplacesLastCommitWithoutGrowingHistory(t *testing.T) {
	proj := setupProject(t)
	ws := New(proj)

	if err := os.WriteFile(filepath.Join(proj.Root, "pkgforge.json"), []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Commit("first"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	idxBefore, err := ws.loadIndex()
	if err != nil {
		t.Fatalf("loadIndex: %v", err)
	}

	if err := os.WriteFile(filepath.Join(proj.Root, "pkgforge.json"), []byte(`{"v":2}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := ws.Amend(); err != nil {
		t.Fatalf("Amend: %v", err)
	}

	idxAfter, err := ws.loadIndex()
	if err != nil {
		t.Fatalf("loadIndex: %v", err)
	}
	if len(idxAfter.Entries) != len(idxBefore.Entries) {
		t.Errorf("Amend changed the entry count: before=%d after=%d", len(idxBefore.Entries), len(idxAfter.Entries))
	}
}
