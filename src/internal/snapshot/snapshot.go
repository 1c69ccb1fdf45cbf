// Package snapshot implements the project's version-control workspace API
// (spec §6): EnsureReady, Commit, Amend, ResetHard, Clean. The core never
// reads snapshot contents directly — it only commands these five
// operations, framing every transaction so a failure leaves no
// half-installed state.
//
// Grounded on aaravmaloo-xe/src/internal/core/snapshot.go's zip-based
// CreateSnapshot (kept: archive/zip, directory-walk-and-zip shape) with
// RestoreSnapshot implemented (previously a stub that always errored) and generalized
// from a home-directory backup tool into the 5-operation contract spec.md
// §6 names, using github.com/google/uuid for snapshot identifiers.
package snapshot

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pkgforge/src/internal/pkgdir"
)

// Workspace is the snapshot API bound to one project's container.
type Workspace struct {
	project pkgdir.Project
}

// New returns a Workspace rooted at project.
func New(project pkgdir.Project) *Workspace { return &Workspace{project: project} }

type record struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Archive string `json:"archive"`
}

type index struct {
	Entries []record `json:"entries"`
}

func (w *Workspace) indexPath() string { return filepath.Join(w.project.SnapshotDir(), "index.json") }

func (w *Workspace) loadIndex() (index, error) {
	data, err := os.ReadFile(w.indexPath())
	if os.IsNotExist(err) {
		return index{}, nil
	}
	if err != nil {
		return index{}, err
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return index{}, err
	}
	return idx, nil
}

func (w *Workspace) saveIndex(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(w.indexPath(), data, 0o644)
}

// EnsureReady must succeed before a transaction starts: if the dirty
// marker is present (a prior transaction did not complete), ResetHard is
// called first, per spec §5's shared-resource policy.
func (w *Workspace) EnsureReady() error {
	if err := w.project.EnsureContainer(); err != nil {
		return err
	}
	if w.project.IsDirty() {
		if err := w.ResetHard(); err != nil {
			return fmt.Errorf("ensure_ready: reset_hard after dirty marker: %w", err)
		}
		if err := w.project.ClearDirty(); err != nil {
			return err
		}
	}
	return nil
}

// Commit snapshots the current project tree and appends it to the
// history with message.
func (w *Workspace) Commit(message string) error {
	idx, err := w.loadIndex()
	if err != nil {
		return err
	}
	rec, err := w.writeArchive(message)
	if err != nil {
		return err
	}
	idx.Entries = append(idx.Entries, rec)
	return w.saveIndex(idx)
}

// Amend folds the current project tree into the previous commit instead
// of appending a new one.
func (w *Workspace) Amend() error {
	idx, err := w.loadIndex()
	if err != nil {
		return err
	}
	if len(idx.Entries) == 0 {
		return w.Commit("amend")
	}
	last := idx.Entries[len(idx.Entries)-1]
	rec, err := w.writeArchive(last.Message)
	if err != nil {
		return err
	}
	_ = os.Remove(filepath.Join(w.project.SnapshotDir(), last.Archive))
	idx.Entries[len(idx.Entries)-1] = rec
	return w.saveIndex(idx)
}

// ResetHard restores the project tree to the most recent commit,
// discarding any changes made since.
func (w *Workspace) ResetHard() error {
	idx, err := w.loadIndex()
	if err != nil {
		return err
	}
	if len(idx.Entries) == 0 {
		return nil
	}
	last := idx.Entries[len(idx.Entries)-1]
	if err := w.clearTree(); err != nil {
		return err
	}
	return unzipInto(filepath.Join(w.project.SnapshotDir(), last.Archive), w.project.Root)
}

// Clean deletes untracked files: anything present in the project tree
// that the most recent commit did not record.
func (w *Workspace) Clean() error {
	idx, err := w.loadIndex()
	if err != nil {
		return err
	}
	if len(idx.Entries) == 0 {
		return nil
	}
	last := idx.Entries[len(idx.Entries)-1]
	tracked, err := archiveMembers(filepath.Join(w.project.SnapshotDir(), last.Archive))
	if err != nil {
		return err
	}
	return filepath.Walk(w.project.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == w.project.Root {
			return nil
		}
		rel, err := filepath.Rel(w.project.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if w.isSnapshotPath(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := tracked[rel]; !ok {
			return os.Remove(path)
		}
		return nil
	})
}

func (w *Workspace) isSnapshotPath(rel string) bool {
	snapRel, err := filepath.Rel(w.project.Root, w.project.SnapshotDir())
	if err != nil {
		return false
	}
	snapRel = filepath.ToSlash(snapRel)
	return rel == snapRel || strings.HasPrefix(rel, snapRel+"/")
}

func (w *Workspace) clearTree() error {
	entries, err := os.ReadDir(w.project.Root)
	if err != nil {
		return err
	}
	snapDirName := filepath.Base(w.project.ContainerDir())
	for _, e := range entries {
		if e.Name() == snapDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.project.Root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) writeArchive(message string) (record, error) {
	id := uuid.New().String()
	archiveName := id + ".zip"
	dest := filepath.Join(w.project.SnapshotDir(), archiveName)
	exclude := filepath.Base(w.project.ContainerDir())
	if err := zipDirectory(w.project.Root, dest, []string{exclude}); err != nil {
		return record{}, err
	}
	return record{ID: id, Message: message, Archive: archiveName}, nil
}

func zipDirectory(source, target string, exclude []string) error {
	zipfile, err := os.Create(target)
	if err != nil {
		return err
	}
	defer zipfile.Close()

	archive := zip.NewWriter(zipfile)
	defer archive.Close()

	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == source {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, ex := range exclude {
			if rel == ex || strings.HasPrefix(rel, ex+"/") {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = rel
		if info.IsDir() {
			header.Name += "/"
		} else {
			header.Method = zip.Deflate
		}

		writer, err := archive.CreateHeader(header)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}

func unzipInto(archivePath, dest string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		out.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func archiveMembers(archivePath string) (map[string]struct{}, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	members := make(map[string]struct{}, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members[f.Name] = struct{}{}
	}
	return members, nil
}
