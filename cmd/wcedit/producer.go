package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-wc/wcedit/pkg/editor"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// applySnapshot drives drv through the tree rooted at fromDir as the
// edit-stream producer. The wire protocol that would normally walk a
// repository revision and call into a Driver is a separate collaborator
// this engine only consumes (§2); here a locally staged directory plays
// that role, so `wcedit update`/`switch` have something concrete to
// drive end to end. It computes an add or open for every entry fromDir
// holds and, in every directory it visits, a delete_entry for each
// tracked child missing from the matching snapshot directory, all
// inside the usual open_root/close_edit bracket.
func applySnapshot(drv editor.Driver, root *editor.DirectoryBaton, fromDir string, targetRevision int64) error {
	if err := syncDirectory(drv, root, fromDir, targetRevision); err != nil {
		return err
	}
	if err := drv.CloseDirectory(root); err != nil {
		return fmt.Errorf("close_directory (root): %w", err)
	}
	return nil
}

func syncDirectory(drv editor.Driver, dir *editor.DirectoryBaton, fromDir string, targetRevision int64) error {
	currentAdmin := wcpath.New(dir.Path())
	currentTbl, err := entries.Load(currentAdmin)
	if err != nil {
		return fmt.Errorf("load entries for %s: %w", dir.Path(), err)
	}

	fromEntries, err := os.ReadDir(fromDir)
	if err != nil {
		return fmt.Errorf("read snapshot dir %s: %w", fromDir, err)
	}
	sort.Slice(fromEntries, func(i, j int) bool { return fromEntries[i].Name() < fromEntries[j].Name() })

	seen := make(map[string]bool, len(fromEntries))
	for _, fi := range fromEntries {
		name := fi.Name()
		if wcpath.IsReservedName(name) {
			continue
		}
		seen[name] = true
		srcPath := fromDir + string(os.PathSeparator) + name

		if fi.IsDir() {
			if err := syncOneDirectory(drv, dir, currentTbl, name, srcPath, targetRevision); err != nil {
				return err
			}
			continue
		}
		if err := syncOneFile(drv, dir, currentTbl, name, srcPath, fi, targetRevision); err != nil {
			return err
		}
	}

	for _, name := range currentTbl.Names() {
		if seen[name] {
			continue
		}
		if err := drv.DeleteEntry(dir, name, targetRevision); err != nil {
			return fmt.Errorf("delete_entry %s: %w", name, err)
		}
	}
	return nil
}

func syncOneDirectory(drv editor.Driver, dir *editor.DirectoryBaton, currentTbl *entries.Table, name, srcPath string, targetRevision int64) error {
	var child *editor.DirectoryBaton
	var err error
	if existing, ok := currentTbl.Get(name); ok && existing.Kind == entries.KindDir {
		child, err = drv.OpenDirectory(dir, name, existing.Revision)
	} else {
		child, err = drv.AddDirectory(dir, name, "", 0)
	}
	if err != nil {
		return fmt.Errorf("open/add_directory %s: %w", name, err)
	}
	if err := syncDirectory(drv, child, srcPath, targetRevision); err != nil {
		return err
	}
	return drv.CloseDirectory(child)
}

func syncOneFile(drv editor.Driver, dir *editor.DirectoryBaton, currentTbl *entries.Table, name, srcPath string, fi os.DirEntry, targetRevision int64) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read snapshot file %s: %w", srcPath, err)
	}

	var file *editor.FileBaton
	existing, ok := currentTbl.Get(name)
	if ok && existing.Kind == entries.KindFile {
		file, err = drv.OpenFile(dir, name, existing.Revision)
	} else {
		file, err = drv.AddFile(dir, name, "", 0)
	}
	if err != nil {
		return fmt.Errorf("open/add_file %s: %w", name, err)
	}

	if info, statErr := fi.Info(); statErr == nil && info.Mode()&0111 != 0 {
		if err := drv.ChangeFileProp(file, "executable", "*", false); err != nil {
			return fmt.Errorf("change_file_prop executable %s: %w", name, err)
		}
	}

	h, err := drv.ApplyTextDelta(file, "")
	if err != nil {
		return fmt.Errorf("apply_textdelta %s: %w", name, err)
	}
	if _, werr := h.Write(data); werr != nil {
		h.Close()
		return fmt.Errorf("write %s: %w", name, werr)
	}
	if err := h.Close(); err != nil {
		return fmt.Errorf("close delta handler %s: %w", name, err)
	}

	return drv.CloseFile(file, "")
}
