package install

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/merge"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// Handler is the effecting side of one directory's log: it implements
// wclog.Handler, turning each queued command into the filesystem and
// entries-table mutation it describes. One Handler is created per
// directory the edit touches, scoped to that directory's admin area.
type Handler struct {
	admin     *wcpath.Admin
	mergeTool merge.Tool
}

// NewHandler returns a Handler for admin's directory. mergeTool is used
// for the "merge" command; a nil mergeTool defaults to merge.DefaultTool.
func NewHandler(admin *wcpath.Admin, mergeTool merge.Tool) *Handler {
	if mergeTool == nil {
		mergeTool = merge.NewDefaultTool()
	}
	return &Handler{admin: admin, mergeTool: mergeTool}
}

var _ wclog.Handler = (*Handler)(nil)

func (h *Handler) ModifyEntry(attrs map[string]string) error {
	tbl, err := entries.Load(h.admin)
	if err != nil {
		return err
	}
	name := attrs[wclog.AttrName]
	var e *entries.Entry
	if existing, ok := tbl.Get(name); ok {
		e = existing
	} else {
		kind := entries.KindFile
		if name == entries.ThisDir {
			kind = entries.KindDir
		}
		e = &entries.Entry{Name: name, Kind: kind}
	}
	for k, v := range attrs {
		switch k {
		case "revision":
			fmt.Sscanf(v, "%d", &e.Revision)
		case "url":
			e.URL = v
		case "checksum":
			e.Checksum = v
		case "incomplete":
			e.Incomplete = v == "true"
		case "deleted":
			e.Deleted = v == "true"
		case "target_deleted":
			e.TargetDeleted = v == "true"
		case "conflict-old":
			e.ConflictOld = v
		case "conflict-new":
			e.ConflictNew = v
		case "conflict-work":
			e.ConflictWork = v
		}
	}
	tbl.Set(e)
	return tbl.Save(h.admin)
}

func (h *Handler) DeleteEntry(name string) error {
	tbl, err := entries.Load(h.admin)
	if err != nil {
		return err
	}
	tbl.Delete(name)
	return tbl.Save(h.admin)
}

func (h *Handler) CopyAndTranslate(attrs map[string]string) error {
	data, err := fileops.ReadBytes(scpath.AbsolutePath(attrs[wclog.AttrSrc]))
	if err != nil {
		return err
	}
	out := eolTranslate(data, attrs[wclog.AttrEOLStyle])
	mode := os.FileMode(0644)
	if wclog.BoolAttr(attrs[wclog.AttrExecutable]) {
		mode = 0755
	}
	dest := scpath.AbsolutePath(attrs[wclog.AttrDest])
	if err := fileops.EnsureParentDir(dest); err != nil {
		return err
	}
	return fileops.AtomicWrite(dest, out, mode)
}

func (h *Handler) CopyAndDetranslate(attrs map[string]string) error {
	data, err := fileops.ReadBytes(scpath.AbsolutePath(attrs[wclog.AttrSrc]))
	if err != nil {
		return err
	}
	out := eolDetranslate(data, attrs[wclog.AttrEOLStyle])
	dest := scpath.AbsolutePath(attrs[wclog.AttrDest])
	if err := fileops.EnsureParentDir(dest); err != nil {
		return err
	}
	return fileops.AtomicWrite(dest, out, 0644)
}

func (h *Handler) Move(src, dest string) error {
	if err := fileops.EnsureParentDir(scpath.AbsolutePath(dest)); err != nil {
		return err
	}
	if err := os.Rename(src, dest); err != nil {
		if os.IsNotExist(err) {
			// Already moved by a prior, interrupted run; idempotent.
			return nil
		}
		return err
	}
	return nil
}

func (h *Handler) Remove(path string) error {
	return fileops.SafeRemoveString(path)
}

func (h *Handler) SyncFileFlags(attrs map[string]string) error {
	path := attrs[wclog.AttrPath]
	if wclog.BoolAttr(attrs[wclog.AttrReadonly]) {
		if err := os.Chmod(path, 0444); err != nil && !os.IsNotExist(err) {
			return err
		}
	} else if attrs[wclog.AttrExecutable] != "" {
		mode := os.FileMode(0644)
		if wclog.BoolAttr(attrs[wclog.AttrExecutable]) {
			mode = 0755
		}
		if err := os.Chmod(path, mode); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if ts := attrs[wclog.AttrTimestamp]; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			if err := os.Chtimes(path, t, t); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) Merge(attrs map[string]string) error {
	ancestor, err := fileops.ReadBytes(scpath.AbsolutePath(attrs[wclog.AttrLeft]))
	if err != nil {
		return err
	}
	incoming, err := fileops.ReadBytes(scpath.AbsolutePath(attrs[wclog.AttrRight]))
	if err != nil {
		return err
	}
	targetPath := scpath.AbsolutePath(attrs[wclog.AttrTarget])
	local, err := fileops.ReadBytes(targetPath)
	if err != nil {
		return err
	}

	labels := merge.Labels{
		Ancestor: ".merge-left",
		Local:    attrs[wclog.AttrLabelLocal],
		Incoming: attrs[wclog.AttrLabelInc],
	}
	result, err := h.mergeTool.Merge(ancestor, local, incoming, labels)
	if err != nil {
		return err
	}
	if err := fileops.AtomicWrite(targetPath, result.Merged, 0644); err != nil {
		return err
	}
	if !result.Conflicted {
		return nil
	}

	// ConflictOld is the common ancestor, ConflictNew the incoming
	// pristine, and ConflictWork the user's pre-merge copy — the three
	// sidecar files a conflicted merge leaves for manual resolution
	// (§8 scenario 2).
	base := targetPath.String()
	oldPath, newPath, workPath := base+".r-old", base+".r-new", base+".mine"
	if err := fileops.AtomicWrite(scpath.AbsolutePath(oldPath), ancestor, 0644); err != nil {
		return err
	}
	if err := fileops.AtomicWrite(scpath.AbsolutePath(newPath), incoming, 0644); err != nil {
		return err
	}
	if err := fileops.AtomicWrite(scpath.AbsolutePath(workPath), local, 0644); err != nil {
		return err
	}

	tbl, err := entries.Load(h.admin)
	if err != nil {
		return err
	}
	name := filepath.Base(base)
	e, ok := tbl.Get(name)
	if !ok {
		e = &entries.Entry{Name: name, Kind: entries.KindFile}
	}
	e.ConflictOld, e.ConflictNew, e.ConflictWork = oldPath, newPath, workPath
	tbl.Set(e)
	return tbl.Save(h.admin)
}

func (h *Handler) ModifyWcProp(name, propname, propval string) error {
	path := h.admin.WcPropsPath(name)
	current, err := readPropMap(path)
	if err != nil {
		return err
	}
	current[propname] = propval
	return writePropMap(path, current)
}
