// Package bump implements the bump-record reference-counting protocol
// that drives directory completion (§4.4): each directory tracks how
// many of its children are still open, and a directory is not "done" —
// does not fire its completed notification, and does not let its own
// closure propagate to its parent — until its own close_directory has
// been seen AND every child it ever saw opened has since closed.
package bump

import (
	"fmt"

	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/notify"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// Record is one directory's completion tracker. A Record is created when
// the directory is opened (open_root, add_directory, or open_directory)
// and is shared by every child baton opened beneath it; the child calls
// Inc when it opens and Dec when it closes.
type Record struct {
	parent     *Record
	admin      *wcpath.Admin
	isRoot     bool
	targetName string
	notifyFn   notify.Func

	refcount int
	closed   bool
	done     bool
}

// NewRoot creates the bump record for the anchor directory itself, which
// has no parent to notify when it completes.
func NewRoot(admin *wcpath.Admin, targetName string, notifyFn notify.Func) *Record {
	return &Record{admin: admin, isRoot: true, targetName: targetName, notifyFn: notifyFn, refcount: 1}
}

// New creates the bump record for a child directory opened beneath
// parent. The new record starts with a refcount of 1, representing the
// directory's own eventual close_directory call; each child the
// directory opens adds one more via Inc.
func New(parent *Record, admin *wcpath.Admin, notifyFn notify.Func) *Record {
	r := &Record{parent: parent, admin: admin, notifyFn: notifyFn, refcount: 1}
	parent.inc()
	return r
}

// Inc records that one more child of this directory has been opened
// (add_file, open_file, add_directory, or open_directory).
func (r *Record) Inc() {
	r.inc()
}

func (r *Record) inc() {
	r.refcount++
}

// MarkClosed records that this directory's own close_directory has been
// seen, releasing the reference New/NewRoot took for it. It may still be
// incomplete if children are outstanding; MarkClosed attempts completion
// immediately in case none are.
func (r *Record) MarkClosed() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.refcount--
	return r.tryComplete()
}

// Dec records that one child of this directory has closed (close_file or
// close_directory on that child), releasing the reference that child
// held. It attempts completion after the decrement.
func (r *Record) Dec() error {
	r.refcount--
	return r.tryComplete()
}

// IsDone reports whether this directory has fully completed: its own
// close_directory has been seen and every child it tracked has closed.
func (r *Record) IsDone() bool {
	return r.done
}

// tryComplete implements §4.4: once a directory's refcount reaches zero
// and its own close_directory has been seen, its entries table is swept
// (clearing Incomplete and dropping deleted/vanished children), the
// completion notification fires, and the decrement propagates upward to
// the parent so the whole ancestor chain unwinds in strict parent order.
func (r *Record) tryComplete() error {
	if r.done || !r.closed || r.refcount != 0 {
		return nil
	}
	r.done = true

	if r.admin != nil {
		if err := r.sweep(); err != nil {
			return err
		}
	}

	if r.notifyFn != nil {
		kind := notify.NodeDir
		path := ""
		if r.admin != nil {
			path = r.admin.Dir().String()
		}
		r.notifyFn(notify.Notification{Path: path, Action: notify.ActionCompleted, Kind: kind})
	}
	if r.parent != nil {
		return r.parent.Dec()
	}
	return nil
}

// sweep performs the §4.4 entries-table cleanup for this directory: load
// the table, restrict to the single target entry when this is the root
// record of a target-scoped edit, drop deleted/vanished children, clear
// Incomplete on THIS_DIR, and write the result back atomically.
func (r *Record) sweep() error {
	tbl, err := entries.Load(r.admin)
	if err != nil {
		return fmt.Errorf("bump: load entries for sweep: %w", err)
	}

	restrict := ""
	if r.isRoot {
		restrict = r.targetName
	}

	result, err := tbl.Sweep(restrict, func(name string) (bool, error) {
		return fileops.IsDirectory(r.admin.ChildPath(name))
	})
	if err != nil {
		return err
	}

	if err := tbl.Save(r.admin); err != nil {
		return fmt.Errorf("bump: save swept entries: %w", err)
	}

	if r.notifyFn != nil {
		for _, name := range result.RemovedMissingDirs {
			r.notifyFn(notify.Notification{
				Path:   r.admin.ChildPath(name).String(),
				Action: notify.ActionDelete,
				Kind:   notify.NodeDir,
			})
		}
	}
	return nil
}
