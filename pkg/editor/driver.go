// Package editor implements the update/switch tree-delta editor (§4.1):
// the callback-driven state machine a repository-side reporter drives
// to describe how a working copy must change to reach a target
// revision or URL. Each callback returns a baton — an opaque handle to
// the directory or file it just opened — that later callbacks thread
// back in, exactly like the protocol's own batons.
//
// The engine is single-threaded and cooperative per edit: one edit is
// driven by one caller in strict nesting order (open_root, then a tree
// of add/open/close calls, then close_edit), so no locking is needed
// inside this package. Concurrency belongs to the read-side pre-scan
// (pkg/wcscan, pkg/anchor), not to the edit itself.
package editor

import "io"

// Driver is the full set of callbacks a tree-delta edit drives, in the
// order described by §4.1. Two implementations exist: Edit, the real
// engine that installs content via pkg/install and journals via
// pkg/wclog, and CancellingDriver, a wrapper that checks for
// cancellation before delegating to an inner Driver.
type Driver interface {
	// SetTargetRevision announces the revision the edit will bring the
	// working copy to, before any other callback fires.
	SetTargetRevision(revision int64) error

	// OpenRoot opens the anchor directory itself.
	OpenRoot(baseRevision int64) (*DirectoryBaton, error)

	// DeleteEntry schedules name's removal from dir.
	DeleteEntry(dir *DirectoryBaton, name string, revision int64) error

	// AddDirectory opens a newly added child directory of dir named
	// name. copyFromURL is non-empty when the add is really a copy.
	AddDirectory(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*DirectoryBaton, error)

	// OpenDirectory opens an existing child directory of dir named name.
	OpenDirectory(dir *DirectoryBaton, name string, baseRevision int64) (*DirectoryBaton, error)

	// ChangeDirProp queues a property change on dir itself. deleted
	// false reports a set; true reports a delete.
	ChangeDirProp(dir *DirectoryBaton, name, value string, deleted bool) error

	// CloseDirectory finalizes dir: its queued log runs, its entry is
	// updated, and its bump record is marked closed.
	CloseDirectory(dir *DirectoryBaton) error

	// AbsentDirectory records that name is known to exist server-side
	// but the edit has no access to describe it (e.g. authz denial).
	AbsentDirectory(dir *DirectoryBaton, name string) error

	// AddFile opens a newly added child file of dir named name.
	AddFile(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*FileBaton, error)

	// OpenFile opens an existing child file of dir named name.
	OpenFile(dir *DirectoryBaton, name string, baseRevision int64) (*FileBaton, error)

	// ApplyTextDelta returns the writer new fulltext for file should be
	// streamed into, staged under the directory's tmp area. A nil
	// return (with a nil error) means the file's content is unchanged.
	ApplyTextDelta(file *FileBaton, baseChecksum string) (TextDeltaHandler, error)

	// ChangeFileProp queues a property change on file.
	ChangeFileProp(file *FileBaton, name, value string, deleted bool) error

	// CloseFile finalizes file: pkg/install plans its installation,
	// the directory's log absorbs the queued commands, and the
	// directory's bump record is decremented.
	CloseFile(file *FileBaton, textChecksum string) error

	// AbsentFile records that name is known to exist server-side but
	// cannot be described to this edit.
	AbsentFile(dir *DirectoryBaton, name string) error

	// CloseEdit finalizes the whole edit once the root directory has
	// closed, firing the completed notification for the anchor.
	CloseEdit() error

	// AbortEdit cancels an in-progress edit, leaving whatever state has
	// already been journaled (and is therefore replay-safe) in place.
	AbortEdit() error
}

// TextDeltaHandler receives a file's new fulltext as it streams in.
// Close finalizes the staged content and records its checksum on the
// file baton.
type TextDeltaHandler interface {
	io.Writer
	Close() error
}
