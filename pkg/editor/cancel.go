package editor

import "github.com/go-wc/wcedit/pkg/wcerr"

// CancelFunc is polled between callbacks; a non-nil return aborts the
// edit with that error wrapped as wcerr.Cancelled.
type CancelFunc func() error

// CancellingDriver wraps an inner Driver and checks CancelFunc before
// every delegated call, mirroring the protocol's own cancellation
// editor: the inner engine and the cancellation wrapper are two
// separate Driver implementations composed by the caller (§9).
type CancellingDriver struct {
	inner  Driver
	cancel CancelFunc
}

var _ Driver = (*CancellingDriver)(nil)

// NewCancellingDriver wraps inner with a cancellation check. A nil
// cancel disables the check, making this a transparent pass-through.
func NewCancellingDriver(inner Driver, cancel CancelFunc) *CancellingDriver {
	return &CancellingDriver{inner: inner, cancel: cancel}
}

func (c *CancellingDriver) checkCancelled(op string) error {
	if c.cancel == nil {
		return nil
	}
	if err := c.cancel(); err != nil {
		return wcerr.New(wcerr.CodeCancelled, op, "operation cancelled", err)
	}
	return nil
}

func (c *CancellingDriver) SetTargetRevision(revision int64) error {
	if err := c.checkCancelled("set_target_revision"); err != nil {
		return err
	}
	return c.inner.SetTargetRevision(revision)
}

func (c *CancellingDriver) OpenRoot(baseRevision int64) (*DirectoryBaton, error) {
	if err := c.checkCancelled("open_root"); err != nil {
		return nil, err
	}
	return c.inner.OpenRoot(baseRevision)
}

func (c *CancellingDriver) DeleteEntry(dir *DirectoryBaton, name string, revision int64) error {
	if err := c.checkCancelled("delete_entry"); err != nil {
		return err
	}
	return c.inner.DeleteEntry(dir, name, revision)
}

func (c *CancellingDriver) AddDirectory(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*DirectoryBaton, error) {
	if err := c.checkCancelled("add_directory"); err != nil {
		return nil, err
	}
	return c.inner.AddDirectory(dir, name, copyFromURL, copyFromRevision)
}

func (c *CancellingDriver) OpenDirectory(dir *DirectoryBaton, name string, baseRevision int64) (*DirectoryBaton, error) {
	if err := c.checkCancelled("open_directory"); err != nil {
		return nil, err
	}
	return c.inner.OpenDirectory(dir, name, baseRevision)
}

func (c *CancellingDriver) ChangeDirProp(dir *DirectoryBaton, name, value string, deleted bool) error {
	if err := c.checkCancelled("change_dir_prop"); err != nil {
		return err
	}
	return c.inner.ChangeDirProp(dir, name, value, deleted)
}

func (c *CancellingDriver) CloseDirectory(dir *DirectoryBaton) error {
	if err := c.checkCancelled("close_directory"); err != nil {
		return err
	}
	return c.inner.CloseDirectory(dir)
}

func (c *CancellingDriver) AbsentDirectory(dir *DirectoryBaton, name string) error {
	if err := c.checkCancelled("absent_directory"); err != nil {
		return err
	}
	return c.inner.AbsentDirectory(dir, name)
}

func (c *CancellingDriver) AddFile(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*FileBaton, error) {
	if err := c.checkCancelled("add_file"); err != nil {
		return nil, err
	}
	return c.inner.AddFile(dir, name, copyFromURL, copyFromRevision)
}

func (c *CancellingDriver) OpenFile(dir *DirectoryBaton, name string, baseRevision int64) (*FileBaton, error) {
	if err := c.checkCancelled("open_file"); err != nil {
		return nil, err
	}
	return c.inner.OpenFile(dir, name, baseRevision)
}

func (c *CancellingDriver) ApplyTextDelta(file *FileBaton, baseChecksum string) (TextDeltaHandler, error) {
	if err := c.checkCancelled("apply_textdelta"); err != nil {
		return nil, err
	}
	return c.inner.ApplyTextDelta(file, baseChecksum)
}

func (c *CancellingDriver) ChangeFileProp(file *FileBaton, name, value string, deleted bool) error {
	if err := c.checkCancelled("change_file_prop"); err != nil {
		return err
	}
	return c.inner.ChangeFileProp(file, name, value, deleted)
}

func (c *CancellingDriver) CloseFile(file *FileBaton, textChecksum string) error {
	if err := c.checkCancelled("close_file"); err != nil {
		return err
	}
	return c.inner.CloseFile(file, textChecksum)
}

func (c *CancellingDriver) AbsentFile(dir *DirectoryBaton, name string) error {
	if err := c.checkCancelled("absent_file"); err != nil {
		return err
	}
	return c.inner.AbsentFile(dir, name)
}

func (c *CancellingDriver) CloseEdit() error {
	// CloseEdit always runs, even mid-cancellation, so any already
	// journaled state finishes settling rather than being abandoned.
	return c.inner.CloseEdit()
}

func (c *CancellingDriver) AbortEdit() error {
	return c.inner.AbortEdit()
}
