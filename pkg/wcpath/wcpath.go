// Package wcpath resolves the administrative-directory path family the
// update/switch engine uses under each versioned directory: the entries
// file, the pending log, the scratch and pristine text-base areas, and
// the property stores (§6). Unlike the teacher's single-root
// scpath.SourceDir layout, an Admin is rooted at the versioned directory
// it administers, since the editor opens one administrative area per
// directory it touches.
package wcpath

import (
	"os"
	"path/filepath"

	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
)

// AdminDirName is the reserved directory name every versioned directory
// carries its administrative state under. add_directory rejects any
// incoming entry with this basename (§4.1).
const AdminDirName = ".wcadm"

// Admin is the administrative-area path family for one versioned
// directory.
type Admin struct {
	dir scpath.AbsolutePath
}

// New builds the administrative-area handle for dir. It does not touch
// the filesystem; call Ensure to materialize the area.
func New(dir scpath.AbsolutePath) *Admin {
	return &Admin{dir: dir}
}

// Dir returns the versioned directory this admin area belongs to.
func (a *Admin) Dir() scpath.AbsolutePath {
	return a.dir
}

// Base returns the versioned directory's basename.
func (a *Admin) Base() string {
	return a.dir.Base()
}

// AdminPath returns the administrative directory itself.
func (a *Admin) AdminPath() scpath.AbsolutePath {
	return a.dir.Join(AdminDirName)
}

// EntriesPath returns the per-directory entries file (§6).
func (a *Admin) EntriesPath() scpath.AbsolutePath {
	return a.AdminPath().Join("entries")
}

// LogPath returns the pending journal file, present only mid-mutation.
func (a *Admin) LogPath() scpath.AbsolutePath {
	return a.AdminPath().Join("log")
}

// TmpDir returns the scratch area log commands stage new content under
// before it is moved into its final location.
func (a *Admin) TmpDir() scpath.AbsolutePath {
	return a.AdminPath().Join("tmp")
}

// TmpTextBasePath returns the scratch pristine path apply_textdelta
// writes an incoming fulltext to before it is installed.
func (a *Admin) TmpTextBasePath(name string) scpath.AbsolutePath {
	return a.TmpDir().Join("text-base", name+".svn-base")
}

// TextBasePath returns the live, read-only-after-install pristine path.
func (a *Admin) TextBasePath(name string) scpath.AbsolutePath {
	return a.AdminPath().Join("text-base", name+".svn-base")
}

// PropsPath returns the working property store for name (empty name
// addresses the directory's own properties, mirroring entries.ThisDir).
func (a *Admin) PropsPath(name string) scpath.AbsolutePath {
	if name == "" {
		name = "dir-props"
	}
	return a.AdminPath().Join("props", name)
}

// PropBasePath returns the pristine property store for name.
func (a *Admin) PropBasePath(name string) scpath.AbsolutePath {
	if name == "" {
		name = "dir-prop-base"
	}
	return a.AdminPath().Join("prop-base", name)
}

// WcPropsPath returns the wc-prop (server-opaque) store for name.
func (a *Admin) WcPropsPath(name string) scpath.AbsolutePath {
	if name == "" {
		name = "dir-wcprops"
	}
	return a.AdminPath().Join("wcprops", name)
}

// ChildPath returns the working-copy path of a child of this directory.
func (a *Admin) ChildPath(name string) scpath.AbsolutePath {
	return a.dir.Join(name)
}

// ChildAdminPath returns the administrative directory a child directory
// named name would carry, used by the switch-mode deletion path to strip
// a victim subdirectory's own versioning state directly (§4.3).
func (a *Admin) ChildAdminPath(name string) scpath.AbsolutePath {
	return a.ChildPath(name).Join(AdminDirName)
}

// Ensure creates the administrative directory and its fixed subdirectory
// layout, tolerating a directory that already exists.
func (a *Admin) Ensure() error {
	dirs := []scpath.AbsolutePath{
		a.AdminPath(),
		a.TmpDir(),
		a.TmpDir().Join("text-base"),
		a.AdminPath().Join("text-base"),
		a.AdminPath().Join("props"),
		a.AdminPath().Join("prop-base"),
		a.AdminPath().Join("wcprops"),
	}
	for _, d := range dirs {
		if err := fileops.EnsureDir(d); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether dir is already versioned (carries an
// administrative directory).
func (a *Admin) Exists() (bool, error) {
	return fileops.IsDirectory(a.AdminPath())
}

// IsReservedName reports whether name collides with the administrative
// directory's reserved basename (§4.1 add_directory obstruction rule).
func IsReservedName(name string) bool {
	return filepath.Clean(name) == AdminDirName
}

// Lock is an exclusive hold on one directory's administrative area,
// generalizing the teacher's single-root index.lock to one lock file per
// administrative directory (§5).
type Lock struct {
	path string
	file *os.File
}

// Lock acquires the exclusive lock on this admin area. Only one edit may
// hold it at a time; a second attempt fails with os.IsExist.
func (a *Admin) Lock() (*Lock, error) {
	lockPath := a.AdminPath().Join("lock").String()
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Lock{path: lockPath, file: file}, nil
}

// Release releases the lock, closing and removing the lock file.
func (l *Lock) Release() error {
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
