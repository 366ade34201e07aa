package editor

import (
	"github.com/go-wc/wcedit/pkg/bump"
	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/common"
	"github.com/go-wc/wcedit/pkg/install"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// DirectoryBaton is the opaque handle open_root/add_directory/
// open_directory return, threaded back into every callback scoped to
// that directory.
type DirectoryBaton struct {
	edit   *Edit
	parent *DirectoryBaton
	name   string // this directory's name within its parent, "" for the anchor
	path   scpath.AbsolutePath
	admin  *wcpath.Admin

	bump *bump.Record
	log  *wclog.Log

	url           string
	added         bool
	baseRevision  int64
	propChanges   []install.PropChange
	copyFromURL   string
	copyFromRev   int64
}

// Path returns the directory's working-copy path.
func (d *DirectoryBaton) Path() scpath.AbsolutePath { return d.path }

// FileBaton is the opaque handle add_file/open_file return.
type FileBaton struct {
	parent *DirectoryBaton
	name   string

	url           string
	added         bool
	baseRevision  int64
	hasNewText    bool
	tmpTextPath   scpath.AbsolutePath
	newChecksum   checksum.Checksum
	propChanges   []install.PropChange
	copyFromURL   string
	copyFromRev   int64
	committedDate *common.Timestamp
}

// Path returns the file's working-copy path.
func (f *FileBaton) Path() scpath.AbsolutePath {
	return f.parent.admin.ChildPath(f.name)
}
