package editor

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/go-wc/wcedit/pkg/bump"
	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/common"
	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/index"
	"github.com/go-wc/wcedit/pkg/install"
	"github.com/go-wc/wcedit/pkg/merge"
	"github.com/go-wc/wcedit/pkg/notify"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/go-wc/wcedit/pkg/wcerr"
)

// Options configures one edit.
type Options struct {
	// UseCommitTimes makes installed files carry the commit timestamp
	// rather than the time of installation, mirroring `use-commit-times`
	// in [core] config (§10).
	UseCommitTimes bool

	// MergeTool resolves conflicting text changes; nil selects
	// merge.DefaultTool.
	MergeTool merge.Tool

	// Index is the optional stat-cache consulted for a fast local-mods
	// check before falling back to a checksum comparison.
	Index *index.Index

	// SwitchURL, when non-empty, relocates the anchor (and everything
	// beneath it) to a new repository URL during this edit — the one
	// thing that distinguishes switch from plain update (§3). Empty
	// means "keep whatever URL the anchor's entries record already
	// carries."
	SwitchURL string
}

// Edit is the real engine implementation of Driver: one value per
// update or switch operation, anchored at a single working directory.
// *Edit is caller-owned. CloseEdit clears the edit's transient,
// per-run state (whether the root has been opened, whether the target
// itself was reported deleted, the traversal-info sink) but never
// invalidates or frees the Edit value itself, so a caller may run a
// second edit through the same *Edit afterward.
type Edit struct {
	anchorAdmin *wcpath.Admin
	targetName  string
	options     Options
	notifyFn    notify.Func
	traversal   *notify.TraversalInfo

	targetRevision int64
	rootOpened     bool
	targetDeleted  bool
	root           *DirectoryBaton
}

var _ Driver = (*Edit)(nil)

// New returns an edit anchored at anchorAdmin's directory. targetName,
// when non-empty, scopes the edit to that one child rather than the
// whole anchor directory (§4.5).
func New(anchorAdmin *wcpath.Admin, targetName string, options Options, notifyFn notify.Func) *Edit {
	return &Edit{
		anchorAdmin: anchorAdmin,
		targetName:  targetName,
		options:     options,
		notifyFn:    notifyFn,
		traversal:   notify.NewTraversalInfo(),
	}
}

// Traversal returns the externals-change sink this edit populates.
func (e *Edit) Traversal() *notify.TraversalInfo { return e.traversal }

func (e *Edit) mergeTool() merge.Tool {
	if e.options.MergeTool != nil {
		return e.options.MergeTool
	}
	return merge.NewDefaultTool()
}

func (e *Edit) notify(n notify.Notification) {
	if e.notifyFn != nil {
		e.notifyFn(n)
	}
}

func (e *Edit) SetTargetRevision(revision int64) error {
	e.targetRevision = revision
	return nil
}

func (e *Edit) OpenRoot(baseRevision int64) (*DirectoryBaton, error) {
	if e.rootOpened {
		return nil, wcerr.New(wcerr.CodeUnsupportedFeature, "open_root", "root already opened for this edit", nil)
	}
	admin := e.anchorAdmin
	if err := admin.Ensure(); err != nil {
		return nil, wcerr.IO("open_root", err)
	}

	// A leftover log from a crash mid-update is replayed before any new
	// work begins (§4.2, §8 scenario 6).
	if _, err := wclog.Replay(admin, install.NewHandler(admin, e.mergeTool())); err != nil {
		return nil, wcerr.New(wcerr.CodeIO, "open_root", "replaying pending log", err)
	}

	tbl, err := entries.Load(admin)
	if err != nil {
		return nil, wcerr.IO("open_root", err)
	}
	this := tbl.ThisDir()
	url := this.URL
	if e.options.SwitchURL != "" {
		url = e.options.SwitchURL
	}

	if e.targetName == "" {
		this.Revision = e.targetRevision
		this.URL = url
		this.Incomplete = true
		tbl.SetThisDir(this)
		if err := tbl.Save(admin); err != nil {
			return nil, wcerr.IO("open_root", err)
		}
	}

	db := &DirectoryBaton{
		edit:         e,
		path:         admin.Dir(),
		admin:        admin,
		bump:         bump.NewRoot(admin, e.targetName, e.notifyFn),
		log:          wclog.New(admin),
		baseRevision: baseRevision,
		url:          url,
	}
	e.rootOpened = true
	e.root = db
	return db, nil
}

// childURL joins a parent directory's new URL with a child's basename,
// the same way every directory/file state derives "its new repository
// URL" from its parent's (§3).
func childURL(parentURL, name string) string {
	if parentURL == "" {
		return ""
	}
	return parentURL + "/" + name
}

func (e *Edit) DeleteEntry(dir *DirectoryBaton, name string, revision int64) error {
	admin := dir.admin
	childPath := admin.ChildPath(name)
	tbl, err := entries.Load(admin)
	if err != nil {
		return wcerr.IO("delete_entry", err)
	}
	entry, ok := tbl.Get(name)
	kind := notify.NodeFile
	if ok && entry.Kind == entries.KindDir {
		kind = notify.NodeDir
	}

	if ok && entry.Kind == entries.KindFile && entry.Checksum != "" {
		// §4.3 "deletion path": a file victim carrying local text or
		// property modifications is never silently removed. The check
		// runs before anything is queued onto dir.log, so there is
		// nothing on disk to unwind if it fails — the in-memory log
		// this directory's close_directory will eventually write never
		// sees this entry's removal at all (§7's "catches LeftLocalMod
		// inside do_entry_deletion so it can remove the already-written
		// log before re-raising" has no log to remove here because
		// nothing was written yet).
		if pristine, perr := checksum.Parse(entry.Checksum); perr == nil {
			mods, merr := install.HasLocalMods(childPath, e.options.Index, scpath.RelativePath(name), pristine)
			if merr != nil {
				return wcerr.IO("delete_entry", merr)
			}
			if !mods {
				workingProps, werr := fileops.ReadBytes(admin.PropsPath(name))
				if werr != nil {
					return wcerr.IO("delete_entry", werr)
				}
				baseProps, berr := fileops.ReadBytes(admin.PropBasePath(name))
				if berr != nil {
					return wcerr.IO("delete_entry", berr)
				}
				mods = !bytes.Equal(workingProps, baseProps)
			}
			if mods {
				return wcerr.ObstructedUpdate("delete_entry", childPath.String(), wcerr.LeftLocalMod("delete_entry", childPath.String()))
			}
		}
	}

	dir.log.Remove(childPath.String())
	if kind == notify.NodeDir {
		if e.options.SwitchURL != "" {
			// In switch mode the parent's URL is already rewritten by
			// the time this runs; the child's own administrative state
			// would otherwise survive and make it look versioned under
			// the old URL, so it is torn down immediately rather than
			// deferred to the log (§4.3 "deletion path").
			if err := os.RemoveAll(admin.ChildAdminPath(name).String()); err != nil {
				return wcerr.IO("delete_entry", err)
			}
		} else {
			dir.log.Remove(admin.ChildAdminPath(name).String())
		}
	}

	if name == dir.target() {
		// The edit's target itself never vanishes from the entries
		// table outright: it is recreated as a deleted=true ghost at
		// target_revision so later lookups still know it once existed
		// (§4.3 "deletion path").
		dir.log.ModifyEntry(name, map[string]string{
			"deleted":        "true",
			"target_deleted": "true",
			"revision":       fmt.Sprintf("%d", e.targetRevision),
		})
		dir.targetDeleted()
	} else {
		dir.log.DeleteEntry(name)
	}

	e.notify(notify.Notification{Path: childPath.String(), Action: notify.ActionDelete, Kind: kind, Revision: revision})
	return nil
}

// target reports the bare entry name this directory baton's edit is
// scoped to, when the edit has a single-file/single-entry target
// rather than the whole directory.
func (d *DirectoryBaton) target() string {
	if d.parent == nil {
		return d.edit.targetName
	}
	return ""
}

func (d *DirectoryBaton) targetDeleted() {
	if d.parent == nil {
		d.edit.targetDeleted = true
	}
}

func (e *Edit) AddDirectory(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*DirectoryBaton, error) {
	if wcpath.IsReservedName(name) {
		return nil, wcerr.ObstructedUpdate("add_directory", name, fmt.Errorf("reserved administrative directory name"))
	}
	childPath := dir.admin.ChildPath(name)
	childAdmin := wcpath.New(childPath)
	if exists, _ := childAdmin.Exists(); exists {
		return nil, wcerr.ObstructedUpdate("add_directory", childPath.String(), fmt.Errorf("already versioned"))
	}
	if err := childAdmin.Ensure(); err != nil {
		return nil, wcerr.IO("add_directory", err)
	}

	parentTbl, err := entries.Load(dir.admin)
	if err != nil {
		return nil, wcerr.IO("add_directory", err)
	}
	parentTbl.Set(&entries.Entry{Name: name, Kind: entries.KindDir, Deleted: false})
	if err := parentTbl.Save(dir.admin); err != nil {
		return nil, wcerr.IO("add_directory", err)
	}

	db := &DirectoryBaton{
		edit:        e,
		parent:      dir,
		name:        name,
		path:        childPath,
		admin:       childAdmin,
		bump:        bump.New(dir.bump, childAdmin, e.notifyFn),
		log:         wclog.New(childAdmin),
		url:         childURL(dir.url, name),
		added:       true,
		copyFromURL: copyFromURL,
		copyFromRev: copyFromRevision,
	}
	e.notify(notify.Notification{Path: childPath.String(), Action: notify.ActionAdd, Kind: notify.NodeDir})
	return db, nil
}

func (e *Edit) OpenDirectory(dir *DirectoryBaton, name string, baseRevision int64) (*DirectoryBaton, error) {
	childPath := dir.admin.ChildPath(name)
	childAdmin := wcpath.New(childPath)
	if exists, err := childAdmin.Exists(); err != nil {
		return nil, wcerr.IO("open_directory", err)
	} else if !exists {
		return nil, wcerr.EntryNotFound("open_directory", name)
	}

	if _, err := wclog.Replay(childAdmin, install.NewHandler(childAdmin, e.mergeTool())); err != nil {
		return nil, wcerr.New(wcerr.CodeIO, "open_directory", "replaying pending log", err)
	}

	url := childURL(dir.url, name)
	tbl, err := entries.Load(childAdmin)
	if err != nil {
		return nil, wcerr.IO("open_directory", err)
	}
	this := tbl.ThisDir()
	this.Revision = e.targetRevision
	this.URL = url
	this.Incomplete = true
	tbl.SetThisDir(this)
	if err := tbl.Save(childAdmin); err != nil {
		return nil, wcerr.IO("open_directory", err)
	}

	db := &DirectoryBaton{
		edit:         e,
		parent:       dir,
		name:         name,
		path:         childPath,
		admin:        childAdmin,
		bump:         bump.New(dir.bump, childAdmin, e.notifyFn),
		log:          wclog.New(childAdmin),
		baseRevision: baseRevision,
		url:          url,
	}
	return db, nil
}

func (e *Edit) ChangeDirProp(dir *DirectoryBaton, name, value string, deleted bool) error {
	change := install.PropChange{Name: name, Value: value, Deleted: deleted}
	dir.propChanges = append(dir.propChanges, change)
	if name == "externals" {
		current, _ := entries.Load(dir.admin)
		old := ""
		if current != nil {
			old = current.ThisDir().EntryProps["externals"]
		}
		e.traversal.RecordExternalsChange(dir.path.String(), old, value)
	}
	return nil
}

func (e *Edit) CloseDirectory(dir *DirectoryBaton) error {
	req := install.Request{
		Admin:        dir.admin,
		Name:         entries.ThisDir,
		PropChanges:  convertProps(dir.propChanges),
		NewRevision:  e.targetRevision,
		Index:        e.options.Index,
	}
	outcome, err := install.Plan(req, dir.log)
	if err != nil {
		return wcerr.New(wcerr.CodeIO, "close_directory", "planning directory install", err)
	}

	handler := install.NewHandler(dir.admin, e.mergeTool())
	if err := dir.log.CommitAndRun(handler); err != nil {
		return wcerr.New(wcerr.CodeIO, "close_directory", "running directory log", err)
	}

	if dir.added || outcome.PropState != notify.StateUnchanged {
		action := notify.ActionUpdate
		if dir.added {
			action = notify.ActionAdd
		}
		e.notify(notify.Notification{Path: dir.path.String(), Action: action, Kind: notify.NodeDir, PropState: outcome.PropState, Revision: e.targetRevision})
	}

	if err := dir.bump.MarkClosed(); err != nil {
		return wcerr.New(wcerr.CodeIO, "close_directory", "sweeping entries on completion", err)
	}
	return nil
}

func (e *Edit) AbsentDirectory(dir *DirectoryBaton, name string) error {
	tbl, err := entries.Load(dir.admin)
	if err != nil {
		return wcerr.IO("absent_directory", err)
	}
	tbl.Set(&entries.Entry{Name: name, Kind: entries.KindDir, Incomplete: true})
	return tbl.Save(dir.admin)
}

func (e *Edit) AddFile(dir *DirectoryBaton, name, copyFromURL string, copyFromRevision int64) (*FileBaton, error) {
	if wcpath.IsReservedName(name) {
		return nil, wcerr.ObstructedUpdate("add_file", name, fmt.Errorf("reserved administrative directory name"))
	}
	childPath := dir.admin.ChildPath(name)
	if exists, err := fileops.Exists(childPath); err != nil {
		return nil, wcerr.IO("add_file", err)
	} else if exists {
		return nil, wcerr.ObstructedUpdate("add_file", childPath.String(), fmt.Errorf("already exists"))
	}
	dir.bump.Inc()
	fb := &FileBaton{parent: dir, name: name, url: childURL(dir.url, name), added: true, copyFromURL: copyFromURL, copyFromRev: copyFromRevision}
	e.notify(notify.Notification{Path: childPath.String(), Action: notify.ActionAdd, Kind: notify.NodeFile})
	return fb, nil
}

func (e *Edit) OpenFile(dir *DirectoryBaton, name string, baseRevision int64) (*FileBaton, error) {
	tbl, err := entries.Load(dir.admin)
	if err != nil {
		return nil, wcerr.IO("open_file", err)
	}
	if _, ok := tbl.Get(name); !ok {
		return nil, wcerr.EntryNotFound("open_file", name)
	}
	dir.bump.Inc()
	return &FileBaton{parent: dir, name: name, url: childURL(dir.url, name), baseRevision: baseRevision}, nil
}

func (e *Edit) ApplyTextDelta(file *FileBaton, baseChecksum string) (TextDeltaHandler, error) {
	if baseChecksum != "" {
		tbl, err := entries.Load(file.parent.admin)
		if err != nil {
			return nil, wcerr.IO("apply_textdelta", err)
		}
		if entry, ok := tbl.Get(file.name); ok && entry.Checksum != "" {
			want, werr := checksum.Parse(baseChecksum)
			got, gerr := checksum.Parse(entry.Checksum)
			if werr == nil && gerr == nil && !want.Equal(got) {
				return nil, wcerr.CorruptTextBase("apply_textdelta", file.Path().String(), baseChecksum, entry.Checksum)
			}
		}
	}
	tmpPath := file.parent.admin.TmpTextBasePath(file.name)
	h, err := newDeltaHandler(file, tmpPath)
	if err != nil {
		return nil, wcerr.IO("apply_textdelta", err)
	}
	return h, nil
}

// committedDateEntryProp is the entry-scoped property name that carries
// a file's last-changed-date, per §4.1 change_file_prop: "if
// use_commit_times is on and the name is the committed-date entry
// property, caches the value" so close_file can later stamp the
// installed working file with it instead of the install-time clock.
const committedDateEntryProp = "entry:committed-date"

func (e *Edit) ChangeFileProp(file *FileBaton, name, value string, deleted bool) error {
	file.propChanges = append(file.propChanges, install.PropChange{Name: name, Value: value, Deleted: deleted})
	if e.options.UseCommitTimes && name == committedDateEntryProp && !deleted {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			ts := common.NewTimestampFromTime(t)
			file.committedDate = &ts
		}
	}
	return nil
}

func (e *Edit) CloseFile(file *FileBaton, textChecksum string) error {
	dir := file.parent
	req := install.Request{
		Admin:          dir.admin,
		Name:           file.name,
		HasNewText:     file.hasNewText,
		TmpTextPath:    file.tmpTextPath,
		NewChecksum:    file.newChecksum,
		PropChanges:    convertProps(file.propChanges),
		NewRevision:    e.targetRevision,
		NewURL:         file.url,
		UseCommitTimes: e.options.UseCommitTimes,
		CommittedDate:  file.committedDate,
		Executable:     hasExecutableProp(file.propChanges),
		Index:          e.options.Index,
	}

	if file.hasNewText && textChecksum != "" {
		if parsed, perr := checksum.Parse(textChecksum); perr == nil && !parsed.Equal(file.newChecksum) {
			return wcerr.ChecksumMismatch("close_file", file.Path().String(), textChecksum, file.newChecksum.Hex())
		}
	}

	outcome, err := install.Plan(req, dir.log)
	if err != nil {
		return wcerr.New(wcerr.CodeIO, "close_file", "planning file install", err)
	}

	action := notify.ActionUpdate
	if file.added {
		action = notify.ActionAdd
	}
	e.notify(notify.Notification{
		Path: file.Path().String(), Action: action, Kind: notify.NodeFile,
		ContentState: outcome.ContentState, PropState: outcome.PropState, Revision: e.targetRevision,
	})

	if err := dir.bump.Dec(); err != nil {
		return wcerr.New(wcerr.CodeIO, "close_file", "sweeping parent on completion", err)
	}
	return nil
}

func (e *Edit) AbsentFile(dir *DirectoryBaton, name string) error {
	dir.bump.Inc()
	tbl, err := entries.Load(dir.admin)
	if err != nil {
		return wcerr.IO("absent_file", err)
	}
	tbl.Set(&entries.Entry{Name: name, Kind: entries.KindFile, Incomplete: true})
	if err := tbl.Save(dir.admin); err != nil {
		return err
	}
	if err := dir.bump.Dec(); err != nil {
		return wcerr.New(wcerr.CodeIO, "absent_file", "sweeping parent on completion", err)
	}
	return nil
}

func (e *Edit) CloseEdit() error {
	if e.root != nil {
		e.notify(notify.Notification{Path: e.anchorAdmin.Dir().String(), Action: notify.ActionCompleted, Kind: notify.NodeDir, Revision: e.targetRevision})
	}
	e.rootOpened = false
	e.targetDeleted = false
	e.root = nil
	e.traversal = notify.NewTraversalInfo()
	return nil
}

func (e *Edit) AbortEdit() error {
	e.rootOpened = false
	e.root = nil
	return nil
}

func convertProps(changes []install.PropChange) []install.PropChange {
	return changes
}

func hasExecutableProp(changes []install.PropChange) bool {
	for _, c := range changes {
		if c.Name == "executable" && !c.Deleted {
			return c.Value == "true" || c.Value == "*"
		}
	}
	return false
}

