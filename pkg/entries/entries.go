// Package entries implements the per-directory entries file (§6): the
// authoritative metadata table for a directory's own record and each of
// its children, loaded tolerant-of-missing and saved atomically, in the
// same load/save discipline as the teacher's pkg/config.Store.
package entries

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-wc/wcedit/pkg/common"
	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// ThisDir is the key under which a directory's own entry is stored,
// distinguishing it from its children's entries.
const ThisDir = ""

// Kind is the node kind an entry describes.
type Kind int

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Schedule is the pending-change classification carried on an entry
// between its creation by add_directory/add_file/delete_entry and the
// point the edit commits that change.
type Schedule int

const (
	ScheduleNormal Schedule = iota
	ScheduleAdd
	ScheduleDelete
)

func (s Schedule) String() string {
	switch s {
	case ScheduleAdd:
		return "add"
	case ScheduleDelete:
		return "delete"
	default:
		return "normal"
	}
}

// Entry is one child's (or THIS_DIR's) metadata record.
type Entry struct {
	Name          string
	Kind          Kind
	Revision      int64
	URL           string
	Deleted       bool
	Incomplete    bool
	Schedule      Schedule
	Checksum      string
	TextTime      common.Timestamp
	PropTime      common.Timestamp
	CommittedDate *common.Timestamp
	TargetDeleted bool

	// ConflictOld/New/Work record the three sidecar files a conflicted
	// three-way merge leaves behind (§8 scenario 2): the ancestor
	// pristine, the incoming pristine, and the user's pre-merge copy.
	ConflictOld  string
	ConflictNew  string
	ConflictWork string

	// EntryProps holds any entry-scoped property not already modelled
	// as a first-class field above, keyed by its full "wc:entry:*" name.
	EntryProps map[string]string
}

// Clone returns a deep copy, matching config.ConfigEntry.Clone's
// discipline of never handing out aliased mutable state.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.CommittedDate != nil {
		cd := *e.CommittedDate
		c.CommittedDate = &cd
	}
	if e.EntryProps != nil {
		c.EntryProps = make(map[string]string, len(e.EntryProps))
		for k, v := range e.EntryProps {
			c.EntryProps[k] = v
		}
	}
	return &c
}

// HasConflict reports whether a three-way merge left this entry in a
// conflicted state.
func (e *Entry) HasConflict() bool {
	return e.ConflictWork != ""
}

// Table is one directory's entries file: its own THIS_DIR record plus
// one record per child.
type Table struct {
	entries map[string]*Entry
}

// entryJSON is the on-disk shape, JSON like the rest of this toolkit's
// structured files (config.Store, index serialization discipline).
type entryJSON struct {
	Name          string            `json:"name"`
	Kind          string            `json:"kind"`
	Revision      int64             `json:"revision"`
	URL           string            `json:"url,omitempty"`
	Deleted       bool              `json:"deleted,omitempty"`
	Incomplete    bool              `json:"incomplete,omitempty"`
	Schedule      string            `json:"schedule,omitempty"`
	Checksum      string            `json:"checksum,omitempty"`
	TextTimeSec   uint32            `json:"text_time_sec,omitempty"`
	TextTimeNsec  uint32            `json:"text_time_nsec,omitempty"`
	PropTimeSec   uint32            `json:"prop_time_sec,omitempty"`
	PropTimeNsec  uint32            `json:"prop_time_nsec,omitempty"`
	CommittedSec  *uint32           `json:"committed_sec,omitempty"`
	CommittedNsec uint32            `json:"committed_nsec,omitempty"`
	TargetDeleted bool              `json:"target_deleted,omitempty"`
	ConflictOld   string            `json:"conflict_old,omitempty"`
	ConflictNew   string            `json:"conflict_new,omitempty"`
	ConflictWork  string            `json:"conflict_work,omitempty"`
	EntryProps    map[string]string `json:"entry_props,omitempty"`
}

type fileFormat struct {
	Version int                  `json:"version"`
	Entries map[string]entryJSON `json:"entries"`
}

const currentVersion = 1

func toJSON(e *Entry) entryJSON {
	j := entryJSON{
		Name:         e.Name,
		Kind:         e.Kind.String(),
		Revision:     e.Revision,
		URL:          e.URL,
		Deleted:      e.Deleted,
		Incomplete:   e.Incomplete,
		Schedule:     e.Schedule.String(),
		Checksum:     e.Checksum,
		TextTimeSec:  e.TextTime.Seconds,
		TextTimeNsec: e.TextTime.Nanoseconds,
		PropTimeSec:  e.PropTime.Seconds,
		PropTimeNsec: e.PropTime.Nanoseconds,
		TargetDeleted: e.TargetDeleted,
		ConflictOld:  e.ConflictOld,
		ConflictNew:  e.ConflictNew,
		ConflictWork: e.ConflictWork,
		EntryProps:   e.EntryProps,
	}
	if e.CommittedDate != nil {
		sec := e.CommittedDate.Seconds
		j.CommittedSec = &sec
		j.CommittedNsec = e.CommittedDate.Nanoseconds
	}
	return j
}

func fromJSON(j entryJSON) *Entry {
	e := &Entry{
		Name:          j.Name,
		Revision:      j.Revision,
		URL:           j.URL,
		Deleted:       j.Deleted,
		Incomplete:    j.Incomplete,
		Checksum:      j.Checksum,
		TextTime:      common.NewTimestamp(j.TextTimeSec, j.TextTimeNsec),
		PropTime:      common.NewTimestamp(j.PropTimeSec, j.PropTimeNsec),
		TargetDeleted: j.TargetDeleted,
		ConflictOld:   j.ConflictOld,
		ConflictNew:   j.ConflictNew,
		ConflictWork:  j.ConflictWork,
		EntryProps:    j.EntryProps,
	}
	if j.Kind == "dir" {
		e.Kind = KindDir
	}
	switch j.Schedule {
	case "add":
		e.Schedule = ScheduleAdd
	case "delete":
		e.Schedule = ScheduleDelete
	}
	if j.CommittedSec != nil {
		ts := common.NewTimestamp(*j.CommittedSec, j.CommittedNsec)
		e.CommittedDate = &ts
	}
	return e
}

// Load reads an admin directory's entries file, returning an empty table
// (seeded with a zero-value THIS_DIR entry) if the file does not exist
// yet — the table for a directory that has just been created by
// add_directory or Admin.Ensure.
func Load(admin *wcpath.Admin) (*Table, error) {
	t := &Table{entries: map[string]*Entry{ThisDir: {Name: ThisDir, Kind: KindDir}}}

	data, err := fileops.ReadBytes(admin.EntriesPath())
	if err != nil {
		return nil, fmt.Errorf("entries: read: %w", err)
	}
	if len(data) == 0 {
		return t, nil
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("entries: parse %s: %w", admin.EntriesPath(), err)
	}
	t.entries = make(map[string]*Entry, len(ff.Entries))
	for name, j := range ff.Entries {
		j.Name = name
		t.entries[name] = fromJSON(j)
	}
	if _, ok := t.entries[ThisDir]; !ok {
		t.entries[ThisDir] = &Entry{Name: ThisDir, Kind: KindDir}
	}
	return t, nil
}

// Save writes the table atomically, matching the fileops.AtomicWrite
// discipline config.Store.Save uses for its own structured file.
func (t *Table) Save(admin *wcpath.Admin) error {
	ff := fileFormat{Version: currentVersion, Entries: make(map[string]entryJSON, len(t.entries))}
	for name, e := range t.entries {
		ff.Entries[name] = toJSON(e)
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("entries: marshal: %w", err)
	}
	if err := fileops.EnsureParentDir(admin.EntriesPath()); err != nil {
		return err
	}
	return fileops.AtomicWrite(admin.EntriesPath(), data, 0644)
}

// Get returns the entry for name (use ThisDir for the directory's own
// record), and whether it exists.
func (t *Table) Get(name string) (*Entry, bool) {
	e, ok := t.entries[name]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Set inserts or replaces the entry for e.Name.
func (t *Table) Set(e *Entry) {
	t.entries[e.Name] = e.Clone()
}

// Delete removes name's entry, and is a no-op if absent.
func (t *Table) Delete(name string) {
	delete(t.entries, name)
}

// ThisDir returns the directory's own entry, creating a default one if
// somehow absent.
func (t *Table) ThisDir() *Entry {
	e, ok := t.entries[ThisDir]
	if !ok {
		e = &Entry{Name: ThisDir, Kind: KindDir}
	}
	return e.Clone()
}

// SetThisDir replaces the directory's own entry.
func (t *Table) SetThisDir(e *Entry) {
	e.Name = ThisDir
	t.Set(e)
}

// Names returns the sorted child names (excluding THIS_DIR).
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		if name == ThisDir {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SweepResult reports what Sweep removed, so the caller can emit the
// deletion notifications §4.4 requires for missing child directories.
type SweepResult struct {
	RemovedMissingDirs []string
	RemovedDeleted     []string
}

// Sweep performs the §4.4 directory-completion pass: clear Incomplete on
// THIS_DIR, then drop every entry that is either scheduled for deletion
// (or already marked Deleted) or a child directory this edit expected to
// find on disk but that is now absent and was never itself scheduled for
// addition. onDiskDir reports whether a given child name is a directory
// currently present on disk; restrictTo, when non-empty, narrows the
// sweep to that single entry name (the root-with-target case), leaving
// every other entry untouched and never touching a target_deleted ghost.
func (t *Table) Sweep(restrictTo string, onDiskDir func(name string) (bool, error)) (SweepResult, error) {
	var res SweepResult

	this := t.ThisDir()
	this.Incomplete = false
	t.SetThisDir(this)

	names := t.Names()
	if restrictTo != "" {
		names = nil
		if _, ok := t.Get(restrictTo); ok {
			names = []string{restrictTo}
		}
	}

	for _, name := range names {
		e, ok := t.Get(name)
		if !ok {
			continue
		}
		if e.TargetDeleted {
			continue
		}
		if e.Deleted || e.Schedule == ScheduleDelete {
			t.Delete(name)
			res.RemovedDeleted = append(res.RemovedDeleted, name)
			continue
		}
		if e.Kind != KindDir || e.Schedule == ScheduleAdd {
			continue
		}
		present, err := onDiskDir(name)
		if err != nil {
			return res, fmt.Errorf("entries: sweep check %s: %w", name, err)
		}
		if !present {
			t.Delete(name)
			res.RemovedMissingDirs = append(res.RemovedMissingDirs, name)
		}
	}

	return res, nil
}
