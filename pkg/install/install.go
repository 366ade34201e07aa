// Package install implements the file installer (§4.3): the "small
// planet" that decides, for each incoming file change, how the four
// combinations of "does the user have local mods?" and "is there new
// incoming text?" resolve into a working-copy write, a three-way merge,
// or a no-op — then queues the filesystem and metadata mutations that
// carry out that decision as wclog commands, and supplies the Handler
// that performs them when the log runs.
package install

import (
	"fmt"
	"sort"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/common"
	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/index"
	"github.com/go-wc/wcedit/pkg/merge"
	"github.com/go-wc/wcedit/pkg/notify"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// PropChange is one property add/set/delete, as produced by change_*_prop
// (§4.1). When Deleted is true, Value is ignored.
type PropChange struct {
	Name    string
	Value   string
	Deleted bool
}

// Request describes one file's pending installation, gathered by the
// edit driver across apply_textdelta/change_file_prop/close_file before
// handing off to Plan.
type Request struct {
	Admin *wcpath.Admin
	Name  string

	// HasNewText is true when apply_textdelta produced a new fulltext,
	// staged at TmpTextPath in repository-normal form.
	HasNewText  bool
	TmpTextPath scpath.AbsolutePath
	NewChecksum checksum.Checksum

	// PropChanges are entry-scoped property diffs, or (if PropsAreFull)
	// the complete incoming property list to be diffed against the
	// pristine property store.
	PropChanges  []PropChange
	PropsAreFull bool

	BaseRevision   int64
	NewRevision    int64
	NewURL         string
	CommittedDate  *common.Timestamp
	EOLStyle       string
	KeywordValues  map[string]string
	Executable     bool
	UseCommitTimes bool

	Index *index.Index
}

// Outcome is the predicted result of applying a Request, used both to
// drive notifications and to decide the final entries-table Schedule.
type Outcome struct {
	ContentState notify.State
	PropState    notify.State
	Conflicted   bool
}

// Plan inspects req against the current working and pristine state,
// queues the commands that realize it onto log, and returns the
// predicted outcome. The caller (pkg/editor) is responsible for running
// or committing the log. Besides reading current state for its
// decisions, Plan writes the updated property list straight to the
// props and prop-base stores rather than queuing it on the log.
func Plan(req Request, log *wclog.Log) (*Outcome, error) {
	workingPath := req.Admin.ChildPath(req.Name)
	tbl, err := entries.Load(req.Admin)
	if err != nil {
		return nil, fmt.Errorf("install: load entries: %w", err)
	}
	existing, hadEntry := tbl.Get(req.Name)

	localMods := false
	if hadEntry && existing.Checksum != "" {
		pristine, perr := checksum.Parse(existing.Checksum)
		if perr == nil {
			localMods, err = HasLocalMods(workingPath, req.Index, scpath.RelativePath(req.Name), pristine)
			if err != nil {
				return nil, fmt.Errorf("install: detect local mods: %w", err)
			}
		}
	}

	outcome := &Outcome{ContentState: notify.StateUnchanged, PropState: notify.StateUnchanged}

	if req.HasNewText {
		switch {
		case !localMods:
			queueReplace(log, req)
			outcome.ContentState = notify.StateChanged
		default:
			conflicted, cerr := queueMerge(log, req, workingPath)
			if cerr != nil {
				return nil, cerr
			}
			if conflicted {
				outcome.ContentState = notify.StateConflicted
				outcome.Conflicted = true
			} else {
				outcome.ContentState = notify.StateMerged
			}
		}
	}

	propState, err := queueProps(log, req, existing)
	if err != nil {
		return nil, err
	}
	outcome.PropState = propState

	queueEntryUpdate(log, req, outcome)

	if req.Executable || req.UseCommitTimes {
		ts := ""
		if req.CommittedDate != nil {
			ts = req.CommittedDate.String()
		}
		log.SyncFileFlags(workingPath.String(), false, req.Executable, ts)
	}

	return outcome, nil
}

func queueReplace(log *wclog.Log, req Request) {
	workingPath := req.Admin.ChildPath(req.Name).String()
	log.CopyAndTranslate(req.TmpTextPath.String(), workingPath, req.EOLStyle, len(req.KeywordValues) > 0, req.Executable)
	pristinePath := req.Admin.TextBasePath(req.Name).String()
	log.Move(req.TmpTextPath.String(), pristinePath)
	// §4.3 step 8: the pristine is read-only once installed, so a later
	// edit's local-mods check can trust that any write to it has to have
	// gone through this same install path.
	log.SyncFileFlags(pristinePath, true, false, "")
}

func queueMerge(log *wclog.Log, req Request, workingPath scpath.AbsolutePath) (bool, error) {
	ancestorPath := req.Admin.TextBasePath(req.Name).String()
	labels := merge.Labels{Ancestor: ".mine", Local: ".mine", Incoming: ".r" + fmtRev(req.NewRevision)}
	log.Merge(ancestorPath, req.TmpTextPath.String(), workingPath.String(), labels.Local, labels.Incoming)
	pristinePath := req.Admin.TextBasePath(req.Name).String()
	log.Move(req.TmpTextPath.String(), pristinePath)
	log.SyncFileFlags(pristinePath, true, false, "")

	// The plan-time prediction of conflict vs. clean merge cannot be
	// known without actually running the merge tool; the driver treats
	// a queued merge command as provisionally "merged" and corrects the
	// entry's conflict fields from the Handler's result once the log
	// actually runs. No plan-time comparison is made, so every queued
	// merge is reported as merged here and refined at run time.
	return false, nil
}

func fmtRev(rev int64) string {
	return fmt.Sprintf("%d", rev)
}

func queueProps(log *wclog.Log, req Request, existing *entries.Entry) (notify.State, error) {
	var changes []PropChange
	if req.PropsAreFull {
		current, err := readPropMap(req.Admin.PropBasePath(req.Name))
		if err != nil {
			return notify.StateUnchanged, err
		}
		incoming := map[string]string{}
		for _, c := range req.PropChanges {
			incoming[c.Name] = c.Value
		}
		for name, val := range incoming {
			if current[name] != val {
				changes = append(changes, PropChange{Name: name, Value: val})
			}
		}
		for name := range current {
			if _, ok := incoming[name]; !ok {
				changes = append(changes, PropChange{Name: name, Deleted: true})
			}
		}
	} else {
		changes = req.PropChanges
	}

	if len(changes) == 0 {
		return notify.StateUnchanged, nil
	}

	current, err := readPropMap(req.Admin.PropsPath(req.Name))
	if err != nil {
		return notify.StateUnchanged, err
	}
	for _, c := range changes {
		if c.Deleted {
			delete(current, c.Name)
		} else {
			current[c.Name] = c.Value
		}
	}
	if err := writePropMap(req.Admin.PropsPath(req.Name), current); err != nil {
		return notify.StateUnchanged, err
	}
	if err := writePropMap(req.Admin.PropBasePath(req.Name), current); err != nil {
		return notify.StateUnchanged, err
	}
	return notify.StateChanged, nil
}

func queueEntryUpdate(log *wclog.Log, req Request, outcome *Outcome) {
	attrs := map[string]string{}
	if req.NewRevision != 0 {
		attrs["revision"] = fmtRev(req.NewRevision)
	}
	if req.NewURL != "" {
		attrs["url"] = req.NewURL
	}
	if outcome.ContentState != notify.StateUnchanged {
		attrs["checksum"] = req.NewChecksum.Hex()
	}
	if len(attrs) == 0 {
		return
	}
	log.ModifyEntry(req.Name, attrs)
}

func readPropMap(path scpath.AbsolutePath) (map[string]string, error) {
	data, err := fileops.ReadBytes(path)
	if err != nil {
		return nil, err
	}
	props := map[string]string{}
	lines := splitNonEmptyLines(data)
	for _, line := range lines {
		idx := indexByte(line, '=')
		if idx < 0 {
			continue
		}
		props[line[:idx]] = line[idx+1:]
	}
	return props, nil
}

func writePropMap(path scpath.AbsolutePath, props map[string]string) error {
	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)
	out := ""
	for _, n := range names {
		out += n + "=" + props[n] + "\n"
	}
	if err := fileops.EnsureParentDir(path); err != nil {
		return err
	}
	return fileops.AtomicWrite(path, []byte(out), 0644)
}

func splitNonEmptyLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
