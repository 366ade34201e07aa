// Package wclog implements the per-directory journaled log (§4.2): a
// small, fixed vocabulary of idempotent commands describing filesystem
// and metadata mutations that must happen atomically together. A log is
// written and fsynced before any of its commands run, so a crash
// mid-execution leaves a log file behind that a later open can replay
// from the top; every command is safe to re-run against state it has
// already produced.
//
// The log is written as self-closing tags via encoding/xml's
// attribute-escaping rules, but read back with a small hand-rolled
// scanner rather than encoding/xml.Decoder: the on-disk grammar is
// fixed and flat enough that a linear scan is simpler than driving a
// general-purpose XML decoder, and it keeps this package's only
// standard-library dependency for the format scoped to escaping, not
// parsing.
package wclog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/wcpath"
)

// Command names, the fixed vocabulary every log entry picks from.
const (
	CmdModifyEntry        = "modify-entry"
	CmdDeleteEntry         = "delete-entry"
	CmdCopyAndTranslate    = "copy-and-translate"
	CmdCopyAndDetranslate  = "copy-and-detranslate"
	CmdMove                = "move"
	CmdRemove              = "remove"
	CmdSyncFileFlags       = "sync-file-flags"
	CmdMerge               = "merge"
	CmdModifyWcProp        = "modify-wcprop"
)

// Attr names used across the command set's attributes.
const (
	AttrName       = "name"
	AttrPath       = "path"
	AttrSrc        = "src"
	AttrDest       = "dest"
	AttrEOLStyle   = "eol-style"
	AttrKeywords   = "keywords"
	AttrExecutable = "executable"
	AttrReadonly   = "readonly"
	AttrTimestamp  = "timestamp"
	AttrLeft       = "left"
	AttrRight      = "right"
	AttrTarget     = "target"
	AttrLabelLocal = "label-local"
	AttrLabelInc   = "label-incoming"
	AttrPropName   = "propname"
	AttrPropVal    = "propval"
)

// Command is one journal entry: a named operation and its attributes.
type Command struct {
	Name  string
	Attrs map[string]string
}

// Log is one directory's in-progress journal, accumulated in memory
// before being written and run.
type Log struct {
	admin    *wcpath.Admin
	commands []Command
}

// New returns an empty log for the given directory's administrative
// area.
func New(admin *wcpath.Admin) *Log {
	return &Log{admin: admin}
}

// Empty reports whether any commands have been queued.
func (l *Log) Empty() bool {
	return len(l.commands) == 0
}

// Commands returns the queued commands in order.
func (l *Log) Commands() []Command {
	return l.commands
}

func (l *Log) add(name string, attrs map[string]string) {
	l.commands = append(l.commands, Command{Name: name, Attrs: attrs})
}

// ModifyEntry queues an update to one or more fields of name's entry.
// attrs' keys are entries-table field names, not wclog attribute names,
// and are carried through to the Handler unchanged.
func (l *Log) ModifyEntry(name string, attrs map[string]string) {
	merged := map[string]string{AttrName: name}
	for k, v := range attrs {
		merged[k] = v
	}
	l.add(CmdModifyEntry, merged)
}

// DeleteEntry queues removal of name's entries-table record.
func (l *Log) DeleteEntry(name string) {
	l.add(CmdDeleteEntry, map[string]string{AttrName: name})
}

// CopyAndTranslate queues installing src (a staged, repository-normal
// form fulltext) into dest, applying the working eol-style/keywords
// translation and executable bit on the way.
func (l *Log) CopyAndTranslate(src, dest, eolStyle string, keywords, executable bool) {
	l.add(CmdCopyAndTranslate, map[string]string{
		AttrSrc: src, AttrDest: dest,
		AttrEOLStyle: eolStyle, AttrKeywords: boolAttr(keywords), AttrExecutable: boolAttr(executable),
	})
}

// CopyAndDetranslate queues copying src to dest while undoing working
// translation, producing a repository-normal-form fulltext — used to
// preserve a user's locally modified file as a conflict side before it
// is overwritten.
func (l *Log) CopyAndDetranslate(src, dest, eolStyle string, keywords bool) {
	l.add(CmdCopyAndDetranslate, map[string]string{
		AttrSrc: src, AttrDest: dest,
		AttrEOLStyle: eolStyle, AttrKeywords: boolAttr(keywords),
	})
}

// Move queues an atomic rename from src to dest.
func (l *Log) Move(src, dest string) {
	l.add(CmdMove, map[string]string{AttrSrc: src, AttrDest: dest})
}

// Remove queues deletion of a scratch path no longer needed once the
// log finishes (tmp text-base staging files, conflict scratch files on
// resolve).
func (l *Log) Remove(path string) {
	l.add(CmdRemove, map[string]string{AttrPath: path})
}

// SyncFileFlags queues applying the installed file's final readonly bit,
// executable bit, and use-commit-times timestamp in one pass, since all
// three are filesystem metadata writes against the same already-in-place
// file (§4.3 step 9).
func (l *Log) SyncFileFlags(path string, readonly, executable bool, timestamp string) {
	l.add(CmdSyncFileFlags, map[string]string{
		AttrPath: path, AttrReadonly: boolAttr(readonly), AttrExecutable: boolAttr(executable), AttrTimestamp: timestamp,
	})
}

// Merge queues a three-way text merge of left (ancestor), the working
// file at target, and right (incoming), writing the result back to
// target and leaving conflict sidecar files under the given labels if
// the merge tool reports a conflict.
func (l *Log) Merge(left, right, target, labelLocal, labelIncoming string) {
	l.add(CmdMerge, map[string]string{
		AttrLeft: left, AttrRight: right, AttrTarget: target,
		AttrLabelLocal: labelLocal, AttrLabelInc: labelIncoming,
	})
}

// ModifyWcProp queues an update to one server-opaque (wc-prop) value on
// name's entry.
func (l *Log) ModifyWcProp(name, propname, propval string) {
	l.add(CmdModifyWcProp, map[string]string{AttrName: name, AttrPropName: propname, AttrPropVal: propval})
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// BoolAttr parses a boolAttr-encoded value, defaulting to false for
// anything other than "true".
func BoolAttr(s string) bool {
	return s == "true"
}

// Write serializes the queued commands and fsyncs them to the
// directory's log file, the "write" half of the write→run→remove
// discipline (§4.2).
func (l *Log) Write() error {
	if l.Empty() {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("<wc-log>\n")
	for _, cmd := range l.commands {
		writeTag(&buf, cmd)
	}
	buf.WriteString("</wc-log>\n")
	if err := fileops.EnsureParentDir(l.admin.LogPath()); err != nil {
		return err
	}
	return fileops.AtomicWrite(l.admin.LogPath(), buf.Bytes(), 0644)
}

func writeTag(buf *bytes.Buffer, cmd Command) {
	buf.WriteString("  <")
	buf.WriteString(cmd.Name)
	keys := make([]string, 0, len(cmd.Attrs))
	for k := range cmd.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteString(" ")
		buf.WriteString(k)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(cmd.Attrs[k]))
		buf.WriteString(`"`)
	}
	buf.WriteString("/>\n")
}

// Handler is the effecting side of the log: the object that knows how
// to actually perform each command, implemented by pkg/install.
type Handler interface {
	ModifyEntry(attrs map[string]string) error
	DeleteEntry(name string) error
	CopyAndTranslate(attrs map[string]string) error
	CopyAndDetranslate(attrs map[string]string) error
	Move(src, dest string) error
	Remove(path string) error
	SyncFileFlags(attrs map[string]string) error
	Merge(attrs map[string]string) error
	ModifyWcProp(name, propname, propval string) error
}

func run(cmd Command, h Handler) error {
	switch cmd.Name {
	case CmdModifyEntry:
		return h.ModifyEntry(cmd.Attrs)
	case CmdDeleteEntry:
		return h.DeleteEntry(cmd.Attrs[AttrName])
	case CmdCopyAndTranslate:
		return h.CopyAndTranslate(cmd.Attrs)
	case CmdCopyAndDetranslate:
		return h.CopyAndDetranslate(cmd.Attrs)
	case CmdMove:
		return h.Move(cmd.Attrs[AttrSrc], cmd.Attrs[AttrDest])
	case CmdRemove:
		return h.Remove(cmd.Attrs[AttrPath])
	case CmdSyncFileFlags:
		return h.SyncFileFlags(cmd.Attrs)
	case CmdMerge:
		return h.Merge(cmd.Attrs)
	case CmdModifyWcProp:
		return h.ModifyWcProp(cmd.Attrs[AttrName], cmd.Attrs[AttrPropName], cmd.Attrs[AttrPropVal])
	default:
		return fmt.Errorf("wclog: unknown command %q", cmd.Name)
	}
}

// Run executes the queued in-memory commands directly against h, without
// touching disk. Used when the caller already wrote the log via Write
// and wants the common replay code path to execute it, rather than
// duplicating dispatch logic.
func (l *Log) Run(h Handler) error {
	for _, cmd := range l.commands {
		if err := run(cmd, h); err != nil {
			return err
		}
	}
	return nil
}

// CommitAndRun writes the log, runs it against h, and removes the log
// file once every command has succeeded — the normal, uninterrupted
// path. A crash between Write and the final removal leaves the log
// behind for Replay to pick up later.
func (l *Log) CommitAndRun(h Handler) error {
	if l.Empty() {
		return nil
	}
	if err := l.Write(); err != nil {
		return err
	}
	if err := l.Run(h); err != nil {
		return err
	}
	return fileops.SafeRemove(l.admin.LogPath())
}

// Outcome reports what Replay found.
type Outcome struct {
	Replayed bool
	Commands int
}

// Replay reads an administrative directory's log file, if any, and runs
// every command it contains against h, removing the file once all
// commands succeed. It is the recovery path: called when an edit opens
// a directory and finds a leftover log from an interrupted run. Every
// command is expected to be idempotent, so replaying a log whose first
// few commands already partially executed before the crash is safe.
func Replay(admin *wcpath.Admin, h Handler) (Outcome, error) {
	data, err := fileops.ReadBytes(admin.LogPath())
	if err != nil {
		return Outcome{}, fmt.Errorf("wclog: read: %w", err)
	}
	if len(data) == 0 {
		return Outcome{}, nil
	}
	commands, err := parse(data)
	if err != nil {
		return Outcome{}, fmt.Errorf("wclog: parse %s: %w", admin.LogPath(), err)
	}
	for _, cmd := range commands {
		if err := run(cmd, h); err != nil {
			return Outcome{Replayed: true, Commands: len(commands)}, err
		}
	}
	if err := fileops.SafeRemove(admin.LogPath()); err != nil {
		return Outcome{Replayed: true, Commands: len(commands)}, err
	}
	return Outcome{Replayed: true, Commands: len(commands)}, nil
}
