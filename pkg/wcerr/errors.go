// Package wcerr defines the error kinds the update/switch engine raises
// and the trace-link error chain described by the editor's error design:
// a singly-linked, shared-ownership chain from outermost cause to
// innermost, where some nodes are pure location breadcrumbs ("trace
// links") and others carry a real message.
package wcerr

import (
	baseerr "github.com/go-wc/wcedit/pkg/common/err"
)

const pkgName = "wcedit"

// Error kinds, design-level names from the editor's error handling
// section. Each becomes a Code on the shared base.Error type so existing
// errors.Is/errors.As tooling keeps working across this package and the
// teacher's own error codes.
const (
	CodeObstructedUpdate   = "OBSTRUCTED_UPDATE"
	CodeEntryNotFound      = "ENTRY_NOT_FOUND"
	CodeEntryMissingURL    = "ENTRY_MISSING_URL"
	CodeCorruptTextBase    = "CORRUPT_TEXT_BASE"
	CodeChecksumMismatch   = "CHECKSUM_MISMATCH"
	CodeUnsupportedFeature = "UNSUPPORTED_FEATURE"
	CodeLeftLocalMod       = "LEFT_LOCAL_MOD"
	CodeCancelled          = "CANCELLED"
	CodeIO                 = "IO"
)

// New builds a wcedit-package base.Error for op/message with the given
// code and optional cause.
func New(code, op, message string, cause error) *baseerr.Error {
	return baseerr.New(pkgName, code, op, message, cause)
}

// ObstructedUpdate reports that a local on-disk obstruction (an
// unversioned file/dir of the same name, or a locally modified file in
// the deletion path) blocks the edit from proceeding.
func ObstructedUpdate(op, path string, cause error) *baseerr.Error {
	return New(CodeObstructedUpdate, op, "path obstructed: "+path, cause).WithContext("path", path)
}

// EntryNotFound reports that an entries-file lookup found no record for
// the requested child.
func EntryNotFound(op, name string) *baseerr.Error {
	return New(CodeEntryNotFound, op, "no such entry: "+name, nil).WithContext("name", name)
}

// EntryMissingURL reports that an entry required to carry a repository
// URL (for anchor/target resolution) has none recorded.
func EntryMissingURL(op, name string) *baseerr.Error {
	return New(CodeEntryMissingURL, op, "entry has no URL: "+name, nil).WithContext("name", name)
}

// CorruptTextBase reports that the existing pristine's checksum does not
// match the base_checksum an incoming text-delta declared.
func CorruptTextBase(op, path string, want, got string) *baseerr.Error {
	return New(CodeCorruptTextBase, op, "text base checksum mismatch: "+path, nil).
		WithContext("path", path).WithContext("expected", want).WithContext("actual", got)
}

// ChecksumMismatch reports that the digest accumulated while applying a
// text delta disagrees with the text_checksum close_file was given.
func ChecksumMismatch(op, path string, want, got string) *baseerr.Error {
	return New(CodeChecksumMismatch, op, "checksum mismatch: "+path, nil).
		WithContext("path", path).WithContext("expected", want).WithContext("actual", got)
}

// UnsupportedFeature reports use of an editor feature this implementation
// deliberately does not support (copyfrom-based client-side copy, per the
// spec's stated non-goal).
func UnsupportedFeature(op, feature string) *baseerr.Error {
	return New(CodeUnsupportedFeature, op, "unsupported: "+feature, nil).WithContext("feature", feature)
}

// LeftLocalMod reports that a delete_entry victim carries local text or
// property modifications and so cannot be silently removed. The engine
// catches this error inside the deletion path and rewraps it as
// ObstructedUpdate with this error attached as cause.
func LeftLocalMod(op, path string) *baseerr.Error {
	return New(CodeLeftLocalMod, op, "local modifications would be lost: "+path, nil).WithContext("path", path)
}

// Cancelled reports that the cancellation callback requested the edit
// stop.
func Cancelled(op string) *baseerr.Error {
	return New(CodeCancelled, op, "operation cancelled", nil)
}

// IO wraps an opaque filesystem-layer failure.
func IO(op string, cause error) *baseerr.Error {
	return New(CodeIO, op, "", cause)
}

// Is reports whether err carries the given wcedit error code, delegating
// to the base package's code-matching helper.
func Is(err error, code string) bool {
	return baseerr.IsCode(err, code)
}
