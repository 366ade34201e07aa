// Package merge implements the three-way textual merge tool the update
// editor treats as a pluggable external collaborator (§1, §4.3): given an
// ancestor pristine, the user's local copy, and the incoming pristine, it
// either reconciles them cleanly or produces conflict markers plus the
// three sidecar files §8 scenario 2 expects.
package merge

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Labels name the three versions a merge combines, used both for
// conflict markers and for naming the conflict sidecar files.
type Labels struct {
	Ancestor string
	Local    string
	Incoming string
}

// Result is the outcome of a three-way merge.
type Result struct {
	Merged     []byte
	Conflicted bool
}

// Tool is the external collaborator interface the log runner drives for
// the *merge* log command (§4.2).
type Tool interface {
	Merge(ancestor, local, incoming []byte, labels Labels) (*Result, error)
}

// DefaultTool is the line-level three-way merge built on go-difflib's
// SequenceMatcher, the only diff-shaped library anywhere in the example
// pack's dependency graph (see DESIGN.md). It is not bug-for-bug
// identical to GNU diff3 but follows the same anchor-and-hunk strategy:
// ancestor positions where both the local and incoming diffs still
// agree with the ancestor are treated as synchronization points, the
// text between consecutive anchors is one hunk, and each hunk resolves
// to whichever side actually changed it, or is flagged conflicted when
// both sides changed it differently.
type DefaultTool struct{}

// NewDefaultTool returns the default merge tool.
func NewDefaultTool() *DefaultTool {
	return &DefaultTool{}
}

type span struct {
	tag      string
	aLo, aHi int
	bLo, bHi int
}

func opcodes(a, b []string) []span {
	matcher := difflib.NewMatcher(a, b)
	ops := matcher.GetOpCodes()
	out := make([]span, len(ops))
	for i, o := range ops {
		out[i] = span{tag: string(o.Tag), aLo: o.I1, aHi: o.I2, bLo: o.J1, bHi: o.J2}
	}
	return out
}

type anchor struct {
	a, l, i int
}

func equalOnly(ops []span) []span {
	out := make([]span, 0, len(ops))
	for _, op := range ops {
		if op.tag == "equal" {
			out = append(out, op)
		}
	}
	return out
}

// overlapRanges intersects two lists of equal-block spans, both sorted
// ascending by aLo, returning the ancestor ranges where both sides agree
// the text is unchanged from the ancestor — the safe synchronization
// zones a three-way merge can anchor on.
func overlapRanges(localEq, incomingEq []span) []span {
	var out []span
	i, j := 0, 0
	for i < len(localEq) && j < len(incomingEq) {
		lo := max(localEq[i].aLo, incomingEq[j].aLo)
		hi := min(localEq[i].aHi, incomingEq[j].aHi)
		if lo < hi {
			out = append(out, span{aLo: lo, aHi: hi})
		}
		if localEq[i].aHi < incomingEq[j].aHi {
			i++
		} else {
			j++
		}
	}
	return out
}

func mapPos(equalOps []span, a int) (int, bool) {
	for _, op := range equalOps {
		if op.aLo <= a && a <= op.aHi {
			return op.bLo + (a - op.aLo), true
		}
	}
	return 0, false
}

// buildAnchors finds the ancestor positions where local and incoming
// both still agree with the ancestor, plus the sequence boundaries,
// and maps each to its corresponding local/incoming index. Consecutive
// anchors bound one merge hunk.
func buildAnchors(na, nl, ni int, localEq, incomingEq []span) []anchor {
	overlaps := overlapRanges(localEq, incomingEq)
	positions := map[int]bool{0: true, na: true}
	for _, r := range overlaps {
		positions[r.aLo] = true
		positions[r.aHi] = true
	}
	sorted := make([]int, 0, len(positions))
	for p := range positions {
		sorted = append(sorted, p)
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	anchors := make([]anchor, 0, len(sorted))
	for _, a := range sorted {
		switch a {
		case 0:
			anchors = append(anchors, anchor{a: 0, l: 0, i: 0})
		case na:
			anchors = append(anchors, anchor{a: na, l: nl, i: ni})
		default:
			l, lok := mapPos(localEq, a)
			ii, iok := mapPos(incomingEq, a)
			if lok && iok {
				anchors = append(anchors, anchor{a: a, l: l, i: ii})
			}
		}
	}
	return anchors
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func splitLines(b []byte) []string {
	s := string(b)
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Merge performs the line-level three-way merge.
func (t *DefaultTool) Merge(ancestor, local, incoming []byte, labels Labels) (*Result, error) {
	a := splitLines(ancestor)
	l := splitLines(local)
	i := splitLines(incoming)

	localOps := opcodes(a, l)
	incomingOps := opcodes(a, i)
	anchors := buildAnchors(len(a), len(l), len(i), equalOnly(localOps), equalOnly(incomingOps))

	var out []string
	conflicted := false

	for idx := 0; idx < len(anchors)-1; idx++ {
		prev, cur := anchors[idx], anchors[idx+1]
		ancestorSlice := a[prev.a:cur.a]
		localSlice := l[prev.l:cur.l]
		incomingSlice := i[prev.i:cur.i]

		switch {
		case sameLines(localSlice, ancestorSlice):
			out = append(out, incomingSlice...)
		case sameLines(incomingSlice, ancestorSlice):
			out = append(out, localSlice...)
		case sameLines(localSlice, incomingSlice):
			out = append(out, localSlice...)
		default:
			conflicted = true
			out = append(out, fmt.Sprintf("<<<<<<< %s\n", labels.Local))
			out = append(out, localSlice...)
			out = append(out, "=======\n")
			out = append(out, incomingSlice...)
			out = append(out, fmt.Sprintf(">>>>>>> %s\n", labels.Incoming))
		}
	}

	return &Result{Merged: []byte(strings.Join(out, "")), Conflicted: conflicted}, nil
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExternalTool shells out to the configured merge-tool command (the
// spec's "optional external merge-tool command"), invoked as
// `<command> <ancestor-path> <local-path> <incoming-path>` with the
// merged result read back from stdout. An edit uses it in place of
// DefaultTool when its Options.MergeTool is an *ExternalTool.
type ExternalTool struct {
	Command string
}

// Merge satisfies the Tool interface for callers that only have
// in-memory content. It runs the command with no path arguments and no
// input on stdin; callers that have ancestor/local/incoming on disk use
// MergeFiles to pass their paths. Its result follows MergeFiles.
func (t *ExternalTool) Merge(ancestor, local, incoming []byte, labels Labels) (*Result, error) {
	return t.MergeFiles("", "", "", ancestor, local, incoming, labels)
}

// MergeFiles invokes the external command with the three content
// sources. When path arguments are non-empty they are passed as
// positional arguments (left, local, right). On success stdout is the
// merged text, reported as conflicted when it contains a "<<<<<<<"
// marker. If the command fails with output on stderr, that output is
// returned as an error; if it fails without stderr output (or cannot be
// started), the ancestor/local/incoming bytes are merged by DefaultTool.
func (t *ExternalTool) MergeFiles(ancestorPath, localPath, incomingPath string, ancestor, local, incoming []byte, labels Labels) (*Result, error) {
	args := []string{}
	if ancestorPath != "" || localPath != "" || incomingPath != "" {
		args = []string{ancestorPath, localPath, incomingPath}
	}
	cmd := exec.Command(t.Command, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("merge: external tool %q: %s", t.Command, exitErr.Stderr)
		}
		// Fall back to the default line merge so a missing/misconfigured
		// external tool still produces a usable result with markers.
		return NewDefaultTool().Merge(ancestor, local, incoming, labels)
	}
	return &Result{Merged: out, Conflicted: strings.Contains(string(out), "<<<<<<<")}, nil
}
