package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/go-wc/wcedit/cmd/ui"
	"github.com/go-wc/wcedit/pkg/notify"
)

// summaryRow is one printable line of the post-edit table, the CLI's
// analogue of `svn update`'s per-path letter-coded output.
type summaryRow struct {
	code string
	path string
}

// renderer turns the edit driver's notification stream into both live
// per-path lines (so a long update shows progress) and a summary table
// rendered once the edit completes.
type renderer struct {
	rows []summaryRow
}

func (r *renderer) onNotify(n notify.Notification) {
	switch n.Action {
	case notify.ActionAdd:
		fmt.Println(ui.FormatAdded(n.Path))
		r.rows = append(r.rows, summaryRow{code: "A", path: n.Path})
	case notify.ActionDelete:
		fmt.Println(ui.FormatDeleted(n.Path))
		r.rows = append(r.rows, summaryRow{code: "D", path: n.Path})
	case notify.ActionUpdate:
		switch n.ContentState {
		case notify.StateConflicted:
			fmt.Println(ui.FormatFileStatus(ui.StatusDeleted, n.Path+" (conflict)"))
			r.rows = append(r.rows, summaryRow{code: "C", path: n.Path})
		case notify.StateMerged:
			fmt.Println(ui.FormatModified(n.Path + " (merged)"))
			r.rows = append(r.rows, summaryRow{code: "G", path: n.Path})
		case notify.StateChanged:
			fmt.Println(ui.FormatModified(n.Path))
			r.rows = append(r.rows, summaryRow{code: "U", path: n.Path})
		default:
			if n.PropState == notify.StateChanged {
				fmt.Println(ui.FormatModified(n.Path + " (props)"))
				r.rows = append(r.rows, summaryRow{code: "U", path: n.Path})
			}
		}
	case notify.ActionExists:
		fmt.Println(ui.FormatUntracked(n.Path))
	case notify.ActionCompleted:
		// per-directory/root completion: nothing printed, the final
		// summary table covers it.
	}
}

// renderSummary prints the post-update summary table, mirroring
// cmd/sourcecontrol's displayCommitsAsTable use of tablewriter for a
// compact tabular recap after the per-path stream.
func (r *renderer) renderSummary(revision int64) {
	fmt.Println()
	fmt.Println(ui.Header(fmt.Sprintf(" Updated to revision %d ", revision)))

	if len(r.rows) == 0 {
		fmt.Println(ui.InfoMessage("Nothing to update, already at this revision."))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("", "Path")
	for _, row := range r.rows {
		table.Append(row.code, row.path)
	}
	table.Render()
}
