package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/go-wc/wcedit/cmd/ui"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/go-wc/wcedit/pkg/wcscan"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show entries-table state for a working copy",
		Long: `Status walks the entries tables under path, reporting each tracked
child's name, kind, and whether it is obstructed, missing from disk,
modified locally, or unchanged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runStatus(path)
		},
	}
	return cmd
}

func runStatus(path string) error {
	abs, err := scpath.NewAbsolutePath(path)
	if err != nil {
		return err
	}

	admin := wcpath.New(abs)
	if versioned, verr := admin.Exists(); verr != nil {
		return verr
	} else if !versioned {
		return fmt.Errorf("%s is not a versioned directory", abs)
	}

	snap, err := wcscan.Scan(context.Background(), admin, nil)
	if err != nil {
		return fmt.Errorf("scan %s: %w", abs, err)
	}

	fmt.Println(ui.Header(" Working Copy Status "))
	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *wcscan.Snapshot) {
	if len(snap.Children) == 0 {
		fmt.Println(ui.InfoMessage(fmt.Sprintf("%s has no tracked entries", snap.Dir)))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Name", "Kind", "State")
		for _, c := range snap.Children {
			table.Append(c.Name, kindLabel(c.Kind), stateLabel(c))
		}
		table.Render()
	}

	for _, name := range sortedKeys(snap.Subdirs) {
		printSnapshot(snap.Subdirs[name])
	}
}

func kindLabel(k entries.Kind) string {
	return k.String()
}

func stateLabel(c wcscan.ChildStatus) string {
	switch {
	case c.Obstructed:
		return ui.ErrorMessage("obstructed")
	case !c.Exists:
		return ui.WarningMessage("missing")
	case c.LocalMods:
		return ui.FormatModified("modified")
	default:
		return ui.InfoMessage("unchanged")
	}
}

func sortedKeys(m map[string]*wcscan.Snapshot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
