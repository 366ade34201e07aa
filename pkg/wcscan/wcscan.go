// Package wcscan implements the concurrent pre-edit directory scan: a
// read-only walk of the working copy that builds a snapshot of which
// children exist, which are locally modified, and which are obstructed,
// before the edit driver starts making decisions that depend on that
// state. It generalizes the teacher's tree analyzer (pkg/workdir/internal
// /analyzer.go), which fans its own recursive directory walk out across
// a worker pool; that pool type lives in a package this module does not
// carry, so this rewrite fans out with golang.org/x/sync/errgroup
// directly instead of reintroducing a bespoke pool for one caller.
package wcscan

import (
	"context"
	"os"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/index"
	"github.com/go-wc/wcedit/pkg/install"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"golang.org/x/sync/errgroup"
)

// ChildStatus is one child's observed state relative to its entries
// record.
type ChildStatus struct {
	Name       string
	Kind       entries.Kind
	Exists     bool
	LocalMods  bool
	Obstructed bool
}

// Snapshot is one directory's scan result, with its versioned
// subdirectories scanned recursively.
type Snapshot struct {
	Dir      scpath.AbsolutePath
	Children []ChildStatus
	Subdirs  map[string]*Snapshot
}

// concurrencyLimit bounds how many directories are scanned at once,
// mirroring the teacher's worker-pool cap for its own tree walk.
const concurrencyLimit = 8

// Scan walks the working copy rooted at admin's directory, reporting
// local-mod and obstruction state for every tracked child, recursing
// into tracked subdirectories concurrently.
func Scan(ctx context.Context, admin *wcpath.Admin, idx *index.Index) (*Snapshot, error) {
	tbl, err := entries.Load(admin)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Dir: admin.Dir(), Subdirs: map[string]*Snapshot{}}
	names := tbl.Names()
	snap.Children = make([]ChildStatus, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrencyLimit)

	type subResult struct {
		name string
		snap *Snapshot
	}
	subResults := make(chan subResult, len(names))

	for i, name := range names {
		i, name := i, name
		entry, _ := tbl.Get(name)
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			childPath := admin.ChildPath(name)
			status := ChildStatus{Name: name, Kind: entry.Kind}

			info, statErr := os.Stat(childPath.String())
			switch {
			case statErr == nil:
				status.Exists = true
				status.Obstructed = (entry.Kind == entries.KindDir) != info.IsDir()
			case os.IsNotExist(statErr):
				status.Exists = false
			default:
				return statErr
			}

			if status.Exists && !status.Obstructed && entry.Kind == entries.KindFile && entry.Checksum != "" {
				pristine, perr := checksum.Parse(entry.Checksum)
				if perr == nil {
					mods, merr := install.HasLocalMods(childPath, idx, scpath.RelativePath(name), pristine)
					if merr != nil {
						return merr
					}
					status.LocalMods = mods
				}
			}
			snap.Children[i] = status

			if status.Exists && !status.Obstructed && entry.Kind == entries.KindDir {
				childAdmin := wcpath.New(childPath)
				if versioned, verr := childAdmin.Exists(); verr == nil && versioned {
					childSnap, serr := Scan(gctx, childAdmin, idx)
					if serr != nil {
						return serr
					}
					subResults <- subResult{name: name, snap: childSnap}
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(subResults)
	for r := range subResults {
		snap.Subdirs[r.name] = r.snap
	}

	return snap, nil
}
