// Package anchor implements anchor/target resolution (§4.5): given a
// path the user named on the command line, decide which directory the
// edit actually opens (the "anchor") and, when the named path is not
// itself a whole versioned directory, which single child within that
// anchor the edit is scoped to (the "target").
package anchor

import (
	"context"
	"fmt"

	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"golang.org/x/sync/errgroup"
)

// Resolution is the anchor/target pair chosen for one command-line path.
type Resolution struct {
	Path   scpath.AbsolutePath
	Anchor scpath.AbsolutePath
	Target string
}

// Resolve picks the anchor/target pair for one path (§4.5). A path that
// names a file, or a directory scheduled for deletion, or a directory
// that is not itself present as a versioned working copy, is anchored
// at its parent with itself as the target; a path that names a live,
// fully versioned directory is its own anchor with an empty target
// (meaning the whole directory, not one entry within it).
func Resolve(path scpath.AbsolutePath) (*Resolution, error) {
	isDir, err := fileops.IsDirectory(path)
	if err != nil {
		return nil, fmt.Errorf("anchor: stat %s: %w", path, err)
	}
	if !isDir {
		return &Resolution{Path: path, Anchor: path.Dir(), Target: path.Base()}, nil
	}

	admin := wcpath.New(path)
	versioned, err := admin.Exists()
	if err != nil {
		return nil, fmt.Errorf("anchor: check admin area for %s: %w", path, err)
	}
	if !versioned {
		return &Resolution{Path: path, Anchor: path.Dir(), Target: path.Base()}, nil
	}

	tbl, err := entries.Load(admin)
	if err != nil {
		return nil, fmt.Errorf("anchor: load entries for %s: %w", path, err)
	}
	this := tbl.ThisDir()
	if this.Schedule == entries.ScheduleDelete || this.TargetDeleted {
		return &Resolution{Path: path, Anchor: path.Dir(), Target: path.Base()}, nil
	}

	return &Resolution{Path: path, Anchor: path, Target: entries.ThisDir}, nil
}

// IsWCRoot reports whether dir is a working-copy root (§4.5): it has no
// versioned parent directory, its parent's own entry has no URL, or the
// parent's URL joined with dir's basename disagrees with dir's own
// recorded URL (the signature of a switched subtree or a separately
// checked-out working copy nested inside another).
func IsWCRoot(dir scpath.AbsolutePath) (bool, error) {
	admin := wcpath.New(dir)
	versioned, err := admin.Exists()
	if err != nil {
		return false, err
	}
	if !versioned {
		return false, nil
	}

	parentAdmin := wcpath.New(dir.Dir())
	parentVersioned, err := parentAdmin.Exists()
	if err != nil {
		return false, err
	}
	if !parentVersioned {
		return true, nil
	}

	tbl, err := entries.Load(admin)
	if err != nil {
		return false, err
	}
	ownURL := tbl.ThisDir().URL

	parentTbl, err := entries.Load(parentAdmin)
	if err != nil {
		return false, err
	}
	parentURL := parentTbl.ThisDir().URL
	if parentURL == "" {
		return true, nil
	}

	return parentURL+"/"+dir.Base() != ownURL, nil
}

// ProbeAncestors resolves the anchor/target pair for every path in
// paths concurrently, bounded by a worker group rather than one
// goroutine per path — the same read-side fan-out discipline the
// teacher's tree analyzer uses for its own concurrent directory walk.
// The returned slice preserves the input order.
func ProbeAncestors(ctx context.Context, paths []scpath.AbsolutePath) ([]*Resolution, error) {
	results := make([]*Resolution, len(paths))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for idx, p := range paths {
		idx, p := idx, p
		g.Go(func() error {
			res, err := Resolve(p)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
