package bump_test

import (
	"testing"

	"github.com/go-wc/wcedit/pkg/bump"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/notify"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/stretchr/testify/require"
)

func admin(t *testing.T) *wcpath.Admin {
	t.Helper()
	return wcpath.New(scpath.AbsolutePath(t.TempDir()))
}

func TestRootCompletesImmediatelyWithNoChildren(t *testing.T) {
	var completions []string
	root := bump.NewRoot(admin(t), "", func(n notify.Notification) {
		completions = append(completions, n.Path)
	})

	require.False(t, root.IsDone())
	require.NoError(t, root.MarkClosed())
	require.True(t, root.IsDone())
	require.Len(t, completions, 1)
}

func TestChildMustCloseBeforeParentCompletes(t *testing.T) {
	var completions []string
	record := func(n notify.Notification) { completions = append(completions, n.Path) }

	root := bump.NewRoot(admin(t), "", record)
	child := bump.New(root, admin(t), record)

	require.NoError(t, root.MarkClosed())
	require.False(t, root.IsDone(), "root must wait for its child")

	require.NoError(t, child.MarkClosed())
	require.True(t, child.IsDone())
	require.True(t, root.IsDone())
	require.Len(t, completions, 2)
}

func TestGrandchildPropagatesThroughMiddleDirectory(t *testing.T) {
	root := bump.NewRoot(admin(t), "", nil)
	mid := bump.New(root, admin(t), nil)
	leaf := bump.New(mid, admin(t), nil)

	require.NoError(t, root.MarkClosed())
	require.NoError(t, mid.MarkClosed())
	require.False(t, mid.IsDone())
	require.False(t, root.IsDone())

	require.NoError(t, leaf.MarkClosed())
	require.True(t, leaf.IsDone())
	require.True(t, mid.IsDone())
	require.True(t, root.IsDone())
}

func TestFileIncDecSharesParentRecord(t *testing.T) {
	root := bump.NewRoot(admin(t), "", nil)

	root.Inc() // a file opens under root
	require.NoError(t, root.MarkClosed())
	require.False(t, root.IsDone())

	require.NoError(t, root.Dec()) // the file closes
	require.True(t, root.IsDone())
}

func TestSweepClearsIncompleteAndDropsDeleted(t *testing.T) {
	a := admin(t)
	require.NoError(t, a.Ensure())

	tbl, err := entries.Load(a)
	require.NoError(t, err)
	this := tbl.ThisDir()
	this.Incomplete = true
	tbl.SetThisDir(this)
	tbl.Set(&entries.Entry{Name: "gone.txt", Kind: entries.KindFile, Schedule: entries.ScheduleDelete})
	tbl.Set(&entries.Entry{Name: "kept.txt", Kind: entries.KindFile})
	require.NoError(t, tbl.Save(a))

	root := bump.NewRoot(a, "", nil)
	require.NoError(t, root.MarkClosed())

	reloaded, err := entries.Load(a)
	require.NoError(t, err)
	require.False(t, reloaded.ThisDir().Incomplete)
	_, ok := reloaded.Get("gone.txt")
	require.False(t, ok)
	_, ok = reloaded.Get("kept.txt")
	require.True(t, ok)
}

func TestSweepRemovesMissingDirNotScheduledForAdd(t *testing.T) {
	a := admin(t)
	require.NoError(t, a.Ensure())

	tbl, err := entries.Load(a)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "vanished", Kind: entries.KindDir})
	require.NoError(t, tbl.Save(a))

	var deleted []string
	root := bump.NewRoot(a, "", func(n notify.Notification) {
		if n.Action == notify.ActionDelete {
			deleted = append(deleted, n.Path)
		}
	})
	require.NoError(t, root.MarkClosed())

	reloaded, err := entries.Load(a)
	require.NoError(t, err)
	_, ok := reloaded.Get("vanished")
	require.False(t, ok)
	require.Len(t, deleted, 1)
}

func TestSweepRestrictsToTargetOnRoot(t *testing.T) {
	a := admin(t)
	require.NoError(t, a.Ensure())

	tbl, err := entries.Load(a)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "other-vanished", Kind: entries.KindDir})
	tbl.Set(&entries.Entry{Name: "target-vanished", Kind: entries.KindDir})
	require.NoError(t, tbl.Save(a))

	root := bump.NewRoot(a, "target-vanished", nil)
	require.NoError(t, root.MarkClosed())

	reloaded, err := entries.Load(a)
	require.NoError(t, err)
	_, ok := reloaded.Get("other-vanished")
	require.True(t, ok, "sweep restricted to target must leave other entries alone")
	_, ok = reloaded.Get("target-vanished")
	require.False(t, ok)
}
