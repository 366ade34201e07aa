package install_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/install"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T) *wcpath.Admin {
	t.Helper()
	a := wcpath.New(scpath.AbsolutePath(t.TempDir()))
	require.NoError(t, a.Ensure())
	return a
}

func writeFile(t *testing.T, path scpath.AbsolutePath, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path.String()), 0755))
	require.NoError(t, os.WriteFile(path.String(), []byte(content), 0644))
}

func TestPlanCleanReplaceWhenNoLocalMods(t *testing.T) {
	a := newAdmin(t)
	tmpText := a.TmpTextBasePath("foo.txt")
	writeFile(t, tmpText, "new content\n")

	req := install.Request{
		Admin:       a,
		Name:        "foo.txt",
		HasNewText:  true,
		TmpTextPath: tmpText,
		NewChecksum: checksum.New([]byte("new content\n")),
		NewRevision: 2,
	}

	log := wclog.New(a)
	outcome, err := install.Plan(req, log)
	require.NoError(t, err)
	require.Equal(t, "changed", outcome.ContentState.String())
	require.False(t, outcome.Conflicted)

	h := install.NewHandler(a, nil)
	require.NoError(t, log.CommitAndRun(h))

	working, err := os.ReadFile(a.ChildPath("foo.txt").String())
	require.NoError(t, err)
	require.Equal(t, "new content\n", string(working))

	tbl, err := entries.Load(a)
	require.NoError(t, err)
	e, ok := tbl.Get("foo.txt")
	require.True(t, ok)
	require.Equal(t, int64(2), e.Revision)

	info, err := os.Stat(a.TextBasePath("foo.txt").String())
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0444), info.Mode().Perm(), "pristine text-base must be read-only after install (§4.3 step 8)")
}

func TestPlanNoopWhenNoNewTextAndNoLocalMods(t *testing.T) {
	a := newAdmin(t)
	log := wclog.New(a)
	req := install.Request{Admin: a, Name: "bar.txt"}

	outcome, err := install.Plan(req, log)
	require.NoError(t, err)
	require.Equal(t, "unchanged", outcome.ContentState.String())
	require.True(t, log.Empty())
}

func TestPlanQueuesMergeWhenLocalModsAndNewText(t *testing.T) {
	a := newAdmin(t)

	// Seed a prior entry with a pristine checksum that differs from the
	// current working file, simulating local edits against revision 1.
	tbl, err := entries.Load(a)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "baz.txt", Kind: entries.KindFile, Revision: 1, Checksum: checksum.New([]byte("base\n")).Hex()})
	require.NoError(t, tbl.Save(a))

	writeFile(t, a.ChildPath("baz.txt"), "base\nlocally edited\n")
	writeFile(t, a.TextBasePath("baz.txt"), "base\n")

	tmpText := a.TmpTextBasePath("baz.txt")
	writeFile(t, tmpText, "base\nincoming change\n")

	req := install.Request{
		Admin:       a,
		Name:        "baz.txt",
		HasNewText:  true,
		TmpTextPath: tmpText,
		NewChecksum: checksum.New([]byte("base\nincoming change\n")),
		NewRevision: 2,
	}

	log := wclog.New(a)
	_, err = install.Plan(req, log)
	require.NoError(t, err)

	h := install.NewHandler(a, nil)
	require.NoError(t, log.CommitAndRun(h))

	working, err := os.ReadFile(a.ChildPath("baz.txt").String())
	require.NoError(t, err)
	require.Contains(t, string(working), "locally edited")
	require.Contains(t, string(working), "incoming change")
}

func TestPropChangesAreAppliedToPropStore(t *testing.T) {
	a := newAdmin(t)
	log := wclog.New(a)
	req := install.Request{
		Admin: a,
		Name:  "qux.txt",
		PropChanges: []install.PropChange{
			{Name: "wc:executable", Value: "true"},
		},
	}

	outcome, err := install.Plan(req, log)
	require.NoError(t, err)
	require.Equal(t, "changed", outcome.PropState.String())

	data, err := os.ReadFile(a.PropsPath("qux.txt").String())
	require.NoError(t, err)
	require.Contains(t, string(data), "wc:executable=true")
}
