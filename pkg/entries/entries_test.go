package entries_test

import (
	"testing"

	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T) *wcpath.Admin {
	t.Helper()
	dir := scpath.AbsolutePath(t.TempDir())
	admin := wcpath.New(dir)
	require.NoError(t, admin.Ensure())
	return admin
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	admin := newAdmin(t)

	tbl, err := entries.Load(admin)
	require.NoError(t, err)
	require.Empty(t, tbl.Names())
	require.Equal(t, entries.KindDir, tbl.ThisDir().Kind)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	admin := newAdmin(t)

	tbl, err := entries.Load(admin)
	require.NoError(t, err)

	this := tbl.ThisDir()
	this.Revision = 7
	this.URL = "https://example/trunk"
	this.Incomplete = true
	tbl.SetThisDir(this)

	tbl.Set(&entries.Entry{Name: "foo", Kind: entries.KindFile, Revision: 7, Checksum: "abc123"})
	require.NoError(t, tbl.Save(admin))

	reloaded, err := entries.Load(admin)
	require.NoError(t, err)

	this2 := reloaded.ThisDir()
	require.Equal(t, int64(7), this2.Revision)
	require.True(t, this2.Incomplete)
	require.Equal(t, "https://example/trunk", this2.URL)

	foo, ok := reloaded.Get("foo")
	require.True(t, ok)
	require.Equal(t, "abc123", foo.Checksum)
	require.Equal(t, []string{"foo"}, reloaded.Names())
}

func TestDeleteRemovesEntry(t *testing.T) {
	admin := newAdmin(t)
	tbl, err := entries.Load(admin)
	require.NoError(t, err)

	tbl.Set(&entries.Entry{Name: "bar", Kind: entries.KindFile})
	tbl.Delete("bar")
	require.NoError(t, tbl.Save(admin))

	reloaded, err := entries.Load(admin)
	require.NoError(t, err)
	_, ok := reloaded.Get("bar")
	require.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	e := &entries.Entry{Name: "a", EntryProps: map[string]string{"x": "1"}}
	c := e.Clone()
	c.EntryProps["x"] = "2"
	require.Equal(t, "1", e.EntryProps["x"])
}
