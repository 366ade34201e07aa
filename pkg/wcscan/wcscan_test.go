package wcscan_test

import (
	"context"
	"os"
	"testing"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/entries"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/go-wc/wcedit/pkg/wcscan"
	"github.com/stretchr/testify/require"
)

func setupWC(t *testing.T) *wcpath.Admin {
	t.Helper()
	root := t.TempDir()
	admin := wcpath.New(scpath.AbsolutePath(root))
	require.NoError(t, admin.Ensure())
	return admin
}

func TestScanReportsMissingChild(t *testing.T) {
	admin := setupWC(t)
	tbl, err := entries.Load(admin)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "gone.txt", Kind: entries.KindFile, Checksum: checksum.New([]byte("x")).Hex()})
	require.NoError(t, tbl.Save(admin))

	snap, err := wcscan.Scan(context.Background(), admin, nil)
	require.NoError(t, err)
	require.Len(t, snap.Children, 1)
	require.False(t, snap.Children[0].Exists)
}

func TestScanDetectsLocalMods(t *testing.T) {
	admin := setupWC(t)
	content := []byte("pristine\n")
	tbl, err := entries.Load(admin)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "foo.txt", Kind: entries.KindFile, Checksum: checksum.New(content).Hex()})
	require.NoError(t, tbl.Save(admin))

	require.NoError(t, os.WriteFile(admin.ChildPath("foo.txt").String(), []byte("edited\n"), 0644))

	snap, err := wcscan.Scan(context.Background(), admin, nil)
	require.NoError(t, err)
	require.True(t, snap.Children[0].Exists)
	require.True(t, snap.Children[0].LocalMods)
}

func TestScanRecursesIntoVersionedSubdirectories(t *testing.T) {
	admin := setupWC(t)
	childDir := admin.ChildPath("sub")
	require.NoError(t, os.MkdirAll(childDir.String(), 0755))
	childAdmin := wcpath.New(childDir)
	require.NoError(t, childAdmin.Ensure())

	tbl, err := entries.Load(admin)
	require.NoError(t, err)
	tbl.Set(&entries.Entry{Name: "sub", Kind: entries.KindDir})
	require.NoError(t, tbl.Save(admin))

	childTbl, err := entries.Load(childAdmin)
	require.NoError(t, err)
	childTbl.Set(&entries.Entry{Name: "nested.txt", Kind: entries.KindFile})
	require.NoError(t, childTbl.Save(childAdmin))

	snap, err := wcscan.Scan(context.Background(), admin, nil)
	require.NoError(t, err)
	require.Contains(t, snap.Subdirs, "sub")
	require.Len(t, snap.Subdirs["sub"].Children, 1)
	require.Equal(t, "nested.txt", snap.Subdirs["sub"].Children[0].Name)
}
