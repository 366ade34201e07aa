package wcerr_test

import (
	"testing"

	"github.com/go-wc/wcedit/pkg/wcerr"
	"github.com/stretchr/testify/require"
)

func TestChainRendersUniqueMessagesOnly(t *testing.T) {
	c := wcerr.NewChain(wcerr.CodeEntryNotFound, "no such entry: foo")
	c.Trace("editor/driver.go", 42)
	c = c.Wrap(wcerr.CodeObstructedUpdate, "path obstructed: foo")
	c.Trace("editor/driver.go", 58)

	rendered := c.Render(false)
	require.Contains(t, rendered, "path obstructed: foo")
	require.Contains(t, rendered, "no such entry: foo")
}

func TestChainRenderWithTraceIncludesLocations(t *testing.T) {
	c := wcerr.NewChain(wcerr.CodeIO, "disk full")
	c.Trace("install/install.go", 10)

	rendered := c.Render(true)
	require.Contains(t, rendered, "install/install.go:10")
}

func TestChainReleaseUnwindsRefcounts(t *testing.T) {
	inner := wcerr.NewChain(wcerr.CodeEntryNotFound, "missing")
	outer := inner.Wrap(wcerr.CodeObstructedUpdate, "obstructed")

	nodes := outer.Nodes()
	require.Len(t, nodes, 2)
	require.Equal(t, 2, nodes[1].Refcount()) // shared by inner and outer

	outer.Release()
	require.Equal(t, 1, outer.Nodes()[1].Refcount())
}
