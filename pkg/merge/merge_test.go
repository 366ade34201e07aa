package merge_test

import (
	"testing"

	"github.com/go-wc/wcedit/pkg/merge"
	"github.com/stretchr/testify/require"
)

var labels = merge.Labels{Ancestor: "ancestor", Local: "mine", Incoming: "theirs"}

func TestMergeCleanWhenOnlyOneSideChanges(t *testing.T) {
	ancestor := []byte("one\ntwo\nthree\n")
	local := []byte("one\nTWO\nthree\n")
	incoming := ancestor

	tool := merge.NewDefaultTool()
	res, err := tool.Merge(ancestor, local, incoming, labels)
	require.NoError(t, err)
	require.False(t, res.Conflicted)
	require.Equal(t, "one\nTWO\nthree\n", string(res.Merged))
}

func TestMergeCleanWhenBothSidesAgree(t *testing.T) {
	ancestor := []byte("one\ntwo\nthree\n")
	local := []byte("one\nTWO\nthree\n")
	incoming := []byte("one\nTWO\nthree\n")

	tool := merge.NewDefaultTool()
	res, err := tool.Merge(ancestor, local, incoming, labels)
	require.NoError(t, err)
	require.False(t, res.Conflicted)
	require.Equal(t, "one\nTWO\nthree\n", string(res.Merged))
}

func TestMergeConflictWhenBothSidesDiffer(t *testing.T) {
	ancestor := []byte("one\ntwo\nthree\n")
	local := []byte("one\nLOCAL\nthree\n")
	incoming := []byte("one\nINCOMING\nthree\n")

	tool := merge.NewDefaultTool()
	res, err := tool.Merge(ancestor, local, incoming, labels)
	require.NoError(t, err)
	require.True(t, res.Conflicted)

	merged := string(res.Merged)
	require.Contains(t, merged, "<<<<<<< mine")
	require.Contains(t, merged, "LOCAL")
	require.Contains(t, merged, "=======")
	require.Contains(t, merged, "INCOMING")
	require.Contains(t, merged, ">>>>>>> theirs")
}

func TestMergeBothSidesInsertSameLines(t *testing.T) {
	ancestor := []byte("a\nb\n")
	local := []byte("a\nb\nc\n")
	incoming := []byte("a\nb\nc\n")

	tool := merge.NewDefaultTool()
	res, err := tool.Merge(ancestor, local, incoming, labels)
	require.NoError(t, err)
	require.False(t, res.Conflicted)
	require.Equal(t, "a\nb\nc\n", string(res.Merged))
}
