package wclog_test

import (
	"os"
	"testing"

	"github.com/go-wc/wcedit/pkg/repository/scpath"
	"github.com/go-wc/wcedit/pkg/wclog"
	"github.com/go-wc/wcedit/pkg/wcpath"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	calls []string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{}
}

func admin(t *testing.T) *wcpath.Admin {
	t.Helper()
	a := wcpath.New(scpath.AbsolutePath(t.TempDir()))
	require.NoError(t, a.Ensure())
	return a
}

func (h *recordingHandler) ModifyEntry(attrs map[string]string) error {
	h.calls = append(h.calls, "modify-entry:"+attrs["name"])
	return nil
}
func (h *recordingHandler) DeleteEntry(name string) error {
	h.calls = append(h.calls, "delete-entry:"+name)
	return nil
}
func (h *recordingHandler) CopyAndTranslate(attrs map[string]string) error {
	h.calls = append(h.calls, "copy-and-translate:"+attrs["src"]+"->"+attrs["dest"])
	return nil
}
func (h *recordingHandler) CopyAndDetranslate(attrs map[string]string) error {
	h.calls = append(h.calls, "copy-and-detranslate:"+attrs["src"]+"->"+attrs["dest"])
	return nil
}
func (h *recordingHandler) Move(src, dest string) error {
	h.calls = append(h.calls, "move:"+src+"->"+dest)
	return nil
}
func (h *recordingHandler) Remove(path string) error {
	h.calls = append(h.calls, "remove:"+path)
	return nil
}
func (h *recordingHandler) SyncFileFlags(attrs map[string]string) error {
	h.calls = append(h.calls, "sync-file-flags:"+attrs["path"])
	return nil
}
func (h *recordingHandler) Merge(attrs map[string]string) error {
	h.calls = append(h.calls, "merge:"+attrs["target"])
	return nil
}
func (h *recordingHandler) ModifyWcProp(name, propname, propval string) error {
	h.calls = append(h.calls, "modify-wcprop:"+name+":"+propname)
	return nil
}

func TestCommitAndRunExecutesThenRemovesLog(t *testing.T) {
	a := admin(t)
	l := wclog.New(a)
	l.ModifyEntry("foo", map[string]string{"revision": "7"})
	l.Move("/tmp/src", "/tmp/dest")
	l.Remove("/tmp/src")

	h := newRecordingHandler()
	require.NoError(t, l.CommitAndRun(h))

	require.Equal(t, []string{
		"modify-entry:foo",
		"move:/tmp/src->/tmp/dest",
		"remove:/tmp/src",
	}, h.calls)

	_, err := os.Stat(a.LogPath().String())
	require.True(t, os.IsNotExist(err), "log file should be removed after a clean run")
}

func TestReplayRunsAWrittenButNotYetRunLog(t *testing.T) {
	a := admin(t)
	l := wclog.New(a)
	l.DeleteEntry("bar")
	l.ModifyWcProp("bar", "wc:token", "opaque-value")
	require.NoError(t, l.Write())

	h := newRecordingHandler()
	outcome, err := wclog.Replay(a, h)
	require.NoError(t, err)
	require.True(t, outcome.Replayed)
	require.Equal(t, 2, outcome.Commands)
	require.Equal(t, []string{"delete-entry:bar", "modify-wcprop:bar:wc:token"}, h.calls)

	_, err = os.Stat(a.LogPath().String())
	require.True(t, os.IsNotExist(err))
}

func TestReplayWithNoLogIsANoop(t *testing.T) {
	a := admin(t)
	h := newRecordingHandler()
	outcome, err := wclog.Replay(a, h)
	require.NoError(t, err)
	require.False(t, outcome.Replayed)
	require.Empty(t, h.calls)
}

func TestReplayIsIdempotentAfterPartialCrash(t *testing.T) {
	a := admin(t)
	l := wclog.New(a)
	l.ModifyEntry("foo", map[string]string{"revision": "7"})
	l.DeleteEntry("stale")
	require.NoError(t, l.Write())

	h1 := newRecordingHandler()
	outcome1, err := wclog.Replay(a, h1)
	require.NoError(t, err)
	require.True(t, outcome1.Replayed)

	// A second replay attempt (simulating a crash recovery pass that
	// runs again before the caller notices the log was already
	// cleared) must find nothing left to do.
	h2 := newRecordingHandler()
	outcome2, err := wclog.Replay(a, h2)
	require.NoError(t, err)
	require.False(t, outcome2.Replayed)
	require.Empty(t, h2.calls)
}

func TestEscapingRoundTripsSpecialCharacters(t *testing.T) {
	a := admin(t)
	l := wclog.New(a)
	l.ModifyEntry("weird<>&\"'name", map[string]string{"url": "https://example/a&b<c>d\"e'f"})
	require.NoError(t, l.Write())

	h := newRecordingHandler()
	outcome, err := wclog.Replay(a, h)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Commands)
	require.Equal(t, []string{"modify-entry:weird<>&\"'name"}, h.calls)
}
