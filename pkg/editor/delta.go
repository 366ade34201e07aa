package editor

import (
	"os"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/common/fileops"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
)

// deltaHandler streams a file's incoming fulltext to its staged tmp
// text-base path, in repository-normal form, while accumulating its
// checksum. Real svndiff window application is outside this package's
// scope (§2 Non-goals); the repository side here always hands the
// engine a full window, which this handler simply persists.
type deltaHandler struct {
	file *os.File
	acc  *checksum.Accumulator
	fb   *FileBaton
	path scpath.AbsolutePath
}

func newDeltaHandler(fb *FileBaton, path scpath.AbsolutePath) (*deltaHandler, error) {
	if err := fileops.EnsureParentDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path.String())
	if err != nil {
		return nil, err
	}
	return &deltaHandler{file: f, acc: checksum.NewAccumulator(), fb: fb, path: path}, nil
}

func (h *deltaHandler) Write(p []byte) (int, error) {
	if _, err := h.acc.Write(p); err != nil {
		return 0, err
	}
	return h.file.Write(p)
}

func (h *deltaHandler) Close() error {
	if err := h.file.Sync(); err != nil {
		h.file.Close()
		return err
	}
	if err := h.file.Close(); err != nil {
		return err
	}
	h.fb.hasNewText = true
	h.fb.tmpTextPath = h.path
	h.fb.newChecksum = h.acc.Sum()
	return nil
}
