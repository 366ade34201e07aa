package install

import (
	"os"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/go-wc/wcedit/pkg/index"
	"github.com/go-wc/wcedit/pkg/repository/scpath"
)

// HasLocalMods reports whether the working file at workingPath differs
// from its pristine checksum (§4.3 step 5). When idx is non-nil and
// already carries a stat-cache entry for relPath, a cheap size/mtime
// comparison answers the question without reading the file; otherwise
// it falls back to hashing the working file and comparing against
// pristine, the definitive check.
//
// The stat cache here is repurposed from the teacher's own change-
// detection index rather than reading git's blob hash: IsModified only
// tells us the file differs from *some* recorded snapshot, so a cache
// hit that says "unmodified" is trusted directly, while a cache miss or
// a reported modification always falls through to the MD5 comparison
// against the entries-table checksum, which is this package's source of
// truth.
func HasLocalMods(workingPath scpath.AbsolutePath, idx *index.Index, relPath scpath.RelativePath, pristine checksum.Checksum) (bool, error) {
	info, err := os.Stat(workingPath.String())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if idx != nil {
		if entry, ok := idx.Get(relPath); ok && !entry.IsModified(info) {
			return false, nil
		}
	}

	data, err := os.ReadFile(workingPath.String())
	if err != nil {
		return false, err
	}
	return !checksum.New(data).Equal(pristine), nil
}
