// Package checksum implements the content-checksum primitives the update
// editor treats as an external collaborator: MD5 digests of pristine
// fulltext, accepted in either hex or legacy base64 encoding.
package checksum

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
)

// Checksum is an MD5 digest of file content (16 raw bytes).
type Checksum [md5.Size]byte

// Zero is the all-zero checksum, used for files with no recorded digest.
var Zero Checksum

// New computes the checksum of data in one shot.
func New(data []byte) Checksum {
	return Checksum(md5.Sum(data))
}

// IsZero reports whether c is the zero checksum.
func (c Checksum) IsZero() bool {
	return c == Zero
}

// Hex returns the lowercase hex encoding, the canonical form written to
// entries and logs.
func (c Checksum) Hex() string {
	return hex.EncodeToString(c[:])
}

// Base64 returns the legacy base64 encoding some older producers still
// emit for base_checksum attributes.
func (c Checksum) Base64() string {
	return base64.StdEncoding.EncodeToString(c[:])
}

// Equal reports whether two checksums carry the same digest.
func (c Checksum) Equal(other Checksum) bool {
	return c == other
}

// String implements fmt.Stringer, returning the hex form.
func (c Checksum) String() string {
	return c.Hex()
}

// Parse decodes a checksum from either its hex or base64 textual form, as
// required by apply_textdelta's "both hex and legacy base-64 encodings
// permitted" rule.
func Parse(s string) (Checksum, error) {
	if s == "" {
		return Zero, nil
	}
	if len(s) == hex.EncodedLen(md5.Size) {
		if raw, err := hex.DecodeString(s); err == nil {
			var c Checksum
			copy(c[:], raw)
			return c, nil
		}
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil && len(raw) == md5.Size {
		var c Checksum
		copy(c[:], raw)
		return c, nil
	}
	return Zero, fmt.Errorf("checksum: %q is neither valid hex nor base64 MD5", s)
}

// Accumulator incrementally builds a checksum across a stream of delta
// windows, mirroring the 128-bit MD5 accumulator a file state keeps open
// from the first apply_textdelta window through close_file.
type Accumulator struct {
	h hash.Hash
}

// NewAccumulator starts a fresh running digest.
func NewAccumulator() *Accumulator {
	return &Accumulator{h: md5.New()}
}

// Write feeds another chunk of reconstituted fulltext into the digest. It
// never returns an error; the signature matches io.Writer so an
// Accumulator can be used as the sink for a window-application handler.
func (a *Accumulator) Write(p []byte) (int, error) {
	return a.h.Write(p)
}

// Sum finalizes and returns the accumulated checksum. Sum does not reset
// the accumulator; callers that need to keep writing should not call Sum
// until the stream is closed.
func (a *Accumulator) Sum() Checksum {
	var c Checksum
	copy(c[:], a.h.Sum(nil))
	return c
}
