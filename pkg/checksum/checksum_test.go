package checksum_test

import (
	"testing"

	"github.com/go-wc/wcedit/pkg/checksum"
	"github.com/stretchr/testify/require"
)

func TestNewAndHex(t *testing.T) {
	c := checksum.New([]byte("hello\n"))
	require.Len(t, c.Hex(), 32)
	require.False(t, c.IsZero())
}

func TestParseRoundTrip(t *testing.T) {
	c := checksum.New([]byte("hello\n"))

	fromHex, err := checksum.Parse(c.Hex())
	require.NoError(t, err)
	require.True(t, fromHex.Equal(c))

	fromB64, err := checksum.Parse(c.Base64())
	require.NoError(t, err)
	require.True(t, fromB64.Equal(c))
}

func TestParseEmptyIsZero(t *testing.T) {
	c, err := checksum.Parse("")
	require.NoError(t, err)
	require.True(t, c.IsZero())
}

func TestParseInvalid(t *testing.T) {
	_, err := checksum.Parse("not-a-checksum")
	require.Error(t, err)
}

func TestAccumulatorMatchesOneShot(t *testing.T) {
	acc := checksum.NewAccumulator()
	_, _ = acc.Write([]byte("hel"))
	_, _ = acc.Write([]byte("lo\n"))

	require.True(t, acc.Sum().Equal(checksum.New([]byte("hello\n"))))
}
