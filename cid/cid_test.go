package cid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dwnlabs/dwn-core/cid"
)

type sample struct {
	B string `cbor:"b"`
	A string `cbor:"a"`
}

func TestStringIsDeterministicRegardlessOfFieldOrder(t *testing.T) {
	c1, err := cid.String(sample{A: "x", B: "y"})
	require.NoError(t, err)

	c2, err := cid.String(map[string]string{"b": "y", "a": "x"})
	require.NoError(t, err)

	require.Equal(t, c1, c2)
}

func TestStringDiffersForDifferentInputs(t *testing.T) {
	c1, err := cid.String(sample{A: "x", B: "y"})
	require.NoError(t, err)

	c2, err := cid.String(sample{A: "x", B: "z"})
	require.NoError(t, err)

	require.NotEqual(t, c1, c2)
}

func TestEqualComparesParsedForm(t *testing.T) {
	c, err := cid.String(sample{A: "x", B: "y"})
	require.NoError(t, err)

	eq, err := cid.Equal(c, c)
	require.NoError(t, err)
	require.True(t, eq)

	eq, err = cid.Equal(c, "bafkreicidthatdoesnotmatch")
	require.Error(t, err)
	require.False(t, eq)
}

func TestLessIsLexicographic(t *testing.T) {
	require.True(t, cid.Less("a", "b"))
	require.False(t, cid.Less("b", "a"))
}

func TestSumBytesIsContentAddressed(t *testing.T) {
	c1, err := cid.SumBytes([]byte("hello"))
	require.NoError(t, err)

	c2, err := cid.SumBytes([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, c1.String(), c2.String())

	c3, err := cid.SumBytes([]byte("world"))
	require.NoError(t, err)
	require.NotEqual(t, c1.String(), c3.String())
}
