package mem_test

import (
	"testing"

	"github.com/fifth-forth/fifth/internal/mem"
	"github.com/stretchr/testify/require"
)

func TestPagedBytes_basic(t *testing.T) {
	var m mem.Bytes
	m.PageSize = 4

	val, err := m.Load(0)
	require.NoError(t, err, "unexpected load error")
	require.Equal(t, byte(0), val, "expected 0 @0")
	require.Equal(t, uint(0), m.Size(), "expected 0 initial size")

	require.NoError(t, m.Stor(0, 9), "must stor @0")
	val, err = m.Load(0)
	require.NoError(t, err, "unexpected load error")
	require.Equal(t, byte(9), val, "expected 9 @0")

	require.NoError(t, m.Stor(0x9, 1, 2, 3, 4, 5, 6), "must stor @0x9")
	require.Equal(t, mem.PagedDump[byte]{
		Bases: []uint{0x0, 0x8, 0xc},
		Sizes: []uint{4, 4, 4},
		Pages: [][]byte{
			{9, 0, 0, 0},
			{0, 1, 2, 3},
			{4, 5, 6, 0},
		},
	}, m.Dump(), "expected a page hole")

	buf := make([]byte, 6)
	require.NoError(t, m.LoadInto(0x8, buf))
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5}, buf)
}

func TestPagedBytes_limit(t *testing.T) {
	var m mem.Bytes
	m.PageSize = 4
	m.Limit = 8

	require.NoError(t, m.Stor(4, 1, 2, 3, 4))
	err := m.Stor(8, 1)
	require.Error(t, err)
	var lim mem.LimitError
	require.ErrorAs(t, err, &lim)
	require.Equal(t, "stor", lim.Op)
}
