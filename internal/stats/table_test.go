package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqqc/internal/codec"
)

func TestNewCountTable_WidthMustBePowerOfTwo(t *testing.T) {
	t.Parallel()

	_, err := newCountTable(3, 10)
	assert.ErrorIs(t, err, codec.ErrNotPowerOfTwo)

	tbl, err := newCountTable(4, 10)
	require.NoError(t, err)
	assert.Equal(t, uint(2), tbl.shift)
	assert.Len(t, tbl.data, 40)
}

func TestCountTable_AddAndAt(t *testing.T) {
	t.Parallel()

	tbl, err := newCountTable(4, 8)
	require.NoError(t, err)

	tbl.incr(0, 1)
	tbl.incr(0, 1)
	tbl.add(3, 2, 5)

	assert.Equal(t, uint64(2), tbl.at(0, 1))
	assert.Equal(t, uint64(5), tbl.at(3, 2))
	assert.Equal(t, uint64(0), tbl.at(0, 0))
}

func TestCountTable_GrowsPastInitialPositions(t *testing.T) {
	t.Parallel()

	tbl, err := newCountTable(4, 2)
	require.NoError(t, err)

	tbl.incr(100, 3)

	assert.Equal(t, uint64(1), tbl.at(100, 3))
	assert.Equal(t, 101, tbl.positions)
	assert.Equal(t, uint64(0), tbl.at(50, 0))
}

func TestCountTable_AtPastEndIsZero(t *testing.T) {
	t.Parallel()

	tbl, err := newCountTable(1, 4)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), tbl.at(4, 0))
	assert.Equal(t, uint64(0), tbl.at(1000, 0))
}

func TestTileTable_AddGrowsRow(t *testing.T) {
	t.Parallel()

	tbl := newTileTable()
	tbl.add(2103, 0, 30)
	tbl.add(2103, 0, 34)
	tbl.add(2103, 5, 20)

	require.Len(t, tbl.quality[2103], 6)
	assert.Equal(t, float64(64), tbl.quality[2103][0])
	assert.Equal(t, float64(20), tbl.quality[2103][5])
	assert.Equal(t, float64(0), tbl.quality[2103][3])
}
