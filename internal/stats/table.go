package stats

import (
	"seqqc/internal/codec"
)

// countTable is a growable per-position counter table. Each position owns
// a row of width slots; width is a power of two so the flat offset of
// (position, slot) is a shift and an OR. Rows are pre-sized for the common
// short-read case and grown on demand, so callers never branch on which
// storage region a position lives in.
type countTable struct {
	shift     uint
	width     int
	positions int
	data      []uint64
}

func newCountTable(width, positions int) (countTable, error) {
	shift, err := codec.Log2Exact(uint64(width))
	if err != nil {
		return countTable{}, err
	}
	return countTable{
		shift:     shift,
		width:     width,
		positions: positions,
		data:      make([]uint64, positions<<shift),
	}, nil
}

// ensure grows the table to cover position pos.
func (t *countTable) ensure(pos int) {
	if pos < t.positions {
		return
	}
	need := (pos + 1) << t.shift
	if need > len(t.data) {
		t.data = append(t.data, make([]uint64, need-len(t.data))...)
	}
	t.positions = pos + 1
}

// add accumulates v into (pos, slot), growing the table as needed.
func (t *countTable) add(pos int, slot, v uint64) {
	t.ensure(pos)
	t.data[uint64(pos)<<t.shift|slot] += v
}

// incr increments (pos, slot) by one, growing the table as needed.
func (t *countTable) incr(pos int, slot uint64) {
	t.add(pos, slot, 1)
}

// at returns the count at (pos, slot); zero for positions never touched.
func (t *countTable) at(pos int, slot uint64) uint64 {
	if pos >= t.positions {
		return 0
	}
	return t.data[uint64(pos)<<t.shift|slot]
}

// tileTable accumulates per-tile, per-position quality sums and per-tile
// record counts. Tiles are sparse, so rows are keyed by tile id rather
// than laid out densely up to the maximum tile.
type tileTable struct {
	quality map[int][]float64
	count   map[int]uint64
}

func newTileTable() tileTable {
	return tileTable{
		quality: make(map[int][]float64),
		count:   make(map[int]uint64),
	}
}

// add accumulates a quality value for tile at position pos.
func (t *tileTable) add(tile, pos int, quality float64) {
	row := t.quality[tile]
	for len(row) <= pos {
		row = append(row, 0)
	}
	row[pos] += quality
	t.quality[tile] = row
}
