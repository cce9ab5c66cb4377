package reader

// tileSampleMask selects one record in eight for tile statistics, the
// cadence the report values depend on.
const tileSampleMask = 7

// tileParser extracts the flow-cell tile id from Illumina-style read
// names. The split point inside the colon-separated name is determined
// once, from the first sampled record, and reused for the whole stream.
type tileParser struct {
	enabled    bool
	splitKnown bool
	splitPoint int // colon-separated field index holding the tile
	records    uint64
}

func newTileParser(enabled bool) tileParser {
	return tileParser{enabled: enabled}
}

// next returns the tile id for the record whose name is given, or zero.
// It must be called exactly once per record, before the record is
// yielded, so the 1-in-8 sampling cadence lines up with record indices.
func (t *tileParser) next(name []byte) int {
	rec := t.records
	t.records++

	if !t.enabled || rec&tileSampleMask != 0 {
		return 0
	}

	if !t.splitKnown {
		t.learnSplitPoint(name)
		return 0
	}
	return t.extract(name)
}

// learnSplitPoint counts colons in the first sampled name: six or more
// puts the tile in the 5th field, four or more in the 3rd; anything else
// permanently disables tile tracking for the stream.
func (t *tileParser) learnSplitPoint(name []byte) {
	colons := 0
	for _, c := range name {
		if c == ':' {
			colons++
		}
	}
	switch {
	case colons >= 6:
		t.splitPoint = 4
	case colons >= 4:
		t.splitPoint = 2
	default:
		t.enabled = false
		return
	}
	t.splitKnown = true
}

func (t *tileParser) extract(name []byte) int {
	field := 0
	i := 0
	for field < t.splitPoint {
		for i < len(name) && name[i] != ':' {
			i++
		}
		if i == len(name) {
			return 0
		}
		i++ // pass the colon
		field++
	}

	tile := 0
	for ; i < len(name) && name[i] >= '0' && name[i] <= '9'; i++ {
		tile = tile*10 + int(name[i]-'0')
	}
	return tile
}
