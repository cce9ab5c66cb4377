// Package stats implements the single-pass statistics accumulator and the
// post-pass summarizer for sequencing-read quality control.
package stats

import (
	"errors"
	"fmt"
	"math"

	"seqqc/internal/codec"
	"seqqc/internal/limits"
	"seqqc/internal/reader"
)

// Table sizing and scan constants.
const (
	// defaultPositions pre-sizes the per-position tables for the common
	// short/medium read case; tables grow on demand past it.
	defaultPositions = 1000

	// baseQualityOffset converts ASCII quality characters to scores.
	baseQualityOffset = 33

	// numQualityValues is the smallest power of two covering all
	// Illumina quality scores.
	numQualityValues = 64

	numNucleotides = 4

	// maxTiles bounds accepted tile ids.
	maxTiles = 65536

	// kmerMaxPositions caps the read positions k-mer counts are kept for.
	kmerMaxPositions = 500

	// kmerSampleMask selects one record in 32 for k-mer counting.
	kmerSampleMask = 31

	// poorQualityThreshold is the average quality below which a read
	// counts as poor.
	poorQualityThreshold = 20

	// overrepMinFrac is the fraction of total reads a sequence must
	// exceed to be reported as overrepresented.
	overrepMinFrac = 0.001
)

// Duplication tracking bounds.
const (
	// dupUniqueCutoff is the number of distinct sequences tracked before
	// extrapolation takes over.
	dupUniqueCutoff = 100000

	// dupReadMaxSize is the longest read stored whole for duplication
	// hashing; longer reads are truncated to dupReadTruncate.
	dupReadMaxSize  = 75
	dupReadTruncate = 50
)

// K-mer size bounds.
const (
	MinKmerSize     = 2
	MaxKmerSize     = 10
	DefaultKmerSize = 7
)

// ErrKmerSize is returned for k-mer sizes outside [MinKmerSize, MaxKmerSize].
var ErrKmerSize = errors.New("k-mer size out of range")

// Options tune the accumulator. The zero value selects the defaults used
// in production; tests lower the cutoffs.
type Options struct {
	KmerSize        int
	DupUniqueCutoff uint64
	OverrepMinFrac  float64
	PoorQuality     int
}

// SeqCount pairs an observed sequence with its raw observation count.
type SeqCount struct {
	Seq   string
	Count uint64
}

// Verdicts holds the pass/warn/fail classification of every analysis.
type Verdicts struct {
	BasicStatistics    string
	PerBaseQuality     string
	PerTileQuality     string
	PerSequenceQuality string
	PerBaseContent     string
	GCContent          string
	NContent           string
	LengthDistribution string
	Duplication        string
	Overrepresented    string
	KmerContent        string
	AdapterContent     string
}

// Stats is the aggregate state of one input file: accumulation tables
// mutated record by record during the scan, then derived summary fields
// filled in by Summarize, after which the value is read-only. A Stats is
// owned by exactly one scan; it is never shared across files or
// goroutines.
type Stats struct {
	KmerSize int

	// Run totals.
	NumReads      uint64
	TotalBases    uint64
	MaxReadLength int
	MinReadLength int
	AvgReadLength uint64
	AvgGC         float64
	NumPoor       uint64

	// Duplication tracking. CountAtLimit is the read count at the moment
	// the unique-sequence set last advanced; it equals NumReads whenever
	// the cutoff was never reached.
	CountAtLimit  uint64
	numUniqueSeen uint64

	// Histograms indexed by derived per-read values.
	ReadLengthFreq []uint64                 // indexed by exact read length
	GCCount        [101]uint64              // GC percent, rounded
	TheoreticalGC  [101]float64             // filled by Summarize
	QualityCount   [numQualityValues]uint64 // rounded average quality

	// Per-position tables.
	baseCount       countTable // nucleotide code x position
	nBaseCount      countTable
	baseQuality     countTable // quality sums per nucleotide code
	nBaseQuality    countTable
	positionQuality countTable // quality value x position

	// K-mer table: position << (2k) | packed k-mer.
	kmerCount []uint64
	kmerShift uint
	kmerMask  uint64

	tiles    tileTable
	seqCount map[string]uint64

	// Analysis gates resolved from the threshold set. Skipping a
	// disabled analysis must be invisible to every enabled one.
	doDuplication bool
	doKmer        bool
	doTile        bool
	doGC          bool

	dupCutoff   uint64
	overrepFrac float64
	poorQuality int

	// Derived by Summarize.
	CumulativeLengthFreq []uint64
	Mean                 []float64
	LDecile, LQuartile   []int
	Median               []int
	UQuartile, UDecile   []int
	APct, CPct, TPct     []float64
	GPct, NPct           []float64
	QualityMode          int
	GCDeviation          float64
	PctDeduplicated      [16]float64
	PctTotal             [16]float64
	TotalDeduplicatedPct float64
	Overrep              []SeqCount
	AdapterPct           [][]float64 // position x adapter, cumulative percent
	Verdicts             Verdicts
}

// New allocates the statistic tables for one input file.
func New(lim limits.Limits, opts Options) (*Stats, error) {
	k := opts.KmerSize
	if k == 0 {
		k = DefaultKmerSize
	}
	if k < MinKmerSize || k > MaxKmerSize {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrKmerSize, k, MinKmerSize, MaxKmerSize)
	}

	s := &Stats{
		KmerSize:    k,
		kmerShift:   uint(2 * k),
		kmerMask:    codec.Mask(k),
		tiles:       newTileTable(),
		seqCount:    make(map[string]uint64),
		dupCutoff:   dupUniqueCutoff,
		overrepFrac: overrepMinFrac,
		poorQuality: poorQualityThreshold,

		doDuplication: lim.Enabled("duplication") || lim.Enabled("overrepresented"),
		doKmer:        lim.Enabled("kmer") || lim.Enabled("adapter"),
		doTile:        lim.Enabled("tile"),
		doGC:          lim.Enabled("gc_sequence"),
	}
	if opts.DupUniqueCutoff > 0 {
		s.dupCutoff = opts.DupUniqueCutoff
	}
	if opts.OverrepMinFrac > 0 {
		s.overrepFrac = opts.OverrepMinFrac
	}
	if opts.PoorQuality > 0 {
		s.poorQuality = opts.PoorQuality
	}

	var err error
	if s.baseCount, err = newCountTable(numNucleotides, defaultPositions); err != nil {
		return nil, err
	}
	if s.nBaseCount, err = newCountTable(1, defaultPositions); err != nil {
		return nil, err
	}
	if s.baseQuality, err = newCountTable(numNucleotides, defaultPositions); err != nil {
		return nil, err
	}
	if s.nBaseQuality, err = newCountTable(1, defaultPositions); err != nil {
		return nil, err
	}
	if s.positionQuality, err = newCountTable(numQualityValues, defaultPositions); err != nil {
		return nil, err
	}

	if s.doKmer {
		s.kmerCount = make([]uint64, uint64(kmerMaxPositions)<<s.kmerShift)
	}
	s.ReadLengthFreq = make([]uint64, defaultPositions+1)
	return s, nil
}

// Ingest folds one record into the tables. Records must arrive in stream
// order; the k-mer sampling cadence is derived from the running read
// count.
func (s *Stats) Ingest(rec reader.Record) {
	s.NumReads++
	kmerSampled := s.doKmer && (s.NumReads-1)&kmerSampleMask == 0
	tile := rec.Tile
	if !s.doTile || tile >= maxTiles {
		tile = 0
	}

	var (
		gc          uint64
		qualSum     uint64
		curKmer     uint64
		basesSinceN = 1
	)

	for i := 0; i < len(rec.Seq); i++ {
		base := rec.Seq[i]
		q := qualityValue(rec.Qual[i])

		if base == 'N' {
			s.nBaseCount.incr(i, 0)
			s.nBaseQuality.add(i, 0, q)
			basesSinceN = 1 // restart the k-mer window
		} else {
			code := codec.Encode(base)
			gc += code & 1 // C and G carry the low bit
			s.baseCount.incr(i, code)
			s.baseQuality.add(i, code, q)

			if kmerSampled && i < kmerMaxPositions {
				curKmer = curKmer<<2 | code
				if basesSinceN == s.KmerSize {
					s.kmerCount[uint64(i)<<s.kmerShift|curKmer&s.kmerMask]++
				} else {
					basesSinceN++
				}
			}
		}

		s.positionQuality.incr(i, q)
		if tile > 0 {
			s.tiles.add(tile, i, float64(q))
		}
		qualSum += q
	}

	s.finishRecord(rec, tile, gc, qualSum)
}

// finishRecord applies the per-record (as opposed to per-base) updates.
func (s *Stats) finishRecord(rec reader.Record, tile int, gc, qualSum uint64) {
	length := len(rec.Seq)
	for len(s.ReadLengthFreq) <= length {
		s.ReadLengthFreq = append(s.ReadLengthFreq, 0)
	}
	s.ReadLengthFreq[length]++
	if length > s.MaxReadLength {
		s.MaxReadLength = length
	}

	if length > 0 {
		if s.doGC {
			s.GCCount[int(math.Round(100*float64(gc)/float64(length)))]++
		}
		avgQ := int(math.Round(float64(qualSum) / float64(length)))
		if avgQ >= numQualityValues {
			avgQ = numQualityValues - 1
		}
		s.QualityCount[avgQ]++
	}

	if s.doDuplication {
		s.countDuplicate(rec.Seq)
	}
	if tile > 0 {
		s.tiles.count[tile]++
	}
}

// countDuplicate updates the bounded duplication map. New keys stop being
// inserted once the unique cutoff is reached, but counts for known keys
// keep incrementing; CountAtLimit advances only while under the cutoff.
func (s *Stats) countDuplicate(seq []byte) {
	if len(seq) > dupReadMaxSize {
		seq = seq[:dupReadTruncate]
	}
	key := string(seq)

	if _, ok := s.seqCount[key]; ok {
		s.seqCount[key]++
		if s.numUniqueSeen < s.dupCutoff {
			s.CountAtLimit = s.NumReads
		}
		return
	}
	if s.numUniqueSeen < s.dupCutoff {
		s.seqCount[key] = 1
		s.numUniqueSeen++
		s.CountAtLimit = s.NumReads
	}
}

// qualityValue converts an ASCII quality character to a score clamped
// into the table range.
func qualityValue(c byte) uint64 {
	if c < baseQualityOffset {
		return 0
	}
	q := uint64(c - baseQualityOffset)
	if q >= numQualityValues {
		return numQualityValues - 1
	}
	return q
}

// UniqueSequences returns the number of distinct sequence keys tracked.
func (s *Stats) UniqueSequences() int { return len(s.seqCount) }

// SequenceCount returns the raw observation count for a sequence key.
func (s *Stats) SequenceCount(seq string) uint64 { return s.seqCount[seq] }

// TileIDs returns the tile ids observed, unordered.
func (s *Stats) TileIDs() []int {
	ids := make([]int, 0, len(s.tiles.count))
	for id := range s.tiles.count {
		ids = append(ids, id)
	}
	return ids
}

// TileCount returns the number of sampled records seen for a tile.
func (s *Stats) TileCount(tile int) uint64 { return s.tiles.count[tile] }
