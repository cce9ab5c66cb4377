package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqqc/internal/limits"
	"seqqc/internal/reader"
)

func record(seq, qual string) reader.Record {
	return reader.Record{Seq: []byte(seq), Qual: []byte(qual)}
}

func newStats(t *testing.T, opts Options) *Stats {
	t.Helper()
	s, err := New(limits.Default(), opts)
	require.NoError(t, err)
	return s
}

func TestNew_KmerSizeBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		k       int
		wantK   int
		wantErr bool
	}{
		{name: "zero selects default", k: 0, wantK: 7},
		{name: "lower bound", k: 2, wantK: 2},
		{name: "upper bound", k: 10, wantK: 10},
		{name: "too small", k: 1, wantErr: true},
		{name: "too large", k: 11, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s, err := New(limits.Default(), Options{KmerSize: tt.k})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrKmerSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantK, s.KmerSize)
		})
	}
}

func TestIngest_BaseAndQualityCounts(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	s.Ingest(record("ACTG", "IIII")) // quality 40 at every base
	s.Ingest(record("AAAA", "####")) // quality 2 at every base

	assert.Equal(t, uint64(2), s.NumReads)
	assert.Equal(t, uint64(2), s.baseCount.at(0, 0)) // A at position 0
	assert.Equal(t, uint64(1), s.baseCount.at(1, 1)) // C at position 1
	assert.Equal(t, uint64(1), s.baseCount.at(2, 2)) // T at position 2
	assert.Equal(t, uint64(1), s.baseCount.at(3, 3)) // G at position 3

	assert.Equal(t, uint64(1), s.positionQuality.at(0, 40))
	assert.Equal(t, uint64(1), s.positionQuality.at(0, 2))
	assert.Equal(t, uint64(40), s.baseQuality.at(1, 1))

	// Rounded average read qualities.
	assert.Equal(t, uint64(1), s.QualityCount[40])
	assert.Equal(t, uint64(1), s.QualityCount[2])
}

func TestIngest_NBasesResetKmersAndCountSeparately(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{KmerSize: 2})
	s.Ingest(record("ANA", "III"))

	assert.Equal(t, uint64(1), s.nBaseCount.at(1, 0))
	assert.Equal(t, uint64(0), s.baseCount.at(1, 0))
	assert.Equal(t, uint64(1), s.baseCount.at(0, 0))
	assert.Equal(t, uint64(1), s.baseCount.at(2, 0))

	// The N at position 1 restarts the k-mer window, so no 2-mer
	// completes anywhere in this read.
	for _, count := range s.kmerCount {
		assert.Equal(t, uint64(0), count)
	}
}

func TestIngest_KmerSamplingCadence(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{KmerSize: 2})

	// Read 1 is sampled, reads 2..32 are not, read 33 is again.
	for i := 0; i < 33; i++ {
		s.Ingest(record("AC", "II"))
	}

	// AC packs to 0b0001; the 2-mer completes at position 1.
	ac := uint64(1)
	assert.Equal(t, uint64(2), s.kmerCount[uint64(1)<<s.kmerShift|ac])
}

func TestIngest_GCHistogram(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	s.Ingest(record("GCGC", "IIII"))
	s.Ingest(record("ATAT", "IIII"))
	s.Ingest(record("ACGT", "IIII"))

	assert.Equal(t, uint64(1), s.GCCount[100])
	assert.Equal(t, uint64(1), s.GCCount[0])
	assert.Equal(t, uint64(1), s.GCCount[50])
}

func TestIngest_LongReadGrowsTables(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	long := strings.Repeat("A", 1500)
	quals := strings.Repeat("I", 1500)
	s.Ingest(record(long, quals))

	assert.Equal(t, 1500, s.MaxReadLength)
	require.Greater(t, len(s.ReadLengthFreq), 1500)
	assert.Equal(t, uint64(1), s.ReadLengthFreq[1500])
	assert.Equal(t, uint64(1), s.baseCount.at(1499, 0))
}

func TestIngest_DuplicationBoundedInsertion(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{DupUniqueCutoff: 2})
	s.Ingest(record("AAAA", "IIII"))
	s.Ingest(record("CCCC", "IIII"))
	s.Ingest(record("GGGG", "IIII")) // past the cutoff, never inserted
	s.Ingest(record("AAAA", "IIII")) // known key, still counted

	assert.Equal(t, 2, s.UniqueSequences())
	assert.Equal(t, uint64(2), s.SequenceCount("AAAA"))
	assert.Equal(t, uint64(1), s.SequenceCount("CCCC"))
	assert.Equal(t, uint64(0), s.SequenceCount("GGGG"))
	assert.Equal(t, uint64(2), s.CountAtLimit)
}

func TestIngest_CountAtLimitTracksReadsUnderCutoff(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	s.Ingest(record("AAAA", "IIII"))
	s.Ingest(record("CCCC", "IIII"))
	s.Ingest(record("AAAA", "IIII"))

	// Cutoff never reached, so every read advanced the limit marker.
	assert.Equal(t, s.NumReads, s.CountAtLimit)
}

func TestIngest_LongReadsTruncatedForDuplication(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	long := strings.Repeat("A", 80)
	s.Ingest(record(long, strings.Repeat("I", 80)))
	s.Ingest(record(long, strings.Repeat("I", 80)))

	key := strings.Repeat("A", 50)
	assert.Equal(t, uint64(2), s.SequenceCount(key))
	assert.Equal(t, uint64(0), s.SequenceCount(long))
}

func TestIngest_TileAccumulation(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	s.Ingest(reader.Record{Tile: 2103, Seq: []byte("AC"), Qual: []byte("II")})
	s.Ingest(reader.Record{Tile: 2103, Seq: []byte("AC"), Qual: []byte("##")})
	s.Ingest(reader.Record{Tile: 1101, Seq: []byte("AC"), Qual: []byte("II")})

	assert.Equal(t, uint64(2), s.TileCount(2103))
	assert.Equal(t, uint64(1), s.TileCount(1101))
	assert.ElementsMatch(t, []int{2103, 1101}, s.TileIDs())
}

func TestIngest_TileAboveMaximumIgnored(t *testing.T) {
	t.Parallel()

	s := newStats(t, Options{})
	s.Ingest(reader.Record{Tile: maxTiles + 1, Seq: []byte("AC"), Qual: []byte("II")})

	assert.Empty(t, s.TileIDs())
	assert.Equal(t, uint64(1), s.NumReads)
}

func TestQualityValue_Clamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), qualityValue('!'))
	assert.Equal(t, uint64(0), qualityValue(' '))
	assert.Equal(t, uint64(40), qualityValue('I'))
	assert.Equal(t, uint64(numQualityValues-1), qualityValue(255))
}
