package reader

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzip(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())
	return path
}

func readAll(t *testing.T, src Source) []Record {
	t.Helper()
	var records []Record
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return records
		}
		require.NoError(t, err)
		records = append(records, Record{
			Tile: rec.Tile,
			Seq:  append([]byte(nil), rec.Seq...),
			Qual: append([]byte(nil), rec.Qual...),
		})
	}
}

const twoRecordFastq = "@r1\nACGT\n+\nIIII\n@r2\nGGCC\n+\n####\n"

const twoRecordSAM = "@HD\tVN:1.6\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"r1\t0\tchr1\t100\t60\t4M\t*\t0\t0\tACGT\tIIII\n" +
	"r2\t16\tchr1\t200\t60\t4M\t*\t0\t0\tGGCC\t####\n"

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path       string
		format     Format
		compressed bool
	}{
		{"reads.fastq", FormatFastq, false},
		{"reads.fq.gz", FormatFastq, true},
		{"aln.sam", FormatSAM, false},
		{"aln.bam", FormatSAM, true},
		{"noext", FormatFastq, false},
	}

	for _, tt := range tests {
		tt := tt
		format, compressed := Detect(tt.path)
		assert.Equal(t, tt.format, format, tt.path)
		assert.Equal(t, tt.compressed, compressed, tt.path)
	}
}

func TestOpen_UnknownFormatOverride(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "reads.fastq", twoRecordFastq)
	_, err := Open(path, Options{Format: "vcf"})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFastqSource_ReadsRecords(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "reads.fastq", twoRecordFastq)
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "ACGT", string(records[0].Seq))
	assert.Equal(t, "IIII", string(records[0].Qual))
	assert.Equal(t, "GGCC", string(records[1].Seq))
	assert.Equal(t, "####", string(records[1].Qual))
}

func TestFastqSource_TrailingBlankLines(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "reads.fastq", twoRecordFastq+"\n\n")
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	assert.Len(t, readAll(t, src), 2)
}

func TestFastqSource_CRLF(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "reads.fastq", "@r1\r\nACGT\r\n+\r\nIIII\r\n")
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "ACGT", string(rec.Seq))
	assert.Equal(t, "IIII", string(rec.Qual))
}

func TestFastqSource_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "missing header marker", content: "r1\nACGT\n+\nIIII\n"},
		{name: "truncated record", content: "@r1\nACGT\n+\n"},
		{name: "length mismatch", content: "@r1\nACGT\n+\nII\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "reads.fastq", tt.content)
			src, err := Open(path, Options{})
			require.NoError(t, err)
			defer src.Close()

			_, err = src.Next()
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestSAMSource_SkipsHeaders(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "aln.sam", twoRecordSAM)
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "ACGT", string(records[0].Seq))
	assert.Equal(t, "####", string(records[1].Qual))
}

func TestSAMSource_TooFewFields(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "aln.sam", "r1\t0\tchr1\n")
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestGzipSource_Fastq(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, "reads.fastq.gz", twoRecordFastq)
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "ACGT", string(records[0].Seq))
	assert.Equal(t, "GGCC", string(records[1].Seq))
}

func TestGzipSource_FormatOverrideToSAM(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, "aln.txt.gz", twoRecordSAM)
	src, err := Open(path, Options{Format: "sam"})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, "GGCC", string(records[1].Seq))
}

func TestGzipSource_Malformed(t *testing.T) {
	t.Parallel()

	path := writeGzip(t, "reads.fastq.gz", "@r1\nACGT\n+\n")
	src, err := Open(path, Options{})
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestOpen_TileParsing(t *testing.T) {
	t.Parallel()

	content := ""
	for i := 0; i < 9; i++ {
		content += "@EAS139:136:FC706VJ:2:2104:15343:197393\nACGT\n+\nIIII\n"
	}
	path := writeFile(t, "reads.fastq", content)

	src, err := Open(path, Options{Tiles: true})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 9)
	for i := 0; i < 8; i++ {
		assert.Equal(t, 0, records[i].Tile)
	}
	assert.Equal(t, 2104, records[8].Tile)
}

func TestGzipSource_TileParsing(t *testing.T) {
	t.Parallel()

	// The '+' line carries a description without colons; the tile parser
	// must still see the name line, not the separator.
	content := ""
	for i := 0; i < 9; i++ {
		content += "@EAS139:136:FC706VJ:2:2104:15343:197393\nACGT\n+a description without separators\nIIII\n"
	}
	path := writeGzip(t, "reads.fastq.gz", content)

	src, err := Open(path, Options{Tiles: true})
	require.NoError(t, err)
	defer src.Close()

	records := readAll(t, src)
	require.Len(t, records, 9)
	assert.Equal(t, 2104, records[8].Tile)
}
