// Package reader provides the streaming record sources that tokenize
// sequencing reads out of FASTQ and SAM inputs, memory-mapped when
// uncompressed and line-buffered when gzip-compressed.
package reader

import (
	"errors"
	"fmt"
	"strings"
)

// Record is one sequencing read. Seq and Qual alias the source's internal
// buffers and are only valid until the next call to Next.
type Record struct {
	// Tile is the flow-cell tile id parsed from the read name. It is zero
	// when the name carries no tile, when tile tracking is disabled for
	// the stream, or on records outside the sampling cadence.
	Tile int
	Seq  []byte
	Qual []byte
}

// Source yields one record per call. Next returns io.EOF at end of stream
// and ErrMalformedRecord for records that cannot be recovered from; any
// error other than io.EOF is fatal for the file.
type Source interface {
	Next() (Record, error)
	Close() error
}

// ErrMalformedRecord marks a record the tokenizer cannot parse: a
// sequence/quality length mismatch or a record truncated at end of stream.
var ErrMalformedRecord = errors.New("malformed record")

// ErrUnknownFormat marks an unrecognized explicit format override.
var ErrUnknownFormat = errors.New("unknown input format")

// Format identifies the field layout of an input file.
type Format int

// Supported input layouts.
const (
	FormatFastq Format = iota // 4-line records
	FormatSAM                 // tab-delimited alignment text
)

// Detect determines layout and compression from the filename suffix:
// .sam is alignment text, .bam is gzip-compressed alignment text,
// everything else is FASTQ with .gz implying compression.
func Detect(path string) (Format, bool) {
	switch {
	case strings.HasSuffix(path, ".sam"):
		return FormatSAM, false
	case strings.HasSuffix(path, ".bam"):
		return FormatSAM, true
	default:
		return FormatFastq, strings.HasSuffix(path, ".gz")
	}
}

// Options control how Open interprets a file.
type Options struct {
	// Format overrides suffix detection when non-empty: "fastq" or "sam".
	Format string
	// Tiles enables tile id parsing from read names.
	Tiles bool
}

// Open builds the record source matching the file's format. The caller
// owns the returned Source and must Close it.
func Open(path string, opts Options) (Source, error) {
	format, compressed := Detect(path)
	switch opts.Format {
	case "":
	case "fastq":
		format = FormatFastq
		compressed = strings.HasSuffix(path, ".gz")
	case "sam":
		format = FormatSAM
		compressed = strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".bam")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	if compressed {
		return openGzip(path, format, opts.Tiles)
	}
	return openMapped(path, format, opts.Tiles)
}
