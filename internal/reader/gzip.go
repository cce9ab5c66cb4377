package reader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// readBufferSize bounds the reusable buffer the decompressed path refills
// per record.
const readBufferSize = 1 << 20

// gzipSource reads records line by line from a gzip stream through a
// bounded, reusable read buffer. It handles both 4-line FASTQ and
// single-line alignment-text layouts.
type gzipSource struct {
	f      *os.File
	gz     *gzip.Reader
	br     *bufio.Reader
	format Format
	tiles  tileParser

	// Per-record line buffers; sequence and quality must both stay alive
	// until the next call. The name must stay alive until the tile parser
	// has seen it, so the '+' line gets its own scratch buffer.
	nameBuf []byte
	seqBuf  []byte
	plusBuf []byte
	qualBuf []byte
}

func openGzip(path string, format Format, tiles bool) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	br := bufio.NewReaderSize(f, readBufferSize)
	gz, err := gzip.NewReader(br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot read gzip stream %s: %w", path, err)
	}
	gz.Multistream(true)
	return &gzipSource{
		f:      f,
		gz:     gz,
		br:     bufio.NewReaderSize(gz, readBufferSize),
		format: format,
		tiles:  newTileParser(tiles),
	}, nil
}

func (s *gzipSource) Close() error {
	if err := s.gz.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func (s *gzipSource) Next() (Record, error) {
	if s.format == FormatSAM {
		return s.nextSAM()
	}
	return s.nextFastq()
}

func (s *gzipSource) nextFastq() (Record, error) {
	name, err := s.readLine(&s.nameBuf)
	for err == nil && len(name) == 0 { // tolerate blank trailing lines
		name, err = s.readLine(&s.nameBuf)
	}
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	if name[0] != '@' {
		return Record{}, fmt.Errorf("%w: header line must start with @", ErrMalformedRecord)
	}

	seq, err := s.readLine(&s.seqBuf)
	if err != nil {
		return Record{}, truncated(err)
	}
	if _, err = s.readLine(&s.plusBuf); err != nil { // '+' line, ignored
		return Record{}, truncated(err)
	}
	qual, err := s.readLine(&s.qualBuf)
	if err != nil && err != io.EOF {
		return Record{}, truncated(err)
	}
	if len(qual) == 0 && err == io.EOF {
		return Record{}, truncated(io.ErrUnexpectedEOF)
	}
	if len(seq) != len(qual) {
		return Record{}, fmt.Errorf("%w: sequence and quality lengths differ", ErrMalformedRecord)
	}

	return Record{Tile: s.tiles.next(name), Seq: seq, Qual: qual}, nil
}

func (s *gzipSource) nextSAM() (Record, error) {
	for {
		line, err := s.readLine(&s.seqBuf)
		if err != nil {
			if err == io.EOF {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if len(line) == 0 {
			continue
		}
		if line[0] == '@' { // header line
			continue
		}
		return parseSAMLine(line, &s.tiles)
	}
}

// truncated maps a mid-record read error to a malformed-record error.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: truncated record at end of stream", ErrMalformedRecord)
	}
	return err
}

// readLine reads one line into *buf, reusing its capacity, and returns
// the line without the terminator. Skips nothing; empty lines are
// returned as empty slices. Returns io.EOF only with no data read.
func (s *gzipSource) readLine(buf *[]byte) ([]byte, error) {
	line := (*buf)[:0]
	for {
		segment, isPrefix, err := s.br.ReadLine()
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				break
			}
			*buf = line
			return nil, err
		}
		line = append(line, segment...)
		if !isPrefix {
			break
		}
	}
	line = bytes.TrimSuffix(line, []byte{'\r'})
	*buf = line
	return line, nil
}
