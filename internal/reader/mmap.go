package reader

import (
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// mappedFile is a whole-file read-only memory mapping scanned in place.
// Record slices alias the mapping directly; nothing is copied.
type mappedFile struct {
	f    *os.File
	data mmap.MMap
	pos  int
}

func openMapped(path string, format Format, tiles bool) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot map %s: %w", path, err)
	}

	mf := mappedFile{f: f, data: data}
	if format == FormatSAM {
		return &samSource{mappedFile: mf, tiles: newTileParser(tiles)}, nil
	}
	return &fastqSource{mappedFile: mf, tiles: newTileParser(tiles)}, nil
}

func (m *mappedFile) Close() error {
	if m.data != nil {
		if err := m.data.Unmap(); err != nil {
			m.f.Close()
			return err
		}
		m.data = nil
	}
	return m.f.Close()
}

// line returns the next newline-delimited line, not including the
// terminator, and advances past it. ok is false at end of data.
func (m *mappedFile) line() (line []byte, ok bool) {
	if m.pos >= len(m.data) {
		return nil, false
	}
	start := m.pos
	for m.pos < len(m.data) && m.data[m.pos] != '\n' {
		m.pos++
	}
	line = m.data[start:m.pos]
	if m.pos < len(m.data) {
		m.pos++ // pass the newline
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, true
}

// atEnd reports whether only blank trailing lines remain.
func (m *mappedFile) atEnd() bool {
	for i := m.pos; i < len(m.data); i++ {
		if m.data[i] != '\n' && m.data[i] != '\r' {
			return false
		}
	}
	return true
}

// fastqSource scans 4-line FASTQ records out of a memory mapping.
type fastqSource struct {
	mappedFile
	tiles tileParser
}

func (s *fastqSource) Next() (Record, error) {
	if s.atEnd() {
		return Record{}, io.EOF
	}

	name, ok := s.line()
	if !ok {
		return Record{}, io.EOF
	}
	if len(name) == 0 || name[0] != '@' {
		return Record{}, fmt.Errorf("%w: header line must start with @", ErrMalformedRecord)
	}

	seq, ok := s.line()
	if !ok {
		return Record{}, fmt.Errorf("%w: truncated record at end of stream", ErrMalformedRecord)
	}
	if _, ok = s.line(); !ok { // '+' line, ignored
		return Record{}, fmt.Errorf("%w: truncated record at end of stream", ErrMalformedRecord)
	}
	qual, ok := s.line()
	if !ok {
		return Record{}, fmt.Errorf("%w: truncated record at end of stream", ErrMalformedRecord)
	}
	if len(seq) != len(qual) {
		return Record{}, fmt.Errorf("%w: sequence and quality lengths differ", ErrMalformedRecord)
	}

	return Record{Tile: s.tiles.next(name), Seq: seq, Qual: qual}, nil
}

// samSource scans tab-delimited alignment text out of a memory mapping:
// read name, eight ignored fields, sequence, quality. Header lines
// starting with '@' are skipped.
type samSource struct {
	mappedFile
	tiles tileParser
}

// SAM field indices relative to the read name.
const (
	samSeqField  = 9
	samQualField = 10
)

func (s *samSource) Next() (Record, error) {
	for {
		if s.atEnd() {
			return Record{}, io.EOF
		}
		line, ok := s.line()
		if !ok {
			return Record{}, io.EOF
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

func parseSAMLine(line []byte, tiles *tileParser) (Record, error) {
	var name, seq, qual []byte
	field := 0
	start := 0
	for i := 0; i <= len(line); i++ {
		if i < len(line) && line[i] != '\t' {
			continue
		}
		switch field {
		case 0:
			name = line[start:i]
		case samSeqField:
			seq = line[start:i]
		case samQualField:
			qual = line[start:i]
		}
		field++
		start = i + 1
	}
	if field <= samQualField {
		return Record{}, fmt.Errorf("%w: too few fields in alignment line", ErrMalformedRecord)
	}
	if len(seq) != len(qual) {
		return Record{}, fmt.Errorf("%w: sequence and quality lengths differ", ErrMalformedRecord)
	}
	return Record{Tile: tiles.next(name), Seq: seq, Qual: qual}, nil
}
