package limits

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"seqqc/internal/codec"
)

// ErrBadAdapter marks an adapter sequence containing non-ACGT characters.
var ErrBadAdapter = fmt.Errorf("adapter sequence contains non-ACGT characters")

// Adapter is one named adapter with its sequence prefix hashed as a 2-bit
// packed k-mer. The stored sequence is truncated to the configured k-mer
// length before hashing.
type Adapter struct {
	Name string
	Seq  string
	Hash uint64
}

// Contaminant is one named contaminant reference sequence.
type Contaminant struct {
	Name string
	Seq  string
}

// LoadAdapters reads an adapter list. Lines are whitespace-separated: all
// tokens but the last form the name, the last token is the sequence.
// Sequences longer than kmerSize are truncated to kmerSize. Any character
// outside A/C/T/G is a fatal load error.
func LoadAdapters(path string, kmerSize int) ([]Adapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open adapter file: %w", err)
	}
	defer f.Close()
	return parseAdapters(f, kmerSize)
}

// DefaultAdapters returns the embedded default adapter list.
func DefaultAdapters(kmerSize int) []Adapter {
	f, err := defaults.Open("config/adapter_list.txt")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	adapters, err := parseAdapters(f, kmerSize)
	if err != nil {
		panic(err)
	}
	return adapters
}

func parseAdapters(r io.Reader, kmerSize int) ([]Adapter, error) {
	var adapters []Adapter

	err := eachDataLine(r, func(fields []string) error {
		name := strings.Join(fields[:len(fields)-1], " ")
		seq := fields[len(fields)-1]
		if len(seq) > kmerSize {
			seq = seq[:kmerSize]
		}

		var hash uint64
		for i := 0; i < len(seq); i++ {
			if !codec.Valid(seq[i]) {
				return fmt.Errorf("%w: %s", ErrBadAdapter, seq)
			}
			hash = (hash << 2) | codec.Encode(seq[i])
		}
		adapters = append(adapters, Adapter{Name: name, Seq: seq, Hash: hash})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adapters, nil
}

// LoadContaminants reads a contaminant list in the same name/sequence line
// format as the adapter list. Contaminant sequences are kept whole.
func LoadContaminants(path string) ([]Contaminant, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open contaminant file: %w", err)
	}
	defer f.Close()
	return parseContaminants(f)
}

// DefaultContaminants returns the embedded default contaminant list.
func DefaultContaminants() []Contaminant {
	f, err := defaults.Open("config/contaminant_list.txt")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	contaminants, err := parseContaminants(f)
	if err != nil {
		panic(err)
	}
	return contaminants
}

func parseContaminants(r io.Reader) ([]Contaminant, error) {
	var contaminants []Contaminant
	err := eachDataLine(r, func(fields []string) error {
		contaminants = append(contaminants, Contaminant{
			Name: strings.Join(fields[:len(fields)-1], " "),
			Seq:  fields[len(fields)-1],
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return contaminants, nil
}

// eachDataLine calls fn with the whitespace-split fields of every
// non-comment line holding at least a name and a sequence.
func eachDataLine(r io.Reader, fn func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
	return sc.Err()
}

// MatchingContaminant returns the name of the first contaminant that
// contains seq or is contained in seq, or "No Hit".
func MatchingContaminant(contaminants []Contaminant, seq string) string {
	for _, c := range contaminants {
		if len(seq) > len(c.Seq) {
			if strings.Contains(seq, c.Seq) {
				return c.Name
			}
		} else if strings.Contains(c.Seq, seq) {
			return c.Name
		}
	}
	return "No Hit"
}
