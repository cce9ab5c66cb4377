// Package limits loads the analysis thresholds and the adapter and
// contaminant reference lists consumed by the statistics and report code.
package limits

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed config/limits.txt config/adapter_list.txt config/contaminant_list.txt
var defaults embed.FS

// Loader errors.
var (
	ErrUnknownCategory    = errors.New("unknown limit category")
	ErrUnknownInstruction = errors.New("unknown limit instruction")
	ErrMissingCategory    = errors.New("limit category missing from file")
)

// categories is the closed set of analysis categories every limits file
// must cover.
var categories = []string{
	"duplication",
	"kmer",
	"n_content",
	"overrepresented",
	"quality_base",
	"quality_base_lower",
	"quality_base_median",
	"sequence",
	"gc_sequence",
	"quality_sequence",
	"tile",
	"sequence_length",
	"adapter",
}

// Thresholds holds the resolved warn/error values and enable flag for one
// analysis category. Immutable after load.
type Thresholds struct {
	Warn   float64
	Error  float64
	Ignore bool
}

// Limits maps analysis category names to their thresholds.
type Limits map[string]Thresholds

// Enabled reports whether the category's analysis should run.
func (l Limits) Enabled(category string) bool {
	return !l[category].Ignore
}

// Warn returns the category's warn threshold.
func (l Limits) Warn(category string) float64 { return l[category].Warn }

// Error returns the category's error threshold.
func (l Limits) Error(category string) float64 { return l[category].Error }

// Load reads a limits file. Each non-comment line is
// "<category> <warn|error|ignore> <value>". Every category must appear at
// least once or loading fails.
func Load(path string) (Limits, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open limits file: %w", err)
	}
	defer f.Close()
	lim, err := parseLimits(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lim, nil
}

// Default returns the embedded default limits.
func Default() Limits {
	f, err := defaults.Open("config/limits.txt")
	if err != nil {
		panic(err) // embedded file, cannot fail
	}
	defer f.Close()
	lim, err := parseLimits(f)
	if err != nil {
		panic(err)
	}
	return lim
}

func parseLimits(r io.Reader) (Limits, error) {
	lim := make(Limits, len(categories))
	seen := make(map[string]bool, len(categories))

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed limit line %q", line)
		}
		category, instruction := fields[0], fields[1]

		if !knownCategory(category) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad value for limit %s: %w", category, err)
		}

		th := lim[category]
		switch instruction {
		case "warn":
			th.Warn = value
		case "error":
			th.Error = value
		case "ignore":
			th.Ignore = value != 0
		default:
			return nil, fmt.Errorf("%w: %s for limit %s", ErrUnknownInstruction, instruction, category)
		}
		lim[category] = th
		seen[category] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading limits: %w", err)
	}

	for _, c := range categories {
		if !seen[c] {
			return nil, fmt.Errorf("%w: %s", ErrMissingCategory, c)
		}
	}
	return lim, nil
}

func knownCategory(name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
