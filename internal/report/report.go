// Package report renders the analysis results of one input file as a
// sectioned text report and as a self-contained HTML page.
package report

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"seqqc/internal/limits"
	"seqqc/internal/stats"
)

// dupBinLabels name the sixteen duplication level bins in report order.
var dupBinLabels = []string{
	"1", "2", "3", "4", "5", "6", "7", "8", "9",
	">10", ">50", ">100", ">500", ">1k", ">5k", ">10k+",
}

// ftoa renders a float the way the text report expects: six significant
// digits, no trailing zero noise.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// WriteText writes the full sectioned text report. Sections are delimited
// by ">>Name\tverdict" and ">>END_MODULE" markers.
func WriteText(w io.Writer, s *stats.Stats, filename string, adapters []limits.Adapter, contaminants []limits.Contaminant) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "##FastQC\t0.11.8\n")
	writeBasicStatistics(bw, s, filename)
	writeBaseQuality(bw, s)
	writeSequenceQuality(bw, s)
	writeBaseContent(bw, s)
	writeTileQuality(bw, s)
	writeGCContent(bw, s)
	writeNContent(bw, s)
	writeLengthDistribution(bw, s)
	writeDuplicationLevels(bw, s)
	writeOverrepresented(bw, s, contaminants)
	writeAdapterContent(bw, s, adapters)

	return bw.Flush()
}

func writeBasicStatistics(w *bufio.Writer, s *stats.Stats, filename string) {
	fmt.Fprintf(w, ">>Basic Statistics\t%s\n", s.Verdicts.BasicStatistics)
	fmt.Fprintf(w, "#Measure\tValue\n")
	fmt.Fprintf(w, "Filename\t%s\n", filepath.Base(filename))
	fmt.Fprintf(w, "File type\tConventional base calls\n")
	fmt.Fprintf(w, "Encoding\tSanger / Illumina 1.9\n")
	fmt.Fprintf(w, "Total Sequences\t%d\n", s.NumReads)
	fmt.Fprintf(w, "Sequences flagged as poor quality\t%d\n", s.NumPoor)
	fmt.Fprintf(w, "Sequence length\t%s\n", lengthRange(s))
	fmt.Fprintf(w, "%%GC\t%s\n", ftoa(s.AvgGC))
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func lengthRange(s *stats.Stats) string {
	if s.MinReadLength == s.MaxReadLength {
		return strconv.Itoa(s.MaxReadLength)
	}
	return fmt.Sprintf("%d-%d", s.MinReadLength, s.MaxReadLength)
}

func writeBaseQuality(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per base sequence quality\t%s\n", s.Verdicts.PerBaseQuality)
	fmt.Fprintf(w, "#Base\tMean\tMedian\tLower Quartile\tUpper Quartile\t10th Percentile\t90th Percentile\n")
	for i := 0; i < s.MaxReadLength; i++ {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\n",
			i+1, ftoa(s.Mean[i]), s.Median[i], s.LQuartile[i], s.UQuartile[i],
			s.LDecile[i], s.UDecile[i])
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeSequenceQuality(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per sequence quality scores\t%s\n", s.Verdicts.PerSequenceQuality)
	fmt.Fprintf(w, "#Quality\tCount\n")
	for q, count := range s.QualityCount {
		if count > 0 {
			fmt.Fprintf(w, "%d\t%d\n", q, count)
		}
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeBaseContent(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per base sequence content\t%s\n", s.Verdicts.PerBaseContent)
	fmt.Fprintf(w, "#Base\tG\tA\tT\tC\n")
	for i := 0; i < s.MaxReadLength; i++ {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1, ftoa(s.GPct[i]), ftoa(s.APct[i]), ftoa(s.TPct[i]), ftoa(s.CPct[i]))
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeTileQuality(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per tile sequence quality\t%s\n", s.Verdicts.PerTileQuality)
	fmt.Fprintf(w, "#Tile\tBase\tMean\n")

	deviations := s.TileDeviations()
	tiles := make([]int, 0, len(deviations))
	for tile := range deviations {
		tiles = append(tiles, tile)
	}
	sort.Ints(tiles)

	for _, tile := range tiles {
		for pos, dev := range deviations[tile] {
			fmt.Fprintf(w, "%d\t%d\t%s\n", tile, pos+1, ftoa(dev))
		}
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeGCContent(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per sequence GC content\t%s\n", s.Verdicts.GCContent)
	fmt.Fprintf(w, "#GC Content\tCount\n")
	for gc, count := range s.GCCount {
		if count > 0 {
			fmt.Fprintf(w, "%d\t%d\n", gc, count)
		}
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeNContent(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Per base N content\t%s\n", s.Verdicts.NContent)
	fmt.Fprintf(w, "#Base\tN-Count\n")
	for i := 0; i < s.MaxReadLength; i++ {
		fmt.Fprintf(w, "%d\t%s\n", i+1, ftoa(s.NPct[i]))
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeLengthDistribution(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Sequence Length Distribution\t%s\n", s.Verdicts.LengthDistribution)
	fmt.Fprintf(w, "#Length\tCount\n")
	for length, count := range s.ReadLengthFreq {
		if count > 0 {
			fmt.Fprintf(w, "%d\t%d\n", length, count)
		}
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeDuplicationLevels(w *bufio.Writer, s *stats.Stats) {
	fmt.Fprintf(w, ">>Sequence Duplication Levels\t%s\n", s.Verdicts.Duplication)
	fmt.Fprintf(w, ">>Total Deduplicated Percentage\t%s\n", ftoa(s.TotalDeduplicatedPct))
	fmt.Fprintf(w, "#Duplication Level\tPercentage of deduplicated\tPercentage of total\n")
	for i, label := range dupBinLabels {
		fmt.Fprintf(w, "%s\t%s\t%s\n", label, ftoa(s.PctDeduplicated[i]), ftoa(s.PctTotal[i]))
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeOverrepresented(w *bufio.Writer, s *stats.Stats, contaminants []limits.Contaminant) {
	fmt.Fprintf(w, ">>Overrepresented sequences\t%s\n", s.Verdicts.Overrepresented)
	fmt.Fprintf(w, "#Sequence\tCount\tPercentage\tPossible Source\n")
	for _, sc := range s.Overrep {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			sc.Seq, sc.Count, ftoa(100*float64(sc.Count)/float64(s.NumReads)),
			limits.MatchingContaminant(contaminants, sc.Seq))
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}

func writeAdapterContent(w *bufio.Writer, s *stats.Stats, adapters []limits.Adapter) {
	fmt.Fprintf(w, ">>Adapter Content\t%s\n", s.Verdicts.AdapterContent)

	fmt.Fprintf(w, "#Position")
	for _, a := range adapters {
		fmt.Fprintf(w, "\t%s", a.Name)
	}
	fmt.Fprintf(w, "\n")

	for pos, row := range s.AdapterPct {
		fmt.Fprintf(w, "%d", pos+1)
		for _, pct := range row {
			fmt.Fprintf(w, "\t%s", ftoa(pct))
		}
		fmt.Fprintf(w, "\n")
	}
	fmt.Fprintf(w, ">>END_MODULE\n")
}
