package report

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"seqqc/internal/limits"
	"seqqc/internal/stats"
)

//go:embed template.html
var htmlTemplate string

// ErrPlaceholderMissing marks a template that lost one of the data
// placeholders the renderer fills in.
var ErrPlaceholderMissing = errors.New("placeholder missing from HTML template")

// WriteHTML renders the self-contained HTML report by substituting the
// plot and table data into the embedded page template.
func WriteHTML(w io.Writer, s *stats.Stats, filename string, adapters []limits.Adapter, contaminants []limits.Contaminant) error {
	page := htmlTemplate

	replacements := []struct {
		placeholder string
		data        string
	}{
		{"{{FILENAME}}", html.EscapeString(filepath.Base(filename))},
		{"{{BASICSTATSDATA}}", basicStatsTable(s, filename)},
		{"{{SEQBASEQUALITYDATA}}", baseQualityTraces(s)},
		{"{{TILEQUALITYDATA}}", tileHeatmap(s)},
		{"{{SEQQUALITYDATA}}", sequenceQualityTrace(s)},
		{"{{BASESEQCONTENTDATA}}", baseContentTraces(s)},
		{"{{SEQGCCONTENTDATA}}", gcContentTraces(s)},
		{"{{BASENCONTENTDATA}}", nContentTrace(s)},
		{"{{SEQLENDATA}}", lengthTrace(s)},
		{"{{SEQDUPDATA}}", duplicationTraces(s)},
		{"{{OVERREPSEQDATA}}", overrepresentedTable(s, contaminants)},
		{"{{ADAPTERDATA}}", adapterTraces(s, adapters)},
	}
	for _, r := range replacements {
		if !strings.Contains(page, r.placeholder) {
			return fmt.Errorf("%w: %s", ErrPlaceholderMissing, r.placeholder)
		}
		page = strings.Replace(page, r.placeholder, r.data, 1)
	}

	_, err := io.WriteString(w, page)
	return err
}

func basicStatsTable(s *stats.Stats, filename string) string {
	var b strings.Builder
	b.WriteString("<table><thead><tr><th>Measure</th><th>Value</th></tr></thead><tbody>")
	row := func(measure, value string) {
		b.WriteString("<tr><td>" + measure + "</td><td>" + html.EscapeString(value) + "</td></tr>")
	}
	row("Filename", filepath.Base(filename))
	row("File type", "Conventional base calls")
	row("Encoding", "Sanger / Illumina 1.9")
	row("Total Sequences", strconv.FormatUint(s.NumReads, 10))
	row("Sequences flagged as poor quality", strconv.FormatUint(s.NumPoor, 10))
	row("Sequence length", lengthRange(s))
	row("%GC", ftoa(s.AvgGC))
	b.WriteString("</tbody></table>")
	return b.String()
}

// baseQualityTraces emits one box trace per read position, colored by the
// median quality at that position.
func baseQualityTraces(s *stats.Stats) string {
	var b strings.Builder
	for i := 0; i < s.MaxReadLength; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		color := "red"
		switch {
		case s.Median[i] > 30:
			color = "green"
		case s.Median[i] > 20:
			color = "yellow"
		}
		fmt.Fprintf(&b, "{y: [%d, %d, %d, %d, %d], type: 'box', name: '%d', marker: {color: '%s'}}",
			s.LDecile[i], s.LQuartile[i], s.Median[i], s.UQuartile[i], s.UDecile[i],
			i+1, color)
	}
	return b.String()
}

func tileHeatmap(s *stats.Stats) string {
	deviations := s.TileDeviations()
	tiles := make([]int, 0, len(deviations))
	for tile := range deviations {
		tiles = append(tiles, tile)
	}
	sort.Ints(tiles)

	var b strings.Builder
	b.WriteString("{x: [")
	for i := 0; i < s.MaxReadLength; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Itoa(i + 1))
	}

	b.WriteString("], y: [")
	for i, tile := range tiles {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Itoa(tile))
	}

	b.WriteString("], z: [")
	for i, tile := range tiles {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("[")
		row := deviations[tile]
		for pos := 0; pos < s.MaxReadLength; pos++ {
			if pos > 0 {
				b.WriteString(",")
			}
			dev := 0.0
			if pos < len(row) {
				dev = row[pos]
			}
			b.WriteString(ftoa(dev))
		}
		b.WriteString("]")
	}
	b.WriteString("], type: 'heatmap'}")
	return b.String()
}

func sequenceQualityTrace(s *stats.Stats) string {
	var xs, ys []string
	for q, count := range s.QualityCount {
		xs = append(xs, strconv.Itoa(q))
		ys = append(ys, strconv.FormatUint(count, 10))
	}
	return lineTrace(xs, ys, "red")
}

func baseContentTraces(s *stats.Stats) string {
	series := []struct {
		pcts  []float64
		color string
	}{
		{s.APct, "green"},
		{s.CPct, "blue"},
		{s.TPct, "red"},
		{s.GPct, "black"},
	}

	var b strings.Builder
	for k, trace := range series {
		if k > 0 {
			b.WriteString(", ")
		}
		xs := make([]string, len(trace.pcts))
		ys := make([]string, len(trace.pcts))
		for i, pct := range trace.pcts {
			xs[i] = strconv.Itoa(i + 1)
			ys[i] = ftoa(pct)
		}
		b.WriteString(lineTrace(xs, ys, trace.color))
	}
	return b.String()
}

func gcContentTraces(s *stats.Stats) string {
	var xs, observed, theoretical []string
	for gc := 0; gc <= 100; gc++ {
		xs = append(xs, strconv.Itoa(gc))
		observed = append(observed, strconv.FormatUint(s.GCCount[gc], 10))
		theoretical = append(theoretical, ftoa(s.TheoreticalGC[gc]))
	}
	return lineTrace(xs, observed, "red") + ", " + lineTrace(xs, theoretical, "blue")
}

func nContentTrace(s *stats.Stats) string {
	xs := make([]string, len(s.NPct))
	ys := make([]string, len(s.NPct))
	for i, pct := range s.NPct {
		xs[i] = strconv.Itoa(i + 1)
		ys[i] = ftoa(pct)
	}
	return lineTrace(xs, ys, "red")
}

func lengthTrace(s *stats.Stats) string {
	var xs, ys []string
	for length, count := range s.ReadLengthFreq {
		if count > 0 {
			xs = append(xs, strconv.Itoa(length))
			ys = append(ys, strconv.FormatUint(count, 10))
		}
	}
	return lineTrace(xs, ys, "red")
}

func duplicationTraces(s *stats.Stats) string {
	xs := make([]string, len(dupBinLabels))
	total := make([]string, len(dupBinLabels))
	dedup := make([]string, len(dupBinLabels))
	for i, label := range dupBinLabels {
		xs[i] = "'" + label + "'"
		total[i] = ftoa(s.PctTotal[i])
		dedup[i] = ftoa(s.PctDeduplicated[i])
	}
	return lineTrace(xs, total, "blue") + ", " + lineTrace(xs, dedup, "red")
}

func overrepresentedTable(s *stats.Stats, contaminants []limits.Contaminant) string {
	var b strings.Builder
	b.WriteString("<table><thead><tr><th>Sequence</th><th>Count</th>" +
		"<th>Percentage</th><th>Possible Source</th></tr></thead><tbody>")
	for _, sc := range s.Overrep {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(sc.Seq), sc.Count,
			ftoa(100*float64(sc.Count)/float64(s.NumReads)),
			html.EscapeString(limits.MatchingContaminant(contaminants, sc.Seq)))
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func adapterTraces(s *stats.Stats, adapters []limits.Adapter) string {
	var b strings.Builder
	for j, a := range adapters {
		if j > 0 {
			b.WriteString(", ")
		}
		var xs, ys []string
		for pos, row := range s.AdapterPct {
			xs = append(xs, strconv.Itoa(pos+1))
			ys = append(ys, ftoa(row[j]))
		}
		fmt.Fprintf(&b, "{x: [%s], y: [%s], mode: 'lines', name: '%s'}",
			strings.Join(xs, ","), strings.Join(ys, ","),
			strings.ReplaceAll(a.Name, "'", ""))
	}
	return b.String()
}

func lineTrace(xs, ys []string, color string) string {
	return fmt.Sprintf("{x: [%s], y: [%s], type: 'line', line: {color: '%s'}}",
		strings.Join(xs, ","), strings.Join(ys, ","), color)
}
