package stats

import (
	"math"
	"sort"

	"seqqc/internal/limits"
)

// Duplication level bins: 1 through 9 exact, then >=10, >=50, >=100,
// >=500, >=1k, >=5k, >=10k.
const numDupBins = 16

func dupBin(level uint64) int {
	switch {
	case level >= 10000:
		return 15
	case level >= 5000:
		return 14
	case level >= 1000:
		return 13
	case level >= 500:
		return 12
	case level >= 100:
		return 11
	case level >= 50:
		return 10
	case level >= 10:
		return 9
	default:
		return int(level) - 1
	}
}

// Summarize derives every report metric and verdict from the accumulated
// tables. It must be called exactly once, after the last Ingest.
func (s *Stats) Summarize(lim limits.Limits, adapters []limits.Adapter) {
	s.Verdicts = Verdicts{
		BasicStatistics:    "pass",
		PerBaseQuality:     "pass",
		PerTileQuality:     "pass",
		PerSequenceQuality: "pass",
		PerBaseContent:     "pass",
		GCContent:          "pass",
		NContent:           "pass",
		LengthDistribution: "pass",
		Duplication:        "pass",
		Overrepresented:    "pass",
		KmerContent:        "pass",
		AdapterContent:     "pass",
	}
	if s.NumReads == 0 {
		return
	}

	s.summarizeBasics()
	s.summarizeBaseQuality(lim)
	s.summarizeSequenceQuality(lim)
	s.summarizeBaseContent(lim)
	if s.doGC {
		s.summarizeGC(lim)
	}
	s.summarizeLengths(lim)
	if s.doDuplication {
		s.summarizeDuplication(lim)
		s.collectOverrepresented()
	}
	if s.doKmer {
		s.summarizeAdapters(lim, adapters)
	}
	if s.doTile {
		s.summarizeTiles(lim)
	}
}

func (s *Stats) summarizeBasics() {
	s.TotalBases = 0
	for length, freq := range s.ReadLengthFreq {
		s.TotalBases += uint64(length) * freq
	}
	s.AvgReadLength = s.TotalBases / s.NumReads

	s.MinReadLength = -1
	for length, freq := range s.ReadLengthFreq {
		if freq > 0 {
			s.MinReadLength = length
			break
		}
	}

	if s.TotalBases > 0 {
		var gc uint64
		for i := 0; i < s.MaxReadLength; i++ {
			gc += s.baseCount.at(i, 1) // C
			gc += s.baseCount.at(i, 3) // G
		}
		s.AvgGC = 100 * float64(gc) / float64(s.TotalBases)
	}

	for q := 0; q < s.poorQuality; q++ {
		s.NumPoor += s.QualityCount[q]
	}

	// CumulativeLengthFreq[pos] is the number of reads that cover
	// position pos, the divisor for every per-position average.
	s.CumulativeLengthFreq = make([]uint64, s.MaxReadLength)
	remaining := s.NumReads
	for pos := 0; pos < s.MaxReadLength; pos++ {
		if pos < len(s.ReadLengthFreq) {
			remaining -= s.ReadLengthFreq[pos]
		}
		s.CumulativeLengthFreq[pos] = remaining
	}
}

func (s *Stats) summarizeBaseQuality(lim limits.Limits) {
	n := s.MaxReadLength
	s.Mean = make([]float64, n)
	s.LDecile = make([]int, n)
	s.LQuartile = make([]int, n)
	s.Median = make([]int, n)
	s.UQuartile = make([]int, n)
	s.UDecile = make([]int, n)

	for pos := 0; pos < n; pos++ {
		covering := float64(s.CumulativeLengthFreq[pos])
		if covering == 0 {
			continue
		}
		thresholds := [5]float64{
			0.1 * covering,
			0.25 * covering,
			0.5 * covering,
			0.75 * covering,
			0.9 * covering,
		}
		quantiles := [5]int{}

		var sum, counts uint64
		for q := uint64(0); q < numQualityValues; q++ {
			cur := s.positionQuality.at(pos, q)
			for k, thresh := range thresholds {
				if float64(counts) < thresh && float64(counts+cur) >= thresh {
					quantiles[k] = int(q)
				}
			}
			sum += cur * q
			counts += cur
		}

		s.Mean[pos] = float64(sum) / covering
		s.LDecile[pos] = quantiles[0]
		s.LQuartile[pos] = quantiles[1]
		s.Median[pos] = quantiles[2]
		s.UQuartile[pos] = quantiles[3]
		s.UDecile[pos] = quantiles[4]

		if s.Verdicts.PerBaseQuality != "fail" {
			switch {
			case float64(s.LQuartile[pos]) < lim.Error("quality_base_lower"):
				s.Verdicts.PerBaseQuality = "fail"
			case float64(s.LQuartile[pos]) < lim.Warn("quality_base_lower"):
				s.Verdicts.PerBaseQuality = "warn"
			}
		}
		if s.Verdicts.PerBaseQuality != "fail" {
			switch {
			case float64(s.Median[pos]) < lim.Error("quality_base_median"):
				s.Verdicts.PerBaseQuality = "fail"
			case float64(s.Median[pos]) < lim.Warn("quality_base_median"):
				s.Verdicts.PerBaseQuality = "warn"
			}
		}
	}
}

func (s *Stats) summarizeSequenceQuality(lim limits.Limits) {
	var modeCount uint64
	for q, count := range s.QualityCount {
		if count > modeCount {
			modeCount = count
			s.QualityMode = q
		}
	}
	if float64(s.QualityMode) < lim.Warn("quality_sequence") {
		s.Verdicts.PerSequenceQuality = "warn"
	} else if float64(s.QualityMode) < lim.Error("quality_sequence") {
		s.Verdicts.PerSequenceQuality = "fail"
	}
}

func (s *Stats) summarizeBaseContent(lim limits.Limits) {
	n := s.MaxReadLength
	s.APct = make([]float64, n)
	s.CPct = make([]float64, n)
	s.TPct = make([]float64, n)
	s.GPct = make([]float64, n)
	s.NPct = make([]float64, n)

	var maxDiff float64
	for pos := 0; pos < n; pos++ {
		a := float64(s.baseCount.at(pos, 0))
		c := float64(s.baseCount.at(pos, 1))
		t := float64(s.baseCount.at(pos, 2))
		g := float64(s.baseCount.at(pos, 3))
		nn := float64(s.nBaseCount.at(pos, 0))
		total := a + c + t + g + nn
		if total == 0 {
			continue
		}

		s.APct[pos] = 100 * a / total
		s.CPct[pos] = 100 * c / total
		s.TPct[pos] = 100 * t / total
		s.GPct[pos] = 100 * g / total
		s.NPct[pos] = 100 * nn / total

		pcts := [4]float64{s.APct[pos], s.CPct[pos], s.TPct[pos], s.GPct[pos]}
		for i := 0; i < len(pcts); i++ {
			for j := i + 1; j < len(pcts); j++ {
				maxDiff = math.Max(maxDiff, math.Abs(pcts[i]-pcts[j]))
			}
		}

		if s.Verdicts.PerBaseContent != "fail" {
			if maxDiff > lim.Error("sequence") {
				s.Verdicts.PerBaseContent = "fail"
			} else if maxDiff > lim.Warn("sequence") {
				s.Verdicts.PerBaseContent = "warn"
			}
		}

		if s.Verdicts.NContent != "fail" {
			if s.NPct[pos] > lim.Error("n_content") {
				s.Verdicts.NContent = "fail"
			} else if s.NPct[pos] > lim.Warn("n_content") {
				s.Verdicts.NContent = "warn"
			}
		}
	}
}

func (s *Stats) summarizeGC(lim limits.Limits) {
	// Smooth empty interior bins with the average of their neighbors so
	// sparse inputs do not look wildly non normal.
	for i := 1; i < 99; i++ {
		if s.GCCount[i] == 0 {
			s.GCCount[i] = (s.GCCount[i-1] + s.GCCount[i+1]) / 2
		}
	}

	s.GCDeviation = normalDeviation(s.GCCount[:], s.TheoreticalGC[:])
	if s.GCDeviation >= lim.Error("gc_sequence") {
		s.Verdicts.GCContent = "fail"
	} else if s.GCDeviation >= lim.Warn("gc_sequence") {
		s.Verdicts.GCContent = "warn"
	}
}

func (s *Stats) summarizeLengths(lim limits.Limits) {
	if lim.Error("sequence_length") != 1 {
		return
	}
	freqOfAvg := uint64(0)
	if int(s.AvgReadLength) < len(s.ReadLengthFreq) {
		freqOfAvg = s.ReadLengthFreq[s.AvgReadLength]
	}
	if freqOfAvg != s.NumReads {
		s.Verdicts.LengthDistribution = "warn"
	}
	if s.ReadLengthFreq[0] > 0 {
		s.Verdicts.LengthDistribution = "fail"
	}
}

func (s *Stats) summarizeDuplication(lim limits.Limits) {
	// Distinct sequences grouped by how often each was seen.
	countsByFreq := make(map[uint64]uint64)
	for _, count := range s.seqCount {
		countsByFreq[count]++
	}

	var seqTotal, seqDedup float64
	var dedup, total [numDupBins]float64
	for level, numObs := range countsByFreq {
		corrected := correctedCount(s.CountAtLimit, s.NumReads, level, numObs)
		bin := dupBin(level)
		dedup[bin] += corrected
		total[bin] += corrected * float64(level)
		seqDedup += corrected
		seqTotal += corrected * float64(level)
	}
	if seqTotal == 0 {
		return
	}

	s.TotalDeduplicatedPct = 100 * seqDedup / seqTotal
	for i := 0; i < numDupBins; i++ {
		s.PctDeduplicated[i] = 100 * dedup[i] / seqDedup
		s.PctTotal[i] = 100 * total[i] / seqTotal
	}

	// The fraction of reads that occur exactly once decides the verdict.
	if s.PctTotal[0] <= lim.Error("duplication") {
		s.Verdicts.Duplication = "fail"
	} else if s.PctTotal[0] <= lim.Warn("duplication") {
		s.Verdicts.Duplication = "warn"
	}
}

func (s *Stats) collectOverrepresented() {
	cutoff := float64(s.NumReads) * s.overrepFrac
	for seq, count := range s.seqCount {
		if float64(count) > cutoff {
			s.Overrep = append(s.Overrep, SeqCount{Seq: seq, Count: count})
		}
	}
	sort.Slice(s.Overrep, func(i, j int) bool {
		if s.Overrep[i].Count != s.Overrep[j].Count {
			return s.Overrep[i].Count > s.Overrep[j].Count
		}
		return s.Overrep[i].Seq < s.Overrep[j].Seq
	})
}

func (s *Stats) summarizeAdapters(lim limits.Limits, adapters []limits.Adapter) {
	positions := s.MaxReadLength
	if positions > kmerMaxPositions {
		positions = kmerMaxPositions
	}
	s.AdapterPct = make([][]float64, positions)

	cumulative := make([]float64, len(adapters))
	for pos := 0; pos < positions; pos++ {
		row := make([]float64, len(adapters))
		if s.CumulativeLengthFreq[pos] > 0 {
			for j, a := range adapters {
				cumulative[j] += float64(s.kmerCount[uint64(pos)<<s.kmerShift|a.Hash])
				row[j] = 100 * cumulative[j] / float64(s.NumReads)
			}
		} else if pos > 0 {
			copy(row, s.AdapterPct[pos-1])
		}
		s.AdapterPct[pos] = row

		if s.Verdicts.AdapterContent != "fail" {
			for _, pct := range row {
				if pct > lim.Error("adapter") {
					s.Verdicts.AdapterContent = "fail"
					break
				}
				if pct > lim.Warn("adapter") {
					s.Verdicts.AdapterContent = "warn"
				}
			}
		}
	}
}

func (s *Stats) summarizeTiles(lim limits.Limits) {
	for tile, row := range s.tiles.quality {
		count := float64(s.tiles.count[tile])
		if count == 0 {
			continue
		}
		for pos := range row {
			if pos >= len(s.Mean) {
				break
			}
			row[pos] = row[pos]/count - s.Mean[pos]
			if s.Verdicts.PerTileQuality != "fail" {
				if row[pos] <= -lim.Error("tile") {
					s.Verdicts.PerTileQuality = "fail"
				} else if row[pos] <= -lim.Warn("tile") {
					s.Verdicts.PerTileQuality = "warn"
				}
			}
		}
	}
}

// TileDeviations exposes the per-tile quality deviations computed by
// Summarize. Values are mean tile quality at a position minus the overall
// mean at that position.
func (s *Stats) TileDeviations() map[int][]float64 { return s.tiles.quality }

// correctedCount extrapolates the observed number of distinct sequences
// at a duplication level to the full file, given that distinct-sequence
// tracking stopped after countAtLimit reads.
func correctedCount(countAtLimit, numReads, dupLevel, numObs uint64) float64 {
	obs := float64(numObs)
	if countAtLimit == numReads {
		return obs
	}
	// Not enough unseen reads to hide another sequence at this level.
	if numReads-numObs < countAtLimit {
		return obs
	}

	pNotSeeing := 1.0
	limitOfCaring := 1.0 - obs/(obs+0.01)
	for i := uint64(0); i < countAtLimit; i++ {
		pNotSeeing *= (float64(numReads-i) - float64(dupLevel)) / float64(numReads-i)
		if pNotSeeing < limitOfCaring {
			pNotSeeing = 0
			break
		}
	}
	return obs / (1 - pNotSeeing)
}

// normalDeviation fits a gaussian to the histogram by matching its mean
// and standard deviation, writes the fitted curve into theoretical, and
// returns the summed absolute difference as a fraction of the histogram
// total.
func normalDeviation(histogram []uint64, theoretical []float64) float64 {
	var mean, total float64
	for i, count := range histogram {
		mean += float64(i) * float64(count)
		total += float64(count)
	}
	if total <= 1 {
		return 0
	}
	mean /= total

	var stdev float64
	for i, count := range histogram {
		d := mean - float64(i)
		stdev += d * d * float64(count)
	}
	stdev = math.Sqrt(stdev / (total - 1))
	if stdev == 0 {
		return 0
	}

	var theoreticalSum float64
	for i := range theoretical {
		z := float64(i) - mean
		theoretical[i] = math.Exp(-(z * z) / (2 * stdev * stdev))
		theoreticalSum += theoretical[i]
	}

	var deviation float64
	for i, count := range histogram {
		theoretical[i] = theoretical[i] * total / theoreticalSum
		deviation += math.Abs(float64(count) - theoretical[i])
	}
	return deviation / total
}
