// seqqc computes quality control reports for FASTQ and SAM sequencing
// files, writing a FastQC-style text report and an HTML page per input.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"seqqc/internal/limits"
	"seqqc/internal/reader"
	"seqqc/internal/report"
	"seqqc/internal/stats"
)

var version = "dev"

const (
	exitSuccess = 0
	exitError   = 1
)

// progressInterval is the read count between progress lines.
const progressInterval = 1_000_000

var (
	cyan = color.New(color.FgCyan).SprintFunc()
	red  = color.New(color.FgRed).SprintFunc()
)

type config struct {
	outdir           string
	format           string
	kmerSize         int
	limitsFile       string
	adaptersFile     string
	contaminantsFile string
	threads          int
	quiet            bool
}

func main() {
	os.Exit(run())
}

func run() int {
	var cfg config
	var showVersion bool

	rootCmd := &cobra.Command{
		Use:           "seqqc [flags] <input>...",
		Short:         "Quality control for FASTQ and SAM sequencing files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("seqqc version %s\n", version)
				return nil
			}
			if len(args) == 0 {
				return errors.New("no input files given")
			}
			return process(cfg, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&cfg.outdir, "outdir", "o", ".", "directory to write reports to")
	flags.StringVarP(&cfg.format, "format", "f", "", "input format override (fastq, sam)")
	flags.IntVarP(&cfg.kmerSize, "kmer", "k", stats.DefaultKmerSize, "k-mer length for adapter scanning (2-10)")
	flags.StringVar(&cfg.limitsFile, "limits", "", "custom warn/error limits file")
	flags.StringVar(&cfg.adaptersFile, "adapters", "", "custom adapter list file")
	flags.StringVar(&cfg.contaminantsFile, "contaminants", "", "custom contaminant list file")
	flags.IntVarP(&cfg.threads, "threads", "t", 0, "files processed in parallel (default: NumCPU)")
	flags.BoolVarP(&cfg.quiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error: "+err.Error()))
		return exitError
	}
	return exitSuccess
}

// process loads the shared reference data and fans the input files out
// over a bounded worker group.
func process(cfg config, paths []string) error {
	lim, err := loadLimits(cfg)
	if err != nil {
		return err
	}
	adapters, err := loadAdapters(cfg)
	if err != nil {
		return err
	}
	contaminants, err := loadContaminants(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.outdir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}

	threads := cfg.threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(threads)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := analyzeFile(cfg, path, lim, adapters, contaminants); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func loadLimits(cfg config) (limits.Limits, error) {
	if cfg.limitsFile == "" {
		return limits.Default(), nil
	}
	return limits.Load(cfg.limitsFile)
}

func loadAdapters(cfg config) ([]limits.Adapter, error) {
	if cfg.adaptersFile == "" {
		return limits.DefaultAdapters(cfg.kmerSize), nil
	}
	return limits.LoadAdapters(cfg.adaptersFile, cfg.kmerSize)
}

func loadContaminants(cfg config) ([]limits.Contaminant, error) {
	if cfg.contaminantsFile == "" {
		return limits.DefaultContaminants(), nil
	}
	return limits.LoadContaminants(cfg.contaminantsFile)
}

// analyzeFile runs the full single-pass analysis of one input and writes
// its two reports.
func analyzeFile(cfg config, path string, lim limits.Limits, adapters []limits.Adapter, contaminants []limits.Contaminant) error {
	src, err := reader.Open(path, reader.Options{
		Format: cfg.format,
		Tiles:  lim.Enabled("tile"),
	})
	if err != nil {
		return err
	}
	defer src.Close()

	s, err := stats.New(lim, stats.Options{KmerSize: cfg.kmerSize})
	if err != nil {
		return err
	}

	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		s.Ingest(rec)
		if !cfg.quiet && s.NumReads%progressInterval == 0 {
			fmt.Fprintln(os.Stderr, cyan(fmt.Sprintf("%s: processed %d reads", path, s.NumReads)))
		}
	}

	s.Summarize(lim, adapters)

	if err := writeReports(cfg, path, s, adapters, contaminants); err != nil {
		return err
	}
	if !cfg.quiet {
		fmt.Fprintf(os.Stderr, "%s: %d reads analyzed\n", path, s.NumReads)
	}
	return nil
}

func writeReports(cfg config, path string, s *stats.Stats, adapters []limits.Adapter, contaminants []limits.Contaminant) error {
	base := reportBase(path)

	text, err := os.Create(filepath.Join(cfg.outdir, base+"_qc.txt"))
	if err != nil {
		return err
	}
	if err := report.WriteText(text, s, path, adapters, contaminants); err != nil {
		text.Close()
		return err
	}
	if err := text.Close(); err != nil {
		return err
	}

	page, err := os.Create(filepath.Join(cfg.outdir, base+"_qc.html"))
	if err != nil {
		return err
	}
	if err := report.WriteHTML(page, s, path, adapters, contaminants); err != nil {
		page.Close()
		return err
	}
	return page.Close()
}

// reportBase strips the compression and format suffixes off an input
// filename to build the report name stem.
func reportBase(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	for _, ext := range []string{".fastq", ".fq", ".sam", ".bam"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}
