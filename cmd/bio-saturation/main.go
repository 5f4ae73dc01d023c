package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/saturation/fragments"
	"github.com/grailbio/saturation/mmfit"
	"github.com/grailbio/saturation/subsample"
)

var (
	input         = flag.String("input", "", "Input fragments BED path (chrom, start, end, barcode, count); plain, gzip, or BGZF. Required unless -stats is given")
	output        = flag.String("output", "", "Output path prefix; writes <prefix>.sampling_stats.tsv and <prefix>.saturation.png")
	percentages   = flag.String("percentages", "0.3,0.6,0.9", "Comma-separated saturation targets, each in (0, 1)")
	minFragsPerCB = flag.Int("min-frags-per-cb", subsample.DefaultOpts.MinUniqueFragments, "A cell barcode qualifies when it has strictly more than this many unique fragments")
	subsamplings  = flag.Int("subsamplings", len(subsample.DefaultOpts.Fractions), "Number of sampling fractions; n gives 1/n, 2/n, ..., 1.0")
	whitelist     = flag.String("whitelist", "", "Optional barcode whitelist path; fragments with other barcodes are dropped before any statistics")
	seed          = flag.Int64("seed", 0, "Random seed for the subsampling draws")
	statsPath     = flag.String("stats", "", "Fit a previously written sampling_stats.tsv instead of sampling; -input is not read")
)

func usage() {
	fmt.Printf("Usage: %s -input fragments.tsv.gz -output prefix [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("unexpected positional arguments; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	if *output == "" {
		log.Fatalf("-output is required")
	}
	if (*input == "") == (*statsPath == "") {
		log.Fatalf("exactly one of -input and -stats is required")
	}
	percs, err := parsePercentages(*percentages)
	if err != nil {
		log.Fatalf("-percentages: %v", err)
	}
	if *subsamplings < 1 {
		log.Fatalf("-subsamplings must be at least 1")
	}

	ctx := vcontext.Background()
	statsTSV := *output + ".sampling_stats.tsv"
	var stats *subsample.Table
	if *statsPath != "" {
		if stats, err = readStats(ctx, *statsPath); err != nil {
			log.Fatalf("read stats %s: %v", *statsPath, err)
		}
		log.Printf("loaded %d statistics rows from %s", len(stats.Rows), *statsPath)
	} else {
		stats = computeStats(ctx)
		if err := writeStats(ctx, statsTSV, stats); err != nil {
			log.Fatalf("write stats %s: %v", statsTSV, err)
		}
		log.Printf("wrote %s", statsTSV)
	}

	res, err := mmfit.Fit(stats)
	if err != nil {
		log.Fatalf("%v; the statistics table remains usable", err)
	}
	log.Printf("saturation fit: Vmax=%.6g Km=%.6g", res.Vmax, res.Km)
	if cur, ok := res.CurrentSaturation(); ok {
		log.Printf("current saturation %s", cur.Label())
	}
	targets := res.Targets(percs)
	for _, tg := range targets {
		log.Printf("saturation target %s", tg.Label())
	}

	plotPath := *output + ".saturation.png"
	if err := mmfit.SavePlot(ctx, plotPath, stats, res, targets); err != nil {
		log.Fatalf("write plot %s: %v", plotPath, err)
	}
	log.Printf("wrote %s", plotPath)
	log.Debug.Printf("exiting")
}

// computeStats runs the sampling pipeline: read fragments, apply the
// whitelist when given, qualify barcodes, and subsample at each fraction.
func computeStats(ctx context.Context) *subsample.Table {
	frags, err := fragments.ReadTable(ctx, *input)
	if err != nil {
		log.Fatalf("read fragments: %v", err)
	}
	log.Printf("read %d fragment records (%d reads) across %d barcodes from %s",
		len(frags.Recs), frags.TotalReads(), frags.Barcodes.Len(), *input)

	if *whitelist != "" {
		wl, err := fragments.ReadWhitelist(ctx, *whitelist)
		if err != nil {
			log.Fatalf("read whitelist: %v", err)
		}
		frags = frags.Subset(wl)
		log.Printf("%d fragment records (%d reads) remain after whitelisting against %d barcodes",
			len(frags.Recs), frags.TotalReads(), len(wl))
	}

	good := subsample.GoodBarcodes(frags, *minFragsPerCB)
	log.Printf("%d barcodes exceed %d unique fragments", good.Len(), *minFragsPerCB)

	opts := subsample.Opts{
		MinUniqueFragments: *minFragsPerCB,
		Fractions:          subsample.Fractions(*subsamplings),
		Seed:               *seed,
	}
	stats, err := subsample.Run(frags, good, opts)
	if err != nil {
		log.Fatalf("subsample: %v", err)
	}

	var goodReads, goodRecs int64
	for i := range frags.Recs {
		if good.Contains(frags.Recs[i].Barcode) {
			goodReads += int64(frags.Recs[i].Count)
			goodRecs++
		}
	}
	if size, err := mmfit.EstimateLibraryComplexity(goodReads, goodRecs); err != nil {
		log.Error.Printf("library complexity estimate unavailable: %v", err)
	} else {
		log.Printf("estimated library complexity: %.6g distinct fragments", size)
	}
	return stats
}

func parsePercentages(s string) ([]float64, error) {
	var out []float64
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad percentage %q: %v", tok, err)
		}
		if v <= 0 || v >= 1 {
			return nil, fmt.Errorf("percentage %v not in (0, 1)", v)
		}
		out = append(out, v)
	}
	return out, nil
}

func readStats(ctx context.Context, path string) (stats *subsample.Table, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	return subsample.ReadTSV(in.Reader(ctx))
}

func writeStats(ctx context.Context, path string, stats *subsample.Table) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	return stats.WriteTSV(out.Writer(ctx))
}
