// Package subsample estimates how per-cell fragment statistics scale with
// sequencing depth: it draws weighted random subsamples of a fragment
// population at a sequence of fractions and aggregates per-barcode counts at
// each fraction into a statistics table.
package subsample

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/saturation/fragments"
	"gonum.org/v1/gonum/stat"
)

// Opts configures the subsampling run.
type Opts struct {
	// MinUniqueFragments qualifies a cell barcode when its distinct
	// fragment-record count strictly exceeds this value.
	MinUniqueFragments int
	// Fractions is the ordered sampling-fraction sequence, each in (0, 1].
	// Every fraction is an independent fresh draw from the full population,
	// never a cumulative refinement of a previous draw.
	Fractions []float64
	// Seed seeds the random source. Fraction i samples from its own stream
	// derived from Seed and i, so results are reproducible and independent
	// of scheduling.
	Seed int64
}

// DefaultOpts matches the usual invocation: ten fractions 0.1 through 1.0
// and the conventional 200 unique-fragment cell threshold.
var DefaultOpts = Opts{
	MinUniqueFragments: 200,
	Fractions:          Fractions(10),
}

// Fractions returns n evenly spaced sampling fractions ending at 1.0; for
// n = 10 these are 0.1, 0.2, ..., 1.0.
func Fractions(n int) []float64 {
	fracs := make([]float64, n)
	for i := range fracs {
		fracs[i] = float64(i+1) / float64(n)
	}
	return fracs
}

// Row holds the statistics computed at one sampling fraction.
type Row struct {
	// Fraction is the sampling fraction the row was computed at.
	Fraction float64
	// TotalFragCount is the number of physical reads retained after
	// restricting the draw to good barcodes.
	TotalFragCount int64
	// MeanFragPerBC is the mean fragment-record count over barcodes present
	// in the restricted draw. NaN when no barcode is present.
	MeanFragPerBC float64
	// MedianUniqFragPerBC is the median count of distinct (chrom, start,
	// end) fragment positions per barcode present. NaN when no barcode is
	// present.
	MedianUniqFragPerBC float64
	// CellBarcodeCount is the good-barcode count. It is the same in every
	// row of a run; it is context for the other fields, not a per-fraction
	// measurement.
	CellBarcodeCount int64
}

// Table is the per-fraction statistics table, one row per fraction in
// fraction order.
type Table struct {
	Rows []Row
}

// Run draws an independent subsample of physical reads at every fraction in
// opts.Fractions, keeps records whose barcode is in good, and aggregates
// per-barcode fragment counts into one Row per fraction. Fractions are
// processed concurrently; rows are assembled by fraction index, so the
// table order and contents depend only on the input and opts.Seed.
//
// An empty population or empty good set is not an error: counts degrade to
// zero and the per-barcode statistics to NaN.
func Run(t *fragments.Table, good *BarcodeSet, opts Opts) (*Table, error) {
	fracs := opts.Fractions
	if len(fracs) == 0 {
		fracs = DefaultOpts.Fractions
	}
	for _, f := range fracs {
		if f <= 0 || f > 1 {
			return nil, fmt.Errorf("subsample.Run: fraction %v not in (0, 1]", f)
		}
	}
	if len(t.Recs) == 0 {
		log.Printf("subsample: empty fragment population, statistics will be degenerate")
	} else if good.Len() == 0 {
		log.Printf("subsample: no barcode exceeds the unique-fragment threshold, statistics will be degenerate")
	}
	rows := make([]Row, len(fracs))
	err := traverse.Each(len(fracs), func(i int) error {
		r := rand.New(rand.NewSource(opts.Seed + int64(i)))
		rows[i] = statsAt(t, good, fracs[i], r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Table{Rows: rows}, nil
}

// posKey identifies a fragment position within one barcode's group.
type posKey struct {
	barcode fragments.BarcodeID
	chrom   fragments.ChromID
	start   int32
	end     int32
}

func statsAt(t *fragments.Table, good *BarcodeSet, fraction float64, r *rand.Rand) Row {
	kept := drawCounts(t, fraction, r)
	row := Row{Fraction: fraction, CellBarcodeCount: int64(good.Len())}

	nBC := t.Barcodes.Len()
	recsPerBC := make([]int64, nBC)
	uniqPerBC := make([]int64, nBC)
	seen := make(map[posKey]struct{}, len(t.Recs))
	for ri := range t.Recs {
		if kept[ri] == 0 {
			continue
		}
		rec := &t.Recs[ri]
		if !good.Contains(rec.Barcode) {
			continue
		}
		row.TotalFragCount += int64(kept[ri])
		recsPerBC[rec.Barcode]++
		key := posKey{rec.Barcode, rec.Chrom, rec.Start, rec.End}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			uniqPerBC[rec.Barcode]++
		}
	}

	recs := make([]float64, 0, nBC)
	uniqs := make([]float64, 0, nBC)
	for id := 0; id < nBC; id++ {
		if recsPerBC[id] > 0 {
			recs = append(recs, float64(recsPerBC[id]))
			uniqs = append(uniqs, float64(uniqPerBC[id]))
		}
	}
	if len(recs) == 0 {
		row.MeanFragPerBC = math.NaN()
		row.MedianUniqFragPerBC = math.NaN()
		return row
	}
	row.MeanFragPerBC = stat.Mean(recs, nil)
	sort.Float64s(uniqs)
	row.MedianUniqFragPerBC = median(uniqs)
	return row
}

// median of a sorted slice, averaging the two middle values for even
// lengths.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
