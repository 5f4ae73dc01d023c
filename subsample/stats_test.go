package subsample_test

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/grailbio/saturation/fragments"
	"github.com/grailbio/saturation/subsample"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type testRec struct {
	chrom string
	start int32
	end   int32
	bc    string
	count int32
}

func makeTable(recs []testRec) *fragments.Table {
	t := &fragments.Table{}
	for _, r := range recs {
		t.Recs = append(t.Recs, fragments.Record{
			Chrom:   fragments.ChromID(t.Chroms.Intern(r.chrom)),
			Start:   r.start,
			End:     r.end,
			Barcode: fragments.BarcodeID(t.Barcodes.Intern(r.bc)),
			Count:   r.count,
		})
	}
	return t
}

// scenarioTable has three barcodes with 5, 250, and 300 distinct
// single-read fragments.
func scenarioTable() *fragments.Table {
	var recs []testRec
	add := func(bc string, n int) {
		for i := 0; i < n; i++ {
			recs = append(recs, testRec{"chr1", int32(10 * i), int32(10*i + 5), bc, 1})
		}
	}
	add("bc1", 5)
	add("bc2", 250)
	add("bc3", 300)
	return makeTable(recs)
}

func TestGoodBarcodes(t *testing.T) {
	tab := scenarioTable()
	good := subsample.GoodBarcodes(tab, 200)
	assert.EQ(t, good.Len(), 2)
	bc1, _ := tab.Barcodes.Lookup("bc1")
	bc2, _ := tab.Barcodes.Lookup("bc2")
	bc3, _ := tab.Barcodes.Lookup("bc3")
	expect.False(t, good.Contains(fragments.BarcodeID(bc1)))
	expect.True(t, good.Contains(fragments.BarcodeID(bc2)))
	expect.True(t, good.Contains(fragments.BarcodeID(bc3)))
}

func TestGoodBarcodesThresholdMonotone(t *testing.T) {
	tab := scenarioTable()
	thresholds := []int{0, 4, 10, 100, 249, 299, 300}
	for i := 0; i+1 < len(thresholds); i++ {
		loose := subsample.GoodBarcodes(tab, thresholds[i])
		strict := subsample.GoodBarcodes(tab, thresholds[i+1])
		expect.LE(t, strict.Len(), loose.Len())
		for id := 0; id < tab.Barcodes.Len(); id++ {
			bc := fragments.BarcodeID(id)
			if strict.Contains(bc) && !loose.Contains(bc) {
				t.Errorf("threshold %d kept %v but threshold %d dropped it",
					thresholds[i+1], tab.Barcodes.Name(int32(id)), thresholds[i])
			}
		}
	}
}

func TestRunScenario(t *testing.T) {
	tab := scenarioTable()
	good := subsample.GoodBarcodes(tab, 200)
	opts := subsample.DefaultOpts
	stats, err := subsample.Run(tab, good, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(stats.Rows), 10)

	for i, row := range stats.Rows {
		expect.EQ(t, row.Fraction, float64(i+1)/10)
		// The good set size is context, constant across rows.
		expect.EQ(t, row.CellBarcodeCount, int64(2))
	}

	// At fraction 1.0 the draw is the full population restricted to good
	// barcodes, whatever the random stream did.
	last := stats.Rows[9]
	expect.EQ(t, last.TotalFragCount, int64(550))
	expect.EQ(t, last.MeanFragPerBC, 275.0)
	expect.EQ(t, last.MedianUniqFragPerBC, 275.0)
}

func TestRunDrawSizeExact(t *testing.T) {
	// Weighted records; every barcode qualifies, so the per-fraction total
	// must equal floor(fraction*total) no matter the seed.
	tab := makeTable([]testRec{
		{"chr1", 0, 10, "A", 3},
		{"chr1", 20, 30, "A", 1},
		{"chr2", 0, 10, "B", 7},
		{"chr2", 40, 55, "B", 2},
		{"chr3", 5, 25, "C", 4},
	})
	total := tab.TotalReads()
	assert.EQ(t, total, int64(17))
	good := subsample.GoodBarcodes(tab, 0)
	assert.EQ(t, good.Len(), 3)

	for _, seed := range []int64{0, 1, 42} {
		opts := subsample.Opts{Fractions: subsample.Fractions(10), Seed: seed}
		stats, err := subsample.Run(tab, good, opts)
		assert.NoError(t, err)
		for _, row := range stats.Rows {
			want := int64(math.Floor(row.Fraction * float64(total)))
			expect.EQ(t, row.TotalFragCount, want,
				"fraction %v seed %d", row.Fraction, seed)
		}
	}
}

func TestRunSeedDeterminism(t *testing.T) {
	tab := scenarioTable()
	good := subsample.GoodBarcodes(tab, 200)
	opts := subsample.Opts{Fractions: subsample.Fractions(10), Seed: 7}
	first, err := subsample.Run(tab, good, opts)
	assert.NoError(t, err)
	second, err := subsample.Run(tab, good, opts)
	assert.NoError(t, err)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed produced different tables:\n%+v\n%+v", first, second)
	}
}

func TestRunEmptyPopulation(t *testing.T) {
	tab := &fragments.Table{}
	good := subsample.GoodBarcodes(tab, 200)
	assert.EQ(t, good.Len(), 0)
	stats, err := subsample.Run(tab, good, subsample.DefaultOpts)
	assert.NoError(t, err)
	assert.EQ(t, len(stats.Rows), 10)
	for _, row := range stats.Rows {
		expect.EQ(t, row.TotalFragCount, int64(0))
		expect.EQ(t, row.CellBarcodeCount, int64(0))
		expect.True(t, math.IsNaN(row.MeanFragPerBC))
		expect.True(t, math.IsNaN(row.MedianUniqFragPerBC))
	}
}

func TestRunBadFraction(t *testing.T) {
	tab := scenarioTable()
	good := subsample.GoodBarcodes(tab, 200)
	for idx, fracs := range [][]float64{{0}, {-0.1, 0.5}, {0.5, 1.1}} {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			_, err := subsample.Run(tab, good, subsample.Opts{Fractions: fracs})
			if err == nil {
				t.Errorf("fractions %v did not fail", fracs)
			}
		})
	}
}

func TestRunDeduplicatesPositions(t *testing.T) {
	// Two records at the same position under one barcode count once for the
	// unique-position median but twice for the record mean.
	tab := makeTable([]testRec{
		{"chr1", 1, 2, "A", 1},
		{"chr1", 1, 2, "A", 1},
		{"chr1", 5, 9, "A", 1},
	})
	good := subsample.GoodBarcodes(tab, 0)
	stats, err := subsample.Run(tab, good, subsample.Opts{Fractions: []float64{1.0}})
	assert.NoError(t, err)
	assert.EQ(t, len(stats.Rows), 1)
	expect.EQ(t, stats.Rows[0].MeanFragPerBC, 3.0)
	expect.EQ(t, stats.Rows[0].MedianUniqFragPerBC, 2.0)
}

func TestFractions(t *testing.T) {
	fracs := subsample.Fractions(4)
	assert.EQ(t, fracs, []float64{0.25, 0.5, 0.75, 1.0})
	expect.EQ(t, subsample.Fractions(10)[0], 0.1)
	expect.EQ(t, subsample.Fractions(10)[9], 1.0)
}
