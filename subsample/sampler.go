package subsample

import (
	"math"
	"math/rand"

	"github.com/grailbio/saturation/fragments"
)

// drawCounts draws floor(fraction*total) physical reads uniformly without
// replacement from the duplicate-expanded population of t and returns, per
// record, how many of its Count reads were selected. Records drawn zero
// times are effectively dropped by the caller.
//
// Selection sampling (Vitter's algorithm S) walks the conceptual read
// sequence and admits each read with probability needed/remaining, which
// reproduces the uniform without-replacement distribution over the expanded
// universe without materializing it. At fraction 1.0 every read is admitted,
// so the result does not depend on the random stream.
func drawCounts(t *fragments.Table, fraction float64, r *rand.Rand) []int32 {
	total := t.TotalReads()
	want := int64(math.Floor(fraction * float64(total)))
	if want > total {
		want = total
	}
	kept := make([]int32, len(t.Recs))
	var drawn, seen int64
	for ri := range t.Recs {
		if drawn == want {
			break
		}
		k := int32(0)
		for j := t.Recs[ri].Count; j > 0; j-- {
			if r.Float64()*float64(total-seen) < float64(want-drawn) {
				k++
				drawn++
			}
			seen++
		}
		kept[ri] = k
	}
	return kept
}
