package subsample

import (
	"github.com/grailbio/saturation/fragments"
)

// BarcodeSet is the set of qualifying ("good") cell barcodes, indexed by
// fragments.BarcodeID.
type BarcodeSet struct {
	member []bool
	n      int
}

// Contains reports whether id qualified.
func (s *BarcodeSet) Contains(id fragments.BarcodeID) bool {
	return int(id) < len(s.member) && s.member[id]
}

// Len returns the number of qualifying barcodes.
func (s *BarcodeSet) Len() int { return s.n }

// GoodBarcodes qualifies the barcodes of t with strictly more than
// minUniqueFragments distinct fragment records. Record counts, not
// duplicate-expanded read counts, decide qualification. Deterministic given
// identical input; an empty result is not an error.
func GoodBarcodes(t *fragments.Table, minUniqueFragments int) *BarcodeSet {
	counts := make([]int64, t.Barcodes.Len())
	for i := range t.Recs {
		counts[t.Recs[i].Barcode]++
	}
	s := &BarcodeSet{member: make([]bool, len(counts))}
	for id, c := range counts {
		if c > int64(minUniqueFragments) {
			s.member[id] = true
			s.n++
		}
	}
	return s
}
