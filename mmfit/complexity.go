package mmfit

/**
* MIT License
*
* Copyright (c) 2017 Broad Institute
*
* Permission is hereby granted, free of charge, to any person obtaining a copy
* of this software and associated documentation files (the "Software"), to deal
* in the Software without restriction, including without limitation the rights
* to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
* copies of the Software, and to permit persons to whom the Software is
* furnished to do so, subject to the following conditions:
*
* The above copyright notice and this permission notice shall be included in all
* copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
* IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
* FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
* AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
* LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
* OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
* SOFTWARE.
 */

import (
	"errors"
	"fmt"
	"math"
)

// EstimateLibraryComplexity estimates the number of distinct fragments in
// the sequenced library from the full-depth totals, using the
// Lander-Waterman relation
//
//	C/X = 1 - exp(-N/X)
//
// where N is the number of physical reads, C the number of distinct
// fragments observed in them, and X the library size being solved for. The
// estimate depends only on the duplicate rate, independent of the curve fit.
func EstimateLibraryComplexity(totalReads, uniqueFragments int64) (float64, error) {
	if totalReads <= 0 || uniqueFragments <= 0 {
		return 0, errors.New("mmfit: library complexity needs positive read and fragment counts")
	}
	if uniqueFragments >= totalReads {
		return 0, errors.New("mmfit: no duplicate reads observed")
	}
	n := float64(totalReads)
	c := float64(uniqueFragments)
	f := func(x float64) float64 {
		return c/x + math.Expm1(-n/x)
	}

	// f is positive at x=c and decreasing toward the root; widen the upper
	// bracket until it crosses, then bisect. When reads and fragments are
	// almost equal the root runs away, so give up rather than loop forever.
	lo, hi := 1.0, 100.0
	for f(hi*c) >= 0 {
		hi *= 10.0
		if math.IsInf(hi, 1) {
			return 0, fmt.Errorf("mmfit: library complexity diverged for counts (%d, %d)",
				totalReads, uniqueFragments)
		}
	}
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2.0
		switch v := f(mid * c); {
		case v > 0:
			lo = mid
		case v < 0:
			hi = mid
		default:
			return c * mid, nil
		}
	}
	return c * (lo + hi) / 2.0, nil
}
