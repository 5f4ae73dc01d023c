package mmfit

import (
	"fmt"
	"math"

	"github.com/grailbio/base/log"
)

// Target is one resolved saturation target on the extrapolated curve.
type Target struct {
	// Percentage is the targeted fraction of the asymptotic yield, e.g.
	// 0.3 for 30%. For the achieved-saturation marker it is the observed
	// maximum yield over Vmax.
	Percentage float64
	// Depth is the smallest grid depth whose fitted yield reaches the
	// target; Yield is the fitted yield there.
	Depth float64
	Yield float64
}

// Label renders the annotation text for the target, e.g. "30% 1.23e+07".
func (tg Target) Label() string {
	return fmt.Sprintf("%d%% %.2e", int(math.Round(100*tg.Percentage)), math.Round(tg.Depth))
}

// Targets resolves every requested percentage to the smallest grid depth at
// which the fitted yield reaches percentage*Vmax, in request order. A
// percentage the extrapolation grid never reaches is skipped with a warning
// rather than failing the fit.
func (r *Result) Targets(percentages []float64) []Target {
	var out []Target
	for _, p := range percentages {
		i := r.firstReaching(p * r.Vmax)
		if i < 0 {
			log.Error.Printf("mmfit: %v%% saturation is beyond the extrapolated depth range, skipping", 100*p)
			continue
		}
		out = append(out, Target{Percentage: p, Depth: r.XFit[i], Yield: r.YFit[i]})
	}
	return out
}

// CurrentSaturation locates the depth at which the fitted curve explains the
// best observed yield. The target is the observed maximum, not Vmax, so the
// label reports the saturation the experiment has already achieved. The
// boolean is false when the grid never reaches the observed maximum, which
// happens when the observations sit above the fitted asymptote.
func (r *Result) CurrentSaturation() (Target, bool) {
	i := r.firstReaching(r.MaxObservedY)
	if i < 0 {
		log.Error.Printf("mmfit: observed maximum %v exceeds the extrapolated curve, no achieved-saturation marker", r.MaxObservedY)
		return Target{}, false
	}
	return Target{
		Percentage: r.MaxObservedY / r.Vmax,
		Depth:      r.XFit[i],
		Yield:      r.YFit[i],
	}, true
}

// firstReaching returns the index of the first grid point with fitted yield
// at least want, or -1. The fitted curve is nondecreasing, so the first hit
// is the smallest depth.
func (r *Result) firstReaching(want float64) int {
	for i, y := range r.YFit {
		if y >= want {
			return i
		}
	}
	return -1
}
