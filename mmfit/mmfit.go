// Package mmfit fits a Michaelis-Menten saturation curve to per-fraction
// sequencing statistics and inverts the fitted model to answer how much more
// sequencing is needed to reach a requested fraction of the asymptotic
// unique-fragment yield.
package mmfit

import (
	"math"

	"github.com/grailbio/saturation/subsample"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// infeasible is the model value for non-positive parameters. It steers the
// solver out of the infeasible region without tripping domain errors.
const infeasible = 1e10

// gridPoints is the resolution of the extrapolation grid.
const gridPoints = 500

// gridSpan extends the grid to this multiple of the largest observed depth.
const gridSpan = 100

// MM evaluates the saturation model vmax*x/(km+x).
func MM(x, vmax, km float64) float64 {
	if vmax <= 0 || km <= 0 {
		return infeasible
	}
	return vmax * x / (km + x)
}

// ConvergenceError reports that the saturation fit failed. The statistics
// the fit ran on remain valid; only the fit step is affected.
type ConvergenceError struct {
	Reason string
}

func (e *ConvergenceError) Error() string {
	return "mmfit: saturation fit did not converge: " + e.Reason
}

// Result is a fitted saturation model together with its extrapolation.
type Result struct {
	// Vmax is the asymptotic unique-fragment yield; Km is the depth at
	// which half of it is reached.
	Vmax, Km float64
	// Cov is the parameter covariance in (Vmax, Km) order, the residual
	// variance propagated through the Jacobian at the optimum. Entries are
	// +Inf when it cannot be estimated.
	Cov [2][2]float64
	// XFit, YFit sample the fitted model on a dense grid from zero to
	// gridSpan times the largest observed depth.
	XFit, YFit []float64
	// MaxObservedY is the best observed yield, the reference for the
	// achieved-saturation marker.
	MaxObservedY float64
}

// Fit fits the saturation model to the table's (total_frag_count,
// median_uniq_frag_per_bc) points by least squares with both parameters
// bounded to be positive. Rows carrying NaN statistics are ignored. A
// degenerate table (fewer than two usable points, or all yields zero) and a
// solver breakdown both return a *ConvergenceError.
func Fit(stats *subsample.Table) (*Result, error) {
	var xs, ys []float64
	for _, row := range stats.Rows {
		y := row.MedianUniqFragPerBC
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		xs = append(xs, float64(row.TotalFragCount))
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return nil, &ConvergenceError{Reason: "fewer than two usable data points"}
	}
	maxX := floats.Max(xs)
	maxY := floats.Max(ys)
	if maxY <= 0 {
		return nil, &ConvergenceError{Reason: "all observed yields are zero"}
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var sse float64
			for i, x := range xs {
				r := ys[i] - MM(x, p[0], p[1])
				sse += r * r
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: 10000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Iterations: 100,
		},
	}
	init := []float64{2 * maxY, halfMaxDepth(xs, ys, maxY)}
	sol, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, &ConvergenceError{Reason: err.Error()}
	}
	if err := sol.Status.Err(); err != nil {
		return nil, &ConvergenceError{Reason: err.Error()}
	}
	vmax, km := sol.X[0], sol.X[1]
	if vmax <= 0 || km <= 0 {
		return nil, &ConvergenceError{Reason: "solver left the feasible region"}
	}

	res := &Result{
		Vmax:         vmax,
		Km:           km,
		Cov:          covariance(xs, vmax, km, sol.F),
		MaxObservedY: maxY,
	}
	res.XFit = floats.Span(make([]float64, gridPoints), 0, gridSpan*maxX)
	res.YFit = make([]float64, gridPoints)
	for i, x := range res.XFit {
		res.YFit[i] = MM(x, vmax, km)
	}
	return res, nil
}

// halfMaxDepth picks the solver's starting Km: the smallest observed depth
// whose yield reaches half the best observed yield.
func halfMaxDepth(xs, ys []float64, maxY float64) float64 {
	best := math.Inf(1)
	for i, y := range ys {
		if y >= maxY/2 && xs[i] < best {
			best = xs[i]
		}
	}
	if math.IsInf(best, 1) || best <= 0 {
		return 1
	}
	return best
}

// covariance estimates the parameter covariance as s2*inv(J'J), with the
// Jacobian of the model taken analytically at the optimum. Every entry is
// +Inf when there are no spare degrees of freedom or J'J is singular.
func covariance(xs []float64, vmax, km, sse float64) [2][2]float64 {
	inf := math.Inf(1)
	failed := [2][2]float64{{inf, inf}, {inf, inf}}
	if len(xs) <= 2 {
		return failed
	}
	var a11, a12, a22 float64
	for _, x := range xs {
		d := km + x
		j1 := x / d
		j2 := -vmax * x / (d * d)
		a11 += j1 * j1
		a12 += j1 * j2
		a22 += j2 * j2
	}
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(2, 2, []float64{a11, a12, a12, a22})); err != nil {
		return failed
	}
	s2 := sse / float64(len(xs)-2)
	var cov [2][2]float64
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			cov[i][j] = s2 * inv.At(i, j)
		}
	}
	return cov
}
