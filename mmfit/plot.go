package mmfit

import (
	"context"
	"image/color"
	"math"

	"github.com/grailbio/base/file"
	"github.com/grailbio/saturation/subsample"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Marker colors: observed data and the achieved-saturation marker in
// crimson, requested-percentage guides in grey.
var (
	crimson = color.RGBA{R: 0xdc, G: 0x14, B: 0x3c, A: 0xff}
	grey    = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// SavePlot renders the fit as a PNG: the observed (depth, yield) points,
// the fitted curve, and dashed guides with annotations for the
// achieved-saturation marker and each resolved target.
func SavePlot(ctx context.Context, path string, stats *subsample.Table, res *Result, targets []Target) (err error) {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.X.Label.Text = "total_frag_count"
	p.Y.Label.Text = "median_uniq_frag_per_bc"

	// The display trims the curve at 95% of the asymptote; markers are
	// resolved on the full grid before any trimming.
	xs, ys := res.XFit, res.YFit
	if i := res.firstReaching(0.95 * res.Vmax); i > 0 {
		xs, ys = xs[:i], ys[:i]
	}
	curve, err := plotter.NewLine(xyPoints(xs, ys))
	if err != nil {
		return err
	}
	curve.LineStyle.Color = color.Black
	curve.LineStyle.Width = vg.Points(1)

	observed, err := plotter.NewScatter(observedPoints(stats))
	if err != nil {
		return err
	}
	observed.GlyphStyle.Color = crimson
	observed.GlyphStyle.Radius = vg.Points(2)

	p.Add(curve, observed)

	anchorX := xs[len(xs)-1]
	if cur, ok := res.CurrentSaturation(); ok {
		if err := addMarker(p, cur, crimson, anchorX); err != nil {
			return err
		}
	}
	for _, tg := range targets {
		if err := addMarker(p, tg, grey, anchorX); err != nil {
			return err
		}
	}

	wt, err := p.WriterTo(6.4*vg.Inch, 4.8*vg.Inch, "png")
	if err != nil {
		return err
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	_, err = wt.WriteTo(out.Writer(ctx))
	return err
}

// addMarker draws dashed guides from both axes to the target point plus its
// label, right-aligned at the displayed curve's edge.
func addMarker(p *plot.Plot, tg Target, c color.Color, anchorX float64) error {
	vline, err := plotter.NewLine(plotter.XYs{{X: tg.Depth, Y: 0}, {X: tg.Depth, Y: tg.Yield}})
	if err != nil {
		return err
	}
	hline, err := plotter.NewLine(plotter.XYs{{X: 0, Y: tg.Yield}, {X: tg.Depth, Y: tg.Yield}})
	if err != nil {
		return err
	}
	for _, l := range []*plotter.Line{vline, hline} {
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(1)
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: anchorX, Y: tg.Yield}},
		Labels: []string{tg.Label()},
	})
	if err != nil {
		return err
	}
	labels.TextStyle[0].Color = c
	labels.TextStyle[0].XAlign = draw.XRight
	labels.TextStyle[0].YAlign = draw.YBottom
	p.Add(vline, hline, labels)
	return nil
}

func xyPoints(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

func observedPoints(stats *subsample.Table) plotter.XYs {
	var pts plotter.XYs
	for _, row := range stats.Rows {
		if math.IsNaN(row.MedianUniqFragPerBC) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(row.TotalFragCount), Y: row.MedianUniqFragPerBC})
	}
	return pts
}
