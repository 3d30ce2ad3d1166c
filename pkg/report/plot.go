package report

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

// PlotROC draws the curves with the chance diagonal and saves them to path.
// The image format follows the file extension.
func PlotROC(path string, curves []Curve) error {
	if len(curves) == 0 {
		return errors.New("report: no ROC curves")
	}
	p := plot.New()
	p.Title.Text = "ROC"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return errors.Wrap(err, "report: chance line")
	}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)

	for i, c := range curves {
		pts := make(plotter.XYs, len(c.FPR))
		for j := range c.FPR {
			pts[j] = plotter.XY{X: c.FPR[j], Y: c.TPR[j]}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "report: curve %s", c.Label)
		}
		l.Color = plotutil.Color(i)
		l.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add(c.Label, l)
	}
	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "report: save ROC plot")
}

// PlotHistory draws per-epoch training and validation loss, and validation
// ROC-AUC when it was recorded.
func PlotHistory(path string, h nn.History) error {
	if len(h) == 0 {
		return errors.New("report: empty history")
	}
	p := plot.New()
	p.Title.Text = "Training history"
	p.X.Label.Text = "Epoch"
	p.Y.Label.Text = "Value"

	series := []struct {
		name string
		get  func(nn.EpochStats) float64
	}{
		{"train loss", func(e nn.EpochStats) float64 { return e.TrainLoss }},
		{"valid loss", func(e nn.EpochStats) float64 { return e.ValidLoss }},
		{"valid ROC-AUC", func(e nn.EpochStats) float64 { return e.ValidAUC }},
	}
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(h))
		for _, e := range h {
			if v := s.get(e); !math.IsNaN(v) && !math.IsInf(v, 0) {
				pts = append(pts, plotter.XY{X: float64(e.Epoch), Y: v})
			}
		}
		if len(pts) == 0 {
			continue
		}
		l, sc, err := plotter.NewLinePoints(pts)
		if err != nil {
			return errors.Wrapf(err, "report: %s", s.name)
		}
		l.Color = plotutil.Color(i)
		sc.Color = plotutil.Color(i)
		sc.Shape = plotutil.Shape(i)
		p.Add(l, sc)
		p.Legend.Add(s.name, l, sc)
	}
	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "report: save history plot")
}

// meanErrors pairs the mean score of each ranked configuration with a ±std
// error bar.
type meanErrors struct {
	plotter.XYs
	plotter.YErrors
}

// PlotSearch draws the mean score of the topN ranked configurations with a
// ±std bar. Diverged configurations are left out.
func PlotSearch(path string, ranked []search.Result, topN int) error {
	var pts meanErrors
	var labels []string
	for _, r := range ranked {
		if topN > 0 && len(pts.XYs) == topN {
			break
		}
		if math.IsNaN(r.Mean) {
			continue
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: float64(len(pts.XYs)), Y: r.Mean})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{r.Std, r.Std})
		labels = append(labels, fmt.Sprintf("#%d", r.Index))
	}
	if len(pts.XYs) == 0 {
		return errors.New("report: no finite search results")
	}

	p := plot.New()
	p.Title.Text = "Search: mean validation ROC-AUC by configuration"
	p.X.Label.Text = "Configuration (ranked)"
	p.Y.Label.Text = "ROC-AUC"

	sc, err := plotter.NewScatter(pts.XYs)
	if err != nil {
		return errors.Wrap(err, "report: search points")
	}
	sc.Shape = draw.CircleGlyph{}
	sc.Color = plotutil.Color(0)
	bars, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return errors.Wrap(err, "report: search error bars")
	}
	p.Add(sc, bars, plotter.NewGrid())
	p.NominalX(labels...)
	return errors.Wrap(p.Save(plotWidth, plotHeight, path), "report: save search plot")
}
