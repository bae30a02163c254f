package nnet

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SavePlot writes the training and validation curves from the stats history
// to an image file. The format is chosen from the file extension, e.g. .svg
// or .png.
func SavePlot(stats []Stats, path string) error {
	if len(stats) == 0 {
		return errors.New("no stats to plot")
	}
	curve := func(get func(s Stats) float64) plotter.XYs {
		xys := make(plotter.XYs, len(stats))
		for i, s := range stats {
			xys[i].X = float64(s.Epoch)
			xys[i].Y = get(s)
		}
		return xys
	}
	p := plot.New()
	p.Title.Text = "training history"
	p.X.Label.Text = "epoch"
	err := plotutil.AddLinePoints(p,
		"train loss", curve(func(s Stats) float64 { return s.Loss }),
		"val loss", curve(func(s Stats) float64 { return s.ValidLoss }),
		"train acc", curve(func(s Stats) float64 { return s.TrainAcc }),
		"val acc", curve(func(s Stats) float64 { return s.ValidAcc }),
	)
	if err != nil {
		return errors.Wrap(err, "plot stats")
	}
	return errors.Wrap(p.Save(8*vg.Inch, 6*vg.Inch, path), "plot stats")
}
