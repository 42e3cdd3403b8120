package runlog

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	targetColor = color.RGBA{R: 30, G: 110, B: 220, A: 255}
	actualColor = color.RGBA{R: 230, G: 120, B: 20, A: 255}
	errorColor  = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

var jointNames = [3]string{"a1", "a2", "a3"}

// PlotPNG renders, for every joint, target against actual and the tracking
// error over the sample index. It returns the files written to outDir.
func PlotPNG(recs []Record, outDir string) ([]string, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records to plot")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var files []string
	for j, name := range jointNames {
		target := make(plotter.XYs, len(recs))
		actual := make(plotter.XYs, len(recs))
		errs := make(plotter.XYs, len(recs))
		for i, r := range recs {
			t, a, e := r.Target.Slice(), r.Actual.Slice(), r.Error().Slice()
			target[i] = plotter.XY{X: float64(i), Y: t[j]}
			actual[i] = plotter.XY{X: float64(i), Y: a[j]}
			errs[i] = plotter.XY{X: float64(i), Y: e[j]}
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("Target vs Actual (Joint %d)", j+1)
		p.X.Label.Text = "Sample"
		p.Y.Label.Text = "Angle (deg)"
		if err := addLine(p, "Target", target, targetColor); err != nil {
			return files, err
		}
		if err := addLine(p, "Actual", actual, actualColor); err != nil {
			return files, err
		}
		p.Legend.Top = true
		path := filepath.Join(outDir, fmt.Sprintf("target_vs_actual_%s.png", name))
		if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
			return files, fmt.Errorf("save %s: %w", path, err)
		}
		files = append(files, path)

		pe := plot.New()
		pe.Title.Text = fmt.Sprintf("Tracking Error (Joint %d)", j+1)
		pe.X.Label.Text = "Sample"
		pe.Y.Label.Text = "Error (deg)"
		if err := addLine(pe, "Error", errs, errorColor); err != nil {
			return files, err
		}
		pe.Legend.Top = true
		path = filepath.Join(outDir, fmt.Sprintf("error_%s.png", name))
		if err := pe.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
			return files, fmt.Errorf("save %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s line: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}
