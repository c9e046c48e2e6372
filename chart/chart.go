// Package chart renders the per-iteration quality series of a clustering run
// as a three-panel PNG: objective, Davies–Bouldin, and ASWC.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/floats"
)

// Panel titles, top to bottom.
const (
	TitleLoss          = "Target function"
	TitleDaviesBouldin = "DB metric"
	TitleASWC          = "ASWC metric"
)

// ErrEmptySeries is returned when a series has no values.
var ErrEmptySeries = errors.New("chart: empty series")

// Renderer draws one line chart per series and stacks them vertically.
// The zero value uses 1024×320 pixel panels.
type Renderer struct {
	Width       int
	PanelHeight int
}

func (r Renderer) size() (int, int) {
	w, h := r.Width, r.PanelHeight
	if w <= 0 {
		w = 1024
	}
	if h <= 0 {
		h = 320
	}
	return w, h
}

// Render returns a PNG holding the three series, each in its own panel.
func (r Renderer) Render(loss, daviesBouldin, aswc []float64) ([]byte, error) {
	w, h := r.size()
	panels := []struct {
		title  string
		values []float64
	}{
		{TitleLoss, loss},
		{TitleDaviesBouldin, daviesBouldin},
		{TitleASWC, aswc},
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h*len(panels)))
	for i, p := range panels {
		img, err := r.panel(p.title, p.values, w, h)
		if err != nil {
			return nil, fmt.Errorf("chart: %s: %w", p.title, err)
		}
		dst := image.Rect(0, i*h, w, (i+1)*h)
		draw.Draw(canvas, dst, img, img.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("chart: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (r Renderer) panel(title string, values []float64, w, h int) (image.Image, error) {
	if len(values) == 0 {
		return nil, ErrEmptySeries
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i + 1)
	}

	graph := chart.Chart{
		Title:      title,
		TitleStyle: chart.Shown(),
		Width:      w,
		Height:     h,
		XAxis: chart.XAxis{
			Name:      "Iteration",
			NameStyle: chart.Shown(),
			Style:     chart.Shown(),
			Range:     &chart.ContinuousRange{Min: 0, Max: float64(len(values) + 1)},
		},
		YAxis: chart.YAxis{
			Style: chart.Shown(),
			Range: valueRange(values),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    title,
				XValues: xs,
				YValues: values,
				Style: chart.Style{
					StrokeColor: chart.GetAlternateColor(0),
					StrokeWidth: 2,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return png.Decode(&buf)
}

// valueRange pads a flat series so the axis never has zero extent.
func valueRange(values []float64) *chart.ContinuousRange {
	lo, hi := floats.Min(values), floats.Max(values)
	if hi > lo {
		pad := (hi - lo) * 0.05
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	pad := 1.0
	if lo != 0 {
		pad = math.Abs(lo) * 0.1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
