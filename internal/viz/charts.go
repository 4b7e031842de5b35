// Package viz renders the images the bot attaches to messages: the
// balance history line chart, the portfolio allocation donut, and the
// authentication QR code. All renderers return PNG bytes.
package viz

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// historySeed is the synthetic history that precedes the live total.
// The backend does not expose historical balances yet, so the chart
// shows a fixed recent shape ending at the current value.
var historySeed = []float64{8000, 7500, 6300, 6250, 6300, 6400}

// AllocationSlice is one asset's share of the portfolio by USD value.
type AllocationSlice struct {
	Symbol string
	Value  float64
}

var palette = []drawing.Color{
	{R: 0x51, G: 0x8d, B: 0xca, A: 255},
	{R: 0x9b, G: 0x59, B: 0xb6, A: 255},
	{R: 0x2e, G: 0xcc, B: 0x71, A: 255},
	{R: 0xf1, G: 0xc4, B: 0x0f, A: 255},
	{R: 0xe6, G: 0x7e, B: 0x22, A: 255},
	{R: 0xe7, G: 0x4c, B: 0x3c, A: 255},
}

// RenderBalanceChart draws the balance history line ending at the
// live total.
func RenderBalanceChart(totalUSD float64) ([]byte, error) {
	ys := append(append([]float64(nil), historySeed...), totalUSD)
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}

	graph := chart.Chart{
		Title:  "Balance (USD)",
		Width:  720,
		Height: 360,
		XAxis: chart.XAxis{
			Style: chart.Hidden(),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Style: chart.Style{
					StrokeColor: palette[0],
					StrokeWidth: 2.5,
					FillColor:   palette[0].WithAlpha(48),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render balance chart: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderAllocationChart draws the portfolio split as a donut, largest
// holdings first. Zero-value slices are dropped.
func RenderAllocationChart(slices []AllocationSlice) ([]byte, error) {
	filtered := make([]AllocationSlice, 0, len(slices))
	for _, s := range slices {
		if s.Value > 0 {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("render allocation chart: no holdings with value")
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Value > filtered[j].Value })

	values := make([]chart.Value, len(filtered))
	for i, s := range filtered {
		values[i] = chart.Value{
			Label: s.Symbol,
			Value: s.Value,
			Style: chart.Style{FillColor: palette[i%len(palette)]},
		}
	}

	graph := chart.DonutChart{
		Title:  "Allocation",
		Width:  480,
		Height: 480,
		Values: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render allocation chart: %w", err)
	}
	return buf.Bytes(), nil
}
