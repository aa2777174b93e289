package reports

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	chartWidth  = 1024
	chartHeight = 512
)

// barChartPNG renders labelled counts as a PNG bar chart.
func barChartPNG(title string, labels []string, values []int) ([]byte, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("chart %q: %d labels for %d values", title, len(labels), len(values))
	}
	if len(values) == 0 {
		labels, values = []string{"-"}, []int{0}
	}

	peak := 1.0
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		bars[i] = chart.Value{Label: labels[i], Value: float64(v)}
		if float64(v) > peak {
			peak = float64(v)
		}
	}

	c := chart.BarChart{
		Title:      title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10}},
		XAxis:      chart.Shown(),
		YAxis: chart.YAxis{
			Style: chart.Shown(),
			// A fixed floor keeps all-zero series renderable.
			Range: &chart.ContinuousRange{Min: 0, Max: peak},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func barWidth(n int) int {
	w := (chartWidth - 100) / n * 2 / 3
	switch {
	case w < 8:
		return 8
	case w > 80:
		return 80
	}
	return w
}
