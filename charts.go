package main

import (
	"fmt"
	"os"

	"github.com/wcharczuk/go-chart/v2"
)

const chartTitle = "Comments by Team"

// writePieChart renders the per-team share of kept comments as a pie chart
// PNG. Labels carry the percentage so slices stay readable.
func writePieChart(path string, summary []TeamSummary) error {
	total := 0
	for _, entry := range summary {
		total += entry.CommentCount
	}
	if total == 0 {
		return fmt.Errorf("no comments to chart")
	}

	values := make([]chart.Value, 0, len(summary))
	for _, entry := range summary {
		share := 100 * float64(entry.CommentCount) / float64(total)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%.1f%%)", entry.Team, share),
			Value: float64(entry.CommentCount),
		})
	}

	pie := chart.PieChart{
		Title:  chartTitle,
		Width:  600,
		Height: 600,
		Values: values,
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return pie.Render(chart.PNG, f)
}

// writeBarChart renders the per-team comment counts as a bar chart PNG.
func writeBarChart(path string, summary []TeamSummary) error {
	if len(summary) == 0 {
		return fmt.Errorf("no comments to chart")
	}

	bars := make([]chart.Value, 0, len(summary))
	for _, entry := range summary {
		bars = append(bars, chart.Value{Label: entry.Team, Value: float64(entry.CommentCount)})
	}

	bar := chart.BarChart{
		Title:    chartTitle,
		Width:    600,
		Height:   400,
		BarWidth: 60,
		Bars:     bars,
		YAxis: chart.YAxis{
			Name:           "Count",
			ValueFormatter: chart.IntValueFormatter,
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return bar.Render(chart.PNG, f)
}
