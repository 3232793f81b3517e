package components

import (
	"github.com/NimbleMarkets/ntcharts/barchart"

	"outpostlabs/outpost/internal/tui/styles"
	"outpostlabs/outpost/internal/usage"
)

// UsageChart renders per-key transferred bytes as a bar chart. The
// report baseline fixes the scale so bars stay comparable across
// refreshes; a zero baseline falls back to auto-scaling.
func UsageChart(report usage.Report, width, height int) string {
	if len(report.Keys) == 0 {
		return styles.MutedText.Render("no access keys")
	}

	var opts []barchart.Option
	if report.BaselineBytes > 0 {
		opts = append(opts, barchart.WithMaxValue(float64(report.BaselineBytes)))
	}

	bc := barchart.New(width, height, opts...)
	for _, key := range report.Keys {
		style := styles.Bar
		if key.Limit != nil && key.Bytes >= key.Limit.Bytes {
			style = styles.BarOverLimit
		}
		bc.Push(barchart.BarData{
			Label: keyLabel(key),
			Values: []barchart.BarValue{
				{Name: key.KeyID, Value: float64(key.Bytes), Style: style},
			},
		})
	}
	bc.Draw()
	return bc.View()
}

// keyLabel picks a short display label for a key's bar.
func keyLabel(key usage.KeyUsage) string {
	label := key.Name
	if label == "" {
		label = "key " + key.KeyID
	}
	if len(label) > 12 {
		label = label[:11] + "…"
	}
	return label
}
