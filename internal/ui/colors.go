package ui

import "github.com/pterm/pterm"

// ColorizeCompensation colors text by the tier its value falls in: red up to
// the first threshold, yellow up to the second, green above.
func ColorizeCompensation(text string, value float64, thresholds [2]float64) string {
	switch {
	case value > thresholds[1]:
		return pterm.Green(text)
	case value > thresholds[0]:
		return pterm.Yellow(text)
	default:
		return pterm.Red(text)
	}
}

// NotAvailable renders a missing value
func NotAvailable() string {
	return pterm.Red("Not Available")
}
