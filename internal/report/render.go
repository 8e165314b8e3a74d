package report

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/fr4nk3nst1ner/compsleuth/internal/ui"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
)

// RenderOptions controls Render output
type RenderOptions struct {
	NoChart bool
}

// FormatAmount prints a value with thousands separators behind the currency symbol
func FormatAmount(currency string, v float64) string {
	return currency + humanize.Comma(int64(math.Round(v)))
}

// Render writes the summary as tables, followed by bar charts unless disabled
func Render(w io.Writer, s Summary, opts RenderOptions) error {
	if s.Overall.Count == 0 {
		_, err := fmt.Fprintf(w, "No compensation data to report (%d records, %d unparseable)\n", s.Total, s.Skipped)
		return err
	}

	money := func(v float64) string {
		return ui.ColorizeCompensation(FormatAmount(s.Currency, v), v, s.Thresholds)
	}

	t := newTable(w, "Overall")
	t.AppendHeader(table.Row{"Records", "Skipped", "Mean", "Median", "Min", "Max", "P25", "P75", "P90"})
	o := s.Overall
	t.AppendRow(table.Row{
		humanize.Comma(int64(o.Count)), humanize.Comma(int64(s.Skipped)),
		money(o.Mean), money(o.Median), money(o.Min), money(o.Max), money(o.P25), money(o.P75), money(o.P90),
	})
	t.Render()

	t = newTable(w, fmt.Sprintf("Summary by Tier (thresholds %s / %s)",
		FormatAmount(s.Currency, s.Thresholds[0]), FormatAmount(s.Currency, s.Thresholds[1])))
	t.AppendHeader(table.Row{"Tier", "Count", "Mean", "Median", "Min", "Max"})
	for _, tier := range s.Tiers {
		t.AppendRow(table.Row{tier.Name, tier.Count, money(tier.Mean), money(tier.Median), money(tier.Min), money(tier.Max)})
	}
	t.Render()

	renderGroups(w, fmt.Sprintf("Top %d Companies by Average Compensation", len(s.Companies)), "Company", s.Companies, money)
	renderGroups(w, fmt.Sprintf("Top Companies with at least %d Data Points", s.MinPoints), "Company", s.Established, money)
	renderGroups(w, fmt.Sprintf("Top %d Locations by Average Compensation", len(s.Locations)), "Location", s.Locations, money)

	t = newTable(w, "Compensation by Years of Experience")
	t.AppendHeader(table.Row{"Years", "Count", "Mean", "Median", "Min", "Max"})
	for _, b := range s.Experience {
		if b.Count == 0 {
			t.AppendRow(table.Row{b.Label, 0, "-", "-", "-", "-"})
			continue
		}
		t.AppendRow(table.Row{b.Label, b.Count, money(b.Mean), money(b.Median), money(b.Min), money(b.Max)})
	}
	t.Render()

	if opts.NoChart {
		return nil
	}

	for _, chart := range []struct {
		title  string
		groups []Group
	}{
		{"Average compensation, established companies", s.Established},
		{"Average compensation by location", s.Locations},
	} {
		if len(chart.groups) == 0 {
			continue
		}
		out, err := barChart(chart.groups)
		if err != nil {
			return fmt.Errorf("failed to render chart %q: %w", chart.title, err)
		}
		if _, err := fmt.Fprintf(w, "\n%s\n%s\n", pterm.Bold.Sprint(chart.title), out); err != nil {
			return err
		}
	}
	return nil
}

// newTable prints title as a heading above the table; go-pretty titles wrap at the table width
func newTable(w io.Writer, title string) table.Writer {
	fmt.Fprintf(w, "\n%s\n", pterm.Bold.Sprint(title))
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderGroups(w io.Writer, title, label string, groups []Group, money func(float64) string) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", label, "Records", "Mean"})
	for i, g := range groups {
		t.AppendRow(table.Row{i + 1, g.Name, g.Count, money(g.Mean)})
	}
	if len(groups) == 0 {
		t.AppendRow(table.Row{"", "no data", "", ""})
	}
	t.Render()
}

func barChart(groups []Group) (string, error) {
	bars := make(pterm.Bars, 0, len(groups))
	for _, g := range groups {
		bars = append(bars, pterm.Bar{Label: g.Name, Value: int(math.Round(g.Mean))})
	}
	return pterm.DefaultBarChart.
		WithHorizontal().
		WithShowValue().
		WithBars(bars).
		Srender()
}
