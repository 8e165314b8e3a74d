package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

// Selectors for the levels.fyi salary table
const (
	levelsTableSelector       = "table"
	levelsRowSelector         = "tbody tr"
	levelsCellSelector        = "td"
	levelsPromoClass          = "promo"
	levelsCompanyNameSelector = "a.salary-row_companyName__obLh0, p.salary-row_companyName__obLh0"
	levelsAnonymizedSelector  = "span.salary-row_anonymizedCompany__DFcB6"
	levelsLocationSelector    = "span.MuiTypography-caption"
	levelsPrimarySelector     = "p"
	levelsSecondarySelector   = "span"
	levelsCellCount           = 4
	locationDelimiter         = "|"
)

// Result holds the records parsed from one page plus counters for diagnostics
type Result struct {
	Records []models.SalaryRecord
	Status  models.PageStatus
	Rows    int // body rows found in the table
	Skipped int // promo rows, rows with the wrong cell count, rows without a company or compensation
}

// Extract parses a rendered levels.fyi listing page into salary records.
// It never fails: a page without a table yields an empty result with
// Status set to PageStructuralMismatch.
func Extract(html string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{Status: models.PageStructuralMismatch}
	}

	table := doc.Find(levelsTableSelector).First()
	if table.Length() == 0 {
		return Result{Status: models.PageStructuralMismatch}
	}

	result := Result{Status: models.PageOK}
	table.Find(levelsRowSelector).Each(func(i int, row *goquery.Selection) {
		result.Rows++

		// Skip advertisement rows
		if row.HasClass(levelsPromoClass) {
			result.Skipped++
			return
		}

		record, ok := parseRow(row)
		if !ok {
			result.Skipped++
			return
		}
		result.Records = append(result.Records, record)
	})

	return result
}

// parseRow turns a single table row into a record
func parseRow(row *goquery.Selection) (models.SalaryRecord, bool) {
	cells := row.Find(levelsCellSelector)
	if cells.Length() != levelsCellCount {
		return models.SalaryRecord{}, false
	}

	companyCell := cells.Eq(0)
	levelCell := cells.Eq(1)
	experienceCell := cells.Eq(2)
	compensationCell := cells.Eq(3)

	company, ok := parseCompanyName(companyCell)
	if !ok {
		return models.SalaryRecord{}, false
	}

	record := models.SalaryRecord{
		Company:               company,
		Location:              parseLocation(companyCell),
		LevelName:             handleHiddenValue(cellText(levelCell, levelsPrimarySelector)),
		Role:                  handleHiddenValue(cellText(levelCell, levelsSecondarySelector)),
		YearsOfExperience:     handleHiddenValue(cellText(experienceCell, levelsPrimarySelector)),
		YearsAtCompany:        handleHiddenValue(cellText(experienceCell, levelsSecondarySelector)),
		TotalCompensation:     cellText(compensationCell, levelsPrimarySelector),
		CompensationBreakdown: cellText(compensationCell, levelsSecondarySelector),
	}

	if record.TotalCompensation == "" {
		return models.SalaryRecord{}, false
	}

	return record, true
}

// parseCompanyName resolves the company shown in the first cell.
// The anonymization marker wins over any name text in the same cell.
func parseCompanyName(cell *goquery.Selection) (string, bool) {
	if _, ok := selectOne(cell, levelsAnonymizedSelector); ok {
		return models.Anonymous, true
	}

	name, ok := selectText(cell, levelsCompanyNameSelector)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// parseLocation returns the caption text before the first "|" delimiter
func parseLocation(cell *goquery.Selection) string {
	caption, ok := selectText(cell, levelsLocationSelector)
	if !ok {
		return ""
	}
	location, _, _ := strings.Cut(caption, locationDelimiter)
	return strings.TrimSpace(location)
}

// cellText returns the trimmed text of the first element matching selector, or ""
func cellText(cell *goquery.Selection, selector string) string {
	text, _ := selectText(cell, selector)
	return text
}

// handleHiddenValue rewrites the "hidden" sentinel to "N/A"
func handleHiddenValue(value string) string {
	if value == models.Hidden {
		return models.NotAvailable
	}
	return value
}

// selectText is selectOne followed by trimmed text extraction
func selectText(cell *goquery.Selection, selector string) (string, bool) {
	el, ok := selectOne(cell, selector)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(el.Text()), true
}

// selectOne returns the first descendant matching selector, if any
func selectOne(cell *goquery.Selection, selector string) (*goquery.Selection, bool) {
	el := cell.Find(selector).First()
	if el.Length() == 0 {
		return nil, false
	}
	return el, true
}
