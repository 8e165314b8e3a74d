package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellFragment(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tbody><tr>" + html + "</tr></tbody></table>"))
	require.NoError(t, err)
	return doc.Find("td").First()
}

func salaryTable(rows ...string) string {
	return "<html><body><table><thead><tr><th>Company</th></tr></thead><tbody>" +
		strings.Join(rows, "\n") +
		"</tbody></table></body></html>"
}

func salaryRow(companyCell, level, role, yoe, yac, total, breakdown string) string {
	return fmt.Sprintf(`<tr>
		<td>%s</td>
		<td><p>%s</p><span>%s</span></td>
		<td><p>%s</p><span>%s</span></td>
		<td><p>%s</p><span>%s</span></td>
	</tr>`, companyCell, level, role, yoe, yac, total, breakdown)
}

const namedCompanyCell = `<a class="salary-row_companyName__obLh0">Test Company</a>` +
	`<span class="MuiTypography-caption">São Paulo, Brazil | 2 days ago</span>`

func TestParseCompanyName(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		want   string
		wantOK bool
	}{
		{
			name:   "anchor name",
			html:   `<td><a class="salary-row_companyName__obLh0">Test Company</a></td>`,
			want:   "Test Company",
			wantOK: true,
		},
		{
			name:   "paragraph name",
			html:   `<td><p class="salary-row_companyName__obLh0">  Nubank </p></td>`,
			want:   "Nubank",
			wantOK: true,
		},
		{
			name:   "anonymized",
			html:   `<td><span class="salary-row_anonymizedCompany__DFcB6">Software Engineer</span></td>`,
			want:   "Anonymous",
			wantOK: true,
		},
		{
			name:   "anonymized wins over name",
			html:   `<td><a class="salary-row_companyName__obLh0">Test Company</a><span class="salary-row_anonymizedCompany__DFcB6">x</span></td>`,
			want:   "Anonymous",
			wantOK: true,
		},
		{
			name:   "empty cell",
			html:   `<td></td>`,
			wantOK: false,
		},
		{
			name:   "blank name",
			html:   `<td><a class="salary-row_companyName__obLh0">   </a></td>`,
			wantOK: false,
		},
		{
			name:   "unrelated markup",
			html:   `<td><a class="company">Test Company</a></td>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCompanyName(cellFragment(t, tt.html))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"caption with delimiter", `<td><span class="MuiTypography-caption">São Paulo, Brazil | 2 days ago</span></td>`, "São Paulo, Brazil"},
		{"caption without delimiter", `<td><span class="MuiTypography-caption"> Remote </span></td>`, "Remote"},
		{"several delimiters", `<td><span class="MuiTypography-caption">Recife | 1 day ago | extra</span></td>`, "Recife"},
		{"no caption", `<td></td>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLocation(cellFragment(t, tt.html)))
		})
	}
}

func TestCellText(t *testing.T) {
	cell := cellFragment(t, `<td><p> Test Text </p></td>`)
	assert.Equal(t, "Test Text", cellText(cell, "p"))
	assert.Equal(t, "", cellText(cell, "span"))
}

func TestHandleHiddenValue(t *testing.T) {
	assert.Equal(t, "N/A", handleHiddenValue("hidden"))
	assert.Equal(t, "visible", handleHiddenValue("visible"))
	assert.Equal(t, "Hidden", handleHiddenValue("Hidden"))
	assert.Equal(t, "", handleHiddenValue(""))
}

func TestExtract_SingleValidRow(t *testing.T) {
	html := salaryTable(salaryRow(namedCompanyCell, "Senior", "Software Engineer", "5-7 yrs", "3-5 yrs", "R$200,000", "150K | 50K | 0"))

	result := Extract(html)

	require.Len(t, result.Records, 1)
	assert.Equal(t, models.PageOK, result.Status)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, models.SalaryRecord{
		Company:               "Test Company",
		Location:              "São Paulo, Brazil",
		LevelName:             "Senior",
		Role:                  "Software Engineer",
		YearsOfExperience:     "5-7 yrs",
		YearsAtCompany:        "3-5 yrs",
		TotalCompensation:     "R$200,000",
		CompensationBreakdown: "150K | 50K | 0",
	}, result.Records[0])
}

func TestExtract_AnonymizedCompany(t *testing.T) {
	cell := `<a class="salary-row_companyName__obLh0">Real Name</a><span class="salary-row_anonymizedCompany__DFcB6">Software Engineer</span>`
	result := Extract(salaryTable(salaryRow(cell, "L3", "Backend", "2 yrs", "1 yr", "R$120,000", "")))

	require.Len(t, result.Records, 1)
	assert.Equal(t, "Anonymous", result.Records[0].Company)
	assert.Equal(t, "", result.Records[0].Location)
}

func TestExtract_HiddenSentinels(t *testing.T) {
	html := salaryTable(salaryRow(namedCompanyCell, "hidden", "hidden", "hidden", "hidden", "hidden", "hidden"))

	result := Extract(html)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "N/A", rec.LevelName)
	assert.Equal(t, "N/A", rec.Role)
	assert.Equal(t, "N/A", rec.YearsOfExperience)
	assert.Equal(t, "N/A", rec.YearsAtCompany)
	// compensation fields keep the raw text
	assert.Equal(t, "hidden", rec.TotalCompensation)
	assert.Equal(t, "hidden", rec.CompensationBreakdown)
}

func TestExtract_DiscardsMalformedRows(t *testing.T) {
	valid := salaryRow(namedCompanyCell, "Senior", "SWE", "5 yrs", "1 yr", "R$100,000", "")
	noCompany := salaryRow(`<span class="MuiTypography-caption">Rio | now</span>`, "Senior", "SWE", "5 yrs", "1 yr", "R$90,000", "")
	noCompensation := salaryRow(namedCompanyCell, "Junior", "SWE", "1 yr", "1 yr", "", "10K")
	promo := `<tr class="promo"><td><a class="salary-row_companyName__obLh0">Ad</a></td><td></td><td></td><td><p>R$1</p></td></tr>`
	threeCells := `<tr><td><a class="salary-row_companyName__obLh0">Short</a></td><td></td><td><p>R$1</p></td></tr>`
	fiveCells := `<tr><td><a class="salary-row_companyName__obLh0">Long</a></td><td></td><td></td><td><p>R$1</p></td><td></td></tr>`

	result := Extract(salaryTable(valid, noCompany, noCompensation, promo, threeCells, fiveCells))

	require.Len(t, result.Records, 1)
	assert.Equal(t, "Test Company", result.Records[0].Company)
	assert.Equal(t, 6, result.Rows)
	assert.Equal(t, 5, result.Skipped)
}

func TestExtract_MissingSubElements(t *testing.T) {
	row := `<tr>
		<td><p class="salary-row_companyName__obLh0">Itaú</p></td>
		<td></td>
		<td><span>2 yrs</span></td>
		<td><p>R$80,000</p></td>
	</tr>`

	result := Extract(salaryTable(row))

	require.Len(t, result.Records, 1)
	assert.Equal(t, models.SalaryRecord{
		Company:           "Itaú",
		YearsAtCompany:    "2 yrs",
		TotalCompensation: "R$80,000",
	}, result.Records[0])
}

func TestExtract_NoTable(t *testing.T) {
	for _, html := range []string{"", "<html><body><div>Loading...</div></body></html>", "not even html <<<"} {
		result := Extract(html)
		assert.Empty(t, result.Records)
		assert.Equal(t, models.PageStructuralMismatch, result.Status)
	}
}

func TestExtract_EmptyTable(t *testing.T) {
	result := Extract(salaryTable())
	assert.Empty(t, result.Records)
	assert.Equal(t, models.PageOK, result.Status)
	assert.Equal(t, 0, result.Rows)
}

func TestExtract_UsesFirstTableOnly(t *testing.T) {
	first := salaryTable(salaryRow(namedCompanyCell, "Senior", "SWE", "5 yrs", "1 yr", "R$100,000", ""))
	second := strings.Replace(first, "Test Company", "Other Company", 1)

	result := Extract(first + second)

	require.Len(t, result.Records, 1)
	assert.Equal(t, "Test Company", result.Records[0].Company)
}

func TestExtract_PreservesRowOrder(t *testing.T) {
	var rows []string
	for i := 0; i < 5; i++ {
		cell := fmt.Sprintf(`<a class="salary-row_companyName__obLh0">Company %d</a>`, i)
		rows = append(rows, salaryRow(cell, "L4", "SWE", "3 yrs", "1 yr", fmt.Sprintf("R$%d00,000", i+1), ""))
	}

	result := Extract(salaryTable(rows...))

	require.Len(t, result.Records, 5)
	for i, rec := range result.Records {
		assert.Equal(t, fmt.Sprintf("Company %d", i), rec.Company)
	}
}
