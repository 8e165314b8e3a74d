package ui

import (
	"io"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/rodaine/table"
)

// PrintPreview writes the first n records as a plain table
func PrintPreview(w io.Writer, records []models.SalaryRecord, n int) {
	if n <= 0 || len(records) == 0 {
		return
	}
	if n > len(records) {
		n = len(records)
	}

	tbl := table.New("Company", "Location", "Level", "Role", "YoE", "Total Compensation").WithWriter(w)
	for _, r := range records[:n] {
		tbl.AddRow(r.Company, r.Location, r.LevelName, r.Role, r.YearsOfExperience, r.TotalCompensation)
	}
	tbl.Print()
}
