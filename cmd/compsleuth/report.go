package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/fr4nk3nst1ner/compsleuth/internal/report"
	"github.com/fr4nk3nst1ner/compsleuth/internal/storage"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report [csv]",
	Short: "Summarize collected compensation data",
	Long: "Reads records from the given CSV, from a SQLite database (--sqlite), or from the newest CSV in the " +
		"configured data directory, and prints overall statistics, tiers, company and location rankings and experience buckets.",
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var (
	reportSQLite    string
	reportRun       string
	reportTop       int
	reportMinPoints int
	reportNoChart   bool
)

func init() {
	reportCmd.Flags().StringVar(&reportSQLite, "sqlite", "", "Read records from this SQLite database instead of a CSV")
	reportCmd.Flags().StringVar(&reportRun, "run", "", "Only include this run id (SQLite only)")
	reportCmd.Flags().IntVar(&reportTop, "top", report.DefaultTopN, "Entries per ranking")
	reportCmd.Flags().IntVar(&reportMinPoints, "min-points", report.DefaultMinPoints, "Records a company needs for the established ranking")
	reportCmd.Flags().BoolVar(&reportNoChart, "no-chart", false, "Skip bar charts")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var (
		records []models.SalaryRecord
		source  string
	)
	switch {
	case len(args) == 1:
		source = args[0]
		records, err = storage.ReadCSV(source)
	case reportSQLite != "":
		source = reportSQLite
		// Opening would create an empty database at a mistyped path
		if _, err := os.Stat(reportSQLite); err != nil {
			return fmt.Errorf("failed to open SQLite database: %w", err)
		}
		var db *storage.SQLiteSink
		db, err = storage.OpenSQLite(cmd.Context(), reportSQLite, "")
		if err != nil {
			return err
		}
		defer db.Close()
		records, err = db.Records(cmd.Context(), reportRun)
	default:
		source, err = latestCSV(cfg.Crawl.DataDir, cfg.Crawl.OutputBase)
		if err != nil {
			return err
		}
		records, err = storage.ReadCSV(source)
	}
	if err != nil {
		return err
	}

	pterm.Info.Printfln("Loaded %d records from %s", len(records), source)

	summary := report.Build(records, report.Options{TopN: reportTop, MinPoints: reportMinPoints})
	return report.Render(cmd.OutOrStdout(), summary, report.RenderOptions{NoChart: reportNoChart})
}

// latestCSV returns the newest <base>_<timestamp>.csv in dir. Timestamps sort lexically.
func latestCSV(dir, base string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, base+"_*.csv"))
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no %s_*.csv files in %s, run crawl first or pass a CSV path", base, dir)
	}
	slices.Sort(matches)
	return matches[len(matches)-1], nil
}
