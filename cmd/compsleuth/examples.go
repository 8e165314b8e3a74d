package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "Show usage examples",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printExamples(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}

func printExamples(w io.Writer) {
	fmt.Fprintln(w, "\n📋 compsleuth Usage Examples 📋")
	fmt.Fprintln(w, "\n1. Collect 1000 Brazilian software engineer salaries with the default settings:")
	fmt.Fprintln(w, "   compsleuth crawl")

	fmt.Fprintln(w, "\n2. Collect 200 records for another listing and keep them under ./out:")
	fmt.Fprintln(w, "   compsleuth crawl --url \"https://www.levels.fyi/t/data-scientist/locations/brazil?limit=50\" --limit 200 --data-dir out --out brazil_data_scientist_salaries")

	fmt.Fprintln(w, "\n3. Open a visible browser and pause on the first page to check the layout:")
	fmt.Fprintln(w, "   compsleuth crawl --inspect --limit 50")

	fmt.Fprintln(w, "\n4. Fetch three pages at a time with playwright and mirror every record into SQLite:")
	fmt.Fprintln(w, "   compsleuth crawl --driver playwright --concurrency 3 --sqlite data/salaries.db")

	fmt.Fprintln(w, "\n5. Use plain HTTP through a proxy and print the first 10 records:")
	fmt.Fprintln(w, "   compsleuth crawl --driver http --proxy http://localhost:8080 --preview 10")

	fmt.Fprintln(w, "\n6. Summarize the newest CSV in the data directory:")
	fmt.Fprintln(w, "   compsleuth report")

	fmt.Fprintln(w, "\n7. Summarize one SQLite run, ranking companies with at least 3 records, without charts:")
	fmt.Fprintln(w, "   compsleuth report --sqlite data/salaries.db --run <run-id> --min-points 3 --no-chart")

	fmt.Fprintln(w, "\nFor more information, visit: https://github.com/fr4nk3nst1ner/compsleuth")
}
