package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fr4nk3nst1ner/compsleuth/internal/config"
	"github.com/fr4nk3nst1ner/compsleuth/internal/crawler"
	"github.com/fr4nk3nst1ner/compsleuth/internal/fetcher"
	"github.com/fr4nk3nst1ner/compsleuth/internal/storage"
	"github.com/fr4nk3nst1ner/compsleuth/internal/ui"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the salary listing and append new records to a CSV file",
	Long: "Fetches the listing page by page (offset 0, 50, 100, ...), keeps records not seen earlier in the run, " +
		"and appends them to <data-dir>/<out>_<timestamp>.csv. Stops once the limit is reached or three pages in a row add nothing.",
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

var (
	crawlURL         string
	crawlOut         string
	crawlDataDir     string
	crawlLimit       int
	crawlDriver      string
	crawlInspect     bool
	crawlConcurrency int
	crawlSQLite      string
	crawlProxy       string
	crawlPreview     int
)

func init() {
	crawlCmd.Flags().StringVarP(&crawlURL, "url", "u", "", "Listing URL to crawl (overrides config)")
	crawlCmd.Flags().StringVarP(&crawlOut, "out", "o", "", "Output file base name (overrides config)")
	crawlCmd.Flags().StringVar(&crawlDataDir, "data-dir", "", "Directory for output files (overrides config)")
	crawlCmd.Flags().IntVarP(&crawlLimit, "limit", "n", 0, "Number of records to collect (overrides config)")
	crawlCmd.Flags().StringVar(&crawlDriver, "driver", "", "Page fetcher: chromedp, playwright or http (overrides config)")
	crawlCmd.Flags().BoolVar(&crawlInspect, "inspect", false, "Pause after the first page renders until Enter is pressed")
	crawlCmd.Flags().IntVar(&crawlConcurrency, "concurrency", 0, "Pages fetched in parallel after the first (overrides config)")
	crawlCmd.Flags().StringVar(&crawlSQLite, "sqlite", "", "Also store records in this SQLite database")
	crawlCmd.Flags().StringVar(&crawlProxy, "proxy", "", "Proxy URL for the http driver")
	crawlCmd.Flags().IntVar(&crawlPreview, "preview", 0, "Print the first N collected records")

	rootCmd.AddCommand(crawlCmd)
}

// applyCrawlFlags copies explicitly set flags over the loaded config
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Crawl.BaseURL = crawlURL
	}
	if flags.Changed("out") {
		cfg.Crawl.OutputBase = crawlOut
	}
	if flags.Changed("data-dir") {
		cfg.Crawl.DataDir = crawlDataDir
	}
	if flags.Changed("limit") {
		cfg.Crawl.TargetCount = crawlLimit
	}
	if flags.Changed("driver") {
		cfg.Fetcher.Driver = crawlDriver
	}
	if flags.Changed("inspect") {
		cfg.Fetcher.InspectFirstPage = crawlInspect
	}
	if flags.Changed("concurrency") {
		cfg.Crawl.Concurrency = crawlConcurrency
	}
	if flags.Changed("sqlite") {
		cfg.Storage.SQLitePath = crawlSQLite
	}
	if flags.Changed("proxy") {
		cfg.Fetcher.Proxy = crawlProxy
	}
	if cfg.Fetcher.InspectFirstPage {
		// Nothing to inspect in a window that is never shown
		cfg.Fetcher.Headless = false
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCrawlFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := storage.EnsureDataDir(cfg.Crawl.DataDir)
	if err != nil {
		return err
	}
	outPath := filepath.Join(dataDir, storage.TimestampedFilename(cfg.Crawl.OutputBase, time.Now()))
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	sinks := storage.MultiSink{storage.NewCSVSink(outPath)}
	if cfg.Storage.SQLitePath != "" {
		db, err := storage.OpenSQLite(ctx, cfg.Storage.SQLitePath, runID)
		if err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	var inspector fetcher.Inspector = fetcher.NoopInspector{}
	if cfg.Fetcher.InspectFirstPage {
		inspector = fetcher.PromptInspector{In: os.Stdin}
	}

	f, err := fetcher.New(ctx, fetcher.Options{
		Driver:      cfg.Fetcher.Driver,
		WaitTimeout: cfg.Fetcher.WaitTimeout,
		SettleTime:  cfg.Fetcher.SettleTime,
		Headless:    cfg.Fetcher.Headless,
		Proxy:       cfg.Fetcher.Proxy,
	}, inspector, logger)
	if err != nil {
		return fmt.Errorf("failed to start page fetcher: %w", err)
	}

	pterm.Info.Printfln("Crawling %s", cfg.Crawl.BaseURL)
	pterm.Info.Printfln("Saving to %s", outPath)

	progress := ui.NewProgress(cmd.OutOrStdout(), cfg.Crawl.TargetCount)
	c := crawler.New(crawler.Config{
		BaseURL:       cfg.Crawl.BaseURL,
		TargetCount:   cfg.Crawl.TargetCount,
		PageStride:    cfg.Crawl.PageStride,
		MaxEmptyPages: cfg.Crawl.MaxEmptyPages,
		MinDelay:      cfg.Crawl.MinDelay,
		MaxDelay:      cfg.Crawl.MaxDelay,
		Concurrency:   cfg.Crawl.Concurrency,
	}, f, sinks,
		crawler.WithLogger(logger),
		crawler.WithProgress(func(ev crawler.PageEvent) {
			progress.Update(ev.Page, ev.Offset, ev.Total)
		}),
	)

	res, runErr := c.Run(ctx)
	progress.Finish()

	var perr *crawler.PersistenceError
	unsaved := 0
	if errors.As(runErr, &perr) {
		unsaved = perr.Records
	}
	if res != nil {
		printCrawlSummary(cmd.OutOrStdout(), res, unsaved, outPath, runID, cfg.Storage.SQLitePath)
		ui.PrintPreview(cmd.OutOrStdout(), res.Records, crawlPreview)
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, context.Canceled):
		pterm.Warning.Println("Crawl interrupted, records collected so far are saved")
		return nil
	case perr != nil:
		return fmt.Errorf("crawl stopped at offset %d: %w", perr.Offset, runErr)
	default:
		return fmt.Errorf("crawl failed: %w", runErr)
	}
}

// printCrawlSummary reports the crawl outcome. unsaved is the size of a batch the sink rejected.
func printCrawlSummary(w io.Writer, res *crawler.Result, unsaved int, outPath, runID, sqlitePath string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stop reason:     %s\n", res.Reason)
	fmt.Fprintf(w, "Pages crawled:   %s (last offset %s)\n", humanize.Comma(int64(res.Pages)), humanize.Comma(int64(res.LastOffset)))
	fmt.Fprintf(w, "Records saved:   %s\n", humanize.Comma(int64(len(res.Records)-unsaved)))
	if unsaved > 0 {
		fmt.Fprintf(w, "Not saved:       %s (sink failure)\n", humanize.Comma(int64(unsaved)))
	}

	if info, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(w, "Output file:     %s (%s)\n", outPath, humanize.Bytes(uint64(info.Size())))
	} else {
		fmt.Fprintf(w, "Output file:     %s (not written, no records)\n", outPath)
	}
	if sqlitePath != "" {
		fmt.Fprintf(w, "SQLite:          %s (run %s)\n", sqlitePath, runID)
	}
}
