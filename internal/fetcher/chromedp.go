package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

// ChromedpFetcher renders pages in one headless Chrome, opening a tab per fetch
type ChromedpFetcher struct {
	opts        Options
	inspector   Inspector
	logger      *slog.Logger
	browserCtx  context.Context
	allocCancel context.CancelFunc
}

// NewChromedp launches the browser. ctx bounds the browser lifetime.
func NewChromedp(ctx context.Context, opts Options, inspector Inspector, logger *slog.Logger) (*ChromedpFetcher, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, _ := chromedp.NewContext(allocCtx)

	// Start the browser now so every fetch gets a tab in it rather than a browser of its own
	if err := chromedp.Run(browserCtx); err != nil {
		allocCancel()
		return nil, &Error{Driver: DriverChromedp, Message: "failed to start browser", Cause: err}
	}

	return &ChromedpFetcher{
		opts:        opts,
		inspector:   orNoop(inspector),
		logger:      orDiscard(logger),
		browserCtx:  browserCtx,
		allocCancel: allocCancel,
	}, nil
}

func (f *ChromedpFetcher) Fetch(ctx context.Context, url string, firstPage bool) models.PageResult {
	tabCtx, cancel := chromedp.NewContext(f.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	f.logger.DebugContext(ctx, "navigating", "url", url)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		return failed(url, &Error{Driver: DriverChromedp, URL: url, Message: "navigation failed", Cause: err})
	}

	status := models.PageOK
	if err := f.waitForRows(tabCtx); err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return failed(url, &Error{Driver: DriverChromedp, URL: url, Message: "waiting for table failed", Cause: err})
		}
		f.logger.WarnContext(ctx, "timed out waiting for salary table", "url", url, "timeout", f.opts.WaitTimeout)
		status = models.PageFetchTimeout
	}

	if status == models.PageOK {
		if firstPage {
			if err := f.inspector.Inspect(ctx, url); err != nil {
				f.logger.WarnContext(ctx, "inspection aborted", "url", url, "error", err)
			}
		}
		if err := chromedp.Run(tabCtx, chromedp.Sleep(f.opts.SettleTime)); err != nil {
			return failed(url, &Error{Driver: DriverChromedp, URL: url, Message: "settle interrupted", Cause: err})
		}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return failed(url, &Error{Driver: DriverChromedp, URL: url, Message: "failed to read page HTML", Cause: err})
	}

	return models.PageResult{URL: url, HTML: html, Status: status}
}

// waitForRows waits for the table and then for its first body row, each bounded by WaitTimeout
func (f *ChromedpFetcher) waitForRows(tabCtx context.Context) error {
	for _, sel := range []string{tableSelector, rowSelector} {
		waitCtx, cancel := context.WithTimeout(tabCtx, f.opts.WaitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

// Close shuts the browser down
func (f *ChromedpFetcher) Close() error {
	defer f.allocCancel()
	if err := chromedp.Cancel(f.browserCtx); err != nil {
		return &Error{Driver: DriverChromedp, Message: "failed to close browser", Cause: err}
	}
	return nil
}
