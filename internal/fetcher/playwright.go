package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/playwright-community/playwright-go"
)

// PlaywrightFetcher renders pages in a Chromium driven by playwright, one page per fetch.
// Browsers must already be installed (`playwright install chromium`).
type PlaywrightFetcher struct {
	opts      Options
	inspector Inspector
	logger    *slog.Logger
	pw        *playwright.Playwright
	browser   playwright.Browser
}

// NewPlaywright starts the playwright driver and launches Chromium
func NewPlaywright(opts Options, inspector Inspector, logger *slog.Logger) (*PlaywrightFetcher, error) {
	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, &Error{Driver: DriverPlaywright, Message: "failed to start playwright", Cause: err}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, &Error{Driver: DriverPlaywright, Message: "failed to launch chromium", Cause: err}
	}

	return &PlaywrightFetcher{
		opts:      opts,
		inspector: orNoop(inspector),
		logger:    orDiscard(logger),
		pw:        pw,
		browser:   browser,
	}, nil
}

func (f *PlaywrightFetcher) Fetch(ctx context.Context, url string, firstPage bool) models.PageResult {
	if err := ctx.Err(); err != nil {
		return failed(url, err)
	}

	page, err := f.browser.NewPage()
	if err != nil {
		return failed(url, &Error{Driver: DriverPlaywright, URL: url, Message: "failed to open page", Cause: err})
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Debug("failed to close page", "url", url, "error", err)
		}
	}()

	f.logger.DebugContext(ctx, "navigating", "url", url)
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return failed(url, &Error{Driver: DriverPlaywright, URL: url, Message: "navigation failed", Cause: err})
	}

	status := models.PageOK
	timeout := playwright.Float(float64(f.opts.WaitTimeout.Milliseconds()))
	for _, sel := range []string{tableSelector, rowSelector} {
		err := page.Locator(sel).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: timeout,
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, playwright.ErrTimeout) {
			return failed(url, &Error{Driver: DriverPlaywright, URL: url, Message: "waiting for table failed", Cause: err})
		}
		f.logger.WarnContext(ctx, "timed out waiting for salary table", "url", url, "selector", sel, "timeout", f.opts.WaitTimeout)
		status = models.PageFetchTimeout
		break
	}

	if status == models.PageOK {
		if firstPage {
			if err := f.inspector.Inspect(ctx, url); err != nil {
				f.logger.WarnContext(ctx, "inspection aborted", "url", url, "error", err)
			}
		}
		page.WaitForTimeout(float64(f.opts.SettleTime.Milliseconds()))
	}

	html, err := page.Content()
	if err != nil {
		return failed(url, &Error{Driver: DriverPlaywright, URL: url, Message: "failed to read page HTML", Cause: err})
	}

	return models.PageResult{URL: url, HTML: html, Status: status}
}

// Close closes the browser and stops the driver process
func (f *PlaywrightFetcher) Close() error {
	var errs []error
	if err := f.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := f.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return &Error{Driver: DriverPlaywright, Message: "failed to shut down", Cause: err}
	}
	return nil
}
