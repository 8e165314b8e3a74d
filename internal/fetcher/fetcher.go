// Package fetcher loads listing pages and hands back their HTML.
//
// Three drivers are available: a headless Chrome driver built on chromedp (the
// default), a playwright-go driver, and a static HTTP driver. All of them
// report failures through models.PageResult instead of returning errors, so
// the crawl loop can treat a bad page as an empty one.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

// Driver names accepted by New
const (
	DriverChromedp   = "chromedp"
	DriverPlaywright = "playwright"
	DriverHTTP       = "http"
)

const (
	tableSelector = "table"
	rowSelector   = "table tbody tr"

	defaultWaitTimeout = 10 * time.Second
	defaultSettleTime  = 2 * time.Second
)

// Fetcher returns the HTML of one listing page
type Fetcher interface {
	// Fetch loads url. firstPage is true only for the first request of a crawl.
	Fetch(ctx context.Context, url string, firstPage bool) models.PageResult
	// Close releases the browser or connections held by the fetcher
	Close() error
}

// Options configures a fetcher
type Options struct {
	Driver      string
	WaitTimeout time.Duration // max wait for the table and its rows
	SettleTime  time.Duration // extra wait once rows are present
	Headless    bool
	Proxy       string // http driver only
}

func (o Options) withDefaults() Options {
	if o.Driver == "" {
		o.Driver = DriverChromedp
	}
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	if o.SettleTime < 0 {
		o.SettleTime = 0
	}
	return o
}

// New starts the fetcher selected by opts.Driver.
// A nil inspector disables the first-page hook; a nil logger discards output.
func New(ctx context.Context, opts Options, inspector Inspector, logger *slog.Logger) (Fetcher, error) {
	opts = opts.withDefaults()
	logger = orDiscard(logger).With("driver", opts.Driver)

	switch opts.Driver {
	case DriverChromedp:
		f, err := NewChromedp(ctx, opts, inspector, logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	case DriverPlaywright:
		f, err := NewPlaywright(opts, inspector, logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	case DriverHTTP:
		return NewHTTP(opts, inspector, logger), nil
	default:
		return nil, &Error{Driver: opts.Driver, Message: fmt.Sprintf("unknown driver %q", opts.Driver)}
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

func orNoop(inspector Inspector) Inspector {
	if inspector == nil {
		return NoopInspector{}
	}
	return inspector
}

func failed(url string, err error) models.PageResult {
	return models.PageResult{URL: url, Status: models.PageFetchFailed, Err: err}
}
