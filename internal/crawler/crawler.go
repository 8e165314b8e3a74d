// Package crawler walks a paginated salary listing page by page, keeping the
// records that have not been seen before and handing each new batch to a sink.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/fr4nk3nst1ner/compsleuth/internal/fetcher"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/fr4nk3nst1ner/compsleuth/internal/scraper"
	"github.com/fr4nk3nst1ner/compsleuth/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageStride    = 50
	DefaultMaxEmptyPages = 3
)

// Config controls pagination and termination
type Config struct {
	BaseURL       string
	TargetCount   int
	PageStride    int
	MaxEmptyPages int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	Concurrency   int
}

func (c Config) withDefaults() Config {
	if c.PageStride <= 0 {
		c.PageStride = DefaultPageStride
	}
	if c.MaxEmptyPages <= 0 {
		c.MaxEmptyPages = DefaultMaxEmptyPages
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	return c
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive, got %d", c.TargetCount)
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min delay must not be negative, got %s", c.MinDelay)
	}
	return nil
}

// PageURL returns the listing URL for offset. Offset 0 is the base URL unchanged.
func PageURL(baseURL string, offset int) string {
	if offset == 0 {
		return baseURL
	}
	sep := "&"
	if !strings.Contains(baseURL, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%soffset=%d", baseURL, sep, offset)
}

// PageEvent describes one evaluated page
type PageEvent struct {
	Page        int
	Offset      int
	URL         string
	Status      models.PageStatus
	Rows        int
	Parsed      int
	New         int
	Total       int
	EmptyStreak int
}

// Option configures a Crawler
type Option func(*Crawler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every evaluated page
func WithProgress(fn func(PageEvent)) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// WithSleep replaces the politeness delay implementation
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Crawler) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithRand sets the random source used to pick delays
func WithRand(r *rand.Rand) Option {
	return func(c *Crawler) {
		if r != nil {
			c.rnd = r
		}
	}
}

// Crawler runs a single crawl. It is not safe for concurrent use.
type Crawler struct {
	cfg      Config
	fetcher  fetcher.Fetcher
	sink     storage.Sink
	logger   *slog.Logger
	progress func(PageEvent)
	sleep    func(ctx context.Context, d time.Duration) error
	rnd      *rand.Rand
}

// New creates a crawler. The crawler owns f and closes it when Run returns.
func New(cfg Config, f fetcher.Fetcher, sink storage.Sink, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:     cfg.withDefaults(),
		fetcher: f,
		sink:    sink,
		logger:  slog.New(slog.DiscardHandler),
		sleep:   sleepContext,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls until the target count is reached or MaxEmptyPages consecutive
// pages produce nothing new. The returned Result is non-nil whenever the
// crawl started, including when it ends with an error.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	defer func() {
		if err := c.fetcher.Close(); err != nil {
			c.logger.Error("failed to release page fetcher", "error", err)
		}
	}()

	if err := c.cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid crawl config: %w", err)
	}

	st := newCrawlState()
	c.logger.InfoContext(ctx, "starting crawl",
		"url", c.cfg.BaseURL,
		"target", c.cfg.TargetCount,
		"concurrency", c.cfg.Concurrency,
	)

	reason, err := c.loop(ctx, st)
	res := st.result(reason, c.cfg.TargetCount)

	c.logger.InfoContext(ctx, "crawl finished",
		"reason", reason.String(),
		"records", len(res.Records),
		"pages", res.Pages,
		"last_offset", res.LastOffset,
	)
	return res, err
}

func (c *Crawler) loop(ctx context.Context, st *crawlState) (StopReason, error) {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return StopCanceled, err
		}

		offsets := c.batchOffsets(st.offset, first)
		pages := c.fetchBatch(ctx, offsets, first)
		first = false

		for i, page := range pages {
			if err := ctx.Err(); err != nil {
				return StopCanceled, err
			}
			st.offset = offsets[i]
			if reason, done, err := c.evaluate(ctx, st, page); done {
				return reason, err
			}
		}

		st.offset += c.cfg.PageStride
		delay := c.delay()
		c.logger.DebugContext(ctx, "waiting before next page", "delay", delay, "next_offset", st.offset)
		if err := c.sleep(ctx, delay); err != nil {
			return StopCanceled, err
		}
	}
}

// batchOffsets lists the offsets fetched together. The first page is always fetched alone.
func (c *Crawler) batchOffsets(start int, first bool) []int {
	n := c.cfg.Concurrency
	if first {
		n = 1
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = start + i*c.cfg.PageStride
	}
	return offsets
}

func (c *Crawler) fetchBatch(ctx context.Context, offsets []int, first bool) []models.PageResult {
	pages := make([]models.PageResult, len(offsets))
	if len(offsets) == 1 {
		pages[0] = c.fetch(ctx, offsets[0], first)
		return pages
	}

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, offset := range offsets {
		g.Go(func() error {
			pages[i] = c.fetch(ctx, offset, false)
			return nil
		})
	}
	_ = g.Wait()
	return pages
}

func (c *Crawler) fetch(ctx context.Context, offset int, first bool) models.PageResult {
	pageURL := PageURL(c.cfg.BaseURL, offset)
	c.logger.InfoContext(ctx, "fetching page", "url", pageURL, "offset", offset)
	return c.fetcher.Fetch(ctx, pageURL, first)
}

// evaluate extracts and deduplicates one page, persists what is new and
// reports whether the crawl is over.
func (c *Crawler) evaluate(ctx context.Context, st *crawlState, page models.PageResult) (StopReason, bool, error) {
	st.pages++

	status := page.Status
	var extracted scraper.Result
	if status == models.PageFetchFailed {
		c.logger.WarnContext(ctx, "page fetch failed", "offset", st.offset, "error", page.Err)
	} else {
		extracted = scraper.Extract(page.HTML)
		if extracted.Status == models.PageStructuralMismatch {
			c.logger.WarnContext(ctx, "no salary table found", "offset", st.offset, "fetch_status", status.String())
			if status == models.PageOK {
				status = models.PageStructuralMismatch
			}
		}
		c.logger.DebugContext(ctx, "rows extracted",
			"offset", st.offset,
			"rows", extracted.Rows,
			"parsed", len(extracted.Records),
			"skipped", extracted.Skipped,
		)
	}

	fresh := st.index.Filter(extracted.Records)
	if len(fresh) == 0 {
		st.emptyPages++
		c.logger.InfoContext(ctx, "no new records on page", "offset", st.offset, "empty_streak", st.emptyPages)
	} else {
		st.emptyPages = 0
		st.add(fresh)
		c.logger.InfoContext(ctx, "new records found", "offset", st.offset, "new", len(fresh), "total", len(st.accumulated))
	}

	c.report(PageEvent{
		Page:        st.pages,
		Offset:      st.offset,
		URL:         page.URL,
		Status:      status,
		Rows:        extracted.Rows,
		Parsed:      len(extracted.Records),
		New:         len(fresh),
		Total:       len(st.accumulated),
		EmptyStreak: st.emptyPages,
	})

	if len(fresh) > 0 {
		if err := c.sink.Append(ctx, fresh); err != nil {
			return StopPersistenceFailure, true, &PersistenceError{Offset: st.offset, Records: len(fresh), Cause: err}
		}
		c.logger.DebugContext(ctx, "records appended", "count", len(fresh))
	}

	switch {
	case len(st.accumulated) >= c.cfg.TargetCount:
		return StopTargetReached, true, nil
	case st.emptyPages >= c.cfg.MaxEmptyPages:
		return StopEmptyPages, true, nil
	}
	return 0, false, nil
}

func (c *Crawler) report(ev PageEvent) {
	if c.progress != nil {
		c.progress(ev)
	}
}

// delay picks a duration in [MinDelay, MaxDelay)
func (c *Crawler) delay() time.Duration {
	spread := c.cfg.MaxDelay - c.cfg.MinDelay
	if spread <= 0 {
		return c.cfg.MinDelay
	}
	return c.cfg.MinDelay + time.Duration(c.rnd.Int63n(int64(spread)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
