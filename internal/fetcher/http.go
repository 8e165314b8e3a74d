package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/go-resty/resty/v2"
)

const httpTimeout = 30 * time.Second

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// HTTPFetcher downloads pages without rendering them. It only sees rows that
// the server puts in the initial document.
type HTTPFetcher struct {
	client    *resty.Client
	inspector Inspector
	logger    *slog.Logger
}

// NewHTTP creates a static fetcher, routed through opts.Proxy when set
func NewHTTP(opts Options, inspector Inspector, logger *slog.Logger) *HTTPFetcher {
	logger = orDiscard(logger)
	return &HTTPFetcher{
		client:    resty.NewWithClient(newHTTPClient(opts.Proxy, logger)),
		inspector: orNoop(inspector),
		logger:    logger,
	}
}

// newHTTPClient creates an HTTP client with optional proxy support.
// An unparseable proxy URL falls back to a direct connection.
func newHTTPClient(proxyURL string, logger *slog.Logger) *http.Client {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 10,
		ForceAttemptHTTP2:   true,
	}

	if proxyURL != "" {
		if proxy, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
			// Intercepting proxies present their own certificates
			transport.TLSClientConfig.InsecureSkipVerify = true
		} else {
			orDiscard(logger).Warn("ignoring invalid proxy URL", "proxy", proxyURL, "error", err)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   httpTimeout,
	}
}

// randomHeaders returns a set of randomized headers that closely mimic a real browser.
// Accept-Encoding is left to the transport so responses are decompressed transparently.
func randomHeaders() map[string]string {
	width := 1200 + rand.Intn(400)
	height := 800 + rand.Intn(400)

	return map[string]string{
		"User-Agent":                userAgents[rand.Intn(len(userAgents))],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Connection":                "keep-alive",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Viewport-Width":            fmt.Sprintf("%d", width),
		"Viewport-Height":           fmt.Sprintf("%d", height),
		"Sec-CH-UA-Platform":        `"Windows"`,
		"Sec-CH-UA-Mobile":          "?0",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Device-Memory":             "8",
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, firstPage bool) models.PageResult {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(randomHeaders()).
		Get(pageURL)
	if err != nil {
		f.logger.WarnContext(ctx, "request failed", "url", pageURL, "error", err)
		return failed(pageURL, &Error{Driver: DriverHTTP, URL: pageURL, Message: "request failed", Cause: err})
	}

	if resp.StatusCode() != http.StatusOK {
		f.logger.WarnContext(ctx, "unexpected status", "url", pageURL, "status", resp.StatusCode())
		return failed(pageURL, &Error{Driver: DriverHTTP, URL: pageURL, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode())})
	}

	html := resp.String()
	if !hasSalaryRows(html) {
		f.logger.DebugContext(ctx, "static page has no salary rows, it may need a rendering driver", "url", pageURL)
	}

	if firstPage {
		if err := f.inspector.Inspect(ctx, pageURL); err != nil {
			f.logger.WarnContext(ctx, "inspection aborted", "url", pageURL, "error", err)
		}
	}

	return models.PageResult{URL: pageURL, HTML: html, Status: models.PageOK}
}

// Close drops idle connections
func (f *HTTPFetcher) Close() error {
	f.client.GetClient().CloseIdleConnections()
	return nil
}

func hasSalaryRows(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(rowSelector).Length() > 0
}
