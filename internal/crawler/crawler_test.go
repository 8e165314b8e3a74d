package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://www.levels.fyi/t/software-engineer/locations/brazil?limit=50"

func row(company, total string) string {
	return fmt.Sprintf(`<tr>
		<td><a class="salary-row_companyName__obLh0">%s</a><span class="MuiTypography-caption">São Paulo | today</span></td>
		<td><p>Senior</p><span>Software Engineer</span></td>
		<td><p>5 yrs</p><span>1 yr</span></td>
		<td><p>%s</p><span>100K | 0 | 0</span></td>
	</tr>`, company, total)
}

func table(rows ...string) string {
	return "<html><body><table><tbody>" + strings.Join(rows, "") + "</tbody></table></body></html>"
}

// uniquePage returns n rows that no other offset produces
func uniquePage(offset, n int) string {
	rows := make([]string, n)
	for i := range rows {
		rows[i] = row(fmt.Sprintf("Company %d", offset+i), "R$100,000")
	}
	return table(rows...)
}

type fakeFetcher struct {
	mu       sync.Mutex
	pages    func(offset int) models.PageResult
	urls     []string
	first    []bool
	closed   int
	closeErr error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, firstPage bool) models.PageResult {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.first = append(f.first, firstPage)
	f.mu.Unlock()

	offset := 0
	if i := strings.Index(url, "offset="); i >= 0 {
		_, _ = fmt.Sscanf(url[i:], "offset=%d", &offset)
	}
	res := f.pages(offset)
	res.URL = url
	return res
}

func (f *fakeFetcher) Close() error {
	f.closed++
	return f.closeErr
}

func htmlPages(fn func(offset int) string) func(int) models.PageResult {
	return func(offset int) models.PageResult {
		return models.PageResult{HTML: fn(offset), Status: models.PageOK}
	}
}

type fakeSink struct {
	calls [][]models.SalaryRecord
	err   error
}

func (s *fakeSink) Append(_ context.Context, records []models.SalaryRecord) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, records)
	return nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func config(target int) Config {
	return Config{
		BaseURL:     baseURL,
		TargetCount: target,
		MinDelay:    time.Second,
		MaxDelay:    3 * time.Second,
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		base   string
		offset int
		want   string
	}{
		{baseURL, 0, baseURL},
		{baseURL, 50, baseURL + "&offset=50"},
		{baseURL, 100, baseURL + "&offset=100"},
		{"https://example.com/listing", 0, "https://example.com/listing"},
		{"https://example.com/listing", 50, "https://example.com/listing?offset=50"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, PageURL(tt.base, tt.offset))
		})
	}
}

func TestRun_PaginatesByStride(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 50) })}
	sink := &fakeSink{}
	sleeper := &sleepRecorder{}

	res, err := New(config(150), f, sink, WithSleep(sleeper.sleep)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{baseURL, baseURL + "&offset=50", baseURL + "&offset=100"}, f.urls)
	assert.Equal(t, []bool{true, false, false}, f.first)
	assert.Equal(t, StopTargetReached, res.Reason)
	assert.Len(t, res.Records, 150)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 100, res.LastOffset)
	assert.Len(t, sink.calls, 3)
	assert.Equal(t, 1, f.closed)

	// one delay between consecutive fetches, none after the last page
	require.Len(t, sleeper.delays, 2)
	for _, d := range sleeper.delays {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestRun_TerminatesWithinBound(t *testing.T) {
	for _, target := range []int{1, 49, 50, 51, 120, 1000} {
		t.Run(fmt.Sprint(target), func(t *testing.T) {
			f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 50) })}
			res, err := New(config(target), f, &fakeSink{}, WithSleep(func(context.Context, time.Duration) error { return nil })).Run(context.Background())
			require.NoError(t, err)

			bound := 3 + (target+49)/50
			assert.LessOrEqual(t, res.Pages, bound)
			assert.Len(t, res.Records, target)
		})
	}
}

func TestRun_ThreeEmptyPages(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(int) string { return table() })}
	sink := &fakeSink{}

	res, err := New(config(1000), f, sink, WithSleep(func(context.Context, time.Duration) error { return nil })).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopEmptyPages, res.Reason)
	assert.Equal(t, 3, res.ConsecutiveEmptyPages)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 100, res.LastOffset)
	assert.Empty(t, res.Records)
	assert.Empty(t, sink.calls)
}

func TestRun_DuplicatesDoNotGrowOrPersist(t *testing.T) {
	seen := table(row("Nubank", "R$200,000"), row("Stone", "R$90,000"))
	f := &fakeFetcher{pages: htmlPages(func(int) string { return seen })}
	sink := &fakeSink{}

	res, err := New(config(1000), f, sink, WithSleep(func(context.Context, time.Duration) error { return nil })).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.calls, 1)
	assert.Len(t, sink.calls[0], 2)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, StopEmptyPages, res.Reason)
	assert.Equal(t, 4, res.Pages)
}

func TestRun_EmptyStreakResetsOnNewRecords(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string {
		switch offset {
		case 0, 150:
			return uniquePage(offset, 10)
		default:
			return table()
		}
	})}

	res, err := New(config(1000), f, &fakeSink{}, WithSleep(func(context.Context, time.Duration) error { return nil })).Run(context.Background())
	require.NoError(t, err)

	// 0 new, 50 and 100 empty, 150 new, then 200, 250 and 300 empty
	assert.Equal(t, 7, res.Pages)
	assert.Equal(t, 300, res.LastOffset)
	assert.Len(t, res.Records, 20)
}

func TestRun_TruncatesToTarget(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 50) })}
	sink := &fakeSink{}

	res, err := New(config(30), f, sink).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Records, 30)
	assert.Equal(t, "Company 0", res.Records[0].Company)
	assert.Equal(t, "Company 29", res.Records[29].Company)
	require.Len(t, sink.calls, 1)
	assert.Len(t, sink.calls[0], 50)
	assert.Equal(t, 1, res.Pages)
}

func TestRun_FailedAndMismatchedPagesCountAsEmpty(t *testing.T) {
	f := &fakeFetcher{pages: func(offset int) models.PageResult {
		switch offset {
		case 0:
			return models.PageResult{Status: models.PageFetchFailed, Err: errors.New("net::ERR_CONNECTION_RESET")}
		case 50:
			return models.PageResult{HTML: "<html><body>Access denied</body></html>", Status: models.PageOK}
		default:
			return models.PageResult{HTML: "<html></html>", Status: models.PageFetchTimeout}
		}
	}}
	var events []PageEvent

	res, err := New(config(10), f, &fakeSink{},
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithProgress(func(ev PageEvent) { events = append(events, ev) }),
	).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopEmptyPages, res.Reason)
	require.Len(t, events, 3)
	assert.Equal(t, models.PageFetchFailed, events[0].Status)
	assert.Equal(t, models.PageStructuralMismatch, events[1].Status)
	assert.Equal(t, models.PageFetchTimeout, events[2].Status)
	assert.Equal(t, []int{1, 2, 3}, []int{events[0].EmptyStreak, events[1].EmptyStreak, events[2].EmptyStreak})
}

func TestRun_TimedOutPageIsStillExtracted(t *testing.T) {
	f := &fakeFetcher{pages: func(offset int) models.PageResult {
		return models.PageResult{HTML: uniquePage(offset, 5), Status: models.PageFetchTimeout}
	}}

	res, err := New(config(5), f, &fakeSink{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
	assert.Equal(t, StopTargetReached, res.Reason)
}

func TestRun_PersistenceFailure(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 50) })}
	diskFull := errors.New("no space left on device")

	res, err := New(config(1000), f, &fakeSink{err: diskFull}).Run(context.Background())
	require.Error(t, err)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.Offset)
	assert.Equal(t, 50, pe.Records)
	assert.ErrorIs(t, err, diskFull)

	require.NotNil(t, res)
	assert.Equal(t, StopPersistenceFailure, res.Reason)
	assert.Len(t, res.Records, 50)
	assert.Equal(t, 1, f.closed)
}

func TestRun_CloseErrorIsNotReturned(t *testing.T) {
	f := &fakeFetcher{
		pages:    htmlPages(func(offset int) string { return uniquePage(offset, 5) }),
		closeErr: errors.New("browser already gone"),
	}

	res, err := New(config(5), f, &fakeSink{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Records, 5)
	assert.Equal(t, 1, f.closed)
}

func TestRun_InvalidConfig(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(int) string { return table() })}

	res, err := New(Config{BaseURL: baseURL}, f, &fakeSink{}).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.urls)
	assert.Equal(t, 1, f.closed)
}

func TestRun_Canceled(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 10) })}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleep := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res, err := New(config(1000), f, &fakeSink{}, WithSleep(sleep)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCanceled, res.Reason)
	assert.Len(t, res.Records, 10)
	assert.Len(t, f.urls, 1)
	assert.Equal(t, 1, f.closed)
}

func TestRun_ConcurrentBatchesEvaluateInOrder(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string { return uniquePage(offset, 50) })}
	sink := &fakeSink{}
	sleeper := &sleepRecorder{}
	cfg := config(175)
	cfg.Concurrency = 3

	res, err := New(cfg, f, sink, WithSleep(sleeper.sleep)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopTargetReached, res.Reason)
	assert.Equal(t, 150, res.LastOffset)
	require.Len(t, res.Records, 175)
	for i, rec := range res.Records {
		assert.Equal(t, fmt.Sprintf("Company %d", i), rec.Company)
	}
	require.Len(t, sink.calls, 4)
	assert.Equal(t, "Company 100", sink.calls[2][0].Company)

	// the first page goes alone and is the only one flagged for inspection
	assert.Equal(t, baseURL, f.urls[0])
	assert.True(t, f.first[0])
	for _, first := range f.first[1:] {
		assert.False(t, first)
	}
	assert.Len(t, sleeper.delays, 1)
}

func TestRun_ConcurrentBatchStopsAtFirstTerminalPage(t *testing.T) {
	f := &fakeFetcher{pages: htmlPages(func(offset int) string {
		if offset == 0 {
			return uniquePage(0, 5)
		}
		return table()
	})}
	cfg := config(1000)
	cfg.Concurrency = 4

	res, err := New(cfg, f, &fakeSink{}, WithSleep(func(context.Context, time.Duration) error { return nil })).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopEmptyPages, res.Reason)
	assert.Equal(t, 150, res.LastOffset)
	assert.Equal(t, 4, res.Pages)
	assert.Len(t, f.urls, 5)
}

func TestDelay(t *testing.T) {
	c := New(config(1), &fakeFetcher{}, &fakeSink{}, WithRand(rand.New(rand.NewSource(1))))
	for i := 0; i < 1000; i++ {
		d := c.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}

	cfg := config(1)
	cfg.MaxDelay = cfg.MinDelay
	c = New(cfg, &fakeFetcher{}, &fakeSink{})
	assert.Equal(t, time.Second, c.delay())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{MinDelay: 2 * time.Second, MaxDelay: time.Second}.withDefaults()
	assert.Equal(t, 50, cfg.PageStride)
	assert.Equal(t, 3, cfg.MaxEmptyPages)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.MaxDelay)
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "target_reached", StopTargetReached.String())
	assert.Equal(t, "empty_pages", StopEmptyPages.String())
	assert.Equal(t, "canceled", StopCanceled.String())
	assert.Equal(t, "persistence_failure", StopPersistenceFailure.String())
	assert.Equal(t, "unknown", StopReason(0).String())
}
