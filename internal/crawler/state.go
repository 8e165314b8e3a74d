package crawler

import (
	"github.com/fr4nk3nst1ner/compsleuth/internal/dedup"
	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

// StopReason says why a crawl ended
type StopReason int

const (
	StopTargetReached StopReason = iota + 1
	StopEmptyPages
	StopCanceled
	StopPersistenceFailure
)

func (r StopReason) String() string {
	switch r {
	case StopTargetReached:
		return "target_reached"
	case StopEmptyPages:
		return "empty_pages"
	case StopCanceled:
		return "canceled"
	case StopPersistenceFailure:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of a crawl
type Result struct {
	Records               []models.SalaryRecord // deduplicated, discovery order, at most TargetCount
	Pages                 int
	LastOffset            int
	ConsecutiveEmptyPages int
	Reason                StopReason
}

// crawlState lives for a single Run
type crawlState struct {
	offset      int
	accumulated []models.SalaryRecord
	index       *dedup.Index
	emptyPages  int
	pages       int
}

func newCrawlState() *crawlState {
	return &crawlState{index: dedup.NewIndex(nil)}
}

func (s *crawlState) add(records []models.SalaryRecord) {
	s.accumulated = append(s.accumulated, records...)
	s.index.Add(records...)
}

func (s *crawlState) result(reason StopReason, target int) *Result {
	records := s.accumulated
	if len(records) > target {
		records = records[:target]
	}
	return &Result{
		Records:               records,
		Pages:                 s.pages,
		LastOffset:            s.offset,
		ConsecutiveEmptyPages: s.emptyPages,
		Reason:                reason,
	}
}
