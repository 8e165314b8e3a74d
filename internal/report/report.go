// Package report turns a completed record set into compensation statistics:
// overall figures, tertile tiers, company and location rankings and
// experience buckets.
package report

import (
	"cmp"
	"slices"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

const (
	DefaultTopN      = 10
	DefaultMinPoints = 5
)

// Options controls the rankings in a Summary
type Options struct {
	TopN      int // entries per ranking
	MinPoints int // records a company needs for the filtered ranking
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.MinPoints <= 0 {
		o.MinPoints = DefaultMinPoints
	}
	return o
}

// Tier names, lowest paid first
const (
	Tier1 = "Tier 1"
	Tier2 = "Tier 2"
	Tier3 = "Tier 3"
)

// TierStats is Stats for one compensation tier
type TierStats struct {
	Name string
	Stats
}

// Group is one row of a ranking
type Group struct {
	Name  string
	Count int
	Mean  float64
}

// Bucket groups records by years of experience. MaxYears < 0 means no upper bound.
type Bucket struct {
	Label    string
	MinYears int
	MaxYears int
	Stats
}

var experienceBuckets = []Bucket{
	{Label: "0-1", MinYears: 0, MaxYears: 1},
	{Label: "2-4", MinYears: 2, MaxYears: 4},
	{Label: "5-7", MinYears: 5, MaxYears: 7},
	{Label: "8-10", MinYears: 8, MaxYears: 10},
	{Label: "11+", MinYears: 11, MaxYears: -1},
}

// Summary is everything the report renders
type Summary struct {
	Currency    string
	Total       int // records given to Build
	Skipped     int // records without a parseable total compensation
	Overall     Stats
	Thresholds  [2]float64 // 33rd and 67th percentiles
	Tiers       []TierStats
	Companies   []Group // by mean, descending
	Established []Group // by mean, companies with at least MinPoints records
	Locations   []Group
	Experience  []Bucket
	MinPoints   int
}

type parsedRecord struct {
	models.SalaryRecord
	value float64
}

// Build computes a Summary. Records whose total compensation cannot be parsed
// are counted in Skipped and left out of every statistic.
func Build(records []models.SalaryRecord, opts Options) Summary {
	opts = opts.withDefaults()
	summary := Summary{Total: len(records), MinPoints: opts.MinPoints}

	parsed := make([]parsedRecord, 0, len(records))
	values := make([]float64, 0, len(records))
	for _, r := range records {
		v, ok := ParseCompensation(r.TotalCompensation)
		if !ok {
			summary.Skipped++
			continue
		}
		if summary.Currency == "" {
			summary.Currency = CurrencyPrefix(r.TotalCompensation)
		}
		parsed = append(parsed, parsedRecord{SalaryRecord: r, value: v})
		values = append(values, v)
	}
	if len(parsed) == 0 {
		return summary
	}

	summary.Overall = computeStats(values)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	summary.Thresholds = [2]float64{Percentile(sorted, 0.33), Percentile(sorted, 0.67)}

	byTier := map[string][]float64{}
	for _, p := range parsed {
		tier := TierOf(p.value, summary.Thresholds)
		byTier[tier] = append(byTier[tier], p.value)
	}
	for _, name := range []string{Tier1, Tier2, Tier3} {
		if vals := byTier[name]; len(vals) > 0 {
			summary.Tiers = append(summary.Tiers, TierStats{Name: name, Stats: computeStats(vals)})
		}
	}

	companies := groupBy(parsed, func(p parsedRecord) string { return p.Company })
	summary.Companies = top(companies, opts.TopN)
	summary.Established = top(slices.DeleteFunc(slices.Clone(companies), func(g Group) bool {
		return g.Count < opts.MinPoints
	}), opts.TopN)
	summary.Locations = top(groupBy(parsed, func(p parsedRecord) string { return p.Location }), opts.TopN)

	summary.Experience = bucketByExperience(parsed)
	return summary
}

// TierOf places value in a tier given the 33rd and 67th percentile thresholds
func TierOf(value float64, thresholds [2]float64) string {
	switch {
	case value <= thresholds[0]:
		return Tier1
	case value <= thresholds[1]:
		return Tier2
	default:
		return Tier3
	}
}

// groupBy averages values per key. Blank keys are ignored.
func groupBy(parsed []parsedRecord, key func(parsedRecord) string) []Group {
	type acc struct {
		count int
		sum   float64
	}
	totals := map[string]*acc{}
	var order []string
	for _, p := range parsed {
		k := key(p)
		if k == "" {
			continue
		}
		a, ok := totals[k]
		if !ok {
			a = &acc{}
			totals[k] = a
			order = append(order, k)
		}
		a.count++
		a.sum += p.value
	}

	groups := make([]Group, 0, len(order))
	for _, k := range order {
		a := totals[k]
		groups = append(groups, Group{Name: k, Count: a.count, Mean: a.sum / float64(a.count)})
	}
	return groups
}

// top sorts by mean descending, breaking ties by name, and keeps the first n
func top(groups []Group, n int) []Group {
	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(b.Mean, a.Mean); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

func bucketByExperience(parsed []parsedRecord) []Bucket {
	values := make([][]float64, len(experienceBuckets))
	for _, p := range parsed {
		years, ok := ParseYears(p.YearsOfExperience)
		if !ok {
			continue
		}
		for i, b := range experienceBuckets {
			if years >= b.MinYears && (b.MaxYears < 0 || years <= b.MaxYears) {
				values[i] = append(values[i], p.value)
				break
			}
		}
	}

	buckets := make([]Bucket, len(experienceBuckets))
	for i, b := range experienceBuckets {
		b.Stats = computeStats(values[i])
		buckets[i] = b
	}
	return buckets
}
