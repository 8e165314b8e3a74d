package dedup

import "github.com/fr4nk3nst1ner/compsleuth/internal/models"

// Index is a set of records already accepted during a crawl.
// Two records are the same entry only when every field matches exactly.
type Index struct {
	seen map[models.SalaryRecord]struct{}
}

// NewIndex creates an index seeded with records
func NewIndex(records []models.SalaryRecord) *Index {
	idx := &Index{seen: make(map[models.SalaryRecord]struct{}, len(records))}
	idx.Add(records...)
	return idx
}

// Add marks records as seen
func (idx *Index) Add(records ...models.SalaryRecord) {
	for _, r := range records {
		idx.seen[r] = struct{}{}
	}
}

// Contains reports whether record has been seen
func (idx *Index) Contains(record models.SalaryRecord) bool {
	_, ok := idx.seen[record]
	return ok
}

// Len returns the number of distinct records in the index
func (idx *Index) Len() int {
	return len(idx.seen)
}

// Filter returns the candidates that are not in the index, keeping their order.
// The index itself is not modified, so repeated candidates within one batch all pass.
func (idx *Index) Filter(candidates []models.SalaryRecord) []models.SalaryRecord {
	fresh := make([]models.SalaryRecord, 0, len(candidates))
	for _, c := range candidates {
		if !idx.Contains(c) {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// Filter returns the subsequence of candidates not equal to any record in seen
func Filter(candidates, seen []models.SalaryRecord) []models.SalaryRecord {
	return NewIndex(seen).Filter(candidates)
}
