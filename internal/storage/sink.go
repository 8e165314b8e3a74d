package storage

import (
	"context"
	"fmt"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
)

// Sink persists newly accepted salary records
type Sink interface {
	// Append writes records after whatever the sink already holds
	Append(ctx context.Context, records []models.SalaryRecord) error
}

// MultiSink appends to every sink in order and stops at the first failure
type MultiSink []Sink

func (m MultiSink) Append(ctx context.Context, records []models.SalaryRecord) error {
	for i, s := range m {
		if err := s.Append(ctx, records); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
