package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fr4nk3nst1ner/compsleuth/internal/models"
	"github.com/gocarina/gocsv"
)

// CSVSink appends records to a comma-separated file.
// The header row is written only while the file is missing or empty.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

// NewCSVSink creates a sink writing to path. The file is created on the first Append.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

// Path returns the destination file
func (s *CSVSink) Path() string {
	return s.path
}

// Append writes records to the end of the file
func (s *CSVSink) Append(_ context.Context, records []models.SalaryRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	if info.Size() == 0 {
		err = gocsv.Marshal(&records, file)
	} else {
		err = gocsv.MarshalWithoutHeaders(&records, file)
	}
	if err != nil {
		return fmt.Errorf("failed to write records to %s: %w", s.path, err)
	}

	return file.Sync()
}

// ReadCSV loads every record from a file written by CSVSink
func ReadCSV(path string) ([]models.SalaryRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var records []models.SalaryRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
