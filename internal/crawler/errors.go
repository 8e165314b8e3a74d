package crawler

import "fmt"

// PersistenceError is returned when the sink rejects a batch of new records.
// Batches appended before the failure remain in the output.
type PersistenceError struct {
	Offset  int
	Records int
	Cause   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %d records from offset %d: %v", e.Records, e.Offset, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
