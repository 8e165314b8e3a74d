package storage

import (
	"fmt"
	"os"
	"time"
)

const timestampLayout = "2006-01-02-15-04-05"

// TimestampedFilename returns "<base>_<YYYY-MM-DD-HH-MM-SS>.csv"
func TimestampedFilename(base string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, t.Format(timestampLayout))
}

// EnsureDataDir creates dir if it does not exist and returns it
func EnsureDataDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return dir, nil
}
