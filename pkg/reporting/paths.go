package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultReportPath returns the session report path under dir
func DefaultReportPath(dir string, startedAt time.Time, ext string) string {
	if dir == "" {
		dir = "results"
	}
	return filepath.Join(dir, fmt.Sprintf("executions_%s.%s", startedAt.UTC().Format("20060102_150405"), ext))
}

// EnsureDirectoryExists creates the parent directory of path if needed
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
