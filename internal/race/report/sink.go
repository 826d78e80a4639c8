package report

import (
	"fmt"
	"io"
	"os"
)

// OpenSink resolves the diagnostic output destination. An empty path selects
// stderr; anything else is created (or truncated) as a file. The returned
// close function is a no-op for stderr.
func OpenSink(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open race report sink: %w", err)
	}
	return f, f.Close, nil
}
