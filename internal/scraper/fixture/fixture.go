// Package fixture implements a scraper.Source backed by a local NDJSON file,
// used for local runs and tests in place of a production HTTP scraper.
package fixture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"stormlightlabs.org/rankcore/internal/scraper"
)

// Source reads one scraper.Record per line from a newline-delimited JSON file.
type Source struct {
	Path      string
	fromIndex int
}

// New creates a fixture Source reading from path, optionally resuming after
// a prior checkpoint index.
func New(path string, resumeFrom int) *Source {
	return &Source{Path: path, fromIndex: resumeFrom}
}

// Pull streams records lazily, one JSON object per line, closing both
// channels when the file is exhausted or ctx is cancelled.
func (s *Source) Pull(ctx context.Context) (<-chan scraper.Record, <-chan error) {
	records := make(chan scraper.Record)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		f, err := os.Open(s.Path)
		if err != nil {
			errs <- fmt.Errorf("open fixture file: %w", err)
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		idx := 0
		for scanner.Scan() {
			line := scanner.Bytes()
			if idx < s.fromIndex {
				idx++
				continue
			}

			var rec scraper.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				errs <- fmt.Errorf("decode record at line %d: %w", idx, err)
				idx++
				continue
			}

			select {
			case <-ctx.Done():
				return
			case records <- rec:
			}
			idx++
		}

		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("scan fixture file: %w", err)
		}
	}()

	return records, errs
}
