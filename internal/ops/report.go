package ops

import (
	"fmt"
	"io"
	"net/url"
	"sync"
)

// Report tallies the outcome of every key a run touches and, when given a
// writer, records one CSV line per key:
//
//	outcome,size,fingerprint,escaped-key
type Report struct {
	mu       sync.Mutex
	writer   io.Writer
	counts   map[Outcome]int
	uploaded int64
}

// NewReport creates a report. A nil writer keeps the tallies only.
func NewReport(w io.Writer) *Report {
	if w == nil {
		w = io.Discard
	}
	return &Report{
		writer: w,
		counts: make(map[Outcome]int),
	}
}

func (r *Report) Record(key string, outcome Outcome, size int64, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[outcome]++
	if outcome == Uploaded || outcome == AccessRepaired {
		r.uploaded += size
	}

	// encode the key
	path := url.PathEscape(key)

	line := fmt.Sprintf("%s,%d,%s,%s\n",
		outcome,
		size,
		fingerprint,
		path,
	)
	if _, err := r.writer.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed writing %s to report: %w", key, err)
	}

	return nil
}

func (r *Report) Count(outcome Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[outcome]
}

func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, n := range r.counts {
		total += n
	}
	return total
}

// BytesUploaded is the content written by uploads and access repairs.
func (r *Report) BytesUploaded() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.uploaded
}
