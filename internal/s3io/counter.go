package s3io

import (
	"io"
)

// ProgressFunc receives the bytes read so far and the expected total.
type ProgressFunc func(done, total int64)

// ProgressDivisions is the most times a ReadCounter reports per upload.
const ProgressDivisions = 10

type ReadCounter interface {
	Read(p []byte) (int, error)
	Close() error

	TotalReads() int
	TotalBytes() int64
}

// NewReadCounter wraps in and reports progress against total each time
// another division of the total has been read. progress may be nil.
func NewReadCounter(in io.Reader, total int64, progress ProgressFunc) ReadCounter {
	rc := readCounter{
		in:       in,
		total:    total,
		progress: progress,
	}
	return &rc
}

type readCounter struct {
	in       io.Reader
	reads    int
	bytes    int64
	total    int64
	progress ProgressFunc
	reported int64
}

func (rc *readCounter) Read(p []byte) (int, error) {
	size, err := rc.in.Read(p)

	rc.reads += 1
	rc.bytes += int64(size)
	rc.report(err == io.EOF)

	return size, err
}

func (rc *readCounter) report(eof bool) {
	if rc.progress == nil {
		return
	}

	var division int64
	switch {
	case rc.total > 0:
		division = min(rc.bytes*ProgressDivisions/rc.total, ProgressDivisions)
	case eof:
		division = ProgressDivisions
	}

	if division > rc.reported {
		rc.reported = division
		rc.progress(rc.bytes, rc.total)
	}
}

func (rc *readCounter) Close() error {
	rc.in = nil
	return nil
}

func (rc *readCounter) TotalReads() int {
	return rc.reads
}

func (rc *readCounter) TotalBytes() int64 {
	return rc.bytes
}
