package ops

import "fmt"

// Entry is one local file found by a scan. It is created once per scan pass
// and not modified after fingerprinting. A non-nil Err reports a failure to
// read part of the tree; such entries carry no file.
type Entry struct {
	RelPath     string
	AbsPath     string
	Size        int64
	Fingerprint string
	Err         error
}

// Outcome is what a run did to one remote key.
type Outcome int

const (
	Unchanged Outcome = iota
	Uploaded
	AccessRepaired
	Deleted
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Uploaded:
		return "uploaded"
	case AccessRepaired:
		return "repaired"
	case Deleted:
		return "deleted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}
