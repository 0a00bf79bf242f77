package ops

import "sync"

// ChangeSet is the ordered, duplicate free set of remote keys whose content
// or existence changed during a run. It is safe for concurrent use.
type ChangeSet struct {
	mu   sync.Mutex
	keys []string
	seen map[string]bool
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		seen: make(map[string]bool),
	}
}

// Add appends key unless it is already present and reports whether it was
// added.
func (cs *ChangeSet) Add(key string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.seen[key] {
		return false
	}
	cs.seen[key] = true
	cs.keys = append(cs.keys, key)

	return true
}

func (cs *ChangeSet) Keys() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return append([]string(nil), cs.keys...)
}

func (cs *ChangeSet) Len() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return len(cs.keys)
}
