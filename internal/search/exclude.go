package search

// ExcludeSet tracks candidates already tried and rejected within one
// acquisition session. It grows monotonically; an entry is never removed.
type ExcludeSet struct {
	reasons map[string]string
	order   []string
}

// NewExcludeSet creates an empty exclusion set.
func NewExcludeSet() *ExcludeSet {
	return &ExcludeSet{reasons: make(map[string]string)}
}

// Add records a rejected candidate with the reason it failed.
// Re-adding an existing candidate keeps the original reason.
func (e *ExcludeSet) Add(id, reason string) {
	if id == "" {
		return
	}
	if _, ok := e.reasons[id]; ok {
		return
	}
	e.reasons[id] = reason
	e.order = append(e.order, id)
}

// Has reports whether the candidate was already rejected.
func (e *ExcludeSet) Has(id string) bool {
	_, ok := e.reasons[id]
	return ok
}

// Reason returns why a candidate was rejected, empty if it was not.
func (e *ExcludeSet) Reason(id string) string {
	return e.reasons[id]
}

// Len returns the number of excluded candidates.
func (e *ExcludeSet) Len() int {
	return len(e.order)
}

// IDs returns the excluded candidates in rejection order.
func (e *ExcludeSet) IDs() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}
