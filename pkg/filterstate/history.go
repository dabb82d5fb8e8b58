package filterstate

import (
	"net/url"
	"sync"
)

// History abstracts the address bar / history API: the current query
// parameters plus push (new navigable entry) and replace-in-place writes.
type History interface {
	// Values returns the current entry's query parameters.
	Values() url.Values

	// Push adds a new history entry with the given parameters.
	Push(values url.Values)

	// Replace overwrites the current entry's parameters in place.
	Replace(values url.Values)
}

// MemHistory is an in-memory History for tests and tools.
type MemHistory struct {
	mu      sync.Mutex
	entries []url.Values
}

// NewMemHistory creates a history with one initial entry.
func NewMemHistory(initial url.Values) *MemHistory {
	if initial == nil {
		initial = url.Values{}
	}
	return &MemHistory{entries: []url.Values{cloneValues(initial)}}
}

// Values returns the current entry's parameters.
func (h *MemHistory) Values() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneValues(h.entries[len(h.entries)-1])
}

// Push adds a new entry.
func (h *MemHistory) Push(values url.Values) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, cloneValues(values))
}

// Replace overwrites the current entry.
func (h *MemHistory) Replace(values url.Values) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[len(h.entries)-1] = cloneValues(values)
}

// Back discards the current entry, returning to the previous one.
// The initial entry is never discarded.
func (h *MemHistory) Back() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) > 1 {
		h.entries = h.entries[:len(h.entries)-1]
	}
}

// Len returns the number of entries.
func (h *MemHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func cloneValues(values url.Values) url.Values {
	out := url.Values{}
	for key, vals := range values {
		out[key] = append([]string(nil), vals...)
	}
	return out
}
