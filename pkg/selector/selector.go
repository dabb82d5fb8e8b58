// Package selector implements an async searchable single-select backed by a
// paginated search API.
//
// Search input is debounced with a single pending timer per selector; a new
// keystroke replaces the previous pending timer. Every issued search carries a
// monotonically increasing sequence number, and a response is discarded when a
// newer search has been issued since, so the option list always reflects the
// most recent query.
//
// The selector guarantees that the currently selected value (or an explicitly
// ensured id) appears in the option list even when the current search page
// does not contain it: missing values are fetched by id at most once, kept,
// and re-prepended whenever fresh results lack them. A failed lookup is
// remembered and never retried, and selecting a visible option captures it
// without a fetch.
package selector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the delay between the last search-text change and the
// issued request.
const DefaultDebounce = 250 * time.Millisecond

// SearchFunc returns the options matching a search query. An error surfaces
// as an empty option list plus a logged warning, never to the caller.
type SearchFunc[T any] func(ctx context.Context, query string) ([]T, error)

// FetchByIDFunc loads a single entity for ensure-included resolution.
type FetchByIDFunc[T any] func(ctx context.Context, id string) (T, error)

// Config configures a Selector.
type Config[T any] struct {
	// Search executes a query against the backing API. Required.
	Search SearchFunc[T]

	// FetchByID loads a single entity by id for ensure-included resolution.
	// Required.
	FetchByID FetchByIDFunc[T]

	// ID extracts an entity's identifier. Required.
	ID func(T) string

	// Debounce is the delay between the last SetSearchText call and the
	// issued request. Defaults to DefaultDebounce.
	Debounce time.Duration

	// OnOptionsChanged is invoked after the option list changes, outside the
	// selector's lock. Optional.
	OnOptionsChanged func()
}

// Selector is a searchable single-select. All methods are safe for concurrent
// use.
type Selector[T any] struct {
	mu     sync.Mutex
	cfg    Config[T]
	logger zerolog.Logger

	options  []T
	value    string
	ensureID string

	// attempted dedupes by-id network fetches; ensured holds entities already
	// resolved so later result sets can re-include them without a fetch.
	attempted map[string]bool
	ensured   map[string]T

	seq   uint64
	timer *time.Timer
}

// New creates a selector. The configured Search, FetchByID and ID functions
// are required.
func New[T any](cfg Config[T]) (*Selector[T], error) {
	if cfg.Search == nil {
		return nil, fmt.Errorf("search function is required")
	}
	if cfg.FetchByID == nil {
		return nil, fmt.Errorf("fetch-by-id function is required")
	}
	if cfg.ID == nil {
		return nil, fmt.Errorf("id function is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Selector[T]{
		cfg:       cfg,
		logger:    log.With().Str("component", "selector").Logger(),
		attempted: make(map[string]bool),
		ensured:   make(map[string]T),
	}, nil
}

// SetSearchText schedules a debounced search for the given text. Each call
// replaces any pending timer; only the last text within the debounce window
// is searched.
func (s *Selector[T]) SetSearchText(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		s.search(ctx, text)
	})
}

// search issues the request and applies the response unless a newer search
// has been issued in the meantime.
func (s *Selector[T]) search(ctx context.Context, text string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	SearchesTotal.Inc()

	options, err := s.cfg.Search(ctx, text)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("query", text).
			Msg("Selector search failed")
		options = nil
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		StaleResponsesTotal.Inc()
		s.logger.Debug().
			Str("query", text).
			Uint64("seq", seq).
			Msg("Discarding stale search response")
		return
	}
	s.options = options
	s.restoreEnsuredLocked()
	target := s.ensureTarget()
	s.mu.Unlock()

	s.notifyOptionsChanged()
	if target != "" {
		s.resolveEnsure(ctx, target)
	}
}

// Select marks a visible option as the current value. The picked entity is
// captured immediately, so it stays in the option list across later searches
// without a by-id fetch.
func (s *Selector[T]) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = id
	if id == "" {
		return
	}
	s.attempted[id] = true
	for _, option := range s.options {
		if s.cfg.ID(option) == id {
			s.ensured[id] = option
			break
		}
	}
}

// SetValue assigns the selected id from outside the option list, such as a
// stored value loaded into a form. Unlike Select, the id is resolved against
// the backing API when the current options do not contain it.
func (s *Selector[T]) SetValue(ctx context.Context, id string) {
	s.mu.Lock()
	s.value = id
	restored := s.restoreEnsuredLocked()
	target := s.ensureTarget()
	s.mu.Unlock()

	if restored {
		s.notifyOptionsChanged()
	}
	if target != "" {
		s.resolveEnsure(ctx, target)
	}
}

// Value returns the currently selected id, or "" when nothing is selected.
func (s *Selector[T]) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// EnsureIncluded requests that the given id always appear in the option
// list, resolving it immediately against the current options.
func (s *Selector[T]) EnsureIncluded(ctx context.Context, id string) {
	s.mu.Lock()
	s.ensureID = id
	restored := s.restoreEnsuredLocked()
	target := s.ensureTarget()
	s.mu.Unlock()

	if restored {
		s.notifyOptionsChanged()
	}
	if target != "" {
		s.resolveEnsure(ctx, target)
	}
}

// restoreEnsuredLocked prepends previously resolved entities that the current
// option list lacks. Caller holds the lock; reports whether options changed.
func (s *Selector[T]) restoreEnsuredLocked() bool {
	restored := false
	for _, id := range []string{s.value, s.ensureID} {
		if id == "" || s.containsLocked(id) {
			continue
		}
		entity, ok := s.ensured[id]
		if !ok {
			continue
		}
		s.options = append([]T{entity}, s.options...)
		restored = true
	}
	return restored
}

// ensureTarget returns the id that must be visible but is not yet in the
// options and has not been attempted. Caller holds the lock.
func (s *Selector[T]) ensureTarget() string {
	for _, id := range []string{s.ensureID, s.value} {
		if id == "" || s.attempted[id] {
			continue
		}
		if s.containsLocked(id) {
			continue
		}
		return id
	}
	return ""
}

func (s *Selector[T]) containsLocked(id string) bool {
	for _, option := range s.options {
		if s.cfg.ID(option) == id {
			return true
		}
	}
	return false
}

// resolveEnsure fetches the target by id and prepends it to the options. The
// attempt is recorded before the fetch, so the id is looked up at most once
// whether the lookup succeeds or fails.
func (s *Selector[T]) resolveEnsure(ctx context.Context, id string) {
	s.mu.Lock()
	if s.attempted[id] {
		s.mu.Unlock()
		return
	}
	s.attempted[id] = true
	s.mu.Unlock()

	entity, err := s.cfg.FetchByID(ctx, id)
	if err != nil {
		EnsureFetchesTotal.WithLabelValues("failure").Inc()
		s.logger.Warn().
			Err(err).
			Str("id", id).
			Msg("Failed to resolve selected entity by id")
		return
	}
	EnsureFetchesTotal.WithLabelValues("success").Inc()

	s.mu.Lock()
	s.ensured[id] = entity
	if s.containsLocked(id) {
		s.mu.Unlock()
		return
	}
	s.options = append([]T{entity}, s.options...)
	s.mu.Unlock()

	s.notifyOptionsChanged()
}

// Options returns a copy of the current option list.
func (s *Selector[T]) Options() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	options := make([]T, len(s.options))
	copy(options, s.options)
	return options
}

func (s *Selector[T]) notifyOptionsChanged() {
	if s.cfg.OnOptionsChanged != nil {
		s.cfg.OnOptionsChanged()
	}
}
