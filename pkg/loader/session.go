package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status is the lifecycle state of a load session.
type Status string

const (
	// StatusIdle means the session has not started fetching yet.
	StatusIdle Status = "idle"

	// StatusLoading means page requests are being issued.
	StatusLoading Status = "loading"

	// StatusPaused means no further page requests will be issued; loaded
	// items are kept and the session can resume at the next unfetched page.
	StatusPaused Status = "paused"

	// StatusComplete means every item of the collection has been loaded.
	StatusComplete Status = "complete"

	// StatusErrored means a page fetch failed; loaded items are kept and
	// Resume retries from the failed page.
	StatusErrored Status = "errored"
)

// Session lifecycle errors.
var (
	// ErrAlreadyStarted is returned by Start on a session past idle.
	ErrAlreadyStarted = errors.New("load session already started")

	// ErrNotStarted is returned by Resume on a session that never started.
	ErrNotStarted = errors.New("load session not started")
)

// Page is one page of a paginated collection.
type Page[T any] struct {
	// Items are the page's records, in collection order.
	Items []T

	// Total is the collection's total item count as reported by the backend
	// alongside this page.
	Total int
}

// PageFetcher fetches a single page. page is 1-based.
type PageFetcher[T any] func(ctx context.Context, page, limit int) (Page[T], error)

// ProgressFunc reports loading progress after each page lands.
type ProgressFunc func(loaded, total int)

// logEveryPages controls periodic progress logging.
const logEveryPages = 10

// Session is a batched, resumable load of one paginated collection.
// All methods are safe for concurrent use.
type Session[T any] struct {
	mu         sync.Mutex
	fetch      PageFetcher[T]
	pageSize   int
	logger     zerolog.Logger
	onProgress ProgressFunc

	items      []T
	nextPage   int
	total      int
	totalKnown bool
	status     Status
	err        error

	// epoch identifies the current generation of session state. Reset bumps
	// it; a fetch loop (or in-flight page) from an older epoch discards its
	// result instead of appending into the replacement state.
	epoch uint64

	// running is true while a fetch loop goroutine is active.
	running bool
}

// NewSession creates a session over the given page fetcher.
// pageSize is fixed for the session's lifetime.
func NewSession[T any](fetch PageFetcher[T], pageSize int) *Session[T] {
	if fetch == nil {
		panic("page fetcher cannot be nil")
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	return &Session[T]{
		fetch:    fetch,
		pageSize: pageSize,
		nextPage: 1,
		status:   StatusIdle,
		logger:   log.With().Str("component", "loader").Logger(),
	}
}

// OnProgress registers a progress callback, invoked outside the session lock
// after each page is appended. Must be set before Start.
func (s *Session[T]) OnProgress(fn ProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProgress = fn
}

// Start begins fetching at page 1. Valid only in the idle state.
func (s *Session[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return ErrAlreadyStarted
	}

	s.status = StatusLoading
	s.nextPage = 1
	s.running = true

	s.logger.Info().
		Int("page_size", s.pageSize).
		Msg("Load session started")

	go s.run(ctx, s.epoch)
	return nil
}

// Pause stops issuing further page requests. An in-flight page is allowed to
// finish and its items are kept. No-op unless the session is loading.
func (s *Session[T]) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLoading {
		return
	}

	s.status = StatusPaused
	PausesTotal.Inc()

	s.logger.Info().
		Int("loaded", len(s.items)).
		Int("next_page", s.nextPage).
		Msg("Load session paused")
}

// Resume continues fetching from the next unfetched page. Valid when paused;
// a session in the errored state resumes the same way, retrying the failed
// page. No-op when already loading or complete.
func (s *Session[T]) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusIdle:
		return ErrNotStarted
	case StatusLoading, StatusComplete:
		return nil
	case StatusPaused, StatusErrored:
	}

	s.status = StatusLoading
	s.err = nil

	s.logger.Info().
		Int("loaded", len(s.items)).
		Int("next_page", s.nextPage).
		Msg("Load session resumed")

	// If the previous loop is still draining an in-flight page it will
	// observe the loading status and continue; otherwise start a new loop.
	if !s.running {
		s.running = true
		go s.run(ctx, s.epoch)
	}
	return nil
}

// Reset discards all state back to idle with no items. Used when the upstream
// filter changes and a fresh session replaces this one's progress. A page
// response still in flight is discarded when it lands.
func (s *Session[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusLoading || s.status == StatusPaused {
		SessionsTotal.WithLabelValues("discarded").Inc()
		s.logger.Info().
			Int("loaded", len(s.items)).
			Msg("Load session discarded")
	}

	s.epoch++
	s.running = false
	s.items = nil
	s.nextPage = 1
	s.total = 0
	s.totalKnown = false
	s.status = StatusIdle
	s.err = nil
}

// run is the sequential fetch loop. Exactly one page request is in flight at
// a time; the next page is requested only after the previous one resolves.
func (s *Session[T]) run(ctx context.Context, epoch uint64) {
	for {
		s.mu.Lock()
		if s.epoch != epoch {
			// Session was reset; the replacement owns the running flag.
			s.mu.Unlock()
			return
		}
		if s.status != StatusLoading {
			s.running = false
			s.mu.Unlock()
			return
		}
		page := s.nextPage
		limit := s.pageSize
		s.mu.Unlock()

		start := time.Now()
		result, err := s.fetch(ctx, page, limit)
		PageDuration.Observe(time.Since(start).Seconds())

		s.mu.Lock()
		if s.epoch != epoch {
			// Late response for a discarded session
			s.logger.Debug().
				Int("page", page).
				Msg("Discarding late page for reset session")
			s.mu.Unlock()
			return
		}

		if err != nil {
			s.status = StatusErrored
			s.err = err
			s.running = false
			SessionsTotal.WithLabelValues("errored").Inc()
			s.logger.Error().
				Err(err).
				Int("page", page).
				Int("loaded", len(s.items)).
				Msg("Page fetch failed")
			s.mu.Unlock()
			return
		}

		PagesTotal.Inc()
		s.items = append(s.items, result.Items...)
		s.total = result.Total
		s.totalKnown = true
		s.nextPage++

		loaded := len(s.items)
		total := s.total

		// An empty page also terminates, so a backend that over-reports its
		// total cannot wedge the loop.
		done := loaded >= total || len(result.Items) == 0
		if done {
			s.status = StatusComplete
			s.running = false
			SessionsTotal.WithLabelValues("complete").Inc()
			s.logger.Info().
				Int("loaded", loaded).
				Int("total", total).
				Int("pages", page).
				Msg("Load session complete")
		} else if page%logEveryPages == 0 {
			s.logger.Info().
				Int("loaded", loaded).
				Int("total", total).
				Float64("progress_pct", float64(loaded)/float64(total)*100).
				Msg("Load progress")
		}
		progressFn := s.onProgress
		s.mu.Unlock()

		if progressFn != nil {
			progressFn(loaded, total)
		}
		if done {
			return
		}
	}
}

// Status returns the session's current status.
func (s *Session[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Items returns a copy of the items accumulated so far, in page arrival order.
func (s *Session[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]T, len(s.items))
	copy(items, s.items)
	return items
}

// Err returns the error that put the session in the errored state, if any.
func (s *Session[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Progress returns the number of items loaded and the collection total.
// The total is 0 until the first page has been fetched; ok reports whether
// it is authoritative yet.
func (s *Session[T]) Progress() (loaded, total int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), s.total, s.totalKnown
}
