package filterstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option is a value/label pair offered by a property's option loader.
type Option struct {
	Value string
	Label string
}

// OptionLoader loads the selectable options for a filter property, optionally
// narrowed by filter text.
type OptionLoader func(ctx context.Context, filterText, property string) ([]Option, error)

// Config configures a Synchronizer for one list view.
type Config struct {
	// Prefix for managed query parameters. Defaults to DefaultPrefix.
	Prefix string

	// Mode fixes the grouping shape for the view.
	Mode GroupingMode

	// Dimensions are the view's configured grouping dimensions, in display
	// order. Required for exclusive mode (the first is the default).
	Dimensions []string

	// Properties are the recognized filter property keys. URL parameters for
	// other keys are ignored.
	Properties []string

	// LoadOptions resolves token display values during Initialize. Optional;
	// when nil, tokens keep their raw values as labels.
	LoadOptions OptionLoader

	// OnCommit is invoked synchronously with each just-committed state.
	OnCommit func(State)

	// OnInitialResolutionComplete is invoked exactly once after Initialize
	// finishes resolving URL-seeded tokens (success or partial failure).
	OnInitialResolutionComplete func()

	// ReplaceHistory makes commits rewrite the current history entry instead
	// of pushing a new one. The default (push) lets back/forward navigation
	// revisit prior filter states.
	ReplaceHistory bool
}

// Synchronizer manages pending vs committed filter state for one view, and
// mirrors the committed state into the view's query parameters.
// All methods are safe for concurrent use.
type Synchronizer struct {
	mu      sync.Mutex
	cfg     Config
	history History
	logger  zerolog.Logger

	pending   State
	committed State

	resolutionOnce sync.Once
	initialized    bool
}

// NewSynchronizer creates a synchronizer over the given history.
func NewSynchronizer(cfg Config, history History) (*Synchronizer, error) {
	if history == nil {
		return nil, fmt.Errorf("history is required")
	}

	switch cfg.Mode {
	case GroupingNone, GroupingAdditive:
	case GroupingExclusive:
		if len(cfg.Dimensions) == 0 {
			return nil, fmt.Errorf("exclusive grouping requires at least one dimension")
		}
	default:
		return nil, fmt.Errorf("unknown grouping mode %q", cfg.Mode)
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	defaults := DefaultState(cfg.Mode, cfg.Dimensions)

	return &Synchronizer{
		cfg:       cfg,
		history:   history,
		logger:    log.With().Str("component", "filterstate").Logger(),
		pending:   defaults.Clone(),
		committed: defaults.Clone(),
	}, nil
}

// Initialize seeds pending and committed state from the current query
// parameters, then re-resolves each URL-seeded token's display value through
// the option loader. OnInitialResolutionComplete fires exactly once, even if
// some resolutions fail; failures are logged and do not block completion.
func (s *Synchronizer) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = true

	state := DecodeState(s.cfg.Prefix, s.history.Values(), s.cfg.Mode, s.cfg.Dimensions, s.cfg.Properties)
	s.pending = state.Clone()
	s.committed = state.Clone()

	tokens := make([]FilterToken, len(state.Filters.Tokens))
	copy(tokens, state.Filters.Tokens)
	loadOptions := s.cfg.LoadOptions
	s.mu.Unlock()

	if len(tokens) > 0 && loadOptions != nil {
		// One concurrent lookup per token; the count is bounded by however
		// many tokens a query string can carry.
		labels := make([]string, len(tokens))
		var wg sync.WaitGroup
		for i, token := range tokens {
			wg.Add(1)
			go func(i int, token FilterToken) {
				defer wg.Done()
				options, err := loadOptions(ctx, token.Value, token.Property)
				if err != nil {
					ResolutionFailuresTotal.Inc()
					s.logger.Warn().
						Err(err).
						Str("property", token.Property).
						Str("value", token.Value).
						Msg("Failed to resolve filter token display value")
					return
				}
				for _, option := range options {
					if option.Value == token.Value {
						labels[i] = option.Label
						return
					}
				}
			}(i, token)
		}
		wg.Wait()

		s.mu.Lock()
		s.applyLabels(&s.pending, labels)
		s.applyLabels(&s.committed, labels)
		s.mu.Unlock()
	}

	s.signalResolutionComplete()
}

// applyLabels copies resolved labels onto matching tokens by position.
// Caller holds the lock.
func (s *Synchronizer) applyLabels(state *State, labels []string) {
	for i := range state.Filters.Tokens {
		if i < len(labels) && labels[i] != "" {
			state.Filters.Tokens[i].Label = labels[i]
		}
	}
}

func (s *Synchronizer) signalResolutionComplete() {
	s.resolutionOnce.Do(func() {
		if s.cfg.OnInitialResolutionComplete != nil {
			s.cfg.OnInitialResolutionComplete()
		}
	})
}

// SetPendingDateRange updates the pending date range. nil clears it.
func (s *Synchronizer) SetPendingDateRange(dateRange *DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dateRange == nil {
		s.pending.DateRange = nil
		return
	}
	clone := State{DateRange: dateRange}.Clone()
	s.pending.DateRange = clone.DateRange
}

// SetPendingFilters replaces the pending token set.
func (s *Synchronizer) SetPendingFilters(filters TokenSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens := make([]FilterToken, len(filters.Tokens))
	copy(tokens, filters.Tokens)
	s.pending.Filters = TokenSet{Tokens: tokens, Operation: filters.Operation}
}

// SetPendingGrouping replaces the pending grouping selection. The shape must
// match the view's grouping mode and every dimension must be configured.
func (s *Synchronizer) SetPendingGrouping(groupBy []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.cfg.Mode {
	case GroupingNone:
		if len(groupBy) > 0 {
			return fmt.Errorf("grouping is disabled for this view")
		}
		s.pending.GroupBy = nil
		return nil
	case GroupingExclusive:
		if len(groupBy) != 1 {
			return fmt.Errorf("exclusive grouping requires exactly one dimension, got %d", len(groupBy))
		}
	}

	for _, dim := range groupBy {
		if !containsString(s.cfg.Dimensions, dim) {
			return fmt.Errorf("unknown grouping dimension %q", dim)
		}
	}

	s.pending.GroupBy = append([]string(nil), groupBy...)
	return nil
}

// IsDirty reports whether the pending state differs from the committed state.
func (s *Synchronizer) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.pending.Equal(s.committed)
}

// Pending returns a copy of the pending state.
func (s *Synchronizer) Pending() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Clone()
}

// Committed returns a copy of the committed state.
func (s *Synchronizer) Committed() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone()
}

// Apply commits the pending state: copies pending over committed, invokes
// OnCommit, and rewrites the managed query parameters while preserving every
// parameter outside the prefix. Each call produces exactly one commit;
// callers normally gate the control on IsDirty.
func (s *Synchronizer) Apply() {
	s.mu.Lock()
	s.committed = s.pending.Clone()
	s.mu.Unlock()

	CommitsTotal.WithLabelValues("apply").Inc()
	s.commit()
}

// ClearAll resets pending and committed state to the view's defaults and
// commits immediately. Clear always applies, regardless of dirtiness, and is
// itself the action that makes the state clean.
func (s *Synchronizer) ClearAll() {
	defaults := DefaultState(s.cfg.Mode, s.cfg.Dimensions)

	s.mu.Lock()
	s.pending = defaults.Clone()
	s.committed = defaults.Clone()
	s.mu.Unlock()

	CommitsTotal.WithLabelValues("clear").Inc()
	s.commit()
}

// commit notifies the view and mirrors the committed state into the URL.
func (s *Synchronizer) commit() {
	s.mu.Lock()
	committed := s.committed.Clone()
	prefix := s.cfg.Prefix
	s.mu.Unlock()

	if s.cfg.OnCommit != nil {
		s.cfg.OnCommit(committed.Clone())
	}

	merged := MergeIntoURL(prefix, s.history.Values(), committed)
	if s.cfg.ReplaceHistory {
		s.history.Replace(merged)
	} else {
		s.history.Push(merged)
	}

	s.logger.Debug().
		Str("prefix", prefix).
		Int("tokens", len(committed.Filters.Tokens)).
		Msg("Filter state committed")
}
