// Package editqueue implements local edit overlays for embedded child
// collections on detail forms, such as venue history rows, role assignments
// and authorization rules.
//
// An Overlay holds the rows loaded from the server plus local additions and
// deletion marks. Nothing is sent to the server until the owning form is
// submitted; Plan returns the creates and deletes to flush, and Discard
// returns to the loaded baseline on cancel.
//
// Rows are a tagged variant rather than id sentinels: persisted rows carry
// the server id, pending rows carry a locally generated key, and a row is
// never simultaneously pending and marked for deletion.
package editqueue

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrRowNotFound is returned when a referenced row does not exist in the
// overlay.
var ErrRowNotFound = errors.New("row not found")

// RowKind tags a row's lifecycle state.
type RowKind string

const (
	// RowPersisted is a row loaded from the server and unchanged locally.
	RowPersisted RowKind = "persisted"

	// RowPending is a locally added row not yet sent to the server.
	RowPending RowKind = "pending"

	// RowMarkedForDeletion is a persisted row scheduled for deletion on
	// submit.
	RowMarkedForDeletion RowKind = "marked_for_deletion"
)

// Row is one entry in the overlay. Persisted and marked-for-deletion rows
// carry the server ID; pending rows carry a LocalKey instead.
type Row[T any] struct {
	Kind     RowKind
	ID       string
	LocalKey string
	Item     T
}

// Plan is the set of server writes a form submit must perform.
type Plan[T any] struct {
	// Creates holds pending rows' items in insertion order.
	Creates []T

	// Deletes holds the server ids of rows marked for deletion.
	Deletes []string
}

// Config configures an Overlay.
type Config[T any] struct {
	// ID extracts a loaded item's server id. Required.
	ID func(T) string

	// Validate checks a candidate addition against the currently visible
	// items (persisted and pending rows not marked for deletion). Optional;
	// a returned error rejects the Add.
	Validate func(visible []T, candidate T) error
}

// Overlay is a pending-edit queue over one child collection. All methods are
// safe for concurrent use.
type Overlay[T any] struct {
	mu       sync.Mutex
	cfg      Config[T]
	baseline []T
	rows     []Row[T]
}

// NewOverlay creates an empty overlay. The ID extractor is required.
func NewOverlay[T any](cfg Config[T]) (*Overlay[T], error) {
	if cfg.ID == nil {
		return nil, fmt.Errorf("id function is required")
	}
	return &Overlay[T]{cfg: cfg}, nil
}

// Load replaces the overlay's contents with server rows, discarding any
// local edits.
func (o *Overlay[T]) Load(items []T) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.baseline = make([]T, len(items))
	copy(o.baseline, items)
	o.rows = o.baselineRows()
}

// baselineRows builds persisted rows from the loaded baseline. Caller holds
// the lock.
func (o *Overlay[T]) baselineRows() []Row[T] {
	rows := make([]Row[T], 0, len(o.baseline))
	for _, item := range o.baseline {
		rows = append(rows, Row[T]{Kind: RowPersisted, ID: o.cfg.ID(item), Item: item})
	}
	return rows
}

// Add appends a pending row after validating it against the visible items.
// It returns the row's local key.
func (o *Overlay[T]) Add(item T) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cfg.Validate != nil {
		if err := o.cfg.Validate(o.visibleLocked(), item); err != nil {
			return "", err
		}
	}

	localKey := uuid.NewString()
	o.rows = append(o.rows, Row[T]{Kind: RowPending, LocalKey: localKey, Item: item})
	return localKey, nil
}

// RemovePending drops a pending row. Removing an unknown key returns
// ErrRowNotFound.
func (o *Overlay[T]) RemovePending(localKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Persisted rows carry an empty local key; never match them.
	if localKey == "" {
		return fmt.Errorf("pending row key is empty: %w", ErrRowNotFound)
	}

	for i, row := range o.rows {
		if row.Kind == RowPending && row.LocalKey == localKey {
			o.rows = append(o.rows[:i], o.rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("pending row %s: %w", localKey, ErrRowNotFound)
}

// MarkForDeletion schedules a persisted row for deletion on submit. Marking
// an already-marked row is a no-op. Pending rows cannot be marked; remove
// them instead.
func (o *Overlay[T]) MarkForDeletion(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Pending rows carry an empty server id; never match them.
	if id == "" {
		return fmt.Errorf("row id is empty: %w", ErrRowNotFound)
	}

	for i, row := range o.rows {
		if row.ID != id {
			continue
		}
		switch row.Kind {
		case RowPersisted:
			o.rows[i].Kind = RowMarkedForDeletion
		case RowMarkedForDeletion:
			// Already scheduled.
		}
		return nil
	}
	return fmt.Errorf("row %s: %w", id, ErrRowNotFound)
}

// Unmark cancels a deletion mark, restoring the row to persisted. Unmarking
// an unmarked row is a no-op.
func (o *Overlay[T]) Unmark(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if id == "" {
		return fmt.Errorf("row id is empty: %w", ErrRowNotFound)
	}

	for i, row := range o.rows {
		if row.ID != id {
			continue
		}
		if row.Kind == RowMarkedForDeletion {
			o.rows[i].Kind = RowPersisted
		}
		return nil
	}
	return fmt.Errorf("row %s: %w", id, ErrRowNotFound)
}

// Rows returns a copy of every row, deletion marks included, in display
// order: loaded rows first, then pending additions.
func (o *Overlay[T]) Rows() []Row[T] {
	o.mu.Lock()
	defer o.mu.Unlock()

	rows := make([]Row[T], len(o.rows))
	copy(rows, o.rows)
	return rows
}

// visibleLocked returns the items a user currently sees: everything except
// rows marked for deletion. Caller holds the lock.
func (o *Overlay[T]) visibleLocked() []T {
	var items []T
	for _, row := range o.rows {
		if row.Kind != RowMarkedForDeletion {
			items = append(items, row.Item)
		}
	}
	return items
}

// Plan returns the server writes a submit must perform: one create per
// pending row in insertion order, one delete per marked row.
func (o *Overlay[T]) Plan() Plan[T] {
	o.mu.Lock()
	defer o.mu.Unlock()

	var plan Plan[T]
	for _, row := range o.rows {
		switch row.Kind {
		case RowPending:
			plan.Creates = append(plan.Creates, row.Item)
		case RowMarkedForDeletion:
			plan.Deletes = append(plan.Deletes, row.ID)
		}
	}
	return plan
}

// IsDirty reports whether any local edits exist.
func (o *Overlay[T]) IsDirty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, row := range o.rows {
		if row.Kind != RowPersisted {
			return true
		}
	}
	return false
}

// Discard drops all local edits, returning to the loaded baseline.
func (o *Overlay[T]) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = o.baselineRows()
}
