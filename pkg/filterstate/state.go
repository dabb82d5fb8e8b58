// Package filterstate manages the pending/committed duality of list-view
// filter, date-range, and grouping controls, and mirrors the committed state
// into URL query parameters.
//
// A Synchronizer holds two copies of a State: the pending copy mutated by the
// view's controls, and the committed copy the list view actually queries with.
// Apply copies pending over committed, notifies the view, and rewrites the
// managed query parameters without touching unrelated ones; ClearAll resets
// both copies to the view's defaults and always commits.
package filterstate

// GroupingMode fixes the shape of a view's grouping selection.
type GroupingMode string

const (
	// GroupingNone disables grouping for the view.
	GroupingNone GroupingMode = "none"

	// GroupingAdditive allows an ordered set of grouping dimensions.
	GroupingAdditive GroupingMode = "additive"

	// GroupingExclusive allows exactly one grouping dimension at a time.
	GroupingExclusive GroupingMode = "exclusive"
)

// Unit is a relative date-range unit.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// unitCodes maps units to their single-letter URL codes and back.
var unitCodes = map[Unit]string{
	UnitDay:   "d",
	UnitWeek:  "w",
	UnitMonth: "m",
	UnitYear:  "y",
}

func unitFromCode(code string) (Unit, bool) {
	for unit, c := range unitCodes {
		if c == code {
			return unit, true
		}
	}
	return "", false
}

// AbsoluteRange is a fixed start/end date pair (ISO dates, inclusive).
type AbsoluteRange struct {
	Start string
	End   string
}

// RelativeRange is a trailing window such as "last 3 months".
type RelativeRange struct {
	Amount int
	Unit   Unit
}

// DateRange is either absolute or relative; exactly one field is non-nil.
// A nil *DateRange means no date filtering.
type DateRange struct {
	Absolute *AbsoluteRange
	Relative *RelativeRange
}

// CombineOp joins filter tokens conjunctively or disjunctively.
type CombineOp string

const (
	OpAnd CombineOp = "and"
	OpOr  CombineOp = "or"
)

// OperatorEquals is the only operator URL parameters can express.
const OperatorEquals = "="

// FilterToken is a single property comparison.
type FilterToken struct {
	Property string
	Operator string
	Value    string

	// Label is the display value for the token, resolved through the
	// property's option loader. Not part of structural equality.
	Label string
}

// TokenSet is the view's full token selection.
type TokenSet struct {
	Tokens    []FilterToken
	Operation CombineOp
}

// State is one complete filter/grouping configuration.
type State struct {
	// DateRange is nil when no date filter is active.
	DateRange *DateRange

	// Filters holds the property comparison tokens.
	Filters TokenSet

	// GroupBy holds the grouping dimensions. Its shape follows the view's
	// GroupingMode: nil for none, an ordered set for additive, and at most
	// one element for exclusive.
	GroupBy []string
}

// DefaultState returns the mode-appropriate empty state.
func DefaultState(mode GroupingMode, dimensions []string) State {
	state := State{
		Filters: TokenSet{Tokens: []FilterToken{}, Operation: OpAnd},
	}

	switch mode {
	case GroupingAdditive:
		state.GroupBy = []string{}
	case GroupingExclusive:
		if len(dimensions) > 0 {
			state.GroupBy = []string{dimensions[0]}
		}
	}

	return state
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s

	if s.DateRange != nil {
		dr := DateRange{}
		if s.DateRange.Absolute != nil {
			abs := *s.DateRange.Absolute
			dr.Absolute = &abs
		}
		if s.DateRange.Relative != nil {
			rel := *s.DateRange.Relative
			dr.Relative = &rel
		}
		out.DateRange = &dr
	}

	out.Filters.Tokens = make([]FilterToken, len(s.Filters.Tokens))
	copy(out.Filters.Tokens, s.Filters.Tokens)

	if s.GroupBy != nil {
		out.GroupBy = make([]string, len(s.GroupBy))
		copy(out.GroupBy, s.GroupBy)
	}

	return out
}

// Equal reports structural equality between two states.
// Date ranges compare null-vs-null as equal, one-null-one-not as different,
// same-variant field by field, and differing variants as different.
func (s State) Equal(other State) bool {
	if !dateRangeEqual(s.DateRange, other.DateRange) {
		return false
	}
	if !tokenSetEqual(s.Filters, other.Filters) {
		return false
	}
	return stringSlicesEqual(s.GroupBy, other.GroupBy)
}

func dateRangeEqual(a, b *DateRange) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch {
	case a.Absolute != nil && b.Absolute != nil:
		return a.Absolute.Start == b.Absolute.Start && a.Absolute.End == b.Absolute.End
	case a.Relative != nil && b.Relative != nil:
		return a.Relative.Amount == b.Relative.Amount && a.Relative.Unit == b.Relative.Unit
	default:
		// Differing variants
		return false
	}
}

func tokenSetEqual(a, b TokenSet) bool {
	if a.Operation != b.Operation {
		return false
	}
	if len(a.Tokens) != len(b.Tokens) {
		return false
	}
	for i := range a.Tokens {
		// Label is display-only and excluded from equality
		if a.Tokens[i].Property != b.Tokens[i].Property ||
			a.Tokens[i].Operator != b.Tokens[i].Operator ||
			a.Tokens[i].Value != b.Tokens[i].Value {
			return false
		}
	}
	return true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
