package filterstate

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPrefix is the query-parameter prefix managed by a Synchronizer
// unless configured otherwise.
const DefaultPrefix = "filter_"

// Reserved parameter names (after the prefix).
const (
	paramStartDate      = "startDate"
	paramEndDate        = "endDate"
	paramRelativePeriod = "relativePeriod"
	paramGroupBy        = "groupBy"
	paramCombineOp      = "op"
)

// relativePeriodPattern matches -<amount><d|w|m|y>, e.g. "-3m".
var relativePeriodPattern = regexp.MustCompile(`^-(\d+)([dwmy])$`)

// EncodeState serializes a state into prefixed query parameters.
// Null/empty components are omitted entirely.
func EncodeState(prefix string, state State) url.Values {
	values := url.Values{}

	if state.DateRange != nil {
		if abs := state.DateRange.Absolute; abs != nil {
			values.Set(prefix+paramStartDate, abs.Start)
			values.Set(prefix+paramEndDate, abs.End)
		} else if rel := state.DateRange.Relative; rel != nil {
			values.Set(prefix+paramRelativePeriod,
				fmt.Sprintf("-%d%s", rel.Amount, unitCodes[rel.Unit]))
		}
	}

	// One parameter per property, comma-separated values in token order
	byProperty := map[string][]string{}
	var propertyOrder []string
	for _, token := range state.Filters.Tokens {
		if _, seen := byProperty[token.Property]; !seen {
			propertyOrder = append(propertyOrder, token.Property)
		}
		byProperty[token.Property] = append(byProperty[token.Property], token.Value)
	}
	for _, property := range propertyOrder {
		values.Set(prefix+property, strings.Join(byProperty[property], ","))
	}
	// The combine operation only matters when tokens exist; "and" is the
	// decode default and stays implicit.
	if len(state.Filters.Tokens) > 0 && state.Filters.Operation == OpOr {
		values.Set(prefix+paramCombineOp, string(OpOr))
	}

	if len(state.GroupBy) > 0 {
		values.Set(prefix+paramGroupBy, strings.Join(state.GroupBy, ","))
	}

	return values
}

// DecodeState parses prefixed query parameters into a state, starting from
// the mode-appropriate defaults. Malformed relative periods, unknown property
// keys, and unknown grouping dimensions are ignored.
func DecodeState(prefix string, values url.Values, mode GroupingMode, dimensions, properties []string) State {
	state := DefaultState(mode, dimensions)

	start := values.Get(prefix + paramStartDate)
	end := values.Get(prefix + paramEndDate)
	relative := values.Get(prefix + paramRelativePeriod)

	switch {
	case start != "" && end != "":
		state.DateRange = &DateRange{Absolute: &AbsoluteRange{Start: start, End: end}}
	case relative != "":
		if rel, ok := parseRelativePeriod(relative); ok {
			state.DateRange = &DateRange{Relative: rel}
		}
	}

	// Filter tokens: comma-separated value lists become equality tokens,
	// preserving the configured property order for determinism.
	for _, property := range properties {
		raw := values.Get(prefix + property)
		if raw == "" {
			continue
		}
		for _, value := range strings.Split(raw, ",") {
			if value == "" {
				continue
			}
			state.Filters.Tokens = append(state.Filters.Tokens, FilterToken{
				Property: property,
				Operator: OperatorEquals,
				Value:    value,
			})
		}
	}

	// Unknown operation values fall back to the conjunctive default.
	if len(state.Filters.Tokens) > 0 && values.Get(prefix+paramCombineOp) == string(OpOr) {
		state.Filters.Operation = OpOr
	}

	if mode != GroupingNone {
		if raw := values.Get(prefix + paramGroupBy); raw != "" {
			var groupBy []string
			for _, dim := range strings.Split(raw, ",") {
				if !containsString(dimensions, dim) {
					continue
				}
				groupBy = append(groupBy, dim)
				if mode == GroupingExclusive {
					break
				}
			}
			if len(groupBy) > 0 {
				state.GroupBy = groupBy
			} else if mode == GroupingAdditive {
				state.GroupBy = []string{}
			}
		}
	}

	return state
}

// MergeIntoURL returns a copy of existing with every prefixed parameter
// removed and the state's parameters added. Parameters outside the prefix are
// left untouched.
func MergeIntoURL(prefix string, existing url.Values, state State) url.Values {
	merged := url.Values{}
	for key, vals := range existing {
		if strings.HasPrefix(key, prefix) {
			continue
		}
		merged[key] = append([]string(nil), vals...)
	}

	for key, vals := range EncodeState(prefix, state) {
		merged[key] = vals
	}

	return merged
}

func parseRelativePeriod(raw string) (*RelativeRange, bool) {
	match := relativePeriodPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil, false
	}

	amount, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, false
	}

	unit, ok := unitFromCode(match[2])
	if !ok {
		return nil, false
	}

	return &RelativeRange{Amount: amount, Unit: unit}, true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
