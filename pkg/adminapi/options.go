package adminapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sinanour/cultivate-admin/pkg/filterstate"
	"github.com/sinanour/cultivate-admin/pkg/selector"
)

// Filter property keys recognized by the admin list views.
const (
	PropertyVenue            = "venue"
	PropertyActivityCategory = "activityCategory"
	PropertyActivityType     = "activityType"
)

// FilterOptionLoader adapts the option endpoints into the loader consumed by
// pkg/filterstate, routing each filter property to its backend endpoint.
func (c *Client) FilterOptionLoader() filterstate.OptionLoader {
	return func(ctx context.Context, filterText, property string) ([]filterstate.Option, error) {
		var options []Option
		var err error

		switch property {
		case PropertyVenue:
			options, err = c.VenueOptions(ctx, filterText)
		case PropertyActivityCategory:
			options, err = c.ActivityCategoryOptions(ctx, filterText)
		case PropertyActivityType:
			options, err = c.ActivityTypeOptions(ctx, filterText)
		default:
			return nil, fmt.Errorf("no option endpoint for property %q", property)
		}
		if err != nil {
			return nil, err
		}

		out := make([]filterstate.Option, 0, len(options))
		for _, o := range options {
			out = append(out, filterstate.Option{Value: o.Value, Label: o.Label})
		}
		return out, nil
	}
}

// VenueSearch adapts the venue list endpoint into a selector search returning
// the first page of matches for the typed text. GetVenue serves as the
// matching by-id fetch.
func (c *Client) VenueSearch(limit int) selector.SearchFunc[Venue] {
	return func(ctx context.Context, query string) ([]Venue, error) {
		filters := url.Values{}
		if query != "" {
			filters.Set("query", query)
		}
		page, err := c.ListVenues(ctx, 1, limit, filters)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
}

// VenueID extracts a venue's id for the selector.
func VenueID(v Venue) string { return v.ID }
