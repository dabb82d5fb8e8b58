package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sinanour/cultivate-admin/pkg/loader"
)

// Participant is a person managed by the console.
type Participant struct {
	ID         string `json:"id"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Email      string `json:"email"`
	Status     string `json:"status"`
	AreaID     string `json:"areaId"`
	Version    int64  `json:"version"`
}

// Activity is a scheduled community activity.
type Activity struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"activityCategory"`
	TypeID     string `json:"activityType"`
	VenueID    string `json:"venueId"`
	StartsAt   string `json:"startsAt"`
	EndsAt     string `json:"endsAt"`
	Version    int64  `json:"version"`
}

// Venue is a location where activities take place.
type Venue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AreaID  string `json:"areaId"`
	Address string `json:"address"`
	Version int64  `json:"version"`
}

// User is a console user account.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Version int64  `json:"version"`
}

// AuthorizationRule grants a user access to a geographic area.
type AuthorizationRule struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	AreaID  string `json:"areaId"`
	Role    string `json:"role"`
	Version int64  `json:"version"`
}

// Option is a value/label pair for filter and selector option lists.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// envelope is the backend's paginated wire format:
// {"data": [...], "pagination": {"page", "limit", "total", "totalPages"}}
type envelope[T any] struct {
	Data       []T `json:"data"`
	Pagination struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// conflictBody is the backend's 409 payload carrying the latest server state.
type conflictBody struct {
	Version int64           `json:"version"`
	Latest  json.RawMessage `json:"latest"`
}

// listPage fetches one page of a paginated collection.
func listPage[T any](c *Client, ctx context.Context, endpoint string, page, limit int, filters url.Values) (loader.Page[T], error) {
	query := url.Values{}
	for k, vs := range filters {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return loader.Page[T]{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return loader.Page[T]{}, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return loader.Page[T]{}, fmt.Errorf("decode %s page %d: %w", endpoint, page, err)
	}

	return loader.Page[T]{Items: env.Data, Total: env.Pagination.Total}, nil
}

// getByID fetches a single entity by id. Returns ErrNotFound for 404.
func getByID[T any](c *Client, ctx context.Context, endpoint, id string) (T, error) {
	var zero T

	resp, err := c.Get(ctx, endpoint+"/"+url.PathEscape(id), nil)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode >= 400 {
		return zero, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}

	var entity T
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return zero, fmt.Errorf("decode %s/%s: %w", endpoint, id, err)
	}

	return entity, nil
}

// loadOptions fetches value/label options for a searchable property.
func (c *Client) loadOptions(ctx context.Context, endpoint, filterText string) ([]Option, error) {
	query := url.Values{}
	if filterText != "" {
		query.Set("query", filterText)
	}

	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}

	var options []Option
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		return nil, fmt.Errorf("decode %s options: %w", endpoint, err)
	}

	return options, nil
}

// update sends a versioned PUT with If-Match optimistic concurrency.
// A 409 response is surfaced as a ConflictError carrying the latest server
// version so the caller can re-prompt instead of overwriting.
func update[T any](c *Client, ctx context.Context, endpoint, id string, version int64, entity T) (T, error) {
	var zero T

	body, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("marshal %s: %w", endpoint, err)
	}

	u := c.config.BaseURL + endpoint + "/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", strconv.FormatInt(version, 10))

	resp, err := c.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		var cb conflictBody
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &cb); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Unparseable conflict body")
		}
		return zero, &ConflictError{
			Entity:  id,
			Version: cb.Version,
			Latest:  cb.Latest,
		}
	}
	if resp.StatusCode >= 400 {
		return zero, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}

	var updated T
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return zero, fmt.Errorf("decode updated %s/%s: %w", endpoint, id, err)
	}

	// Cached list pages and the detail read are stale now.
	c.invalidateCached(ctx, endpoint)

	return updated, nil
}

// ListParticipants fetches one page of participants matching the given filters.
func (c *Client) ListParticipants(ctx context.Context, page, limit int, filters url.Values) (loader.Page[Participant], error) {
	return listPage[Participant](c, ctx, "/v1/participants", page, limit, filters)
}

// GetParticipant fetches a participant by id.
func (c *Client) GetParticipant(ctx context.Context, id string) (Participant, error) {
	return getByID[Participant](c, ctx, "/v1/participants", id)
}

// UpdateParticipant updates a participant with optimistic concurrency.
func (c *Client) UpdateParticipant(ctx context.Context, p Participant) (Participant, error) {
	return update(c, ctx, "/v1/participants", p.ID, p.Version, p)
}

// ListActivities fetches one page of activities matching the given filters.
func (c *Client) ListActivities(ctx context.Context, page, limit int, filters url.Values) (loader.Page[Activity], error) {
	return listPage[Activity](c, ctx, "/v1/activities", page, limit, filters)
}

// GetActivity fetches an activity by id.
func (c *Client) GetActivity(ctx context.Context, id string) (Activity, error) {
	return getByID[Activity](c, ctx, "/v1/activities", id)
}

// ListVenues fetches one page of venues.
func (c *Client) ListVenues(ctx context.Context, page, limit int, filters url.Values) (loader.Page[Venue], error) {
	return listPage[Venue](c, ctx, "/v1/venues", page, limit, filters)
}

// GetVenue fetches a venue by id.
func (c *Client) GetVenue(ctx context.Context, id string) (Venue, error) {
	return getByID[Venue](c, ctx, "/v1/venues", id)
}

// ListUsers fetches one page of console users.
func (c *Client) ListUsers(ctx context.Context, page, limit int, filters url.Values) (loader.Page[User], error) {
	return listPage[User](c, ctx, "/v1/users", page, limit, filters)
}

// ListAuthorizationRules fetches one page of geographic authorization rules.
func (c *Client) ListAuthorizationRules(ctx context.Context, page, limit int, filters url.Values) (loader.Page[AuthorizationRule], error) {
	return listPage[AuthorizationRule](c, ctx, "/v1/authorization-rules", page, limit, filters)
}

// VenueOptions searches venue options for filters and selectors.
func (c *Client) VenueOptions(ctx context.Context, filterText string) ([]Option, error) {
	return c.loadOptions(ctx, "/v1/venues/options", filterText)
}

// ActivityCategoryOptions searches activity category options.
func (c *Client) ActivityCategoryOptions(ctx context.Context, filterText string) ([]Option, error) {
	return c.loadOptions(ctx, "/v1/activity-categories/options", filterText)
}

// ActivityTypeOptions searches activity type options.
func (c *Client) ActivityTypeOptions(ctx context.Context, filterText string) ([]Option, error) {
	return c.loadOptions(ctx, "/v1/activity-types/options", filterText)
}

// ParticipantPageFetcher adapts ListParticipants into a loader PageFetcher
// bound to a committed filter state.
func (c *Client) ParticipantPageFetcher(filters url.Values) loader.PageFetcher[Participant] {
	return func(ctx context.Context, page, limit int) (loader.Page[Participant], error) {
		return c.ListParticipants(ctx, page, limit, filters)
	}
}

// ActivityPageFetcher adapts ListActivities into a loader PageFetcher.
func (c *Client) ActivityPageFetcher(filters url.Values) loader.PageFetcher[Activity] {
	return func(ctx context.Context, page, limit int) (loader.Page[Activity], error) {
		return c.ListActivities(ctx, page, limit, filters)
	}
}
