package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sinanour/cultivate-admin/pkg/editqueue"
)

// MembershipRecord is one row of a participant's group membership history.
type MembershipRecord struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	GroupID       string `json:"groupId"`
	EffectiveDate string `json:"effectiveDate"`
}

// ListMembershipHistory fetches all membership rows for a participant. The
// backend returns the full list unpaginated.
func (c *Client) ListMembershipHistory(ctx context.Context, participantID string) ([]MembershipRecord, error) {
	endpoint := membershipEndpoint(participantID)

	resp, err := c.Get(ctx, endpoint, nil)
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

	var records []MembershipRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return records, nil
}

// MembershipOverlay builds an edit overlay over a participant's membership
// rows. Additions with an effective date already present among visible rows
// are rejected.
func MembershipOverlay(records []MembershipRecord) (*editqueue.Overlay[MembershipRecord], error) {
	overlay, err := editqueue.NewOverlay(editqueue.Config[MembershipRecord]{
		ID: func(r MembershipRecord) string { return r.ID },
		Validate: func(visible []MembershipRecord, candidate MembershipRecord) error {
			for _, v := range visible {
				if v.EffectiveDate == candidate.EffectiveDate {
					return fmt.Errorf("a membership row already exists for %s", candidate.EffectiveDate)
				}
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	overlay.Load(records)
	return overlay, nil
}

// SaveMembershipPlan performs the server writes an overlay's plan calls for:
// one POST per pending row, one DELETE per marked row. Stops at the first
// failure so the caller can reload and retry.
func (c *Client) SaveMembershipPlan(ctx context.Context, participantID string, plan editqueue.Plan[MembershipRecord]) error {
	endpoint := membershipEndpoint(participantID)

	for _, rec := range plan.Creates {
		if err := c.postJSON(ctx, endpoint, rec); err != nil {
			return fmt.Errorf("create membership row: %w", err)
		}
	}
	for _, id := range plan.Deletes {
		if err := c.deleteResource(ctx, endpoint+"/"+url.PathEscape(id)); err != nil {
			return fmt.Errorf("delete membership row %s: %w", id, err)
		}
	}

	// The participant's cached history and detail reads are stale now.
	if len(plan.Creates) > 0 || len(plan.Deletes) > 0 {
		c.invalidateCached(ctx, "/v1/participants/"+url.PathEscape(participantID))
	}
	return nil
}

func membershipEndpoint(participantID string) string {
	return "/v1/participants/" + url.PathEscape(participantID) + "/membership-history"
}

func (c *Client) postJSON(ctx context.Context, endpoint string, entity interface{}) error {
	body, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}
	return nil
}

func (c *Client) deleteResource(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    resp.Status,
		}
	}
	return nil
}
