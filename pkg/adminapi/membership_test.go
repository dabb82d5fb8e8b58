package adminapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/sinanour/cultivate-admin/internal/testutil"
	"github.com/sinanour/cultivate-admin/pkg/cache"
	"github.com/sinanour/cultivate-admin/pkg/editqueue"
)

func TestListMembershipHistory(t *testing.T) {
	mock := testutil.NewMockAdminAPI()
	defer mock.Close()

	mock.SetResponse("/v1/participants/p1/membership-history", testutil.NewHealthyResponse(
		`[{"id":"m1","participantId":"p1","groupId":"g1","effectiveDate":"2026-01-01"},
		  {"id":"m2","participantId":"p1","groupId":"g2","effectiveDate":"2026-03-01"}]`))

	client := newTestClient(t, mock.URL())
	defer client.Close()

	records, err := client.ListMembershipHistory(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListMembershipHistory error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "m1" || records[1].GroupID != "g2" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestMembershipOverlay_RejectsDuplicateEffectiveDate(t *testing.T) {
	overlay, err := MembershipOverlay([]MembershipRecord{
		{ID: "m1", ParticipantID: "p1", GroupID: "g1", EffectiveDate: "2026-01-01"},
	})
	if err != nil {
		t.Fatalf("MembershipOverlay error: %v", err)
	}

	_, err = overlay.Add(MembershipRecord{ParticipantID: "p1", GroupID: "g2", EffectiveDate: "2026-01-01"})
	if err == nil {
		t.Error("expected duplicate effective date to be rejected")
	}

	if _, err := overlay.Add(MembershipRecord{ParticipantID: "p1", GroupID: "g2", EffectiveDate: "2026-02-01"}); err != nil {
		t.Errorf("unexpected Add error: %v", err)
	}
}

func TestSaveMembershipPlan(t *testing.T) {
	mock := testutil.NewMockAdminAPI()
	defer mock.Close()

	var mu sync.Mutex
	var posted []MembershipRecord
	var deleted []string

	mock.SetHandler("/v1/participants/p1/membership-history", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var rec MembershipRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		posted = append(posted, rec)
		w.WriteHeader(http.StatusCreated)
	})
	mock.SetHandler("/v1/participants/p1/membership-history/m2", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")

		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		deleted = append(deleted, "m2")
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mock.URL())
	defer client.Close()

	overlay, err := MembershipOverlay([]MembershipRecord{
		{ID: "m1", ParticipantID: "p1", GroupID: "g1", EffectiveDate: "2026-01-01"},
		{ID: "m2", ParticipantID: "p1", GroupID: "g2", EffectiveDate: "2026-03-01"},
	})
	if err != nil {
		t.Fatalf("MembershipOverlay error: %v", err)
	}

	if _, err := overlay.Add(MembershipRecord{ParticipantID: "p1", GroupID: "g3", EffectiveDate: "2026-05-01"}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := overlay.MarkForDeletion("m2"); err != nil {
		t.Fatalf("MarkForDeletion error: %v", err)
	}

	if err := client.SaveMembershipPlan(context.Background(), "p1", overlay.Plan()); err != nil {
		t.Fatalf("SaveMembershipPlan error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(posted) != 1 || posted[0].GroupID != "g3" {
		t.Errorf("expected one create for g3, got %+v", posted)
	}
	if len(deleted) != 1 || deleted[0] != "m2" {
		t.Errorf("expected delete of m2, got %v", deleted)
	}
}

func TestSaveMembershipPlan_InvalidatesCachedReads(t *testing.T) {
	mock := testutil.NewMockAdminAPI()
	defer mock.Close()

	mock.SetResponse("/v1/participants/p1/membership-history", testutil.NewHealthyResponse(
		`[{"id":"m1","participantId":"p1","groupId":"g1","effectiveDate":"2026-01-01"}]`))
	mock.SetHandler("/v1/participants/p1/membership-history/m1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t, mock.URL())
	defer client.Close()

	ctx := context.Background()
	if _, err := client.ListMembershipHistory(ctx, "p1"); err != nil {
		t.Fatalf("ListMembershipHistory error: %v", err)
	}

	key := cache.CacheKey{
		Endpoint:  "/v1/participants/p1/membership-history",
		Principal: "test-admin",
	}
	if _, err := client.GetCache().Get(ctx, key); err != nil {
		t.Fatalf("expected history response cached before the mutation, got %v", err)
	}

	plan := editqueue.Plan[MembershipRecord]{Deletes: []string{"m1"}}
	if err := client.SaveMembershipPlan(ctx, "p1", plan); err != nil {
		t.Fatalf("SaveMembershipPlan error: %v", err)
	}

	if _, err := client.GetCache().Get(ctx, key); err != cache.ErrCacheMiss {
		t.Errorf("expected cached history dropped after the mutation, got %v", err)
	}
}

func TestSaveMembershipPlan_RetryResendsBody(t *testing.T) {
	mock := testutil.NewMockAdminAPI()
	defer mock.Close()

	var mu sync.Mutex
	var bodies []string

	mock.SetHandler("/v1/participants/p1/membership-history", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)

		mu.Lock()
		bodies = append(bodies, string(data))
		attempt := len(bodies)
		mu.Unlock()

		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")

		// First attempt fails with a retriable server error.
		if attempt == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})

	client := newTestClient(t, mock.URL())
	defer client.Close()

	plan := editqueue.Plan[MembershipRecord]{
		Creates: []MembershipRecord{{ParticipantID: "p1", GroupID: "g1", EffectiveDate: "2026-01-01"}},
	}
	if err := client.SaveMembershipPlan(context.Background(), "p1", plan); err != nil {
		t.Fatalf("SaveMembershipPlan error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(bodies))
	}
	if bodies[0] == "" || bodies[0] != bodies[1] {
		t.Errorf("expected the retried attempt to resend the full body, got %q then %q", bodies[0], bodies[1])
	}
}
