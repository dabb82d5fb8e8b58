package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// makeItems builds a deterministic source collection.
func makeItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%03d", i)
	}
	return items
}

// pageOf slices one page out of a source collection.
func pageOf(items []string, page, limit int) Page[string] {
	startIdx := (page - 1) * limit
	if startIdx > len(items) {
		startIdx = len(items)
	}
	endIdx := startIdx + limit
	if endIdx > len(items) {
		endIdx = len(items)
	}
	return Page[string]{Items: items[startIdx:endIdx], Total: len(items)}
}

// plainSource records page requests and serves pages immediately.
type plainSource struct {
	mu    sync.Mutex
	items []string
	calls []int
	fail  map[int]error // one-shot failures by page
}

func (s *plainSource) fetch(ctx context.Context, page, limit int) (Page[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, page)
	if err, ok := s.fail[page]; ok {
		delete(s.fail, page)
		return Page[string]{}, err
	}
	return pageOf(s.items, page, limit), nil
}

func (s *plainSource) pages() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.calls))
	copy(out, s.calls)
	return out
}

// gatedSource announces each page request on reqs and blocks until the test
// sends a permit on release, so tests can interleave pause/resume/reset with
// an in-flight page deterministically.
type gatedSource struct {
	plainSource
	reqs    chan int
	release chan struct{}
}

func newGatedSource(items []string) *gatedSource {
	return &gatedSource{
		plainSource: plainSource{items: items},
		reqs:        make(chan int),
		release:     make(chan struct{}),
	}
}

func (s *gatedSource) fetch(ctx context.Context, page, limit int) (Page[string], error) {
	s.reqs <- page
	<-s.release
	return s.plainSource.fetch(ctx, page, limit)
}

func waitForStatus[T any](t *testing.T, s *Session[T], want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for status %q, current %q", want, s.Status())
}

func waitForLoaded[T any](t *testing.T, s *Session[T], want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if loaded, _, _ := s.Progress(); loaded >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	loaded, _, _ := s.Progress()
	t.Fatalf("Timed out waiting for %d items, have %d", want, loaded)
}

func expectReq(t *testing.T, src *gatedSource, wantPage int) {
	t.Helper()
	select {
	case page := <-src.reqs:
		if page != wantPage {
			t.Fatalf("Requested page %d, want %d", page, wantPage)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for page %d request", wantPage)
	}
}

func expectNoReq(t *testing.T, src *gatedSource) {
	t.Helper()
	select {
	case page := <-src.reqs:
		t.Fatalf("Unexpected page %d request", page)
	case <-time.After(50 * time.Millisecond):
	}
}

func assertItemsEqual(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Loaded %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Item %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSession_CompletesAllPages(t *testing.T) {
	items := makeItems(25)
	src := &plainSource{items: items}

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)

	loaded, total, ok := session.Progress()
	if loaded != 25 || total != 25 || !ok {
		t.Errorf("Progress() = (%d, %d, %v), want (25, 25, true)", loaded, total, ok)
	}

	wantPages := []int{1, 2, 3}
	gotPages := src.pages()
	if len(gotPages) != len(wantPages) {
		t.Fatalf("Fetched pages %v, want %v", gotPages, wantPages)
	}
	for i, p := range wantPages {
		if gotPages[i] != p {
			t.Fatalf("Fetched pages %v, want %v", gotPages, wantPages)
		}
	}
}

func TestSession_EmptyCollection(t *testing.T) {
	src := &plainSource{items: nil}

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForStatus(t, session, StatusComplete)

	if len(session.Items()) != 0 {
		t.Errorf("Items = %v, want empty", session.Items())
	}
	if got := src.pages(); len(got) != 1 {
		t.Errorf("Fetched %d pages for empty collection, want exactly 1", len(got))
	}
}

func TestSession_ExactPageBoundary(t *testing.T) {
	// Collection size divisible by page size: complete without an extra fetch
	items := makeItems(20)
	src := &plainSource{items: items}

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)

	if got := src.pages(); len(got) != 2 {
		t.Errorf("Fetched %d pages, want 2", len(got))
	}
}

func TestSession_PauseKeepsInFlightPage(t *testing.T) {
	items := makeItems(30)
	src := newGatedSource(items)

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	expectReq(t, src, 1)
	src.release <- struct{}{}

	// Pause while page 2 is in flight; its items must still be appended.
	expectReq(t, src, 2)
	session.Pause()
	src.release <- struct{}{}

	waitForLoaded(t, session, 20)
	waitForStatus(t, session, StatusPaused)
	assertItemsEqual(t, session.Items(), items[:20])

	// No page 3 request while paused
	expectNoReq(t, src)

	if err := session.Resume(context.Background()); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	expectReq(t, src, 3)
	src.release <- struct{}{}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)
}

func TestSession_PauseResumeCycles_NoLossNoDuplication(t *testing.T) {
	// Pause at every page boundary; the final result must equal an
	// uninterrupted load and every page must be requested exactly once.
	items := makeItems(50)
	src := newGatedSource(items)

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for page := 1; page <= 5; page++ {
		expectReq(t, src, page)
		session.Pause()
		src.release <- struct{}{}
		waitForLoaded(t, session, page*10)

		if page < 5 {
			if err := session.Resume(context.Background()); err != nil {
				t.Fatalf("Resume after page %d failed: %v", page, err)
			}
		}
	}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)

	seen := map[int]int{}
	for _, p := range src.pages() {
		seen[p]++
	}
	for page := 1; page <= 5; page++ {
		if seen[page] != 1 {
			t.Errorf("Page %d fetched %d times, want exactly once", page, seen[page])
		}
	}
}

func TestSession_ErrorThenResumeRetries(t *testing.T) {
	items := makeItems(30)
	fetchErr := errors.New("backend unavailable")
	src := &plainSource{
		items: items,
		fail:  map[int]error{2: fetchErr},
	}

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForStatus(t, session, StatusErrored)

	if !errors.Is(session.Err(), fetchErr) {
		t.Errorf("Err() = %v, want %v", session.Err(), fetchErr)
	}
	assertItemsEqual(t, session.Items(), items[:10])

	// Resume retries the failed page; nothing already loaded is duplicated
	if err := session.Resume(context.Background()); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)
	if session.Err() != nil {
		t.Errorf("Err() = %v after successful resume, want nil", session.Err())
	}
}

func TestSession_ResetDiscardsLateResponse(t *testing.T) {
	items := makeItems(20)
	src := newGatedSource(items)

	session := NewSession(src.fetch, 10)
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Reset while page 1 is in flight; its response must be discarded.
	expectReq(t, src, 1)
	session.Reset()
	src.release <- struct{}{}

	time.Sleep(20 * time.Millisecond)
	if got := len(session.Items()); got != 0 {
		t.Errorf("Items after reset = %d, want 0", got)
	}
	if session.Status() != StatusIdle {
		t.Errorf("Status after reset = %q, want idle", session.Status())
	}

	// A fresh start fetches from page 1 again
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	expectReq(t, src, 1)
	src.release <- struct{}{}
	expectReq(t, src, 2)
	src.release <- struct{}{}

	waitForStatus(t, session, StatusComplete)
	assertItemsEqual(t, session.Items(), items)
}

func TestSession_LifecycleNoOps(t *testing.T) {
	items := makeItems(5)
	src := &plainSource{items: items}

	session := NewSession(src.fetch, 10)

	// Pause before start is a no-op
	session.Pause()
	if session.Status() != StatusIdle {
		t.Errorf("Status = %q after pause on idle, want idle", session.Status())
	}

	// Resume before start is an error
	if err := session.Resume(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Resume on idle = %v, want ErrNotStarted", err)
	}

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, session, StatusComplete)

	// Start on a running/finished session is an error
	if err := session.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Second Start = %v, want ErrAlreadyStarted", err)
	}

	// Pause and Resume on a complete session are no-ops
	session.Pause()
	if session.Status() != StatusComplete {
		t.Errorf("Status = %q after pause on complete, want complete", session.Status())
	}
	if err := session.Resume(context.Background()); err != nil {
		t.Errorf("Resume on complete = %v, want nil no-op", err)
	}
	if session.Status() != StatusComplete {
		t.Errorf("Status = %q after resume on complete, want complete", session.Status())
	}

	// Items were not disturbed by the no-ops
	assertItemsEqual(t, session.Items(), items)
}

func TestSession_ProgressCallback(t *testing.T) {
	items := makeItems(25)
	src := &plainSource{items: items}

	var mu sync.Mutex
	var reports [][2]int

	session := NewSession(src.fetch, 10)
	session.OnProgress(func(loaded, total int) {
		mu.Lock()
		reports = append(reports, [2]int{loaded, total})
		mu.Unlock()
	})

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitForStatus(t, session, StatusComplete)

	mu.Lock()
	defer mu.Unlock()
	want := [][2]int{{10, 25}, {20, 25}, {25, 25}}
	if len(reports) != len(want) {
		t.Fatalf("Progress reports %v, want %v", reports, want)
	}
	for i := range want {
		if reports[i] != want[i] {
			t.Fatalf("Progress reports %v, want %v", reports, want)
		}
	}
}
