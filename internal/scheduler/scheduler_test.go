package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"planningwatch/internal/domain"
	"planningwatch/internal/snapshot"
)

type fakeFetcher struct {
	responses map[string][]domain.Event
	errs      map[string]error
}

func (f *fakeFetcher) FetchEvents(_ context.Context, url string) ([]domain.Event, error) {
	if err := f.errs[url]; err != nil {
		return nil, err
	}

	return f.responses[url], nil
}

type fakeRouter struct {
	routed []domain.Change
}

func (r *fakeRouter) Route(_ context.Context, change domain.Change, _ domain.Group) error {
	r.routed = append(r.routed, change)

	return nil
}

func event(uid, start string) domain.Event {
	return domain.Event{
		UID:      uid,
		Summary:  "Cours " + uid,
		Start:    start,
		End:      start,
		EndEpoch: time.Now().Add(24 * time.Hour).Unix(),
	}
}

func testScheduler(f *fakeFetcher, r *fakeRouter, groups []domain.Group) (*Scheduler, *snapshot.Store) {
	store := snapshot.NewStore()
	s := New(
		context.Background(),
		groups,
		f,
		r,
		store,
		5*time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return s, store
}

func TestWarmUpSeedsWithoutRouting(t *testing.T) {
	group := domain.Group{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://a"}}
	f := &fakeFetcher{responses: map[string][]domain.Event{
		"https://a": {event("e1", "20240110T080000Z")},
	}}
	r := &fakeRouter{}

	s, store := testScheduler(f, r, []domain.Group{group})
	s.warmUp()

	if len(r.routed) != 0 {
		t.Fatalf("warm-up must not route changes, got %d", len(r.routed))
	}

	if got, ok := store.Get(group.FeedKey("https://a")); !ok || len(got) != 1 {
		t.Fatalf("expected seeded snapshot, got %v (ok=%v)", got, ok)
	}
}

func TestCycleRoutesDetectedChanges(t *testing.T) {
	group := domain.Group{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://a"}}
	f := &fakeFetcher{responses: map[string][]domain.Event{
		"https://a": {event("e1", "20240110T080000Z")},
	}}
	r := &fakeRouter{}

	s, store := testScheduler(f, r, []domain.Group{group})
	s.warmUp()

	f.responses["https://a"] = []domain.Event{
		event("e1", "20240110T080000Z"),
		event("e2", "20240111T080000Z"),
	}

	s.runCycle()

	if len(r.routed) != 1 || r.routed[0].Type != domain.ChangeAdded {
		t.Fatalf("expected one added change, got %+v", r.routed)
	}

	if got, _ := store.Get(group.FeedKey("https://a")); len(got) != 2 {
		t.Fatalf("expected snapshot replaced with 2 events, got %d", len(got))
	}
}

func TestBrokenFeedDoesNotAffectOthers(t *testing.T) {
	groups := []domain.Group{
		{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://broken"}},
		{Key: "2A_TP4", Name: "2ème année TP4", FeedURLs: []string{"https://ok"}},
	}
	f := &fakeFetcher{
		responses: map[string][]domain.Event{
			"https://ok": {event("e1", "20240110T080000Z")},
		},
		errs: map[string]error{"https://broken": errors.New("boom")},
	}
	r := &fakeRouter{}

	s, store := testScheduler(f, r, groups)
	s.runCycle()

	if _, ok := store.Get(groups[0].FeedKey("https://broken")); ok {
		t.Fatalf("broken feed must not gain a snapshot")
	}

	if got, ok := store.Get(groups[1].FeedKey("https://ok")); !ok || len(got) != 1 {
		t.Fatalf("healthy feed must still be seeded, got %v (ok=%v)", got, ok)
	}
}

func TestFailedFetchKeepsSnapshot(t *testing.T) {
	group := domain.Group{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://a"}}
	f := &fakeFetcher{responses: map[string][]domain.Event{
		"https://a": {event("e1", "20240110T080000Z")},
	}}
	r := &fakeRouter{}

	s, store := testScheduler(f, r, []domain.Group{group})
	s.warmUp()

	f.errs = map[string]error{"https://a": errors.New("timeout")}
	s.runCycle()

	if len(r.routed) != 0 {
		t.Fatalf("failed fetch must not route changes, got %d", len(r.routed))
	}

	if got, ok := store.Get(group.FeedKey("https://a")); !ok || len(got) != 1 {
		t.Fatalf("expected snapshot kept, got %v (ok=%v)", got, ok)
	}
}

// blockingFetcher stalls its first call until released so a cycle can be
// held in flight.
type blockingFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) FetchEvents(_ context.Context, _ string) ([]domain.Event, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		<-f.release
	}

	return []domain.Event{event("e1", "20240110T080000Z")}, nil
}

func TestOverlappingCycleIsSkipped(t *testing.T) {
	group := domain.Group{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://a"}}
	f := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	r := &fakeRouter{}

	s := New(
		context.Background(),
		[]domain.Group{group},
		f,
		r,
		snapshot.NewStore(),
		5*time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	done := make(chan struct{})
	go func() {
		s.runCycle()
		close(done)
	}()

	<-f.started

	// A second trigger while the first cycle is still fetching must
	// return without touching any feed.
	s.runCycle()

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("expected overlapping cycle to be skipped, got %d fetches", got)
	}

	close(f.release)
	<-done
}

func TestEmptyFeedKeepsSnapshot(t *testing.T) {
	group := domain.Group{Key: "1A_TP1", Name: "1ère année TP1", FeedURLs: []string{"https://a"}}
	f := &fakeFetcher{responses: map[string][]domain.Event{
		"https://a": {event("e1", "20240110T080000Z")},
	}}
	r := &fakeRouter{}

	s, store := testScheduler(f, r, []domain.Group{group})
	s.warmUp()

	f.responses["https://a"] = nil
	s.runCycle()

	if len(r.routed) != 0 {
		t.Fatalf("empty feed must not route changes, got %d", len(r.routed))
	}

	if got, ok := store.Get(group.FeedKey("https://a")); !ok || len(got) != 1 {
		t.Fatalf("expected snapshot kept, got %v (ok=%v)", got, ok)
	}
}
