// Package scheduler drives the polling loop: on every tick it fetches
// each watched feed, diffs the result against the last snapshot and
// routes the detected changes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"planningwatch/internal/diff"
	"planningwatch/internal/domain"
	"planningwatch/internal/snapshot"
)

const (
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	cycleTimeout          = 10 * time.Minute
)

// EventFetcher retrieves and normalizes one feed.
type EventFetcher interface {
	FetchEvents(ctx context.Context, url string) ([]domain.Event, error)
}

// ChangeRouter delivers one classified change for a group.
type ChangeRouter interface {
	Route(ctx context.Context, change domain.Change, group domain.Group) error
}

type Scheduler struct {
	ctx      context.Context
	cron     *cron.Cron
	groups   []domain.Group
	fetcher  EventFetcher
	router   ChangeRouter
	store    *snapshot.Store
	interval time.Duration
	log      *slog.Logger

	// cycleMu guards against overlapping cycles when one run outlasts
	// the poll interval.
	cycleMu sync.Mutex
}

func New(
	ctx context.Context,
	groups []domain.Group,
	fetcher EventFetcher,
	router ChangeRouter,
	store *snapshot.Store,
	interval time.Duration,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:      ctx,
		cron:     c,
		groups:   groups,
		fetcher:  fetcher,
		router:   router,
		store:    store,
		interval: interval,
		log:      log,
	}
}

// Start runs one warm-up pass that seeds the snapshot store without
// routing anything, then schedules the polling cycle.
func (s *Scheduler) Start() error {
	s.warmUp()

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("schedule polling cycle: %w", err)
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) warmUp() {
	ctx, cancel := context.WithTimeout(s.ctx, cycleTimeout)
	defer cancel()

	for _, group := range s.groups {
		for _, url := range group.FeedURLs {
			feedKey := group.FeedKey(url)

			events, err := s.fetcher.FetchEvents(ctx, url)
			if err != nil {
				s.log.ErrorContext(ctx, "Failed to seed snapshot",
					"error", err,
					"feedKey", feedKey)

				continue
			}

			s.store.Set(feedKey, events)
		}
	}

	s.log.InfoContext(ctx, "Snapshot store seeded",
		"feedCount", s.store.Len())
}

func (s *Scheduler) runCycle() {
	if !s.cycleMu.TryLock() {
		s.log.WarnContext(s.ctx, "Previous polling cycle still running, skipping")

		return
	}
	defer s.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, cycleTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	for _, group := range s.groups {
		for _, url := range group.FeedURLs {
			s.pollFeed(ctx, group, url)
		}
	}
}

// pollFeed processes one feed. Any failure leaves the prior snapshot in
// place so a temporarily broken feed never reads as "everything removed".
func (s *Scheduler) pollFeed(ctx context.Context, group domain.Group, url string) {
	feedKey := group.FeedKey(url)

	events, err := s.fetcher.FetchEvents(ctx, url)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to fetch feed, keeping snapshot",
			"error", err,
			"feedKey", feedKey)

		return
	}

	if len(events) == 0 {
		s.log.WarnContext(ctx, "Feed returned no events, keeping snapshot",
			"feedKey", feedKey)

		return
	}

	previous, ok := s.store.Get(feedKey)
	if !ok {
		s.store.Set(feedKey, events)

		s.log.InfoContext(ctx, "Seeded snapshot for new feed",
			"feedKey", feedKey,
			"eventCount", len(events))

		return
	}

	changeSet := diff.Compare(previous, events, time.Now().UTC())

	for _, change := range changeSet.Changes() {
		if err := s.router.Route(ctx, change, group); err != nil {
			s.log.ErrorContext(ctx, "Failed to route change",
				"error", err,
				"feedKey", feedKey,
				"changeType", change.Type.String())
		}
	}

	s.store.Set(feedKey, events)
}
