package missions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aniforreal/ani-engine/cardpacks/config"
)

type recordingStore struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (s *recordingStore) Increment(ctx context.Context, username, event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, username+":"+event)
	return nil
}

func (s *recordingStore) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTrackerDrainsToStore(t *testing.T) {
	store := &recordingStore{}
	tracker := NewTracker(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	tracker.Track("ann", "draw_ultimate")
	tracker.Track("ben", "draw_ultimate")

	waitFor(t, func() bool { return len(store.recorded()) == 2 })

	got := store.recorded()
	if got[0] != "ann:draw_ultimate" || got[1] != "ben:draw_ultimate" {
		t.Errorf("recorded = %v", got)
	}

	cancel()
	<-done
}

func TestTrackerFlushesQueueOnShutdown(t *testing.T) {
	store := &recordingStore{}
	tracker := NewTracker(store)

	// Enqueue before Run starts, then cancel immediately: the events must
	// still land via the shutdown drain.
	tracker.Track("ann", "draw_ultimate")
	tracker.Track("ann", "draw_ultimate")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tracker.Run(ctx)

	if got := len(store.recorded()); got != 2 {
		t.Errorf("recorded %d events, want 2 flushed at shutdown", got)
	}
}

func TestTrackerDropsWhenQueueFull(t *testing.T) {
	store := &recordingStore{}
	tracker := NewTracker(store)

	// No consumer running; overfill the queue. The overflow must drop
	// without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < config.MissionQueueSize+10; i++ {
			tracker.Track("ann", "draw_ultimate")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a full queue")
	}

	if got := len(tracker.queue); got != config.MissionQueueSize {
		t.Errorf("queued %d events, want the queue capped at %d", got, config.MissionQueueSize)
	}
}

func TestTrackerStoreErrorDoesNotStopRun(t *testing.T) {
	store := &recordingStore{err: fmt.Errorf("connection reset")}
	tracker := NewTracker(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	tracker.Track("ann", "draw_ultimate")

	// Let the failing event pass through, then verify a later good one
	// still lands.
	time.Sleep(50 * time.Millisecond)
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()

	tracker.Track("ann", "draw_ultimate")
	waitFor(t, func() bool { return len(store.recorded()) == 1 })

	cancel()
	<-done
}
