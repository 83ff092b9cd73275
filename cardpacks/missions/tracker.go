package missions

import (
	"context"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/config"
)

// Store persists one mission progress increment.
type Store interface {
	Increment(ctx context.Context, username, event string) error
}

type event struct {
	username string
	name     string
}

// Tracker is an explicit fire-and-forget queue for mission progress.
// Track never blocks the draw path: a full queue drops the event, and
// store errors are logged and forgotten. Both are deliberate — missions
// are decoration, draws are the product.
type Tracker struct {
	store Store
	queue chan event
}

func NewTracker(store Store) *Tracker {
	return &Tracker{
		store: store,
		queue: make(chan event, config.MissionQueueSize),
	}
}

// Track enqueues a progress event for the user.
func (t *Tracker) Track(username, name string) {
	select {
	case t.queue <- event{username: username, name: name}:
	default:
		slog.Warn("Mission queue full, dropping event",
			slog.String("username", username),
			slog.String("event", name))
	}
}

// Run drains the queue until the context is cancelled. Meant to be
// started once under the process manager.
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.drain()
			return
		case ev := <-t.queue:
			t.record(ctx, ev)
		}
	}
}

func (t *Tracker) record(ctx context.Context, ev event) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.MissionStoreTimeout)
	defer cancel()

	if err := t.store.Increment(sctx, ev.username, ev.name); err != nil {
		slog.Warn("Failed to record mission progress",
			slog.String("username", ev.username),
			slog.String("event", ev.name),
			slog.Any("error", err))
	}
}

// drain flushes whatever is still queued at shutdown, bounded so a dead
// store cannot hang the process exit.
func (t *Tracker) drain() {
	deadline := time.Now().Add(config.MissionStoreTimeout)
	for {
		select {
		case ev := <-t.queue:
			if time.Now().After(deadline) {
				return
			}
			t.record(context.Background(), ev)
		default:
			return
		}
	}
}
