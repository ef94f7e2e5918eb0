package factory

import (
	"context"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/state"
)

// Pause stops the creation subsystem from reserving new stablecoins. Only
// the admin may pause; pausing twice fails with ErrAlreadyPaused.
func (f *Factory) Pause(ctx context.Context, caller Identity) (Record, error) {
	return f.togglePause(ctx, OpPause, caller, true, activity.BuildFactoryPausedEvent)
}

// Resume lifts a pause. Resuming an active factory fails with ErrNotPaused.
func (f *Factory) Resume(ctx context.Context, caller Identity) (Record, error) {
	return f.togglePause(ctx, OpResume, caller, false, activity.BuildFactoryResumedEvent)
}

func (f *Factory) togglePause(ctx context.Context, op string, caller Identity, paused bool, build func(activity.FactoryEventInput) activity.Event) (Record, error) {
	start := time.Now()
	rec, meta, err := f.setPaused(ctx, caller, paused)
	hookErr := f.notify(ctx, err, build, f.eventInput(caller, rec, meta, []string{"is_paused"}))
	f.logOperation(op, caller, meta, start, err, hookErr)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (f *Factory) setPaused(ctx context.Context, caller Identity, paused bool) (Record, state.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, meta, err := f.Load(ctx)
	if err != nil {
		return Record{}, state.Meta{}, err
	}
	if err := requireAdmin(current, caller); err != nil {
		return Record{}, state.Meta{}, err
	}
	if current.IsPaused == paused {
		if paused {
			return Record{}, state.Meta{}, ErrAlreadyPaused
		}
		return Record{}, state.Meta{}, ErrNotPaused
	}

	next := current
	next.IsPaused = paused
	return f.commit(ctx, next, meta)
}
