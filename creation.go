package factory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/rules"
	"github.com/goliatone/go-factory/pkg/state"
)

// CreationRequest is what the stablecoin creation subsystem submits before
// it creates a new instance.
type CreationRequest struct {
	Requester Identity
	Symbol    string
	// Args are exposed to admission rules next to requester and symbol.
	Args     map[string]any
	Metadata map[string]any
}

// RequireActive is the check the creation subsystem runs before any
// mutating per-stablecoin action. It returns ErrFactoryPaused while paused.
func (f *Factory) RequireActive(ctx context.Context) error {
	rec, err := f.Get(ctx)
	if err != nil {
		return err
	}
	if rec.IsPaused {
		return ErrFactoryPaused
	}
	return nil
}

// ReserveStablecoin increments TotalStablecoins by one. The pause check, the
// admission rules and the increment happen as one step under the same lock
// and compare-and-swap as the configuration handlers, so no increment can
// land after a concurrently committed pause.
func (f *Factory) ReserveStablecoin(ctx context.Context, req CreationRequest) (Record, error) {
	start := time.Now()
	rec, meta, err := f.reserve(ctx, req)
	input := f.eventInput(req.Requester, rec, meta, []string{"total_stablecoins"})
	input.Metadata = map[string]any{"symbol": strings.TrimSpace(req.Symbol)}
	hookErr := f.notify(ctx, err, activity.BuildStablecoinReservedEvent, input)
	f.logOperation(OpReserve, req.Requester, meta, start, err, hookErr)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (f *Factory) reserve(ctx context.Context, req CreationRequest) (Record, state.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, meta, err := f.Load(ctx)
	if err != nil {
		return Record{}, state.Meta{}, err
	}
	if current.IsPaused {
		return Record{}, state.Meta{}, ErrFactoryPaused
	}
	if err := f.admit(current, req); err != nil {
		return Record{}, state.Meta{}, err
	}
	if current.TotalStablecoins == math.MaxUint32 {
		return Record{}, state.Meta{}, ErrCounterOverflow
	}

	next := current
	next.TotalStablecoins++
	return f.commit(ctx, next, meta)
}

func (f *Factory) admit(rec Record, req CreationRequest) error {
	if f.policy == nil {
		return nil
	}
	args := make(map[string]any, len(req.Args)+2)
	for key, value := range req.Args {
		args[key] = value
	}
	args["requester"] = req.Requester.String()
	args["symbol"] = strings.TrimSpace(req.Symbol)

	now := f.clock()
	err := f.policy.Admit(rules.Context{
		Snapshot: rec.Snapshot(),
		Now:      &now,
		Args:     args,
		Metadata: req.Metadata,
		Subject:  fmt.Sprintf("%s:%s", OpReserve, args["symbol"]),
	})
	if err == nil {
		return nil
	}
	var ruleErr *rules.RuleError
	if errors.As(err, &ruleErr) {
		return &AdmissionError{Rule: ruleErr.Rule, Err: ruleErr.Err}
	}
	return &AdmissionError{Err: err}
}
