package factory

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/rules"
)

func TestReserveStablecoinIncrementsCounter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initialize(t, 150, 30)

	for i := 1; i <= 3; i++ {
		rec, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
		if rec.TotalStablecoins != uint32(i) {
			t.Fatalf("expected counter %d, got %d", i, rec.TotalStablecoins)
		}
	}

	events := env.capture.Events()
	last := events[len(events)-1]
	if last.Verb != activity.VerbStablecoinReserved || last.ActorID != env.c.id.String() {
		t.Fatalf("unexpected reserve event: %+v", last)
	}
	if last.Metadata["symbol"] != "USDX" {
		t.Fatalf("expected symbol in metadata, got %+v", last.Metadata)
	}
}

func TestReserveStablecoinBlockedWhilePaused(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initialize(t, 150, 30)
	if _, err := env.factory.Pause(ctx, env.a.id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	before := env.raw(t)

	if _, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"}); !errors.Is(err, ErrFactoryPaused) {
		t.Fatalf("expected ErrFactoryPaused, got %v", err)
	}
	if !bytes.Equal(before, env.raw(t)) {
		t.Fatalf("counter moved while paused")
	}

	if _, err := env.factory.Resume(ctx, env.a.id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"}); err != nil {
		t.Fatalf("expected reserve after resume, got %v", err)
	}
}

func TestReserveStablecoinOverflow(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.initialize(t, 150, 30)

	key := env.factory.Address().Key.String()
	rec, meta, _, _ := env.store.Load(ctx, key)
	rec.TotalStablecoins = math.MaxUint32
	if _, err := env.store.Save(ctx, key, rec, meta, meta.ETag); err != nil {
		t.Fatalf("seed counter: %v", err)
	}

	if _, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"}); !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}
	got, err := env.factory.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalStablecoins != math.MaxUint32 {
		t.Fatalf("counter wrapped to %d", got.TotalStablecoins)
	}
}

func TestReserveStablecoinAdmissionRules(t *testing.T) {
	cases := []struct {
		name      string
		evaluator rules.Evaluator
	}{
		{name: "expr"},
		{name: "cel", evaluator: rules.NewCELEvaluator()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t,
				WithRuleEvaluator(tc.evaluator),
				WithAdmissionRules(
					rules.Rule{Name: "symbol_present", Expr: `args.symbol != ""`},
					rules.Rule{Name: "supply_cap", Expr: `totalStablecoins < 2`},
				),
			)
			env.initialize(t, 150, 30)

			for i := 0; i < 2; i++ {
				if _, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"}); err != nil {
					t.Fatalf("reserve %d: %v", i, err)
				}
			}

			_, err := env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "USDX"})
			var admissionErr *AdmissionError
			if !errors.As(err, &admissionErr) || !errors.Is(err, ErrAdmissionDenied) {
				t.Fatalf("expected AdmissionError, got %v", err)
			}
			if admissionErr.Rule != "supply_cap" || !errors.Is(err, rules.ErrRejected) {
				t.Fatalf("expected supply_cap rejection, got %+v", admissionErr)
			}

			_, err = env.factory.ReserveStablecoin(ctx, CreationRequest{Requester: env.c.id, Symbol: "  "})
			if !errors.As(err, &admissionErr) || admissionErr.Rule != "symbol_present" {
				t.Fatalf("expected symbol_present rejection, got %v", err)
			}

			rec, err := env.factory.Get(ctx)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if rec.TotalStablecoins != 2 {
				t.Fatalf("expected counter to stop at 2, got %d", rec.TotalStablecoins)
			}
		})
	}
}

func TestAdmissionRulesSeeClockAndMetadata(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, WithAdmissionRules(
		rules.Rule{Name: "window", Expr: `now.Year() == 2024`},
		rules.Rule{Name: "tier", Expr: `metadata.tier == "gold"`},
	))
	env.initialize(t, 150, 30)

	if _, err := env.factory.ReserveStablecoin(ctx, CreationRequest{
		Requester: env.c.id,
		Symbol:    "USDX",
		Metadata:  map[string]any{"tier": "gold"},
	}); err != nil {
		t.Fatalf("expected admission, got %v", err)
	}
	_, err := env.factory.ReserveStablecoin(ctx, CreationRequest{
		Requester: env.c.id,
		Symbol:    "USDX",
		Metadata:  map[string]any{"tier": "bronze"},
	})
	if !errors.Is(err, ErrAdmissionDenied) {
		t.Fatalf("expected rejection for bronze tier, got %v", err)
	}
}

func TestAdmissionRuleEvaluationsAreLogged(t *testing.T) {
	var events []rules.LogEvent
	env := newTestEnv(t,
		WithAdmissionRules(rules.Rule{Name: "cap", Expr: `totalStablecoins < 10`}),
		WithRuleLogger(rules.LoggerFunc(func(event rules.LogEvent) {
			events = append(events, event)
		})),
	)
	env.initialize(t, 150, 30)

	if _, err := env.factory.ReserveStablecoin(context.Background(), CreationRequest{Requester: env.c.id, Symbol: "usdx"}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one evaluation log, got %d", len(events))
	}
	if events[0].Rule != "cap" || !events[0].Allowed || events[0].Subject != "reserve_stablecoin:usdx" {
		t.Fatalf("unexpected evaluation log: %+v", events[0])
	}
}

func TestNewRejectsBrokenAdmissionRule(t *testing.T) {
	program := newTestKey(t, 0x50)
	_, err := New(program.id, WithAdmissionRules(rules.Rule{Name: "broken", Expr: `totalStablecoins <`}))
	if err == nil {
		t.Fatalf("expected compile failure")
	}
	var ruleErr *rules.RuleError
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "broken" {
		t.Fatalf("expected RuleError for broken rule, got %v", err)
	}
}

func TestReserveStablecoinUsesInjectedClock(t *testing.T) {
	later := fixedNow.Add(48 * time.Hour)
	env := newTestEnv(t, WithClock(func() time.Time { return later }))
	env.initialize(t, 150, 30)
	if _, err := env.factory.ReserveStablecoin(context.Background(), CreationRequest{Requester: env.c.id, Symbol: "USDX"}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if !env.meta(t).UpdatedAt.Equal(later) {
		t.Fatalf("expected metadata stamped with injected clock, got %s", env.meta(t).UpdatedAt)
	}
}
