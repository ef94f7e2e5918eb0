package main

import (
	"context"
	"fmt"

	factory "github.com/goliatone/go-factory"
	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/activity/usersink"
	"github.com/goliatone/go-factory/pkg/rules"
	"github.com/goliatone/go-factory/pkg/state"
	"github.com/goliatone/go-factory/pkg/state/sqlitestore"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"go.uber.org/zap"
)

// openFactory builds a Factory from the loaded configuration. The returned
// closer releases the store.
func (a *app) openFactory() (*factory.Factory, func() error, error) {
	if a.cfg.Program == "" {
		return nil, nil, fmt.Errorf("program identity is not configured")
	}
	program, err := factory.ParseIdentity(a.cfg.Program)
	if err != nil {
		return nil, nil, err
	}

	var (
		store  state.Store[factory.Record]
		closer = func() error { return nil }
	)
	switch a.cfg.Store.Driver {
	case "memory":
		store = state.NewMemoryStore[factory.Record]()
	default:
		sqlite, err := sqlitestore.Open[factory.Record](a.cfg.Store.Path, factory.RecordCodec{})
		if err != nil {
			return nil, nil, err
		}
		store, closer = sqlite, sqlite.Close
	}

	evaluator, err := a.evaluator()
	if err != nil {
		closer()
		return nil, nil, err
	}

	opts := []factory.Option{
		factory.WithStore(store),
		factory.WithOperationLogger(factory.NewZapOperationLogger(a.logger)),
		factory.WithActivityChannel(a.cfg.Activity.Channel),
		factory.WithActivityHooks(activity.Hooks{
			usersink.Hook{Sink: logSink{logger: a.logger.Named("activity")}},
		}),
		factory.WithRuleEvaluator(evaluator),
		factory.WithAdmissionRules(a.cfg.Admission.Rules...),
	}
	if len(a.cfg.Seeds) > 0 {
		seeds := make([][]byte, 0, len(a.cfg.Seeds))
		for _, seed := range a.cfg.Seeds {
			seeds = append(seeds, []byte(seed))
		}
		opts = append(opts, factory.WithSeed(seeds...))
	}

	f, err := factory.New(program, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return f, closer, nil
}

func (a *app) evaluator() (rules.Evaluator, error) {
	cache := rules.NewMapCache()
	switch a.cfg.Admission.Engine {
	case "", "expr":
		return rules.NewExprEvaluator(rules.ExprWithProgramCache(cache)), nil
	case "cel":
		return rules.NewCELEvaluator(rules.CELWithProgramCache(cache)), nil
	case "js":
		if !rules.JSAvailable() {
			return nil, fmt.Errorf("admission engine js requires a build with -tags js_eval")
		}
		return rules.NewJSEvaluator(rules.JSWithProgramCache(cache)), nil
	default:
		return nil, fmt.Errorf("unknown admission engine %q", a.cfg.Admission.Engine)
	}
}

// logSink writes activity records to the operator log.
type logSink struct {
	logger *zap.Logger
}

func (s logSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.logger.Info("activity",
		zap.String("verb", record.Verb),
		zap.String("object_type", record.ObjectType),
		zap.String("object_id", record.ObjectID),
		zap.String("channel", record.Channel),
		zap.Stringer("actor_id", record.ActorID),
		zap.Any("data", record.Data),
	)
	return nil
}
