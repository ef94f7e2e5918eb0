package factory

import (
	"time"

	"github.com/goliatone/go-factory/pkg/activity"
	"github.com/goliatone/go-factory/pkg/rules"
	"github.com/goliatone/go-factory/pkg/state"
	"github.com/google/uuid"
)

// Option configures a Factory.
type Option func(*config)

type config struct {
	store      state.Store[Record]
	allocator  Allocator
	clock      func() time.Time
	newID      func() string
	hooks      activity.Hooks
	channel    string
	logger     OperationLogger
	rules      []rules.Rule
	evaluator  rules.Evaluator
	ruleLogger rules.Logger
	seeds      [][]byte
}

func applyOptions(opts []Option) config {
	cfg := config{
		clock: time.Now,
		newID: func() string { return uuid.NewString() },
		seeds: [][]byte{[]byte(FactoryStateSeed)},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = state.NewMemoryStore[Record]()
	}
	if cfg.allocator == nil {
		cfg.allocator = NopAllocator{}
	}
	if cfg.logger == nil {
		cfg.logger = noopOperationLogger{}
	}
	if cfg.ruleLogger == nil {
		if rl, ok := cfg.logger.(rules.Logger); ok {
			cfg.ruleLogger = rl
		}
	}
	return cfg
}

// WithStore sets the record store. The default is an in-memory store.
func WithStore(store state.Store[Record]) Option {
	return func(cfg *config) {
		cfg.store = store
	}
}

// WithAllocator sets the storage allocation collaborator consulted by
// Initialize.
func WithAllocator(allocator Allocator) Option {
	return func(cfg *config) {
		cfg.allocator = allocator
	}
}

// WithClock overrides the time source used for metadata and events.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithIDGenerator overrides the snapshot and ETag generator.
func WithIDGenerator(next func() string) Option {
	return func(cfg *config) {
		if next != nil {
			cfg.newID = next
		}
	}
}

// WithActivityHooks attaches hooks notified after every committed change.
// Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.hooks = normalized
	}
}

// WithActivityChannel overrides activity.DefaultChannel.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.channel = channel
	}
}

// WithOperationLogger attaches a logger for handler outcomes. A logger that
// also implements rules.Logger receives admission rule evaluations.
func WithOperationLogger(logger OperationLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithAdmissionRules sets the rules ReserveStablecoin evaluates before
// incrementing the counter.
func WithAdmissionRules(set ...rules.Rule) Option {
	return func(cfg *config) {
		cfg.rules = append([]rules.Rule(nil), set...)
	}
}

// WithRuleEvaluator selects the admission rule engine. The default is expr.
func WithRuleEvaluator(evaluator rules.Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}

// WithRuleLogger overrides the admission rule logger.
func WithRuleLogger(logger rules.Logger) Option {
	return func(cfg *config) {
		cfg.ruleLogger = logger
	}
}

// WithSeed replaces the address seeds. The default is FactoryStateSeed.
// Seeds beyond MaxSeeds or longer than MaxSeedLength make New fail.
func WithSeed(seeds ...[]byte) Option {
	copied := make([][]byte, 0, len(seeds))
	for _, seed := range seeds {
		copied = append(copied, append([]byte(nil), seed...))
	}
	return func(cfg *config) {
		cfg.seeds = copied
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
