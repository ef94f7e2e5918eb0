package rules

type jsConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSOption configures the JS evaluator.
type JSOption func(*jsConfig)

func JSWithProgramCache(cache ProgramCache) JSOption {
	return func(cfg *jsConfig) {
		cfg.cache = cache
	}
}

func JSWithFunctionRegistry(registry *FunctionRegistry) JSOption {
	return func(cfg *jsConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyJSOptions(opts []JSOption) jsConfig {
	cfg := jsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
