package rules

import (
	"strings"
	"time"
)

// Context carries inputs needed when evaluating an expression.
type Context struct {
	// Snapshot is exposed as top level variables.
	Snapshot map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Subject labels the evaluation in errors and logs.
	Subject string
}

func (ctx Context) withDefaults() Context {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx Context) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx Context) subjectLabel() string {
	if subject := strings.TrimSpace(ctx.Subject); subject != "" {
		return subject
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// EngineName reports the engine behind e: expr, cel, js or custom.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
