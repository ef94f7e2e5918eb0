package rules

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELOption configures the CEL evaluator.
type CELOption func(*celEvaluator)

func CELWithProgramCache(cache ProgramCache) CELOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

func CELWithFunctionRegistry(registry *FunctionRegistry) CELOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Snapshot keys are
// declared as dynamic variables; integer snapshot values should be int64.
func NewCELEvaluator(opts ...CELOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", ErrEmptyExpression)
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.Snapshot)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.subjectLabel(), err)
	}
	return e.run(ctx, expression, program)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", ErrEmptyExpression)
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) run(ctx Context, expression string, program *celProgram) (any, error) {
	out, _, err := program.program.Eval(e.activation(ctx))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.subjectLabel(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrCompile(expression string, snapshot map[string]any) (*celProgram, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (e *celEvaluator) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", e.overloads("call", 1)...))
		for _, name := range e.registry.Names() {
			opts = append(opts, celgo.Function(name, e.overloads(name, 0)...))
		}
	}
	for key := range snapshot {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(ctx Context) map[string]any {
	activation := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	for key, value := range ctx.Snapshot {
		activation[key] = value
	}
	return activation
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx Context) (any, error) {
	ctx = ctx.withDefaults()
	program, err := r.evaluator.loadOrCompile(r.expression, ctx.Snapshot)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.subjectLabel(), err)
	}
	return r.evaluator.run(ctx, r.expression, program)
}

// maxCallArity bounds the dynamic overloads declared for registry functions.
const maxCallArity = 4

// overloads declares name with 0..maxCallArity dynamic arguments after the
// leading fixed ones. "call" takes the function name as its first argument.
func (e *celEvaluator) overloads(name string, fixed int) []celgo.FunctionOpt {
	opts := make([]celgo.FunctionOpt, 0, maxCallArity+1)
	for arity := 0; arity <= maxCallArity; arity++ {
		args := make([]*celgo.Type, 0, fixed+arity)
		for i := 0; i < fixed; i++ {
			args = append(args, celgo.StringType)
		}
		for i := 0; i < arity; i++ {
			args = append(args, celgo.DynType)
		}
		opts = append(opts, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.binding(name, fixed)),
		))
	}
	return opts
}

func (e *celEvaluator) binding(name string, fixed int) func(...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		target := name
		if fixed > 0 {
			if len(values) == 0 {
				return types.NewErr("rules: call requires function name")
			}
			fn, ok := values[0].Value().(string)
			if !ok {
				return types.NewErr("rules: call name must be string")
			}
			target = fn
			values = values[1:]
		}
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(target, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
