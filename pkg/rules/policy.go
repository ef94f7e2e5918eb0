package rules

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rule is a named boolean expression. A rule admits a request when it
// evaluates to true.
type Rule struct {
	Name string `json:"name" yaml:"name"`
	Expr string `json:"expr" yaml:"expr"`
}

// RuleError reports the rule that rejected or failed to evaluate a request.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithLogger attaches an evaluation logger.
func WithLogger(logger Logger) PolicyOption {
	return func(p *Policy) {
		if logger == nil {
			p.logger = noopLogger{}
			return
		}
		p.logger = logger
	}
}

type compiledPolicyRule struct {
	Rule
	program CompiledRule
}

// Policy is an ordered set of compiled rules evaluated with a single engine.
type Policy struct {
	engine string
	rules  []compiledPolicyRule
	logger Logger
}

// NewPolicy compiles rules with evaluator. A nil evaluator selects the expr
// engine. Rule names default to their position.
func NewPolicy(evaluator Evaluator, rules []Rule, opts ...PolicyOption) (*Policy, error) {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	p := &Policy{
		engine: EngineName(evaluator),
		logger: noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		rule.Name = strings.TrimSpace(rule.Name)
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule_%d", i)
		}
		if _, dup := seen[rule.Name]; dup {
			return nil, fmt.Errorf("rules: duplicate rule name %q", rule.Name)
		}
		seen[rule.Name] = struct{}{}

		program, err := evaluator.Compile(strings.TrimSpace(rule.Expr))
		if err != nil {
			return nil, &RuleError{Rule: rule.Name, Err: err}
		}
		p.rules = append(p.rules, compiledPolicyRule{Rule: rule, program: program})
	}
	return p, nil
}

// Len returns the number of rules.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.rules)
}

// Rules returns the policy rules in evaluation order.
func (p *Policy) Rules() []Rule {
	if p == nil {
		return nil
	}
	out := make([]Rule, 0, len(p.rules))
	for _, rule := range p.rules {
		out = append(out, rule.Rule)
	}
	return out
}

// Admit evaluates every rule in order and stops at the first one that fails.
// A rule that yields false returns a *RuleError wrapping ErrRejected; a
// non-boolean result wraps ErrNotBoolean. A nil policy admits everything.
func (p *Policy) Admit(ctx Context) error {
	if p == nil {
		return nil
	}
	ctx = ctx.withDefaults()
	for _, rule := range p.rules {
		start := time.Now()
		allowed, err := evaluateBool(rule.program, ctx)
		p.logger.LogEvaluation(LogEvent{
			Engine:   p.engine,
			Rule:     rule.Name,
			Expr:     rule.Expr,
			Subject:  ctx.subjectLabel(),
			Allowed:  allowed,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			return &RuleError{Rule: rule.Name, Err: err}
		}
		if !allowed {
			return &RuleError{Rule: rule.Name, Err: ErrRejected}
		}
	}
	return nil
}

func evaluateBool(program CompiledRule, ctx Context) (bool, error) {
	value, err := program.Evaluate(ctx)
	if err != nil {
		return false, err
	}
	allowed, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, value)
	}
	return allowed, nil
}

// IsRejection reports whether err is a rule that evaluated to false, as
// opposed to an evaluation failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrRejected)
}
