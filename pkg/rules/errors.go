package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
	// ErrRejected is returned by Policy.Admit when a rule evaluates to false.
	ErrRejected = errors.New("rules: rule rejected")
	// ErrNotBoolean is returned when a policy rule yields a non-boolean value.
	ErrNotBoolean = errors.New("rules: rule must evaluate to a boolean")
)

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine  string
	Expr    string
	Subject string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s evaluator %s subject=%s: %v", e.Engine, describeExpression(e.Expr), e.Subject, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "rules:") {
		return err
	}
	return fmt.Errorf("rules: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, subject string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Subject == "" {
			evalErr.Subject = subject
		}
		return evalErr
	}

	return &EvaluationError{
		Engine:  engine,
		Expr:    expr,
		Subject: subject,
		Err:     err,
	}
}
