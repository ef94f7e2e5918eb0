package rules

import "time"

// LogEvent describes a single rule evaluation.
type LogEvent struct {
	Engine   string
	Rule     string
	Expr     string
	Subject  string
	Allowed  bool
	Duration time.Duration
	Err      error
}

// Logger records rule evaluations.
type Logger interface {
	LogEvaluation(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

func (f LoggerFunc) LogEvaluation(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvaluation(LogEvent) {}
