package factory

import "time"

// OperationLogEvent describes the outcome of one handler call.
type OperationLogEvent struct {
	Operation string
	Caller    Identity
	Address   Address
	// Version is the protocol version after the call; zero when nothing was
	// committed.
	Version  uint64
	Duration time.Duration
	Err      error
	// HookErr is set when the change committed but an activity hook failed.
	HookErr error
}

// OperationLogger records handler outcomes.
type OperationLogger interface {
	LogOperation(OperationLogEvent)
}

// OperationLoggerFunc adapts a function to OperationLogger.
type OperationLoggerFunc func(OperationLogEvent)

func (f OperationLoggerFunc) LogOperation(event OperationLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopOperationLogger struct{}

func (noopOperationLogger) LogOperation(OperationLogEvent) {}
