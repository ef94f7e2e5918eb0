package factory

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitialized = errors.New("factory: already initialized")
	ErrNotInitialized     = errors.New("factory: not initialized")
	ErrInvalidParameter   = errors.New("factory: invalid parameter")
	ErrUnauthorized       = errors.New("factory: unauthorized")
	// ErrFactoryPaused is returned to the stablecoin creation subsystem, never
	// by the configuration handlers.
	ErrFactoryPaused = errors.New("factory: paused")
	// ErrStorageAllocation wraps failures reported by the Allocator.
	ErrStorageAllocation = errors.New("factory: storage allocation failed")

	ErrAddressExhausted = errors.New("factory: no valid address found for seed")
	ErrAddressMismatch  = errors.New("factory: target does not match derived address")
	ErrInvalidSignature = errors.New("factory: invalid request signature")
	ErrConflict         = errors.New("factory: record changed concurrently")
	ErrCounterOverflow  = errors.New("factory: stablecoin counter overflow")
	ErrAlreadyPaused    = errors.New("factory: already paused")
	ErrNotPaused        = errors.New("factory: not paused")
	ErrAdmissionDenied  = errors.New("factory: admission denied")
	ErrCorruptRecord    = errors.New("factory: corrupt record")
	ErrUnknownOperation = errors.New("factory: unknown operation")
)

// InvalidParameterError names the field and the bound it violated.
type InvalidParameterError struct {
	Field string
	Bound string
	Value any
}

func (e *InvalidParameterError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: invalid parameter %s=%v: %s", e.Field, e.Value, e.Bound)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// UnauthorizedError records whose identity failed the admin check.
type UnauthorizedError struct {
	Caller Identity
	Admin  Identity
}

func (e *UnauthorizedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: unauthorized: caller %s is not admin %s", e.Caller, e.Admin)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// AdmissionError reports the admission rule that stopped a creation request.
// Err is rules.ErrRejected when the rule evaluated to false, otherwise the
// evaluation failure.
type AdmissionError struct {
	Rule string
	Err  error
}

func (e *AdmissionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("factory: admission denied by rule %q: %v", e.Rule, e.Err)
}

func (e *AdmissionError) Is(target error) bool {
	return target == ErrAdmissionDenied
}

func (e *AdmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func invalidParameter(field, bound string, value any) error {
	return &InvalidParameterError{Field: field, Bound: bound, Value: value}
}

func storageAllocationError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageAllocation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageAllocation, err)
}
