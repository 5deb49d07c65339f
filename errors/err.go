package errors

import (
	"context"
	"fmt"

	"github.com/dvorobiov/crate/queryctx"
	"github.com/pkg/errors"
)

// Error messages
const (
	// Protocol violations (caller bugs, non-recoverable)
	ErrAdvanceDuringFetch   = "cursor advanced while a fetch was in flight"
	ErrCursorClosed         = "operation on closed cursor"
	ErrCursorKilled         = "operation on killed cursor"
	ErrMergeAfterFinish     = "merge called after finish"
	ErrNextPastEnd          = "next called with no remaining rows"
	ErrRepeatNotSupported   = "repeat is only supported in repeatable mode"
	ErrLoadConcurrent       = "loadNextBatch called while a previous load was still in flight"
	ErrCursorTerminatedLoad = "cursor terminated while a fetch was in flight"

	// Fetch failures (runtime conditions, caller decides retry vs kill)
	ErrFetchFailed = "failed to fetch next page from upstream"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type crateError struct {
	err     error
	queryId string
	errType string
}

var _ error = (*crateError)(nil)

func newCrateError(ctx context.Context, msg string, err error) crateError {
	// create an error with the new message
	if err == nil {
		err = errors.New(msg)
	} else {
		err = errors.WithMessage(err, msg)
	}

	// if the source error does not have a stack trace in its
	// error chain add a stack trace
	var st stackTracer
	if ok := errors.As(err, &st); !ok {
		err = errors.WithStack(err)
	}

	return crateError{
		err:     err,
		queryId: queryctx.QueryIdFromContext(ctx),
		errType: "unknown",
	}
}

func (e crateError) Error() string {
	return fmt.Sprintf("crate: %s: %s", e.errType, e.err.Error())
}

func (e crateError) Cause() error {
	return e.err
}

func (e crateError) StackTrace() errors.StackTrace {
	var st stackTracer
	if ok := errors.As(e.err, &st); ok {
		return st.StackTrace()
	}

	return nil
}

func (e crateError) QueryId() string {
	return e.queryId
}

type protocolViolation struct {
	crateError
}

var _ CrateProtocolViolation = (*protocolViolation)(nil)

func (e protocolViolation) Is(err error) bool {
	return err == ProtocolViolation
}

func (e protocolViolation) Unwrap() error {
	return e.err
}

func NewProtocolViolation(ctx context.Context, msg string) *protocolViolation {
	crErr := newCrateError(ctx, msg, nil)
	crErr.errType = "protocol violation"
	return &protocolViolation{crateError: crErr}
}

type fetchFailure struct {
	crateError
}

var _ CrateFetchFailure = (*fetchFailure)(nil)

func (e fetchFailure) Is(err error) bool {
	return err == FetchFailure
}

func (e fetchFailure) Unwrap() error {
	return e.err
}

func NewFetchFailure(ctx context.Context, msg string, err error) *fetchFailure {
	crErr := newCrateError(ctx, msg, err)
	crErr.errType = "fetch failure"
	return &fetchFailure{crateError: crErr}
}

// WrapErr wraps an error and adds a stack trace if not already present
func WrapErr(err error, msg string) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the message
		return errors.WithMessage(err, msg)
	}

	// wrap passed in error in errors with the message and a stack trace
	return errors.Wrap(err, msg)
}

// WrapErrf wraps an error with a formatted message and adds a stack trace
// if not already present
func WrapErrf(err error, format string, args ...interface{}) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the formatted message
		return errors.WithMessagef(err, format, args...)
	}

	// wrap passed in error in errors with the formatted message and a stack trace
	return errors.Wrapf(err, format, args...)
}
