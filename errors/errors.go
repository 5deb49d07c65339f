package errors

import "github.com/pkg/errors"

// value to be used with errors.Is() to determine if an error chain contains a protocol violation
var ProtocolViolation error = errors.New("Protocol Violation")

// value to be used with errors.Is() to determine if an error chain contains a fetch failure
var FetchFailure error = errors.New("Fetch Failure")

// Base interface for merge layer errors
type CrateError interface {
	// Descriptive message describing the error
	Error() string

	// Id of the query whose results were being merged.
	// Appears in log messages as field queryId. See queryctx.NewContextWithQueryId()
	QueryId() string

	// Stack trace associated with the error. May be nil.
	StackTrace() errors.StackTrace

	// Underlying causative error. May be nil.
	Cause() error
}

// An error caused by using a cursor or merge strategy outside its protocol,
// e.g. advancing while a fetch is in flight or merging after finish.
// Signals a defect in the caller, not a runtime condition.
type CrateProtocolViolation interface {
	CrateError
}

// An error surfaced by the fetch-more provider. Recoverable from the
// cursor's point of view: the caller may retry the load or kill the cursor.
type CrateFetchFailure interface {
	CrateError
}
