package engine

import (
	"errors"
	"fmt"
)

// Error is returned by every Engine operation that fails.
//
// The error taxonomy:
//   - NotFound: a card, user or trade lookup matched nothing
//   - InvalidOperation: the request is malformed or the caller has no standing
//   - CapacityExceeded: a hand would grow beyond the limit
//   - Conflict: a duplicate proposal, user name or catalog record
//   - Busy: the state lock could not be acquired
//   - Storage: the backing store failed; the transaction was rolled back
//
// Errors are scoped to the single requested operation and never retried.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the engine operation that failed (e.g. "propose_trade").
	Op string

	// Message is a human-readable description.
	Message string

	// Details contains additional context such as ids.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeBusy             ErrorCode = "BUSY"
	ErrCodeStorage          ErrorCode = "STORAGE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op=%s)", msg, e.Op)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsNotFound returns true if err is a NotFound engine error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsInvalidOperation returns true if err is an InvalidOperation engine error.
func IsInvalidOperation(err error) bool { return CodeOf(err) == ErrCodeInvalidOperation }

// IsCapacityExceeded returns true if err is a CapacityExceeded engine error.
func IsCapacityExceeded(err error) bool { return CodeOf(err) == ErrCodeCapacityExceeded }

// IsConflict returns true if err is a Conflict engine error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// IsBusy returns true if err is a Busy engine error.
func IsBusy(err error) bool { return CodeOf(err) == ErrCodeBusy }

// NewNotFoundError creates an Error for a missing card, user or trade.
func NewNotFoundError(op, entity string, id any) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s %v not found", entity, id),
		Details: map[string]string{entity: fmt.Sprint(id)},
	}
}

// NewInvalidOperationError creates an Error for a request the engine refuses.
func NewInvalidOperationError(op, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidOperation,
		Op:      op,
		Message: message,
	}
}

// NewCapacityError creates an Error for a hand that would exceed maxHand.
// The engine itself reports capacity as a boolean; callers that need an
// error value (CLI, harness) build one with this.
func NewCapacityError(op string, user any, size, maxHand int) *Error {
	return &Error{
		Code:    ErrCodeCapacityExceeded,
		Op:      op,
		Message: fmt.Sprintf("hand of user %v would hold %d cards (max %d)", user, size, maxHand),
		Details: map[string]string{
			"user":     fmt.Sprint(user),
			"size":     fmt.Sprint(size),
			"max_hand": fmt.Sprint(maxHand),
		},
	}
}

// NewConflictError creates an Error for a duplicate record.
func NewConflictError(op, message string) *Error {
	return &Error{
		Code:    ErrCodeConflict,
		Op:      op,
		Message: message,
	}
}

// NewBusyError creates an Error for a lock that stayed held.
func NewBusyError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeBusy,
		Op:      op,
		Message: "state lock not acquired",
		Err:     err,
	}
}

// asEngineError passes *Error through and classifies anything else as a
// storage failure.
func asEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return &Error{
		Code:    ErrCodeStorage,
		Op:      op,
		Message: "store operation failed",
		Err:     err,
	}
}
