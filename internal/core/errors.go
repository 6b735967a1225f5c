package core

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindFetchFailed       ErrorKind = "fetch_failed"
	KindPersistenceFailed ErrorKind = "persistence_failed"
	KindEmbeddingFailed   ErrorKind = "embedding_failed"
	KindPrecondition      ErrorKind = "precondition"
	KindDuplicate         ErrorKind = "duplicate"
	KindAmbiguous         ErrorKind = "ambiguous"
	KindInvalidInput      ErrorKind = "invalid_input"
)

// OperationError is the error type every pipeline component returns for
// classified failures. StatusCode is only set for fetch_failed.
type OperationError struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "operation failed"
	}
	msg := fmt.Sprintf("%s (op=%s", e.Kind, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	msg += ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds a classified error.
func NewError(op string, kind ErrorKind, msg string, cause error) error {
	return &OperationError{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// FetchFailed reports a non-success HTTP status from an upstream feed.
func FetchFailed(op string, status int, msg string) error {
	return &OperationError{Kind: KindFetchFailed, Op: op, StatusCode: status, Message: msg}
}

// KindOf returns the kind of the outermost OperationError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusCodeOf returns the upstream HTTP status carried by a fetch_failed error.
func StatusCodeOf(err error) int {
	var oe *OperationError
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	return 0
}
