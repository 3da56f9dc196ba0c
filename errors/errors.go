package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrUnauthenticated      = fmt.Errorf("connection is not authenticated")
	ErrAlreadyAuthenticated = fmt.Errorf("connection is already authenticated")
	ErrEmptyContent         = fmt.Errorf("content is empty")
	ErrContentTooLong       = fmt.Errorf("content is too long")
	ErrPersistence          = fmt.Errorf("message could not be persisted")
	ErrInvalidEnvelope      = fmt.Errorf("invalid envelope")
	ErrInvalidToken         = fmt.Errorf("invalid or expired token")
	ErrConnectionClosed     = fmt.Errorf("connection is closed")
	ErrSlowConsumer         = fmt.Errorf("outbound buffer is full")
	ErrConnectionLost       = fmt.Errorf("connection lost")
	ErrEmptyWords           = fmt.Errorf("no words have been found")
	ErrUnknownStoreDriver   = fmt.Errorf("unknown store driver")
	ErrSearchDisabled       = fmt.Errorf("search is disabled")
)

// Code is the machine readable reason carried by an error envelope.
type Code string

const (
	CodeUnauthenticated      Code = "unauthenticated"
	CodeAlreadyAuthenticated Code = "already-authenticated"
	CodeEmptyContent         Code = "empty-content"
	CodeContentTooLong       Code = "content-too-long"
	CodePersistenceFailure   Code = "persistence-failure"
	CodeInvalidEnvelope      Code = "invalid-envelope"
	CodeInvalidToken         Code = "invalid-token"
	CodeInternal             Code = "internal"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrAlreadyAuthenticated, CodeAlreadyAuthenticated},
	{ErrEmptyContent, CodeEmptyContent},
	{ErrContentTooLong, CodeContentTooLong},
	{ErrPersistence, CodePersistenceFailure},
	{ErrInvalidEnvelope, CodeInvalidEnvelope},
	{ErrInvalidToken, CodeInvalidToken},
}

// ToCode maps a (possibly wrapped) error onto the code sent back to the client.
func ToCode(err error) Code {
	for _, c := range codes {
		if goerrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// PublicMessage returns the text safe to show a client: the sentinel message
// without the wrapped details, which may come from a database driver.
func PublicMessage(err error) string {
	for _, c := range codes {
		if goerrors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal error"
}
