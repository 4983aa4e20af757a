package render

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindConnection  Kind = "connection"
	KindBadResponse Kind = "bad_response"
	KindUnknown     Kind = "unknown"
)

// Error is the failure type returned by renderers. Callers branch on Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the failure kind of err. Untyped errors are classified from
// context deadlines and net.Error timeouts, otherwise KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}

func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
