package terminal

import (
	"errors"
	"fmt"
)

// ErrorKind partitions gateway failures so callers can decide between
// retrying, substituting a ticker variant, or surfacing the error.
type ErrorKind string

const (
	// KindUnavailable means the gateway could not be reached or refused the
	// request. The terminal is likely not running or not logged in.
	KindUnavailable ErrorKind = "unavailable"
	// KindTimeout means the gateway did not answer within the request deadline.
	KindTimeout ErrorKind = "timeout"
	// KindSecurity means the gateway rejected the security or field set.
	KindSecurity ErrorKind = "security"
	// KindDecode means the gateway answered with a body we could not parse.
	KindDecode ErrorKind = "decode"
)

// FetchError is the error type for every failed gateway call.
type FetchError struct {
	Kind     ErrorKind
	Op       string
	Security string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Security != "" {
		return fmt.Sprintf("terminal %s (%s) %s: %v", e.Op, e.Security, e.Kind, e.Err)
	}
	return fmt.Sprintf("terminal %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a gateway-unreachable failure.
func IsUnavailable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindUnavailable
}

// IsSecurityError reports whether err is a rejected-security failure.
func IsSecurityError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindSecurity
}
