// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package errs defines the error-kind taxonomy every component in this
// repository surfaces through, and the cause-chain and sanitization
// helpers built on top of cockroachdb/errors.
package errs

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Kind is one of the error kinds from the error handling design. Each
// component surfaces at most one kind per failure.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindRateLimit            Kind = "rate_limit"
	KindCircuitOpen          Kind = "circuit_open"
	KindTimeout              Kind = "timeout"
	KindBulkheadFull         Kind = "bulkhead_full"
	KindBulkheadQueueTimeout Kind = "bulkhead_queue_timeout"
	KindAllEndpointsFailed   Kind = "all_endpoints_failed"
	KindUpstream             Kind = "upstream"
)

// kindError is the sentinel carrying a Kind, used as the target of
// errors.Is and as the base that Wrap attaches a cause to.
type kindError struct {
	kind Kind
	msg  string
}

func (e *kindError) Error() string { return e.msg }

// Is makes errors.Is(err, errs.Timeout) etc. match on Kind rather than
// identity, so wrapped/caused instances still compare equal to the
// sentinel.
func (e *kindError) Is(target error) bool {
	other, ok := target.(*kindError)
	return ok && other.kind == e.kind
}

var (
	Validation           = &kindError{kind: KindValidation, msg: "validation error"}
	RateLimit            = &kindError{kind: KindRateLimit, msg: "rate limit exceeded"}
	CircuitOpen          = &kindError{kind: KindCircuitOpen, msg: "circuit open"}
	Timeout              = &kindError{kind: KindTimeout, msg: "deadline exceeded"}
	BulkheadFull         = &kindError{kind: KindBulkheadFull, msg: "bulkhead queue full"}
	BulkheadQueueTimeout = &kindError{kind: KindBulkheadQueueTimeout, msg: "bulkhead queue wait timed out"}
	AllEndpointsFailed   = &kindError{kind: KindAllEndpointsFailed, msg: "all endpoints failed"}
	Upstream             = &kindError{kind: KindUpstream, msg: "upstream error"}
)

// New wraps msg with a stack trace and marks it with kind so that
// errors.Is(err, errs.<Kind sentinel>) succeeds.
func New(kind *kindError, msg string) error {
	return errors.Mark(errors.WithStack(errors.New(msg)), kind)
}

// Wrap attaches kind and a stack trace to cause, preserving cause as the
// chain cockroachdb/errors exposes via errors.Cause / errors.UnwrapAll.
func Wrap(kind *kindError, cause error, msg string) error {
	if cause == nil {
		return New(kind, msg)
	}
	return errors.Mark(errors.Wrapf(cause, "%s", msg), kind)
}

// Is reports whether err (or any error in its cause chain) is marked
// with kind.
func Is(err error, kind *kindError) bool {
	return errors.Is(err, kind)
}

// HTTPStatus extracts a status code from an upstream error if the RPC
// call function attached one, for non-retriable-status classification
// (§4.5 edge policies). Returns 0 if none is present.
func HTTPStatus(err error) int {
	var se interface{ StatusCode() int }
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return 0
}

// StatusError is the shape an RPC call function should wrap HTTP errors
// in so HTTPStatus can classify 401/403 for the RPC fallback chain.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %v", e.Status, e.Err)
}

func (e *StatusError) StatusCode() int { return e.Status }
func (e *StatusError) Unwrap() error   { return e.Err }

// IsNonRetriableStatus reports whether err carries an HTTP status in the
// given non-retriable set (default {401, 403}).
func IsNonRetriableStatus(err error, nonRetriable map[int]struct{}) bool {
	status := HTTPStatus(err)
	if status == 0 {
		return false
	}
	_, bad := nonRetriable[status]
	return bad
}

// DefaultNonRetriableStatus is the §6 default {401, 403}.
func DefaultNonRetriableStatus() map[int]struct{} {
	return map[int]struct{}{http.StatusUnauthorized: {}, http.StatusForbidden: {}}
}

// AllFailedError is the terminal error the RPC fallback chain surfaces
// when every endpoint attempt failed. It packs the per-endpoint errors
// so callers can inspect what each provider reported.
type AllFailedError struct {
	Chain  string
	Errors []EndpointError
}

// EndpointError names which endpoint/provider produced which error.
type EndpointError struct {
	Endpoint string
	Provider string
	Err      error
}

func (e *AllFailedError) Error() string {
	msg := fmt.Sprintf("all endpoints failed for chain %s:", e.Chain)
	for _, ee := range e.Errors {
		msg += fmt.Sprintf(" [%s/%s: %v]", ee.Provider, ee.Endpoint, ee.Err)
	}
	return msg
}

func (e *AllFailedError) Is(target error) bool {
	return target == AllEndpointsFailed
}

// NewAllFailed builds the terminal AllEndpointsFailed error for a chain.
func NewAllFailed(chain string, endpointErrs []EndpointError) error {
	return errors.WithStack(&AllFailedError{Chain: chain, Errors: endpointErrs})
}
