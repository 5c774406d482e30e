// Package fserrors defines the filesystem-facing error taxonomy and the
// helpers which decide whether a low level failure is worth retrying.
package fserrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Sentinel errors returned by all public filesystem operations. Callers
// match them with errors.Is.
var (
	ErrNotFound         = errors.New("item not found")
	ErrAlreadyExists    = errors.New("item already exists")
	ErrConflict         = errors.New("operation conflicts with remote state")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("remote temporarily unavailable")
	ErrIntegrity        = errors.New("remote returned inconsistent data")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDirNotEmpty      = errors.New("directory not empty")
	ErrIsDir            = errors.New("item is a directory")
	ErrNotDir           = errors.New("item is not a directory")
)

// Op describes the operation context a remote error happened in. A 409
// means "already exists" when creating but "conflict" when moving or
// replacing, so translation needs to know which one it is serving.
type Op int

// Operation contexts for Translate.
const (
	OpOther Op = iota
	OpCreate
	OpMove
	OpReplace
)

// RemoteError is implemented by api.Error so that Translate can reach
// the HTTP status and OneDrive error code without importing the api
// package.
type RemoteError interface {
	error
	HTTPStatus() int
	ErrorCode() string
}

// Translate maps a transport or remote error onto exactly one taxonomy
// sentinel, wrapping the original for context. It never fails: anything
// unrecognised becomes ErrUnavailable for transport problems and
// ErrIntegrity for malformed remote data.
func Translate(err error, op Op) error {
	if err == nil {
		return nil
	}
	// Already translated errors pass through untouched.
	for _, kind := range []error{
		ErrNotFound, ErrAlreadyExists, ErrConflict, ErrPermissionDenied,
		ErrUnavailable, ErrIntegrity, ErrInvalidArgument, ErrDirNotEmpty,
		ErrIsDir, ErrNotDir,
	} {
		if errors.Is(err, kind) {
			return err
		}
	}
	var remoteErr RemoteError
	if errors.As(err, &remoteErr) {
		return translateRemote(err, remoteErr, op)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	// Plain transport failure with retries already exhausted upstream.
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func translateRemote(err error, remoteErr RemoteError, op Op) error {
	switch remoteErr.HTTPStatus() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusConflict:
		if op == OpCreate {
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case http.StatusBadRequest, http.StatusMethodNotAllowed,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	switch remoteErr.ErrorCode() {
	case "itemNotFound":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case "nameAlreadyExists":
		if op == OpCreate {
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case "accessDenied", "notAllowed":
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case "malformedEntityTag", "invalidRange", "invalidRequest":
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if remoteErr.HTTPStatus() >= 500 {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrIntegrity, err)
}

// Retrier is an optional interface for errors which know whether the
// operation that caused them should be retried at the transport level.
type Retrier interface {
	error
	Retry() bool
}

type retryError struct {
	error
}

func (r retryError) Retry() bool { return true }

func (r retryError) Unwrap() error { return r.error }

// RetryError wraps err so the pacer will retry the operation. A nil
// err is substituted with a generic one so the result is always safe
// to print.
func RetryError(err error) error {
	if err == nil {
		err = errors.New("needs retry")
	}
	return retryError{err}
}

type noRetryError struct {
	error
}

func (r noRetryError) Retry() bool { return false }

func (r noRetryError) Unwrap() error { return r.error }

// NoRetryError wraps err so the pacer will give up immediately even if
// the status code looks retriable.
func NoRetryError(err error) error {
	return noRetryError{err}
}

// ShouldRetry reports whether retrying the operation that produced err
// looks worthwhile. Timeouts and temporary network conditions qualify;
// context cancellation never does.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var retrier Retrier
	if errors.As(err, &retrier) {
		return retrier.Retry()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		return true
	}
	if t, ok := err.(interface{ Temporary() bool }); ok && t.Temporary() {
		return true
	}
	return false
}

// retryErrorCodes are the HTTP statuses the pacer treats as transient.
var retryErrorCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
	509, // Bandwidth Limit Exceeded
}

// ShouldRetryHTTP reports whether the response status code is one of
// the transient codes worth another attempt.
func ShouldRetryHTTP(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	for _, code := range retryErrorCodes {
		if resp.StatusCode == code {
			return true
		}
	}
	return false
}

// ContextError checks whether ctx has been cancelled and if so replaces
// *perr with the context's error, reporting that it did.
func ContextError(ctx context.Context, perr *error) bool {
	if ctxErr := ctx.Err(); ctxErr != nil {
		*perr = ctxErr
		return true
	}
	return false
}
