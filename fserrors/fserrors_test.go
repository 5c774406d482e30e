package fserrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemoteError stands in for the api error payload.
type fakeRemoteError struct {
	status int
	code   string
}

func (e *fakeRemoteError) Error() string     { return fmt.Sprintf("%d: %s", e.status, e.code) }
func (e *fakeRemoteError) HTTPStatus() int   { return e.status }
func (e *fakeRemoteError) ErrorCode() string { return e.code }

func TestTranslate(t *testing.T) {
	for _, test := range []struct {
		name   string
		status int
		code   string
		op     Op
		want   error
	}{
		{"not found", http.StatusNotFound, "itemNotFound", OpOther, ErrNotFound},
		{"conflict on create", http.StatusConflict, "nameAlreadyExists", OpCreate, ErrAlreadyExists},
		{"conflict on move", http.StatusConflict, "nameAlreadyExists", OpMove, ErrConflict},
		{"etag mismatch", http.StatusPreconditionFailed, "", OpReplace, ErrConflict},
		{"unauthorized", http.StatusUnauthorized, "", OpOther, ErrPermissionDenied},
		{"forbidden", http.StatusForbidden, "accessDenied", OpOther, ErrPermissionDenied},
		{"bad request", http.StatusBadRequest, "invalidRequest", OpOther, ErrInvalidArgument},
		{"server error", http.StatusInternalServerError, "generalException", OpOther, ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, "", OpOther, ErrUnavailable},
		{"code only not found", http.StatusOK, "itemNotFound", OpOther, ErrNotFound},
		{"unknown", http.StatusTeapot, "weird", OpOther, ErrIntegrity},
	} {
		t.Run(test.name, func(t *testing.T) {
			remote := &fakeRemoteError{status: test.status, code: test.code}
			err := Translate(remote, test.op)
			assert.ErrorIs(t, err, test.want)
			// The original error stays reachable for debugging.
			var unwrapped *fakeRemoteError
			assert.True(t, errors.As(err, &unwrapped))
		})
	}
}

func TestTranslateNil(t *testing.T) {
	assert.NoError(t, Translate(nil, OpOther))
}

func TestTranslatePassthrough(t *testing.T) {
	// Errors already carrying a sentinel must not be rewrapped.
	err := fmt.Errorf("%w: no such file", ErrNotFound)
	assert.Equal(t, err, Translate(err, OpOther))
	assert.ErrorIs(t, Translate(err, OpOther), ErrNotFound)
}

func TestTranslateTransport(t *testing.T) {
	err := Translate(errors.New("connection reset"), OpOther)
	assert.ErrorIs(t, err, ErrUnavailable)

	err = Translate(context.Canceled, OpOther)
	assert.ErrorIs(t, err, ErrUnavailable)
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "timed out" }
func (timeoutErr) Timeout() bool { return true }

func TestShouldRetry(t *testing.T) {
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(context.Canceled))
	assert.False(t, ShouldRetry(context.DeadlineExceeded))
	assert.True(t, ShouldRetry(timeoutErr{}))
	assert.False(t, ShouldRetry(errors.New("some error")))

	assert.True(t, ShouldRetry(RetryError(errors.New("flaky"))))
	assert.False(t, ShouldRetry(NoRetryError(timeoutErr{})))
}

func TestRetryErrorUnwrap(t *testing.T) {
	base := errors.New("base")
	require.ErrorIs(t, RetryError(base), base)
	require.ErrorIs(t, NoRetryError(base), base)
}

// RetryError must be safe to wrap a nil error: the result still
// formats and still asks for a retry.
func TestRetryErrorNil(t *testing.T) {
	err := RetryError(nil)
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
	assert.True(t, ShouldRetry(err))
}

func TestShouldRetryHTTP(t *testing.T) {
	assert.False(t, ShouldRetryHTTP(nil))
	for _, code := range []int{429, 500, 502, 503, 504, 509} {
		assert.True(t, ShouldRetryHTTP(&http.Response{StatusCode: code}), "code %d", code)
	}
	for _, code := range []int{200, 400, 404, 409, 412} {
		assert.False(t, ShouldRetryHTTP(&http.Response{StatusCode: code}), "code %d", code)
	}
}

func TestContextError(t *testing.T) {
	var err error
	assert.False(t, ContextError(context.Background(), &err))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, ContextError(ctx, &err))
	assert.ErrorIs(t, err, context.Canceled)
}
