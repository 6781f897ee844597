package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

var (
	// ErrCanceled indicates that the caller's context ended the download.
	ErrCanceled = errors.New("download canceled")
	// ErrInvalidRequest indicates a request that can never succeed as given.
	ErrInvalidRequest = errors.New("invalid download request")
)

var (
	errIdleTimeout     = errors.New("idle timeout")
	errDurationReached = errors.New("max duration reached")
)

type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindConnection
	KindHTTPStatus
	KindInvalidURL
	KindFilesystem
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindHTTPStatus:
		return "http-status"
	case KindInvalidURL:
		return "invalid-url"
	case KindFilesystem:
		return "filesystem"
	case KindCanceled:
		return "canceled"
	default:
		return "other"
	}
}

type FetchError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("%s: server returned %d %s", e.Kind, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed: timeouts,
// dropped connections, 429 and 5xx.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindHTTPStatus:
		return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
	}
	return false
}

func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable()
}

// KindOf returns the classification of err, KindOther when unclassified.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, ErrCanceled) {
		return KindCanceled
	}
	return KindOther
}

func statusError(code int) *FetchError {
	return &FetchError{Kind: KindHTTPStatus, StatusCode: code, Err: fmt.Errorf("unexpected status code: %d", code)}
}

func canceledError(cause error) *FetchError {
	return &FetchError{Kind: KindCanceled, Err: fmt.Errorf("%w: %w", ErrCanceled, cause)}
}

func filesystemError(action string, err error) *FetchError {
	return &FetchError{Kind: KindFilesystem, Err: fmt.Errorf("%s: %w", action, err)}
}

// classifyNetworkError maps a transport or body read error. parent is the
// caller's context, attempt the per-attempt context carrying our own causes.
func classifyNetworkError(parent, attempt context.Context, err error) *FetchError {
	if parent.Err() != nil {
		return canceledError(parent.Err())
	}
	if errors.Is(context.Cause(attempt), errIdleTimeout) {
		return &FetchError{Kind: KindTimeout, Err: fmt.Errorf("no data received in time: %w", err)}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var urlErr *url.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.As(err, &opErr),
		errors.As(err, &urlErr):
		return &FetchError{Kind: KindConnection, Err: err}
	}
	return &FetchError{Kind: KindOther, Err: err}
}
