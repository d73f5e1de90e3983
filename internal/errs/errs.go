// Package errs holds the error values returned across the library.
// Every failure a caller may want to branch on wraps one of these
// sentinels, so errors.Is works through the whole chain.
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrInvalidMethod is returned before any network activity when a
	// request names a method outside the supported set.
	ErrInvalidMethod = errors.New("invalid request method")

	// ErrURL is returned for URLs that cannot be parsed or lack a host.
	ErrURL = errors.New("invalid url")

	// ErrConnection covers dial, write and read failures below HTTP, and
	// malformed responses.
	ErrConnection = errors.New("connection error")

	// ErrTimeout is an expired deadline on connect, read or write.
	ErrTimeout = errors.New("request timed out")

	// ErrContentLimitExceeded reports a response larger than the
	// configured length limit, declared or discovered mid-stream.
	ErrContentLimitExceeded = errors.New("content length limit exceeded")

	// ErrContentDecoding reports an unknown content-encoding, a corrupt
	// compressed stream, or a body that fails to parse as JSON.
	ErrContentDecoding = errors.New("content decoding failed")

	// ErrTooManyRedirects means the redirect chain outgrew max_redirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrFileUpload reports an upload whose filename cannot be determined
	// or whose content cannot be read.
	ErrFileUpload = errors.New("file upload failed")
)

// Wrap ties err to one of the sentinels above, keeping both matchable
// with errors.Is.
func Wrap(kind, err error) error {
	if err == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Wrapf is Wrap with a formatted detail message instead of a cause.
func Wrapf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}

// Network classifies a transport-level error, separating timeouts from
// other connection failures.
func Network(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrTimeout) {
		return err // already classified
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Wrap(ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrTimeout, err)
	}
	return Wrap(ErrConnection, err)
}
