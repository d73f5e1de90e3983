package urlfetch

import "github.com/go-urlfetch/urlfetch/internal/errs"

// The sentinel errors below classify everything this library returns.
// Wrapped causes stay reachable, so both errors.Is(err, ErrTimeout) and
// inspection of the underlying net error work.
var (
	ErrInvalidMethod        = errs.ErrInvalidMethod
	ErrURL                  = errs.ErrURL
	ErrConnection           = errs.ErrConnection
	ErrTimeout              = errs.ErrTimeout
	ErrContentLimitExceeded = errs.ErrContentLimitExceeded
	ErrContentDecoding      = errs.ErrContentDecoding
	ErrTooManyRedirects     = errs.ErrTooManyRedirects
	ErrFileUpload           = errs.ErrFileUpload
)
