// Package transport implements the HTTP/1.x wire exchange: writing a
// prepared request onto a connection and reading the response head and
// framed body back off it.
package transport

import (
	"context"
	"io"

	"github.com/go-urlfetch/urlfetch/internal/model"
)

type Transport interface {
	Write(ctx context.Context, w io.Writer, req *model.PreparedRequest) error
	Read(ctx context.Context, r io.Reader, req *model.PreparedRequest, resp *model.Response) error
}
