// Package urlfetch is an HTTP client library that speaks HTTP/1.x over
// its own transport. It covers the everyday surface: query parameters,
// form and multipart bodies, proxies with no_proxy rules, redirects
// with history, lazily decoded responses (gzip, deflate, legacy
// charsets, JSON) and cookie-keeping sessions.
//
// The one-call entry points use [DefaultClient]:
//
//	resp, err := urlfetch.Get(ctx, "http://example.com/", nil)
//
// A [Client] value carries defaults that individual [Request] values
// may override.
package urlfetch

import (
	"context"
	"io"
	"net/http"

	"github.com/go-urlfetch/urlfetch/internal"
	"github.com/go-urlfetch/urlfetch/internal/form"
	"github.com/go-urlfetch/urlfetch/internal/model"
)

const Version = model.Version

type Header = http.Header
type Client = internal.Client
type Session = internal.Session
type Middleware = internal.Middleware
type Handler = internal.Handler
type Dialer = internal.Dialer

type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response
type Link = model.Link
type File = model.File
type BasicAuth = model.BasicAuth

// DefaultClient serves the package-level calls. Programs that need
// their own defaults build a [Client] instead.
var DefaultClient = &Client{}

// Do performs req on [DefaultClient] with a background context.
func Do(req *Request) (*Response, error) {
	return DefaultClient.Do(req)
}

// CtxDo performs req on [DefaultClient].
func CtxDo(ctx context.Context, req *Request) (*Response, error) {
	return DefaultClient.CtxDo(ctx, req)
}

// Get issues a GET to url on [DefaultClient]. req carries the optional
// extras and may be nil.
func Get(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Get(ctx, url, req)
}

func Post(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Post(ctx, url, req)
}

func Put(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Put(ctx, url, req)
}

func Delete(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Delete(ctx, url, req)
}

func Head(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Head(ctx, url, req)
}

func Options(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Options(ctx, url, req)
}

func Trace(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Trace(ctx, url, req)
}

func Patch(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Patch(ctx, url, req)
}

// Fetch issues a POST when req carries data or files and a GET
// otherwise, on [DefaultClient].
func Fetch(ctx context.Context, url string, req *Request) (*Response, error) {
	return DefaultClient.Fetch(ctx, url, req)
}

// NewSession builds a [Session] on [DefaultClient]. Initial headers and
// cookies may be nil; auth becomes a persistent Authorization header.
func NewSession(headers, cookies map[string]string, auth *BasicAuth) *Session {
	return internal.NewSession(DefaultClient, headers, cookies, auth)
}

// NewSessionOn builds a [Session] on a specific client.
func NewSessionOn(c *Client, headers, cookies map[string]string, auth *BasicAuth) *Session {
	return internal.NewSession(c, headers, cookies, auth)
}

// FileBytes names an upload backed by a byte slice.
func FileBytes(name string, content []byte) File {
	return form.FileBytes(name, content)
}

// FileString names an upload backed by a string.
func FileString(name, content string) File {
	return form.FileString(name, content)
}

// FileReader names an upload drained from r when the request is built.
func FileReader(name string, r io.Reader) File {
	return form.FileReader(name, r)
}
