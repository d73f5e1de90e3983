package internal

import (
	"context"

	"github.com/go-urlfetch/urlfetch/internal/model"
)

// bind fills method and url into a copy of req, so the caller's request
// template can be reused across calls.
func bind(method, url string, req *model.Request) *model.Request {
	var r model.Request
	if req != nil {
		r = *req
	}
	r.Method = method
	r.URL = url
	return &r
}

// Get issues a GET request to url. req carries the optional extras and
// may be nil.
func (c *Client) Get(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("GET", url, req))
}

func (c *Client) Post(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("POST", url, req))
}

func (c *Client) Put(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("PUT", url, req))
}

func (c *Client) Delete(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("DELETE", url, req))
}

func (c *Client) Head(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("HEAD", url, req))
}

func (c *Client) Options(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("OPTIONS", url, req))
}

func (c *Client) Trace(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("TRACE", url, req))
}

func (c *Client) Patch(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return c.CtxDo(ctx, bind("PATCH", url, req))
}

// Fetch picks the method from the request body: POST when data or files
// are present, GET otherwise.
func (c *Client) Fetch(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	method := "GET"
	if req != nil && (req.Data != nil || len(req.Files) > 0) {
		method = "POST"
	}
	return c.CtxDo(ctx, bind(method, url, req))
}
