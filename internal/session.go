package internal

import (
	"context"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"sync"

	"github.com/go-urlfetch/urlfetch/internal/model"
)

// Session keeps headers and cookies across requests. Cookies set by
// responses are folded back in, so a login followed by further calls
// works the way a browser tab would. Sessions are safe for concurrent
// use; the cookie jar is a flat name -> value map with no domain or
// path scoping.
type Session struct {
	client *Client

	mu      sync.Mutex
	headers map[string]string
	cookies map[string]string
}

// NewSession builds a session on top of c. Initial headers and cookies
// may be nil; auth, when given, becomes a persistent Authorization
// header.
func NewSession(c *Client, headers, cookies map[string]string, auth *model.BasicAuth) *Session {
	if c == nil {
		c = &Client{}
	}
	s := &Session{
		client:  c,
		headers: make(map[string]string),
		cookies: make(map[string]string),
	}
	for k, v := range headers {
		s.PutHeader(k, v)
	}
	for k, v := range cookies {
		s.PutCookie(k, v)
	}
	if auth != nil {
		s.PutHeader("Authorization", auth.HeaderValue())
	}
	return s
}

// PutHeader stores a persistent header under its canonical spelling.
func (s *Session) PutHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headers[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// PopHeader removes a persistent header and returns its last value.
func (s *Session) PopHeader(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := textproto.CanonicalMIMEHeaderKey(key)
	v := s.headers[k]
	delete(s.headers, k)
	return v
}

func (s *Session) PutCookie(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies[name] = value
}

func (s *Session) PopCookie(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.cookies[name]
	delete(s.cookies, name)
	return v
}

// CookieString renders the jar as a Cookie header value, names sorted.
func (s *Session) CookieString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cookieString(s.cookies)
}

func cookieString(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + cookies[name]
	}
	return strings.Join(pairs, "; ")
}

// SetCookieString replaces the whole jar with the name=value pairs
// found in a Cookie header value. Fragments without a '=' are skipped.
func (s *Session) SetCookieString(value string) {
	cookies := make(map[string]string)
	for _, pair := range strings.Split(value, "; ") {
		if name, v, ok := strings.Cut(pair, "="); ok {
			cookies[name] = v
		}
	}
	s.mu.Lock()
	s.cookies = cookies
	s.mu.Unlock()
}

// Snapshot returns copies of the current headers and cookies.
func (s *Session) Snapshot() (headers, cookies map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	headers = make(map[string]string, len(s.headers))
	for k, v := range s.headers {
		headers[k] = v
	}
	cookies = make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		cookies[k] = v
	}
	return headers, cookies
}

// merged builds the header set for one request: session headers first,
// then the jar as a Cookie header, then the caller's own headers on
// top, keeping their spelling.
func (s *Session) merged(extra http.Header) http.Header {
	s.mu.Lock()
	header := make(http.Header, len(s.headers)+len(extra)+1)
	for k, v := range s.headers {
		header[k] = []string{v}
	}
	if cs := cookieString(s.cookies); cs != "" {
		header["Cookie"] = []string{cs}
	}
	s.mu.Unlock()
	for k, vs := range extra {
		header[k] = append([]string(nil), vs...)
	}
	return header
}

// Request performs req with the session's headers and cookies applied,
// then folds cookies from the response back into the jar.
func (s *Session) Request(ctx context.Context, req *model.Request) (*model.Response, error) {
	r := *req
	r.Header = s.merged(req.Header)
	resp, err := s.client.CtxDo(ctx, &r)
	if err != nil {
		return nil, err
	}
	for name, value := range resp.Cookies() {
		s.PutCookie(name, value)
	}
	return resp, nil
}

func (s *Session) Get(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("GET", url, req))
}

func (s *Session) Post(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("POST", url, req))
}

func (s *Session) Put(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("PUT", url, req))
}

func (s *Session) Delete(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("DELETE", url, req))
}

func (s *Session) Head(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("HEAD", url, req))
}

func (s *Session) Options(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("OPTIONS", url, req))
}

func (s *Session) Trace(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("TRACE", url, req))
}

func (s *Session) Patch(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	return s.Request(ctx, bind("PATCH", url, req))
}

// Fetch mirrors [Client.Fetch] with session state applied.
func (s *Session) Fetch(ctx context.Context, url string, req *model.Request) (*model.Response, error) {
	method := "GET"
	if req != nil && (req.Data != nil || len(req.Files) > 0) {
		method = "POST"
	}
	return s.Request(ctx, bind(method, url, req))
}
