package model

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/go-urlfetch/urlfetch/internal/errs"
	"github.com/go-urlfetch/urlfetch/internal/form"
	"github.com/go-urlfetch/urlfetch/internal/proxy"
	"github.com/go-urlfetch/urlfetch/internal/ua"
	"github.com/go-urlfetch/urlfetch/internal/urlx"
)

var allowedMethods = map[string]bool{
	"GET": true, "HEAD": true, "PUT": true, "DELETE": true,
	"OPTIONS": true, "POST": true, "TRACE": true, "PATCH": true,
}

// PreparedRequest is one attempt ready for the wire: URL resolved, proxy
// decided, headers complete, body materialized behind GetBody so redirect
// replays see the same bytes.
type PreparedRequest struct {
	*Request

	Method    string
	U         *urlx.URL
	URLString string // effective URL, params folded in
	Target    string // host:port actually dialed
	ViaProxy  bool

	GetBody       func() (io.ReadCloser, error)
	Header        http.Header
	HeaderHost    string
	ContentLength int64

	Timeout       time.Duration
	LengthLimit   int64
	MaxRedirects  int
	SourceAddress string
}

// Prepare runs the build steps in their fixed order: method check, query
// params, URL parse, default headers, proxy resolution, auth, body
// encoding, then user header overrides.
func (r *Request) Prepare(d Defaults) (*PreparedRequest, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = "GET"
	}
	if !allowedMethods[method] {
		return nil, errs.Wrapf(errs.ErrInvalidMethod, "%q", r.Method)
	}

	target := r.URL
	switch p := r.Params.(type) {
	case nil:
	case string:
		if p != "" {
			if strings.Contains(target, "?") {
				target += "&" + p
			} else {
				target += "?" + p
			}
		}
	default:
		vals, ok := form.Values(p)
		if !ok {
			return nil, fmt.Errorf("unsupported params type: %T", r.Params)
		}
		target = urlx.Concat(target, vals, true)
	}

	u, err := urlx.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, errs.Wrapf(errs.ErrURL, "empty host in %q", target)
	}

	agent := d.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}
	if r.RandomUA {
		if sampled, err := ua.Random(d.UserAgentFile); err == nil && sampled != "" {
			agent = sampled
		}
	}
	headers := http.Header{
		"Accept":          {"*/*"},
		"Accept-Encoding": {"gzip, deflate, compress, identity, *"},
		"User-Agent":      {agent},
	}

	pr := &PreparedRequest{
		Request: r,

		Method:    method,
		U:         u,
		URLString: target,

		Timeout:       r.Timeout,
		LengthLimit:   r.LengthLimit,
		MaxRedirects:  r.MaxRedirects,
		SourceAddress: r.SourceAddress,
	}
	if pr.Timeout == 0 {
		pr.Timeout = d.Timeout
	}
	if pr.LengthLimit == 0 {
		pr.LengthLimit = d.LengthLimit
	}
	if pr.MaxRedirects == 0 {
		pr.MaxRedirects = d.MaxRedirects
	}
	if pr.MaxRedirects < 0 {
		pr.MaxRedirects = 0
	}
	if pr.SourceAddress == "" {
		pr.SourceAddress = d.SourceAddress
	}

	trustEnv := !r.DisableEnvProxy && !d.DisableEnvProxy
	proxies := r.Proxies
	if proxies == nil {
		proxies = d.Proxies
	}
	noProxy := r.NoProxy
	if noProxy == nil {
		noProxy = d.NoProxy
	}
	pxy, err := proxy.Resolve(u.Scheme, u.Host, proxies, trustEnv, noProxy)
	if err != nil {
		return nil, err
	}
	if pxy != nil {
		pr.ViaProxy = true
		pr.Target = pxy.Addr(u.Scheme)
		if pxy.Authorization != "" {
			headers.Set("Proxy-Authorization", pxy.Authorization)
		}
	} else {
		pr.Target = u.Addr()
	}

	auth := r.Auth
	if auth == nil && u.Username != "" && u.Password != "" {
		auth = &BasicAuth{Username: u.Username, Password: u.Password}
	}
	if auth != nil {
		headers.Set("Authorization", auth.HeaderValue())
	}

	var body []byte
	haveBody := false
	if len(r.Files) > 0 {
		vals, ok := form.Values(r.Data)
		if !ok {
			return nil, fmt.Errorf("unsupported data type with files: %T", r.Data)
		}
		ct, encoded, err := form.EncodeMultipart(vals, r.Files)
		if err != nil {
			return nil, err
		}
		headers.Set("Content-Type", ct)
		body, haveBody = encoded, true
	} else {
		switch data := r.Data.(type) {
		case nil:
		case string:
			body, haveBody = []byte(data), true
			headers.Set("Content-Type", "application/x-www-form-urlencoded")
		case []byte:
			body, haveBody = data, true
			headers.Set("Content-Type", "application/x-www-form-urlencoded")
		case io.Reader:
			// drained once here so redirect replays reuse the same bytes
			b, err := io.ReadAll(data)
			if err != nil {
				return nil, fmt.Errorf("reading request data: %w", err)
			}
			body, haveBody = b, true
		default:
			vals, ok := form.Values(data)
			if !ok {
				return nil, fmt.Errorf("unsupported data type: %T", r.Data)
			}
			body, haveBody = []byte(form.EncodeValues(vals)), true
			headers.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	// user defined headers have the last word, keeping their spelling
	host := u.HTTPHost()
	cl := int64(-1)
	for k, vs := range r.Header {
		switch textproto.CanonicalMIMEHeaderKey(k) {
		case "Host":
			if len(vs) != 0 {
				host = vs[0]
			}
			continue
		case "Content-Length":
			if len(vs) != 0 {
				if v, err := strconv.ParseInt(vs[0], 10, 64); err == nil {
					cl = v
				}
			}
			continue
		}
		headers.Del(k)
		headers[k] = append([]string(nil), vs...)
	}
	if haveBody && cl == -1 {
		cl = int64(len(body))
	}

	pr.Header = headers
	pr.HeaderHost = host
	pr.ContentLength = cl
	pr.updateBody(body, haveBody)
	return pr, nil
}

// should only be called once at [Prepare]
func (r *PreparedRequest) updateBody(body []byte, have bool) {
	if !have {
		r.GetBody = func() (io.ReadCloser, error) { return nil, nil }
		return
	}
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}

// RequestTarget is what goes between the method and the protocol version
// on the request line: the absolute URL when talking to a proxy, the
// path otherwise.
func (r *PreparedRequest) RequestTarget() string {
	if r.ViaProxy {
		return r.U.Scheme + "://" + r.U.HTTPHost() + r.U.RequestURI()
	}
	if uri := r.U.RequestURI(); uri != "" {
		return uri
	}
	return "/"
}

// SentHeaders reconstructs the header set as it went on the wire, for
// [Response.ReqHeaders]. Content-Length is the transport's concern and
// is not part of it.
func (r *PreparedRequest) SentHeaders() http.Header {
	h := r.Header.Clone()
	h.Set("Host", r.HeaderHost)
	return h
}
