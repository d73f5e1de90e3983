package internal

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-urlfetch/urlfetch/internal/errs"
	"github.com/go-urlfetch/urlfetch/internal/model"
	"github.com/go-urlfetch/urlfetch/internal/transport"
	"github.com/go-urlfetch/urlfetch/internal/urlx"
)

// Handler performs one complete request, redirects included.
type Handler func(ctx context.Context, req *model.Request) (*model.Response, error)

// Middleware wraps a [Handler] with extra behavior. Middlewares
// registered with [Client.Use] see the request before preparation and
// the final response of the redirect chain.
type Middleware func(next Handler) Handler

// Dialer opens the connection a prepared request will be sent on.
type Dialer interface {
	Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error)
}

type netDialer struct {
	tls *tls.Config
}

func (d netDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	return transport.Dial(ctx, r, d.tls)
}

var wire transport.Transport = transport.HTTP1{}

var nopLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// Client issues requests. The zero value is usable; the exported fields
// are per-client defaults that individual requests may override.
type Client struct {
	// Timeout bounds each socket operation (dial, write, read), not
	// the request as a whole. Zero means no timeout.
	Timeout time.Duration
	// LengthLimit caps the decoded response size in bytes.
	LengthLimit int64
	// MaxRedirects is how many redirects to follow when the request
	// does not say. Zero means redirects are not followed.
	MaxRedirects int
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// UserAgentFile names a list of agent strings to pick from when a
	// request asks for a random one.
	UserAgentFile string
	Proxies       map[string]string
	NoProxy       []string
	// DisableEnvProxy stops http_proxy / https_proxy from being
	// consulted when no explicit proxy map is given.
	DisableEnvProxy bool
	// SourceAddress is the optional local ip:port to bind.
	SourceAddress string
	// TLSConfig is cloned for each https connection.
	TLSConfig *tls.Config
	// Logger receives debug output. Nil discards it.
	Logger logrus.FieldLogger

	middlewares []Middleware
	dialer      Dialer
}

// Use appends middlewares to the client. They run in registration
// order, outermost first.
func (c *Client) Use(mw ...Middleware) {
	c.middlewares = append(c.middlewares, mw...)
}

// UseDialer replaces the client's dialer with a wrapped one. The
// argument receives the dialer in effect at the time of the call.
func (c *Client) UseDialer(wrap func(Dialer) Dialer) {
	c.dialer = wrap(c.dial())
}

func (c *Client) dial() Dialer {
	if c.dialer != nil {
		return c.dialer
	}
	return netDialer{tls: c.TLSConfig}
}

func (c *Client) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return nopLogger
}

func (c *Client) defaults() model.Defaults {
	return model.Defaults{
		Timeout:         c.Timeout,
		LengthLimit:     c.LengthLimit,
		MaxRedirects:    c.MaxRedirects,
		UserAgent:       c.UserAgent,
		UserAgentFile:   c.UserAgentFile,
		Proxies:         c.Proxies,
		NoProxy:         c.NoProxy,
		DisableEnvProxy: c.DisableEnvProxy,
		SourceAddress:   c.SourceAddress,
	}
}

// Do performs req with a background context.
func (c *Client) Do(req *model.Request) (*model.Response, error) {
	return c.CtxDo(context.Background(), req)
}

// CtxDo performs req through the middleware chain, following redirects
// up to the effective limit.
func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	do := c.do
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		do = c.middlewares[i](do)
	}
	return do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *model.Request) (*model.Response, error) {
	start := time.Now()
	log := c.logger()

	cur := *req // the redirect chain rewrites it, the caller's copy stays intact
	var history []*model.Response
	for {
		pr, err := cur.Prepare(c.defaults())
		if err != nil {
			return nil, err
		}
		if pr.ViaProxy {
			log.Debugf("fetching %s %s via proxy %s", pr.Method, pr.URLString, pr.Target)
		} else {
			log.Debugf("fetching %s %s", pr.Method, pr.URLString)
		}

		resp, err := c.exchange(ctx, pr)
		if err != nil {
			return nil, err
		}
		resp.URL = pr.URLString
		resp.ReqHeaders = pr.SentHeaders()
		resp.TotalTime = time.Since(start)

		redirect := resp.Status == 301 || resp.Status == 302 || resp.Status == 303 || resp.Status == 307
		loc := resp.Header.Get("Location")
		if !redirect || loc == "" || pr.MaxRedirects == 0 {
			resp.History = history
			return resp, nil
		}

		// the redirect payload still counts against the length limit
		if _, err := resp.Body(); err != nil {
			return nil, err
		}
		history = append(history, resp)
		if len(history) > pr.MaxRedirects {
			return nil, errs.Wrapf(errs.ErrTooManyRedirects, "gave up after %d", pr.MaxRedirects)
		}

		if strings.HasPrefix(loc, "//") {
			// scheme-relative, keep the scheme we just used
			loc = pr.U.Scheme + ":" + loc
		} else {
			loc = urlx.Join(resp.URL, loc)
		}
		log.Debugf("redirect %d: %s -> %s", len(history), resp.URL, loc)

		if resp.Status != 307 {
			cur.Method = "GET"
			cur.Data = nil
			cur.Files = nil
		}
		header := cur.Header.Clone()
		if header == nil {
			header = make(http.Header)
		}
		header.Set("Referer", resp.URL)
		cur.Header = header
		cur.URL = loc
		cur.Params = nil // already baked into the previous URL
	}
}

func (c *Client) exchange(ctx context.Context, pr *model.PreparedRequest) (*model.Response, error) {
	conn, err := c.dial().Dial(ctx, pr)
	if err != nil {
		return nil, err
	}
	if err := wire.Write(ctx, conn, pr); err != nil {
		conn.Close()
		return nil, err
	}
	resp := &model.Response{}
	if err := wire.Read(ctx, conn, pr, resp); err != nil {
		conn.Close()
		return nil, err
	}
	resp.LengthLimit = pr.LengthLimit
	if pr.LengthLimit > 0 && resp.ContentLength > pr.LengthLimit {
		resp.Close()
		return nil, errs.Wrapf(errs.ErrContentLimitExceeded,
			"declared content length %d exceeds limit %d", resp.ContentLength, pr.LengthLimit)
	}
	return resp, nil
}
