package internal_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-urlfetch/urlfetch/internal"
	"github.com/go-urlfetch/urlfetch/internal/errs"
	"github.com/go-urlfetch/urlfetch/internal/model"
)

func redirectTo(location string) string {
	return "HTTP/1.1 302 Found\r\nLocation: " + location + "\r\nContent-Length: 5\r\n\r\nmoved"
}

func TestRedirectFollowed(t *testing.T) {
	c := &internal.Client{MaxRedirects: 3}
	d := scripted(c,
		redirectTo("http://www.example.com/next"),
		"HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\ndone",
	)
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/start"})
	require.NoError(t, err)

	body, err := resp.Body()
	require.NoError(t, err)
	assert.Equal(t, "done", string(body))
	assert.Equal(t, "http://www.example.com/next", resp.URL)

	require.Len(t, resp.History, 1)
	assert.Equal(t, 302, resp.History[0].Status)
	assert.Equal(t, "http://www.example.com/start", resp.History[0].URL)
	// the hop's payload was drained into its cache on the way
	hopBody, err := resp.History[0].Body()
	require.NoError(t, err)
	assert.Equal(t, "moved", string(hopBody))

	sent := d.conns[1].sent.String()
	assert.True(t, strings.HasPrefix(sent, "GET /next HTTP/1.1\r\n"))
	assert.Contains(t, sent, "Referer: http://www.example.com/start\r\n")
}

func TestRedirectNotFollowedByDefault(t *testing.T) {
	c := &internal.Client{}
	scripted(c, redirectTo("http://www.example.com/next"))
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/start"})
	require.NoError(t, err)
	assert.Equal(t, 302, resp.Status)
	assert.Empty(t, resp.History)
	assert.Equal(t, "http://www.example.com/next", resp.Header.Get("Location"))
}

func TestRedirectLimitExceeded(t *testing.T) {
	c := &internal.Client{MaxRedirects: 1}
	scripted(c,
		redirectTo("http://www.example.com/a"),
		redirectTo("http://www.example.com/b"),
	)
	_, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/start"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTooManyRedirects))
}

func TestRequestMaxRedirectsOverridesClient(t *testing.T) {
	c := &internal.Client{}
	scripted(c,
		redirectTo("http://www.example.com/next"),
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	resp, err := c.CtxDo(context.Background(), &model.Request{
		Method: "GET", URL: "http://www.example.com/start", MaxRedirects: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Len(t, resp.History, 1)
}

func TestNegativeMaxRedirectsDisablesFollowing(t *testing.T) {
	c := &internal.Client{MaxRedirects: 5}
	scripted(c, redirectTo("http://www.example.com/next"))
	resp, err := c.CtxDo(context.Background(), &model.Request{
		Method: "GET", URL: "http://www.example.com/start", MaxRedirects: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, 302, resp.Status)
}

func Test303ConvertsPostToGet(t *testing.T) {
	c := &internal.Client{MaxRedirects: 2}
	d := scripted(c,
		"HTTP/1.1 303 See Other\r\nLocation: /after\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	_, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST",
		URL:    "http://www.example.com/form",
		Data:   map[string]string{"a": "1"},
	})
	require.NoError(t, err)

	first := d.conns[0].sent.String()
	assert.True(t, strings.HasPrefix(first, "POST /form HTTP/1.1\r\n"))
	assert.Contains(t, first, "a=1")

	second := d.conns[1].sent.String()
	assert.True(t, strings.HasPrefix(second, "GET /after HTTP/1.1\r\n"), second)
	assert.NotContains(t, second, "Content-Length:")
	assert.NotContains(t, second, "Content-Type:")
}

func Test307KeepsMethodAndBody(t *testing.T) {
	c := &internal.Client{MaxRedirects: 2}
	d := scripted(c,
		"HTTP/1.1 307 Temporary Redirect\r\nLocation: /retry\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	_, err := c.CtxDo(context.Background(), &model.Request{
		Method: "POST",
		URL:    "http://www.example.com/form",
		Data:   "a=1",
	})
	require.NoError(t, err)

	second := d.conns[1].sent.String()
	assert.True(t, strings.HasPrefix(second, "POST /retry HTTP/1.1\r\n"), second)
	assert.Contains(t, second, "Content-Length: 3\r\n")
	assert.True(t, strings.HasSuffix(second, "\r\n\r\na=1"))
}

func TestRedirectRelativeLocation(t *testing.T) {
	c := &internal.Client{MaxRedirects: 2}
	d := scripted(c,
		"HTTP/1.1 301 Moved Permanently\r\nLocation: /abs/path\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/deep/dir"})
	require.NoError(t, err)
	assert.Equal(t, "http://www.example.com/abs/path", resp.URL)
	assert.True(t, strings.HasPrefix(d.conns[1].sent.String(), "GET /abs/path HTTP/1.1\r\n"))
}

func TestRedirectSchemeRelativeLocation(t *testing.T) {
	c := &internal.Client{MaxRedirects: 2}
	d := scripted(c,
		"HTTP/1.1 302 Found\r\nLocation: //other.example/p\r\nContent-Length: 0\r\n\r\n",
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/start"})
	require.NoError(t, err)

	assert.Equal(t, "http://other.example/p", resp.URL)
	assert.Equal(t, []string{"www.example.com:80", "other.example:80"}, d.targets)
	assert.Contains(t, d.conns[1].sent.String(), "Host: other.example\r\n")
}

func TestRedirectWithoutLocationNotFollowed(t *testing.T) {
	c := &internal.Client{MaxRedirects: 3}
	scripted(c, "HTTP/1.1 301 Moved Permanently\r\nContent-Length: 0\r\n\r\n")
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, 301, resp.Status)
	assert.Empty(t, resp.History)
}

func TestRedirectChainTiming(t *testing.T) {
	c := &internal.Client{MaxRedirects: 2}
	scripted(c,
		redirectTo("http://www.example.com/next"),
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n",
	)
	resp, err := c.CtxDo(context.Background(), &model.Request{Method: "GET", URL: "http://www.example.com/start"})
	require.NoError(t, err)
	// one clock spans the whole chain
	assert.GreaterOrEqual(t, resp.TotalTime, resp.History[0].TotalTime)
}
