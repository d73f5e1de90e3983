package internal_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-urlfetch/urlfetch/internal"
	"github.com/go-urlfetch/urlfetch/internal/model"
)

// scriptedConn plays a canned response and records what the client
// wrote to it.
type scriptedConn struct {
	resp   *strings.Reader
	sent   bytes.Buffer
	closed bool
}

func (c *scriptedConn) Read(p []byte) (int, error)  { return c.resp.Read(p) }
func (c *scriptedConn) Write(p []byte) (int, error) { return c.sent.Write(p) }
func (c *scriptedConn) Close() error                { c.closed = true; return nil }

// scriptDialer hands out one scripted connection per dial, in order,
// and keeps them for inspection.
type scriptDialer struct {
	responses []string

	mu      sync.Mutex
	conns   []*scriptedConn
	targets []string
}

// Dial implements internal.Dialer.
func (d *scriptDialer) Dial(ctx context.Context, r *model.PreparedRequest) (io.ReadWriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := len(d.conns)
	if i >= len(d.responses) {
		return nil, fmt.Errorf("no scripted response for dial %d", i)
	}
	conn := &scriptedConn{resp: strings.NewReader(d.responses[i])}
	d.conns = append(d.conns, conn)
	d.targets = append(d.targets, r.Target)
	return conn, nil
}

func scripted(c *internal.Client, responses ...string) *scriptDialer {
	d := &scriptDialer{responses: responses}
	c.UseDialer(func(internal.Dialer) internal.Dialer { return d })
	return d
}

const emptyOK = "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"

// sendSingleRequest performs req against a canned 200 and returns the
// bytes that went on the wire.
func sendSingleRequest(t *testing.T, req *model.Request) string {
	t.Helper()
	c := &internal.Client{}
	d := scripted(c, emptyOK)
	resp, err := c.CtxDo(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, resp.Close())
	return d.conns[0].sent.String()
}
