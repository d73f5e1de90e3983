package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/go-urlfetch/urlfetch/internal/errs"
	"github.com/go-urlfetch/urlfetch/internal/model"
)

// deadlineConn re-arms the deadline before every Read and Write so the
// timeout budgets each socket operation, not the exchange as a whole.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

// Dial opens the connection for one prepared request: TCP to the target
// (the proxy when one is in play), then TLS whenever the request URL
// scheme is https, regardless of what is being dialed.
func Dial(ctx context.Context, r *model.PreparedRequest, tlsCfg *tls.Config) (io.ReadWriteCloser, error) {
	d := net.Dialer{Timeout: r.Timeout}
	if r.SourceAddress != "" {
		laddr, err := net.ResolveTCPAddr("tcp", r.SourceAddress)
		if err != nil {
			return nil, errs.Network(err)
		}
		d.LocalAddr = laddr
	}

	conn, err := d.DialContext(ctx, "tcp", r.Target)
	if err != nil {
		return nil, errs.Network(err)
	}
	if r.Timeout > 0 {
		conn = &deadlineConn{Conn: conn, timeout: r.Timeout}
	}

	if r.U.Scheme == "https" {
		config := tlsCfg.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		if config.ServerName == "" {
			config.ServerName = r.U.Host
		}
		c := tls.Client(conn, config)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, errs.Network(err)
		}
		return c, nil
	}
	return conn, nil
}
