package transport

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/go-urlfetch/urlfetch/internal/errs"
	"github.com/go-urlfetch/urlfetch/internal/model"
	"github.com/go-urlfetch/urlfetch/internal/transport/chunked"
)

// HTTP1 speaks HTTP/1.1 on the request side and accepts any HTTP/1.x
// response. One request per connection, no keep-alive.
type HTTP1 struct{}

type bodyCloser struct {
	io.Reader
	close func() error
}

func (c bodyCloser) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

func (t HTTP1) Write(ctx context.Context, w io.Writer, r *model.PreparedRequest) error {
	body, err := r.GetBody()
	if err != nil {
		return err
	}
	if err := t.writeHeader(w, r); err != nil {
		if body != nil {
			body.Close()
		}
		return err
	}
	if body == nil {
		return nil
	}
	defer body.Close()
	if _, err := io.Copy(w, body); err != nil {
		return errs.Network(err)
	}
	return nil
}

func (t HTTP1) writeHeader(w io.Writer, r *model.PreparedRequest) error {
	header := bufio.NewWriter(w)
	header.WriteString(r.Method)
	header.WriteByte(' ')
	header.WriteString(r.RequestTarget())
	header.WriteString(" HTTP/1.1\r\n")
	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	}
	// sorted for a stable wire image, like net/http does
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			header.WriteString("\r\n")
		}
	}
	header.WriteString("\r\n")
	if err := header.Flush(); err != nil {
		return errs.Network(err)
	}
	return nil
}

func (t HTTP1) Read(ctx context.Context, r io.Reader, req *model.PreparedRequest, resp *model.Response) error {
	closer := func(body io.Reader) io.ReadCloser {
		return bodyCloser{Reader: body}
	}
	if c, ok := r.(io.Closer); ok {
		closer = func(body io.Reader) io.ReadCloser {
			return bodyCloser{Reader: body, close: c.Close}
		}
	}

	tp := textproto.NewReader(bufio.NewReader(r))
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errs.Network(err)
	}
	proto, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return errs.Wrapf(errs.ErrConnection, "malformed status line %q", line)
	}
	resp.Version = httpVersion(proto)
	code, reason, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	status, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 {
		return errs.Wrapf(errs.ErrConnection, "malformed status code %q", code)
	}
	resp.Status = status
	resp.Reason = reason

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errs.Network(err)
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, req, resp, closer)
}

func httpVersion(proto string) int {
	switch proto {
	case "HTTP/1.1":
		return 11
	case "HTTP/1.0":
		return 10
	case "HTTP/0.9":
		return 9
	}
	if major, minor, ok := http.ParseHTTPVersion(proto); ok {
		return major*10 + minor
	}
	return 11
}

func (t HTTP1) readTransfer(r io.Reader, req *model.PreparedRequest, resp *model.Response, closer func(io.Reader) io.ReadCloser) error {
	contentLens := resp.Header["Content-Length"]
	if len(contentLens) > 1 {
		// harden against response smuggling, same rule as net/http:
		// duplicates are fine only when they agree
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return errs.Wrapf(errs.ErrConnection, "response carries conflicting Content-Length headers %q", contentLens)
			}
		}
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)
		contentLens = resp.Header["Content-Length"]
	}
	length := int64(-1)
	if len(contentLens) > 0 {
		if n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63); err == nil {
			length = int64(n)
		}
	}
	resp.ContentLength = length

	switch {
	case req.Method == "HEAD", resp.Status == 204, resp.Status == 304, resp.Status/100 == 1:
		// no body follows no matter what the headers claim
		closer(nil).Close()
		resp.Raw = http.NoBody
	case strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked"):
		resp.Raw = closer(chunked.NewReader(r))
	case length > 0:
		resp.Raw = closer(io.LimitReader(r, length))
	case length == 0:
		closer(nil).Close()
		resp.Raw = http.NoBody
	default:
		// no framing at all, the body runs until the peer closes
		resp.Raw = closer(r)
	}
	return nil
}
