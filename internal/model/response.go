package model

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/go-urlfetch/urlfetch/internal/errs"
)

// Link is one entry of a parsed Link header.
type Link struct {
	URL    string
	Params map[string]string
}

// Response is a received HTTP response. The body is read lazily: nothing
// past the headers is consumed until Read or Body is called, and Body
// materializes the decoded payload exactly once.
type Response struct {
	Status  int
	Reason  string
	Version int // 11 for HTTP/1.1, 10 for HTTP/1.0, 9 for HTTP/0.9
	Header  http.Header

	// Raw is the transport-level body: connection-backed, already
	// length-bounded or chunk-decoded, not yet decompressed. Closing it
	// releases the connection.
	Raw io.ReadCloser

	ContentLength int64 // declared, -1 when unknown
	LengthLimit   int64 // cap on decoded bytes, 0 means unlimited

	URL        string        // effective URL this response came from
	ReqHeaders http.Header   // request headers as sent
	History    []*Response   // drained redirect responses, oldest first
	TotalTime  time.Duration // elapsed since the first attempt started

	decoded  io.Reader
	decoding bool
	received int64
	loaded   bool
	body     []byte
	bodyErr  error
	cursor   *bytes.Reader
	closed   bool
}

// stream wires the decompression layer on first use.
func (r *Response) stream() (io.Reader, error) {
	if r.decoded != nil {
		return r.decoded, nil
	}
	raw := io.Reader(r.Raw)
	if raw == nil {
		raw = http.NoBody
	}
	switch ce := r.Header.Get("Content-Encoding"); ce {
	case "":
		r.decoded = raw
	case "gzip":
		gz, err := gzip.NewReader(raw)
		if err != nil {
			if err == io.EOF { // empty body, nothing to decode
				r.decoded = http.NoBody
				break
			}
			return nil, errs.Wrap(errs.ErrContentDecoding, err)
		}
		r.decoding = true
		r.decoded = gz
	case "deflate":
		br := bufio.NewReader(raw)
		head, _ := br.Peek(2)
		if len(head) == 0 {
			r.decoded = http.NoBody
			break
		}
		r.decoding = true
		if len(head) == 2 && head[0]&0x0f == 8 && head[0]>>4 <= 7 &&
			(uint16(head[0])<<8|uint16(head[1]))%31 == 0 {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, errs.Wrap(errs.ErrContentDecoding, err)
			}
			r.decoded = zr
		} else {
			// no zlib header, the server sent raw deflate
			r.decoded = flate.NewReader(br)
		}
	default:
		return nil, errs.Wrapf(errs.ErrContentDecoding, "unknown content encoding %q", ce)
	}
	return r.decoded, nil
}

func (r *Response) readStream(p []byte) (int, error) {
	stream, err := r.stream()
	if err != nil {
		return 0, err
	}
	n, err := stream.Read(p)
	r.received += int64(n)
	if r.LengthLimit > 0 && r.received > r.LengthLimit {
		r.Close()
		return n, errs.Wrapf(errs.ErrContentLimitExceeded, "limit is %d", r.LengthLimit)
	}
	if err != nil && err != io.EOF {
		var ne net.Error
		if r.decoding && !errors.As(err, &ne) {
			err = errs.Wrap(errs.ErrContentDecoding, err)
		} else {
			err = errs.Network(err)
		}
	}
	return n, err
}

// Read streams the decoded body. After Body has materialized it, Read
// serves the cached bytes instead.
func (r *Response) Read(p []byte) (int, error) {
	if r.loaded {
		if r.bodyErr != nil {
			return 0, r.bodyErr
		}
		if r.cursor == nil {
			r.cursor = bytes.NewReader(r.body)
		}
		return r.cursor.Read(p)
	}
	return r.readStream(p)
}

// Body reads, decompresses and caches the whole payload. The first call
// does the work and closes the connection; later calls return the cache,
// error included.
func (r *Response) Body() ([]byte, error) {
	if r.loaded {
		return r.body, r.bodyErr
	}
	r.loaded = true
	if r.LengthLimit > 0 && r.ContentLength > r.LengthLimit {
		r.bodyErr = errs.Wrapf(errs.ErrContentLimitExceeded,
			"declared length %d over limit %d", r.ContentLength, r.LengthLimit)
	} else {
		buf := make([]byte, 8192)
		for {
			n, err := r.readStream(buf)
			r.body = append(r.body, buf[:n]...)
			if err == io.EOF {
				break
			}
			if err != nil {
				r.bodyErr = err
				break
			}
		}
	}
	r.Close()
	return r.body, r.bodyErr
}

var legacyCharsets = []string{"gb2312", "gbk", "gb18030", "big5"}

func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	for _, name := range legacyCharsets {
		enc, err := htmlindex.Get(name)
		if err != nil {
			continue
		}
		out, err := enc.NewDecoder().Bytes(b)
		// the decoders substitute U+FFFD instead of failing, treat a
		// substitution as a miss since the input had none
		if err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
			return string(out)
		}
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// Text decodes Body to a string, trying utf-8 first, then the legacy
// chinese codecs, then lossy utf-8. Charset trouble never fails a call;
// only body errors do.
func (r *Response) Text() (string, error) {
	b, err := r.Body()
	if err != nil {
		return "", err
	}
	return decodeText(b), nil
}

// JSON parses the body, reporting malformed documents as a decoding
// error so callers can branch with errors.Is.
func (r *Response) JSON() (interface{}, error) {
	t, err := r.Text()
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(t) {
		return nil, errs.Wrapf(errs.ErrContentDecoding, "invalid json body")
	}
	return gjson.Parse(t).Value(), nil
}

// Cookies collects name=value pairs from every Set-Cookie header.
// Attributes like Path and Expires are dropped.
func (r *Response) Cookies() map[string]string {
	cookies := map[string]string{}
	for _, c := range (&http.Response{Header: r.Header}).Cookies() {
		cookies[c.Name] = c.Value
	}
	return cookies
}

// CookieString renders the response cookies as "k1=v1; k2=v2", sorted
// by name.
func (r *Response) CookieString() string {
	cookies := r.Cookies()
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + cookies[name]
	}
	return strings.Join(parts, "; ")
}

// Links parses the Link header into URL + parameter entries. A parameter
// without a plain k=v shape ends that entry's parameter list.
func (r *Response) Links() []Link {
	raw := strings.Join(r.Header.Values("Link"), ", ")
	if raw == "" {
		return nil
	}
	var links []Link
	for _, chunk := range strings.Split(raw, ",") {
		urlpart, params, _ := strings.Cut(chunk, ";")
		link := Link{
			URL:    strings.Trim(urlpart, "<> '\""),
			Params: map[string]string{},
		}
		for _, param := range strings.Split(params, ";") {
			kv := strings.Split(param, "=")
			if len(kv) != 2 {
				break
			}
			link.Params[strings.Trim(kv[0], " '\"")] = strings.Trim(kv[1], " '\"")
		}
		links = append(links, link)
	}
	return links
}

// Close releases the connection. A body already materialized by Body
// stays readable; double close is a no-op.
func (r *Response) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.Raw != nil {
		return r.Raw.Close()
	}
	return nil
}
