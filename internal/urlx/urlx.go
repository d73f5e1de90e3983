// Package urlx parses and manipulates URLs the way the rest of the
// library needs them: a missing scheme defaults to http, hostnames are
// IDNA-encoded and lowercased, and a port that fails to parse is simply
// absent instead of an error.
package urlx

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/go-urlfetch/urlfetch/internal/errs"
)

// URL is the decomposed form of a request URL. String fields hold the
// raw (still percent-encoded) text of their component.
type URL struct {
	Scheme   string
	Netloc   string // userinfo@host:port, as given
	Username string
	Password string
	Host     string // IDNA-encoded, lowercased, no port, no brackets
	Port     int    // 0 when absent or unparseable
	Path     string
	Query    string
	Fragment string
}

var defaultPorts = map[string]int{
	"http": 80, "https": 443,
}

// DefaultPort returns the port implied by scheme. Unknown schemes fall
// back to 80, matching the plain-HTTP connection they will be sent over.
func DefaultPort(scheme string) int {
	if p, ok := defaultPorts[scheme]; ok {
		return p
	}
	return 80
}

// Parse splits rawurl into its components. Only the netloc is validated;
// an empty host is left for the caller to reject so that inputs like
// "http://" still decompose.
func Parse(rawurl string) (*URL, error) {
	scheme, rest := "http", rawurl
	if s, r, ok := strings.Cut(rawurl, "://"); ok {
		scheme, rest = s, r
	}

	netloc, remainder := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		netloc, remainder = rest[:i], rest[i:]
	}

	u := &URL{Scheme: strings.ToLower(scheme), Netloc: netloc}
	if i := strings.IndexByte(remainder, '#'); i >= 0 {
		remainder, u.Fragment = remainder[:i], remainder[i+1:]
	}
	if i := strings.IndexByte(remainder, '?'); i >= 0 {
		u.Path, u.Query = remainder[:i], remainder[i+1:]
	} else {
		u.Path = remainder
	}

	hostport := netloc
	if i := strings.LastIndexByte(netloc, '@'); i >= 0 {
		userinfo := netloc[:i]
		hostport = netloc[i+1:]
		u.Username, u.Password, _ = strings.Cut(userinfo, ":")
	}

	var portstr string
	if strings.HasPrefix(hostport, "[") {
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return nil, errs.Wrapf(errs.ErrURL, "missing ']' in host %q", hostport)
		}
		u.Host = hostport[1:end]
		if rest := hostport[end+1:]; strings.HasPrefix(rest, ":") {
			portstr = rest[1:]
		}
	} else if i := strings.LastIndexByte(hostport, ':'); i >= 0 {
		u.Host, portstr = hostport[:i], hostport[i+1:]
	} else {
		u.Host = hostport
	}

	// tolerate junk ports, the component just stays absent
	if p, err := strconv.Atoi(portstr); err == nil && p >= 0 && p <= 65535 {
		u.Port = p
	}

	if u.Host != "" {
		host, err := idna.ToASCII(strings.ToLower(u.Host))
		if err != nil {
			return nil, errs.Wrapf(errs.ErrURL, "host %q: %v", u.Host, err)
		}
		u.Host = host
	}
	return u, nil
}

// RequestURI is the path plus ?query, never the fragment. An empty path
// stays empty; the transport substitutes "/" on the wire.
func (u *URL) RequestURI() string {
	if u.Query != "" {
		return u.Path + "?" + u.Query
	}
	return u.Path
}

// HTTPHost renders the Host header value: the bare host, or host:port
// whenever a port was given, even a default one.
func (u *URL) HTTPHost() string {
	if u.Port == 0 {
		return u.Host
	}
	if strings.Contains(u.Host, ":") { // IPv6 literal
		return "[" + u.Host + "]:" + strconv.Itoa(u.Port)
	}
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// Addr is the host:port to dial, defaulting the port by scheme.
func (u *URL) Addr() string {
	port := u.Port
	if port == 0 {
		port = DefaultPort(u.Scheme)
	}
	return net.JoinHostPort(u.Host, strconv.Itoa(port))
}

// Concat appends query parameters to a URL string. With keepExisting the
// existing query survives untouched and args are appended; otherwise the
// query is re-parsed and args replace any keys they share.
func Concat(u string, args url.Values, keepExisting bool) string {
	if len(args) == 0 {
		return u
	}
	if keepExisting {
		if n := len(u); n > 0 && (u[n-1] == '?' || u[n-1] == '&') {
			return u + args.Encode()
		}
		if strings.Contains(u, "?") {
			return u + "&" + args.Encode()
		}
		return u + "?" + args.Encode()
	}
	base, query, _ := strings.Cut(u, "?")
	q, _ := url.ParseQuery(query) // keeps what it could parse
	for k, vs := range args {
		q[k] = vs
	}
	return base + "?" + q.Encode()
}

// Join resolves a redirect location against the URL it came from.
func Join(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
