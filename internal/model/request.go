package model

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/go-urlfetch/urlfetch/internal/form"
)

// Version of the library, also the default User-Agent suffix.
const Version = "1.0.0"

// DefaultUserAgent identifies the library when no other agent is set.
const DefaultUserAgent = "urlfetch/" + Version

// File is one multipart upload, see [form.File].
type File = form.File

// BasicAuth is a username/password pair sent as an Authorization header.
type BasicAuth struct {
	Username string
	Password string
}

// HeaderValue renders the Basic authorization header value.
func (a *BasicAuth) HeaderValue() string {
	cred := a.Username + ":" + a.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
}

// Request describes one HTTP exchange. The zero value of every field is
// a usable default; only URL is required.
type Request struct {
	// Method defaults to GET and must be one of GET, HEAD, PUT, DELETE,
	// OPTIONS, POST, TRACE, PATCH.
	Method string
	URL    string

	// Params are query parameters appended to the URL before anything
	// else happens. Accepted types: url.Values, map[string]string,
	// map[string][]string, or a raw pre-encoded string.
	Params interface{}

	// Data is the request body. Accepted types: nil, string, []byte
	// (sent as-is, typed application/x-www-form-urlencoded), url.Values,
	// map[string]string, map[string][]string (urlencoded), or io.Reader
	// (drained once while preparing, no content type set).
	Data interface{}

	// Files switches the body to multipart/form-data; scalar fields come
	// from Data, which must then be a mapping or nil.
	Files map[string]File

	// Header entries override anything the builder computed, keeping the
	// caller's key spelling on the wire. A Host entry replaces the
	// computed Host header.
	Header http.Header

	// Auth takes precedence over credentials embedded in the URL.
	Auth *BasicAuth

	// RandomUA samples the User-Agent from the configured list file.
	RandomUA bool

	// Timeout bounds each socket operation of each attempt, not the
	// exchange as a whole. Zero falls back to the client default.
	Timeout time.Duration

	// LengthLimit caps the decoded response size in bytes. Zero falls
	// back to the client default, which means unlimited.
	LengthLimit int64

	// MaxRedirects is how many redirects may be followed. Zero falls
	// back to the client default; negative forbids redirects even when
	// the client allows them.
	MaxRedirects int

	// Proxies maps target schemes to proxies, overriding the client and
	// the environment. No entry for a scheme means a direct connection.
	Proxies map[string]string

	// NoProxy overrides the no-proxy host list for this request.
	NoProxy []string

	// DisableEnvProxy stops http_proxy/https_proxy/no_proxy from being
	// consulted.
	DisableEnvProxy bool

	// SourceAddress is a local ip:port to bind the connection to.
	SourceAddress string
}

// Defaults are client-level fallbacks applied while preparing a request.
type Defaults struct {
	Timeout         time.Duration
	LengthLimit     int64
	MaxRedirects    int
	UserAgent       string
	UserAgentFile   string
	Proxies         map[string]string
	NoProxy         []string
	DisableEnvProxy bool
	SourceAddress   string
}
