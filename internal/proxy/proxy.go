// Package proxy decides whether a request goes through an HTTP proxy and
// which one, from explicit configuration or the process environment.
package proxy

import (
	"encoding/base64"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-urlfetch/urlfetch/internal/urlx"
)

// Proxy is a resolved forward proxy for one request.
type Proxy struct {
	URL *urlx.URL
	// Authorization is the ready-made Proxy-Authorization value, empty
	// when the proxy URL carries no credentials.
	Authorization string
}

// Addr is the proxy host:port to dial. A proxy URL without a port
// defaults by the target scheme, like the connection it stands in for.
func (p *Proxy) Addr(targetScheme string) string {
	port := p.URL.Port
	if port == 0 {
		port = urlx.DefaultPort(targetScheme)
	}
	return net.JoinHostPort(p.URL.Host, strconv.Itoa(port))
}

// hosts never sent through a proxy unless no_proxy overrides the list
var defaultIgnore = []string{"127.0.0.1", "localhost"}

// FromEnviron reads the scheme→proxy map from the environment. The
// lowercase variable wins over the uppercase one.
func FromEnviron() map[string]string {
	proxies := map[string]string{}
	for _, scheme := range []string{"http", "https"} {
		if v := os.Getenv(scheme + "_proxy"); v != "" {
			proxies[scheme] = v
		} else if v := os.Getenv(strings.ToUpper(scheme) + "_PROXY"); v != "" {
			proxies[scheme] = v
		}
	}
	return proxies
}

// Default is the process-wide proxy map, read once at first use.
var Default = sync.OnceValue(FromEnviron)

// IgnoreList returns the no-proxy host list: the no_proxy environment
// value split on commas when the environment is trusted and set,
// otherwise the built-in list. Entries are not trimmed.
func IgnoreList(trustEnv bool) []string {
	if trustEnv {
		noProxy := os.Getenv("no_proxy")
		if noProxy == "" {
			noProxy = os.Getenv("NO_PROXY")
		}
		if noProxy != "" {
			return strings.Split(noProxy, ",")
		}
	}
	return defaultIgnore
}

// Match reports whether host is exempted by the no-proxy entry. When
// both sides are dotted-quad IPv4 the entry may carry a /N prefix length
// and the comparison masks both addresses; otherwise the entry matches
// as a domain suffix.
func Match(host, entry string) bool {
	if entry == "" {
		return false
	}
	hostIP := ipv4(host)
	entryIP, bits := ipv4Entry(entry)
	if hostIP != nil && entryIP != nil {
		mask := net.CIDRMask(bits, 32)
		return hostIP.Mask(mask).Equal(entryIP.Mask(mask))
	}
	return strings.HasSuffix(host, entry)
}

func ipv4(s string) net.IP {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil
	}
	return ip.To4()
}

func ipv4Entry(entry string) (net.IP, int) {
	bits := 32
	if i := strings.IndexByte(entry, '/'); i >= 0 {
		n, err := strconv.Atoi(entry[i+1:])
		if err != nil || n < 0 || n > 32 {
			return nil, 0
		}
		entry, bits = entry[:i], n
	}
	return ipv4(entry), bits
}

// Resolve picks the proxy for a target, or nil when the host is exempt
// or nothing is configured. explicit overrides the environment; the
// environment is only consulted when trustEnv holds.
func Resolve(scheme, host string, explicit map[string]string, trustEnv bool, ignore []string) (*Proxy, error) {
	proxies := explicit
	if proxies == nil && trustEnv {
		proxies = Default()
	}
	rawproxy := proxies[scheme]
	if rawproxy == "" {
		return nil, nil
	}
	if ignore == nil {
		ignore = IgnoreList(trustEnv)
	}
	for _, entry := range ignore {
		if Match(host, entry) {
			return nil, nil
		}
	}
	return parse(scheme, rawproxy)
}

func parse(targetScheme, rawproxy string) (*Proxy, error) {
	if !strings.Contains(rawproxy, "://") {
		rawproxy = targetScheme + "://" + rawproxy
	}
	u, err := urlx.Parse(rawproxy)
	if err != nil {
		return nil, err
	}
	p := &Proxy{URL: u}
	if u.Username != "" && u.Password != "" {
		cred := u.Username + ":" + u.Password
		p.Authorization = "Basic " + base64.StdEncoding.EncodeToString([]byte(cred))
	}
	return p, nil
}
