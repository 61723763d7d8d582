// Package endpoint describes store access points and their text form.
//
// A binary-protocol endpoint is written as "host:port". An HTTP endpoint is
// written as a full URL, "http://host:port/path". IPv6 hosts are bracketed in
// both forms. Parse tells the two apart by the presence of '/', which never
// occurs in a binary-protocol address. Hosts are DNS names or IP addresses.
package endpoint

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// Protocol is the access protocol variant of an endpoint
type Protocol string

const (
	// ProtocolPB is the length-prefixed protocol buffers protocol
	ProtocolPB Protocol = "pb"
	// ProtocolHTTP is the plain HTTP interface
	ProtocolHTTP Protocol = "http"
	// ProtocolHTTPS is the HTTP interface over TLS
	ProtocolHTTPS Protocol = "https"
)

// IsHTTP reports whether the protocol uses the URL text form
func (p Protocol) IsHTTP() bool {
	return p == ProtocolHTTP || p == ProtocolHTTPS
}

// Valid reports whether p is a known protocol
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolPB, ProtocolHTTP, ProtocolHTTPS:
		return true
	}
	return false
}

// ListSeparator joins serialized endpoints in a job configuration
const ListSeparator = ","

// Endpoint is an immutable store access point. The zero value is not valid.
// Endpoints are comparable with ==.
type Endpoint struct {
	protocol Protocol
	host     string
	port     int
	path     string
}

// NewPB creates a binary-protocol endpoint
func NewPB(host string, port int) Endpoint {
	return Endpoint{protocol: ProtocolPB, host: host, port: port}
}

// NewHTTP creates an HTTP endpoint. The path is normalized to start with '/'.
func NewHTTP(host string, port int, path string) Endpoint {
	return newURLEndpoint(ProtocolHTTP, host, port, path)
}

// NewHTTPS creates an HTTPS endpoint. The path is normalized to start with '/'.
func NewHTTPS(host string, port int, path string) Endpoint {
	return newURLEndpoint(ProtocolHTTPS, host, port, path)
}

func newURLEndpoint(p Protocol, host string, port int, path string) Endpoint {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Endpoint{protocol: p, host: host, port: port, path: path}
}

// Protocol returns the access protocol
func (e Endpoint) Protocol() Protocol { return e.protocol }

// Host returns the host name or address
func (e Endpoint) Host() string { return e.host }

// Port returns the TCP port
func (e Endpoint) Port() int { return e.port }

// Path returns the resource path of an HTTP endpoint, empty for binary endpoints
func (e Endpoint) Path() string { return e.path }

// Address returns "host:port", with IPv6 hosts in brackets
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// Equal reports structural equality
func (e Endpoint) Equal(other Endpoint) bool {
	return e == other
}

// IsZero reports whether e is the zero value
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}

// String serializes the endpoint. Parse(e.String()) returns an endpoint equal to e.
func (e Endpoint) String() string {
	if !e.protocol.IsHTTP() {
		return e.Address()
	}
	u := url.URL{Scheme: string(e.protocol), Host: e.Address(), Path: e.path}
	// ',' separates endpoints in a list
	return strings.ReplaceAll(u.String(), ",", "%2C")
}

// Parse parses the text form produced by String
func Parse(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Endpoint{}, errors.New(errors.ErrorTypeFormat, "empty endpoint")
	}
	if strings.Contains(s, "/") {
		return parseURL(s)
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, errors.Wrap(err, errors.ErrorTypeFormat, "invalid endpoint "+strconv.Quote(s))
	}
	if host == "" {
		return Endpoint{}, errors.Newf(errors.ErrorTypeFormat, "endpoint %q has no host", s)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return Endpoint{}, errors.Wrap(err, errors.ErrorTypeFormat, "invalid endpoint "+strconv.Quote(s))
	}
	return NewPB(host, port), nil
}

func parseURL(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, errors.Wrap(err, errors.ErrorTypeFormat, "invalid endpoint url "+strconv.Quote(s))
	}

	p := Protocol(strings.ToLower(u.Scheme))
	if !p.IsHTTP() {
		return Endpoint{}, errors.Newf(errors.ErrorTypeFormat, "unsupported endpoint scheme %q", u.Scheme)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" || u.User != nil {
		return Endpoint{}, errors.Newf(errors.ErrorTypeFormat, "endpoint %q may only hold scheme, host, port and path", s)
	}
	if u.Hostname() == "" {
		return Endpoint{}, errors.Newf(errors.ErrorTypeFormat, "endpoint %q has no host", s)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Endpoint{}, errors.Wrap(err, errors.ErrorTypeFormat, "invalid endpoint "+strconv.Quote(s))
	}
	return newURLEndpoint(p, u.Hostname(), port, u.Path), nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFormat, "port is not a number")
	}
	if port < 1 || port > 65535 {
		return 0, errors.Newf(errors.ErrorTypeFormat, "port %d out of range", port)
	}
	return port, nil
}

// ParseList parses a comma separated list of endpoints. Empty entries are skipped.
func ParseList(s string) ([]Endpoint, error) {
	var out []Endpoint
	for _, token := range strings.Split(s, ListSeparator) {
		if strings.TrimSpace(token) == "" {
			continue
		}
		e, err := Parse(token)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// JoinList serializes endpoints into the comma separated form read by ParseList
func JoinList(endpoints []Endpoint) string {
	parts := make([]string, len(endpoints))
	for i, e := range endpoints {
		parts[i] = e.String()
	}
	return strings.Join(parts, ListSeparator)
}

// MarshalText implements encoding.TextMarshaler.
func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Endpoint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
