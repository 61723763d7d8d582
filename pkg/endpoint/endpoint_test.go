package endpoint

import (
	"net"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

func TestEndpointString(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
	}{
		{"pb", NewPB("10.0.0.1", 8087), "10.0.0.1:8087"},
		{"http with path", NewHTTP("riak1", 8098, "/riak"), "http://riak1:8098/riak"},
		{"http path without slash", NewHTTP("riak1", 8098, "riak"), "http://riak1:8098/riak"},
		{"http empty path", NewHTTP("riak1", 8098, ""), "http://riak1:8098/"},
		{"https", NewHTTPS("riak1", 443, "/riak"), "https://riak1:443/riak"},
		{"pb ipv6", NewPB("::1", 8087), "[::1]:8087"},
		{"http ipv6", NewHTTP("fe80::1", 8098, "/riak"), "http://[fe80::1]:8098/riak"},
		{"http escaped path", NewHTTP("riak1", 8098, "/a?b#c d"), "http://riak1:8098/a%3Fb%23c%20d"},
		{"http comma in path", NewHTTP("riak1", 8098, "/a,b"), "http://riak1:8098/a%2Cb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.endpoint.String())
		})
	}
}

func TestParse(t *testing.T) {
	e, err := Parse("127.0.0.1:8087")
	require.NoError(t, err)
	assert.Equal(t, ProtocolPB, e.Protocol())
	assert.Equal(t, "127.0.0.1", e.Host())
	assert.Equal(t, 8087, e.Port())
	assert.Empty(t, e.Path())

	e, err = Parse("http://localhost:8098/riak")
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTP, e.Protocol())
	assert.Equal(t, "localhost", e.Host())
	assert.Equal(t, 8098, e.Port())
	assert.Equal(t, "/riak", e.Path())
	assert.Equal(t, NewHTTP("localhost", 8098, "/riak"), e)
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		"",
		"localhost",
		"localhost:8087:1",
		":8087",
		"localhost:port",
		"localhost:0",
		"localhost:70000",
		"ftp://localhost:21/x",
		"http:///riak",
		"http://localhost/riak",
		"::1:8087",
		"http://localhost:8098/riak?x=1",
		"http://localhost:8098/riak#frag",
		"http://user@localhost:8098/riak",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeFormat), "got %v", err)
		})
	}
}

func TestRoundTripUnusualEndpoints(t *testing.T) {
	endpoints := []Endpoint{
		NewPB("::1", 8087),
		NewPB("fe80::1", 8087),
		NewPB("fe80::1%eth0", 8087),
		NewHTTP("::1", 8098, "/riak"),
		NewHTTPS("2001:db8::7", 443, "/"),
		NewHTTP("h", 8098, "/a?b"),
		NewHTTP("h", 8098, "/a#b"),
		NewHTTP("h", 8098, "/a%2Fb"),
		NewHTTP("h", 8098, "/a,b"),
		NewHTTP("h", 8098, "/100%"),
		NewHTTP("h", 8098, "//double/slash/"),
		NewHTTP("h", 8098, "/sp ace/ünï"),
	}

	for _, e := range endpoints {
		t.Run(e.String(), func(t *testing.T) {
			parsed, err := Parse(e.String())
			require.NoError(t, err)
			assert.True(t, parsed.Equal(e), "got %#v", parsed)
		})
	}

	parsed, err := ParseList(JoinList(endpoints))
	require.NoError(t, err)
	assert.Equal(t, endpoints, parsed)
}

func TestParseListAndJoin(t *testing.T) {
	endpoints := []Endpoint{
		NewPB("a", 8087),
		NewHTTP("b", 8098, "/riak"),
	}
	joined := JoinList(endpoints)
	assert.Equal(t, "a:8087,http://b:8098/riak", joined)

	parsed, err := ParseList(joined + ",,")
	require.NoError(t, err)
	assert.Equal(t, endpoints, parsed)

	empty, err := ParseList("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProperty_EndpointRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ipv4 := gen.SliceOfN(4, gen.UInt8()).Map(func(b []uint8) string { return net.IP(b).String() })
	ipv6 := gen.SliceOfN(16, gen.UInt8()).Map(func(b []uint8) string { return net.IP(b).String() })
	host := gen.OneGenOf(gen.Identifier(), ipv4, ipv6)
	port := gen.IntRange(1, 65535)

	properties.Property("pb endpoints parse back to themselves", prop.ForAll(
		func(h string, p int) bool {
			e := NewPB(h, p)
			parsed, err := Parse(e.String())
			return err == nil && parsed == e
		},
		host, port,
	))

	properties.Property("http endpoints parse back to themselves", prop.ForAll(
		func(h string, p int, path string) bool {
			e := NewHTTP(h, p, path)
			parsed, err := Parse(e.String())
			return err == nil && parsed.Equal(e)
		},
		host, port, gen.AnyString(),
	))

	properties.Property("endpoint lists parse back to themselves", prop.ForAll(
		func(h1, h2 string, p int, path string) bool {
			list := []Endpoint{NewPB(h1, p), NewHTTP(h2, p, path)}
			parsed, err := ParseList(JoinList(list))
			return err == nil && len(parsed) == 2 && parsed[0] == list[0] && parsed[1] == list[1]
		},
		host, host, port, gen.AnyString(),
	))

	properties.TestingRun(t)
}
