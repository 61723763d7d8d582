package clients

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/store/httpc"
	"github.com/ajitpratap0/kvsplit/pkg/store/pbc"
	"github.com/ajitpratap0/kvsplit/pkg/testutil"
)

func testDialer(t *testing.T) *Dialer {
	opts := DefaultOptions()
	opts.Logger = testutil.TestLogger(t)
	return NewDialer(opts)
}

func listen(t *testing.T) (net.Listener, endpoint.Endpoint) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, endpoint.NewPB(host, port)
}

func TestDialPB(t *testing.T) {
	_, ep := listen(t)

	conn, err := testDialer(t).Dial(context.Background(), ep)
	require.NoError(t, err)
	defer conn.Close()
	assert.IsType(t, &pbc.Client{}, conn)
}

func TestDialHTTP(t *testing.T) {
	conn, err := testDialer(t).Dial(context.Background(), endpoint.NewHTTP("localhost", 8098, "/riak"))
	require.NoError(t, err)
	defer conn.Close()
	assert.IsType(t, &httpc.Client{}, conn)
}

func TestDialRefused(t *testing.T) {
	ln, ep := listen(t)
	ln.Close()

	_, err := testDialer(t).Dial(context.Background(), ep)
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestDialZeroEndpoint(t *testing.T) {
	_, err := testDialer(t).Dial(context.Background(), endpoint.Endpoint{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeArgument))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(
		config.TimeoutConfig{Connect: 2 * time.Second, Request: 5 * time.Second},
		config.ThrottleConfig{RequestsPerSecond: 50, Burst: 5})
	assert.Equal(t, 2*time.Second, opts.PB.DialTimeout)
	assert.Equal(t, 2*time.Second, opts.HTTP.DialTimeout)
	assert.Equal(t, 5*time.Second, opts.PB.RequestTimeout)
	assert.Equal(t, 5*time.Second, opts.HTTP.RequestTimeout)
	assert.Equal(t, 5*time.Second, opts.HTTP.ResponseHeaderTimeout)

	assert.Equal(t, 50.0, opts.RequestsPerSecond)
	assert.Equal(t, 5, opts.Burst)

	opts = OptionsFromConfig(config.TimeoutConfig{}, config.ThrottleConfig{})
	assert.Equal(t, DefaultOptions().PB.DialTimeout, opts.PB.DialTimeout)
	assert.Zero(t, opts.PB.RequestTimeout)
	assert.Zero(t, opts.RequestsPerSecond)
}

func TestDialThrottled(t *testing.T) {
	opts := DefaultOptions()
	opts.Logger = testutil.TestLogger(t)
	opts.RequestsPerSecond = 10
	opts.Burst = 2

	conn, err := NewDialer(opts).Dial(context.Background(), endpoint.NewHTTP("localhost", 8098, "/riak"))
	require.NoError(t, err)
	defer conn.Close()

	throttled, ok := conn.(*ThrottledConnection)
	require.True(t, ok)
	assert.IsType(t, &httpc.Client{}, throttled.Connection)
	assert.Equal(t, 2, throttled.Limiter().Burst())
}
