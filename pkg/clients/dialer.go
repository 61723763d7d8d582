// Package clients opens store connections for endpoints, picking the protocol
// client from the endpoint's protocol.
package clients

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/store"
	"github.com/ajitpratap0/kvsplit/pkg/store/httpc"
	"github.com/ajitpratap0/kvsplit/pkg/store/pbc"
)

// Options configures both protocol clients.
type Options struct {
	PB   pbc.Options
	HTTP httpc.Options
	// RequestsPerSecond throttles each connection; zero disables throttling
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// DefaultOptions returns the default options of both clients.
func DefaultOptions() Options {
	return Options{
		PB:   pbc.DefaultOptions(),
		HTTP: httpc.DefaultOptions(),
	}
}

// OptionsFromConfig applies job timeouts on top of the defaults.
func OptionsFromConfig(timeouts config.TimeoutConfig, throttle config.ThrottleConfig) Options {
	opts := DefaultOptions()
	if timeouts.Connect > 0 {
		opts.PB.DialTimeout = timeouts.Connect
		opts.HTTP.DialTimeout = timeouts.Connect
		opts.HTTP.TLSHandshakeTimeout = timeouts.Connect
	}
	// A zero request timeout leaves requests bounded only by the context
	opts.PB.RequestTimeout = timeouts.Request
	opts.HTTP.RequestTimeout = timeouts.Request
	if timeouts.Request > 0 && timeouts.Request < opts.HTTP.ResponseHeaderTimeout {
		opts.HTTP.ResponseHeaderTimeout = timeouts.Request
	}
	opts.RequestsPerSecond = throttle.RequestsPerSecond
	opts.Burst = throttle.Burst
	return opts
}

// Dialer implements store.Dialer for binary and HTTP endpoints.
type Dialer struct {
	opts   Options
	logger *zap.Logger
}

var _ store.Dialer = (*Dialer)(nil)

// NewDialer creates a Dialer.
func NewDialer(opts Options) *Dialer {
	log := opts.Logger
	if log == nil {
		log = logger.Get()
	}
	if opts.PB.Logger == nil {
		opts.PB.Logger = log
	}
	if opts.HTTP.Logger == nil {
		opts.HTTP.Logger = log
	}
	return &Dialer{
		opts:   opts,
		logger: log.With(zap.String("component", "dialer")),
	}
}

// Dial opens a connection to ep. Failures to reach the endpoint are store
// errors.
func (d *Dialer) Dial(ctx context.Context, ep endpoint.Endpoint) (store.Connection, error) {
	start := time.Now()
	var (
		conn store.Connection
		err  error
	)
	switch {
	case ep.Protocol() == endpoint.ProtocolPB:
		conn, err = pbc.Dial(ctx, ep.Address(), d.opts.PB)
	case ep.Protocol().IsHTTP():
		conn, err = httpc.New(ep, d.opts.HTTP)
	default:
		return nil, errors.Newf(errors.ErrorTypeArgument, "unsupported protocol %q", ep.Protocol())
	}
	if err != nil {
		d.logger.Debug("dial failed", zap.Stringer("endpoint", ep), zap.Error(err))
		return nil, err
	}
	d.logger.Debug("connected",
		zap.Stringer("endpoint", ep),
		zap.Duration("elapsed", time.Since(start)))
	return Throttle(conn, d.opts.RequestsPerSecond, d.opts.Burst), nil
}
