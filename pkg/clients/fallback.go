package clients

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// DialFirst returns a live connection to the first endpoint that can be
// dialed and answers a ping. Store errors move on to the next endpoint; any
// other error is returned at once. When every endpoint fails the last error is
// returned.
func DialFirst(ctx context.Context, dialer store.Dialer, endpoints []endpoint.Endpoint, log *zap.Logger) (store.Connection, endpoint.Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, endpoint.Endpoint{}, errors.New(errors.ErrorTypeConfig, "no endpoints configured")
	}
	if log == nil {
		log = logger.Get()
	}

	var lastErr error
	for i, ep := range endpoints {
		conn, err := dialAndPing(ctx, dialer, ep)
		if err == nil {
			return conn, ep, nil
		}
		if !errors.IsRetryable(err) {
			return nil, endpoint.Endpoint{}, err
		}
		log.Warn("endpoint unavailable, trying next",
			zap.Stringer("endpoint", ep),
			zap.Int("attempt", i+1),
			zap.Int("endpoints", len(endpoints)),
			zap.Error(err))
		lastErr = err
	}
	return nil, endpoint.Endpoint{}, errors.Wrap(lastErr, errors.ErrorTypeStore,
		fmt.Sprintf("no reachable endpoint among %d", len(endpoints)))
}

func dialAndPing(ctx context.Context, dialer store.Dialer, ep endpoint.Endpoint) (store.Connection, error) {
	conn, err := dialer.Dial(ctx, ep)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
