package input

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/discovery"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/metrics"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/observability"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// ErrNoEndpoints is returned when a job has no endpoints configured.
var ErrNoEndpoints = errors.New(errors.ErrorTypeConfig, "no endpoints configured")

// Resolver runs key discovery against an ordered list of interchangeable
// endpoints, moving to the next endpoint only when the current one fails with
// a store error.
type Resolver struct {
	dialer store.Dialer
	logger *zap.Logger
}

// NewResolver creates a Resolver that opens connections with dialer.
func NewResolver(dialer store.Dialer, log *zap.Logger) *Resolver {
	if log == nil {
		log = logger.Get()
	}
	return &Resolver{
		dialer: dialer,
		logger: log.With(zap.String("component", "resolver")),
	}
}

// Discover returns the result of the first endpoint on which strategy
// succeeds. Failures of earlier endpoints are logged and discarded. When every
// endpoint fails the last error is returned. Errors other than store errors
// stop the search immediately.
func (r *Resolver) Discover(ctx context.Context, endpoints []endpoint.Endpoint, strategy discovery.Strategy) ([]models.RecordID, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	ctx, span := observability.StartSpan(ctx, "discover",
		attribute.String("strategy", strategy.Name()),
		attribute.Int("endpoints", len(endpoints)))

	if !discovery.NeedsConnection(strategy) {
		ids, err := strategy.Discover(ctx, nil)
		if err == nil {
			metrics.KeysDiscovered.Set(float64(len(ids)))
		}
		span.End(err)
		return ids, err
	}

	var lastErr error
	for i, ep := range endpoints {
		ids, err := r.attempt(ctx, ep, strategy)

		span.AddEvent("discovery_attempt",
			attribute.Int("attempt", i),
			attribute.String("endpoint", ep.String()),
			attribute.String("outcome", metrics.Outcome(err)))
		metrics.DiscoveryAttempts.WithLabelValues(string(ep.Protocol()), metrics.Outcome(err)).Inc()

		if err == nil {
			metrics.KeysDiscovered.Set(float64(len(ids)))
			r.logger.Info("discovered keys",
				zap.String("strategy", strategy.Name()),
				zap.Stringer("endpoint", ep),
				zap.Int("keys", len(ids)))
			span.End(nil)
			return ids, nil
		}

		if !errors.IsRetryable(err) {
			span.End(err)
			return nil, err
		}
		r.logger.Warn("discovery failed, trying next endpoint",
			zap.Stringer("endpoint", ep),
			zap.Int("attempt", i+1),
			zap.Int("endpoints", len(endpoints)),
			zap.Error(err))
		lastErr = err
	}

	err := errors.Wrap(lastErr, errors.ErrorTypeStore,
		fmt.Sprintf("key discovery failed on all %d endpoints", len(endpoints)))
	span.End(err)
	return nil, err
}

// attempt runs strategy over a fresh connection to ep and releases it.
func (r *Resolver) attempt(ctx context.Context, ep endpoint.Endpoint, strategy discovery.Strategy) ([]models.RecordID, error) {
	conn, err := r.dialer.Dial(ctx, ep)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			r.logger.Debug("close connection", zap.Stringer("endpoint", ep), zap.Error(cerr))
		}
	}()
	return strategy.Discover(ctx, conn)
}
