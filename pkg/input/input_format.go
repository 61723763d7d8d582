// Package input is the batch-framework facing side of kvsplit: it computes
// splits for a job and opens readers over them.
//
// Planning runs once in the controlling process:
//
//	format := input.NewInputFormat(clients.NewDialer(clients.DefaultOptions()), nil)
//	splits, err := format.ComputeSplits(ctx, props)
//
// Each split is then encoded, shipped to a worker and read there:
//
//	reader, err := format.OpenReader(ctx, s)
//	defer reader.Close()
//	for reader.HasNext() {
//		rec, err := reader.Next(ctx)
//		...
//	}
package input

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/metrics"
	"github.com/ajitpratap0/kvsplit/pkg/observability"
	"github.com/ajitpratap0/kvsplit/pkg/split"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// InputFormat computes splits and opens readers.
type InputFormat struct {
	dialer   store.Dialer
	resolver *Resolver
	logger   *zap.Logger
}

// NewInputFormat creates an InputFormat that connects with dialer.
func NewInputFormat(dialer store.Dialer, log *zap.Logger) *InputFormat {
	if log == nil {
		log = logger.Get()
	}
	return &InputFormat{
		dialer:   dialer,
		resolver: NewResolver(dialer, log),
		logger:   log.With(zap.String("component", "input_format")),
	}
}

// ComputeSplits discovers the job's record ids and partitions them into
// splits. A job without endpoints fails with ErrNoEndpoints and a malformed
// endpoint with a format error, both before any discovery is attempted.
func (f *InputFormat) ComputeSplits(ctx context.Context, props *config.Properties) (splits []*split.Split, err error) {
	endpoints, err := Endpoints(props)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	strategy, err := Strategy(props)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "compute_splits",
		attribute.String("strategy", strategy.Name()),
		attribute.Int("endpoints", len(endpoints)))
	defer func() { span.End(err) }()

	ids, err := f.resolver.Discover(ctx, endpoints, strategy)
	if err != nil {
		return nil, err
	}

	clusterSize := ClusterSize(props)
	size := split.SplitSize(len(ids), clusterSize)
	splits, err = split.Plan(ids, endpoints, size)
	if err != nil {
		return nil, err
	}

	metrics.SplitsPlanned.Add(float64(len(splits)))
	span.SetAttributes(
		attribute.Int("keys", len(ids)),
		attribute.Int("split_size", size),
		attribute.Int("splits", len(splits)))
	f.logger.Info("computed splits",
		zap.Int("keys", len(ids)),
		zap.Int("cluster_size", clusterSize),
		zap.Int("split_size", size),
		zap.Int("splits", len(splits)))
	return splits, nil
}

// OpenReader connects to the split's endpoint and returns a reader over its
// ids. The reader owns the connection until Close.
func (f *InputFormat) OpenReader(ctx context.Context, s *split.Split) (*RecordReader, error) {
	if s == nil {
		return nil, errors.New(errors.ErrorTypeArgument, "nil split")
	}
	conn, err := f.dialer.Dial(ctx, s.Location())
	if err != nil {
		return nil, err
	}
	return NewRecordReader(s, conn, f.logger), nil
}
