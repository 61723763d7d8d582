// Package output stores job results back into the key-value store.
package output

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/clients"
	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/input"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/metrics"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

const (
	// ContentTypeBinary is used by Write.
	ContentTypeBinary = "application/octet-stream"
	// ContentTypeJSON is used by WriteJSON.
	ContentTypeJSON = "application/json"
)

// RecordWriter stores key/value pairs into the job's output container. It is
// safe for concurrent use.
type RecordWriter struct {
	container string
	endpoint  endpoint.Endpoint
	conn      store.Connection
	logger    *zap.Logger

	mu      sync.Mutex
	written int64
	closed  bool
}

// NewRecordWriter connects to the first reachable endpoint of the job. A job
// without an output container is a configuration error.
func NewRecordWriter(ctx context.Context, dialer store.Dialer, props *config.Properties, log *zap.Logger) (*RecordWriter, error) {
	if log == nil {
		log = logger.Get()
	}
	container := input.OutputContainer(props)
	if container == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "no output container configured")
	}
	endpoints, err := input.Endpoints(props)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, input.ErrNoEndpoints
	}

	conn, ep, err := clients.DialFirst(ctx, dialer, endpoints, log)
	if err != nil {
		return nil, err
	}
	return &RecordWriter{
		container: container,
		endpoint:  ep,
		conn:      conn,
		logger: log.With(
			zap.String("component", "record_writer"),
			zap.String("container", container),
			zap.Stringer("endpoint", ep)),
	}, nil
}

// Container returns the output container.
func (w *RecordWriter) Container() string { return w.container }

// Endpoint returns the endpoint the writer is connected to.
func (w *RecordWriter) Endpoint() endpoint.Endpoint { return w.endpoint }

// Write stores value under key.
func (w *RecordWriter) Write(ctx context.Context, key string, value []byte) error {
	return w.store(ctx, key, value, ContentTypeBinary)
}

// WriteJSON stores the JSON encoding of v under key.
func (w *RecordWriter) WriteJSON(ctx context.Context, key string, v interface{}) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "encode value for "+key)
	}
	return w.store(ctx, key, data, ContentTypeJSON)
}

func (w *RecordWriter) store(ctx context.Context, key string, value []byte, contentType string) error {
	if key == "" {
		return errors.New(errors.ErrorTypeArgument, "empty key")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.ErrorTypeIllegalState, "writer is closed")
	}

	if err := w.conn.Store(ctx, w.container, key, value, contentType); err != nil {
		metrics.RecordsWritten.WithLabelValues(metrics.OutcomeFailure).Inc()
		return err
	}
	metrics.RecordsWritten.WithLabelValues(metrics.OutcomeSuccess).Inc()
	w.written++
	return nil
}

// Written returns the number of values stored so far.
func (w *RecordWriter) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close releases the connection. It is safe to call more than once.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.logger.Info("record writer closed", zap.Int64("written", w.written))
	return w.conn.Close()
}
