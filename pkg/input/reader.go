package input

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/metrics"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/split"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// RecordReader fetches the records of one split in order. It is not safe for
// concurrent use.
//
// Next removes an id from the queue before fetching it, so an id whose fetch
// fails is not retried by this reader.
type RecordReader struct {
	queue   []models.RecordID
	initial int
	current models.RecordID
	conn    store.Connection
	logger  *zap.Logger
	closed  bool
}

// NewRecordReader returns a reader over s that fetches through conn. The
// reader takes ownership of conn.
func NewRecordReader(s *split.Split, conn store.Connection, log *zap.Logger) *RecordReader {
	if log == nil {
		log = logger.Get()
	}
	ids := s.IDs()
	return &RecordReader{
		queue:   ids,
		initial: len(ids),
		conn:    conn,
		logger:  log.With(zap.Stringer("endpoint", s.Location())),
	}
}

// HasNext reports whether ids remain. It does not consume anything.
func (r *RecordReader) HasNext() bool {
	return len(r.queue) > 0
}

// CurrentKey returns the id most recently taken by Next.
func (r *RecordReader) CurrentKey() models.RecordID {
	return r.current
}

// Next takes the next id and fetches its record. A record that does not
// exist is returned with no siblings.
func (r *RecordReader) Next(ctx context.Context) (*models.Record, error) {
	if r.closed {
		return nil, errors.New(errors.ErrorTypeIllegalState, "reader is closed")
	}
	if len(r.queue) == 0 {
		return nil, errors.New(errors.ErrorTypeIllegalState, "no records left in split")
	}

	id := r.queue[0]
	r.queue = r.queue[1:]
	r.current = id

	timer := metrics.NewTimer()
	rec, err := r.conn.Fetch(ctx, id.Container, id.Key)
	metrics.FetchDuration.Observe(timer.Stop().Seconds())
	if err != nil {
		metrics.RecordsFetched.WithLabelValues(metrics.OutcomeFailure).Inc()
		r.logger.Warn("fetch failed", zap.Stringer("id", id), zap.Error(err))
		return nil, err
	}

	if rec.NotFound() {
		metrics.RecordsFetched.WithLabelValues(metrics.OutcomeNotFound).Inc()
	} else {
		metrics.RecordsFetched.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	return rec, nil
}

// Progress returns the fraction of ids taken so far, from 0 to 1. An empty
// split reports 1.
func (r *RecordReader) Progress() float64 {
	if r.initial == 0 {
		return 1
	}
	return 1 - float64(len(r.queue))/float64(r.initial)
}

// Remaining returns the number of ids not yet taken.
func (r *RecordReader) Remaining() int {
	return len(r.queue)
}

// Close releases the connection. It is safe to call more than once.
func (r *RecordReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.conn.Close()
}
