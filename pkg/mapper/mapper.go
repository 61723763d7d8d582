// Package mapper turns fetched records into domain values.
//
// A record may carry several siblings. Each live sibling is converted with a
// Converter and the results are reduced to one value by a ConflictResolver:
//
//	m := mapper.New(mapper.JSON[User](), mapper.Single[User]())
//	stats, err := m.Run(ctx, reader, func(ctx context.Context, id models.RecordID, u User) error {
//		...
//	})
package mapper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

// ErrConflict is returned by Single when a record holds more than one live
// sibling.
var ErrConflict = errors.New(errors.ErrorTypeIllegalState, "unresolved sibling conflict")

// Converter turns one sibling into a domain value.
type Converter[T any] interface {
	ToDomain(id models.RecordID, s models.Sibling) (T, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc[T any] func(id models.RecordID, s models.Sibling) (T, error)

// ToDomain implements Converter.
func (f ConverterFunc[T]) ToDomain(id models.RecordID, s models.Sibling) (T, error) {
	return f(id, s)
}

// ConflictResolver picks one value out of the converted siblings of a record.
// It is never called with an empty slice.
type ConflictResolver[T any] interface {
	Resolve(id models.RecordID, siblings []T) (T, error)
}

// ResolverFunc adapts a function to ConflictResolver.
type ResolverFunc[T any] func(id models.RecordID, siblings []T) (T, error)

// Resolve implements ConflictResolver.
func (f ResolverFunc[T]) Resolve(id models.RecordID, siblings []T) (T, error) {
	return f(id, siblings)
}

// Bytes returns the raw sibling value.
func Bytes() Converter[[]byte] {
	return ConverterFunc[[]byte](func(_ models.RecordID, s models.Sibling) ([]byte, error) {
		return s.Value, nil
	})
}

// String returns the sibling value as a string.
func String() Converter[string] {
	return ConverterFunc[string](func(_ models.RecordID, s models.Sibling) (string, error) {
		return string(s.Value), nil
	})
}

// JSON decodes the sibling value as JSON into a T.
func JSON[T any]() Converter[T] {
	return ConverterFunc[T](func(id models.RecordID, s models.Sibling) (T, error) {
		var v T
		if err := codec.Unmarshal(s.Value, &v); err != nil {
			return v, errors.Wrap(err, errors.ErrorTypeFormat, "decode "+id.String())
		}
		return v, nil
	})
}

// Single accepts records with exactly one sibling and fails with ErrConflict
// otherwise.
func Single[T any]() ConflictResolver[T] {
	return ResolverFunc[T](func(id models.RecordID, siblings []T) (T, error) {
		if len(siblings) > 1 {
			var zero T
			return zero, errors.Wrap(ErrConflict, errors.ErrorTypeIllegalState,
				fmt.Sprintf("%s has %d siblings", id, len(siblings)))
		}
		return siblings[0], nil
	})
}

// First keeps the first sibling.
func First[T any]() ConflictResolver[T] {
	return ResolverFunc[T](func(_ models.RecordID, siblings []T) (T, error) {
		return siblings[0], nil
	})
}

// Resolve converts the live siblings of rec and resolves them to one value.
// ok is false when the record was not found or every sibling is a tombstone.
func Resolve[T any](rec *models.Record, conv Converter[T], res ConflictResolver[T]) (value T, ok bool, err error) {
	if rec.NotFound() {
		return value, false, nil
	}

	values := make([]T, 0, len(rec.Siblings))
	for _, s := range rec.Siblings {
		if s.Deleted {
			continue
		}
		v, err := conv.ToDomain(rec.ID, s)
		if err != nil {
			return value, false, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return value, false, nil
	}

	value, err = res.Resolve(rec.ID, values)
	if err != nil {
		return value, false, err
	}
	return value, true, nil
}

// Reader is the part of a record reader Run needs.
type Reader interface {
	HasNext() bool
	Next(ctx context.Context) (*models.Record, error)
}

// Stats summarizes one Run.
type Stats struct {
	Read     int
	Mapped   int
	NotFound int
	Failed   int
}

// Mapper binds a Converter and a ConflictResolver.
type Mapper[T any] struct {
	converter Converter[T]
	resolver  ConflictResolver[T]
	skipFetch bool
	logger    *zap.Logger
}

// Option configures a Mapper.
type Option func(*options)

type options struct {
	skipFetchErrors bool
	logger          *zap.Logger
}

// WithSkipFetchErrors makes Run log and count fetch failures instead of
// stopping at the first one.
func WithSkipFetchErrors() Option {
	return func(o *options) { o.skipFetchErrors = true }
}

// WithLogger sets the logger used by Run.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a Mapper.
func New[T any](conv Converter[T], res ConflictResolver[T], opts ...Option) *Mapper[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	return &Mapper[T]{
		converter: conv,
		resolver:  res,
		skipFetch: o.skipFetchErrors,
		logger:    o.logger.With(zap.String("component", "mapper")),
	}
}

// Map resolves one record.
func (m *Mapper[T]) Map(rec *models.Record) (T, bool, error) {
	return Resolve(rec, m.converter, m.resolver)
}

// Run drains r and hands every resolved value to fn. Records that were not
// found are counted and skipped. Conversion, resolution and callback errors
// stop the run.
func (m *Mapper[T]) Run(ctx context.Context, r Reader, fn func(ctx context.Context, id models.RecordID, value T) error) (Stats, error) {
	var stats Stats
	for r.HasNext() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := r.Next(ctx)
		stats.Read++
		if err != nil {
			stats.Failed++
			if m.skipFetch && errors.IsRetryable(err) {
				m.logger.Warn("skipping record", zap.Error(err))
				continue
			}
			return stats, err
		}

		value, ok, err := m.Map(rec)
		if err != nil {
			stats.Failed++
			return stats, err
		}
		if !ok {
			stats.NotFound++
			continue
		}
		if err := fn(ctx, rec.ID, value); err != nil {
			stats.Failed++
			return stats, err
		}
		stats.Mapped++
	}
	return stats, nil
}
