// Package store defines the narrow capability kvsplit needs from a key/value
// store connection. Protocol clients live in the pbc and httpc subpackages.
package store

import (
	"context"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

// Connection is a live session with one store endpoint. A Connection is used by
// a single goroutine at a time.
type Connection interface {
	// Fetch loads the record identified by container and key. A missing
	// record is returned with no siblings rather than as an error.
	Fetch(ctx context.Context, container, key string) (*models.Record, error)

	// ListKeys returns every key in container. The whole key space is held in
	// memory.
	ListKeys(ctx context.Context, container string) ([]string, error)

	// IndexQuery runs a secondary index query and returns the matching ids.
	IndexQuery(ctx context.Context, q IndexQuery) ([]models.RecordID, error)

	// Search runs a full-text query scoped to container and returns the
	// matching ids.
	Search(ctx context.Context, container, query string) ([]models.RecordID, error)

	// Store writes value under container/key.
	Store(ctx context.Context, container, key string, value []byte, contentType string) error

	// Ping checks that the endpoint is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying network resources.
	Close() error
}

// Dialer opens connections to endpoints.
type Dialer interface {
	Dial(ctx context.Context, ep endpoint.Endpoint) (Connection, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context, ep endpoint.Endpoint) (Connection, error)

// Dial calls f(ctx, ep).
func (f DialFunc) Dial(ctx context.Context, ep endpoint.Endpoint) (Connection, error) {
	return f(ctx, ep)
}

// Errorf builds a store error for failures reported by the remote side or the
// network.
func Errorf(format string, args ...interface{}) *errors.Error {
	return errors.Newf(errors.ErrorTypeStore, format, args...)
}

// WrapError wraps err as a store error. It returns nil when err is nil.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.ErrorTypeStore, message)
}
