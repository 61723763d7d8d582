// Package discovery implements the key discovery strategies that decide which
// records a job processes.
//
// A Strategy is configured either directly through its constructor or from a
// flat init string produced by InitString on another process. Strategies are
// identified by name in the job properties and instantiated through New; there
// is no reflective loading.
package discovery

import (
	"context"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// Strategy enumerates the record ids a job must process.
type Strategy interface {
	// Name is the registry identifier of the strategy.
	Name() string

	// InitString snapshots the configuration so Init can restore it.
	InitString() (string, error)

	// Init restores configuration from an InitString snapshot.
	Init(s string) error

	// Discover looks up the record ids over conn. The result is sorted and
	// free of duplicates. Unconfigured strategies fail with an illegal state
	// error; store failures are returned unchanged.
	Discover(ctx context.Context, conn store.Connection) ([]models.RecordID, error)
}

// ConnectionOptional is implemented by strategies that can discover without
// a connection.
type ConnectionOptional interface {
	NeedsConnection() bool
}

// NeedsConnection reports whether s must be given a live connection.
func NeedsConnection(s Strategy) bool {
	if co, ok := s.(ConnectionOptional); ok {
		return co.NeedsConnection()
	}
	return true
}

func notConfigured(name string) error {
	return errors.Newf(errors.ErrorTypeIllegalState, "%s discovery is not configured", name)
}

func noConnection(name string) error {
	return errors.Newf(errors.ErrorTypeArgument, "%s discovery needs a connection", name)
}

// invalidInit reports a malformed init string. The cause is kept as a format
// error so both classifications are visible through errors.HasType.
func invalidInit(name string, cause error) error {
	var formatErr error = cause
	if !errors.HasType(cause, errors.ErrorTypeFormat) {
		formatErr = errors.Wrap(cause, errors.ErrorTypeFormat, "malformed init string")
	}
	return errors.Wrap(formatErr, errors.ErrorTypeArgument, "invalid "+name+" init string")
}

// normalize returns ids sorted with duplicates removed.
func normalize(ids []models.RecordID) []models.RecordID {
	models.SortRecordIDs(ids)
	return models.Dedupe(ids)
}
