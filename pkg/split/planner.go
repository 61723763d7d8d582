// Package split plans and encodes the work units a job is divided into.
//
// A Split is a contiguous run of record ids bound to one endpoint. Splits are
// planned once by the controlling process, encoded, shipped to workers and
// decoded there unchanged.
package split

import (
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

const (
	// MinimumSplit is the smallest split size SplitSize returns.
	MinimumSplit = 10

	// splitsPerNode is the target number of splits per cluster node.
	splitsPerNode = 10
)

// SplitSize picks the number of ids per split for totalKeys ids on a cluster
// of clusterSizeHint nodes. It aims for ten splits per node, falls back to one
// split per node when that would make splits smaller than MinimumSplit, and
// never returns less than MinimumSplit. Hints below 1 are treated as 1.
func SplitSize(totalKeys, clusterSizeHint int) int {
	if clusterSizeHint < 1 {
		clusterSizeHint = 1
	}
	if size := totalKeys / clusterSizeHint / splitsPerNode; size >= MinimumSplit {
		return size
	}
	if size := totalKeys / clusterSizeHint; size >= MinimumSplit {
		return size
	}
	return MinimumSplit
}

// Plan cuts ids into contiguous runs of splitSize (the last run may be
// shorter) and binds run i to endpoints[i%len(endpoints)]. Order is
// preserved, so concatenating the splits yields ids again. No splits are
// produced for empty input.
func Plan(ids []models.RecordID, endpoints []endpoint.Endpoint, splitSize int) ([]*Split, error) {
	if len(endpoints) == 0 {
		return nil, errors.New(errors.ErrorTypeArgument, "cannot plan splits without endpoints")
	}
	if splitSize < 1 {
		return nil, errors.Newf(errors.ErrorTypeArgument, "split size must be positive, got %d", splitSize)
	}

	count := len(ids) / splitSize
	if len(ids)%splitSize != 0 {
		count++
	}
	splits := make([]*Split, 0, count)
	for start := 0; start < len(ids); {
		end := start + min(splitSize, len(ids)-start)
		location := endpoints[len(splits)%len(endpoints)]
		splits = append(splits, New(location, ids[start:end]))
		start = end
	}
	return splits, nil
}
