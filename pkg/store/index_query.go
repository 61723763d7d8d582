package store

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// QueryKind selects between equality and range index lookups.
type QueryKind string

const (
	QueryEqual QueryKind = "eq"
	QueryRange QueryKind = "range"
)

// IndexType is the value type of a secondary index, derived from its name.
type IndexType string

const (
	IndexInteger IndexType = "int"
	IndexBinary  IndexType = "bin"
)

const (
	intSuffix = "_int"
	binSuffix = "_bin"
)

// IndexQuery describes a secondary index lookup. Equality queries use Value,
// range queries use Start and End (inclusive).
type IndexQuery struct {
	Container string
	Index     string
	Kind      QueryKind
	Value     string
	Start     string
	End       string
}

// NewEqualQuery builds an equality query.
func NewEqualQuery(container, index, value string) IndexQuery {
	return IndexQuery{Container: container, Index: index, Kind: QueryEqual, Value: value}
}

// NewRangeQuery builds a range query.
func NewRangeQuery(container, index, start, end string) IndexQuery {
	return IndexQuery{Container: container, Index: index, Kind: QueryRange, Start: start, End: end}
}

// IsRange reports whether q is a range query.
func (q IndexQuery) IsRange() bool {
	return q.Kind == QueryRange
}

// Type returns the index value type from the name suffix.
func (q IndexQuery) Type() (IndexType, error) {
	return IndexTypeOf(q.Index)
}

// IndexTypeOf derives the value type from an index name (`_int` or `_bin`).
func IndexTypeOf(index string) (IndexType, error) {
	switch {
	case strings.HasSuffix(index, intSuffix):
		return IndexInteger, nil
	case strings.HasSuffix(index, binSuffix):
		return IndexBinary, nil
	default:
		return "", errors.Newf(errors.ErrorTypeArgument,
			"index %q must end in %s or %s", index, intSuffix, binSuffix)
	}
}

// Validate checks that q is complete and that integer index values parse.
func (q IndexQuery) Validate() error {
	if q.Container == "" {
		return errors.New(errors.ErrorTypeArgument, "index query has no container")
	}
	typ, err := q.Type()
	if err != nil {
		return err
	}

	var values []string
	switch q.Kind {
	case QueryEqual:
		if q.Value == "" {
			return errors.New(errors.ErrorTypeArgument, "equality index query has no value")
		}
		values = []string{q.Value}
	case QueryRange:
		if q.Start == "" || q.End == "" {
			return errors.New(errors.ErrorTypeArgument, "range index query needs start and end")
		}
		values = []string{q.Start, q.End}
	default:
		return errors.Newf(errors.ErrorTypeArgument, "unknown index query kind %q", q.Kind)
	}

	if typ == IndexInteger {
		for _, v := range values {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return errors.Wrap(err, errors.ErrorTypeArgument, "integer index value "+strconv.Quote(v))
			}
		}
	}
	return nil
}
