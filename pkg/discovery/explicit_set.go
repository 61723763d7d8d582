package discovery

import (
	"context"
	"strings"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// ExplicitSetName identifies the ExplicitSet strategy.
const ExplicitSetName = "explicit_set"

const (
	pairSeparator = ","
	idSeparator   = ":"
)

// ExplicitSet returns a caller-supplied set of ids and never touches the
// connection.
//
// The init string is a comma separated list of container:key pairs. Neither
// the container nor the key may contain ',' or ':'; there is no escaping.
type ExplicitSet struct {
	ids        []models.RecordID
	configured bool
}

// NewExplicitSet returns an ExplicitSet holding ids.
func NewExplicitSet(ids ...models.RecordID) *ExplicitSet {
	cp := make([]models.RecordID, len(ids))
	copy(cp, ids)
	return &ExplicitSet{ids: normalize(cp), configured: true}
}

// NewContainerKeys returns an ExplicitSet of keys that all live in container.
func NewContainerKeys(container string, keys ...string) *ExplicitSet {
	ids := make([]models.RecordID, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, models.NewRecordID(container, k))
	}
	return NewExplicitSet(ids...)
}

// Name implements Strategy.
func (e *ExplicitSet) Name() string { return ExplicitSetName }

// NeedsConnection implements ConnectionOptional.
func (e *ExplicitSet) NeedsConnection() bool { return false }

// Len returns the number of ids in the set.
func (e *ExplicitSet) Len() int { return len(e.ids) }

// InitString encodes the set as container:key pairs. Ids containing a
// separator cannot be encoded and produce an io error.
func (e *ExplicitSet) InitString() (string, error) {
	var sb strings.Builder
	for i, id := range e.ids {
		if strings.ContainsAny(id.Container, pairSeparator+idSeparator) ||
			strings.ContainsAny(id.Key, pairSeparator+idSeparator) {
			return "", errors.Newf(errors.ErrorTypeIO,
				"cannot encode %s: container and key must not contain %q or %q", id, pairSeparator, idSeparator)
		}
		if i > 0 {
			sb.WriteString(pairSeparator)
		}
		sb.WriteString(id.Container)
		sb.WriteString(idSeparator)
		sb.WriteString(id.Key)
	}
	return sb.String(), nil
}

// Init replaces the set with the pairs in s. An empty string yields an empty
// set.
func (e *ExplicitSet) Init(s string) error {
	var ids []models.RecordID
	if s != "" {
		for _, pair := range strings.Split(s, pairSeparator) {
			parts := strings.Split(pair, idSeparator)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return invalidInit(ExplicitSetName,
					errors.Newf(errors.ErrorTypeFormat, "expected container:key, got %q", pair))
			}
			ids = append(ids, models.NewRecordID(parts[0], parts[1]))
		}
	}
	e.ids = normalize(ids)
	e.configured = true
	return nil
}

// Discover returns a copy of the set. conn is ignored and may be nil.
func (e *ExplicitSet) Discover(_ context.Context, _ store.Connection) ([]models.RecordID, error) {
	if !e.configured {
		return nil, notConfigured(ExplicitSetName)
	}
	out := make([]models.RecordID, len(e.ids))
	copy(out, e.ids)
	return out, nil
}
