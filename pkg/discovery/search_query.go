package discovery

import (
	"context"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// SearchQueryName identifies the SearchQuery strategy.
const SearchQueryName = "search_query"

// SearchQuery discovers ids by running a full-text query scoped to a
// container. The init string is the JSON array [container, query].
type SearchQuery struct {
	container string
	query     string
}

// NewSearchQuery returns a SearchQuery for query over container.
func NewSearchQuery(container, query string) *SearchQuery {
	return &SearchQuery{container: container, query: query}
}

// Name implements Strategy.
func (s *SearchQuery) Name() string { return SearchQueryName }

// Container returns the container the query is scoped to.
func (s *SearchQuery) Container() string { return s.container }

// Query returns the query text.
func (s *SearchQuery) Query() string { return s.query }

// InitString implements Strategy.
func (s *SearchQuery) InitString() (string, error) {
	out, err := codec.MarshalString([]string{s.container, s.query})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeIO, "encode search query")
	}
	return out, nil
}

// Init implements Strategy.
func (s *SearchQuery) Init(init string) error {
	var parts []string
	if err := codec.Unmarshal([]byte(init), &parts); err != nil {
		return invalidInit(SearchQueryName, err)
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return invalidInit(SearchQueryName,
			errors.New(errors.ErrorTypeFormat, "expected [container, query]"))
	}
	s.container, s.query = parts[0], parts[1]
	return nil
}

// Discover implements Strategy.
func (s *SearchQuery) Discover(ctx context.Context, conn store.Connection) ([]models.RecordID, error) {
	if s.container == "" || s.query == "" {
		return nil, notConfigured(SearchQueryName)
	}
	if conn == nil {
		return nil, noConnection(SearchQueryName)
	}
	ids, err := conn.Search(ctx, s.container, s.query)
	if err != nil {
		return nil, err
	}
	return normalize(ids), nil
}
