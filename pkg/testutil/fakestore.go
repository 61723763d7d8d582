package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// FakeConnection is an in-memory store.Connection. Errors set on the struct
// are returned by the matching operation.
type FakeConnection struct {
	mu sync.Mutex

	data         map[string]map[string][]byte
	searchResult map[string][]models.RecordID
	indexResult  []models.RecordID

	FetchErr    error
	ListKeysErr error
	IndexErr    error
	SearchErr   error
	StoreErr    error
	PingErr     error

	// FailFetch makes Fetch fail for the listed keys only.
	FailFetch map[string]error

	Fetched   []models.RecordID
	Queries   []store.IndexQuery
	Searches  []string
	Closed    bool
	CloseErr  error
	CallCount int
}

// NewFakeConnection returns an empty FakeConnection.
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{
		data:         make(map[string]map[string][]byte),
		searchResult: make(map[string][]models.RecordID),
		FailFetch:    make(map[string]error),
	}
}

// Put seeds a value.
func (f *FakeConnection) Put(container, key string, value []byte) *FakeConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[container] == nil {
		f.data[container] = make(map[string][]byte)
	}
	f.data[container][key] = value
	return f
}

// Value returns a stored value.
func (f *FakeConnection) Value(container, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[container][key]
	return v, ok
}

// SetSearchResult fixes the ids returned for query.
func (f *FakeConnection) SetSearchResult(query string, ids ...models.RecordID) *FakeConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchResult[query] = ids
	return f
}

// SetIndexResult fixes the ids returned by IndexQuery.
func (f *FakeConnection) SetIndexResult(ids ...models.RecordID) *FakeConnection {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexResult = ids
	return f
}

func (f *FakeConnection) Fetch(_ context.Context, container, key string) (*models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCount++
	id := models.NewRecordID(container, key)
	f.Fetched = append(f.Fetched, id)
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if err, ok := f.FailFetch[key]; ok {
		return nil, err
	}
	rec := &models.Record{ID: id}
	if v, ok := f.data[container][key]; ok {
		rec.Siblings = []models.Sibling{{Value: v, ContentType: "application/octet-stream"}}
	}
	return rec, nil
}

func (f *FakeConnection) ListKeys(_ context.Context, container string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCount++
	if f.ListKeysErr != nil {
		return nil, f.ListKeysErr
	}
	keys := make([]string, 0, len(f.data[container]))
	for k := range f.data[container] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *FakeConnection) IndexQuery(_ context.Context, q store.IndexQuery) ([]models.RecordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCount++
	f.Queries = append(f.Queries, q)
	if f.IndexErr != nil {
		return nil, f.IndexErr
	}
	return append([]models.RecordID(nil), f.indexResult...), nil
}

func (f *FakeConnection) Search(_ context.Context, container, query string) ([]models.RecordID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCount++
	f.Searches = append(f.Searches, container+"|"+query)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	return append([]models.RecordID(nil), f.searchResult[query]...), nil
}

func (f *FakeConnection) Store(_ context.Context, container, key string, value []byte, _ string) error {
	f.mu.Lock()
	f.CallCount++
	err := f.StoreErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.Put(container, key, value)
	return nil
}

func (f *FakeConnection) Ping(_ context.Context) error {
	return f.PingErr
}

func (f *FakeConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return f.CloseErr
}

// FakeDialer hands out FakeConnections by endpoint string and records the
// order endpoints were dialed in.
type FakeDialer struct {
	mu       sync.Mutex
	conns    map[string]*FakeConnection
	dialErrs map[string]error
	Dialed   []endpoint.Endpoint
}

// NewFakeDialer returns a FakeDialer with no endpoints.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		conns:    make(map[string]*FakeConnection),
		dialErrs: make(map[string]error),
	}
}

// Add registers conn for ep.
func (d *FakeDialer) Add(ep endpoint.Endpoint, conn *FakeConnection) *FakeDialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conns[ep.String()] = conn
	return d
}

// FailDial makes dialing ep return err.
func (d *FakeDialer) FailDial(ep endpoint.Endpoint, err error) *FakeDialer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialErrs[ep.String()] = err
	return d
}

// Dial implements store.Dialer.
func (d *FakeDialer) Dial(_ context.Context, ep endpoint.Endpoint) (store.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dialed = append(d.Dialed, ep)
	if err, ok := d.dialErrs[ep.String()]; ok {
		return nil, err
	}
	conn, ok := d.conns[ep.String()]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeStore, "connection refused: %s", ep)
	}
	return conn, nil
}

// StoreError returns a store-class error for tests.
func StoreError(msg string) error {
	return errors.New(errors.ErrorTypeStore, msg)
}
