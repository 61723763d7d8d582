package mapper

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/input"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/split"
	"github.com/ajitpratap0/kvsplit/pkg/testutil"
)

type user struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func record(key string, values ...string) *models.Record {
	rec := &models.Record{ID: models.NewRecordID("users", key)}
	for _, v := range values {
		rec.Siblings = append(rec.Siblings, models.Sibling{Value: []byte(v), ContentType: "application/json"})
	}
	return rec
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		rec     *models.Record
		want    user
		wantOK  bool
		errType errors.ErrorType
	}{
		{"single sibling", record("a", `{"name":"ann","age":3}`), user{Name: "ann", Age: 3}, true, ""},
		{"not found", record("b"), user{}, false, ""},
		{"nil record", nil, user{}, false, ""},
		{"conflict", record("c", `{"name":"x"}`, `{"name":"y"}`), user{}, false, errors.ErrorTypeIllegalState},
		{"bad json", record("d", `{`), user{}, false, errors.ErrorTypeFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Resolve(tt.rec, JSON[user](), Single[user]())
			if tt.errType != "" {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveConflictIsErrConflict(t *testing.T) {
	_, _, err := Resolve(record("c", "x", "y"), String(), Single[string]())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "2 siblings")
}

func TestResolveSkipsTombstones(t *testing.T) {
	rec := record("a", "old", "new")
	rec.Siblings[0].Deleted = true

	got, ok, err := Resolve(rec, String(), Single[string]())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", got)

	rec.Siblings[1].Deleted = true
	_, ok, err = Resolve(rec, String(), Single[string]())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCustomResolver(t *testing.T) {
	longest := ResolverFunc[string](func(_ models.RecordID, siblings []string) (string, error) {
		best := siblings[0]
		for _, s := range siblings[1:] {
			if len(s) > len(best) {
				best = s
			}
		}
		return best, nil
	})

	got, ok, err := Resolve(record("a", "ab", "abcd", "abc"), String(), longest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abcd", got)

	got, _, err = Resolve(record("a", "ab", "abcd"), String(), First[string]())
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestBytesConverter(t *testing.T) {
	got, ok, err := Resolve(record("a", "raw"), Bytes(), First[[]byte]())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("raw"), got)
}

type sliceReader struct {
	records []*models.Record
	errs    map[int]error
	pos     int
}

func (r *sliceReader) HasNext() bool { return r.pos < len(r.records) }

func (r *sliceReader) Next(_ context.Context) (*models.Record, error) {
	i := r.pos
	r.pos++
	if err, ok := r.errs[i]; ok {
		return nil, err
	}
	return r.records[i], nil
}

func TestRun(t *testing.T) {
	r := &sliceReader{records: []*models.Record{
		record("a", `{"name":"ann"}`),
		record("b"),
		record("c", `{"name":"cid"}`),
	}}
	m := New(JSON[user](), Single[user](), WithLogger(testutil.TestLogger(t)))

	var names []string
	stats, err := m.Run(context.Background(), r, func(_ context.Context, id models.RecordID, u user) error {
		names = append(names, id.Key+"="+u.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=ann", "c=cid"}, names)
	assert.Equal(t, Stats{Read: 3, Mapped: 2, NotFound: 1}, stats)
}

func TestRunFetchErrors(t *testing.T) {
	newReader := func() *sliceReader {
		return &sliceReader{
			records: []*models.Record{record("a", "1"), nil, record("c", "3")},
			errs:    map[int]error{1: testutil.StoreError("timeout")},
		}
	}
	collect := func(_ context.Context, _ models.RecordID, _ string) error { return nil }

	t.Run("stops by default", func(t *testing.T) {
		m := New(String(), Single[string](), WithLogger(testutil.TestLogger(t)))
		stats, err := m.Run(context.Background(), newReader(), collect)
		require.Error(t, err)
		assert.Equal(t, Stats{Read: 2, Mapped: 1, Failed: 1}, stats)
	})

	t.Run("skips when asked", func(t *testing.T) {
		m := New(String(), Single[string](), WithSkipFetchErrors(), WithLogger(testutil.TestLogger(t)))
		stats, err := m.Run(context.Background(), newReader(), collect)
		require.NoError(t, err)
		assert.Equal(t, Stats{Read: 3, Mapped: 2, Failed: 1}, stats)
	})
}

func TestRunCallbackErrorStops(t *testing.T) {
	boom := stderrors.New("boom")
	r := &sliceReader{records: []*models.Record{record("a", "1"), record("b", "2")}}
	m := New(String(), Single[string](), WithLogger(testutil.TestLogger(t)))

	stats, err := m.Run(context.Background(), r, func(context.Context, models.RecordID, string) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stats.Read)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &sliceReader{records: []*models.Record{record("a", "1")}}
	m := New(String(), Single[string](), WithLogger(testutil.TestLogger(t)))

	_, err := m.Run(ctx, r, func(context.Context, models.RecordID, string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunOverRecordReader(t *testing.T) {
	conn := testutil.NewFakeConnection().
		Put("users", "a", []byte(`{"name":"ann","age":30}`)).
		Put("users", "b", []byte(`{"name":"bob","age":40}`))
	ids := []models.RecordID{
		models.NewRecordID("users", "a"),
		models.NewRecordID("users", "b"),
		models.NewRecordID("users", "missing"),
	}
	reader := input.NewRecordReader(split.New(endpoint.NewPB("n1", 8087), ids), conn, testutil.TestLogger(t))
	defer reader.Close()

	total := 0
	m := New(JSON[user](), Single[user](), WithLogger(testutil.TestLogger(t)))
	stats, err := m.Run(context.Background(), reader, func(_ context.Context, _ models.RecordID, u user) error {
		total += u.Age
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 70, total)
	assert.Equal(t, Stats{Read: 3, Mapped: 2, NotFound: 1}, stats)
}
