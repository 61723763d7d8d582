package staging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/kvsplit/pkg/compression"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/split"
	"github.com/ajitpratap0/kvsplit/pkg/testutil"
)

type StagerSuite struct {
	testutil.TempDirSuite
	store *LocalStore
}

func TestStagerSuite(t *testing.T) {
	suite.Run(t, new(StagerSuite))
}

func (s *StagerSuite) SetupTest() {
	store, err := NewLocalStore(s.SubDir(s.T().Name()))
	s.Require().NoError(err)
	s.store = store
}

func (s *StagerSuite) stager(algo compression.Algorithm) *Stager {
	st, err := NewStager(s.store, StagerOptions{
		Compression: algo,
		Concurrency: 3,
		Logger:      testutil.TestLogger(s.T()),
	})
	s.Require().NoError(err)
	return st
}

func sampleSplits() []*split.Split {
	endpoints := []endpoint.Endpoint{
		endpoint.NewPB("node1", 8087),
		endpoint.NewHTTP("node2", 8098, "/riak"),
	}
	ids := make([]models.RecordID, 95)
	for i := range ids {
		ids[i] = models.NewRecordID("users", fmt.Sprintf("user-%03d", i))
	}
	splits, err := split.Plan(ids, endpoints, 10)
	if err != nil {
		panic(err)
	}
	return splits
}

func (s *StagerSuite) TestStageAndLoadEveryAlgorithm() {
	splits := sampleSplits()

	for _, algo := range compression.Algorithms {
		s.Run(string(algo), func() {
			st := s.stager(algo)
			jobID := NewJobID()

			m, err := st.Stage(s.Context(), jobID, splits)
			s.Require().NoError(err)
			s.Equal(jobID, m.JobID)
			s.Equal(algo, m.Compression)
			s.Equal(95, m.TotalKeys)
			s.Len(m.Splits, 10)
			s.Equal("http://node2:8098/riak", m.Splits[1].Location)

			read, err := st.Manifest(s.Context(), jobID)
			s.Require().NoError(err)
			s.Equal(m.Splits, read.Splits)

			loaded, err := st.LoadAll(s.Context(), jobID)
			s.Require().NoError(err)
			s.Require().Len(loaded, len(splits))
			for i := range splits {
				s.True(splits[i].Equal(loaded[i]), "split %d", i)
			}
		})
	}
}

func (s *StagerSuite) TestObjectLayout() {
	st := s.stager(compression.Zstd)
	_, err := st.Stage(s.Context(), "nightly", sampleSplits()[:2])
	s.Require().NoError(err)

	keys, err := s.store.List(s.Context(), "nightly/")
	s.Require().NoError(err)
	s.Equal([]string{
		"nightly/manifest.json",
		"nightly/split-00000.bin.zst",
		"nightly/split-00001.bin.zst",
	}, keys)
}

func (s *StagerSuite) TestLoadSplitDetectsCorruption() {
	st := s.stager(compression.None)
	m, err := st.Stage(s.Context(), "corrupt", sampleSplits())
	s.Require().NoError(err)

	s.Require().NoError(s.store.Put(s.Context(), m.Splits[3].Object, []byte("tampered")))

	_, err = st.LoadSplit(s.Context(), m, 3)
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeFormat))

	_, err = st.LoadSplit(s.Context(), m, 2)
	s.NoError(err)

	_, err = st.LoadSplit(s.Context(), m, len(m.Splits))
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeArgument))
}

func (s *StagerSuite) TestManifestMissing() {
	st := s.stager(compression.None)
	_, err := st.Manifest(s.Context(), "never-staged")
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeNotFound))
}

func (s *StagerSuite) TestRemove() {
	st := s.stager(compression.Snappy)
	_, err := st.Stage(s.Context(), "short-lived", sampleSplits())
	s.Require().NoError(err)
	_, err = st.Stage(s.Context(), "kept", sampleSplits()[:1])
	s.Require().NoError(err)

	s.Require().NoError(st.Remove(s.Context(), "short-lived"))

	keys, err := s.store.List(s.Context(), "")
	s.Require().NoError(err)
	s.Equal([]string{"kept/manifest.json", "kept/split-00000.bin.snappy"}, keys)
}

func (s *StagerSuite) TestInvalidJobIDs() {
	st := s.stager(compression.None)
	for _, id := range []string{"", "a/b", "..", `a\b`} {
		_, err := st.Stage(s.Context(), id, nil)
		s.Require().Error(err, id)
		s.True(errors.IsType(err, errors.ErrorTypeArgument))
	}
}

func (s *StagerSuite) TestEmptyJob() {
	st := s.stager(compression.Gzip)
	m, err := st.Stage(s.Context(), "empty", nil)
	s.Require().NoError(err)
	s.Empty(m.Splits)

	loaded, err := st.LoadAll(s.Context(), "empty")
	s.Require().NoError(err)
	s.Empty(loaded)
}

func (s *StagerSuite) TestUnsupportedCompression() {
	_, err := NewStager(s.store, StagerOptions{Compression: "brotli"})
	s.Require().Error(err)
	s.True(errors.IsType(err, errors.ErrorTypeConfig))
}
