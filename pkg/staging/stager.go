package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/kvsplit/pkg/codec"
	"github.com/ajitpratap0/kvsplit/pkg/compression"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/observability"
	"github.com/ajitpratap0/kvsplit/pkg/split"
)

const (
	// ManifestVersion is written into every manifest.
	ManifestVersion = 1
	manifestName    = "manifest.json"
)

// Manifest describes a staged job. It is written after every split object,
// so a readable manifest means the job was staged completely.
type Manifest struct {
	Version     int                   `json:"version"`
	JobID       string                `json:"job_id"`
	CreatedAt   time.Time             `json:"created_at"`
	Compression compression.Algorithm `json:"compression"`
	TotalKeys   int                   `json:"total_keys"`
	Splits      []SplitEntry          `json:"splits"`
}

// SplitEntry locates one staged split.
type SplitEntry struct {
	Index    int    `json:"index"`
	Object   string `json:"object"`
	Location string `json:"location"`
	Keys     int    `json:"keys"`
	Size     int    `json:"size"`
	SHA256   string `json:"sha256"`
}

// StagerOptions configures a Stager.
type StagerOptions struct {
	Compression compression.Algorithm
	Level       compression.Level
	// Concurrency bounds parallel uploads. Zero means 8.
	Concurrency int
	Logger      *zap.Logger
}

// Stager writes and reads staged jobs.
type Stager struct {
	store       ObjectStore
	algorithm   compression.Algorithm
	level       compression.Level
	concurrency int
	logger      *zap.Logger

	mu          sync.Mutex
	compressors map[compression.Algorithm]compression.Compressor
}

// NewStager creates a Stager over store.
func NewStager(store ObjectStore, opts StagerOptions) (*Stager, error) {
	algo, err := compression.ParseAlgorithm(string(opts.Compression))
	if err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Logger == nil {
		opts.Logger = logger.Get()
	}
	s := &Stager{
		store:       store,
		algorithm:   algo,
		level:       opts.Level,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.With(zap.String("component", "stager")),
		compressors: make(map[compression.Algorithm]compression.Compressor),
	}
	if _, err := s.compressor(algo); err != nil {
		return nil, err
	}
	return s, nil
}

// NewJobID returns a fresh random job id.
func NewJobID() string {
	return uuid.NewString()
}

func validJobID(jobID string) error {
	if jobID == "" || strings.ContainsAny(jobID, "/\\") || strings.Contains(jobID, "..") {
		return errors.Newf(errors.ErrorTypeArgument, "invalid job id %q", jobID)
	}
	return nil
}

func (s *Stager) compressor(algo compression.Algorithm) (compression.Compressor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.compressors[algo]; ok {
		return c, nil
	}
	c, err := compression.NewCompressor(&compression.Config{Algorithm: algo, Level: s.level})
	if err != nil {
		return nil, err
	}
	s.compressors[algo] = c
	return c, nil
}

func objectName(jobID string, index int, algo compression.Algorithm) string {
	return fmt.Sprintf("%s/split-%05d.bin%s", jobID, index, algo.Extension())
}

// Stage uploads every split of a job and then its manifest.
func (s *Stager) Stage(ctx context.Context, jobID string, splits []*split.Split) (m *Manifest, err error) {
	if err := validJobID(jobID); err != nil {
		return nil, err
	}
	c, err := s.compressor(s.algorithm)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "stage_splits",
		attribute.String("job_id", jobID),
		attribute.Int("splits", len(splits)))
	defer func() { span.End(err) }()

	entries := make([]SplitEntry, len(splits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sp := range splits {
		i, sp := i, sp
		g.Go(func() error {
			raw, err := sp.MarshalBinary()
			if err != nil {
				return err
			}
			packed, err := c.Compress(raw)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(packed)
			name := objectName(jobID, i, s.algorithm)
			if err := s.store.Put(gctx, name, packed); err != nil {
				return err
			}
			entries[i] = SplitEntry{
				Index:    i,
				Object:   name,
				Location: sp.Location().String(),
				Keys:     sp.Len(),
				Size:     len(packed),
				SHA256:   hex.EncodeToString(sum[:]),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m = &Manifest{
		Version:     ManifestVersion,
		JobID:       jobID,
		CreatedAt:   time.Now().UTC(),
		Compression: s.algorithm,
		Splits:      entries,
	}
	for _, e := range entries {
		m.TotalKeys += e.Keys
	}

	data, err := codec.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "encode manifest")
	}
	if err := s.store.Put(ctx, jobID+"/"+manifestName, data); err != nil {
		return nil, err
	}

	s.logger.Info("staged job",
		zap.String("job_id", jobID),
		zap.Int("splits", len(entries)),
		zap.Int("keys", m.TotalKeys),
		zap.String("compression", string(s.algorithm)))
	return m, nil
}

// Manifest reads the manifest of a staged job.
func (s *Stager) Manifest(ctx context.Context, jobID string) (*Manifest, error) {
	if err := validJobID(jobID); err != nil {
		return nil, err
	}
	data, err := s.store.Get(ctx, jobID+"/"+manifestName)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "decode manifest of job "+jobID)
	}
	if m.Version != ManifestVersion {
		return nil, errors.Newf(errors.ErrorTypeFormat, "unsupported manifest version %d", m.Version)
	}
	return &m, nil
}

// LoadSplit reads and verifies split index of a staged job.
func (s *Stager) LoadSplit(ctx context.Context, m *Manifest, index int) (*split.Split, error) {
	if index < 0 || index >= len(m.Splits) {
		return nil, errors.Newf(errors.ErrorTypeArgument, "split %d out of range [0, %d)", index, len(m.Splits))
	}
	entry := m.Splits[index]

	packed, err := s.store.Get(ctx, entry.Object)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(packed)
	if hex.EncodeToString(sum[:]) != entry.SHA256 {
		return nil, errors.Newf(errors.ErrorTypeFormat, "checksum mismatch for %s", entry.Object)
	}

	c, err := s.compressor(m.Compression)
	if err != nil {
		return nil, err
	}
	raw, err := c.Decompress(packed)
	if err != nil {
		return nil, err
	}

	var sp split.Split
	if err := sp.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return &sp, nil
}

// LoadAll reads every split of a staged job in order.
func (s *Stager) LoadAll(ctx context.Context, jobID string) ([]*split.Split, error) {
	m, err := s.Manifest(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]*split.Split, len(m.Splits))
	for i := range m.Splits {
		if out[i], err = s.LoadSplit(ctx, m, i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Remove deletes every object of a staged job.
func (s *Stager) Remove(ctx context.Context, jobID string) error {
	if err := validJobID(jobID); err != nil {
		return err
	}
	keys, err := s.store.List(ctx, jobID+"/")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
