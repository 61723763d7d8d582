package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

const jobYAML = `
name: export-users
endpoints:
  - 10.0.0.1:8087
  - http://10.0.0.2:8098/riak
cluster_size: 12
discovery:
  strategy: index_query
  container: users
  index:
    name: age_int
    start: "18"
    end: "65"
output:
  container: ${KVSPLIT_TEST_OUTPUT}
timeouts:
  connect: 5s
  request: 1m
staging:
  url: s3://bucket/jobs
  compression: zstd
`

func TestLoadJobConfig(t *testing.T) {
	t.Setenv("KVSPLIT_TEST_OUTPUT", "user-results")

	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o600))

	cfg := NewJobConfig("")
	require.NoError(t, Load(path, cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "export-users", cfg.Name)
	assert.Equal(t, 12, cfg.ClusterSize)
	assert.Equal(t, "index_query", cfg.Discovery.Strategy)
	assert.Equal(t, "age_int", cfg.Discovery.Index.Name)
	assert.Equal(t, "18", cfg.Discovery.Index.Start)
	assert.Equal(t, "user-results", cfg.Output.Container)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Connect)
	assert.Equal(t, time.Minute, cfg.Timeouts.Request)
	assert.Equal(t, "zstd", cfg.Staging.Compression)
	// defaults survive when the document does not mention them
	assert.Equal(t, "info", cfg.Logging.Level)

	endpoints, err := cfg.ParsedEndpoints()
	require.NoError(t, err)
	assert.Equal(t, []endpoint.Endpoint{
		endpoint.NewPB("10.0.0.1", 8087),
		endpoint.NewHTTP("10.0.0.2", 8098, "/riak"),
	}, endpoints)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "missing.yaml"), NewJobConfig("x"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestJobConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*JobConfig)
		errMsg string
	}{
		{"valid", func(*JobConfig) {}, ""},
		{"missing name", func(c *JobConfig) { c.Name = "" }, "name is required"},
		{"negative cluster size", func(c *JobConfig) { c.ClusterSize = -1 }, "cluster_size"},
		{"bad endpoint", func(c *JobConfig) { c.Endpoints = []string{"nope"} }, "endpoints[0]"},
		{"negative timeout", func(c *JobConfig) { c.Timeouts.Request = -time.Second }, "timeouts"},
		{"negative throttle", func(c *JobConfig) { c.Throttle.RequestsPerSecond = -1 }, "throttle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewJobConfig("job")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := NewJobConfig("roundtrip")
	cfg.Endpoints = []string{"localhost:8087"}
	cfg.Discovery.Keys = []string{"users:alice"}
	require.NoError(t, Save(path, cfg))

	loaded := NewJobConfig("")
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("KVSPLIT_A", "alpha")
	assert.Equal(t, "x alpha y  z", substituteEnvVars("x ${KVSPLIT_A} y ${KVSPLIT_UNSET_VAR} z"))
	assert.Equal(t, "unterminated ${KVSPLIT_A", substituteEnvVars("unterminated ${KVSPLIT_A"))
}

func TestPropertiesTypedAccess(t *testing.T) {
	p := NewProperties()
	assert.Equal(t, "def", p.Get("missing", "def"))
	assert.Equal(t, 3, p.GetInt("missing", 3))

	p.Set("n", "not-a-number")
	assert.Equal(t, 7, p.GetInt("n", 7))

	p.SetInt("n", 42)
	assert.Equal(t, 42, p.GetInt("n", 7))

	clone := p.Clone()
	clone.Set("n", "1")
	assert.Equal(t, 42, p.GetInt("n", 0), "clone must not share state")

	p.Unset("n")
	_, ok := p.Lookup("n")
	assert.False(t, ok)
}
