package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
)

func newTestSettings() (*cobra.Command, *viper.Viper) {
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	bindSettings(cmd, v)
	return cmd, v
}

func TestLoadJobDefaults(t *testing.T) {
	_, v := newTestSettings()

	cfg, err := loadJob(v)
	require.NoError(t, err)
	assert.Equal(t, "kvsplit", cfg.Name)
	assert.Equal(t, 3, cfg.ClusterSize)
	assert.Equal(t, "none", cfg.Staging.Compression)
	assert.Empty(t, cfg.Endpoints)
}

func TestLoadJobFileWithFlagOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: nightly
endpoints:
  - node-a:8087
cluster_size: 4
staging:
  url: /tmp/staged
`), 0o644))

	cmd, v := newTestSettings()
	flags := cmd.PersistentFlags()
	require.NoError(t, flags.Set("config", path))
	require.NoError(t, flags.Set("cluster-size", "7"))
	require.NoError(t, flags.Set("compression", "zstd"))

	cfg, err := loadJob(v)
	require.NoError(t, err)
	assert.Equal(t, "nightly", cfg.Name)
	assert.Equal(t, []string{"node-a:8087"}, cfg.Endpoints)
	assert.Equal(t, 7, cfg.ClusterSize)
	assert.Equal(t, "/tmp/staged", cfg.Staging.URL)
	assert.Equal(t, "zstd", cfg.Staging.Compression)
}

func TestLoadJobEnvOverrides(t *testing.T) {
	t.Setenv("KVSPLIT_ENDPOINTS", "node-a:8087,node-b:8087")
	t.Setenv("KVSPLIT_STAGING_URL", "s3://bucket/jobs")
	t.Setenv("KVSPLIT_TRACING_ENABLED", "true")

	_, v := newTestSettings()
	cfg, err := loadJob(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-a:8087", "node-b:8087"}, cfg.Endpoints)
	assert.Equal(t, "s3://bucket/jobs", cfg.Staging.URL)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadJobRejectsInvalidEndpoint(t *testing.T) {
	cmd, v := newTestSettings()
	require.NoError(t, cmd.PersistentFlags().Set("endpoints", "node-a:notaport"))

	_, err := loadJob(v)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, splitList([]string{"a:1, b:2", "", "c:3,"}))
	assert.Nil(t, splitList(nil))
}

func TestResolverFor(t *testing.T) {
	for _, name := range []string{"", "first", "single"} {
		r, err := resolverFor(name)
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}

	_, err := resolverFor("newest")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestEmitterPrintsJSONLines(t *testing.T) {
	var out bytes.Buffer
	emit := emitter(&out, nil)

	require.NoError(t, emit(context.Background(), models.NewRecordID("users", "u1"), []byte("alice")))
	require.NoError(t, emit(context.Background(), models.NewRecordID("users", "u2"), []byte("bob")))

	assert.Equal(t,
		"{\"container\":\"users\",\"key\":\"u1\",\"value\":\"alice\"}\n"+
			"{\"container\":\"users\",\"key\":\"u2\",\"value\":\"bob\"}\n",
		out.String())
}

func TestRootCommands(t *testing.T) {
	var out bytes.Buffer
	root := newRootCommand(viper.New())
	root.SetOut(&out)
	root.SetArgs([]string{"strategies"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "full_scan")

	out.Reset()
	root = newRootCommand(viper.New())
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "kvsplit v"+version)
}

func TestReadNeedsStagingURL(t *testing.T) {
	root := newRootCommand(viper.New())
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"read", "--job-id", "job-1"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
