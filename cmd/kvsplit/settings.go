package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/kvsplit/pkg/clients"
	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/logger"
	"github.com/ajitpratap0/kvsplit/pkg/observability"
)

// Settings keys. Each is also read from KVSPLIT_<KEY> with dots replaced by
// underscores.
const (
	keyConfig      = "config"
	keyEndpoints   = "endpoints"
	keyClusterSize = "cluster_size"
	keyStagingURL  = "staging.url"
	keyCompression = "staging.compression"
	keyLogLevel    = "logging.level"
	keyTracing     = "tracing.enabled"
	keyRate        = "throttle.requests_per_second"
)

func bindSettings(root *cobra.Command, v *viper.Viper) {
	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "Path to the job YAML file")
	flags.StringSlice("endpoints", nil, "Store endpoints (host:port or http://host:port/path), tried in order")
	flags.Int("cluster-size", 0, "Cluster size hint used to size splits")
	flags.String("staging-url", "", "Where splits are staged (path, file://, s3://bucket/prefix, gs://bucket/prefix)")
	flags.String("compression", "", "Compression of staged splits (none, gzip, snappy, s2, zstd, lz4)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("tracing", false, "Export spans to stderr")
	flags.Float64("rate", 0, "Maximum store requests per second per connection (0: unlimited)")

	_ = v.BindPFlag(keyConfig, flags.Lookup("config"))
	_ = v.BindPFlag(keyEndpoints, flags.Lookup("endpoints"))
	_ = v.BindPFlag(keyClusterSize, flags.Lookup("cluster-size"))
	_ = v.BindPFlag(keyStagingURL, flags.Lookup("staging-url"))
	_ = v.BindPFlag(keyCompression, flags.Lookup("compression"))
	_ = v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(keyTracing, flags.Lookup("tracing"))
	_ = v.BindPFlag(keyRate, flags.Lookup("rate"))

	v.SetEnvPrefix("KVSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// loadJob reads the job file named by the settings and applies flag and
// environment overrides on top of it.
func loadJob(v *viper.Viper) (*config.JobConfig, error) {
	cfg := config.NewJobConfig("kvsplit")
	if path := v.GetString(keyConfig); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	if v.IsSet(keyEndpoints) {
		cfg.Endpoints = splitList(v.GetStringSlice(keyEndpoints))
	}
	if v.IsSet(keyClusterSize) {
		cfg.ClusterSize = v.GetInt(keyClusterSize)
	}
	if v.IsSet(keyStagingURL) {
		cfg.Staging.URL = v.GetString(keyStagingURL)
	}
	if v.IsSet(keyCompression) {
		cfg.Staging.Compression = v.GetString(keyCompression)
	}
	if v.IsSet(keyLogLevel) {
		cfg.Logging.Level = v.GetString(keyLogLevel)
	}
	if v.IsSet(keyTracing) {
		cfg.Tracing.Enabled = v.GetBool(keyTracing)
	}
	if v.IsSet(keyRate) {
		cfg.Throttle.RequestsPerSecond = v.GetFloat64(keyRate)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList flattens comma separated entries, as environment values arrive
// as one string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// setup initializes logging and tracing for a command and returns the dialer
// built from the job's timeouts.
func setup(cfg *config.JobConfig) (*clients.Dialer, observability.ShutdownFunc, error) {
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return nil, nil, err
	}

	shutdown := observability.ShutdownFunc(func(context.Context) error { return nil })
	if cfg.Tracing.Enabled {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		var err error
		if shutdown, err = observability.InitTracing(tc); err != nil {
			return nil, nil, err
		}
	}

	opts := clients.OptionsFromConfig(cfg.Timeouts, cfg.Throttle)
	opts.Logger = logger.Get().With(zap.String("job", cfg.Name))
	return clients.NewDialer(opts), shutdown, nil
}
