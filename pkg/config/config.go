package config

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// DefaultClusterSize is the cluster-size hint used when none is configured
const DefaultClusterSize = 3

// JobConfig is the operator-facing description of a job
type JobConfig struct {
	// Name identifies the job in logs and staged artifacts
	Name string `yaml:"name" json:"name"`
	// Endpoints lists serialized store endpoints, tried in order during discovery
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
	// ClusterSize is the rough number of workers splits are sized for
	ClusterSize int `yaml:"cluster_size" json:"cluster_size"`

	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Timeouts  TimeoutConfig   `yaml:"timeouts" json:"timeouts"`
	Throttle  ThrottleConfig  `yaml:"throttle" json:"throttle"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Staging   StagingConfig   `yaml:"staging" json:"staging"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
}

// DiscoveryConfig selects and parameterizes the key discovery strategy
type DiscoveryConfig struct {
	// Strategy is one of full_scan, explicit_set, search_query, index_query
	Strategy  string `yaml:"strategy" json:"strategy"`
	Container string `yaml:"container" json:"container"`
	// Keys lists "container:key" pairs, or bare keys when Container is set
	Keys  []string    `yaml:"keys" json:"keys"`
	Query string      `yaml:"query" json:"query"`
	Index IndexConfig `yaml:"index" json:"index"`
}

// IndexConfig describes a secondary index query. Set Key for an equality
// query, or Start and End for a range query.
type IndexConfig struct {
	Name  string `yaml:"name" json:"name"`
	Key   string `yaml:"key" json:"key"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// OutputConfig configures where results are written
type OutputConfig struct {
	Container string `yaml:"container" json:"container"`
}

// TimeoutConfig bounds store operations
type TimeoutConfig struct {
	// Connect bounds establishing a connection
	Connect time.Duration `yaml:"connect" json:"connect"`
	// Request bounds a single request; zero means no bound
	Request time.Duration `yaml:"request" json:"request"`
}

// ThrottleConfig bounds the request rate of each store connection
type ThrottleConfig struct {
	// RequestsPerSecond of zero disables throttling
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// LoggingConfig configures the global logger
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Encoding    string `yaml:"encoding" json:"encoding"`
	Development bool   `yaml:"development" json:"development"`
}

// StagingConfig configures where planned splits are published for workers
type StagingConfig struct {
	// URL is a local path, file://, s3://bucket/prefix or gs://bucket/prefix
	URL string `yaml:"url" json:"url"`
	// Compression is one of none, gzip, snappy, s2, zstd, lz4
	Compression string `yaml:"compression" json:"compression"`
}

// TracingConfig toggles span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// NewJobConfig creates a JobConfig with defaults
func NewJobConfig(name string) *JobConfig {
	return &JobConfig{
		Name:        name,
		ClusterSize: DefaultClusterSize,
		Discovery: DiscoveryConfig{
			Strategy: "full_scan",
		},
		Timeouts: TimeoutConfig{
			Connect: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Staging: StagingConfig{
			Compression: "none",
		},
	}
}

// Validate checks the configuration for mistakes that can be caught before
// contacting the store. An empty endpoint list is reported later, when splits
// are computed.
func (c *JobConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.ClusterSize < 0 {
		return errors.New(errors.ErrorTypeConfig, "cluster_size cannot be negative")
	}
	for i, s := range c.Endpoints {
		if _, err := endpoint.Parse(s); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("endpoints[%d]", i))
		}
	}
	if c.Timeouts.Connect < 0 || c.Timeouts.Request < 0 {
		return errors.New(errors.ErrorTypeConfig, "timeouts cannot be negative")
	}
	if c.Throttle.RequestsPerSecond < 0 || c.Throttle.Burst < 0 {
		return errors.New(errors.ErrorTypeConfig, "throttle cannot be negative")
	}
	return nil
}

// ParsedEndpoints returns the configured endpoints in order
func (c *JobConfig) ParsedEndpoints() ([]endpoint.Endpoint, error) {
	out := make([]endpoint.Endpoint, 0, len(c.Endpoints))
	for i, s := range c.Endpoints {
		e, err := endpoint.Parse(s)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, fmt.Sprintf("endpoints[%d]", i))
		}
		out = append(out, e)
	}
	return out, nil
}
