package input

import (
	"strings"

	"github.com/ajitpratap0/kvsplit/pkg/config"
	"github.com/ajitpratap0/kvsplit/pkg/discovery"
	"github.com/ajitpratap0/kvsplit/pkg/endpoint"
	"github.com/ajitpratap0/kvsplit/pkg/errors"
	"github.com/ajitpratap0/kvsplit/pkg/models"
	"github.com/ajitpratap0/kvsplit/pkg/store"
)

// AddEndpoint appends ep to the job's endpoint list.
func AddEndpoint(props *config.Properties, ep endpoint.Endpoint) {
	current := props.Get(config.PropertyEndpoints, "")
	if current == "" {
		props.Set(config.PropertyEndpoints, ep.String())
		return
	}
	props.Set(config.PropertyEndpoints, current+endpoint.ListSeparator+ep.String())
}

// SetEndpoints replaces the job's endpoint list.
func SetEndpoints(props *config.Properties, endpoints []endpoint.Endpoint) {
	props.Set(config.PropertyEndpoints, endpoint.JoinList(endpoints))
}

// Endpoints returns the job's endpoints in order. Malformed entries are
// format errors; an empty list is not an error here.
func Endpoints(props *config.Properties) ([]endpoint.Endpoint, error) {
	return endpoint.ParseList(props.Get(config.PropertyEndpoints, ""))
}

// SetClusterSize stores the cluster-size hint.
func SetClusterSize(props *config.Properties, size int) {
	props.SetInt(config.PropertyClusterSize, size)
}

// ClusterSize returns the cluster-size hint, defaulting to
// config.DefaultClusterSize.
func ClusterSize(props *config.Properties) int {
	return props.GetInt(config.PropertyClusterSize, config.DefaultClusterSize)
}

// SetStrategy records the strategy's name and init string.
func SetStrategy(props *config.Properties, s discovery.Strategy) error {
	init, err := s.InitString()
	if err != nil {
		return err
	}
	props.Set(config.PropertyStrategy, s.Name())
	props.Set(config.PropertyStrategyInit, init)
	return nil
}

// Strategy rebuilds the job's discovery strategy. Without a configured name
// the full scan strategy is used. Without an init string the strategy is
// returned unconfigured and fails when asked to discover.
func Strategy(props *config.Properties) (discovery.Strategy, error) {
	name := props.Get(config.PropertyStrategy, discovery.DefaultName)
	init, ok := props.Lookup(config.PropertyStrategyInit)
	if !ok {
		return discovery.New(name)
	}
	return discovery.FromInitString(name, init)
}

// SetOutputContainer stores the container output is written to.
func SetOutputContainer(props *config.Properties, container string) {
	props.Set(config.PropertyOutputContainer, container)
}

// OutputContainer returns the output container, or "" when unset.
func OutputContainer(props *config.Properties) string {
	return props.Get(config.PropertyOutputContainer, "")
}

// StrategyFromConfig builds the discovery strategy described by a job file.
func StrategyFromConfig(d config.DiscoveryConfig) (discovery.Strategy, error) {
	name := d.Strategy
	if name == "" {
		name = discovery.DefaultName
	}

	switch name {
	case discovery.FullScanName:
		if d.Container == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "full_scan needs discovery.container")
		}
		return discovery.NewFullScan(d.Container), nil

	case discovery.ExplicitSetName:
		ids := make([]models.RecordID, 0, len(d.Keys))
		for _, k := range d.Keys {
			if d.Container != "" && !strings.Contains(k, ":") {
				ids = append(ids, models.NewRecordID(d.Container, k))
				continue
			}
			parts := strings.SplitN(k, ":", 2)
			if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
				return nil, errors.Newf(errors.ErrorTypeConfig, "discovery.keys entry %q is not container:key", k)
			}
			ids = append(ids, models.NewRecordID(parts[0], parts[1]))
		}
		return discovery.NewExplicitSet(ids...), nil

	case discovery.SearchQueryName:
		if d.Container == "" || d.Query == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "search_query needs discovery.container and discovery.query")
		}
		return discovery.NewSearchQuery(d.Container, d.Query), nil

	case discovery.IndexQueryName:
		q := store.NewEqualQuery(d.Container, d.Index.Name, d.Index.Key)
		if d.Index.Key == "" {
			q = store.NewRangeQuery(d.Container, d.Index.Name, d.Index.Start, d.Index.End)
		}
		if err := q.Validate(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "discovery.index")
		}
		return discovery.NewIndexQuery(q), nil

	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown discovery strategy %q", name)
	}
}

// PropertiesFromConfig flattens a job file into the property bag read by
// InputFormat.
func PropertiesFromConfig(cfg *config.JobConfig) (*config.Properties, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoints, err := cfg.ParsedEndpoints()
	if err != nil {
		return nil, err
	}
	strategy, err := StrategyFromConfig(cfg.Discovery)
	if err != nil {
		return nil, err
	}

	props := config.NewProperties()
	SetEndpoints(props, endpoints)
	clusterSize := cfg.ClusterSize
	if clusterSize == 0 {
		clusterSize = config.DefaultClusterSize
	}
	SetClusterSize(props, clusterSize)
	if err := SetStrategy(props, strategy); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "encode discovery strategy")
	}
	if cfg.Output.Container != "" {
		SetOutputContainer(props, cfg.Output.Container)
	}
	return props, nil
}
