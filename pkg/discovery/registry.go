package discovery

import (
	"sort"
	"sync"

	"github.com/ajitpratap0/kvsplit/pkg/errors"
)

// Factory returns an unconfigured strategy.
type Factory func() Strategy

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		FullScanName:    func() Strategy { return &FullScan{} },
		ExplicitSetName: func() Strategy { return &ExplicitSet{} },
		SearchQueryName: func() Strategy { return &SearchQuery{} },
		IndexQueryName:  func() Strategy { return &IndexQuery{} },
	}
)

// DefaultName is the strategy used when a job names none.
const DefaultName = FullScanName

// Register adds a strategy factory under name.
func Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return errors.New(errors.ErrorTypeArgument, "strategy name and factory are required")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return errors.Newf(errors.ErrorTypeArgument, "strategy %q already registered", name)
	}
	registry[name] = factory
	return nil
}

// New returns an unconfigured strategy registered under name.
func New(name string) (Strategy, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown discovery strategy %q", name).
			WithDetail("known", Names())
	}
	return factory(), nil
}

// FromInitString builds the strategy registered under name and initializes it
// from init.
func FromInitString(name, init string) (Strategy, error) {
	s, err := New(name)
	if err != nil {
		return nil, err
	}
	if err := s.Init(init); err != nil {
		return nil, err
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
