package config

import (
	"sort"
	"strconv"
	"strings"
)

// Property keys used by a job
const (
	// PropertyEndpoints holds the comma joined serialized endpoints
	PropertyEndpoints = "kvsplit.endpoints"
	// PropertyClusterSize holds the cluster-size hint used to size splits
	PropertyClusterSize = "kvsplit.cluster.size"
	// PropertyStrategy holds the identifier of the key discovery strategy
	PropertyStrategy = "kvsplit.discovery.strategy"
	// PropertyStrategyInit holds the strategy's init string
	PropertyStrategyInit = "kvsplit.discovery.init_string"
	// PropertyOutputContainer holds the container results are written to
	PropertyOutputContainer = "kvsplit.output.container"
)

// Properties is a flat string-keyed property bag. The zero value is not
// usable; create one with NewProperties.
type Properties struct {
	values map[string]string
}

// NewProperties creates an empty property bag
func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// PropertiesFrom creates a property bag holding a copy of values
func PropertiesFrom(values map[string]string) *Properties {
	p := NewProperties()
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// Get returns the value for key, or def when the key is unset
func (p *Properties) Get(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Lookup returns the value for key and whether it was set
func (p *Properties) Lookup(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set stores value under key
func (p *Properties) Set(key, value string) {
	p.values[key] = value
}

// Unset removes key
func (p *Properties) Unset(key string) {
	delete(p.values, key)
}

// GetInt returns the integer value for key, or def when the key is unset or
// does not hold an integer.
func (p *Properties) GetInt(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// SetInt stores an integer value under key
func (p *Properties) SetInt(key string, value int) {
	p.values[key] = strconv.Itoa(value)
}

// Keys returns the set keys in sorted order
func (p *Properties) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy, as handed to each worker
func (p *Properties) Clone() *Properties {
	return PropertiesFrom(p.values)
}

// Map returns a copy of the underlying values
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}
